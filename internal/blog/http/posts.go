package http

import (
	"errors"
	"net/http"

	"github.com/milan-stefanik/flyhigh/internal/blog/service"
	"github.com/milan-stefanik/flyhigh/pkg/httpx"
)

// PostsHandler serves reading and authoring posts.
type PostsHandler struct {
	PostService    *service.PostService
	MaxUploadBytes int64

	view *view
}

func (h *PostsHandler) HandleNewForm(w http.ResponseWriter, r *http.Request) {
	h.view.render(w, r, http.StatusOK, "post_form", page{Title: "New Post", Legend: "New Post"})
}

func (h *PostsHandler) HandleNew(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	in, done, err := h.readForm(w, r)
	defer done()
	if err == nil {
		_, err = h.PostService.Create(r.Context(), userID, in)
	}
	if err != nil {
		h.formFailed(w, r, err, in, page{Title: "New Post", Legend: "New Post"})
		return
	}

	h.view.flash(w, r, "success", "Your post has been created!")
	httpx.SeeOther(w, r, homePath)
}

func (h *PostsHandler) HandleShow(w http.ResponseWriter, r *http.Request) {
	post, err := h.PostService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.view.fail(w, r, err)
		return
	}
	h.view.render(w, r, http.StatusOK, "post", page{Title: post.Title, Post: post})
}

func (h *PostsHandler) HandleUpdateForm(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	post, err := h.PostService.Authorize(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		h.view.fail(w, r, err)
		return
	}
	h.view.render(w, r, http.StatusOK, "post_form", page{
		Title:  "Update Post",
		Legend: "Update Post",
		Form:   form{Values: map[string]string{"title": post.Title, "content": post.Content}},
	})
}

func (h *PostsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID, _ := httpx.UserIDFromContext(r.Context())

	// Strangers get 404/403 before their upload is even parsed.
	if _, err := h.PostService.Authorize(r.Context(), id, userID); err != nil {
		h.view.fail(w, r, err)
		return
	}

	in, done, err := h.readForm(w, r)
	defer done()
	if err == nil {
		_, err = h.PostService.Update(r.Context(), id, userID, in)
	}
	if err != nil {
		h.formFailed(w, r, err, in, page{Title: "Update Post", Legend: "Update Post"})
		return
	}

	h.view.flash(w, r, "success", "Post has been updated!")
	httpx.SeeOther(w, r, "/post/"+id)
}

func (h *PostsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	if err := h.PostService.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		h.view.fail(w, r, err)
		return
	}

	h.view.flash(w, r, "success", "Post has been deleted.")
	httpx.SeeOther(w, r, homePath)
}

// readForm parses the multipart post form. The returned func releases the
// upload and must always be called.
func (h *PostsHandler) readForm(w http.ResponseWriter, r *http.Request) (service.PostInput, func(), error) {
	cleanup, err := parseMultipart(w, r, h.MaxUploadBytes)
	if err != nil {
		return service.PostInput{}, cleanup, err
	}

	image, name, closeImage := formFile(r, "picture")
	in := service.PostInput{
		Title:     r.FormValue("title"),
		Content:   r.FormValue("content"),
		Image:     image,
		ImageName: name,
	}
	return in, func() {
		closeImage()
		cleanup()
	}, nil
}

// formFailed re-renders the post form for errors the author can fix and
// falls back to the error pages otherwise.
func (h *PostsHandler) formFailed(w http.ResponseWriter, r *http.Request, err error, in service.PostInput, p page) {
	fields, ok := formErrors(err)
	switch {
	case ok:
		p.Form = form{Values: map[string]string{"title": in.Title, "content": in.Content}, Errors: fields}
		h.view.render(w, r, http.StatusBadRequest, "post_form", p)
	case errors.Is(err, errBadForm):
		http.Error(w, "Bad request", http.StatusBadRequest)
	default:
		h.view.fail(w, r, err)
	}
}
