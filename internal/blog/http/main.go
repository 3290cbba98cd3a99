package http

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/milan-stefanik/flyhigh/internal/blog/media"
	"github.com/milan-stefanik/flyhigh/internal/blog/service"
	"github.com/milan-stefanik/flyhigh/pkg/slogx"
)

// MainHandler serves the post listings and stored images.
type MainHandler struct {
	PostService *service.PostService
	Media       *media.Pipeline

	view *view
}

// HandleIndex lists all posts, newest first.
func (h *MainHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	posts, err := h.PostService.List(r.Context(), pageParam(r))
	if err != nil {
		h.view.fail(w, r, err)
		return
	}
	h.view.render(w, r, http.StatusOK, "home", page{Title: "Home", Posts: posts, PageURL: "/"})
}

// HandleUserPosts lists the posts of one author.
func (h *MainHandler) HandleUserPosts(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	author, posts, err := h.PostService.ListByAuthor(r.Context(), username, pageParam(r))
	if err != nil {
		h.view.fail(w, r, err)
		return
	}
	h.view.render(w, r, http.StatusOK, "home", page{
		Title:   "User Posts",
		Author:  author,
		Posts:   posts,
		PageURL: "/user/" + username,
	})
}

// HandleFile streams a stored image with its recorded content type.
func (h *MainHandler) HandleFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")

	blob, err := h.Media.Open(r.Context(), name)
	if err != nil {
		if !errors.Is(err, media.ErrNotFound) {
			slogx.FromContext(r.Context()).Error("failed to open blob", slog.String("filename", name), slog.Any("error", err))
		}
		h.view.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, name, blob.CreatedAt, bytes.NewReader(blob.Data))
}
