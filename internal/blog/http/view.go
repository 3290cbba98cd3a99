package http

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	"github.com/milan-stefanik/flyhigh/internal/blog/media"
	"github.com/milan-stefanik/flyhigh/internal/blog/service"
	"github.com/milan-stefanik/flyhigh/pkg/httpx"
	"github.com/milan-stefanik/flyhigh/pkg/slogx"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"title": domain.TitleCase,
	"date": func(t time.Time) string {
		return t.Format("2006-01-02")
	},
	"fileURL": func(name string) string {
		return "/file/" + url.PathEscape(name)
	},
	"pageURL": func(base string, n int) string {
		return base + "?page=" + strconv.Itoa(n)
	},
}

var pages = mustParsePages(templateFS)

// mustParsePages parses every page template together with the layout.
func mustParsePages(fsys fs.FS) map[string]*template.Template {
	names, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		panic(err)
	}

	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" {
			continue
		}
		t := template.Must(template.New(base).Funcs(funcs).ParseFS(fsys, "templates/layout.html", name))
		out[base[:len(base)-len(".html")]] = t
	}
	return out
}

// form is the state of a submitted form: the values to re-fill and the
// per-field messages.
type form struct {
	Values map[string]string
	Errors map[string]string
}

func (f form) Value(field string) string { return f.Values[field] }
func (f form) Error(field string) string { return f.Errors[field] }

// page is everything a template can see. Handlers fill the fields their
// view uses.
type page struct {
	Title   string
	User    *domain.User
	Authors []domain.Author
	Flashes []httpx.Flash
	Form    form

	Posts   domain.Page[domain.PostView]
	PageURL string
	Post    domain.PostView
	Author  domain.Author
	Account domain.User
	Legend  string
	Status  int
	Message string
}

// IsAuthor reports whether the signed-in user wrote the post on show.
func (p page) IsAuthor() bool {
	return p.User != nil && p.Post.AuthorID == p.User.ID
}

type view struct {
	pages  map[string]*template.Template
	users  *service.UserService
	secure bool
}

// render executes the named page inside the layout. Rendering happens into
// a buffer so a template failure can still become a clean 500.
func (v *view) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	t, ok := v.pages[name]
	if !ok {
		log.Error("unknown template", slog.String("template", name))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if u, ok := currentUser(ctx); ok {
		p.User = &u
	}
	if v.users != nil {
		authors, err := v.users.Authors(ctx)
		if err != nil {
			log.Error("failed to load authors", slog.Any("error", err))
		}
		p.Authors = authors
	}
	p.Flashes = append(httpx.PopFlashes(w, r, FlashCookie), p.Flashes...)

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		log.Error("failed to render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (v *view) flash(w http.ResponseWriter, r *http.Request, category, message string) {
	httpx.AddFlash(w, r, FlashCookie, httpx.Flash{Category: category, Message: message}, v.secure)
}

func (v *view) errorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	v.render(w, r, status, "error", page{
		Title:   strconv.Itoa(status) + " error",
		Status:  status,
		Message: message,
	})
}

func (v *view) notFound(w http.ResponseWriter, r *http.Request) {
	v.errorPage(w, r, http.StatusNotFound, "Oops. Page Not Found")
}

func (v *view) forbidden(w http.ResponseWriter, r *http.Request) {
	v.errorPage(w, r, http.StatusForbidden, "You don't have permission to do that")
}

func (v *view) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slogx.FromContext(r.Context()).Error("request failed", slog.Any("error", err))
	v.errorPage(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}

// fail renders the page matching a service error that is not a form error.
func (v *view) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, media.ErrNotFound):
		v.notFound(w, r)
	case errors.Is(err, service.ErrForbidden):
		v.forbidden(w, r)
	default:
		v.serverError(w, r, err)
	}
}

// formErrors maps errors the user can fix by editing the form to field
// messages. The "form" key holds messages not tied to one field.
func formErrors(err error) (map[string]string, bool) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Fields, true
	case errors.Is(err, service.ErrDuplicateUser):
		return map[string]string{"form": "That username or email is already in use. Please choose a different one."}, true
	case errors.Is(err, media.ErrUnsupportedMediaType):
		return map[string]string{"picture": "The file could not be read as a jpg or png image."}, true
	case errors.Is(err, errUploadTooLarge):
		return map[string]string{"picture": "The file is too large."}, true
	}
	return nil, false
}

// pageParam reads ?page=, defaulting to 1 on anything unusable.
func pageParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
