package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/media"
	"github.com/milan-stefanik/flyhigh/internal/blog/service"
	"github.com/milan-stefanik/flyhigh/internal/blog/store"
	"github.com/milan-stefanik/flyhigh/pkg/httpx"
	"github.com/milan-stefanik/flyhigh/pkg/slogx"
)

const (
	SessionCookie = "flyhigh_session"
	FlashCookie   = "flyhigh_flash"

	loginPath = "/login"
	homePath  = "/"
)

// DefaultMaxUploadBytes caps multipart bodies when Config.MaxUploadBytes is
// unset.
const DefaultMaxUploadBytes = 10 << 20

// Config carries the presentation settings the handlers need.
type Config struct {
	BuildVersion   string
	SecureCookies  bool
	SessionTTL     time.Duration
	MaxUploadBytes int64
}

// Limits are the rate limit profiles per route class.
type Limits struct {
	Strict   httpx.RateLimitConfig
	Moderate httpx.RateLimitConfig
	Lenient  httpx.RateLimitConfig
	Public   httpx.RateLimitConfig
}

// DefaultLimits mirrors the httpx profiles.
func DefaultLimits() Limits {
	return Limits{
		Strict:   httpx.StrictLimit,
		Moderate: httpx.ModerateLimit,
		Lenient:  httpx.LenientLimit,
		Public:   httpx.PublicLimit,
	}
}

// TrustProxyHeaders returns l with proxy header trust set on every profile.
func (l Limits) TrustProxyHeaders(trust bool) Limits {
	l.Strict.TrustProxyHeaders = trust
	l.Moderate.TrustProxyHeaders = trust
	l.Lenient.TrustProxyHeaders = trust
	l.Public.TrustProxyHeaders = trust
	return l
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg       Config
	startTime time.Time
	logger    *slog.Logger
	store     store.Store
	view      *view

	Limits         Limits
	AuthService    *service.AuthService
	PostService    *service.PostService
	AccountService *service.AccountService
	ResetService   *service.ResetService
	UserService    *service.UserService
	Media          *media.Pipeline
}

func NewRouter(cfg Config, st store.Store, logger *slog.Logger) *Router {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}

	r := &Router{
		Mux:       http.NewServeMux(),
		cfg:       cfg,
		startTime: time.Now(),
		logger:    logger,
		store:     st,
		Limits:    DefaultLimits(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.SessionMiddleware(SessionCookie, r.resolveSession),
	}

	return r
}

// ApplyRoutes registers every route. Services must be set before calling it.
func (r *Router) ApplyRoutes() {
	r.view = &view{pages: pages, users: r.UserService, secure: r.cfg.SecureCookies}

	r.registerMain()
	r.registerUsers()
	r.registerPosts()
	r.registerSystem()

	// Everything unmatched gets the 404 page.
	r.Mux.Handle("/", httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.view.notFound(w, req)
	}), httpx.RateLimitByIP(r.Limits.Lenient)))
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// resolveSession turns a session cookie into a signed-in request context.
func (r *Router) resolveSession(ctx context.Context, token string) (context.Context, bool) {
	u, ok := r.AuthService.CurrentUser(ctx, token)
	if !ok {
		return ctx, false
	}
	return withCurrentUser(httpx.WithUserID(ctx, u.ID), u), true
}

// requireUser sends anonymous requests to the login page with a flash
// explaining why.
func (r *Router) requireUser() httpx.Middleware {
	gate := httpx.RequireUser(loginPath)
	return func(next http.Handler) http.Handler {
		gated := gate(next)
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if _, ok := httpx.UserIDFromContext(req.Context()); !ok {
				r.view.flash(w, req, "info", "Please login to access this page.")
			}
			gated.ServeHTTP(w, req)
		})
	}
}

func (r *Router) registerMain() {
	h := &MainHandler{PostService: r.PostService, Media: r.Media, view: r.view}

	lenient := httpx.RateLimitByIP(r.Limits.Lenient)
	r.Mux.Handle("GET /{$}", httpx.Chain(http.HandlerFunc(h.HandleIndex), lenient))
	r.Mux.Handle("GET /index", httpx.Chain(http.HandlerFunc(h.HandleIndex), lenient))
	r.Mux.Handle("GET /user/{username}", httpx.Chain(http.HandlerFunc(h.HandleUserPosts), lenient))

	// Images are requested once per post on every listing page.
	r.Mux.Handle("GET /file/{filename}",
		httpx.Chain(http.HandlerFunc(h.HandleFile),
			httpx.RateLimitByIP(r.Limits.Public),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{
		AuthService:    r.AuthService,
		AccountService: r.AccountService,
		ResetService:   r.ResetService,
		SessionTTL:     r.cfg.SessionTTL,
		MaxUploadBytes: r.cfg.MaxUploadBytes,
		view:           r.view,
	}

	anonymous := httpx.RequireAnonymous(homePath)
	lenient := httpx.RateLimitByIP(r.Limits.Lenient)
	strict := httpx.RateLimitByIP(r.Limits.Strict)

	r.Mux.Handle("GET /register", httpx.Chain(http.HandlerFunc(h.HandleRegisterForm), anonymous, lenient))
	r.Mux.Handle("POST /register", httpx.Chain(http.HandlerFunc(h.HandleRegister), anonymous, strict))

	// Login attempts are charged to address and email so one noisy client
	// cannot lock everyone else out of an account.
	r.Mux.Handle("GET /login", httpx.Chain(http.HandlerFunc(h.HandleLoginForm), anonymous, lenient))
	r.Mux.Handle("POST /login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			anonymous,
			httpx.RateLimitByIPAndFormField(r.Limits.Strict, "email"),
		),
	)

	r.Mux.Handle("GET /logout", httpx.Chain(http.HandlerFunc(h.HandleLogout), lenient))

	signedIn := r.requireUser()
	r.Mux.Handle("GET /account", httpx.Chain(http.HandlerFunc(h.HandleAccountForm), signedIn, httpx.RateLimitByUser(r.Limits.Lenient)))
	r.Mux.Handle("POST /account", httpx.Chain(http.HandlerFunc(h.HandleAccount), signedIn, httpx.RateLimitByUser(r.Limits.Moderate)))

	r.Mux.Handle("GET /reset_password", httpx.Chain(http.HandlerFunc(h.HandleResetRequestForm), anonymous, lenient))
	r.Mux.Handle("POST /reset_password", httpx.Chain(http.HandlerFunc(h.HandleResetRequest), anonymous, strict))
	r.Mux.Handle("GET /reset_password/{token}", httpx.Chain(http.HandlerFunc(h.HandleResetPasswordForm), anonymous, lenient))
	r.Mux.Handle("POST /reset_password/{token}", httpx.Chain(http.HandlerFunc(h.HandleResetPassword), anonymous, strict))
}

func (r *Router) registerPosts() {
	h := &PostsHandler{
		PostService:    r.PostService,
		MaxUploadBytes: r.cfg.MaxUploadBytes,
		view:           r.view,
	}

	signedIn := r.requireUser()
	reads := httpx.RateLimitByUser(r.Limits.Lenient)
	writes := httpx.RateLimitByUser(r.Limits.Moderate)

	r.Mux.Handle("GET /post/new", httpx.Chain(http.HandlerFunc(h.HandleNewForm), signedIn, reads))
	r.Mux.Handle("POST /post/new", httpx.Chain(http.HandlerFunc(h.HandleNew), signedIn, writes))

	r.Mux.Handle("GET /post/{id}", httpx.Chain(http.HandlerFunc(h.HandleShow), httpx.RateLimitByIP(r.Limits.Lenient)))

	r.Mux.Handle("GET /post/{id}/update", httpx.Chain(http.HandlerFunc(h.HandleUpdateForm), signedIn, reads))
	r.Mux.Handle("POST /post/{id}/update", httpx.Chain(http.HandlerFunc(h.HandleUpdate), signedIn, writes))
	r.Mux.Handle("POST /post/{id}/delete", httpx.Chain(http.HandlerFunc(h.HandleDelete), signedIn, writes))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.cfg.BuildVersion),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.cfg.BuildVersion, r.store),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
}
