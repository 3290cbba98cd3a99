package httpx

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/milan-stefanik/flyhigh/pkg/slogx"
)

// SessionResolver maps a raw session cookie value to a request context
// carrying the authenticated identity. It returns ok=false for unknown or
// expired sessions; it never fails the request.
type SessionResolver func(ctx context.Context, token string) (context.Context, bool)

// SessionMiddleware reads cookieName and, when it names a live session,
// replaces the request context with the one built by resolve. A stale
// cookie is cleared.
func SessionMiddleware(cookieName string, resolve SessionResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx, ok := resolve(r.Context(), c.Value)
			if !ok {
				slogx.FromContext(r.Context()).Debug("dropping stale session cookie")
				ClearCookie(w, cookieName)
				next.ServeHTTP(w, r)
				return
			}

			if id, ok := UserIDFromContext(ctx); ok {
				ctx = slogx.With(ctx, "user_id", id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SafeNext returns next if it is a local absolute path, otherwise "".
// Protocol-relative and backslash tricks are rejected so the login redirect
// cannot be used as an open redirect.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") {
		return ""
	}
	if strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") || strings.ContainsAny(next, "\r\n") {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	return next
}

// LoginURL builds loginPath?next=<requested path and query>.
func LoginURL(loginPath string, r *http.Request) string {
	next := r.URL.Path
	if r.URL.RawQuery != "" {
		next += "?" + r.URL.RawQuery
	}
	return loginPath + "?" + url.Values{"next": {next}}.Encode()
}
