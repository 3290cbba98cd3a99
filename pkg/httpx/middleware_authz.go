package httpx

import "net/http"

// RequireUser redirects anonymous requests to the login page, carrying the
// requested location in ?next=.
func RequireUser(loginPath string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromContext(r.Context()); !ok {
				http.Redirect(w, r, LoginURL(loginPath, r), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAnonymous bounces signed-in users to home. Used on the login,
// registration and reset pages.
func RequireAnonymous(home string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromContext(r.Context()); ok {
				http.Redirect(w, r, home, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
