package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	"github.com/milan-stefanik/flyhigh/internal/blog/service"
	"github.com/milan-stefanik/flyhigh/pkg/httpx"
)

// UsersHandler serves registration, sign in and out, the account page and
// the password reset flow.
type UsersHandler struct {
	AuthService    *service.AuthService
	AccountService *service.AccountService
	ResetService   *service.ResetService
	SessionTTL     time.Duration
	MaxUploadBytes int64

	view *view
}

func (h *UsersHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	h.view.render(w, r, http.StatusOK, "register", page{Title: "Register"})
}

func (h *UsersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	in := service.RegisterInput{
		FirstName: r.PostFormValue("first_name"),
		LastName:  r.PostFormValue("last_name"),
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		Confirm:   r.PostFormValue("confirm_password"),
	}

	if _, err := h.AuthService.Register(r.Context(), in); err != nil {
		fields, ok := formErrors(err)
		if !ok {
			h.view.serverError(w, r, err)
			return
		}
		h.view.render(w, r, http.StatusBadRequest, "register", page{
			Title: "Register",
			Form:  form{Values: profileValues(in.FirstName, in.LastName, in.Username, in.Email), Errors: fields},
		})
		return
	}

	h.view.flash(w, r, "success", "Account has been created! You can now log in.")
	httpx.SeeOther(w, r, loginPath)
}

func (h *UsersHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.view.render(w, r, http.StatusOK, "login", page{
		Title: "Login",
		Form:  form{Values: map[string]string{"next": httpx.SafeNext(r.URL.Query().Get("next"))}},
	})
}

func (h *UsersHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	next := httpx.SafeNext(r.FormValue("next"))

	login, err := h.AuthService.Login(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		p := page{
			Title: "Login",
			Form:  form{Values: map[string]string{"email": email, "next": next}},
		}
		switch fields, ok := formErrors(err); {
		case ok:
			p.Form.Errors = fields
			h.view.render(w, r, http.StatusBadRequest, "login", p)
		case errors.Is(err, service.ErrInvalidCredentials):
			p.Flashes = []httpx.Flash{{Category: "danger", Message: service.InvalidCredentialsMessage}}
			h.view.render(w, r, http.StatusUnauthorized, "login", p)
		default:
			h.view.serverError(w, r, err)
		}
		return
	}

	ttl := h.SessionTTL
	if ttl <= 0 {
		ttl = service.DefaultSessionTTL
	}
	httpx.SetCookie(w, SessionCookie, login.Token, ttl, h.view.secure)
	h.view.flash(w, r, "success", fmt.Sprintf("You are now logged in as %s", login.User.DisplayName()))

	if next == "" {
		next = homePath
	}
	httpx.SeeOther(w, r, next)
}

func (h *UsersHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if err := h.AuthService.Logout(r.Context(), c.Value); err != nil {
			h.view.serverError(w, r, err)
			return
		}
	}
	httpx.ClearCookie(w, SessionCookie)
	h.view.flash(w, r, "info", "You have been logged out.")
	http.Redirect(w, r, homePath, http.StatusFound)
}

func (h *UsersHandler) HandleAccountForm(w http.ResponseWriter, r *http.Request) {
	u, err := h.account(r)
	if err != nil {
		h.view.fail(w, r, err)
		return
	}
	h.view.render(w, r, http.StatusOK, "account", page{
		Title:   "Account",
		Account: u,
		Form:    form{Values: profileValues(domain.TitleCase(u.FirstName), domain.TitleCase(u.LastName), u.Username, u.Email)},
	})
}

func (h *UsersHandler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.account(r)
	if err != nil {
		h.view.fail(w, r, err)
		return
	}

	cleanup, err := parseMultipart(w, r, h.MaxUploadBytes)
	defer cleanup()
	if errors.Is(err, errBadForm) {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	in := service.AccountInput{
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
		Username:  r.FormValue("username"),
		Email:     r.FormValue("email"),
	}
	if err == nil {
		image, name, closeImage := formFile(r, "picture")
		defer closeImage()
		in.Image, in.ImageName = image, name
		_, err = h.AccountService.Update(ctx, u.ID, in)
	}

	if err != nil {
		fields, ok := formErrors(err)
		if !ok {
			h.view.fail(w, r, err)
			return
		}
		h.view.render(w, r, http.StatusBadRequest, "account", page{
			Title:   "Account",
			Account: u,
			Form:    form{Values: profileValues(in.FirstName, in.LastName, in.Username, in.Email), Errors: fields},
		})
		return
	}

	h.view.flash(w, r, "success", "Your account has been updated!")
	httpx.SeeOther(w, r, "/account")
}

// account loads the signed-in user fresh from the store.
func (h *UsersHandler) account(r *http.Request) (domain.User, error) {
	id, _ := httpx.UserIDFromContext(r.Context())
	return h.AccountService.Get(r.Context(), id)
}

func (h *UsersHandler) HandleResetRequestForm(w http.ResponseWriter, r *http.Request) {
	h.view.render(w, r, http.StatusOK, "reset_request", page{Title: "Reset Password"})
}

func (h *UsersHandler) HandleResetRequest(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	if err := h.ResetService.RequestReset(r.Context(), email); err != nil {
		fields, ok := formErrors(err)
		if !ok {
			h.view.serverError(w, r, err)
			return
		}
		h.view.render(w, r, http.StatusBadRequest, "reset_request", page{
			Title: "Reset Password",
			Form:  form{Values: map[string]string{"email": email}, Errors: fields},
		})
		return
	}

	h.view.flash(w, r, "info", "An e-mail with password reset instructions has been sent.")
	httpx.SeeOther(w, r, loginPath)
}

func (h *UsersHandler) HandleResetPasswordForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.ResetService.Verify(r.Context(), r.PathValue("token")); !ok {
		h.invalidToken(w, r)
		return
	}
	h.view.render(w, r, http.StatusOK, "reset_password", page{Title: "Reset Password"})
}

func (h *UsersHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	_, err := h.ResetService.CompleteReset(r.Context(), r.PathValue("token"),
		r.PostFormValue("password"), r.PostFormValue("confirm_password"))
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalidOrExpired) {
			h.invalidToken(w, r)
			return
		}
		fields, ok := formErrors(err)
		if !ok {
			h.view.serverError(w, r, err)
			return
		}
		h.view.render(w, r, http.StatusBadRequest, "reset_password", page{
			Title: "Reset Password",
			Form:  form{Errors: fields},
		})
		return
	}

	h.view.flash(w, r, "success", "Your password has been updated! You are now able to log in")
	httpx.SeeOther(w, r, loginPath)
}

func (h *UsersHandler) invalidToken(w http.ResponseWriter, r *http.Request) {
	h.view.flash(w, r, "warning", "Token is invalid or expired!")
	http.Redirect(w, r, "/reset_password", http.StatusSeeOther)
}

func profileValues(first, last, username, email string) map[string]string {
	return map[string]string{
		"first_name": first,
		"last_name":  last,
		"username":   username,
		"email":      email,
	}
}
