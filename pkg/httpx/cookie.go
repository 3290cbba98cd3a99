package httpx

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"
)

// SetCookie writes an HttpOnly, SameSite=Lax cookie scoped to the whole
// site. maxAge of zero makes it a browser-session cookie.
func SetCookie(w http.ResponseWriter, name, value string, maxAge time.Duration, secure bool) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge.Seconds())
		c.Expires = time.Now().Add(maxAge)
	}
	http.SetCookie(w, c)
}

// ClearCookie expires name immediately.
func ClearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"` // success, info, danger
	Message  string `json:"m"`
}

const flashMaxAge = 5 * time.Minute

// AddFlash appends f to the flashes already queued on this response or
// carried by the request.
func AddFlash(w http.ResponseWriter, r *http.Request, name string, f Flash, secure bool) {
	flashes := append(readFlashes(r, name), f)
	b, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	v := base64.RawURLEncoding.EncodeToString(b)
	SetCookie(w, name, v, flashMaxAge, secure)

	// Make the flash visible to a later AddFlash in the same request.
	existing := r.Cookies()
	r.Header.Del("Cookie")
	for _, c := range existing {
		if c.Name != name {
			r.AddCookie(c)
		}
	}
	r.AddCookie(&http.Cookie{Name: name, Value: v})
}

// PopFlashes returns the queued flashes and clears the cookie.
func PopFlashes(w http.ResponseWriter, r *http.Request, name string) []Flash {
	flashes := readFlashes(r, name)
	if len(flashes) > 0 {
		ClearCookie(w, name)
	}
	return flashes
}

func readFlashes(r *http.Request, name string) []Flash {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var flashes []Flash
	if err := json.Unmarshal(b, &flashes); err != nil {
		return nil
	}
	return flashes
}
