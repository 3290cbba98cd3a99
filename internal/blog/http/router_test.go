package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	bloghttp "github.com/milan-stefanik/flyhigh/internal/blog/http"
	"github.com/milan-stefanik/flyhigh/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestPostLifecycle(t *testing.T) {
	s := newSite(t)
	ada := s.browser(t)
	anon := s.browser(t)

	ada.register("ada", "ada@example.com")
	ada.login("ada@example.com")
	id, file := ada.newPost("First flight")

	// Reading is public.
	res := anon.get("/post/" + id)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body, "First flight")
	require.NotContains(t, res.Body, "/delete")

	img := anon.get("/file/" + file)
	require.Equal(t, http.StatusOK, img.Code)
	require.Equal(t, "image/png", img.Header.Get("Content-Type"))

	// Anonymous delete is bounced to the login page.
	res = anon.post("/post/"+id+"/delete", nil)
	require.Equal(t, http.StatusFound, res.Code)
	require.Equal(t, "/login?next="+url.QueryEscape("/post/"+id+"/delete"), res.Location)
	require.Equal(t, http.StatusOK, anon.get("/post/"+id).Code)

	// The author sees the controls and can delete.
	res = ada.get("/post/" + id)
	require.Contains(t, res.Body, "/post/"+id+"/delete")

	res = ada.post("/post/"+id+"/delete", nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/", res.Location)
	require.Contains(t, ada.get("/").Body, "Post has been deleted.")

	require.Equal(t, http.StatusNotFound, anon.get("/post/"+id).Code)
	require.Equal(t, http.StatusNotFound, anon.get("/file/"+file).Code)
}

func TestOwnershipChecks(t *testing.T) {
	s := newSite(t)
	ada := s.browser(t)
	bob := s.browser(t)

	ada.register("ada", "ada@example.com")
	ada.login("ada@example.com")
	id, _ := ada.newPost("Mine")

	bob.register("bob", "bob@example.com")
	bob.login("bob@example.com")

	require.Equal(t, http.StatusForbidden, bob.get("/post/"+id+"/update").Code)
	res := bob.postMultipart("/post/"+id+"/update", map[string]string{"title": "Hijacked", "content": "x"}, "", nil)
	require.Equal(t, http.StatusForbidden, res.Code)
	require.Equal(t, http.StatusForbidden, bob.post("/post/"+id+"/delete", nil).Code)
	require.Contains(t, bob.get("/post/"+id).Body, "Mine")

	missing := "01HZZZZZZZZZZZZZZZZZZZZZZZ"
	require.Equal(t, http.StatusNotFound, bob.get("/post/"+missing+"/update").Code)
	require.Equal(t, http.StatusNotFound, bob.post("/post/"+missing+"/delete", nil).Code)
	require.Equal(t, http.StatusNotFound, bob.get("/post/not-an-id").Code)

	res = ada.postMultipart("/post/"+id+"/update", map[string]string{"title": "Mine, edited", "content": "y"}, "", nil)
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/post/"+id, res.Location)
	require.Contains(t, ada.get("/post/"+id).Body, "Mine, edited")
}

func TestPostFormValidation(t *testing.T) {
	s := newSite(t)
	ada := s.browser(t)
	ada.register("ada", "ada@example.com")
	ada.login("ada@example.com")

	res := ada.postMultipart("/post/new", map[string]string{"title": "No picture", "content": "x"}, "", nil)
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body, "This field is required.")
	require.Contains(t, res.Body, `value="No picture"`)

	res = ada.postMultipart("/post/new", map[string]string{"title": "Gif", "content": "x"}, "anim.gif", pngBytes(t))
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body, "File does not have an approved extension: jpg, png, jpeg")

	res = ada.postMultipart("/post/new", map[string]string{"title": "Junk", "content": "x"}, "junk.png", []byte("not an image"))
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogin(t *testing.T) {
	s := newSite(t)
	b := s.browser(t)
	b.register("ada", "ada@example.com")

	t.Run("flash after registration shows once", func(t *testing.T) {
		require.Contains(t, b.get("/login").Body, "Account has been created! You can now log in.")
		require.NotContains(t, b.get("/login").Body, "Account has been created!")
	})

	t.Run("failures are generic", func(t *testing.T) {
		unknown := b.post("/login", url.Values{"email": {"nobody@example.com"}, "password": {"s3cret-pass"}})
		wrong := b.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"nope"}})
		require.Equal(t, http.StatusUnauthorized, unknown.Code)
		require.Equal(t, http.StatusUnauthorized, wrong.Code)
		require.Contains(t, unknown.Body, "Login Unsuccessful. Please check email and password.")
		require.Contains(t, wrong.Body, "Login Unsuccessful. Please check email and password.")
	})

	t.Run("gated page round trip through next", func(t *testing.T) {
		res := b.get("/account")
		require.Equal(t, http.StatusFound, res.Code)
		require.Equal(t, "/login?next=%2Faccount", res.Location)

		form := b.get("/login?next=%2Faccount")
		require.Contains(t, form.Body, "Please login to access this page.")
		require.Contains(t, form.Body, `name="next" value="/account"`)

		res = b.post("/login?next=%2Faccount", url.Values{"email": {"ada@example.com"}, "password": {"s3cret-pass"}})
		require.Equal(t, http.StatusSeeOther, res.Code)
		require.Equal(t, "/account", res.Location)

		account := b.get("/account")
		require.Equal(t, http.StatusOK, account.Code)
		require.Contains(t, account.Body, "You are now logged in as Ada Lovelace")
	})

	t.Run("signed in users skip anonymous pages", func(t *testing.T) {
		for _, path := range []string{"/login", "/register", "/reset_password"} {
			res := b.get(path)
			require.Equal(t, http.StatusFound, res.Code, path)
			require.Equal(t, "/", res.Location, path)
		}
	})

	t.Run("logout", func(t *testing.T) {
		res := b.get("/logout")
		require.Equal(t, http.StatusFound, res.Code)
		require.Contains(t, b.get("/").Body, "You have been logged out.")
		require.Equal(t, http.StatusFound, b.get("/account").Code)

		require.Equal(t, http.StatusFound, b.get("/logout").Code)
	})

	t.Run("open redirects refused", func(t *testing.T) {
		res := b.post("/login", url.Values{
			"email":    {"ada@example.com"},
			"password": {"s3cret-pass"},
			"next":     {"//evil.example/"},
		})
		require.Equal(t, http.StatusSeeOther, res.Code)
		require.Equal(t, "/", res.Location)
	})
}

func TestRegisterDuplicate(t *testing.T) {
	s := newSite(t)
	b := s.browser(t)
	b.register("ada", "ada@example.com")

	res := b.post("/register", url.Values{
		"first_name":       {"Other"},
		"last_name":        {"Person"},
		"username":         {"other"},
		"email":            {"ADA@example.com"},
		"password":         {"pw"},
		"confirm_password": {"pw"},
	})
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body, "already in use")
	require.NotContains(t, res.Body, `value="pw"`)
}

func TestAccountUpdate(t *testing.T) {
	s := newSite(t)
	b := s.browser(t)
	b.register("ada", "ada@example.com")
	b.login("ada@example.com")

	res := b.postMultipart("/account", map[string]string{
		"first_name": "Augusta",
		"last_name":  "King",
		"username":   "countess",
		"email":      "ada@example.com",
	}, "me.png", pngBytes(t))
	require.Equal(t, http.StatusSeeOther, res.Code, res.Body)
	require.Equal(t, "/account", res.Location)

	page := b.get("/account")
	require.Contains(t, page.Body, "Your account has been updated!")
	require.Contains(t, page.Body, "Augusta King")
	require.Regexp(t, `src="/file/[0-9a-f]{16}\.png"`, page.Body)

	// The sidebar lists authors for every visitor.
	require.Contains(t, s.browser(t).get("/").Body, `href="/user/countess"`)
}

func TestUserPosts(t *testing.T) {
	s := newSite(t)
	b := s.browser(t)
	b.register("ada", "ada@example.com")
	b.login("ada@example.com")
	for _, title := range []string{"one", "two", "three", "four", "five", "six"} {
		b.newPost(title)
	}

	res := b.get("/user/ada")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body, "Posts by Ada Lovelace (6)")
	require.Contains(t, res.Body, "six")
	require.NotContains(t, res.Body, ">one<")
	require.Contains(t, res.Body, `href="/user/ada?page=2"`)

	res = b.get("/user/ada?page=2")
	require.Contains(t, res.Body, ">one<")

	require.Equal(t, http.StatusNotFound, b.get("/user/nobody").Code)
}

func TestPasswordReset(t *testing.T) {
	s := newSite(t)
	b := s.browser(t)
	b.register("ada", "ada@example.com")

	res := b.post("/reset_password", url.Values{"email": {"ada@example.com"}})
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/login", res.Location)

	msg, ok := s.outbox.Last()
	require.True(t, ok)
	const prefix = "http://blog.test/reset_password/"
	i := strings.Index(msg.Body, prefix)
	require.GreaterOrEqual(t, i, 0)
	token, _, _ := strings.Cut(msg.Body[i+len(prefix):], "\n")

	require.Equal(t, http.StatusOK, b.get("/reset_password/"+token).Code)

	res = b.post("/reset_password/"+token, url.Values{"password": {"brand-new"}, "confirm_password": {"brand-new"}})
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/login", res.Location)
	require.Contains(t, b.get("/login").Body, "Your password has been updated! You are now able to log in")

	res = b.get("/reset_password/" + token)
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/reset_password", res.Location)
	require.Contains(t, b.get("/reset_password").Body, "Token is invalid or expired!")

	res = b.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"brand-new"}})
	require.Equal(t, http.StatusSeeOther, res.Code)

	// Unknown addresses get the same answer and no mail.
	other := s.browser(t)
	before := len(s.outbox.Messages())
	res = other.post("/reset_password", url.Values{"email": {"nobody@example.com"}})
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Len(t, s.outbox.Messages(), before)
}

func TestHealthAndMisc(t *testing.T) {
	s := newSite(t)
	b := s.browser(t)

	for _, path := range []string{"/livez", "/readyz"} {
		res := b.get(path)
		require.Equal(t, http.StatusOK, res.Code, path)
		require.Equal(t, "application/json", res.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.Unmarshal([]byte(res.Body), &body))
		require.Equal(t, "ok", body["status"])
	}

	res := b.get("/no/such/page")
	require.Equal(t, http.StatusNotFound, res.Code)
	require.Contains(t, res.Body, "Page Not Found")

	require.NoError(t, s.store.Blobs().PutBlob(context.Background(), domain.Blob{
		Filename: "backups/dump.sql", ContentType: "text/plain", Size: 6, Data: []byte("secret"), CreatedAt: time.Now().UTC(),
	}))
	res = b.get("/file/backups%2Fdump.sql")
	require.Equal(t, http.StatusNotFound, res.Code)
	require.NotContains(t, res.Body, "secret")

	res = b.get("/index?page=abc")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body, "No posts yet.")
	require.NotEmpty(t, res.Header.Get("X-Request-ID"))
}

func TestLimitsTrustProxyHeaders(t *testing.T) {
	def := bloghttp.DefaultLimits()
	require.False(t, def.Strict.TrustProxyHeaders)

	l := def.TrustProxyHeaders(true)
	for _, cfg := range []httpx.RateLimitConfig{l.Strict, l.Moderate, l.Lenient, l.Public} {
		require.True(t, cfg.TrustProxyHeaders)
	}
	require.Equal(t, def.Strict.RequestsPerWindow, l.Strict.RequestsPerWindow)
}
