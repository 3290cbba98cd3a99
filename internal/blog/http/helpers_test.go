package http_test

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	bloghttp "github.com/milan-stefanik/flyhigh/internal/blog/http"
	"github.com/milan-stefanik/flyhigh/internal/blog/media"
	"github.com/milan-stefanik/flyhigh/internal/blog/service"
	"github.com/milan-stefanik/flyhigh/internal/blog/store"
	"github.com/milan-stefanik/flyhigh/internal/blog/store/drivers/sqlite"
	"github.com/milan-stefanik/flyhigh/pkg/cryptox"
	"github.com/milan-stefanik/flyhigh/pkg/httpx"
	"github.com/milan-stefanik/flyhigh/pkg/jwtx"
	"github.com/milan-stefanik/flyhigh/pkg/mailx"
	"github.com/milan-stefanik/flyhigh/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type site struct {
	srv    *httptest.Server
	store  store.Store
	outbox *mailx.Outbox
}

func newSite(t *testing.T) *site {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations(ctx))

	logger := slogx.Discard()
	pipeline := media.NewPipeline(store.NewBlobStoreAdapter(st), t.TempDir(), logger)
	hasher := &cryptox.Hasher{
		Params: cryptox.Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		Pepper: "test-pepper",
	}
	signer, err := jwtx.NewHS256([]byte("test-secret"), "flyhigh")
	require.NoError(t, err)
	outbox := &mailx.Outbox{}

	router := bloghttp.NewRouter(bloghttp.Config{BuildVersion: "test"}, st, logger)
	generous := httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}
	router.Limits = bloghttp.Limits{Strict: generous, Moderate: generous, Lenient: generous, Public: generous}
	router.AuthService = &service.AuthService{Store: st, Hasher: hasher}
	router.PostService = &service.PostService{Store: st, Media: pipeline}
	router.AccountService = &service.AccountService{Store: st, Media: pipeline}
	router.UserService = &service.UserService{Store: st}
	router.Media = pipeline
	router.ResetService = &service.ResetService{
		Store:   st,
		Hasher:  hasher,
		Signer:  signer,
		Mailer:  outbox,
		BaseURL: "http://blog.test",
	}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &site{srv: srv, store: st, outbox: outbox}
}

// browser is a client with its own cookie jar that does not follow
// redirects, so tests can assert on them.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (s *site) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: s.srv.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	Code     int
	Location string
	Body     string
	Header   http.Header
}

func (b *browser) do(req *http.Request) response {
	b.t.Helper()
	res, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(b.t, err)
	return response{
		Code:     res.StatusCode,
		Location: res.Header.Get("Location"),
		Body:     string(body),
		Header:   res.Header,
	}
}

func (b *browser) get(path string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// postMultipart submits fields plus an optional picture upload.
func (b *browser) postMultipart(path string, fields map[string]string, filename string, file []byte) response {
	b.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(b.t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("picture", filename)
		require.NoError(b.t, err)
		_, err = fw.Write(file)
		require.NoError(b.t, err)
	}
	require.NoError(b.t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, b.base+path, &buf)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.do(req)
}

func (b *browser) register(username, email string) {
	b.t.Helper()
	res := b.post("/register", url.Values{
		"first_name":       {"Ada"},
		"last_name":        {"Lovelace"},
		"username":         {username},
		"email":            {email},
		"password":         {"s3cret-pass"},
		"confirm_password": {"s3cret-pass"},
	})
	require.Equal(b.t, http.StatusSeeOther, res.Code, res.Body)
	require.Equal(b.t, "/login", res.Location)
}

func (b *browser) login(email string) {
	b.t.Helper()
	res := b.post("/login", url.Values{"email": {email}, "password": {"s3cret-pass"}})
	require.Equal(b.t, http.StatusSeeOther, res.Code, res.Body)
	require.Equal(b.t, "/", res.Location)
}

// newPost creates a post and returns its id and picture filename.
func (b *browser) newPost(title string) (string, string) {
	b.t.Helper()
	res := b.postMultipart("/post/new", map[string]string{"title": title, "content": "Body of " + title}, "pic.png", pngBytes(b.t))
	require.Equal(b.t, http.StatusSeeOther, res.Code, res.Body)

	home := b.get("/")
	require.Equal(b.t, http.StatusOK, home.Code)
	id := postIDRE.FindStringSubmatch(home.Body)
	require.NotNil(b.t, id, "no post link on home page")
	file := fileRE.FindStringSubmatch(home.Body)
	require.NotNil(b.t, file, "no picture on home page")
	return id[1], file[1]
}

var (
	postIDRE = regexp.MustCompile(`href="/post/([0-9A-Z]{26})"`)
	fileRE   = regexp.MustCompile(`src="/file/([0-9a-f]{16}\.(?:png|jpe?g))"`)
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 40, 20))))
	return buf.Bytes()
}
