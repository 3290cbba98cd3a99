package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	"github.com/milan-stefanik/flyhigh/internal/blog/media"
	"github.com/milan-stefanik/flyhigh/internal/blog/store"
	"github.com/milan-stefanik/flyhigh/internal/blog/store/drivers/sqlite"
	"github.com/milan-stefanik/flyhigh/pkg/cryptox"
	"github.com/milan-stefanik/flyhigh/pkg/jwtx"
	"github.com/milan-stefanik/flyhigh/pkg/mailx"
	"github.com/milan-stefanik/flyhigh/pkg/slogx"
	"github.com/stretchr/testify/require"
)

// fixture wires every service over one in-memory sqlite database.
type fixture struct {
	store  store.Store
	media  *media.Pipeline
	outbox *mailx.Outbox
	clock  time.Time

	auth    *AuthService
	posts   *PostService
	account *AccountService
	reset   *ResetService
	users   *UserService
}

// cheapHasher keeps argon2 fast enough for tests.
func cheapHasher() *cryptox.Hasher {
	return &cryptox.Hasher{
		Params: cryptox.Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		Pepper: "test-pepper",
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations(ctx))

	f := &fixture{
		store:  s,
		outbox: &mailx.Outbox{},
		clock:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }

	f.media = media.NewPipeline(store.NewBlobStoreAdapter(s), t.TempDir(), slogx.Discard())

	signer, err := jwtx.NewHS256([]byte("test-secret"), "flyhigh")
	require.NoError(t, err)
	signer.Now = now

	hasher := cheapHasher()
	f.auth = &AuthService{Store: s, Hasher: hasher, SessionTTL: time.Hour, Now: now}
	f.posts = &PostService{Store: s, Media: f.media, Now: now}
	f.account = &AccountService{Store: s, Media: f.media}
	f.reset = &ResetService{Store: s, Hasher: hasher, Signer: signer, Mailer: f.outbox, BaseURL: "http://blog.test/"}
	f.users = &UserService{Store: s}
	return f
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func (f *fixture) register(t *testing.T, username, email string) domain.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Username:  username,
		Email:     email,
		Password:  "s3cret-pass",
		Confirm:   "s3cret-pass",
	})
	require.NoError(t, err)
	return u
}

func pngUpload(t *testing.T, w, h int) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return bytes.NewReader(buf.Bytes())
}

func (f *fixture) blobExists(t *testing.T, ref string) bool {
	t.Helper()
	_, err := f.media.Open(context.Background(), ref)
	if errors.Is(err, media.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}
