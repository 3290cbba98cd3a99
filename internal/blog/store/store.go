package store

import (
	"context"
	"errors"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Drivers (sqlite, postgres)
// implement it and hand out one sub-repository per table.
type Store interface {
	Users() Users
	Posts() Posts
	Blobs() Blobs
	Sessions() Sessions

	// ApplyMigrations brings the schema up to date.
	ApplyMigrations(ctx context.Context) error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Nested transactions are not supported.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail matches the stored (lower-cased) email exactly; callers
	// normalise before calling.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// ListUsers returns every user ordered by first name, then username.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// CreateUser inserts u. Returns ErrAlreadyExists when the username or
	// email is taken; the unique indexes decide, not a prior lookup.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateProfile rewrites names, username, email and image file and
	// bumps updated_at. Returns ErrAlreadyExists on a uniqueness clash.
	UpdateProfile(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID, hash string) error

	// ListImageFiles returns every non-empty profile image filename.
	ListImageFiles(ctx context.Context) ([]string, error)
}

type Posts interface {
	CreatePost(ctx context.Context, p domain.Post) error
	GetPostByID(ctx context.Context, id string) (domain.Post, error)

	// ListPosts returns posts newest first.
	ListPosts(ctx context.Context, limit, offset int) ([]domain.Post, error)
	CountPosts(ctx context.Context) (int, error)

	// ListPostsByAuthor returns one author's posts newest first.
	ListPostsByAuthor(ctx context.Context, authorID string, limit, offset int) ([]domain.Post, error)
	CountPostsByAuthor(ctx context.Context, authorID string) (int, error)

	// UpdatePost rewrites title, content and image file and bumps updated_at.
	UpdatePost(ctx context.Context, p domain.Post) error

	DeletePost(ctx context.Context, id string) error

	// ListImageFiles returns every non-empty post image filename.
	ListImageFiles(ctx context.Context) ([]string, error)
}

// Blobs holds image bytes when the blob backend is the database.
type Blobs interface {
	// PutBlob inserts b. Returns ErrAlreadyExists if the filename is taken.
	PutBlob(ctx context.Context, b domain.Blob) error

	GetBlob(ctx context.Context, filename string) (domain.Blob, error)

	// DeleteBlob returns ErrNotFound when nothing was deleted.
	DeleteBlob(ctx context.Context, filename string) error

	// ListBlobs returns metadata for every blob, oldest first.
	ListBlobs(ctx context.Context) ([]domain.BlobInfo, error)
}

type Sessions interface {
	CreateSession(ctx context.Context, s domain.Session) error
	GetSessionByTokenHash(ctx context.Context, hash string) (domain.Session, error)

	// DeleteSessionByTokenHash is a no-op when the session is gone.
	DeleteSessionByTokenHash(ctx context.Context, hash string) error

	// DeleteUserSessions revokes every session of a user.
	DeleteUserSessions(ctx context.Context, userID string) error

	// DeleteExpiredSessions removes sessions expired at now and reports how
	// many went.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}
