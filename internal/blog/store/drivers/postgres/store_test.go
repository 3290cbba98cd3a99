package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	"github.com/milan-stefanik/flyhigh/internal/blog/store"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	require.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, isUniqueViolation(errors.New("23505")))
}

func TestCreateUserDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`(?s)^INSERT\s+INTO\s+users\s*\(.+\)\s*VALUES\s*\(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9\)$`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	now := time.Now()
	err := s.Users().CreateUser(context.Background(), domain.User{ID: "u1", Email: "a@b.c", CreatedAt: now, UpdatedAt: now})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmail(t *testing.T) {
	s, mock := newMockStore(t)
	q := `(?s)^SELECT\s+id, first_name, .+ FROM users WHERE email = \$1$`

	t.Run("found", func(t *testing.T) {
		created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
		rows := sqlmock.NewRows([]string{"id", "first_name", "last_name", "username", "email", "password_hash", "image_file", "created_at", "updated_at"}).
			AddRow("u1", "ada", "lovelace", "ada", "ada@example.com", "hash", nil, created, created)
		mock.ExpectQuery(q).WithArgs("ada@example.com").WillReturnRows(rows)

		u, err := s.Users().GetUserByEmail(context.Background(), "ada@example.com")
		require.NoError(t, err)
		require.Equal(t, "u1", u.ID)
		require.Empty(t, u.ImageFile)
		require.Equal(t, time.UTC, u.CreatedAt.Location())
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery(q).WithArgs("nobody@example.com").WillReturnError(sql.ErrNoRows)

		_, err := s.Users().GetUserByEmail(context.Background(), "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPostsPlaceholders(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`)).
		WithArgs(5, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "content", "author_id", "image_file", "created_at", "updated_at"}))

	posts, err := s.Posts().ListPosts(context.Background(), 5, 10)
	require.NoError(t, err)
	require.Empty(t, posts)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteBlobNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM blobs WHERE filename = $1`)).
		WithArgs("gone.png").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Blobs().DeleteBlob(context.Background(), "gone.png")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpiredSessions(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE expires_at <= $1`)).
		WithArgs(now.UTC()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := s.Sessions().DeleteExpiredSessions(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestWithTxCommitAndRollback(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.Sessions().DeleteUserSessions(context.Background(), "u1")
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = s.WithTx(context.Background(), func(store.Tx) error { return boom })
	require.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMigrations(t *testing.T) {
	s, _ := newMockStore(t)

	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	t.Run("runs from embedded root", func(t *testing.T) {
		gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			if dir != "." {
				return errors.New("unexpected dir")
			}
			return nil
		}
		require.NoError(t, s.ApplyMigrations(context.Background()))
	})

	t.Run("propagates errors", func(t *testing.T) {
		gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
			return errors.New("boom")
		}
		require.EqualError(t, s.ApplyMigrations(context.Background()), "boom")
	})
}
