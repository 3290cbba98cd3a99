package sqldb

import (
	"context"
	"database/sql"

	"github.com/milan-stefanik/flyhigh/internal/blog/store"
)

type txStore struct {
	tx *sql.Tx
	q  queries
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the owner of the pool closes it.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(context.Context) error { return nil }

func (t *txStore) ApplyMigrations(context.Context) error { return nil }

func (t *txStore) Tx(context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(context.Context, func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users       { return &usersRepo{t.q} }
func (t *txStore) Posts() store.Posts       { return &postsRepo{t.q} }
func (t *txStore) Blobs() store.Blobs       { return &blobsRepo{t.q} }
func (t *txStore) Sessions() store.Sessions { return &sessionsRepo{t.q} }
