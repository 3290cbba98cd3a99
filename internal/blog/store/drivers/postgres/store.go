// Package postgres runs the store against PostgreSQL through pgx's
// database/sql adapter. Schema changes are goose migrations embedded in the
// binary.
package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/milan-stefanik/flyhigh/internal/blog/store/drivers/sqldb"
)

const uniqueViolation = "23505"

// Dialect is the postgres flavour of the shared queries.
var Dialect = sqldb.Dialect{
	Name:              "postgres",
	Numbered:          true,
	IsUniqueViolation: isUniqueViolation,
}

type Store struct {
	*sqldb.Store
}

// NewStore opens a pool for dsn. The connection is not checked until first
// use; call Ping to fail fast.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return New(db), nil
}

// New wraps an already open pool.
func New(db *sql.DB) *Store {
	return &Store{Store: sqldb.New(db, Dialect)}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
