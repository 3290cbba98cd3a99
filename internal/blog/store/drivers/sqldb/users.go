package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
)

type usersRepo struct{ queries }

const userColumns = `id, first_name, last_name, username, email, password_hash, image_file, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	var image sql.NullString
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email, &u.PasswordHash, &image, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, err
	}
	u.ImageFile = mapNullString(image)
	u.CreatedAt = utc(u.CreatedAt)
	u.UpdatedAt = utc(u.UpdatedAt)
	return u, nil
}

func (r *usersRepo) getOne(ctx context.Context, where string, arg any) (domain.User, error) {
	u, err := scanUser(r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = ?`, arg))
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getOne(ctx, "id", id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getOne(ctx, "email", email)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getOne(ctx, "username", username)
}

func (r *usersRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.query(ctx, `SELECT `+userColumns+` FROM users ORDER BY first_name, username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.FirstName, u.LastName, u.Username, u.Email, u.PasswordHash,
		mapStringNull(u.ImageFile), u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return r.mapWriteErr(err)
}

func (r *usersRepo) UpdateProfile(ctx context.Context, u domain.User) error {
	res, err := r.exec(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, username = ?, email = ?, image_file = ?, updated_at = ? WHERE id = ?`,
		u.FirstName, u.LastName, u.Username, u.Email, mapStringNull(u.ImageFile), time.Now().UTC(), u.ID,
	)
	return requireOne(res, r.mapWriteErr(err))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	res, err := r.exec(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().UTC(), userID,
	)
	return requireOne(res, err)
}

func (r *usersRepo) ListImageFiles(ctx context.Context) ([]string, error) {
	return r.column(ctx, `SELECT image_file FROM users WHERE image_file IS NOT NULL`)
}

// column collects a single text column.
func (q queries) column(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
