package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
)

type postsRepo struct{ queries }

const postColumns = `id, title, content, author_id, image_file, created_at, updated_at`

func scanPost(row rowScanner) (domain.Post, error) {
	var p domain.Post
	var image sql.NullString
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &image, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Post{}, err
	}
	p.ImageFile = mapNullString(image)
	p.CreatedAt = utc(p.CreatedAt)
	p.UpdatedAt = utc(p.UpdatedAt)
	return p, nil
}

func (r *postsRepo) list(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *postsRepo) CreatePost(ctx context.Context, p domain.Post) error {
	_, err := r.exec(ctx,
		`INSERT INTO posts (`+postColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Content, p.AuthorID, mapStringNull(p.ImageFile), p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	return r.mapWriteErr(err)
}

func (r *postsRepo) GetPostByID(ctx context.Context, id string) (domain.Post, error) {
	p, err := scanPost(r.queryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if err != nil {
		return domain.Post{}, mapNotFound(err)
	}
	return p, nil
}

// Ties on created_at fall back to the id, which is time ordered too.
func (r *postsRepo) ListPosts(ctx context.Context, limit, offset int) ([]domain.Post, error) {
	return r.list(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
}

func (r *postsRepo) CountPosts(ctx context.Context) (int, error) {
	var n int
	err := r.queryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}

func (r *postsRepo) ListPostsByAuthor(ctx context.Context, authorID string, limit, offset int) ([]domain.Post, error) {
	return r.list(ctx,
		`SELECT `+postColumns+` FROM posts WHERE author_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		authorID, limit, offset,
	)
}

func (r *postsRepo) CountPostsByAuthor(ctx context.Context, authorID string) (int, error) {
	var n int
	err := r.queryRow(ctx, `SELECT COUNT(*) FROM posts WHERE author_id = ?`, authorID).Scan(&n)
	return n, err
}

func (r *postsRepo) UpdatePost(ctx context.Context, p domain.Post) error {
	res, err := r.exec(ctx,
		`UPDATE posts SET title = ?, content = ?, image_file = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Content, mapStringNull(p.ImageFile), time.Now().UTC(), p.ID,
	)
	return requireOne(res, err)
}

func (r *postsRepo) DeletePost(ctx context.Context, id string) error {
	return requireOne(r.exec(ctx, `DELETE FROM posts WHERE id = ?`, id))
}

func (r *postsRepo) ListImageFiles(ctx context.Context) ([]string, error) {
	return r.column(ctx, `SELECT image_file FROM posts WHERE image_file IS NOT NULL`)
}
