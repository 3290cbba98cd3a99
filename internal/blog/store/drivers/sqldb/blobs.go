package sqldb

import (
	"context"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
)

type blobsRepo struct{ queries }

func (r *blobsRepo) PutBlob(ctx context.Context, b domain.Blob) error {
	_, err := r.exec(ctx,
		`INSERT INTO blobs (filename, content_type, size, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.Filename, b.ContentType, b.Size, b.Data, b.CreatedAt.UTC(),
	)
	return r.mapWriteErr(err)
}

func (r *blobsRepo) GetBlob(ctx context.Context, filename string) (domain.Blob, error) {
	var b domain.Blob
	err := r.queryRow(ctx,
		`SELECT filename, content_type, size, data, created_at FROM blobs WHERE filename = ?`,
		filename,
	).Scan(&b.Filename, &b.ContentType, &b.Size, &b.Data, &b.CreatedAt)
	if err != nil {
		return domain.Blob{}, mapNotFound(err)
	}
	b.CreatedAt = utc(b.CreatedAt)
	return b, nil
}

func (r *blobsRepo) DeleteBlob(ctx context.Context, filename string) error {
	return requireOne(r.exec(ctx, `DELETE FROM blobs WHERE filename = ?`, filename))
}

func (r *blobsRepo) ListBlobs(ctx context.Context) ([]domain.BlobInfo, error) {
	rows, err := r.query(ctx, `SELECT filename, content_type, size, created_at FROM blobs ORDER BY created_at, filename`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BlobInfo
	for rows.Next() {
		var b domain.BlobInfo
		if err := rows.Scan(&b.Filename, &b.ContentType, &b.Size, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.CreatedAt = utc(b.CreatedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}
