package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	"github.com/milan-stefanik/flyhigh/internal/blog/media"
)

// BlobStoreAdapter adapts the Blobs repository to media.BlobStore so the
// media package can keep images in the database without depending on the
// store.
type BlobStoreAdapter struct {
	store Store
	now   func() time.Time
}

// NewBlobStoreAdapter creates a media.BlobStore backed by s.Blobs().
func NewBlobStoreAdapter(s Store) *BlobStoreAdapter {
	return &BlobStoreAdapter{store: s, now: time.Now}
}

// Put reads r fully; size is only a capacity hint.
func (a *BlobStoreAdapter) Put(ctx context.Context, filename, contentType string, r io.Reader, size int64) error {
	var buf bytes.Buffer
	buf.Grow(int(max(size, 0)))
	if _, err := buf.ReadFrom(r); err != nil {
		return fmt.Errorf("read blob %s: %w", filename, err)
	}
	data := buf.Bytes()

	return a.store.Blobs().PutBlob(ctx, domain.Blob{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
		CreatedAt:   a.now().UTC(),
	})
}

func (a *BlobStoreAdapter) Get(ctx context.Context, filename string) (domain.Blob, error) {
	b, err := a.store.Blobs().GetBlob(ctx, filename)
	return b, mapBlobErr(err)
}

func (a *BlobStoreAdapter) Delete(ctx context.Context, filename string) error {
	return mapBlobErr(a.store.Blobs().DeleteBlob(ctx, filename))
}

func (a *BlobStoreAdapter) List(ctx context.Context) ([]domain.BlobInfo, error) {
	return a.store.Blobs().ListBlobs(ctx)
}

func mapBlobErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return media.ErrNotFound
	}
	return err
}

var _ media.BlobStore = (*BlobStoreAdapter)(nil)
