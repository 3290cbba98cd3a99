// Package media turns uploaded pictures into normalized, randomly named
// blobs and manages their lifetime in a BlobStore.
package media

import (
	"context"
	"errors"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
)

var (
	// ErrNotFound reports a blob that does not exist.
	ErrNotFound = errors.New("media: blob not found")

	// ErrUnsupportedMediaType reports an upload outside the allow-list or one
	// that does not decode as an image.
	ErrUnsupportedMediaType = errors.New("media: unsupported media type")
)

// BlobStore persists blob bytes by filename. Implementations: the database
// (store.BlobStoreAdapter) and S3 compatible object storage (s3blob).
type BlobStore interface {
	Put(ctx context.Context, filename, contentType string, r io.Reader, size int64) error
	Get(ctx context.Context, filename string) (domain.Blob, error)

	// Delete returns ErrNotFound when there is nothing to delete.
	Delete(ctx context.Context, filename string) error

	// List returns metadata for every stored blob.
	List(ctx context.Context) ([]domain.BlobInfo, error)
}

// allowed maps the accepted extensions to their content type.
var allowed = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// Ext returns the lower-cased extension of name, including the dot.
func Ext(name string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(name, `\`, "/")))
}

// Allowed reports whether name carries an accepted image extension.
func Allowed(name string) bool {
	_, ok := allowed[Ext(name)]
	return ok
}

// ContentType guesses the content type from the filename extension.
func ContentType(name string) string {
	if ct, ok := allowed[Ext(name)]; ok {
		return ct
	}
	return "application/octet-stream"
}

var validName = regexp.MustCompile(`^[0-9a-f]{16}\.(?:jpg|jpeg|png)$`)

// ValidName reports whether name has the shape NewFilename produces. Blob
// stores may hold other objects; only names passing this check belong to
// the pipeline.
func ValidName(name string) bool {
	return validName.MatchString(name)
}
