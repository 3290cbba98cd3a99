package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	"github.com/milan-stefanik/flyhigh/pkg/cryptox"
	"github.com/milan-stefanik/flyhigh/pkg/slogx"
)

const (
	// maxPixels bounds decoded images so a tiny upload cannot claim
	// gigabytes of memory.
	maxPixels = 40_000_000

	jpegQuality = 85
)

// Pipeline validates, normalizes and stores uploads.
type Pipeline struct {
	Blobs BlobStore

	// TempDir holds encoded intermediates; "" means os.TempDir.
	TempDir string

	Logger *slog.Logger
}

// NewPipeline creates a pipeline writing to blobs.
func NewPipeline(blobs BlobStore, tempDir string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Blobs: blobs, TempDir: tempDir, Logger: logger}
}

// NewFilename returns 16 random hex characters plus the lower-cased
// extension of original.
func NewFilename(original string) (string, error) {
	hex, err := cryptox.RandomHex(8)
	if err != nil {
		return "", err
	}
	return hex + Ext(original), nil
}

// Store normalizes upload according to prof, persists it under a fresh
// random filename and returns that filename.
func (p *Pipeline) Store(ctx context.Context, upload io.Reader, originalName string, prof Profile) (string, error) {
	img, format, err := p.decode(upload, originalName, prof)
	if err != nil {
		return "", err
	}
	return p.persist(ctx, prof.Normalize(img), format, originalName)
}

// Replace removes oldRef, if any, and stores upload in its place. The upload
// is decoded before anything is deleted so a bad file leaves the old blob in
// place.
func (p *Pipeline) Replace(ctx context.Context, oldRef string, upload io.Reader, originalName string, prof Profile) (string, error) {
	img, format, err := p.decode(upload, originalName, prof)
	if err != nil {
		return "", err
	}

	if oldRef != "" {
		if err := p.DeleteQuietly(ctx, oldRef); err != nil {
			return "", err
		}
	}
	return p.persist(ctx, prof.Normalize(img), format, originalName)
}

// Delete removes the blob named ref. Returns ErrNotFound if it is absent.
func (p *Pipeline) Delete(ctx context.Context, ref string) error {
	return p.Blobs.Delete(ctx, ref)
}

// DeleteQuietly is Delete for callers whose goal is only "blob absent": a
// missing blob is logged and ignored.
func (p *Pipeline) DeleteQuietly(ctx context.Context, ref string) error {
	err := p.Blobs.Delete(ctx, ref)
	if errors.Is(err, ErrNotFound) {
		slogx.FromContext(ctx).Warn("blob already gone", "filename", ref)
		return nil
	}
	return err
}

// Open fetches a stored blob.
// Names NewFilename could not have produced are ErrNotFound.
func (p *Pipeline) Open(ctx context.Context, ref string) (domain.Blob, error) {
	if !ValidName(ref) {
		return domain.Blob{}, ErrNotFound
	}
	return p.Blobs.Get(ctx, ref)
}

func (p *Pipeline) decode(upload io.Reader, originalName string, prof Profile) (image.Image, string, error) {
	if !prof.Unrestricted && !Allowed(originalName) {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedMediaType, Ext(originalName))
	}

	raw, err := io.ReadAll(upload)
	if err != nil {
		return nil, "", fmt.Errorf("media: read upload: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedMediaType, err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, "", fmt.Errorf("%w: image is %dx%d", ErrUnsupportedMediaType, cfg.Width, cfg.Height)
	}
	// Post images are scaled to a fixed width, so a thin source can grow
	// far past the cap once normalized.
	if w, h := prof.Size(cfg.Width, cfg.Height); w*h > maxPixels {
		return nil, "", fmt.Errorf("%w: image is %dx%d, would become %dx%d", ErrUnsupportedMediaType, cfg.Width, cfg.Height, w, h)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedMediaType, err)
	}
	return img, format, nil
}

// persist encodes img into a temporary file and streams it to the blob
// store. The temporary file is removed whatever happens.
func (p *Pipeline) persist(ctx context.Context, img image.Image, format, originalName string) (string, error) {
	name, err := NewFilename(storedName(originalName, format))
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(p.TempDir, "flyhigh-*"+Ext(name))
	if err != nil {
		return "", fmt.Errorf("media: create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	contentType, err := encode(tmp, img, format, originalName)
	if err != nil {
		return "", err
	}

	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if err := p.Blobs.Put(ctx, name, contentType, tmp, size); err != nil {
		return "", fmt.Errorf("media: store %s: %w", name, err)
	}

	p.Logger.Debug("stored image", "filename", name, "size", size, "content_type", contentType)
	return name, nil
}

// encode writes img in the format the extension promises. Unrestricted
// uploads without a known extension keep their decoded format.
func encode(w io.Writer, img image.Image, format, originalName string) (string, error) {
	contentType := ContentType(originalName)
	if contentType == "application/octet-stream" {
		contentType = "image/" + format
	}

	var err error
	switch contentType {
	case "image/png":
		err = png.Encode(w, img)
	case "image/jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	default:
		return "", fmt.Errorf("%w: cannot encode %s", ErrUnsupportedMediaType, format)
	}
	if err != nil {
		return "", fmt.Errorf("media: encode: %w", err)
	}
	return contentType, nil
}

// storedName keeps the upload's extension when it is on the allow-list and
// otherwise names the file after the decoded format.
func storedName(originalName, format string) string {
	if Allowed(originalName) {
		return originalName
	}
	if format == "jpeg" {
		return "upload.jpg"
	}
	return "upload." + format
}
