package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// multipartMemory is how much of a multipart body is held in memory; the
// rest spills to temp files.
const multipartMemory = 8 << 20

var (
	errUploadTooLarge = errors.New("upload too large")
	errBadForm        = errors.New("malformed form body")
)

// parseMultipart parses a multipart form of at most limit bytes; plain
// urlencoded bodies are accepted too. The returned cleanup removes any
// spilled temp files.
func parseMultipart(w http.ResponseWriter, r *http.Request, limit int64) (func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return func() {}, errUploadTooLarge
		}
		return func() {}, fmt.Errorf("%w: %v", errBadForm, err)
	}
	return func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}, nil
}

// formFile returns the uploaded file in field, or a nil reader when the
// field was left empty.
func formFile(r *http.Request, field string) (io.Reader, string, func()) {
	f, hdr, err := r.FormFile(field)
	if err != nil {
		return nil, "", func() {}
	}
	if hdr.Size == 0 || hdr.Filename == "" {
		_ = f.Close()
		return nil, "", func() {}
	}
	return f, hdr.Filename, func() { _ = f.Close() }
}
