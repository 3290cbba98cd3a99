package domain

import "time"

// Blob is a stored image. Filename is the only key; the owning user or post
// holds it as ImageFile.
type Blob struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
	CreatedAt   time.Time
}

// BlobInfo is Blob without its bytes, for listings and sweeps.
type BlobInfo struct {
	Filename    string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}
