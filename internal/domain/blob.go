package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader retrieves and prunes stored objects.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Delete(ctx context.Context, path string) error
}

// PayloadArchiver stores raw acquisition payloads for later replay and
// purges them when the retention horizon passes.
type PayloadArchiver interface {
	ArchivePage(ctx context.Context, cycleID string, page int, payload []byte) error
	PurgeBefore(ctx context.Context, cutoff time.Time) (int, error)
}
