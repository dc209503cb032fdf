package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo represents metadata for a stored invoice scan.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStorage captures the minimal S3-compatible operations the invoice
// scan archive needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	PutObject(ctx context.Context, key string, contentType string, size int64, body io.Reader) error
}
