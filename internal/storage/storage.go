package storage

import (
	"context"
	"io"
)

// FileStore abstracts attachment byte storage so the backend can be
// swapped (local disk today, object storage later) and faked in tests.
type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}
