package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"studyforge/internal/config"
)

// Store is the object storage capability used by rendering and ingest.
type Store interface {
	// Put writes body to key, replacing any existing object.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Get opens the object at key. Missing keys return ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// Location renders key as a human-readable URI.
	Location(key string) string
}

var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidKey indicates a key that escapes the store root or is empty.
	ErrInvalidKey = errors.New("invalid object key")
	// ErrUnavailable indicates a throttled or failing backend.
	ErrUnavailable = errors.New("storage unavailable")
)

// Error wraps backend failures with the operation and key.
type Error struct {
	Op      string
	Backend string
	Key     string
	Err     error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Backend, e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds the backend selected by cfg.Blob.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Blob.Backend {
	case config.BlobBackendFile, "":
		return NewFileStore(cfg.Blob.Root)
	case config.BlobBackendS3:
		return NewS3Store(ctx, S3Config{
			Bucket:          cfg.Blob.Bucket,
			Prefix:          cfg.Blob.Prefix,
			Region:          cfg.Blob.Region,
			Endpoint:        cfg.Blob.Endpoint,
			AccessKeyID:     cfg.Blob.AccessKeyID,
			SecretAccessKey: cfg.Blob.SecretAccessKey,
			UsePathStyle:    cfg.Blob.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("blob backend %q is not supported", cfg.Blob.Backend)
	}
}
