package interfaces

import (
	"context"
	"time"
)

// BlobStore is the durable archive for submitted documents.
type BlobStore interface {
	// Upload stores bytes under key and returns a location URL, or "" on failure.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Download copies the object at key to localPath.
	Download(ctx context.Context, key string, localPath string) error
	Delete(ctx context.Context, key string) error
	// PresignedURL returns a time-limited access URL when the backend supports it.
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
