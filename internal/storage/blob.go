// Package storage uploads hand-off evidence (photos and signatures) to a blob store.
package storage

import (
	"context"
	"io"
)

// BlobStore persists binary objects and returns a URL the clients can load them from.
type BlobStore interface {
	// Upload stores r under key and returns its public URL.
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
