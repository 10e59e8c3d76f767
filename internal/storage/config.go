package storage

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
)

const (
	BackendLocal    = "local"
	BackendFirebase = "firebase"
	BackendS3       = "s3"
)

// Config holds storage configuration
type Config struct {
	Backend  string // "local", "firebase" or "s3"
	LocalDir string // root directory for local storage
	BaseURL  string // server base URL used to build local download URLs
	Bucket   string // bucket name for firebase and s3
	Region   string // s3 only
}

// New builds the configured backend. app is only required for the firebase backend.
func New(ctx context.Context, cfg Config, app *firebase.App) (BlobStore, error) {
	switch cfg.Backend {
	case "", BackendLocal:
		return NewLocalStorage(cfg.BaseURL, cfg.LocalDir)
	case BackendFirebase:
		if app == nil {
			return nil, fmt.Errorf("firebase storage requires a firebase app")
		}
		return NewFirebaseStorage(ctx, app, cfg.Bucket)
	case BackendS3:
		return NewS3Storage(cfg.Region, cfg.Bucket)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
