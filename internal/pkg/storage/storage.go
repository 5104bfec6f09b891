package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("object not found")

// Storage is the album art object store.
type Storage interface {
	// Put stores an object under key.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Delete removes an object. Missing objects are not an error.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// GetURL returns the public URL for key.
	GetURL(key string) string
}

// Config selects and configures a backend.
type Config struct {
	R2 R2Config

	LocalDir     string
	LocalBaseURL string
}

// New returns R2 storage when credentials are present and local storage otherwise.
func New(cfg Config) (Storage, error) {
	if cfg.R2.AccountID != "" && cfg.R2.AccessKeyID != "" && cfg.R2.AccessKeySecret != "" {
		return NewR2Storage(cfg.R2)
	}
	return NewLocalStorage(cfg.LocalDir, cfg.LocalBaseURL)
}
