// Package objectstore abstracts where published clip artifacts live. The
// pipeline writes rendered clips and thumbnails through this boundary and the
// catalog stores only keys, never absolute paths.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"clipforge/internal/config"
	"clipforge/internal/services"
)

// Store is the artifact storage boundary.
type Store interface {
	// Put uploads the reader's contents under key, replacing any existing
	// object.
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	// Get returns a reader for the object. Caller must close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Exists reports whether an object is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns a URL clients can fetch the object from, valid at least
	// for the configured TTL.
	URL(ctx context.Context, key string) (string, error)
}

// New builds the store selected by cfg.Storage.Backend.
func New(ctx context.Context, cfg config.Storage) (Store, error) {
	switch cfg.Backend {
	case "local":
		return NewLocal(cfg.LocalDir)
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "objectstore", "build store",
			fmt.Sprintf("unknown storage backend %q", cfg.Backend), nil)
	}
}

// CleanKey normalizes an object key: forward slashes, no leading slash, no
// path traversal.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", services.Wrap(services.ErrValidation, "objectstore", "clean key", "object key required", nil)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." || part == "" {
			return "", services.Wrap(services.ErrValidation, "objectstore", "clean key",
				fmt.Sprintf("invalid object key %q", key), nil)
		}
	}
	return key, nil
}
