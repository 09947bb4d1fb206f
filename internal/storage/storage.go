// Package storage stores uploaded material files in an object store and
// hands out their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jimdaga/studymate/internal/config"
)

// ErrObjectNotFound is returned by Remove when the object does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// Store is an object store holding files under bucket-relative paths.
type Store interface {
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error
	PublicURL(path string) string
	Remove(ctx context.Context, path string) error
}

// New builds the backend selected by STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Store, error) {
	switch cfg.StorageBackend {
	case "gcs":
		return NewGCS(ctx, cfg.StorageBucket, logger)
	case "local", "":
		return NewLocal(cfg.StorageLocalDir, cfg.StorageBucket, cfg.StoragePublicBaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// PathFromURL recovers the object path from a public URL produced by a
// Store: every path segment after the bucket name, joined with "/".
func PathFromURL(fileURL, bucket string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse file URL: %w", err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg != bucket {
			continue
		}
		rest := segments[i+1:]
		if len(rest) == 0 {
			break
		}
		path := strings.Join(rest, "/")
		if unescaped, err := url.PathUnescape(path); err == nil {
			path = unescaped
		}
		return path, nil
	}
	return "", fmt.Errorf("bucket %q not found in file URL %q", bucket, fileURL)
}

// validPath rejects empty, absolute and parent-escaping object paths.
func validPath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") {
		return fmt.Errorf("invalid object path %q", path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("invalid object path %q", path)
		}
	}
	return nil
}
