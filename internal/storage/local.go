package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// PublicPathPrefix is the URL path under which the API server serves local objects.
const PublicPathPrefix = "/storage/v1/object/public"

// Local stores objects on the filesystem under <root>/<bucket>. Used in development.
type Local struct {
	root    string
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// NewLocal creates the bucket directory if needed.
func NewLocal(root, bucket, baseURL string, logger *slog.Logger) (*Local, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	dir := filepath.Join(root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	logger.Info("object storage initialized", "backend", "local", "dir", dir)
	return &Local{
		root:    root,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With("component", "storage"),
	}, nil
}

// Dir is the directory holding the bucket's objects.
func (s *Local) Dir() string {
	return filepath.Join(s.root, s.bucket)
}

// Bucket returns the bucket name.
func (s *Local) Bucket() string {
	return s.bucket
}

func (s *Local) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if err := validPath(path); err != nil {
		return err
	}

	dst := filepath.Join(s.Dir(), filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create object file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to write object file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to close object file: %w", err)
	}

	s.logger.Debug("object uploaded", "path", path, "size", size, "content_type", contentType)
	return nil
}

// PublicURL returns <base>/storage/v1/object/public/<bucket>/<path>.
func (s *Local) PublicURL(path string) string {
	return fmt.Sprintf("%s%s/%s/%s", s.baseURL, PublicPathPrefix, s.bucket, strings.TrimLeft(path, "/"))
}

func (s *Local) Remove(ctx context.Context, path string) error {
	if err := validPath(path); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(s.Dir(), filepath.FromSlash(path)))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove object file: %w", err)
	}
	return nil
}
