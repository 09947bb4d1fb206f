package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores objects in a Google Cloud Storage bucket. Credentials come from
// Application Default Credentials.
type GCS struct {
	client *gcs.Client
	bucket string
	logger *slog.Logger
}

// NewGCS creates a client for the named bucket.
func NewGCS(ctx context.Context, bucket string, logger *slog.Logger) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	client, err := gcs.NewClient(ctx, option.WithScopes(gcs.ScopeReadWrite))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	logger.Info("object storage initialized", "backend", "gcs", "bucket", bucket)
	return &GCS{client: client, bucket: bucket, logger: logger.With("component", "storage")}, nil
}

// Upload writes r to path. The object is only visible once the writer closes cleanly.
func (s *GCS) Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if err := validPath(path); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=3600"
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}

	s.logger.Debug("object uploaded", "path", path, "size", size)
	return nil
}

// PublicURL returns the storage.googleapis.com URL of path.
func (s *GCS) PublicURL(path string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, strings.TrimLeft(path, "/"))
}

// Remove deletes path; a missing object yields ErrObjectNotFound.
func (s *GCS) Remove(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := s.client.Bucket(s.bucket).Object(path).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrObjectNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete GCS object: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCS) Close() error {
	return s.client.Close()
}
