// Package filestore keeps the raw uploaded source files in Google Cloud
// Storage. The import pipeline works off a gs:// URI so a failed or blocked
// import can always be re-run against the original bytes.
package filestore

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Service is the storage boundary used by the API handlers and the import
// worker. The interface enables mocking in tests.
type Service interface {
	Upload(ctx context.Context, bucket, object string, contentType string, r io.Reader) (string, error)
	Fetch(ctx context.Context, gcsURI string) ([]byte, error)
}

// GCSService is the concrete Service backed by Cloud Storage. It assumes
// Application Default Credentials.
type GCSService struct{}

// NewGCSService creates a Cloud Storage service.
func NewGCSService() *GCSService {
	return &GCSService{}
}

// Upload streams r into gs://bucket/object and returns the object URI.
func (s *GCSService) Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("copy to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", bucket, object), nil
}

// Fetch downloads the file bytes behind a gs:// URI.
func (s *GCSService) Fetch(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, object, err := SplitURI(gcsURI)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

// SplitURI splits "gs://bucket/path/to/file" into bucket and object name.
func SplitURI(uri string) (bucket, object string, err error) {
	trimmed := strings.TrimPrefix(uri, "gs://")
	if trimmed == uri {
		return "", "", fmt.Errorf("not a gs:// URI: %q", uri)
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed GCS URI: %q", uri)
	}
	return parts[0], parts[1], nil
}

// Filename extracts the base filename from a gs:// URI.
func Filename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}
