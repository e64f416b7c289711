// Package gcs provides a BlobStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
)

// Config names the bucket snapshots are archived to.
type Config struct {
	Bucket string
}

// BlobStore archives page snapshots as objects in one bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
}

// New creates a GCS-backed blob store. Authentication is left to the client,
// which normally resolves Application Default Credentials.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive.gcs_bucket is required")
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// PutObject uploads data in a single request and returns a gs:// URI. Snapshots
// are small, so the writer is not chunked.
func (s *BlobStore) PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error) {
	name := strings.TrimLeft(path, "/")
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("path is required")
	}
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ChunkSize = 0
	w.ContentType = contentType
	_, writeErr := w.Write(data)
	if err := errors.Join(writeErr, w.Close()); err != nil {
		return "", fmt.Errorf("upload gs://%s/%s: %w", s.bucket, name, err)
	}
	return "gs://" + s.bucket + "/" + name, nil
}
