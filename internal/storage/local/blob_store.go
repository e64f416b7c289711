// Package local implements a filesystem blob store for page snapshots.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the root directory snapshots are written under.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// BlobStore writes artifacts to the local filesystem.
type BlobStore struct {
	baseDir string
}

// New creates the base directory if needed and verifies it is writable.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("archive.base_dir is required")
	}
	base := filepath.Clean(cfg.BaseDir)
	if err := ensureWritableDir(base); err != nil {
		return nil, err
	}
	return &BlobStore{baseDir: base}, nil
}

func ensureWritableDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
			return fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return fmt.Errorf("base directory path is not a directory")
	}

	probe, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return fmt.Errorf("base directory is not writable: %w", err)
	}
	name := probe.Name()
	if err := probe.Close(); err != nil {
		return fmt.Errorf("close probe file: %w", err)
	}
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("failed to clean up probe file: %w", err)
	}
	return nil
}

// PutObject writes data under the base directory and returns a file:// URI.
// Paths escaping the base directory are rejected.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data []byte) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	fullPath := filepath.Join(s.baseDir, path)
	if !strings.HasPrefix(fullPath, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("failed to create parent directories: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return "file://" + fullPath, nil
}
