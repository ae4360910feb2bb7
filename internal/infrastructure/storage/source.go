package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// OpenSource opens an extract given as a local path or an s3://bucket/key URL.
// S3 URLs require remote to be configured.
func OpenSource(ctx context.Context, source string, remote *S3ObjectStorage) (io.ReadCloser, error) {
	if bucket, key, ok := ParseS3URL(source); ok {
		if remote == nil {
			return nil, fmt.Errorf("source %s needs object storage, which is disabled", source)
		}
		return remote.openIn(ctx, bucket, key)
	}

	f, err := os.Open(source)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	return f, nil
}

// LocalObjectStorage implements ObjectStorage on a directory
type LocalObjectStorage struct {
	Root string
}

// NewLocalObjectStorage creates storage rooted at dir
func NewLocalObjectStorage(dir string) *LocalObjectStorage {
	return &LocalObjectStorage{Root: dir}
}

// Open opens the file at key below the root
func (l *LocalObjectStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(l.Root, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Upload writes body to key, replacing the file atomically
func (l *LocalObjectStorage) Upload(_ context.Context, key string, body io.Reader, _ string) error {
	if key == "" {
		return errors.New("storage key is required")
	}
	dst := filepath.Join(l.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return os.Rename(tmp.Name(), dst)
}

var (
	_ ObjectStorage = (*S3ObjectStorage)(nil)
	_ ObjectStorage = (*LocalObjectStorage)(nil)
)
