package store

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
)

// ErrInvalidKey is returned for blob keys that would escape the storage root
var ErrInvalidKey = errors.New("invalid blob key")

// Blobs defines the interface for proof document storage
type Blobs interface {
	// Save stores data under key
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// Get retrieves the data and content type stored under key
	Get(ctx context.Context, key string) ([]byte, string, error)

	// Delete removes the data stored under key
	Delete(ctx context.Context, key string) error
}

// LocalBlobs implements Blobs using the local filesystem
type LocalBlobs struct {
	basePath string
}

// NewLocalBlobs creates a new LocalBlobs rooted at basePath
func NewLocalBlobs(basePath string) (*LocalBlobs, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalBlobs{
		basePath: basePath,
	}, nil
}

func (l *LocalBlobs) path(key string) (string, error) {
	if !filepath.IsLocal(key) {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return filepath.Join(l.basePath, key), nil
}

// Save writes a file to local storage
func (l *LocalBlobs) Save(_ context.Context, key string, data []byte, _ string) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

// Get reads a file from local storage. The content type is derived from the
// key's extension.
func (l *LocalBlobs) Get(_ context.Context, key string) ([]byte, string, error) {
	path, err := l.path(key)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading file: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

// Delete removes a file from local storage
func (l *LocalBlobs) Delete(_ context.Context, key string) error {
	path, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}
