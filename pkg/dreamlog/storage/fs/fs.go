package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
)

// Backend is a filesystem implementation of the dreamlog.BlobStore interface
type Backend struct {
	mu        sync.RWMutex
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // Base directory for storing files
	URLPrefix string // URL prefix under which the server exposes stored files
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if config.URLPrefix == "" {
		config.URLPrefix = "/media"
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimSuffix(config.URLPrefix, "/"),
	}, nil
}

func (b *Backend) accessURL(objectKey string) string {
	return b.urlPrefix + "/" + objectKey
}

// filePath resolves a key inside the base directory and rejects keys that
// would escape it.
func (b *Backend) filePath(objectKey string) (string, error) {
	path := filepath.Join(b.baseDir, filepath.FromSlash(objectKey))
	if !strings.HasPrefix(path, filepath.Clean(b.baseDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object key: %s", objectKey)
	}
	return path, nil
}

// PresignUpload mints an upload grant served by the application itself. The
// filesystem backend has no external upload endpoint; clients PUT to the
// returned path on the same server.
func (b *Backend) PresignUpload(ctx context.Context, objectKey, contentType string) (*dreamlog.PresignedUpload, error) {
	return &dreamlog.PresignedUpload{
		UploadURL: b.urlPrefix + "/upload/" + objectKey,
		AccessURL: b.accessURL(objectKey),
		FileKey:   objectKey,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}, nil
}

// Upload uploads content directly to the filesystem and returns its access URL
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path, err := b.filePath(objectKey)
	if err != nil {
		return "", &dreamlog.StorageError{Key: objectKey, Op: "upload", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", &dreamlog.StorageError{Key: objectKey, Op: "upload", Err: err}
	}

	file, err := os.Create(path)
	if err != nil {
		return "", &dreamlog.StorageError{Key: objectKey, Op: "upload", Err: err}
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		return "", &dreamlog.StorageError{Key: objectKey, Op: "upload", Err: err}
	}
	return b.accessURL(objectKey), nil
}

// Download retrieves stored content
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	path, err := b.filePath(objectKey)
	if err != nil {
		return nil, &dreamlog.StorageError{Key: objectKey, Op: "download", Err: err}
	}

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, &dreamlog.StorageError{Key: objectKey, Op: "download", Err: dreamlog.ErrImageNotFound}
	} else if err != nil {
		return nil, &dreamlog.StorageError{Key: objectKey, Op: "download", Err: err}
	}
	return file, nil
}

// Delete removes stored content. Deleting a missing key is not an error.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	path, err := b.filePath(objectKey)
	if err != nil {
		return &dreamlog.StorageError{Key: objectKey, Op: "delete", Err: err}
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &dreamlog.StorageError{Key: objectKey, Op: "delete", Err: err}
	}
	return nil
}

// EnsureBucketExists creates the base directory if it was removed after New
func (b *Backend) EnsureBucketExists(ctx context.Context) error {
	return os.MkdirAll(b.baseDir, 0755)
}
