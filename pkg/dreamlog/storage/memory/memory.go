package memory

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/zhanpoint/dream-log/pkg/dreamlog"
)

// Backend is an in-memory implementation of the dreamlog.BlobStore interface,
// intended for tests and local development.
type Backend struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

// Option configures the in-memory backend.
type Option func(*Backend)

// WithBaseURL sets the base URL used to mint access URLs.
func WithBaseURL(baseURL string) Option {
	return func(b *Backend) { b.baseURL = baseURL }
}

// New creates a new in-memory storage backend
func New(options ...Option) *Backend {
	b := &Backend{
		objects: make(map[string][]byte),
		baseURL: "memory://bucket",
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *Backend) accessURL(objectKey string) string {
	return b.baseURL + "/" + objectKey
}

// PresignUpload mints a synthetic grant. There is no real HTTP endpoint; the
// upload URL only identifies the key so tests can assert against it.
func (b *Backend) PresignUpload(ctx context.Context, objectKey, contentType string) (*dreamlog.PresignedUpload, error) {
	return &dreamlog.PresignedUpload{
		UploadURL: b.accessURL(objectKey) + "?upload=1",
		AccessURL: b.accessURL(objectKey),
		FileKey:   objectKey,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}, nil
}

// Upload stores the content and returns its access URL
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", &dreamlog.StorageError{Key: objectKey, Op: "upload", Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[objectKey] = data
	return b.accessURL(objectKey), nil
}

// Download retrieves stored content
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, &dreamlog.StorageError{Key: objectKey, Op: "download", Err: dreamlog.ErrImageNotFound}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes stored content. Deleting a missing key is not an error.
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, objectKey)
	return nil
}

// EnsureBucketExists is a no-op for the in-memory backend
func (b *Backend) EnsureBucketExists(ctx context.Context) error {
	return nil
}

// Exists reports whether a key currently holds an object.
func (b *Backend) Exists(objectKey string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.objects[objectKey]
	return exists
}

// Len returns the number of stored objects.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}
