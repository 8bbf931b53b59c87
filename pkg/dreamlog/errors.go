package dreamlog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrDreamNotFound indicates a dream was not found
	ErrDreamNotFound = errors.New("dream not found")

	// ErrUserNotFound indicates a user was not found
	ErrUserNotFound = errors.New("user not found")

	// ErrImageNotFound indicates an image record was not found
	ErrImageNotFound = errors.New("image record not found")

	// ErrTagNotFound indicates a tag was not found
	ErrTagNotFound = errors.New("tag not found")

	// ErrCategoryNotFound indicates a dream category was not found
	ErrCategoryNotFound = errors.New("category not found")

	// ErrSleepPatternNotFound indicates a sleep pattern was not found
	ErrSleepPatternNotFound = errors.New("sleep pattern not found")

	// ErrDuplicateUsername indicates the username is already registered
	ErrDuplicateUsername = errors.New("username already registered")

	// ErrDuplicatePhone indicates the phone number is already registered
	ErrDuplicatePhone = errors.New("phone number already registered")

	// ErrDuplicateImageURL indicates the user already tracks this URL
	ErrDuplicateImageURL = errors.New("image url already tracked for user")

	// ErrInvalidImageStatus indicates a state transition that the two-state
	// machine does not allow
	ErrInvalidImageStatus = errors.New("invalid image status")

	// ErrUnsupportedContentType indicates an upload content type that is
	// rejected before any background work is queued
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrInvalidCredentials indicates a failed password login
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotDreamOwner indicates the caller does not own the dream
	ErrNotDreamOwner = errors.New("dream is owned by another user")

	// ErrValidation indicates a request that failed field validation
	ErrValidation = errors.New("validation failed")
)

// DreamError represents an error related to dream operations
type DreamError struct {
	DreamID uuid.UUID
	Op      string
	Err     error
}

func (e *DreamError) Error() string {
	return fmt.Sprintf("dream operation %s failed for dream %s: %v", e.Op, e.DreamID, e.Err)
}

func (e *DreamError) Unwrap() error {
	return e.Err
}

// ImageError represents an error related to image lifecycle operations
type ImageError struct {
	URL string
	Op  string
	Err error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image operation %s failed for url %s: %v", e.Op, e.URL, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to object store operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
