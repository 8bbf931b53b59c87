package dreamlog

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for object storage backends
type BlobStore interface {
	// PresignUpload returns a presigned upload grant for a key. The access
	// URL is where the object will be readable after the client uploads.
	PresignUpload(ctx context.Context, objectKey, contentType string) (*PresignedUpload, error)

	// Upload stores the content and returns its access URL
	Upload(ctx context.Context, objectKey string, reader io.Reader) (string, error)

	// Download retrieves stored content
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes stored content. Deleting a missing key is not an error.
	Delete(ctx context.Context, objectKey string) error

	// EnsureBucketExists provisions the backing container if needed
	EnsureBucketExists(ctx context.Context) error
}

// UpsertResult is the tagged result of an explicit upsert: the persisted
// record plus whether this call created it.
type UpsertResult struct {
	Record  *ImageRecord
	Created bool
}

// Repository defines the interface for persistence. Implementations must make
// each method atomic; multi-step mutations run inside InTx.
type Repository interface {
	// InTx runs fn against a transactional view of the repository. The
	// in-memory implementation serializes calls instead of isolating them.
	InTx(ctx context.Context, fn func(Repository) error) error

	// User operations
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByPhone(ctx context.Context, phone string) (*User, error)

	// Dream operations
	CreateDream(ctx context.Context, dream *Dream) error
	GetDream(ctx context.Context, id uuid.UUID) (*Dream, error)
	UpdateDream(ctx context.Context, dream *Dream) error
	// DeleteDream removes the dream row and nulls the dream reference on
	// image records that point at it.
	DeleteDream(ctx context.Context, id uuid.UUID) error
	ListDreams(ctx context.Context, userID uuid.UUID) ([]*Dream, error)

	// Category operations
	EnsureCategory(ctx context.Context, category *DreamCategory) error
	ListCategories(ctx context.Context) ([]*DreamCategory, error)

	// Tag operations
	CreateTag(ctx context.Context, tag *Tag) error
	GetTag(ctx context.Context, id uuid.UUID) (*Tag, error)
	ListTags(ctx context.Context, userID uuid.UUID) ([]*Tag, error)

	// Sleep pattern operations; one row per (user, date)
	UpsertSleepPattern(ctx context.Context, pattern *SleepPattern) error
	ListSleepPatterns(ctx context.Context, userID uuid.UUID) ([]*SleepPattern, error)

	// Image record operations
	CreateImage(ctx context.Context, record *ImageRecord) error
	GetImage(ctx context.Context, id uuid.UUID) (*ImageRecord, error)
	// GetImageByUserAndURL looks up the record for (user, url) regardless of
	// status. URL is unique per user.
	GetImageByUserAndURL(ctx context.Context, userID uuid.UUID, url string) (*ImageRecord, error)
	UpdateImage(ctx context.Context, record *ImageRecord) error
	DeleteImage(ctx context.Context, id uuid.UUID) error
	ListImagesByUser(ctx context.Context, userID uuid.UUID) ([]*ImageRecord, error)
	ListImagesByDream(ctx context.Context, dreamID uuid.UUID) ([]*ImageRecord, error)
	// ListExpiredPendingDelete returns pending_delete records across all
	// users whose mark timestamp is at or before cutoff, oldest first.
	ListExpiredPendingDelete(ctx context.Context, cutoff time.Time) ([]*ImageRecord, error)
	// UpsertImageByDreamPosition registers the upload result for one
	// (dream, position) slot. Re-running with the same pair updates the
	// existing record instead of creating a duplicate.
	UpsertImageByDreamPosition(ctx context.Context, record *ImageRecord) (UpsertResult, error)
	CountImagesByStatus(ctx context.Context, userID uuid.UUID) (ImageStats, error)
}

// Publisher delivers events to the subscribers of a dream's image channel.
// Delivery is fire-and-forget: implementations may drop events, callers must
// never fail their own work on a publish error.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber attaches a client to a dream's image channel. The returned
// cancel function detaches it and closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context, dreamID uuid.UUID) (<-chan Event, func(), error)
}

// EventSink defines the interface for domain event handling. It replaces
// hidden framework signals with explicit calls: the service invokes sinks
// inline and logs (but does not propagate) their errors.
type EventSink interface {
	// UserRegistered is fired after a user account is created
	UserRegistered(ctx context.Context, user *User) error

	// DreamCreated is fired after a dream is created
	DreamCreated(ctx context.Context, dream *Dream) error

	// DreamUpdated is fired after a dream is updated
	DreamUpdated(ctx context.Context, dream *Dream) error

	// DreamDeleted is fired after a dream is deleted
	DreamDeleted(ctx context.Context, dreamID uuid.UUID) error
}
