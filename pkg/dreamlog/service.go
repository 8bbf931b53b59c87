package dreamlog

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service defines the main interface for the dream-log core
type Service interface {
	// User operations
	RegisterUser(ctx context.Context, req RegisterUserRequest) (*User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByPhone(ctx context.Context, phone string) (*User, error)

	// Dream operations. Create/Update/Delete reconcile image records inline
	// as part of the edit; image bookkeeping failures never fail the edit.
	CreateDream(ctx context.Context, req CreateDreamRequest) (*Dream, error)
	GetDream(ctx context.Context, userID, id uuid.UUID) (*Dream, error)
	UpdateDream(ctx context.Context, req UpdateDreamRequest) (*Dream, error)
	// DeleteDream removes the dream and returns the image records it marked
	// pending_delete, so callers can queue a physical delete task.
	DeleteDream(ctx context.Context, userID, id uuid.UUID) ([]*ImageRecord, error)
	ListDreams(ctx context.Context, userID uuid.UUID) ([]*Dream, error)
	ToggleFavorite(ctx context.Context, userID, id uuid.UUID) (*Dream, error)
	DreamStatistics(ctx context.Context, userID uuid.UUID) (*DreamStatistics, error)

	// Category and tag operations
	SeedCategories(ctx context.Context) error
	ListCategories(ctx context.Context) ([]*DreamCategory, error)
	CreateTag(ctx context.Context, req CreateTagRequest) (*Tag, error)
	ListTags(ctx context.Context, userID uuid.UUID) ([]*Tag, error)

	// Sleep pattern operations
	RecordSleepPattern(ctx context.Context, req RecordSleepRequest) (*SleepPattern, error)
	ListSleepPatterns(ctx context.Context, userID uuid.UUID) ([]*SleepPattern, error)

	// Image lifecycle operations
	ReconcileImages(ctx context.Context, userID, dreamID uuid.UUID, oldContent *string, newContent string) (ReconcileStats, error)
	PresignUpload(ctx context.Context, req PresignUploadRequest) (*PresignedUpload, error)
	SweepExpiredImages(ctx context.Context, threshold time.Duration) (SweepStats, error)
	ImageStats(ctx context.Context, userID uuid.UUID) (ImageStats, error)
}
