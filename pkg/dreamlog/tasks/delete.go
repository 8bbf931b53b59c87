package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/zhanpoint/dream-log/pkg/dreamlog"
)

// DeleteRequest asks the delete worker to remove stored objects. FileKeys is
// what remains of already-purged records; live records pass through the sweep
// instead.
type DeleteRequest struct {
	DreamID  uuid.UUID
	FileKeys []string
}

// DeleteWorker removes objects from blob storage and reports progress on the
// dream's channel.
type DeleteWorker struct {
	store     dreamlog.BlobStore
	publisher dreamlog.Publisher
	logger    *slog.Logger
}

// NewDeleteWorker creates a delete worker.
func NewDeleteWorker(store dreamlog.BlobStore, publisher dreamlog.Publisher, logger *slog.Logger) *DeleteWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeleteWorker{store: store, publisher: publisher, logger: logger}
}

// Process runs one delete batch. Storage deletes are idempotent, so a retried
// batch re-deletes already-removed keys without harm.
func (w *DeleteWorker) Process(ctx context.Context, req DeleteRequest) Result {
	if len(req.FileKeys) == 0 {
		return OK()
	}

	w.publish(ctx, req.DreamID, dreamlog.EventDeleteProcessing,
		fmt.Sprintf("deleting %d images", len(req.FileKeys)))

	var failed int
	for i, key := range req.FileKeys {
		if err := w.store.Delete(ctx, key); err != nil {
			failed++
			w.logger.Error("image delete failed",
				"dream_id", req.DreamID, "file_key", key, "error", err)
		}
		w.publish(ctx, req.DreamID, dreamlog.EventDeleteProcessing,
			fmt.Sprintf("%d of %d images processed", i+1, len(req.FileKeys)))
	}

	if failed > 0 {
		w.publish(ctx, req.DreamID, dreamlog.EventDeleteFailed,
			fmt.Sprintf("%d of %d deletes failed", failed, len(req.FileKeys)))
		return Retryable(fmt.Errorf("delete batch: %d of %d deletes failed", failed, len(req.FileKeys)))
	}

	w.publish(ctx, req.DreamID, dreamlog.EventDeleteCompleted,
		fmt.Sprintf("%d images deleted", len(req.FileKeys)))
	return OK()
}

func (w *DeleteWorker) publish(ctx context.Context, dreamID uuid.UUID, status dreamlog.EventStatus, message string) {
	err := w.publisher.Publish(ctx, dreamlog.Event{
		DreamID:   dreamID,
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		w.logger.Warn("failed to publish image update",
			"dream_id", dreamID, "status", status, "error", err)
	}
}
