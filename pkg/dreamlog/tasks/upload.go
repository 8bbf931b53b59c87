package tasks

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/zhanpoint/dream-log/pkg/dreamlog"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/objectkey"
)

// UploadImage is one image handed to the upload worker.
type UploadImage struct {
	FileName string
	Data     []byte
	Position int
}

// UploadRequest asks the upload worker to store a batch of images for a
// dream and register them.
type UploadRequest struct {
	UserID  uuid.UUID
	DreamID uuid.UUID
	Images  []UploadImage
}

// UploadWorker stores submitted images and registers one record per
// (dream, position) slot. Re-running the same request converges on the same
// records instead of creating duplicates.
type UploadWorker struct {
	repository dreamlog.Repository
	store      dreamlog.BlobStore
	publisher  dreamlog.Publisher
	keys       objectkey.Generator
	logger     *slog.Logger
}

// NewUploadWorker creates an upload worker.
func NewUploadWorker(repository dreamlog.Repository, store dreamlog.BlobStore, publisher dreamlog.Publisher, keys objectkey.Generator, logger *slog.Logger) *UploadWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadWorker{
		repository: repository,
		store:      store,
		publisher:  publisher,
		keys:       keys,
		logger:     logger,
	}
}

// Process runs one upload batch. It is the task body handed to a Runner.
func (w *UploadWorker) Process(ctx context.Context, req UploadRequest) Result {
	if len(req.Images) == 0 {
		return OK()
	}

	w.publish(ctx, req.DreamID, dreamlog.EventProcessing, nil,
		fmt.Sprintf("uploading %d images", len(req.Images)))

	if err := w.store.EnsureBucketExists(ctx); err != nil {
		w.publish(ctx, req.DreamID, dreamlog.EventFailed, nil, "storage unavailable")
		return Retryable(fmt.Errorf("ensure bucket: %w", err))
	}

	var uploaded []dreamlog.ImageInfo
	var failed int
	for _, img := range req.Images {
		info, err := w.processOne(ctx, req, img)
		if err != nil {
			failed++
			w.logger.Error("image upload failed",
				"dream_id", req.DreamID, "position", img.Position, "error", err)
			continue
		}
		uploaded = append(uploaded, info)
	}

	if failed == len(req.Images) {
		w.publish(ctx, req.DreamID, dreamlog.EventFailed, nil,
			fmt.Sprintf("all %d images failed", failed))
		return Retryable(fmt.Errorf("upload batch: all %d images failed", failed))
	}

	message := fmt.Sprintf("%d of %d images uploaded", len(uploaded), len(req.Images))
	w.publish(ctx, req.DreamID, dreamlog.EventCompleted, uploaded, message)

	if failed > 0 {
		return Retryable(fmt.Errorf("upload batch: %d of %d images failed", failed, len(req.Images)))
	}
	return OK()
}

func (w *UploadWorker) processOne(ctx context.Context, req UploadRequest, img UploadImage) (dreamlog.ImageInfo, error) {
	key := w.keys.UploadKey(req.UserID, req.DreamID, img.Position, img.FileName)

	url, err := w.store.Upload(ctx, key, bytes.NewReader(img.Data))
	if err != nil {
		return dreamlog.ImageInfo{}, err
	}

	position := img.Position
	now := time.Now().UTC()
	record := &dreamlog.ImageRecord{
		ID:               uuid.New(),
		UserID:           req.UserID,
		DreamID:          &req.DreamID,
		URL:              url,
		FileKey:          key,
		Position:         &position,
		Status:           dreamlog.ImageStatusActive,
		CreatedAt:        now,
		LastReferencedAt: now,
	}

	var result dreamlog.UpsertResult
	err = w.repository.InTx(ctx, func(repo dreamlog.Repository) error {
		var txErr error
		result, txErr = repo.UpsertImageByDreamPosition(ctx, record)
		return txErr
	})
	if err != nil {
		return dreamlog.ImageInfo{}, fmt.Errorf("register image: %w", err)
	}

	pos := 0
	if result.Record.Position != nil {
		pos = *result.Record.Position
	}
	return dreamlog.ImageInfo{
		ID:       result.Record.ID,
		URL:      result.Record.URL,
		Position: pos,
	}, nil
}

func (w *UploadWorker) publish(ctx context.Context, dreamID uuid.UUID, status dreamlog.EventStatus, images []dreamlog.ImageInfo, message string) {
	err := w.publisher.Publish(ctx, dreamlog.Event{
		DreamID:   dreamID,
		Status:    status,
		Images:    images,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		w.logger.Warn("failed to publish image update",
			"dream_id", dreamID, "status", status, "error", err)
	}
}
