package dreamlog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zhanpoint/dream-log/pkg/dreamlog/contentdiff"
)

// ReconcileImages applies a content edit to the user's image records inside
// one transaction. Per-URL failures are logged and skipped; they never abort
// the reconciliation or the caller's save.
//
// State machine per record:
//
//	active --removed-from-content--> pending_delete
//	pending_delete --reappears-in-content--> active
//	pending_delete --sweep-after-threshold--> (record deleted)
func (s *service) ReconcileImages(ctx context.Context, userID, dreamID uuid.UUID, oldContent *string, newContent string) (ReconcileStats, error) {
	diff := s.extractor.Compare(oldContent, newContent)

	var stats ReconcileStats
	err := s.repository.InTx(ctx, func(repo Repository) error {
		for _, url := range diff.Removed {
			if _, ok := s.markImageForDeletion(ctx, repo, userID, url); ok {
				stats.Marked++
			}
		}
		for _, url := range diff.Kept {
			if s.restoreImageIfNeeded(ctx, repo, userID, dreamID, url) {
				stats.Restored++
			}
		}
		for _, url := range diff.Added {
			switch s.registerNewImage(ctx, repo, userID, dreamID, url) {
			case registerCreated:
				stats.Registered++
			case registerRestored:
				stats.Restored++
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	return stats, nil
}

// markImageForDeletion transitions (user, url) from active to pending_delete.
// Returns the record and true when a transition happened. Missing records and
// records already pending are no-ops.
func (s *service) markImageForDeletion(ctx context.Context, repo Repository, userID uuid.UUID, url string) (*ImageRecord, bool) {
	record, err := repo.GetImageByUserAndURL(ctx, userID, url)
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			s.logger.Warn("tried to mark a url with no record", "url", url)
		} else {
			s.logger.Error("image lookup failed", "url", url, "error", err)
		}
		return nil, false
	}
	if record.Status != ImageStatusActive {
		return record, false
	}

	now := time.Now().UTC()
	record.Status = ImageStatusPendingDelete
	record.MarkedForDeleteAt = &now
	if err := repo.UpdateImage(ctx, record); err != nil {
		s.logger.Error("failed to mark image for deletion", "url", url, "error", err)
		return nil, false
	}

	s.logger.Info("image marked for deletion", "url", url, "user_id", userID)
	return record, true
}

// restoreImageIfNeeded brings a pending_delete record back to active when its
// URL is still referenced. An already-active record only gets its dream
// reference repointed (content can be reused across dreams). Returns true only
// for an actual pending_delete -> active transition.
func (s *service) restoreImageIfNeeded(ctx context.Context, repo Repository, userID, dreamID uuid.UUID, url string) bool {
	record, err := repo.GetImageByUserAndURL(ctx, userID, url)
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			s.logger.Warn("kept url has no record", "url", url)
		} else {
			s.logger.Error("image lookup failed", "url", url, "error", err)
		}
		return false
	}

	now := time.Now().UTC()
	switch record.Status {
	case ImageStatusPendingDelete:
		record.Status = ImageStatusActive
		record.MarkedForDeleteAt = nil
		record.LastReferencedAt = now
		if record.DreamID == nil || *record.DreamID != dreamID {
			record.DreamID = &dreamID
		}
		if err := repo.UpdateImage(ctx, record); err != nil {
			s.logger.Error("failed to restore image", "url", url, "error", err)
			return false
		}
		s.logger.Info("image restored to active", "url", url)
		return true

	case ImageStatusActive:
		if record.DreamID == nil || *record.DreamID != dreamID {
			record.DreamID = &dreamID
			record.LastReferencedAt = now
			if err := repo.UpdateImage(ctx, record); err != nil {
				s.logger.Error("failed to repoint image", "url", url, "error", err)
			}
		}
		return false
	}
	return false
}

// registerOutcome says what registering an added URL actually did, so the
// reconcile counters can tell a revived record from a genuinely new one.
type registerOutcome int

const (
	registerNone registerOutcome = iota
	registerCreated
	registerRestored
)

// registerNewImage tracks a URL that appeared in content. A pending_delete
// record with the same URL is restored instead of duplicated (the old content
// may not have mentioned it, so the URL can arrive via the added set).
func (s *service) registerNewImage(ctx context.Context, repo Repository, userID, dreamID uuid.UUID, url string) registerOutcome {
	existing, err := repo.GetImageByUserAndURL(ctx, userID, url)
	if err == nil {
		if existing.Status == ImageStatusPendingDelete {
			if s.restoreImageIfNeeded(ctx, repo, userID, dreamID, url) {
				return registerRestored
			}
		} else if existing.DreamID == nil || *existing.DreamID != dreamID {
			existing.DreamID = &dreamID
			existing.LastReferencedAt = time.Now().UTC()
			if err := repo.UpdateImage(ctx, existing); err != nil {
				s.logger.Error("failed to repoint image", "url", url, "error", err)
			}
		}
		return registerNone
	}
	if !errors.Is(err, ErrImageNotFound) {
		s.logger.Error("image lookup failed", "url", url, "error", err)
		return registerNone
	}

	now := time.Now().UTC()
	record := &ImageRecord{
		ID:               uuid.New(),
		UserID:           userID,
		DreamID:          &dreamID,
		URL:              url,
		FileKey:          contentdiff.FileKeyFromURL(url),
		Status:           ImageStatusActive,
		CreatedAt:        now,
		LastReferencedAt: now,
	}
	if err := repo.CreateImage(ctx, record); err != nil {
		s.logger.Error("failed to register image", "url", url, "error", err)
		return registerNone
	}

	s.logger.Info("image registered", "url", url, "dream_id", dreamID)
	return registerCreated
}

// SweepExpiredImages purges records that have been pending_delete for at
// least threshold. The store delete is best effort: the record is purged once
// the delete call returns, and store failures are only counted.
func (s *service) SweepExpiredImages(ctx context.Context, threshold time.Duration) (SweepStats, error) {
	cutoff := time.Now().UTC().Add(-threshold)

	expired, err := s.repository.ListExpiredPendingDelete(ctx, cutoff)
	if err != nil {
		return SweepStats{}, err
	}

	stats := SweepStats{Scanned: len(expired)}
	for _, record := range expired {
		if s.blobStore != nil && record.FileKey != "" {
			if err := s.blobStore.Delete(ctx, record.FileKey); err != nil {
				stats.StoreFailures++
				s.logger.Error("store delete failed during sweep",
					"key", record.FileKey, "url", record.URL, "error", err)
			}
		}

		if err := s.repository.DeleteImage(ctx, record.ID); err != nil {
			s.logger.Error("failed to purge image record", "id", record.ID, "error", err)
			continue
		}
		stats.Purged++
	}

	if stats.Scanned > 0 {
		s.logger.Info("image sweep finished",
			"scanned", stats.Scanned, "purged", stats.Purged, "store_failures", stats.StoreFailures)
	}
	return stats, nil
}
