package dreamlog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhanpoint/dream-log/pkg/dreamlog/contentdiff"
	"github.com/zhanpoint/dream-log/pkg/dreamlog/objectkey"
)

// AllowedImageContentTypes are the upload content types accepted at presign
// time. Anything else is rejected before background work is queued.
var AllowedImageContentTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// service implements the Service interface
type service struct {
	repository Repository
	blobStore  BlobStore
	extractor  *contentdiff.Extractor
	keys       objectkey.Generator
	eventSink  EventSink
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the object storage backend
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithExtractor sets the content extractor used for image reconciliation
func WithExtractor(e *contentdiff.Extractor) Option {
	return func(s *service) {
		s.extractor = e
	}
}

// WithKeyGenerator sets the object key generation strategy
func WithKeyGenerator(g objectkey.Generator) Option {
	return func(s *service) {
		s.keys = g
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.extractor == nil {
		s.extractor = contentdiff.NewExtractor()
	}
	if s.keys == nil {
		s.keys = objectkey.New()
	}
	if s.eventSink == nil {
		s.eventSink = NewNoopEventSink()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s, nil
}

// User operations

func (s *service) RegisterUser(ctx context.Context, req RegisterUserRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repository.GetUserByUsername(ctx, req.Username); err == nil {
		return nil, ErrDuplicateUsername
	}
	if req.PhoneNumber != "" {
		if _, err := s.repository.GetUserByPhone(ctx, req.PhoneNumber); err == nil {
			return nil, ErrDuplicatePhone
		}
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.New(),
		Username:     req.Username,
		PhoneNumber:  req.PhoneNumber,
		Email:        strings.ToLower(req.Email),
		PasswordHash: req.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repository.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.fireEvent("user registered", func() error { return s.eventSink.UserRegistered(ctx, user) })

	return user, nil
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repository.GetUser(ctx, id)
}

func (s *service) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.repository.GetUserByUsername(ctx, username)
}

func (s *service) GetUserByPhone(ctx context.Context, phone string) (*User, error) {
	return s.repository.GetUserByPhone(ctx, phone)
}

// Dream operations

func (s *service) CreateDream(ctx context.Context, req CreateDreamRequest) (*Dream, error) {
	now := time.Now().UTC()
	if err := req.Validate(now); err != nil {
		return nil, err
	}

	dream := &Dream{
		ID:             uuid.New(),
		UserID:         req.UserID,
		Title:          req.Title,
		Content:        req.Content,
		Interpretation: req.Interpretation,
		PersonalNotes:  req.PersonalNotes,
		DreamDate:      req.DreamDate,
		LucidityLevel:  req.LucidityLevel,
		MoodInDream:    req.MoodInDream,
		SleepQuality:   req.SleepQuality,
		IsRecurring:    req.IsRecurring,
		Vividness:      req.Vividness,
		Categories:     req.Categories,
		TagIDs:         req.TagIDs,
		Privacy:        req.Privacy,
		IsFavorite:     false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if dream.Privacy == "" {
		dream.Privacy = PrivacyPrivate
	}

	if err := s.repository.CreateDream(ctx, dream); err != nil {
		return nil, &DreamError{DreamID: dream.ID, Op: "create", Err: err}
	}

	// Create mode: register every image referenced by the fresh content.
	if stats, err := s.ReconcileImages(ctx, dream.UserID, dream.ID, nil, dream.Content); err != nil {
		s.logger.Error("image reconciliation failed on create", "dream_id", dream.ID, "error", err)
	} else if !stats.IsZero() {
		s.logger.Info("images reconciled", "dream_id", dream.ID,
			"marked", stats.Marked, "restored", stats.Restored, "registered", stats.Registered)
	}

	s.fireEvent("dream created", func() error { return s.eventSink.DreamCreated(ctx, dream) })

	return dream, nil
}

func (s *service) GetDream(ctx context.Context, userID, id uuid.UUID) (*Dream, error) {
	dream, err := s.repository.GetDream(ctx, id)
	if err != nil {
		return nil, err
	}
	if dream.UserID != userID && dream.Privacy != PrivacyPublic {
		return nil, ErrNotDreamOwner
	}
	return dream, nil
}

func (s *service) UpdateDream(ctx context.Context, req UpdateDreamRequest) (*Dream, error) {
	dream, err := s.repository.GetDream(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if dream.UserID != req.UserID {
		return nil, ErrNotDreamOwner
	}

	oldContent := dream.Content
	applyDreamUpdate(dream, req)
	dream.UpdatedAt = time.Now().UTC()

	if err := s.repository.UpdateDream(ctx, dream); err != nil {
		return nil, &DreamError{DreamID: dream.ID, Op: "update", Err: err}
	}

	if dream.Content != oldContent {
		if stats, err := s.ReconcileImages(ctx, dream.UserID, dream.ID, &oldContent, dream.Content); err != nil {
			s.logger.Error("image reconciliation failed on update", "dream_id", dream.ID, "error", err)
		} else if !stats.IsZero() {
			s.logger.Info("images reconciled", "dream_id", dream.ID,
				"marked", stats.Marked, "restored", stats.Restored, "registered", stats.Registered)
		}
	}

	s.fireEvent("dream updated", func() error { return s.eventSink.DreamUpdated(ctx, dream) })

	return dream, nil
}

func applyDreamUpdate(dream *Dream, req UpdateDreamRequest) {
	if req.Title != nil {
		dream.Title = *req.Title
	}
	if req.Content != nil {
		dream.Content = *req.Content
	}
	if req.Interpretation != nil {
		dream.Interpretation = *req.Interpretation
	}
	if req.PersonalNotes != nil {
		dream.PersonalNotes = *req.PersonalNotes
	}
	if req.DreamDate != nil {
		dream.DreamDate = *req.DreamDate
	}
	if req.LucidityLevel != nil {
		dream.LucidityLevel = *req.LucidityLevel
	}
	if req.MoodInDream != nil {
		dream.MoodInDream = *req.MoodInDream
	}
	if req.SleepQuality != nil {
		dream.SleepQuality = req.SleepQuality
	}
	if req.IsRecurring != nil {
		dream.IsRecurring = *req.IsRecurring
	}
	if req.Vividness != nil {
		dream.Vividness = req.Vividness
	}
	if req.Categories != nil {
		dream.Categories = req.Categories
	}
	if req.TagIDs != nil {
		dream.TagIDs = req.TagIDs
	}
	if req.Privacy != nil {
		dream.Privacy = *req.Privacy
	}
}

func (s *service) DeleteDream(ctx context.Context, userID, id uuid.UUID) ([]*ImageRecord, error) {
	dream, err := s.repository.GetDream(ctx, id)
	if err != nil {
		return nil, err
	}
	if dream.UserID != userID {
		return nil, ErrNotDreamOwner
	}

	// Mark every referenced image before the dream row goes away; the image
	// records survive with a nulled dream reference.
	var marked []*ImageRecord
	err = s.repository.InTx(ctx, func(repo Repository) error {
		for url := range s.extractor.Extract(dream.Content) {
			record, ok := s.markImageForDeletion(ctx, repo, userID, url)
			if ok {
				marked = append(marked, record)
			}
		}
		return repo.DeleteDream(ctx, id)
	})
	if err != nil {
		return nil, &DreamError{DreamID: id, Op: "delete", Err: err}
	}

	s.fireEvent("dream deleted", func() error { return s.eventSink.DreamDeleted(ctx, id) })

	return marked, nil
}

func (s *service) ListDreams(ctx context.Context, userID uuid.UUID) ([]*Dream, error) {
	return s.repository.ListDreams(ctx, userID)
}

func (s *service) ToggleFavorite(ctx context.Context, userID, id uuid.UUID) (*Dream, error) {
	dream, err := s.repository.GetDream(ctx, id)
	if err != nil {
		return nil, err
	}
	if dream.UserID != userID {
		return nil, ErrNotDreamOwner
	}

	dream.IsFavorite = !dream.IsFavorite
	dream.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateDream(ctx, dream); err != nil {
		return nil, &DreamError{DreamID: id, Op: "toggle_favorite", Err: err}
	}
	return dream, nil
}

func (s *service) DreamStatistics(ctx context.Context, userID uuid.UUID) (*DreamStatistics, error) {
	dreams, err := s.repository.ListDreams(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &DreamStatistics{Total: len(dreams)}
	for _, d := range dreams {
		if d.IsFavorite {
			stats.Favorites++
		}
		if d.IsRecurring {
			stats.Recurring++
		}
	}
	return stats, nil
}

// Category and tag operations

func (s *service) SeedCategories(ctx context.Context) error {
	now := time.Now().UTC()
	for _, name := range DefaultCategories {
		category := &DreamCategory{
			ID:        uuid.New(),
			Name:      name,
			ColorCode: "#6366f1",
			CreatedAt: now,
		}
		if err := s.repository.EnsureCategory(ctx, category); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return nil
}

func (s *service) ListCategories(ctx context.Context) ([]*DreamCategory, error) {
	return s.repository.ListCategories(ctx)
}

func (s *service) CreateTag(ctx context.Context, req CreateTagRequest) (*Tag, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: tag name is required", ErrValidation)
	}

	tag := &Tag{
		ID:        uuid.New(),
		Name:      name,
		Type:      req.Type,
		CreatedBy: req.CreatedBy,
		IsPublic:  req.IsPublic,
		CreatedAt: time.Now().UTC(),
	}
	if tag.Type == "" {
		tag.Type = TagTypeCustom
	}

	if err := s.repository.CreateTag(ctx, tag); err != nil {
		return nil, fmt.Errorf("create tag: %w", err)
	}
	return tag, nil
}

func (s *service) ListTags(ctx context.Context, userID uuid.UUID) ([]*Tag, error) {
	return s.repository.ListTags(ctx, userID)
}

// Sleep pattern operations

func (s *service) RecordSleepPattern(ctx context.Context, req RecordSleepRequest) (*SleepPattern, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	pattern := &SleepPattern{
		ID:           uuid.New(),
		UserID:       req.UserID,
		Date:         req.Date,
		Bedtime:      req.Bedtime,
		SleepTime:    req.SleepTime,
		WakeTime:     req.WakeTime,
		SleepQuality: req.SleepQuality,
		Awakenings:   req.Awakenings,
		Notes:        req.Notes,
		CreatedAt:    time.Now().UTC(),
	}
	if req.SleepTime != nil {
		total := req.WakeTime.Sub(*req.SleepTime)
		if total < 0 {
			total += 24 * time.Hour
		}
		pattern.TotalSleep = &total
	}

	if err := s.repository.UpsertSleepPattern(ctx, pattern); err != nil {
		return nil, fmt.Errorf("record sleep pattern: %w", err)
	}
	return pattern, nil
}

func (s *service) ListSleepPatterns(ctx context.Context, userID uuid.UUID) ([]*SleepPattern, error) {
	return s.repository.ListSleepPatterns(ctx, userID)
}

// Image lifecycle operations

func (s *service) PresignUpload(ctx context.Context, req PresignUploadRequest) (*PresignedUpload, error) {
	if s.blobStore == nil {
		return nil, fmt.Errorf("no storage backend configured")
	}
	if _, ok := AllowedImageContentTypes[req.ContentType]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedContentType, req.ContentType)
	}

	key := s.keys.PresignKey(req.UserID, req.FileName, time.Now().UTC())
	grant, err := s.blobStore.PresignUpload(ctx, key, req.ContentType)
	if err != nil {
		return nil, &StorageError{Key: key, Op: "presign", Err: err}
	}

	// Pre-register the record optimistically; if the client never uploads,
	// the next reconciliation marks it and the sweep collects it.
	now := time.Now().UTC()
	record := &ImageRecord{
		ID:               uuid.New(),
		UserID:           req.UserID,
		DreamID:          req.DreamID,
		URL:              grant.AccessURL,
		FileKey:          grant.FileKey,
		Status:           ImageStatusActive,
		CreatedAt:        now,
		LastReferencedAt: now,
	}
	if err := s.repository.CreateImage(ctx, record); err != nil {
		s.logger.Warn("failed to pre-register presigned image", "key", key, "error", err)
	}

	return grant, nil
}

func (s *service) ImageStats(ctx context.Context, userID uuid.UUID) (ImageStats, error) {
	return s.repository.CountImagesByStatus(ctx, userID)
}

func (s *service) fireEvent(name string, fn func() error) {
	if err := fn(); err != nil {
		s.logger.Error("event sink failed", "event", name, "error", err)
	}
}
