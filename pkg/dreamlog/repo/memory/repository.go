package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhanpoint/dream-log/pkg/dreamlog"
)

// Repository implements dreamlog.Repository using in-memory storage
type Repository struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]*dreamlog.User
	dreams        map[uuid.UUID]*dreamlog.Dream
	categories    map[dreamlog.CategoryName]*dreamlog.DreamCategory
	tags          map[uuid.UUID]*dreamlog.Tag
	sleepPatterns map[uuid.UUID]*dreamlog.SleepPattern
	images        map[uuid.UUID]*dreamlog.ImageRecord
	imagesByURL   map[string]uuid.UUID // "user:url" -> image_id
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		users:         make(map[uuid.UUID]*dreamlog.User),
		dreams:        make(map[uuid.UUID]*dreamlog.Dream),
		categories:    make(map[dreamlog.CategoryName]*dreamlog.DreamCategory),
		tags:          make(map[uuid.UUID]*dreamlog.Tag),
		sleepPatterns: make(map[uuid.UUID]*dreamlog.SleepPattern),
		images:        make(map[uuid.UUID]*dreamlog.ImageRecord),
		imagesByURL:   make(map[string]uuid.UUID),
	}
}

// InTx runs fn against the same repository. Individual operations are already
// serialized by the mutex; the in-memory backend does not isolate multi-step
// transactions.
func (r *Repository) InTx(ctx context.Context, fn func(dreamlog.Repository) error) error {
	return fn(r)
}

func urlKey(userID uuid.UUID, url string) string {
	return userID.String() + ":" + url
}

// User operations

func (r *Repository) CreateUser(ctx context.Context, user *dreamlog.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username {
			return dreamlog.ErrDuplicateUsername
		}
		if user.PhoneNumber != "" && existing.PhoneNumber == user.PhoneNumber {
			return dreamlog.ErrDuplicatePhone
		}
	}

	userCopy := *user
	r.users[user.ID] = &userCopy
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*dreamlog.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, dreamlog.ErrUserNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*dreamlog.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			userCopy := *user
			return &userCopy, nil
		}
	}
	return nil, dreamlog.ErrUserNotFound
}

func (r *Repository) GetUserByPhone(ctx context.Context, phone string) (*dreamlog.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.PhoneNumber == phone {
			userCopy := *user
			return &userCopy, nil
		}
	}
	return nil, dreamlog.ErrUserNotFound
}

// Dream operations

func (r *Repository) CreateDream(ctx context.Context, dream *dreamlog.Dream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dreamCopy := *dream
	r.dreams[dream.ID] = &dreamCopy
	return nil
}

func (r *Repository) GetDream(ctx context.Context, id uuid.UUID) (*dreamlog.Dream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dream, exists := r.dreams[id]
	if !exists {
		return nil, dreamlog.ErrDreamNotFound
	}
	dreamCopy := *dream
	return &dreamCopy, nil
}

func (r *Repository) UpdateDream(ctx context.Context, dream *dreamlog.Dream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.dreams[dream.ID]; !exists {
		return dreamlog.ErrDreamNotFound
	}
	dreamCopy := *dream
	r.dreams[dream.ID] = &dreamCopy
	return nil
}

func (r *Repository) DeleteDream(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.dreams[id]; !exists {
		return dreamlog.ErrDreamNotFound
	}
	delete(r.dreams, id)

	// Weak link: surviving image records lose their dream reference.
	for _, img := range r.images {
		if img.DreamID != nil && *img.DreamID == id {
			img.DreamID = nil
		}
	}
	return nil
}

func (r *Repository) ListDreams(ctx context.Context, userID uuid.UUID) ([]*dreamlog.Dream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*dreamlog.Dream
	for _, dream := range r.dreams {
		if dream.UserID == userID {
			dreamCopy := *dream
			result = append(result, &dreamCopy)
		}
	}

	// Newest journal entries first
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DreamDate.Equal(result[j].DreamDate) {
			return result[i].DreamDate.After(result[j].DreamDate)
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Category operations

func (r *Repository) EnsureCategory(ctx context.Context, category *dreamlog.DreamCategory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.categories[category.Name]; exists {
		return nil
	}
	categoryCopy := *category
	r.categories[category.Name] = &categoryCopy
	return nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]*dreamlog.DreamCategory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*dreamlog.DreamCategory
	for _, category := range r.categories {
		categoryCopy := *category
		result = append(result, &categoryCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Tag operations

func (r *Repository) CreateTag(ctx context.Context, tag *dreamlog.Tag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tagCopy := *tag
	r.tags[tag.ID] = &tagCopy
	return nil
}

func (r *Repository) GetTag(ctx context.Context, id uuid.UUID) (*dreamlog.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tag, exists := r.tags[id]
	if !exists {
		return nil, dreamlog.ErrTagNotFound
	}
	tagCopy := *tag
	return &tagCopy, nil
}

func (r *Repository) ListTags(ctx context.Context, userID uuid.UUID) ([]*dreamlog.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*dreamlog.Tag
	for _, tag := range r.tags {
		if tag.IsPublic || (tag.CreatedBy != nil && *tag.CreatedBy == userID) {
			tagCopy := *tag
			result = append(result, &tagCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Sleep pattern operations

func (r *Repository) UpsertSleepPattern(ctx context.Context, pattern *dreamlog.SleepPattern) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := pattern.Date.Format("2006-01-02")
	for id, existing := range r.sleepPatterns {
		if existing.UserID == pattern.UserID && existing.Date.Format("2006-01-02") == day {
			patternCopy := *pattern
			patternCopy.ID = existing.ID
			r.sleepPatterns[id] = &patternCopy
			pattern.ID = existing.ID
			return nil
		}
	}

	patternCopy := *pattern
	r.sleepPatterns[pattern.ID] = &patternCopy
	return nil
}

func (r *Repository) ListSleepPatterns(ctx context.Context, userID uuid.UUID) ([]*dreamlog.SleepPattern, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*dreamlog.SleepPattern
	for _, pattern := range r.sleepPatterns {
		if pattern.UserID == userID {
			patternCopy := *pattern
			result = append(result, &patternCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.After(result[j].Date) })
	return result, nil
}

// Image record operations

func (r *Repository) CreateImage(ctx context.Context, record *dreamlog.ImageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := urlKey(record.UserID, record.URL)
	if _, exists := r.imagesByURL[key]; exists {
		return dreamlog.ErrDuplicateImageURL
	}

	recordCopy := *record
	r.images[record.ID] = &recordCopy
	r.imagesByURL[key] = record.ID
	return nil
}

func (r *Repository) GetImage(ctx context.Context, id uuid.UUID) (*dreamlog.ImageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.images[id]
	if !exists {
		return nil, dreamlog.ErrImageNotFound
	}
	recordCopy := *record
	return &recordCopy, nil
}

func (r *Repository) GetImageByUserAndURL(ctx context.Context, userID uuid.UUID, url string) (*dreamlog.ImageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.imagesByURL[urlKey(userID, url)]
	if !exists {
		return nil, dreamlog.ErrImageNotFound
	}
	recordCopy := *r.images[id]
	return &recordCopy, nil
}

func (r *Repository) UpdateImage(ctx context.Context, record *dreamlog.ImageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.images[record.ID]
	if !exists {
		return dreamlog.ErrImageNotFound
	}

	if existing.URL != record.URL {
		delete(r.imagesByURL, urlKey(existing.UserID, existing.URL))
		r.imagesByURL[urlKey(record.UserID, record.URL)] = record.ID
	}

	recordCopy := *record
	r.images[record.ID] = &recordCopy
	return nil
}

func (r *Repository) DeleteImage(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.images[id]
	if !exists {
		return dreamlog.ErrImageNotFound
	}
	delete(r.imagesByURL, urlKey(record.UserID, record.URL))
	delete(r.images, id)
	return nil
}

func (r *Repository) ListImagesByUser(ctx context.Context, userID uuid.UUID) ([]*dreamlog.ImageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*dreamlog.ImageRecord
	for _, record := range r.images {
		if record.UserID == userID {
			recordCopy := *record
			result = append(result, &recordCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *Repository) ListImagesByDream(ctx context.Context, dreamID uuid.UUID) ([]*dreamlog.ImageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*dreamlog.ImageRecord
	for _, record := range r.images {
		if record.DreamID != nil && *record.DreamID == dreamID {
			recordCopy := *record
			result = append(result, &recordCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		pi, pj := 0, 0
		if result[i].Position != nil {
			pi = *result[i].Position
		}
		if result[j].Position != nil {
			pj = *result[j].Position
		}
		return pi < pj
	})
	return result, nil
}

func (r *Repository) ListExpiredPendingDelete(ctx context.Context, cutoff time.Time) ([]*dreamlog.ImageRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*dreamlog.ImageRecord
	for _, record := range r.images {
		if record.Status == dreamlog.ImageStatusPendingDelete &&
			record.MarkedForDeleteAt != nil &&
			!record.MarkedForDeleteAt.After(cutoff) {
			recordCopy := *record
			result = append(result, &recordCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].MarkedForDeleteAt.Before(*result[j].MarkedForDeleteAt)
	})
	return result, nil
}

func (r *Repository) UpsertImageByDreamPosition(ctx context.Context, record *dreamlog.ImageRecord) (dreamlog.UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.DreamID == nil || record.Position == nil {
		return dreamlog.UpsertResult{}, dreamlog.ErrValidation
	}

	for _, existing := range r.images {
		if existing.DreamID != nil && *existing.DreamID == *record.DreamID &&
			existing.Position != nil && *existing.Position == *record.Position {
			if existing.URL != record.URL {
				delete(r.imagesByURL, urlKey(existing.UserID, existing.URL))
				existing.URL = record.URL
				existing.FileKey = record.FileKey
				r.imagesByURL[urlKey(existing.UserID, existing.URL)] = existing.ID
			}
			existing.LastReferencedAt = time.Now().UTC()
			existingCopy := *existing
			return dreamlog.UpsertResult{Record: &existingCopy, Created: false}, nil
		}
	}

	recordCopy := *record
	r.images[record.ID] = &recordCopy
	r.imagesByURL[urlKey(record.UserID, record.URL)] = record.ID
	resultCopy := recordCopy
	return dreamlog.UpsertResult{Record: &resultCopy, Created: true}, nil
}

func (r *Repository) CountImagesByStatus(ctx context.Context, userID uuid.UUID) (dreamlog.ImageStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats dreamlog.ImageStats
	for _, record := range r.images {
		if record.UserID != userID {
			continue
		}
		stats.Total++
		switch record.Status {
		case dreamlog.ImageStatusActive:
			stats.Active++
		case dreamlog.ImageStatusPendingDelete:
			stats.PendingDelete++
		}
	}
	return stats, nil
}
