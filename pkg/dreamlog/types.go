package dreamlog

import (
	"time"

	"github.com/google/uuid"
)

// ImageStatus is the domain type for image record lifecycle states.
type ImageStatus string

// Image status constants (typed). A purged image has no record at all; there
// is no "purged" status value.
const (
	ImageStatusActive        ImageStatus = "active"
	ImageStatusPendingDelete ImageStatus = "pending_delete"
)

// Privacy is the visibility setting of a dream.
type Privacy string

const (
	PrivacyPrivate Privacy = "private"
	PrivacyPublic  Privacy = "public"
	PrivacyFriends Privacy = "friends"
)

// Mood classifies the emotional tone around a dream.
type Mood string

const (
	MoodVeryNegative Mood = "very_negative"
	MoodNegative     Mood = "negative"
	MoodNeutral      Mood = "neutral"
	MoodPositive     Mood = "positive"
	MoodVeryPositive Mood = "very_positive"
)

// CategoryName is one of the fixed dream category identifiers.
type CategoryName string

const (
	CategoryNormal         CategoryName = "normal"
	CategoryLucid          CategoryName = "lucid"
	CategoryNightmare      CategoryName = "nightmare"
	CategoryRecurring      CategoryName = "recurring"
	CategoryProphetic      CategoryName = "prophetic"
	CategoryHealing        CategoryName = "healing"
	CategorySpiritual      CategoryName = "spiritual"
	CategoryCreative       CategoryName = "creative"
	CategoryHypnagogic     CategoryName = "hypnagogic"
	CategoryHypnopompic    CategoryName = "hypnopompic"
	CategorySleepParalysis CategoryName = "sleep_paralysis"
	CategoryFalseAwakening CategoryName = "false_awakening"
	CategoryAnxiety        CategoryName = "anxiety"
	CategoryJoyful         CategoryName = "joyful"
	CategoryMelancholic    CategoryName = "melancholic"
	CategoryAdventure      CategoryName = "adventure"
)

// DefaultCategories is the seed set installed by SeedCategories.
var DefaultCategories = []CategoryName{
	CategoryNormal, CategoryLucid, CategoryNightmare, CategoryRecurring,
	CategoryProphetic, CategoryHealing, CategorySpiritual, CategoryCreative,
	CategoryHypnagogic, CategoryHypnopompic, CategorySleepParalysis,
	CategoryFalseAwakening, CategoryAnxiety, CategoryJoyful,
	CategoryMelancholic, CategoryAdventure,
}

// TagType classifies a tag (emotion, character, location, ...).
type TagType string

const (
	TagTypeEmotion   TagType = "emotion"
	TagTypeCharacter TagType = "character"
	TagTypeLocation  TagType = "location"
	TagTypeObject    TagType = "object"
	TagTypeAction    TagType = "action"
	TagTypeSymbol    TagType = "symbol"
	TagTypeColor     TagType = "color"
	TagTypeSound     TagType = "sound"
	TagTypeWeather   TagType = "weather"
	TagTypeTime      TagType = "time"
	TagTypeCustom    TagType = "custom"
)

// User is a registered account. PasswordHash is a bcrypt hash and is never
// serialized.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DreamCategory is one entry of the fixed category vocabulary.
type DreamCategory struct {
	ID          uuid.UUID    `json:"id"`
	Name        CategoryName `json:"name"`
	Description string       `json:"description,omitempty"`
	ColorCode   string       `json:"color_code"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Tag is a typed label attached to dreams. CreatedBy is nil for public tags
// without an owner.
type Tag struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Type      TagType    `json:"type"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
	IsPublic  bool       `json:"is_public"`
	CreatedAt time.Time  `json:"created_at"`
}

// Dream is a user-authored journal entry. Content is a rich-text/HTML blob;
// the image lifecycle only reads embedded image URLs out of it.
type Dream struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Interpretation string    `json:"interpretation,omitempty"`
	PersonalNotes  string    `json:"personal_notes,omitempty"`

	DreamDate     time.Time `json:"dream_date"`
	LucidityLevel int       `json:"lucidity_level"`
	MoodInDream   Mood      `json:"mood_in_dream,omitempty"`
	SleepQuality  *int      `json:"sleep_quality,omitempty"`
	IsRecurring   bool      `json:"is_recurring"`
	Vividness     *int      `json:"vividness,omitempty"`

	Categories []CategoryName `json:"categories,omitempty"`
	TagIDs     []uuid.UUID    `json:"tag_ids,omitempty"`

	Privacy    Privacy   `json:"privacy"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WordCount counts non-space characters in the dream content.
func (d *Dream) WordCount() int {
	n := 0
	for _, r := range d.Content {
		if r != ' ' && r != '\n' && r != '\t' {
			n++
		}
	}
	return n
}

// ReadingTime estimates reading time in minutes, never less than one.
func (d *Dream) ReadingTime() int {
	minutes := d.WordCount() / 200
	if minutes < 1 {
		return 1
	}
	return minutes
}

// SleepPattern records one night of sleep for a user. One row per (user, date).
type SleepPattern struct {
	ID           uuid.UUID      `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	Date         time.Time      `json:"date"`
	Bedtime      time.Time      `json:"bedtime"`
	SleepTime    *time.Time     `json:"sleep_time,omitempty"`
	WakeTime     time.Time      `json:"wake_time"`
	SleepQuality int            `json:"sleep_quality"`
	TotalSleep   *time.Duration `json:"total_sleep,omitempty"`
	Awakenings   int            `json:"awakenings"`
	Notes        string         `json:"notes,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// ImageRecord tracks one uploaded image through its soft-delete lifecycle.
//
// The dream reference is a weak link: deleting the dream nulls it out but
// leaves the record in place so the sweep can purge the stored object later.
// URL is unique per owning user.
type ImageRecord struct {
	ID      uuid.UUID  `json:"id"`
	UserID  uuid.UUID  `json:"user_id"`
	DreamID *uuid.UUID `json:"dream_id,omitempty"`

	URL      string `json:"url"`
	FileKey  string `json:"file_key"`
	Position *int   `json:"position,omitempty"`

	Status            ImageStatus `json:"status"`
	MarkedForDeleteAt *time.Time  `json:"marked_for_delete_at,omitempty"`

	CreatedAt        time.Time `json:"created_at"`
	LastReferencedAt time.Time `json:"last_referenced_at"`
}

// IsPendingDelete reports whether the record is soft-deleted.
func (r *ImageRecord) IsPendingDelete() bool {
	return r.Status == ImageStatusPendingDelete
}

// ReadyForPurge reports whether the record has been pending delete for at
// least threshold.
func (r *ImageRecord) ReadyForPurge(now time.Time, threshold time.Duration) bool {
	if r.Status != ImageStatusPendingDelete || r.MarkedForDeleteAt == nil {
		return false
	}
	return !r.MarkedForDeleteAt.After(now.Add(-threshold))
}

// ReconcileStats reports what one reconciliation pass changed.
type ReconcileStats struct {
	Marked     int `json:"marked"`
	Restored   int `json:"restored"`
	Registered int `json:"registered"`
}

// IsZero reports whether the pass changed nothing.
func (s ReconcileStats) IsZero() bool {
	return s.Marked == 0 && s.Restored == 0 && s.Registered == 0
}

// SweepStats reports one sweep pass over expired pending-delete records.
// StoreFailures counts object-store delete calls that failed; those records
// are still purged, the counter exists for observability.
type SweepStats struct {
	Scanned       int `json:"scanned"`
	Purged        int `json:"purged"`
	StoreFailures int `json:"store_failures"`
}

// ImageStats is the per-user image bookkeeping summary.
type ImageStats struct {
	Total         int `json:"total"`
	Active        int `json:"active"`
	PendingDelete int `json:"pending_delete"`
}

// DreamStatistics aggregates a user's journal.
type DreamStatistics struct {
	Total     int `json:"total"`
	Favorites int `json:"favorites"`
	Recurring int `json:"recurring"`
}

// PresignedUpload is the result of issuing a direct-upload grant.
type PresignedUpload struct {
	UploadURL string    `json:"upload_url"`
	AccessURL string    `json:"access_url"`
	FileKey   string    `json:"file_key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ImageInfo is the per-image payload carried by notification events.
type ImageInfo struct {
	ID       uuid.UUID `json:"id"`
	URL      string    `json:"url"`
	Position int       `json:"position"`
}

// EventStatus is the notification status vocabulary.
type EventStatus string

const (
	EventProcessing       EventStatus = "processing"
	EventCompleted        EventStatus = "completed"
	EventFailed           EventStatus = "failed"
	EventDeleteProcessing EventStatus = "delete_processing"
	EventDeleteCompleted  EventStatus = "delete_completed"
	EventDeleteFailed     EventStatus = "delete_failed"
)

// Event is one status update published to the subscribers of a dream's image
// channel.
type Event struct {
	DreamID   uuid.UUID   `json:"dream_id"`
	Status    EventStatus `json:"status"`
	Images    []ImageInfo `json:"images"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
