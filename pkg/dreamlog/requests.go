package dreamlog

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]{4,16}$`)
	phonePattern    = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

// RegisterUserRequest contains parameters for creating a user account
type RegisterUserRequest struct {
	Username     string
	PhoneNumber  string
	Email        string
	PasswordHash string
}

// Validate checks username and phone formats.
func (r RegisterUserRequest) Validate() error {
	if !usernamePattern.MatchString(r.Username) {
		return fmt.Errorf("%w: username must be 4-16 letters or digits", ErrValidation)
	}
	if r.PhoneNumber != "" && !phonePattern.MatchString(r.PhoneNumber) {
		return fmt.Errorf("%w: invalid phone number", ErrValidation)
	}
	return nil
}

// CreateDreamRequest contains parameters for creating a dream
type CreateDreamRequest struct {
	UserID         uuid.UUID
	Title          string
	Content        string
	Interpretation string
	PersonalNotes  string
	DreamDate      time.Time
	LucidityLevel  int
	MoodInDream    Mood
	SleepQuality   *int
	IsRecurring    bool
	Vividness      *int
	Categories     []CategoryName
	TagIDs         []uuid.UUID
	Privacy        Privacy
}

// Validate checks required fields and the dream date.
func (r CreateDreamRequest) Validate(now time.Time) error {
	if r.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if r.DreamDate.After(now) {
		return fmt.Errorf("%w: dream date cannot be in the future", ErrValidation)
	}
	if r.LucidityLevel < 0 || r.LucidityLevel > 5 {
		return fmt.Errorf("%w: lucidity level must be 0-5", ErrValidation)
	}
	return nil
}

// UpdateDreamRequest contains parameters for updating a dream. Nil pointer
// fields are left unchanged.
type UpdateDreamRequest struct {
	ID     uuid.UUID
	UserID uuid.UUID

	Title          *string
	Content        *string
	Interpretation *string
	PersonalNotes  *string
	DreamDate      *time.Time
	LucidityLevel  *int
	MoodInDream    *Mood
	SleepQuality   *int
	IsRecurring    *bool
	Vividness      *int
	Categories     []CategoryName
	TagIDs         []uuid.UUID
	Privacy        *Privacy
}

// CreateTagRequest contains parameters for creating a tag
type CreateTagRequest struct {
	Name      string
	Type      TagType
	CreatedBy *uuid.UUID
	IsPublic  bool
}

// RecordSleepRequest contains parameters for recording one night of sleep
type RecordSleepRequest struct {
	UserID       uuid.UUID
	Date         time.Time
	Bedtime      time.Time
	SleepTime    *time.Time
	WakeTime     time.Time
	SleepQuality int
	Awakenings   int
	Notes        string
}

// Validate checks the sleep quality range.
func (r RecordSleepRequest) Validate() error {
	if r.SleepQuality < 1 || r.SleepQuality > 5 {
		return fmt.Errorf("%w: sleep quality must be 1-5", ErrValidation)
	}
	return nil
}

// PresignUploadRequest contains parameters for issuing a direct-upload grant
type PresignUploadRequest struct {
	UserID      uuid.UUID
	DreamID     *uuid.UUID
	FileName    string
	ContentType string
}
