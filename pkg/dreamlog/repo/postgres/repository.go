package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zhanpoint/dream-log/pkg/dreamlog"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements dreamlog.Repository using PostgreSQL
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL repository. Without a pool, InTx runs the
// callback against the same connection without opening a transaction.
func New(db DBTX) dreamlog.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) dreamlog.Repository {
	return &Repository{db: pool, pool: pool}
}

// InTx runs fn inside a single transaction. Nested calls reuse the ambient
// transaction.
func (r *Repository) InTx(ctx context.Context, fn func(dreamlog.Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Repository{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "username") {
				return dreamlog.ErrDuplicateUsername
			}
			if strings.Contains(pgErr.ConstraintName, "phone") {
				return dreamlog.ErrDuplicatePhone
			}
			if strings.Contains(pgErr.ConstraintName, "uploaded_images") {
				return dreamlog.ErrDuplicateImageURL
			}
			return fmt.Errorf("duplicate entry in %s: %s", operation, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found in %s", operation)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// User operations

func (r *Repository) CreateUser(ctx context.Context, user *dreamlog.User) error {
	query := `
		INSERT INTO users (id, username, phone_number, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		user.ID, user.Username, nullString(user.PhoneNumber), nullString(user.Email),
		user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create user", err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id uuid.UUID) (*dreamlog.User, error) {
	return r.getUserWhere(ctx, "id = $1", id)
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*dreamlog.User, error) {
	return r.getUserWhere(ctx, "username = $1", username)
}

func (r *Repository) GetUserByPhone(ctx context.Context, phone string) (*dreamlog.User, error) {
	return r.getUserWhere(ctx, "phone_number = $1", phone)
}

func (r *Repository) getUserWhere(ctx context.Context, cond string, arg interface{}) (*dreamlog.User, error) {
	query := `
		SELECT id, username, COALESCE(phone_number, ''), COALESCE(email, ''),
		       password_hash, created_at, updated_at
		FROM users
		WHERE ` + cond

	var user dreamlog.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.PhoneNumber, &user.Email,
		&user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dreamlog.ErrUserNotFound
		}
		return nil, r.handlePostgresError("get user", err)
	}
	return &user, nil
}

// Dream operations

const dreamColumns = `
	id, user_id, title, content, COALESCE(interpretation, ''), COALESCE(personal_notes, ''),
	dream_date, lucidity_level, COALESCE(mood_in_dream, ''), sleep_quality, is_recurring,
	vividness, categories, tag_ids, privacy, is_favorite, created_at, updated_at`

func (r *Repository) CreateDream(ctx context.Context, dream *dreamlog.Dream) error {
	query := `
		INSERT INTO dreams (
			id, user_id, title, content, interpretation, personal_notes,
			dream_date, lucidity_level, mood_in_dream, sleep_quality, is_recurring,
			vividness, categories, tag_ids, privacy, is_favorite, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.Exec(ctx, query,
		dream.ID, dream.UserID, dream.Title, dream.Content,
		nullString(dream.Interpretation), nullString(dream.PersonalNotes),
		dream.DreamDate, dream.LucidityLevel, nullString(string(dream.MoodInDream)),
		dream.SleepQuality, dream.IsRecurring, dream.Vividness,
		categoryArray(dream.Categories), dream.TagIDs,
		dream.Privacy, dream.IsFavorite, dream.CreatedAt, dream.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create dream", err)
	}
	return nil
}

func (r *Repository) GetDream(ctx context.Context, id uuid.UUID) (*dreamlog.Dream, error) {
	query := `SELECT ` + dreamColumns + ` FROM dreams WHERE id = $1`

	dream, err := scanDream(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dreamlog.ErrDreamNotFound
		}
		return nil, r.handlePostgresError("get dream", err)
	}
	return dream, nil
}

func (r *Repository) UpdateDream(ctx context.Context, dream *dreamlog.Dream) error {
	query := `
		UPDATE dreams SET
			title = $2, content = $3, interpretation = $4, personal_notes = $5,
			dream_date = $6, lucidity_level = $7, mood_in_dream = $8, sleep_quality = $9,
			is_recurring = $10, vividness = $11, categories = $12, tag_ids = $13,
			privacy = $14, is_favorite = $15, updated_at = $16
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		dream.ID, dream.Title, dream.Content,
		nullString(dream.Interpretation), nullString(dream.PersonalNotes),
		dream.DreamDate, dream.LucidityLevel, nullString(string(dream.MoodInDream)),
		dream.SleepQuality, dream.IsRecurring, dream.Vividness,
		categoryArray(dream.Categories), dream.TagIDs,
		dream.Privacy, dream.IsFavorite, dream.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("update dream", err)
	}
	if tag.RowsAffected() == 0 {
		return dreamlog.ErrDreamNotFound
	}
	return nil
}

func (r *Repository) DeleteDream(ctx context.Context, id uuid.UUID) error {
	// Image records keep living after the dream is gone; only the link is
	// severed (ON DELETE SET NULL also covers this at the schema level).
	if _, err := r.db.Exec(ctx,
		`UPDATE uploaded_images SET dream_id = NULL WHERE dream_id = $1`, id); err != nil {
		return r.handlePostgresError("unlink dream images", err)
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM dreams WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete dream", err)
	}
	if tag.RowsAffected() == 0 {
		return dreamlog.ErrDreamNotFound
	}
	return nil
}

func (r *Repository) ListDreams(ctx context.Context, userID uuid.UUID) ([]*dreamlog.Dream, error) {
	query := `SELECT ` + dreamColumns + `
		FROM dreams
		WHERE user_id = $1
		ORDER BY dream_date DESC, created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, r.handlePostgresError("list dreams", err)
	}
	defer rows.Close()

	var dreams []*dreamlog.Dream
	for rows.Next() {
		dream, err := scanDream(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan dream", err)
		}
		dreams = append(dreams, dream)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate dream rows", err)
	}
	return dreams, nil
}

func scanDream(row pgx.Row) (*dreamlog.Dream, error) {
	var dream dreamlog.Dream
	var mood string
	var categories []string
	err := row.Scan(
		&dream.ID, &dream.UserID, &dream.Title, &dream.Content,
		&dream.Interpretation, &dream.PersonalNotes,
		&dream.DreamDate, &dream.LucidityLevel, &mood, &dream.SleepQuality,
		&dream.IsRecurring, &dream.Vividness, &categories, &dream.TagIDs,
		&dream.Privacy, &dream.IsFavorite, &dream.CreatedAt, &dream.UpdatedAt)
	if err != nil {
		return nil, err
	}
	dream.MoodInDream = dreamlog.Mood(mood)
	for _, c := range categories {
		dream.Categories = append(dream.Categories, dreamlog.CategoryName(c))
	}
	return &dream, nil
}

// Category operations

func (r *Repository) EnsureCategory(ctx context.Context, category *dreamlog.DreamCategory) error {
	query := `
		INSERT INTO dream_categories (id, name, description, color_code, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO NOTHING`

	_, err := r.db.Exec(ctx, query,
		category.ID, category.Name, nullString(category.Description),
		category.ColorCode, category.CreatedAt)
	if err != nil {
		return r.handlePostgresError("ensure category", err)
	}
	return nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]*dreamlog.DreamCategory, error) {
	query := `
		SELECT id, name, COALESCE(description, ''), color_code, created_at
		FROM dream_categories
		ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handlePostgresError("list categories", err)
	}
	defer rows.Close()

	var categories []*dreamlog.DreamCategory
	for rows.Next() {
		var category dreamlog.DreamCategory
		if err := rows.Scan(&category.ID, &category.Name, &category.Description,
			&category.ColorCode, &category.CreatedAt); err != nil {
			return nil, r.handlePostgresError("scan category", err)
		}
		categories = append(categories, &category)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate category rows", err)
	}
	return categories, nil
}

// Tag operations

func (r *Repository) CreateTag(ctx context.Context, tag *dreamlog.Tag) error {
	query := `
		INSERT INTO tags (id, name, tag_type, created_by, is_public, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		tag.ID, tag.Name, tag.Type, tag.CreatedBy, tag.IsPublic, tag.CreatedAt)
	if err != nil {
		return r.handlePostgresError("create tag", err)
	}
	return nil
}

func (r *Repository) GetTag(ctx context.Context, id uuid.UUID) (*dreamlog.Tag, error) {
	query := `
		SELECT id, name, tag_type, created_by, is_public, created_at
		FROM tags
		WHERE id = $1`

	var tag dreamlog.Tag
	err := r.db.QueryRow(ctx, query, id).Scan(
		&tag.ID, &tag.Name, &tag.Type, &tag.CreatedBy, &tag.IsPublic, &tag.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dreamlog.ErrTagNotFound
		}
		return nil, r.handlePostgresError("get tag", err)
	}
	return &tag, nil
}

func (r *Repository) ListTags(ctx context.Context, userID uuid.UUID) ([]*dreamlog.Tag, error) {
	query := `
		SELECT id, name, tag_type, created_by, is_public, created_at
		FROM tags
		WHERE is_public = TRUE OR created_by = $1
		ORDER BY name`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, r.handlePostgresError("list tags", err)
	}
	defer rows.Close()

	var tags []*dreamlog.Tag
	for rows.Next() {
		var tag dreamlog.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Type, &tag.CreatedBy,
			&tag.IsPublic, &tag.CreatedAt); err != nil {
			return nil, r.handlePostgresError("scan tag", err)
		}
		tags = append(tags, &tag)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate tag rows", err)
	}
	return tags, nil
}

// Sleep pattern operations

func (r *Repository) UpsertSleepPattern(ctx context.Context, pattern *dreamlog.SleepPattern) error {
	query := `
		INSERT INTO sleep_patterns (
			id, user_id, date, bedtime, sleep_time, wake_time,
			sleep_quality, total_sleep_minutes, awakenings, notes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, date) DO UPDATE SET
			bedtime = EXCLUDED.bedtime,
			sleep_time = EXCLUDED.sleep_time,
			wake_time = EXCLUDED.wake_time,
			sleep_quality = EXCLUDED.sleep_quality,
			total_sleep_minutes = EXCLUDED.total_sleep_minutes,
			awakenings = EXCLUDED.awakenings,
			notes = EXCLUDED.notes
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		pattern.ID, pattern.UserID, pattern.Date, pattern.Bedtime, pattern.SleepTime,
		pattern.WakeTime, pattern.SleepQuality, totalSleepMinutes(pattern.TotalSleep),
		pattern.Awakenings, nullString(pattern.Notes), pattern.CreatedAt).Scan(&pattern.ID)
	if err != nil {
		return r.handlePostgresError("upsert sleep pattern", err)
	}
	return nil
}

func (r *Repository) ListSleepPatterns(ctx context.Context, userID uuid.UUID) ([]*dreamlog.SleepPattern, error) {
	query := `
		SELECT id, user_id, date, bedtime, sleep_time, wake_time,
		       sleep_quality, total_sleep_minutes, awakenings, COALESCE(notes, ''), created_at
		FROM sleep_patterns
		WHERE user_id = $1
		ORDER BY date DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, r.handlePostgresError("list sleep patterns", err)
	}
	defer rows.Close()

	var patterns []*dreamlog.SleepPattern
	for rows.Next() {
		var pattern dreamlog.SleepPattern
		var minutes *int
		if err := rows.Scan(&pattern.ID, &pattern.UserID, &pattern.Date,
			&pattern.Bedtime, &pattern.SleepTime, &pattern.WakeTime,
			&pattern.SleepQuality, &minutes, &pattern.Awakenings,
			&pattern.Notes, &pattern.CreatedAt); err != nil {
			return nil, r.handlePostgresError("scan sleep pattern", err)
		}
		if minutes != nil {
			d := time.Duration(*minutes) * time.Minute
			pattern.TotalSleep = &d
		}
		patterns = append(patterns, &pattern)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate sleep pattern rows", err)
	}
	return patterns, nil
}

// Image record operations

const imageColumns = `
	id, user_id, dream_id, url, file_key, position, status,
	marked_for_delete_at, created_at, last_referenced_at`

func (r *Repository) CreateImage(ctx context.Context, record *dreamlog.ImageRecord) error {
	query := `
		INSERT INTO uploaded_images (
			id, user_id, dream_id, url, file_key, position, status,
			marked_for_delete_at, created_at, last_referenced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		record.ID, record.UserID, record.DreamID, record.URL, record.FileKey,
		record.Position, record.Status, record.MarkedForDeleteAt,
		record.CreatedAt, record.LastReferencedAt)
	if err != nil {
		return r.handlePostgresError("create image", err)
	}
	return nil
}

func (r *Repository) GetImage(ctx context.Context, id uuid.UUID) (*dreamlog.ImageRecord, error) {
	query := `SELECT ` + imageColumns + ` FROM uploaded_images WHERE id = $1`

	record, err := scanImage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dreamlog.ErrImageNotFound
		}
		return nil, r.handlePostgresError("get image", err)
	}
	return record, nil
}

func (r *Repository) GetImageByUserAndURL(ctx context.Context, userID uuid.UUID, url string) (*dreamlog.ImageRecord, error) {
	query := `SELECT ` + imageColumns + ` FROM uploaded_images WHERE user_id = $1 AND url = $2`

	record, err := scanImage(r.db.QueryRow(ctx, query, userID, url))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, dreamlog.ErrImageNotFound
		}
		return nil, r.handlePostgresError("get image by url", err)
	}
	return record, nil
}

func (r *Repository) UpdateImage(ctx context.Context, record *dreamlog.ImageRecord) error {
	query := `
		UPDATE uploaded_images SET
			dream_id = $2, url = $3, file_key = $4, position = $5, status = $6,
			marked_for_delete_at = $7, last_referenced_at = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		record.ID, record.DreamID, record.URL, record.FileKey, record.Position,
		record.Status, record.MarkedForDeleteAt, record.LastReferencedAt)
	if err != nil {
		return r.handlePostgresError("update image", err)
	}
	if tag.RowsAffected() == 0 {
		return dreamlog.ErrImageNotFound
	}
	return nil
}

func (r *Repository) DeleteImage(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM uploaded_images WHERE id = $1`, id)
	if err != nil {
		return r.handlePostgresError("delete image", err)
	}
	if tag.RowsAffected() == 0 {
		return dreamlog.ErrImageNotFound
	}
	return nil
}

func (r *Repository) ListImagesByUser(ctx context.Context, userID uuid.UUID) ([]*dreamlog.ImageRecord, error) {
	query := `SELECT ` + imageColumns + `
		FROM uploaded_images
		WHERE user_id = $1
		ORDER BY created_at DESC`
	return r.listImages(ctx, query, userID)
}

func (r *Repository) ListImagesByDream(ctx context.Context, dreamID uuid.UUID) ([]*dreamlog.ImageRecord, error) {
	query := `SELECT ` + imageColumns + `
		FROM uploaded_images
		WHERE dream_id = $1
		ORDER BY position NULLS LAST, created_at`
	return r.listImages(ctx, query, dreamID)
}

func (r *Repository) ListExpiredPendingDelete(ctx context.Context, cutoff time.Time) ([]*dreamlog.ImageRecord, error) {
	query := `SELECT ` + imageColumns + `
		FROM uploaded_images
		WHERE status = $1 AND marked_for_delete_at <= $2
		ORDER BY marked_for_delete_at`
	return r.listImages(ctx, query, dreamlog.ImageStatusPendingDelete, cutoff)
}

func (r *Repository) listImages(ctx context.Context, query string, args ...interface{}) ([]*dreamlog.ImageRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list images", err)
	}
	defer rows.Close()

	var records []*dreamlog.ImageRecord
	for rows.Next() {
		record, err := scanImage(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan image", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("iterate image rows", err)
	}
	return records, nil
}

func (r *Repository) UpsertImageByDreamPosition(ctx context.Context, record *dreamlog.ImageRecord) (dreamlog.UpsertResult, error) {
	if record.DreamID == nil || record.Position == nil {
		return dreamlog.UpsertResult{}, dreamlog.ErrValidation
	}

	query := `
		INSERT INTO uploaded_images (
			id, user_id, dream_id, url, file_key, position, status,
			marked_for_delete_at, created_at, last_referenced_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (dream_id, position) DO UPDATE SET
			url = EXCLUDED.url,
			file_key = EXCLUDED.file_key,
			last_referenced_at = EXCLUDED.last_referenced_at
		RETURNING ` + imageColumns + `, (xmax = 0) AS inserted`

	var result dreamlog.ImageRecord
	var inserted bool
	err := r.db.QueryRow(ctx, query,
		record.ID, record.UserID, record.DreamID, record.URL, record.FileKey,
		record.Position, record.Status, record.MarkedForDeleteAt,
		record.CreatedAt, record.LastReferencedAt).Scan(
		&result.ID, &result.UserID, &result.DreamID, &result.URL, &result.FileKey,
		&result.Position, &result.Status, &result.MarkedForDeleteAt,
		&result.CreatedAt, &result.LastReferencedAt, &inserted)
	if err != nil {
		return dreamlog.UpsertResult{}, r.handlePostgresError("upsert image by slot", err)
	}
	return dreamlog.UpsertResult{Record: &result, Created: inserted}, nil
}

func (r *Repository) CountImagesByStatus(ctx context.Context, userID uuid.UUID) (dreamlog.ImageStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3)
		FROM uploaded_images
		WHERE user_id = $1`

	var stats dreamlog.ImageStats
	err := r.db.QueryRow(ctx, query, userID,
		dreamlog.ImageStatusActive, dreamlog.ImageStatusPendingDelete).Scan(
		&stats.Total, &stats.Active, &stats.PendingDelete)
	if err != nil {
		return dreamlog.ImageStats{}, r.handlePostgresError("count images", err)
	}
	return stats, nil
}

func scanImage(row pgx.Row) (*dreamlog.ImageRecord, error) {
	var record dreamlog.ImageRecord
	err := row.Scan(
		&record.ID, &record.UserID, &record.DreamID, &record.URL, &record.FileKey,
		&record.Position, &record.Status, &record.MarkedForDeleteAt,
		&record.CreatedAt, &record.LastReferencedAt)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Helpers

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func totalSleepMinutes(d *time.Duration) *int {
	if d == nil {
		return nil
	}
	minutes := int(d.Minutes())
	return &minutes
}

func categoryArray(categories []dreamlog.CategoryName) []string {
	if len(categories) == 0 {
		return nil
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}
	return names
}
