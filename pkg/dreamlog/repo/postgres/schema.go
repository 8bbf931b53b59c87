package postgres

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username VARCHAR(16) NOT NULL,
		phone_number VARCHAR(20),
		email VARCHAR(255),
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT users_username_key UNIQUE (username),
		CONSTRAINT users_phone_key UNIQUE (phone_number)
	)`,

	`CREATE TABLE IF NOT EXISTS dreams (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		interpretation TEXT,
		personal_notes TEXT,
		dream_date DATE NOT NULL,
		lucidity_level SMALLINT NOT NULL DEFAULT 0,
		mood_in_dream VARCHAR(20),
		sleep_quality SMALLINT,
		is_recurring BOOLEAN NOT NULL DEFAULT FALSE,
		vividness SMALLINT,
		categories TEXT[] NOT NULL DEFAULT '{}',
		tag_ids UUID[] NOT NULL DEFAULT '{}',
		privacy VARCHAR(20) NOT NULL DEFAULT 'private',
		is_favorite BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dreams_user_date ON dreams (user_id, dream_date DESC)`,

	`CREATE TABLE IF NOT EXISTS dream_categories (
		id UUID PRIMARY KEY,
		name VARCHAR(50) NOT NULL,
		description TEXT,
		color_code VARCHAR(7) NOT NULL DEFAULT '#6366f1',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT dream_categories_name_key UNIQUE (name)
	)`,

	`CREATE TABLE IF NOT EXISTS tags (
		id UUID PRIMARY KEY,
		name VARCHAR(50) NOT NULL,
		tag_type VARCHAR(20) NOT NULL DEFAULT 'custom',
		created_by UUID REFERENCES users(id) ON DELETE SET NULL,
		is_public BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS sleep_patterns (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		bedtime TIMESTAMPTZ NOT NULL,
		sleep_time TIMESTAMPTZ,
		wake_time TIMESTAMPTZ NOT NULL,
		sleep_quality SMALLINT NOT NULL,
		total_sleep_minutes INTEGER,
		awakenings SMALLINT NOT NULL DEFAULT 0,
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT sleep_patterns_user_date_key UNIQUE (user_id, date)
	)`,

	`CREATE TABLE IF NOT EXISTS uploaded_images (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		dream_id UUID REFERENCES dreams(id) ON DELETE SET NULL,
		url VARCHAR(1024) NOT NULL,
		file_key VARCHAR(1024) NOT NULL,
		position INTEGER,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		marked_for_delete_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		last_referenced_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT uploaded_images_user_url_key UNIQUE (user_id, url),
		CONSTRAINT uploaded_images_slot_key UNIQUE (dream_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_uploaded_images_status ON uploaded_images (status, marked_for_delete_at)`,
	`CREATE INDEX IF NOT EXISTS idx_uploaded_images_user ON uploaded_images (user_id, status)`,
}

// InitSchema creates all tables and indexes if they do not exist yet.
func InitSchema(ctx context.Context, db DBTX) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
