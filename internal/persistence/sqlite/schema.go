package sqlite

import (
	"context"
	"fmt"
)

// Schema bootstrap. Statements are idempotent so Open can run them on every
// start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS resources (
		id            TEXT PRIMARY KEY,
		kind          TEXT NOT NULL CHECK (kind IN ('room', 'vehicle')),
		name          TEXT NOT NULL,
		location      TEXT,
		capacity      INTEGER NOT NULL DEFAULT 0,
		facilities    TEXT,
		plate_number  TEXT,
		fuel_type     TEXT,
		transmission  TEXT,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id            TEXT PRIMARY KEY,
		resource_id   TEXT NOT NULL REFERENCES resources(id),
		kind          TEXT NOT NULL CHECK (kind IN ('room', 'vehicle')),
		organizer_id  TEXT NOT NULL,
		title         TEXT NOT NULL,
		start_time    TEXT NOT NULL,
		end_time      TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		CHECK (start_time < end_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_resource ON bookings(resource_id, start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_organizer ON bookings(organizer_id)`,
	`CREATE TABLE IF NOT EXISTS booking_participants (
		id          TEXT PRIMARY KEY,
		booking_id  TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		user_id     TEXT NOT NULL,
		role        TEXT NOT NULL CHECK (role IN ('organizer', 'required', 'optional')),
		status      TEXT NOT NULL CHECK (status IN ('pending', 'accepted', 'declined')),
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		UNIQUE (booking_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_participants_user ON booking_participants(user_id)`,
	`CREATE TABLE IF NOT EXISTS users (
		id             TEXT PRIMARY KEY,
		email          TEXT NOT NULL UNIQUE COLLATE NOCASE,
		display_name   TEXT NOT NULL,
		role           TEXT NOT NULL DEFAULT '',
		password_hash  TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id),
		token       TEXT NOT NULL UNIQUE,
		expires_at  TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		revoked_at  TEXT
	)`,
}

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.handle.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
