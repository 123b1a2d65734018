package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/workplace-reservations/internal/persistence"
)

// ParticipantRepository implements persistence.ParticipantRepository using
// SQLite.
type ParticipantRepository struct {
	db *DB
}

// NewParticipantRepository creates a new SQLite participant repository.
func NewParticipantRepository(db *DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// AddParticipants inserts invitee rows in one transaction so a duplicate
// (booking, user) pair leaves no partial insert behind.
func (r *ParticipantRepository) AddParticipants(ctx context.Context, participants []persistence.Participant) error {
	if len(participants) == 0 {
		return nil
	}

	return r.db.withTransaction(ctx, func(tx *sql.Tx) error {
		return insertParticipantsTx(ctx, tx, participants)
	})
}

// GetParticipant retrieves a participant row by ID.
func (r *ParticipantRepository) GetParticipant(ctx context.Context, id string) (persistence.Participant, error) {
	if id == "" {
		return persistence.Participant{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, booking_id, user_id, role, status, created_at, updated_at
		FROM booking_participants
		WHERE id = ?
	`

	participant, err := scanParticipant(r.db.handle.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Participant{}, persistence.ErrNotFound
		}
		return persistence.Participant{}, mapError(err)
	}
	return participant, nil
}

// UpdateParticipantStatus transitions a row from one status to another with a
// conditional UPDATE, giving per-row atomicity without a broader lock.
func (r *ParticipantRepository) UpdateParticipantStatus(ctx context.Context, id string, from, to persistence.ParticipantStatus, updatedAt time.Time) error {
	result, err := r.db.handle.ExecContext(ctx,
		"UPDATE booking_participants SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(to), updatedAt.Format(time.RFC3339), id, string(from),
	)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Either the row is gone or it is no longer in the expected status.
		var exists int
		err := r.db.handle.QueryRowContext(ctx, "SELECT 1 FROM booking_participants WHERE id = ?", id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ErrNotFound
		}
		if err != nil {
			return mapError(err)
		}
		return persistence.ErrConstraintViolation
	}
	return nil
}

// ListParticipantsForBooking returns participant rows ordered by creation
// time, ties broken by ID.
func (r *ParticipantRepository) ListParticipantsForBooking(ctx context.Context, bookingID string) ([]persistence.Participant, error) {
	query := `
		SELECT id, booking_id, user_id, role, status, created_at, updated_at
		FROM booking_participants
		WHERE booking_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.handle.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var participants []persistence.Participant
	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, mapError(err)
		}
		participants = append(participants, participant)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return participants, nil
}

func insertParticipantsTx(ctx context.Context, tx *sql.Tx, participants []persistence.Participant) error {
	if len(participants) == 0 {
		return nil
	}

	query := `
		INSERT INTO booking_participants (id, booking_id, user_id, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	for _, participant := range participants {
		_, err := tx.ExecContext(ctx, query,
			participant.ID,
			participant.BookingID,
			participant.UserID,
			string(participant.Role),
			string(participant.Status),
			participant.CreatedAt.Format(time.RFC3339),
			participant.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

func scanParticipant(row rowScanner) (persistence.Participant, error) {
	var participant persistence.Participant
	var role, status, createdAtStr, updatedAtStr string

	err := row.Scan(
		&participant.ID,
		&participant.BookingID,
		&participant.UserID,
		&role,
		&status,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Participant{}, err
	}

	participant.Role = persistence.ParticipantRole(role)
	participant.Status = persistence.ParticipantStatus(status)

	if participant.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Participant{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if participant.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Participant{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return participant, nil
}
