package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/workplace-reservations/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	db *DB
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreateBooking inserts the booking and its seed participant rows in one
// transaction. A failure on any row rolls the whole write back.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking, participants []persistence.Participant) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return r.db.withTransaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO bookings (id, resource_id, kind, organizer_id, title, start_time, end_time, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`

		_, err := tx.ExecContext(ctx, query,
			booking.ID,
			booking.ResourceID,
			string(booking.Kind),
			booking.OrganizerID,
			booking.Title,
			booking.Start.Format(time.RFC3339),
			booking.End.Format(time.RFC3339),
			booking.CreatedAt.Format(time.RFC3339),
		)
		if err != nil {
			return mapError(err)
		}

		return insertParticipantsTx(ctx, tx, participants)
	})
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, resource_id, kind, organizer_id, title, start_time, end_time, created_at
		FROM bookings
		WHERE id = ?
	`

	booking, err := scanBooking(r.db.handle.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Booking{}, persistence.ErrNotFound
		}
		return persistence.Booking{}, mapError(err)
	}
	return booking, nil
}

// ListBookings lists bookings matching the filter ordered by start time, ties
// broken by ID.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	query, args := buildBookingListQuery(filter)

	rows, err := r.db.handle.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, mapError(err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return bookings, nil
}

// DeleteBooking removes a booking; the participant cascade is declared in the
// schema.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.db.withTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, "DELETE FROM bookings WHERE id = ?", id)
		if err != nil {
			return mapError(err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

func buildBookingListQuery(filter persistence.BookingFilter) (string, []any) {
	baseQuery := `
		SELECT DISTINCT b.id, b.resource_id, b.kind, b.organizer_id, b.title, b.start_time, b.end_time, b.created_at
		FROM bookings b
	`

	var conditions []string
	var args []any

	if filter.UserID != "" {
		baseQuery += " LEFT JOIN booking_participants bp ON b.id = bp.booking_id"
		conditions = append(conditions, "(b.organizer_id = ? OR bp.user_id = ?)")
		args = append(args, filter.UserID, filter.UserID)
	}

	if filter.ResourceID != "" {
		conditions = append(conditions, "b.resource_id = ?")
		args = append(args, filter.ResourceID)
	}

	if filter.Kind != "" {
		conditions = append(conditions, "b.kind = ?")
		args = append(args, string(filter.Kind))
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}

	baseQuery += " ORDER BY b.start_time ASC, b.id ASC"

	return baseQuery, args
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var kind, startStr, endStr, createdAtStr string

	err := row.Scan(
		&booking.ID,
		&booking.ResourceID,
		&kind,
		&booking.OrganizerID,
		&booking.Title,
		&startStr,
		&endStr,
		&createdAtStr,
	)
	if err != nil {
		return persistence.Booking{}, err
	}

	booking.Kind = persistence.ResourceKind(kind)

	if booking.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if booking.End, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if booking.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse created_at: %w", err)
	}

	return booking, nil
}
