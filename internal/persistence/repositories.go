package persistence

import (
	"context"
	"time"
)

// ResourceRepository exposes read-mostly access to the resource catalog.
// Create and Delete exist for the administrative seeding path and tests.
type ResourceRepository interface {
	CreateResource(ctx context.Context, resource Resource) error
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context, kind ResourceKind) ([]Resource, error)
	DeleteResource(ctx context.Context, id string) error
}

// BookingFilter narrows booking queries.
type BookingFilter struct {
	ResourceID string
	Kind       ResourceKind
	// UserID matches bookings where the user is the organizer or, for room
	// bookings, holds a participant row in any status.
	UserID string
}

// BookingRepository stores committed bookings. CreateBooking persists the
// booking and its seed participant rows in one transaction so the organizer
// row can never exist without the booking or vice versa.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking, participants []Participant) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	// DeleteBooking removes the booking and cascades deletion of its
	// participant rows.
	DeleteBooking(ctx context.Context, id string) error
}

// ParticipantRepository stores invitation rows attached to room bookings.
type ParticipantRepository interface {
	// AddParticipants inserts invitee rows; a (booking, user) collision yields
	// ErrDuplicate and no partial insert.
	AddParticipants(ctx context.Context, participants []Participant) error
	GetParticipant(ctx context.Context, id string) (Participant, error)
	// UpdateParticipantStatus transitions a row from one status to another
	// atomically. ErrNotFound is returned when the row is missing,
	// ErrConstraintViolation when the row is no longer in the expected status.
	UpdateParticipantStatus(ctx context.Context, id string, from, to ParticipantStatus, updatedAt time.Time) error
	ListParticipantsForBooking(ctx context.Context, bookingID string) ([]Participant, error)
}

// UserRepository exposes the credential lookups needed for session issuance
// and the directory adapter.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsersByRole(ctx context.Context, role string) ([]User, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}
