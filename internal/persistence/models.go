package persistence

import "time"

// ResourceKind distinguishes the two bookable resource pools.
type ResourceKind string

const (
	// ResourceKindRoom identifies meeting room resources.
	ResourceKindRoom ResourceKind = "room"
	// ResourceKindVehicle identifies company vehicle resources.
	ResourceKindVehicle ResourceKind = "vehicle"
)

// Resource represents a bookable room or vehicle catalog entry. Resources are
// created and removed by an external administrative process; this subsystem
// only reads them.
type Resource struct {
	ID           string
	Kind         ResourceKind
	Name         string
	Location     *string
	Capacity     int
	Facilities   *string
	PlateNumber  *string
	FuelType     *string
	Transmission *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Booking represents a committed reservation of one resource for a half-open
// time interval [Start, End).
type Booking struct {
	ID          string
	ResourceID  string
	Kind        ResourceKind
	OrganizerID string
	Title       string
	Start       time.Time
	End         time.Time
	CreatedAt   time.Time
}

// ParticipantRole describes how an invited user relates to a room booking.
type ParticipantRole string

const (
	// RoleOrganizer marks the booking creator's own participant row.
	RoleOrganizer ParticipantRole = "organizer"
	// RoleRequired marks an invitee whose attendance is expected.
	RoleRequired ParticipantRole = "required"
	// RoleOptional marks an invitee whose attendance is optional.
	RoleOptional ParticipantRole = "optional"
)

// ParticipantStatus tracks an invitee's individual response state.
type ParticipantStatus string

const (
	// StatusPending is the initial state of every invitee row.
	StatusPending ParticipantStatus = "pending"
	// StatusAccepted marks a confirmed attendance.
	StatusAccepted ParticipantStatus = "accepted"
	// StatusDeclined marks a declined invitation.
	StatusDeclined ParticipantStatus = "declined"
)

// Participant links a room booking to an invited user. Exactly one row exists
// per (BookingID, UserID) pair.
type Participant struct {
	ID        string
	BookingID string
	UserID    string
	Role      ParticipantRole
	Status    ParticipantStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User represents an employee credential record used for session issuance.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}
