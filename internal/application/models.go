package application

import "time"

// Principal represents the authenticated user invoking a service method. It is
// always injected server-side from the validated session; client supplied
// actor identifiers are never trusted for authorization decisions.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// ResourceKind distinguishes the two bookable resource pools.
type ResourceKind string

const (
	// ResourceKindRoom identifies meeting room resources.
	ResourceKindRoom ResourceKind = "room"
	// ResourceKindVehicle identifies company vehicle resources.
	ResourceKindVehicle ResourceKind = "vehicle"
)

// Valid reports whether the kind names a known resource pool.
func (k ResourceKind) Valid() bool {
	return k == ResourceKindRoom || k == ResourceKindVehicle
}

// Resource represents a bookable room or vehicle exposed by the catalog.
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

// Booking represents a committed reservation of one resource for the
// half-open interval [Start, End).
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

// Participant links a room booking to an invited user.
type Participant struct {
	ID        string
	BookingID string
	UserID    string
	Role      ParticipantRole
	Status    ParticipantStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InviteeInput names a user to invite and the role they are invited under.
type InviteeInput struct {
	UserID string
	Role   ParticipantRole
}

// BookingInput captures caller provided booking fields.
type BookingInput struct {
	ResourceID string
	Title      string
	Start      time.Time
	End        time.Time
	Invitees   []InviteeInput
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal Principal
	Input     BookingInput
}

// AddParticipantsParams wraps the data required to invite users to a booking.
type AddParticipantsParams struct {
	Principal Principal
	BookingID string
	Invitees  []InviteeInput
}

// RespondParams wraps the data required to answer an invitation.
type RespondParams struct {
	Principal     Principal
	ParticipantID string
	Status        ParticipantStatus
}

// CalendarEvent is the normalized shape both booking pools project into for
// the unified per-user calendar.
type CalendarEvent struct {
	Kind      ResourceKind
	BookingID string
	Title     string
	Start     time.Time
	End       time.Time
}

// DirectoryUser is the directory collaborator's view of an employee.
type DirectoryUser struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// User represents an employee account used for session issuance.
type User struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}
