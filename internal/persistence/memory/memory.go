// Package memory provides an in-memory implementation of the persistence
// repositories. It backs tests and DSN-less development runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/workplace-reservations/internal/persistence"
)

// Store implements every repository interface over process-local maps guarded
// by a single RWMutex. Values are cloned on the way in and out so callers can
// never alias stored state.
type Store struct {
	mu           sync.RWMutex
	resources    map[string]persistence.Resource
	bookings     map[string]persistence.Booking
	participants map[string]persistence.Participant
	users        map[string]persistence.User
	sessions     map[string]persistence.Session
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		resources:    make(map[string]persistence.Resource),
		bookings:     make(map[string]persistence.Booking),
		participants: make(map[string]persistence.Participant),
		users:        make(map[string]persistence.User),
		sessions:     make(map[string]persistence.Session),
	}
}

// --- ResourceRepository implementation ---

// CreateResource stores a new catalog entry.
func (s *Store) CreateResource(ctx context.Context, resource persistence.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[resource.ID]; ok {
		return persistence.ErrDuplicate
	}

	s.resources[resource.ID] = cloneResource(resource)
	return nil
}

// GetResource retrieves a resource by ID.
func (s *Store) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resource, ok := s.resources[id]
	if !ok {
		return persistence.Resource{}, persistence.ErrNotFound
	}

	return cloneResource(resource), nil
}

// ListResources returns resources of the given kind ordered by name. An empty
// kind returns the full catalog.
func (s *Store) ListResources(ctx context.Context, kind persistence.ResourceKind) ([]persistence.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resources := make([]persistence.Resource, 0, len(s.resources))
	for _, resource := range s.resources {
		if kind != "" && resource.Kind != kind {
			continue
		}
		resources = append(resources, cloneResource(resource))
	}

	sort.Slice(resources, func(i, j int) bool {
		if resources[i].Name == resources[j].Name {
			return resources[i].ID < resources[j].ID
		}
		return resources[i].Name < resources[j].Name
	})

	return resources, nil
}

// DeleteResource removes a catalog entry by ID.
func (s *Store) DeleteResource(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.resources, id)
	return nil
}

// --- BookingRepository implementation ---

// CreateBooking stores a booking together with its seed participant rows. The
// whole write happens under one lock so either everything lands or nothing
// does.
func (s *Store) CreateBooking(ctx context.Context, booking persistence.Booking, participants []persistence.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[booking.ID]; ok {
		return persistence.ErrDuplicate
	}
	if !booking.Start.Before(booking.End) {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.resources[booking.ResourceID]; !ok {
		return persistence.ErrForeignKeyViolation
	}

	seen := make(map[string]struct{}, len(participants))
	for _, participant := range participants {
		if participant.BookingID != booking.ID {
			return persistence.ErrForeignKeyViolation
		}
		if _, dup := seen[participant.UserID]; dup {
			return persistence.ErrDuplicate
		}
		seen[participant.UserID] = struct{}{}
	}

	s.bookings[booking.ID] = booking
	for _, participant := range participants {
		s.participants[participant.ID] = participant
	}
	return nil
}

// GetBooking retrieves a booking by ID.
func (s *Store) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	return booking, nil
}

// ListBookings returns bookings matching the filter ordered by start time,
// ties broken by ID.
func (s *Store) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookings := make([]persistence.Booking, 0)
	for _, booking := range s.bookings {
		if !s.matchesBookingFilterLocked(booking, filter) {
			continue
		}
		bookings = append(bookings, booking)
	}

	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].Start.Equal(bookings[j].Start) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].Start.Before(bookings[j].Start)
	})

	return bookings, nil
}

// DeleteBooking removes a booking and cascades deletion of its participants.
func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[id]; !ok {
		return persistence.ErrNotFound
	}

	delete(s.bookings, id)
	for participantID, participant := range s.participants {
		if participant.BookingID == id {
			delete(s.participants, participantID)
		}
	}

	return nil
}

func (s *Store) matchesBookingFilterLocked(booking persistence.Booking, filter persistence.BookingFilter) bool {
	if filter.ResourceID != "" && booking.ResourceID != filter.ResourceID {
		return false
	}
	if filter.Kind != "" && booking.Kind != filter.Kind {
		return false
	}
	if filter.UserID != "" {
		if booking.OrganizerID == filter.UserID {
			return true
		}
		for _, participant := range s.participants {
			if participant.BookingID == booking.ID && participant.UserID == filter.UserID {
				return true
			}
		}
		return false
	}
	return true
}

// --- ParticipantRepository implementation ---

// AddParticipants inserts invitee rows, rejecting (booking, user) collisions
// without a partial insert.
func (s *Store) AddParticipants(ctx context.Context, participants []persistence.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(participants))
	for _, participant := range participants {
		if _, ok := s.bookings[participant.BookingID]; !ok {
			return persistence.ErrForeignKeyViolation
		}
		key := participant.BookingID + "\x00" + participant.UserID
		if _, dup := seen[key]; dup {
			return persistence.ErrDuplicate
		}
		seen[key] = struct{}{}
		for _, existing := range s.participants {
			if existing.BookingID == participant.BookingID && existing.UserID == participant.UserID {
				return persistence.ErrDuplicate
			}
		}
	}

	for _, participant := range participants {
		s.participants[participant.ID] = participant
	}
	return nil
}

// GetParticipant retrieves a participant row by ID.
func (s *Store) GetParticipant(ctx context.Context, id string) (persistence.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participant, ok := s.participants[id]
	if !ok {
		return persistence.Participant{}, persistence.ErrNotFound
	}

	return participant, nil
}

// UpdateParticipantStatus transitions a row from one status to another under
// the store lock, giving per-row atomicity.
func (s *Store) UpdateParticipantStatus(ctx context.Context, id string, from, to persistence.ParticipantStatus, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant, ok := s.participants[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if participant.Status != from {
		return persistence.ErrConstraintViolation
	}

	participant.Status = to
	participant.UpdatedAt = updatedAt
	s.participants[id] = participant
	return nil
}

// ListParticipantsForBooking returns participant rows ordered by creation
// time, ties broken by ID.
func (s *Store) ListParticipantsForBooking(ctx context.Context, bookingID string) ([]persistence.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	participants := make([]persistence.Participant, 0)
	for _, participant := range s.participants {
		if participant.BookingID != bookingID {
			continue
		}
		participants = append(participants, participant)
	}

	sort.Slice(participants, func(i, j int) bool {
		if participants[i].CreatedAt.Equal(participants[j].CreatedAt) {
			return participants[i].ID < participants[j].ID
		}
		return participants[i].CreatedAt.Before(participants[j].CreatedAt)
	})

	return participants, nil
}

// --- UserRepository implementation ---

// CreateUser stores a new credential record.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}
	lower := strings.ToLower(user.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == lower {
			return persistence.ErrDuplicate
		}
	}

	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(email)
	for _, user := range s.users {
		if strings.ToLower(user.Email) == lower {
			return user, nil
		}
	}

	return persistence.User{}, persistence.ErrNotFound
}

// ListUsersByRole returns users holding the given role ordered by ID.
func (s *Store) ListUsersByRole(ctx context.Context, role string) ([]persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]persistence.User, 0)
	for _, user := range s.users {
		if user.Role != role {
			continue
		}
		users = append(users, user)
	}

	sort.Slice(users, func(i, j int) bool {
		return users[i].ID < users[j].ID
	})

	return users, nil
}

// --- SessionRepository implementation ---

// CreateSession stores a new session.
func (s *Store) CreateSession(ctx context.Context, session persistence.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.Token]; ok {
		return persistence.ErrDuplicate
	}

	s.sessions[session.Token] = cloneSession(session)
	return nil
}

// GetSession retrieves a session by token.
func (s *Store) GetSession(ctx context.Context, token string) (persistence.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.Session{}, persistence.ErrNotFound
	}

	return cloneSession(session), nil
}

// RevokeSession marks a session revoked at the given instant.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return persistence.ErrNotFound
	}

	session.RevokedAt = &revokedAt
	s.sessions[token] = session
	return nil
}

// DeleteExpiredSessions removes sessions whose expiry precedes the reference.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if session.ExpiresAt.Before(reference) {
			delete(s.sessions, token)
		}
	}

	return nil
}

// --- Helpers ---

func cloneResource(resource persistence.Resource) persistence.Resource {
	resource.Location = cloneString(resource.Location)
	resource.Facilities = cloneString(resource.Facilities)
	resource.PlateNumber = cloneString(resource.PlateNumber)
	resource.FuelType = cloneString(resource.FuelType)
	resource.Transmission = cloneString(resource.Transmission)
	return resource
}

func cloneSession(session persistence.Session) persistence.Session {
	if session.RevokedAt != nil {
		revokedAt := *session.RevokedAt
		session.RevokedAt = &revokedAt
	}
	return session
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
