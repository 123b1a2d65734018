package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/workplace-reservations/internal/persistence"
)

// ParticipantRepository captures the persistence interactions of the
// participant workflow.
type ParticipantRepository interface {
	AddParticipants(ctx context.Context, participants []Participant) error
	GetParticipant(ctx context.Context, id string) (Participant, error)
	ListParticipantsForBooking(ctx context.Context, bookingID string) ([]Participant, error)
	// UpdateParticipantStatus transitions a row from an expected status to a
	// new one. It fails with a constraint error when the row is no longer in
	// the expected status, which keeps concurrent responses single-shot.
	UpdateParticipantStatus(ctx context.Context, id string, from, to ParticipantStatus, updatedAt time.Time) error
}

// ParticipantService runs the invitation workflow attached to room bookings.
type ParticipantService struct {
	bookings     BookingRepository
	participants ParticipantRepository
	directory    Directory
	sink         NotificationSink
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewParticipantService wires the participant workflow.
func NewParticipantService(bookings BookingRepository, participants ParticipantRepository, directory Directory, sink NotificationSink, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ParticipantService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ParticipantService{
		bookings:     bookings,
		participants: participants,
		directory:    directory,
		sink:         sink,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *ParticipantService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ParticipantService", operation, attrs...)
}

// AddParticipants invites more users to an existing room booking. Only the
// organizer or an administrator may invite, and invitations close once the
// booking has ended.
func (s *ParticipantService) AddParticipants(ctx context.Context, params AddParticipantsParams) (added []Participant, err error) {
	if s == nil {
		return nil, fmt.Errorf("ParticipantService is nil")
	}
	if s.bookings == nil || s.participants == nil {
		return nil, fmt.Errorf("participant repositories not configured")
	}

	logger := s.loggerWith(ctx, "AddParticipants",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add participants", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "participants added", "count", len(added))
	}()

	var booking Booking
	booking, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if booking.Kind != ResourceKindRoom {
		vErr := &ValidationError{}
		vErr.add("booking_id", "only room bookings take participants")
		err = vErr
		return
	}
	if booking.OrganizerID != params.Principal.UserID && !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if !booking.End.After(s.now()) {
		vErr := &ValidationError{}
		vErr.add("booking_id", "booking has already ended")
		err = vErr
		return
	}

	vErr := &ValidationError{}
	var invitees []InviteeInput
	invitees, err = normalizeInvitees(params.Invitees, booking.OrganizerID, vErr)
	if len(params.Invitees) == 0 {
		vErr.add("invitees", "at least one invitee is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if err != nil {
		return
	}

	if err = s.rejectExisting(ctx, params.BookingID, invitees); err != nil {
		return
	}
	if err = s.ensureUsersExist(ctx, invitees); err != nil {
		return
	}

	now := s.now()
	rows := make([]Participant, 0, len(invitees))
	for _, invitee := range invitees {
		rows = append(rows, Participant{
			ID:        s.idGenerator(),
			BookingID: params.BookingID,
			UserID:    invitee.UserID,
			Role:      invitee.Role,
			Status:    StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err = s.participants.AddParticipants(ctx, rows); err != nil {
		err = mapParticipantRepoError(err)
		return
	}
	added = rows

	organizerName := displayName(ctx, s.directory, booking.OrganizerID)
	for _, row := range rows {
		message := fmt.Sprintf("%s への招待が届いています: %s", booking.Title, organizerName)
		dispatchNotification(ctx, s.sink, logger, row.UserID, message, NotificationKindInvitation, booking.ID)
	}

	return
}

// Respond records an invitee's answer. A participant answers only their own
// row, only from pending, and only once.
func (s *ParticipantService) Respond(ctx context.Context, params RespondParams) (participant Participant, err error) {
	if s == nil {
		return Participant{}, fmt.Errorf("ParticipantService is nil")
	}
	if s.participants == nil {
		return Participant{}, fmt.Errorf("participant repository not configured")
	}

	logger := s.loggerWith(ctx, "Respond",
		"principal_id", params.Principal.UserID,
		"participant_id", params.ParticipantID,
		"status", string(params.Status),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to record response", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "response recorded")
	}()

	if params.Status != StatusAccepted && params.Status != StatusDeclined {
		vErr := &ValidationError{}
		vErr.add("status", "status must be accepted or declined")
		err = vErr
		return
	}

	var current Participant
	current, err = s.participants.GetParticipant(ctx, params.ParticipantID)
	if err != nil {
		err = mapParticipantRepoError(err)
		return
	}
	if current.UserID != params.Principal.UserID {
		err = ErrUnauthorized
		return
	}
	if current.Role == RoleOrganizer || current.Status != StatusPending {
		err = ErrInvalidTransition
		return
	}

	now := s.now()
	if err = s.participants.UpdateParticipantStatus(ctx, params.ParticipantID, StatusPending, params.Status, now); err != nil {
		err = mapParticipantRepoError(err)
		return
	}

	participant = current
	participant.Status = params.Status
	participant.UpdatedAt = now

	if s.bookings != nil {
		if booking, bookingErr := s.bookings.GetBooking(ctx, current.BookingID); bookingErr == nil {
			verb := "承諾しました"
			if params.Status == StatusDeclined {
				verb = "辞退しました"
			}
			message := fmt.Sprintf("%s さんが %s への招待を%s", displayName(ctx, s.directory, current.UserID), booking.Title, verb)
			dispatchNotification(ctx, s.sink, logger, booking.OrganizerID, message, NotificationKindResponse, booking.ID)
		}
	}

	return
}

// ListForBooking returns the participant roster of a room booking. Every
// authenticated user may read rosters.
func (s *ParticipantService) ListForBooking(ctx context.Context, bookingID string) ([]Participant, error) {
	if s == nil || s.participants == nil {
		return nil, nil
	}
	if strings.TrimSpace(bookingID) == "" {
		vErr := &ValidationError{}
		vErr.add("booking_id", "booking id is required")
		return nil, vErr
	}
	participants, err := s.participants.ListParticipantsForBooking(ctx, bookingID)
	if err != nil {
		return nil, mapParticipantRepoError(err)
	}
	return participants, nil
}

func (s *ParticipantService) rejectExisting(ctx context.Context, bookingID string, invitees []InviteeInput) error {
	existing, err := s.participants.ListParticipantsForBooking(ctx, bookingID)
	if err != nil {
		return mapParticipantRepoError(err)
	}
	current := make(map[string]struct{}, len(existing))
	for _, participant := range existing {
		current[participant.UserID] = struct{}{}
	}
	for _, invitee := range invitees {
		if _, ok := current[invitee.UserID]; ok {
			return ErrDuplicateParticipant
		}
	}
	return nil
}

func (s *ParticipantService) ensureUsersExist(ctx context.Context, invitees []InviteeInput) error {
	ids := make([]string, 0, len(invitees))
	for _, invitee := range invitees {
		ids = append(ids, invitee.UserID)
	}
	missing, err := missingUserIDs(ctx, s.directory, ids)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("invitees", fmt.Sprintf("unknown user ids: %s", strings.Join(missing, ", ")))
	return vErr
}

func mapParticipantRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrDuplicateParticipant
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return ErrInvalidTransition
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	return err
}
