package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/workplace-reservations/internal/interval"
	"github.com/example/workplace-reservations/internal/persistence"
)

// BookingRepository captures the persistence interactions needed by the ledger.
type BookingRepository interface {
	// CreateBooking persists the booking and its seed participant rows
	// atomically.
	CreateBooking(ctx context.Context, booking Booking, participants []Participant) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingRepositoryFilter) ([]Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// BookingRepositoryFilter narrows queries issued to the booking repository.
type BookingRepositoryFilter struct {
	ResourceID string
	Kind       ResourceKind
	UserID     string
}

// ResourceDirectory exposes read-only resource catalog lookups.
type ResourceDirectory interface {
	GetResource(ctx context.Context, id string) (Resource, error)
	ListResources(ctx context.Context, kind ResourceKind) ([]Resource, error)
}

// BookingService is the authoritative ledger for one resource pool. The
// process runs two instances, one per resource kind, sharing the interval
// index, the lock set, and the repositories; the pools meet again only in the
// calendar read model.
type BookingService struct {
	kind         ResourceKind
	bookings     BookingRepository
	participants ParticipantRepository
	resources    ResourceDirectory
	directory    Directory
	index        *interval.Index
	locks        *ResourceLocks
	sink         NotificationSink
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewBookingService wires a ledger instance for the given resource kind.
func NewBookingService(kind ResourceKind, bookings BookingRepository, participants ParticipantRepository, resources ResourceDirectory, directory Directory, index *interval.Index, locks *ResourceLocks, sink NotificationSink, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if index == nil {
		index = interval.NewIndex()
	}
	if locks == nil {
		locks = NewResourceLocks()
	}
	return &BookingService{
		kind:         kind,
		bookings:     bookings,
		participants: participants,
		resources:    resources,
		directory:    directory,
		index:        index,
		locks:        locks,
		sink:         sink,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking validates the request, runs the overlap check and the commit
// as one critical section per resource, and seeds the participant workflow
// for room bookings. The "booking created" notifications go out only after
// the lock is released.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (booking Booking, err error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return Booking{}, fmt.Errorf("booking repository not configured")
	}

	input := params.Input
	organizerID := params.Principal.UserID

	logger := s.loggerWith(ctx, "CreateBooking",
		"principal_id", organizerID,
		"resource_id", input.ResourceID,
		"kind", string(s.kind),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking created")
	}()

	if organizerID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := &ValidationError{}
	validateBookingCore(input, vErr)
	if s.kind != ResourceKindRoom && len(input.Invitees) > 0 {
		vErr.add("invitees", "only room bookings take invitees")
	}
	invitees, inviteeErr := normalizeInvitees(input.Invitees, organizerID, vErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if inviteeErr != nil {
		err = inviteeErr
		return
	}
	if !input.Start.Before(input.End) {
		err = ErrInvalidInterval
		return
	}

	if _, err = s.resolveResource(ctx, input.ResourceID); err != nil {
		return
	}

	inviteeIDs := make([]string, 0, len(invitees)+1)
	inviteeIDs = append(inviteeIDs, organizerID)
	for _, invitee := range invitees {
		inviteeIDs = append(inviteeIDs, invitee.UserID)
	}
	if err = s.ensureUsersExist(ctx, inviteeIDs); err != nil {
		return
	}

	createdAt := s.now()
	booking = Booking{
		ID:          s.idGenerator(),
		ResourceID:  input.ResourceID,
		Kind:        s.kind,
		OrganizerID: organizerID,
		Title:       strings.TrimSpace(input.Title),
		Start:       input.Start,
		End:         input.End,
		CreatedAt:   createdAt,
	}

	seed := s.seedParticipants(booking, invitees, createdAt)

	if err = s.commitBooking(ctx, booking, seed); err != nil {
		booking = Booking{}
		return
	}

	// Lock released; downstream delivery is best-effort.
	organizerName := displayName(ctx, s.directory, organizerID)
	for _, participant := range seed {
		if participant.Role == RoleOrganizer {
			continue
		}
		message := fmt.Sprintf("%s への招待が届いています: %s", booking.Title, organizerName)
		dispatchNotification(ctx, s.sink, logger, participant.UserID, message, NotificationKindInvitation, booking.ID)
	}
	dispatchNotification(ctx, s.sink, logger, organizerID, fmt.Sprintf("予約を受け付けました: %s", booking.Title), NotificationKindBookingCreated, booking.ID)

	return
}

// commitBooking is the per-resource critical section: overlap query, durable
// write, index registration. The repository persists the booking and seed rows
// in one transaction, and the index is touched only after a successful commit.
func (s *BookingService) commitBooking(ctx context.Context, booking Booking, seed []Participant) error {
	unlock := s.locks.Lock(booking.ResourceID)
	defer unlock()

	if s.index.Query(booking.ResourceID, booking.Start, booking.End) {
		return ErrConflict
	}

	if err := s.bookings.CreateBooking(ctx, booking, seed); err != nil {
		return mapBookingRepoError(err)
	}

	s.index.Insert(booking.ResourceID, booking.ID, booking.Start, booking.End)
	return nil
}

// CancelBooking removes a booking, its interval, and (for room bookings) its
// participant rows. Only the organizer or an administrator may cancel;
// participants respond, they do not cancel.
func (s *BookingService) CancelBooking(ctx context.Context, principal Principal, bookingID string) (err error) {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}

	logger := s.loggerWith(ctx, "CancelBooking",
		"principal_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	var booking Booking
	booking, err = s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if booking.Kind != s.kind {
		err = ErrNotFound
		return
	}

	if booking.OrganizerID != principal.UserID && !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var notified []Participant
	if booking.Kind == ResourceKindRoom && s.participants != nil {
		notified, _ = s.participants.ListParticipantsForBooking(ctx, bookingID)
	}

	unlock := s.locks.Lock(booking.ResourceID)
	err = func() error {
		defer unlock()
		if err := s.bookings.DeleteBooking(ctx, bookingID); err != nil {
			return mapBookingRepoError(err)
		}
		s.index.Remove(booking.ResourceID, bookingID)
		return nil
	}()
	if err != nil {
		return
	}

	for _, participant := range notified {
		if participant.UserID == booking.OrganizerID {
			continue
		}
		message := fmt.Sprintf("予約がキャンセルされました: %s", booking.Title)
		dispatchNotification(ctx, s.sink, logger, participant.UserID, message, NotificationKindBookingCancelled, booking.ID)
	}

	return
}

// ListByResource enumerates active bookings on one resource of this ledger's
// kind.
func (s *BookingService) ListByResource(ctx context.Context, resourceID string) ([]Booking, error) {
	if s == nil || s.bookings == nil {
		return nil, nil
	}
	return s.list(ctx, BookingRepositoryFilter{ResourceID: resourceID, Kind: s.kind})
}

// ListByUser enumerates bookings visible to the user: as organizer, or for
// room bookings as a participant in any status.
func (s *BookingService) ListByUser(ctx context.Context, userID string) ([]Booking, error) {
	if s == nil || s.bookings == nil {
		return nil, nil
	}
	return s.list(ctx, BookingRepositoryFilter{UserID: userID, Kind: s.kind})
}

// ListAll enumerates every active booking of this ledger's kind.
func (s *BookingService) ListAll(ctx context.Context) ([]Booking, error) {
	if s == nil || s.bookings == nil {
		return nil, nil
	}
	return s.list(ctx, BookingRepositoryFilter{Kind: s.kind})
}

func (s *BookingService) list(ctx context.Context, filter BookingRepositoryFilter) ([]Booking, error) {
	bookings, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, mapBookingRepoError(err)
	}
	return bookings, nil
}

// CheckAvailability reports whether the resource is free for [start, end).
func (s *BookingService) CheckAvailability(ctx context.Context, resourceID string, start, end time.Time) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("BookingService is nil")
	}
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return false, ErrInvalidInterval
	}
	if _, err := s.resolveResource(ctx, resourceID); err != nil {
		return false, err
	}
	return !s.index.Query(resourceID, start, end), nil
}

func (s *BookingService) resolveResource(ctx context.Context, resourceID string) (Resource, error) {
	if s.resources == nil {
		return Resource{ID: resourceID, Kind: s.kind}, nil
	}

	resource, err := s.resources.GetResource(ctx, resourceID)
	if err != nil {
		if isNotFoundError(err) {
			vErr := &ValidationError{}
			vErr.add("resource_id", "resource does not exist")
			return Resource{}, vErr
		}
		return Resource{}, err
	}
	if resource.Kind != s.kind {
		vErr := &ValidationError{}
		vErr.add("resource_id", "resource kind mismatch")
		return Resource{}, vErr
	}
	return resource, nil
}

func (s *BookingService) ensureUsersExist(ctx context.Context, ids []string) error {
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

// seedParticipants builds the rows persisted together with a room booking:
// the organizer, already accepted, plus each invitee in pending state.
func (s *BookingService) seedParticipants(booking Booking, invitees []InviteeInput, createdAt time.Time) []Participant {
	if booking.Kind != ResourceKindRoom {
		return nil
	}

	seed := make([]Participant, 0, len(invitees)+1)
	seed = append(seed, Participant{
		ID:        s.idGenerator(),
		BookingID: booking.ID,
		UserID:    booking.OrganizerID,
		Role:      RoleOrganizer,
		Status:    StatusAccepted,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	})
	for _, invitee := range invitees {
		seed = append(seed, Participant{
			ID:        s.idGenerator(),
			BookingID: booking.ID,
			UserID:    invitee.UserID,
			Role:      invitee.Role,
			Status:    StatusPending,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		})
	}
	return seed
}

func validateBookingCore(input BookingInput, vErr *ValidationError) {
	if strings.TrimSpace(input.ResourceID) == "" {
		vErr.add("resource_id", "resource is required")
	}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}

	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	} else if !isJapanStandardTime(input.Start) {
		vErr.add("start", "start must be in Asia/Tokyo (JST)")
	}

	if input.End.IsZero() {
		vErr.add("end", "end is required")
	} else if !isJapanStandardTime(input.End) {
		vErr.add("end", "end must be in Asia/Tokyo (JST)")
	}
}

// normalizeInvitees validates roles and rejects duplicate invitees, including
// the organizer whose row is seeded separately.
func normalizeInvitees(invitees []InviteeInput, organizerID string, vErr *ValidationError) ([]InviteeInput, error) {
	if len(invitees) == 0 {
		return nil, nil
	}

	seen := map[string]struct{}{organizerID: {}}
	result := make([]InviteeInput, 0, len(invitees))
	for _, invitee := range invitees {
		userID := strings.TrimSpace(invitee.UserID)
		if userID == "" {
			vErr.add("invitees", "invitee user id is required")
			continue
		}
		if invitee.Role != RoleRequired && invitee.Role != RoleOptional {
			vErr.add("invitees", "invitee role must be required or optional")
			continue
		}
		if _, dup := seen[userID]; dup {
			return nil, ErrDuplicateParticipant
		}
		seen[userID] = struct{}{}
		result = append(result, InviteeInput{UserID: userID, Role: invitee.Role})
	}
	return result, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func jstLocation() *time.Location {
	return time.FixedZone("JST", 9*60*60)
}

// isJapanStandardTime reports whether the timestamp is expressed in the
// organization's time basis. Wire timestamps carry only a numeric offset, so
// the offset decides; zone names are not inspected.
func isJapanStandardTime(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	_, offset := t.Zone()
	return offset == 9*60*60
}

func mapBookingRepoError(err error) error {
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
		return ErrInvalidInterval
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		vErr := &ValidationError{}
		vErr.add("resource_id", "resource does not exist")
		return vErr
	}
	return err
}

func isNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}
