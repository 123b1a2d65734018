package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/workplace-reservations/internal/application"
)

type bookingService interface {
	CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error)
	CancelBooking(ctx context.Context, principal application.Principal, bookingID string) error
	ListByResource(ctx context.Context, resourceID string) ([]application.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]application.Booking, error)
	ListAll(ctx context.Context) ([]application.Booking, error)
	CheckAvailability(ctx context.Context, resourceID string, start, end time.Time) (bool, error)
}

// BookingHandler fronts both ledgers. Create requests name the pool via the
// `kind` field; availability and cancellation resolve the pool from the
// resource catalog or by trying the room ledger first.
type BookingHandler struct {
	rooms     bookingService
	vehicles  bookingService
	resources resourceService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(rooms, vehicles bookingService, resources resourceService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{rooms: rooms, vehicles: vehicles, resources: resources, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) serviceFor(kind application.ResourceKind) bookingService {
	switch kind {
	case application.ResourceKindRoom:
		return h.rooms
	case application.ResourceKindVehicle:
		return h.vehicles
	default:
		return nil
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	kind := application.ResourceKind(strings.TrimSpace(req.Kind))
	service := h.serviceFor(kind)
	if service == nil {
		h.responder.handleServiceError(r.Context(), w, kindValidationError())
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	booking, err := service.CreateBooking(r.Context(), application.CreateBookingParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{Booking: toBookingDTO(booking)})
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	err := h.cancelAcross(r.Context(), principal, bookingID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// cancelAcross locates the booking's pool by attempting cancellation on each
// ledger. A ledger reports ErrNotFound for bookings of the other kind.
func (h *BookingHandler) cancelAcross(ctx context.Context, principal application.Principal, bookingID string) error {
	services := []bookingService{h.rooms, h.vehicles}
	for _, service := range services {
		if service == nil {
			continue
		}
		err := service.CancelBooking(ctx, principal, bookingID)
		if err == nil {
			return nil
		}
		if errors.Is(err, application.ErrNotFound) {
			continue
		}
		return err
	}
	return application.ErrNotFound
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	kindParam := strings.TrimSpace(query.Get("kind"))

	var services []bookingService
	if kindParam != "" {
		kind := application.ResourceKind(kindParam)
		service := h.serviceFor(kind)
		if service == nil {
			h.responder.handleServiceError(r.Context(), w, kindValidationError())
			return
		}
		services = []bookingService{service}
	} else {
		services = []bookingService{h.rooms, h.vehicles}
	}

	principal, _ := PrincipalFromContext(r.Context())

	bookings, err := h.listAcross(r.Context(), principal, services, query)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: toBookingDTOs(bookings)})
}

func (h *BookingHandler) listAcross(ctx context.Context, principal application.Principal, services []bookingService, query url.Values) ([]application.Booking, error) {
	resourceID := strings.TrimSpace(query.Get("resource_id"))
	userID := strings.TrimSpace(query.Get("user_id"))

	// Resource-scoped listings are open to any authenticated user. Listing
	// another user's bookings, or the whole ledger, is an admin operation.
	switch {
	case resourceID != "":
	case userID != "":
		if userID != principal.UserID && !principal.IsAdmin {
			return nil, application.ErrUnauthorized
		}
	default:
		if !principal.IsAdmin {
			return nil, application.ErrUnauthorized
		}
	}

	var out []application.Booking
	for _, service := range services {
		if service == nil {
			continue
		}
		var (
			bookings []application.Booking
			err      error
		)
		switch {
		case resourceID != "":
			bookings, err = service.ListByResource(ctx, resourceID)
		case userID != "":
			bookings, err = service.ListByUser(ctx, userID)
		default:
			bookings, err = service.ListAll(ctx)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, bookings...)
	}
	return out, nil
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	resourceID := strings.TrimSpace(query.Get("resource_id"))
	if resourceID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	service, err := h.resolvePool(r.Context(), resourceID, query.Get("kind"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	start := parseTime(query.Get("start"))
	end := parseTime(query.Get("end"))

	available, err := service.CheckAvailability(r.Context(), resourceID, start, end)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		ResourceID: resourceID,
		Start:      start.UTC().Format(time.RFC3339Nano),
		End:        end.UTC().Format(time.RFC3339Nano),
		Available:  available,
	})
}

// resolvePool picks the ledger for an availability query. An explicit `kind`
// parameter wins; otherwise the resource catalog decides.
func (h *BookingHandler) resolvePool(ctx context.Context, resourceID, kindParam string) (bookingService, error) {
	if kindParam = strings.TrimSpace(kindParam); kindParam != "" {
		service := h.serviceFor(application.ResourceKind(kindParam))
		if service == nil {
			return nil, kindValidationError()
		}
		return service, nil
	}
	if h.resources == nil {
		return nil, kindValidationError()
	}
	resource, err := h.resources.GetResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	service := h.serviceFor(resource.Kind)
	if service == nil {
		return nil, kindValidationError()
	}
	return service, nil
}

func kindValidationError() error {
	return application.NewValidationError("kind", "kind must be room or vehicle")
}

type bookingRequest struct {
	Kind       string           `json:"kind"`
	ResourceID string           `json:"resource_id"`
	Title      string           `json:"title"`
	Start      string           `json:"start"`
	End        string           `json:"end"`
	Invitees   []inviteeRequest `json:"invitees"`
}

type inviteeRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (r bookingRequest) toInput() application.BookingInput {
	invitees := make([]application.InviteeInput, 0, len(r.Invitees))
	for _, invitee := range r.Invitees {
		invitees = append(invitees, application.InviteeInput{
			UserID: strings.TrimSpace(invitee.UserID),
			Role:   application.ParticipantRole(strings.TrimSpace(invitee.Role)),
		})
	}
	if len(invitees) == 0 {
		invitees = nil
	}
	return application.BookingInput{
		ResourceID: strings.TrimSpace(r.ResourceID),
		Title:      strings.TrimSpace(r.Title),
		Start:      parseTime(r.Start),
		End:        parseTime(r.End),
		Invitees:   invitees,
	}
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}

type bookingResponse struct {
	Booking bookingDTO `json:"booking"`
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type availabilityResponse struct {
	ResourceID string `json:"resource_id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Available  bool   `json:"available"`
}

type bookingDTO struct {
	ID          string `json:"id"`
	ResourceID  string `json:"resource_id"`
	Kind        string `json:"kind"`
	OrganizerID string `json:"organizer_id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	CreatedAt   string `json:"created_at"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	return bookingDTO{
		ID:          booking.ID,
		ResourceID:  booking.ResourceID,
		Kind:        string(booking.Kind),
		OrganizerID: booking.OrganizerID,
		Title:       booking.Title,
		Start:       booking.Start.UTC().Format(time.RFC3339Nano),
		End:         booking.End.UTC().Format(time.RFC3339Nano),
		CreatedAt:   booking.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toBookingDTOs(bookings []application.Booking) []bookingDTO {
	if len(bookings) == 0 {
		return nil
	}
	out := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, toBookingDTO(booking))
	}
	return out
}
