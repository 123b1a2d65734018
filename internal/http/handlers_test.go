package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/workplace-reservations/internal/application"
)

type bookingServiceStub struct {
	booking   application.Booking
	bookings  []application.Booking
	available bool
	err       error
	cancelErr error
}

func (s *bookingServiceStub) CreateBooking(ctx context.Context, params application.CreateBookingParams) (application.Booking, error) {
	if s.err != nil {
		return application.Booking{}, s.err
	}
	return s.booking, nil
}

func (s *bookingServiceStub) CancelBooking(ctx context.Context, principal application.Principal, bookingID string) error {
	return s.cancelErr
}

func (s *bookingServiceStub) ListByResource(ctx context.Context, resourceID string) ([]application.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bookings, nil
}

func (s *bookingServiceStub) ListByUser(ctx context.Context, userID string) ([]application.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bookings, nil
}

func (s *bookingServiceStub) ListAll(ctx context.Context) ([]application.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.bookings, nil
}

func (s *bookingServiceStub) CheckAvailability(ctx context.Context, resourceID string, start, end time.Time) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.available, nil
}

type participantServiceStub struct {
	added      []application.Participant
	responded  application.Participant
	roster     []application.Participant
	addErr     error
	respondErr error
}

func (s *participantServiceStub) AddParticipants(ctx context.Context, params application.AddParticipantsParams) ([]application.Participant, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	return s.added, nil
}

func (s *participantServiceStub) Respond(ctx context.Context, params application.RespondParams) (application.Participant, error) {
	if s.respondErr != nil {
		return application.Participant{}, s.respondErr
	}
	return s.responded, nil
}

func (s *participantServiceStub) ListForBooking(ctx context.Context, bookingID string) ([]application.Participant, error) {
	return s.roster, nil
}

type resourceCatalogStub struct {
	resources map[string]application.Resource
	err       error
}

func (s *resourceCatalogStub) GetResource(ctx context.Context, id string) (application.Resource, error) {
	if s.err != nil {
		return application.Resource{}, s.err
	}
	resource, ok := s.resources[id]
	if !ok {
		return application.Resource{}, application.ErrNotFound
	}
	return resource, nil
}

func (s *resourceCatalogStub) ListResources(ctx context.Context, kind application.ResourceKind) ([]application.Resource, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]application.Resource, 0, len(s.resources))
	for _, resource := range s.resources {
		if kind == "" || resource.Kind == kind {
			out = append(out, resource)
		}
	}
	return out, nil
}

type calendarServiceStub struct {
	events []application.CalendarEvent
	err    error
	userID string
}

func (s *calendarServiceStub) ListForUser(ctx context.Context, principal application.Principal, userID string) ([]application.CalendarEvent, error) {
	s.userID = userID
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

func testTime(t *testing.T, hour int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("failed to load JST location: %v", err)
	}
	return time.Date(2026, 8, 28, hour, 0, 0, 0, loc)
}

func testCatalog() *resourceCatalogStub {
	return &resourceCatalogStub{resources: map[string]application.Resource{
		"room-1":    {ID: "room-1", Kind: application.ResourceKindRoom, Name: "会議室A"},
		"vehicle-1": {ID: "vehicle-1", Kind: application.ResourceKindVehicle, Name: "社用車1"},
	}}
}

func newTestRouter(bookings *bookingServiceStub, participants *participantServiceStub, calendar *calendarServiceStub) http.Handler {
	cfg := RouterConfig{}
	if bookings != nil {
		cfg.Bookings = NewBookingHandler(bookings, bookings, testCatalog(), nil)
	}
	if participants != nil {
		cfg.Participants = NewParticipantHandler(participants, nil)
	}
	if calendar != nil {
		cfg.Calendar = NewCalendarHandler(calendar, nil)
	}
	return NewRouter(cfg)
}

func TestBookingHandler_Create(t *testing.T) {
	t.Parallel()

	stub := &bookingServiceStub{booking: application.Booking{
		ID:          "booking-1",
		ResourceID:  "room-1",
		Kind:        application.ResourceKindRoom,
		OrganizerID: "user-1",
		Title:       "Design sync",
		Start:       testTime(t, 10),
		End:         testTime(t, 11),
		CreatedAt:   testTime(t, 8),
	}}
	router := newTestRouter(stub, nil, nil)

	body := `{"kind":"room","resource_id":"room-1","title":"Design sync","start":"2026-08-28T10:00:00+09:00","end":"2026-08-28T11:00:00+09:00"}`
	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var resp bookingResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Booking.ID != "booking-1" || resp.Booking.Kind != "room" {
		t.Fatalf("unexpected booking payload: %+v", resp.Booking)
	}
}

func TestBookingHandler_Create_RejectsUnknownKind(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&bookingServiceStub{}, nil, nil)

	body := `{"kind":"desk","resource_id":"desk-1","title":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", recorder.Code)
	}
}

func TestBookingHandler_Create_MapsServiceErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"conflict", application.ErrConflict, http.StatusConflict},
		{"invalid interval", application.ErrInvalidInterval, http.StatusUnprocessableEntity},
		{"duplicate participant", application.ErrDuplicateParticipant, http.StatusConflict},
		{"unauthorized", application.ErrUnauthorized, http.StatusForbidden},
		{"not found", application.ErrNotFound, http.StatusNotFound},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			router := newTestRouter(&bookingServiceStub{err: tc.err}, nil, nil)

			body := `{"kind":"room","resource_id":"room-1","title":"x","start":"2026-08-28T10:00:00+09:00","end":"2026-08-28T11:00:00+09:00"}`
			req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
			recorder := httptest.NewRecorder()

			router.ServeHTTP(recorder, req)

			if recorder.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, recorder.Code, recorder.Body.String())
			}
		})
	}
}

func TestBookingHandler_Create_RejectsMalformedBody(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&bookingServiceStub{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader("{not json"))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}

func TestBookingHandler_Delete(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&bookingServiceStub{}, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/bookings/booking-1", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestBookingHandler_Delete_NotFoundWhenNoLedgerOwnsIt(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&bookingServiceStub{cancelErr: application.ErrNotFound}, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/bookings/missing", nil)
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestBookingHandler_Availability(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&bookingServiceStub{available: true}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/availability?resource_id=room-1&start=2026-08-28T10:00:00%2B09:00&end=2026-08-28T11:00:00%2B09:00", nil)
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var resp availabilityResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Available || resp.ResourceID != "room-1" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestBookingHandler_Availability_ResolvesPoolFromCatalog(t *testing.T) {
	t.Parallel()

	rooms := &bookingServiceStub{available: true}
	vehicles := &bookingServiceStub{available: false}
	router := NewRouter(RouterConfig{Bookings: NewBookingHandler(rooms, vehicles, testCatalog(), nil)})

	req := httptest.NewRequest(http.MethodGet, "/availability?resource_id=vehicle-1&start=2026-08-28T10:00:00%2B09:00&end=2026-08-28T11:00:00%2B09:00", nil)
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var resp availabilityResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Available {
		t.Fatalf("expected vehicle ledger to answer, got %+v", resp)
	}
}

func TestBookingHandler_Availability_UnknownResource(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&bookingServiceStub{available: true}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/availability?resource_id=ghost-1&start=2026-08-28T10:00:00%2B09:00&end=2026-08-28T11:00:00%2B09:00", nil)
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestBookingHandler_List_UnfilteredRequiresAdmin(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&bookingServiceStub{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", recorder.Code, recorder.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/bookings", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "admin-1", IsAdmin: true}))
	recorder = httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestBookingHandler_List_ForeignUserRequiresAdmin(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&bookingServiceStub{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/bookings?user_id=user-2", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", recorder.Code, recorder.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/bookings?user_id=user-1", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))
	recorder = httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200 for own bookings, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestBookingHandler_List_ByResourceOpenToAnyUser(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&bookingServiceStub{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/bookings?resource_id=room-1", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestParticipantHandler_Respond(t *testing.T) {
	t.Parallel()

	stub := &participantServiceStub{responded: application.Participant{
		ID:        "participant-1",
		BookingID: "booking-1",
		UserID:    "user-2",
		Role:      application.RoleRequired,
		Status:    application.StatusAccepted,
		CreatedAt: testTime(t, 8),
		UpdatedAt: testTime(t, 9),
	}}
	router := newTestRouter(nil, stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/participants/participant-1/response", strings.NewReader(`{"status":"accepted"}`))
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-2"}))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var resp participantResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Participant.Status != "accepted" {
		t.Fatalf("unexpected payload: %+v", resp.Participant)
	}
}

func TestParticipantHandler_Respond_MapsInvalidTransition(t *testing.T) {
	t.Parallel()

	router := newTestRouter(nil, &participantServiceStub{respondErr: application.ErrInvalidTransition}, nil)

	req := httptest.NewRequest(http.MethodPost, "/participants/participant-1/response", strings.NewReader(`{"status":"declined"}`))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", recorder.Code)
	}
}

func TestParticipantHandler_Add(t *testing.T) {
	t.Parallel()

	stub := &participantServiceStub{added: []application.Participant{{
		ID:        "participant-2",
		BookingID: "booking-1",
		UserID:    "user-3",
		Role:      application.RoleOptional,
		Status:    application.StatusPending,
	}}}
	router := newTestRouter(&bookingServiceStub{}, stub, nil)

	req := httptest.NewRequest(http.MethodPost, "/bookings/booking-1/participants", strings.NewReader(`{"invitees":[{"user_id":"user-3","role":"optional"}]}`))
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var resp participantsResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Participants) != 1 || resp.Participants[0].Status != "pending" {
		t.Fatalf("unexpected payload: %+v", resp.Participants)
	}
}

func TestCalendarHandler_List(t *testing.T) {
	t.Parallel()

	stub := &calendarServiceStub{events: []application.CalendarEvent{
		{Kind: application.ResourceKindVehicle, BookingID: "booking-a", Title: "客先訪問", Start: testTime(t, 9), End: testTime(t, 10)},
		{Kind: application.ResourceKindRoom, BookingID: "booking-b", Title: "Design sync", Start: testTime(t, 10), End: testTime(t, 11)},
	}}
	router := newTestRouter(nil, nil, stub)

	req := httptest.NewRequest(http.MethodGet, "/calendar", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if stub.userID != "user-1" {
		t.Fatalf("expected default to principal, queried %q", stub.userID)
	}

	var resp calendarResponse
	if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Events) != 2 || resp.Events[0].BookingID != "booking-a" {
		t.Fatalf("unexpected payload: %+v", resp.Events)
	}
}

func TestCalendarHandler_List_ForbiddenForOtherUser(t *testing.T) {
	t.Parallel()

	router := newTestRouter(nil, nil, &calendarServiceStub{err: application.ErrUnauthorized})

	req := httptest.NewRequest(http.MethodGet, "/calendar?user_id=user-2", nil)
	req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", recorder.Code)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&bookingServiceStub{}, nil, nil)

	req := httptest.NewRequest(http.MethodPut, "/bookings", nil)
	recorder := httptest.NewRecorder()

	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", recorder.Code)
	}
	if allow := recorder.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
		t.Fatalf("expected Allow header with POST, got %q", allow)
	}
}
