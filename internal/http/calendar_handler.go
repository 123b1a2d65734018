package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/workplace-reservations/internal/application"
)

type calendarService interface {
	ListForUser(ctx context.Context, principal application.Principal, userID string) ([]application.CalendarEvent, error)
}

type CalendarHandler struct {
	service   calendarService
	responder responder
}

func NewCalendarHandler(service calendarService, logger *slog.Logger) *CalendarHandler {
	return &CalendarHandler{service: service, responder: newResponder(logger)}
}

// List serves the unified per-user calendar. Without a user_id parameter the
// principal reads their own calendar.
func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = principal.UserID
	}

	events, err := h.service.ListForUser(r.Context(), principal, userID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, calendarResponse{
		UserID: userID,
		Events: toCalendarEventDTOs(events),
	})
}

type calendarResponse struct {
	UserID string             `json:"user_id"`
	Events []calendarEventDTO `json:"events"`
}

type calendarEventDTO struct {
	Kind      string `json:"kind"`
	BookingID string `json:"booking_id"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
}

func toCalendarEventDTOs(events []application.CalendarEvent) []calendarEventDTO {
	if len(events) == 0 {
		return nil
	}
	out := make([]calendarEventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, calendarEventDTO{
			Kind:      string(event.Kind),
			BookingID: event.BookingID,
			Title:     event.Title,
			Start:     event.Start.UTC().Format(time.RFC3339Nano),
			End:       event.End.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
