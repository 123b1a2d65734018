package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// BookingSource is the per-kind ledger surface the calendar reads from. Both
// BookingService instances satisfy it.
type BookingSource interface {
	ListByUser(ctx context.Context, userID string) ([]Booking, error)
}

// CalendarService merges the room and vehicle ledgers into one per-user view.
// It is a read model: it holds no state of its own and never mutates either
// ledger.
type CalendarService struct {
	rooms    BookingSource
	vehicles BookingSource
	logger   *slog.Logger
}

// NewCalendarService wires the unified calendar over the two ledgers.
func NewCalendarService(rooms, vehicles BookingSource, logger *slog.Logger) *CalendarService {
	return &CalendarService{
		rooms:    rooms,
		vehicles: vehicles,
		logger:   defaultLogger(logger),
	}
}

// ListForUser returns the user's bookings across both pools, sorted by start
// time and then booking id. A user reads their own calendar; administrators
// may read anyone's.
//
// When one ledger fails the other's events are still returned; the partial
// result is preferred over an empty page, and the failure is logged.
func (s *CalendarService) ListForUser(ctx context.Context, principal Principal, userID string) (events []CalendarEvent, err error) {
	if s == nil {
		return nil, fmt.Errorf("CalendarService is nil")
	}

	logger := serviceLogger(ctx, s.logger, "CalendarService", "ListForUser",
		"principal_id", principal.UserID,
		"user_id", userID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build calendar", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "calendar built", "count", len(events))
	}()

	if userID == "" {
		vErr := &ValidationError{}
		vErr.add("user_id", "user id is required")
		err = vErr
		return
	}
	if principal.UserID != userID && !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	events = make([]CalendarEvent, 0)
	sources := 0
	failures := 0

	appendFrom := func(source BookingSource, kind ResourceKind) {
		if source == nil {
			return
		}
		sources++
		bookings, listErr := source.ListByUser(ctx, userID)
		if listErr != nil {
			failures++
			logger.WarnContext(ctx, "calendar source unavailable", "kind", string(kind), "error", listErr)
			return
		}
		for _, booking := range bookings {
			events = append(events, CalendarEvent{
				Kind:      kind,
				BookingID: booking.ID,
				Title:     booking.Title,
				Start:     booking.Start,
				End:       booking.End,
			})
		}
	}

	appendFrom(s.rooms, ResourceKindRoom)
	appendFrom(s.vehicles, ResourceKindVehicle)

	if sources > 0 && failures == sources {
		events = nil
		err = fmt.Errorf("no calendar source available")
		return
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].BookingID < events[j].BookingID
	})

	return
}
