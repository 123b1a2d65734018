package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type bookingSourceStub struct {
	bookings []Booking
	err      error
}

func (s *bookingSourceStub) ListByUser(ctx context.Context, userID string) ([]Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Booking, len(s.bookings))
	copy(out, s.bookings)
	return out, nil
}

func TestCalendarService_ListForUser_MergesAndSorts(t *testing.T) {
	t.Parallel()

	rooms := &bookingSourceStub{bookings: []Booking{
		{ID: "booking-b", Kind: ResourceKindRoom, Title: "Design sync", Start: mustJST(t, 10, 0), End: mustJST(t, 11, 0)},
		{ID: "booking-d", Kind: ResourceKindRoom, Title: "Review", Start: mustJST(t, 15, 0), End: mustJST(t, 16, 0)},
	}}
	vehicles := &bookingSourceStub{bookings: []Booking{
		{ID: "booking-a", Kind: ResourceKindVehicle, Title: "客先訪問", Start: mustJST(t, 10, 0), End: mustJST(t, 12, 0)},
		{ID: "booking-c", Kind: ResourceKindVehicle, Title: "配送", Start: mustJST(t, 13, 0), End: mustJST(t, 14, 0)},
	}}

	svc := NewCalendarService(rooms, vehicles, nil)

	events, err := svc.ListForUser(context.Background(), Principal{UserID: "user-1"}, "user-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	ids := make([]string, 0, len(events))
	for _, event := range events {
		ids = append(ids, event.BookingID)
	}
	want := []string{"booking-a", "booking-b", "booking-c", "booking-d"}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Fatalf("expected order %v, got %v", want, ids)
	}

	if events[0].Kind != ResourceKindVehicle || events[1].Kind != ResourceKindRoom {
		t.Fatalf("expected mixed kinds in order, got %+v", events[:2])
	}
}

func TestCalendarService_ListForUser_AuthorizesReader(t *testing.T) {
	t.Parallel()

	svc := NewCalendarService(&bookingSourceStub{}, &bookingSourceStub{}, nil)
	ctx := context.Background()

	if _, err := svc.ListForUser(ctx, Principal{UserID: "user-2"}, "user-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if _, err := svc.ListForUser(ctx, Principal{UserID: "admin-1", IsAdmin: true}, "user-1"); err != nil {
		t.Fatalf("admin read failed: %v", err)
	}
}

func TestCalendarService_ListForUser_ToleratesOneFailedSource(t *testing.T) {
	t.Parallel()

	rooms := &bookingSourceStub{bookings: []Booking{
		{ID: "booking-a", Kind: ResourceKindRoom, Title: "Design sync", Start: mustJST(t, 10, 0), End: mustJST(t, 11, 0)},
	}}
	vehicles := &bookingSourceStub{err: errors.New("storage unavailable")}

	svc := NewCalendarService(rooms, vehicles, nil)

	events, err := svc.ListForUser(context.Background(), Principal{UserID: "user-1"}, "user-1")
	if err != nil {
		t.Fatalf("expected partial result, got error: %v", err)
	}
	if len(events) != 1 || events[0].BookingID != "booking-a" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestCalendarService_ListForUser_FailsWhenAllSourcesFail(t *testing.T) {
	t.Parallel()

	svc := NewCalendarService(
		&bookingSourceStub{err: errors.New("down")},
		&bookingSourceStub{err: errors.New("down")},
		nil,
	)

	if _, err := svc.ListForUser(context.Background(), Principal{UserID: "user-1"}, "user-1"); err == nil {
		t.Fatalf("expected error when every source fails")
	}
}

func TestCalendarService_ListForUser_EmptyCalendar(t *testing.T) {
	t.Parallel()

	svc := NewCalendarService(&bookingSourceStub{}, &bookingSourceStub{}, nil)

	events, err := svc.ListForUser(context.Background(), Principal{UserID: "user-1"}, "user-1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty calendar, got %+v", events)
	}
}
