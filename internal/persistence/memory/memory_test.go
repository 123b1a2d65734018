package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/workplace-reservations/internal/persistence"
	"github.com/example/workplace-reservations/internal/persistence/memory"
	"github.com/example/workplace-reservations/internal/testfixtures"
)

func seedCatalog(t *testing.T, store *memory.Store) {
	t.Helper()

	ctx := context.Background()
	for _, resource := range testfixtures.SampleResources() {
		if err := store.CreateResource(ctx, resource); err != nil {
			t.Fatalf("CreateResource(%s) failed: %v", resource.ID, err)
		}
	}
}

func sampleBooking(id, resourceID string, kind persistence.ResourceKind, startOffset, endOffset time.Duration) persistence.Booking {
	base := testfixtures.ReferenceTime()
	return persistence.Booking{
		ID:          id,
		ResourceID:  resourceID,
		Kind:        kind,
		OrganizerID: "user-organizer",
		Title:       "定例ミーティング",
		Start:       base.Add(startOffset),
		End:         base.Add(endOffset),
		CreatedAt:   base,
	}
}

func organizerRow(id, bookingID, userID string) persistence.Participant {
	base := testfixtures.ReferenceTime()
	return persistence.Participant{
		ID:        id,
		BookingID: bookingID,
		UserID:    userID,
		Role:      persistence.RoleOrganizer,
		Status:    persistence.StatusAccepted,
		CreatedAt: base,
		UpdatedAt: base,
	}
}

func TestStore_Resources(t *testing.T) {
	t.Parallel()

	t.Run("lists by kind ordered by name", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := memory.NewStore()
		seedCatalog(t, store)

		rooms, err := store.ListResources(ctx, persistence.ResourceKindRoom)
		if err != nil {
			t.Fatalf("ListResources failed: %v", err)
		}
		if len(rooms) != 2 || rooms[0].ID != "room-a" || rooms[1].ID != "room-b" {
			t.Fatalf("unexpected room listing: %#v", rooms)
		}

		all, err := store.ListResources(ctx, "")
		if err != nil {
			t.Fatalf("ListResources failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected full catalog, got %d entries", len(all))
		}
	})

	t.Run("rejects duplicate identifiers", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := memory.NewStore()
		seedCatalog(t, store)

		err := store.CreateResource(ctx, testfixtures.SampleResources()[0])
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
		}
	})

	t.Run("returned values do not alias stored state", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := memory.NewStore()
		seedCatalog(t, store)

		first, err := store.GetResource(ctx, "room-a")
		if err != nil {
			t.Fatalf("GetResource failed: %v", err)
		}
		*first.Location = "mutated"

		second, err := store.GetResource(ctx, "room-a")
		if err != nil {
			t.Fatalf("GetResource failed: %v", err)
		}
		if *second.Location == "mutated" {
			t.Fatal("expected stored resource to be isolated from caller mutation")
		}
	})
}

func TestStore_Bookings(t *testing.T) {
	t.Parallel()

	t.Run("creates booking with seed participants atomically", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := memory.NewStore()
		seedCatalog(t, store)

		booking := sampleBooking("booking-1", "room-a", persistence.ResourceKindRoom, time.Hour, 2*time.Hour)
		participants := []persistence.Participant{
			organizerRow("participant-1", "booking-1", "user-organizer"),
			{
				ID:        "participant-2",
				BookingID: "booking-1",
				UserID:    "user-invitee",
				Role:      persistence.RoleRequired,
				Status:    persistence.StatusPending,
				CreatedAt: booking.CreatedAt,
				UpdatedAt: booking.CreatedAt,
			},
		}
		if err := store.CreateBooking(ctx, booking, participants); err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}

		fetched, err := store.GetBooking(ctx, "booking-1")
		if err != nil {
			t.Fatalf("GetBooking failed: %v", err)
		}
		if fetched.ResourceID != "room-a" || !fetched.Start.Equal(booking.Start) {
			t.Fatalf("unexpected booking: %#v", fetched)
		}

		roster, err := store.ListParticipantsForBooking(ctx, "booking-1")
		if err != nil {
			t.Fatalf("ListParticipantsForBooking failed: %v", err)
		}
		if len(roster) != 2 {
			t.Fatalf("expected 2 participant rows, got %d", len(roster))
		}
	})

	t.Run("rejects bookings for unknown resources", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := memory.NewStore()
		seedCatalog(t, store)

		booking := sampleBooking("booking-1", "room-missing", persistence.ResourceKindRoom, time.Hour, 2*time.Hour)
		err := store.CreateBooking(ctx, booking, nil)
		if !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected persistence.ErrForeignKeyViolation, got %v", err)
		}
	})

	t.Run("rejects empty intervals", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := memory.NewStore()
		seedCatalog(t, store)

		booking := sampleBooking("booking-1", "room-a", persistence.ResourceKindRoom, time.Hour, time.Hour)
		err := store.CreateBooking(ctx, booking, nil)
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected persistence.ErrConstraintViolation, got %v", err)
		}
	})

	t.Run("filters listings by resource, kind, and user", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := memory.NewStore()
		seedCatalog(t, store)

		roomBooking := sampleBooking("booking-1", "room-a", persistence.ResourceKindRoom, time.Hour, 2*time.Hour)
		vehicleBooking := sampleBooking("booking-2", "vehicle-1", persistence.ResourceKindVehicle, time.Hour, 3*time.Hour)
		vehicleBooking.OrganizerID = "user-driver"

		if err := store.CreateBooking(ctx, roomBooking, []persistence.Participant{
			organizerRow("participant-1", "booking-1", "user-organizer"),
			{
				ID:        "participant-2",
				BookingID: "booking-1",
				UserID:    "user-invitee",
				Role:      persistence.RoleRequired,
				Status:    persistence.StatusPending,
				CreatedAt: roomBooking.CreatedAt,
				UpdatedAt: roomBooking.CreatedAt,
			},
		}); err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}
		if err := store.CreateBooking(ctx, vehicleBooking, nil); err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}

		byResource, err := store.ListBookings(ctx, persistence.BookingFilter{ResourceID: "room-a"})
		if err != nil {
			t.Fatalf("ListBookings failed: %v", err)
		}
		if len(byResource) != 1 || byResource[0].ID != "booking-1" {
			t.Fatalf("unexpected resource filter result: %#v", byResource)
		}

		byKind, err := store.ListBookings(ctx, persistence.BookingFilter{Kind: persistence.ResourceKindVehicle})
		if err != nil {
			t.Fatalf("ListBookings failed: %v", err)
		}
		if len(byKind) != 1 || byKind[0].ID != "booking-2" {
			t.Fatalf("unexpected kind filter result: %#v", byKind)
		}

		byInvitee, err := store.ListBookings(ctx, persistence.BookingFilter{UserID: "user-invitee"})
		if err != nil {
			t.Fatalf("ListBookings failed: %v", err)
		}
		if len(byInvitee) != 1 || byInvitee[0].ID != "booking-1" {
			t.Fatalf("unexpected user filter result: %#v", byInvitee)
		}

		byOrganizer, err := store.ListBookings(ctx, persistence.BookingFilter{UserID: "user-driver"})
		if err != nil {
			t.Fatalf("ListBookings failed: %v", err)
		}
		if len(byOrganizer) != 1 || byOrganizer[0].ID != "booking-2" {
			t.Fatalf("unexpected organizer filter result: %#v", byOrganizer)
		}
	})

	t.Run("delete cascades participant rows", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := memory.NewStore()
		seedCatalog(t, store)

		booking := sampleBooking("booking-1", "room-a", persistence.ResourceKindRoom, time.Hour, 2*time.Hour)
		if err := store.CreateBooking(ctx, booking, []persistence.Participant{
			organizerRow("participant-1", "booking-1", "user-organizer"),
		}); err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}

		if err := store.DeleteBooking(ctx, "booking-1"); err != nil {
			t.Fatalf("DeleteBooking failed: %v", err)
		}
		if _, err := store.GetBooking(ctx, "booking-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected persistence.ErrNotFound, got %v", err)
		}
		if _, err := store.GetParticipant(ctx, "participant-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected cascade delete of participants, got %v", err)
		}
	})
}

func TestStore_Participants(t *testing.T) {
	t.Parallel()

	seedBooking := func(t *testing.T, store *memory.Store) {
		t.Helper()

		ctx := context.Background()
		seedCatalog(t, store)
		booking := sampleBooking("booking-1", "room-a", persistence.ResourceKindRoom, time.Hour, 2*time.Hour)
		if err := store.CreateBooking(ctx, booking, []persistence.Participant{
			organizerRow("participant-1", "booking-1", "user-organizer"),
		}); err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}
	}

	t.Run("rejects duplicate booking and user pairs", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := memory.NewStore()
		seedBooking(t, store)

		invitee := persistence.Participant{
			ID:        "participant-2",
			BookingID: "booking-1",
			UserID:    "user-invitee",
			Role:      persistence.RoleRequired,
			Status:    persistence.StatusPending,
			CreatedAt: testfixtures.ReferenceTime(),
			UpdatedAt: testfixtures.ReferenceTime(),
		}
		if err := store.AddParticipants(ctx, []persistence.Participant{invitee}); err != nil {
			t.Fatalf("AddParticipants failed: %v", err)
		}

		invitee.ID = "participant-3"
		err := store.AddParticipants(ctx, []persistence.Participant{invitee})
		if !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
		}
	})

	t.Run("updates status only from the expected state", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := memory.NewStore()
		seedBooking(t, store)

		invitee := persistence.Participant{
			ID:        "participant-2",
			BookingID: "booking-1",
			UserID:    "user-invitee",
			Role:      persistence.RoleRequired,
			Status:    persistence.StatusPending,
			CreatedAt: testfixtures.ReferenceTime(),
			UpdatedAt: testfixtures.ReferenceTime(),
		}
		if err := store.AddParticipants(ctx, []persistence.Participant{invitee}); err != nil {
			t.Fatalf("AddParticipants failed: %v", err)
		}

		updatedAt := testfixtures.ReferenceTime().Add(30 * time.Minute)
		if err := store.UpdateParticipantStatus(ctx, "participant-2", persistence.StatusPending, persistence.StatusAccepted, updatedAt); err != nil {
			t.Fatalf("UpdateParticipantStatus failed: %v", err)
		}

		err := store.UpdateParticipantStatus(ctx, "participant-2", persistence.StatusPending, persistence.StatusDeclined, updatedAt)
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected persistence.ErrConstraintViolation, got %v", err)
		}

		fetched, err := store.GetParticipant(ctx, "participant-2")
		if err != nil {
			t.Fatalf("GetParticipant failed: %v", err)
		}
		if fetched.Status != persistence.StatusAccepted || !fetched.UpdatedAt.Equal(updatedAt) {
			t.Fatalf("unexpected participant: %#v", fetched)
		}
	})
}

func TestStore_Sessions(t *testing.T) {
	t.Parallel()

	t.Run("revokes and prunes sessions", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := memory.NewStore()
		base := testfixtures.ReferenceTime()

		active := persistence.Session{
			ID:        "session-1",
			UserID:    "user-1",
			Token:     "token-active",
			ExpiresAt: base.Add(time.Hour),
			CreatedAt: base,
		}
		stale := persistence.Session{
			ID:        "session-2",
			UserID:    "user-1",
			Token:     "token-stale",
			ExpiresAt: base.Add(-time.Minute),
			CreatedAt: base.Add(-2 * time.Hour),
		}
		for _, session := range []persistence.Session{active, stale} {
			if err := store.CreateSession(ctx, session); err != nil {
				t.Fatalf("CreateSession failed: %v", err)
			}
		}

		if err := store.DeleteExpiredSessions(ctx, base); err != nil {
			t.Fatalf("DeleteExpiredSessions failed: %v", err)
		}
		if _, err := store.GetSession(ctx, "token-stale"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected stale session to be pruned, got %v", err)
		}

		revokedAt := base.Add(10 * time.Minute)
		if err := store.RevokeSession(ctx, "token-active", revokedAt); err != nil {
			t.Fatalf("RevokeSession failed: %v", err)
		}

		fetched, err := store.GetSession(ctx, "token-active")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if fetched.RevokedAt == nil || !fetched.RevokedAt.Equal(revokedAt) {
			t.Fatalf("expected session to be revoked at %s, got %#v", revokedAt, fetched.RevokedAt)
		}
	})

	t.Run("enforces unique tokens", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := memory.NewStore()
		base := testfixtures.ReferenceTime()

		session := persistence.Session{
			ID:        "session-1",
			UserID:    "user-1",
			Token:     "token-1",
			ExpiresAt: base.Add(time.Hour),
			CreatedAt: base,
		}
		if err := store.CreateSession(ctx, session); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}

		session.ID = "session-2"
		if err := store.CreateSession(ctx, session); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
		}
	})
}

func TestStore_Users(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewStore()
	base := testfixtures.ReferenceTime()

	user := persistence.User{
		ID:           "user-1",
		Email:        "Tanaka@example.co.jp",
		DisplayName:  "田中",
		Role:         "employee",
		PasswordHash: "hash",
		CreatedAt:    base,
		UpdatedAt:    base,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	fetched, err := store.GetUserByEmail(ctx, "tanaka@EXAMPLE.co.jp")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if fetched.ID != "user-1" {
		t.Fatalf("unexpected user: %#v", fetched)
	}

	conflicting := user
	conflicting.ID = "user-2"
	conflicting.Email = "TANAKA@example.co.jp"
	if err := store.CreateUser(ctx, conflicting); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected persistence.ErrDuplicate, got %v", err)
	}
}
