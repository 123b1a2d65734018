package application

import (
	"context"
	"log/slog"
)

// Notification kinds emitted by the reservation engine.
const (
	NotificationKindBookingCreated   = "booking_created"
	NotificationKindBookingCancelled = "booking_cancelled"
	NotificationKindInvitation       = "invitation"
	NotificationKindResponse         = "participant_response"
)

// NotificationSink is the outbound notification collaborator. Delivery is
// best-effort: a failure is logged and discarded, never surfaced to the
// caller of a booking operation.
type NotificationSink interface {
	Notify(ctx context.Context, userID, message, kind, relatedID string) error
}

// dispatchNotification delivers a notification asynchronously. Callers invoke
// it only after releasing any resource lock so delivery latency can never sit
// inside a critical section.
func dispatchNotification(ctx context.Context, sink NotificationSink, logger *slog.Logger, userID, message, kind, relatedID string) {
	if sink == nil || userID == "" {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		if err := sink.Notify(detached, userID, message, kind, relatedID); err != nil {
			logger.ErrorContext(detached, "failed to deliver notification",
				"error", err,
				"user_id", userID,
				"kind", kind,
				"related_id", relatedID,
			)
		}
	}()
}
