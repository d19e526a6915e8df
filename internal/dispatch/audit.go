package dispatch

import (
	"context"
	"log/slog"

	"notifier/internal/domain"
)

// AuditLogSubscriber writes every lifecycle event to the structured log,
// forming the delivery audit trail.
type AuditLogSubscriber struct {
	logger *slog.Logger
}

// NewAuditLogSubscriber creates the audit trail subscriber.
func NewAuditLogSubscriber(logger *slog.Logger) *AuditLogSubscriber {
	return &AuditLogSubscriber{logger: logger}
}

// Name implements Subscriber.
func (s *AuditLogSubscriber) Name() string { return "audit_log" }

// Handle implements Subscriber. It never fails; the audit trail is
// best-effort by construction.
func (s *AuditLogSubscriber) Handle(ctx context.Context, event domain.Event) error {
	attrs := []any{
		"action", event.EventName(),
		"occurred_at", event.OccurredAt(),
	}

	switch e := event.(type) {
	case domain.NotificationScheduled:
		attrs = append(attrs,
			"notification_id", e.NotificationID,
			"channel", e.Recipient.Channel(),
			"scheduled_at", e.ScheduledAt,
		)
	case domain.NotificationSent:
		attrs = append(attrs,
			"notification_id", e.NotificationID,
			"channel", e.Recipient.Channel(),
			"sent_at", e.SentAt,
		)
	case domain.NotificationFailed:
		attrs = append(attrs,
			"notification_id", e.NotificationID,
			"channel", e.Recipient.Channel(),
			"reason", e.Reason,
		)
	case domain.NotificationRetried:
		attrs = append(attrs,
			"notification_id", e.NotificationID,
			"channel", e.Recipient.Channel(),
			"previous_error", e.PreviousError,
		)
	}

	s.logger.InfoContext(ctx, "notification lifecycle event", attrs...)
	return nil
}
