package domain

import "time"

// Event names follow the "<entity>.<fact>" convention used across the API
// audit trail. Dispatch subscribers match on these strings.
const (
	EventNotificationScheduled = "notification.scheduled"
	EventNotificationSent      = "notification.sent"
	EventNotificationFailed    = "notification.failed"
	EventNotificationRetried   = "notification.retried"
)

// Event is a fact emitted by an entity transition. Events accumulate in the
// entity's transient buffer and are drained by the dispatcher only after the
// enclosing transaction commits; they are never persisted with the entity.
type Event interface {
	// EventName returns the stable event identifier (e.g. "notification.sent").
	EventName() string
	// OccurredAt returns when the transition happened.
	OccurredAt() time.Time
}

// NotificationScheduled is emitted when a pending notification acquires a
// future delivery time.
type NotificationScheduled struct {
	NotificationID string
	Recipient      Recipient
	ScheduledAt    time.Time
	OccurredOn     time.Time
}

func (e NotificationScheduled) EventName() string     { return EventNotificationScheduled }
func (e NotificationScheduled) OccurredAt() time.Time { return e.OccurredOn }

// NotificationSent is emitted when a pending notification transitions to Sent.
type NotificationSent struct {
	NotificationID string
	Recipient      Recipient
	SentAt         time.Time
	OccurredOn     time.Time
}

func (e NotificationSent) EventName() string     { return EventNotificationSent }
func (e NotificationSent) OccurredAt() time.Time { return e.OccurredOn }

// NotificationFailed is emitted when a pending notification transitions to
// Failed with a delivery error.
type NotificationFailed struct {
	NotificationID string
	Recipient      Recipient
	Reason         string
	FailedAt       time.Time
	OccurredOn     time.Time
}

func (e NotificationFailed) EventName() string     { return EventNotificationFailed }
func (e NotificationFailed) OccurredAt() time.Time { return e.OccurredOn }

// NotificationRetried is emitted when a failed notification returns to
// Pending. PreviousError preserves the failure reason that was cleared from
// the notification by the retry.
type NotificationRetried struct {
	NotificationID string
	Recipient      Recipient
	PreviousError  string
	OccurredOn     time.Time
}

func (e NotificationRetried) EventName() string     { return EventNotificationRetried }
func (e NotificationRetried) OccurredAt() time.Time { return e.OccurredOn }
