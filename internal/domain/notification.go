// Package domain holds the notification lifecycle core: self-validating
// value types (Recipient, EmailAddress, PhoneNumber, TemplateData), the
// Template rendering engine, the Notification state machine, and the
// DeliveryAttempt audit record.
//
// The package is deliberately free of I/O. Persistence and event publication
// happen behind the ports declared in ports.go; transitions collect domain
// events in an in-memory buffer that the caller drains after its transaction
// commits.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"notifier/internal/types"
)

// maxRetriesByPriority is the retry budget per priority tier. The table is
// exhaustive over valid priorities; lookups for anything else fail loudly
// through MaxRetriesForPriority rather than silently defaulting.
var maxRetriesByPriority = map[types.Priority]int{
	types.PriorityLow:      2,
	types.PriorityNormal:   3,
	types.PriorityHigh:     5,
	types.PriorityCritical: 10,
}

// MaxRetriesForPriority returns the retry budget for a priority tier.
// An unrecognized priority is a programming error and returns an internal
// AppError instead of a default budget.
func MaxRetriesForPriority(p types.Priority) (int, error) {
	max, ok := maxRetriesByPriority[p]
	if !ok {
		return 0, types.NewAppErrorWithDetails(types.ErrCodeInternalUnknownPriority,
			"no retry budget defined for priority", nil, map[string]any{"priority": string(p)})
	}
	return max, nil
}

// Notification is the aggregate root of the delivery lifecycle. It moves
// between Pending, Sent, Failed, and Cancelled; only Failed -> Pending (via
// Retry) leaves a terminal state. Every transition validates its precondition
// first and leaves the notification untouched on failure.
type Notification struct {
	id           string
	recipient    Recipient
	content      string
	subject      string
	status       types.NotificationStatus
	priority     types.Priority
	createdAt    time.Time
	scheduledAt  *time.Time
	sentAt       *time.Time
	failedAt     *time.Time
	errorMessage string

	// version is the optimistic concurrency token maintained by the store.
	version int

	// events buffers the domain events produced by the most recent batch of
	// transitions. Drained via PullEvents after a successful save.
	events []Event
}

// NewNotification validates inputs and creates a pending notification.
// Email recipients require a non-blank subject; other channels may leave it
// empty. All validation happens before an ID is assigned, so an invalid
// notification can never exist.
func NewNotification(recipient Recipient, content string, priority types.Priority, subject string) (*Notification, error) {
	if recipient.IsZero() {
		return nil, types.NewAppError(types.ErrCodeValidationNilRecipient,
			"notification requires a recipient", nil)
	}
	if strings.TrimSpace(content) == "" {
		return nil, types.NewAppError(types.ErrCodeValidationEmptyContent,
			"notification content must not be empty", nil)
	}
	if !priority.Valid() {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			"priority must be one of low, normal, high, critical", nil,
			map[string]any{"field": "priority", "value": string(priority)})
	}
	subject = strings.TrimSpace(subject)
	if recipient.Channel() == types.ChannelEmail && subject == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingSubject,
			"email notifications require a subject", nil)
	}

	return &Notification{
		id:        "notif_" + uuid.New().String(),
		recipient: recipient,
		content:   content,
		subject:   subject,
		status:    types.StatusPending,
		priority:  priority,
		createdAt: nowUTC(),
	}, nil
}

// Schedule sets a future delivery time on a pending notification.
func (n *Notification) Schedule(at time.Time) error {
	if err := n.requireStatus(types.StatusPending, "schedule"); err != nil {
		return err
	}
	now := nowUTC()
	if !at.After(now) {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationPastSchedule,
			"scheduled time must be in the future", nil,
			map[string]any{"scheduled_at": at.UTC().Format(time.RFC3339)})
	}
	at = at.UTC()
	n.scheduledAt = &at
	n.record(NotificationScheduled{
		NotificationID: n.id,
		Recipient:      n.recipient,
		ScheduledAt:    at,
		OccurredOn:     now,
	})
	return nil
}

// Send marks a pending notification as delivered.
func (n *Notification) Send() error {
	if err := n.requireStatus(types.StatusPending, "send"); err != nil {
		return err
	}
	now := nowUTC()
	n.status = types.StatusSent
	n.sentAt = &now
	n.record(NotificationSent{
		NotificationID: n.id,
		Recipient:      n.recipient,
		SentAt:         now,
		OccurredOn:     now,
	})
	return nil
}

// Fail marks a pending notification as failed with the given reason.
func (n *Notification) Fail(reason string) error {
	if err := n.requireStatus(types.StatusPending, "fail"); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return types.NewAppError(types.ErrCodeValidationEmptyReason,
			"failure reason must not be empty", nil)
	}
	now := nowUTC()
	n.status = types.StatusFailed
	n.failedAt = &now
	n.errorMessage = reason
	n.record(NotificationFailed{
		NotificationID: n.id,
		Recipient:      n.recipient,
		Reason:         reason,
		FailedAt:       now,
		OccurredOn:     now,
	})
	return nil
}

// Cancel withdraws a pending notification. Cancellation emits no event.
func (n *Notification) Cancel() error {
	if err := n.requireStatus(types.StatusPending, "cancel"); err != nil {
		return err
	}
	n.status = types.StatusCancelled
	return nil
}

// Retry returns a failed notification to Pending, clearing the failure
// bookkeeping. The previous error is preserved on the emitted event.
func (n *Notification) Retry() error {
	if err := n.requireStatus(types.StatusFailed, "retry"); err != nil {
		return err
	}
	previous := n.errorMessage
	n.status = types.StatusPending
	n.errorMessage = ""
	n.failedAt = nil
	n.record(NotificationRetried{
		NotificationID: n.id,
		Recipient:      n.recipient,
		PreviousError:  previous,
		OccurredOn:     nowUTC(),
	})
	return nil
}

// CanRetry reports whether the priority tier's retry budget still covers the
// given attempt number. It is a pure policy query for an external retry
// scheduler and mutates nothing. The error is non-nil only for the
// programming-error case of an unrecognized priority.
func (n *Notification) CanRetry(attemptNumber int) (bool, error) {
	max, err := MaxRetriesForPriority(n.priority)
	if err != nil {
		return false, err
	}
	return attemptNumber < max, nil
}

// IsReadyToSend reports whether the notification is pending and its
// scheduled time, if any, has arrived.
func (n *Notification) IsReadyToSend() bool {
	if n.status != types.StatusPending {
		return false
	}
	return n.scheduledAt == nil || !n.scheduledAt.After(nowUTC())
}

// PullEvents drains and returns the buffered domain events. Called by the
// dispatcher after the enclosing save commits; a second call returns nil
// until new transitions occur.
func (n *Notification) PullEvents() []Event {
	events := n.events
	n.events = nil
	return events
}

// requireStatus returns a state error unless the notification is in want.
func (n *Notification) requireStatus(want types.NotificationStatus, op string) error {
	if n.status != want {
		return types.NewAppErrorWithDetails(types.ErrCodeStateInvalidTransition,
			"operation not permitted in current status", nil,
			map[string]any{"operation": op, "status": string(n.status), "requires": string(want)})
	}
	return nil
}

func (n *Notification) record(e Event) {
	n.events = append(n.events, e)
}

// ID returns the notification identifier.
func (n *Notification) ID() string { return n.id }

// Recipient returns the validated recipient.
func (n *Notification) Recipient() Recipient { return n.recipient }

// Content returns the delivery content.
func (n *Notification) Content() string { return n.content }

// Subject returns the subject line; empty for non-email channels.
func (n *Notification) Subject() string { return n.subject }

// Status returns the current lifecycle state.
func (n *Notification) Status() types.NotificationStatus { return n.status }

// Priority returns the business priority tier.
func (n *Notification) Priority() types.Priority { return n.priority }

// CreatedAt returns the creation timestamp.
func (n *Notification) CreatedAt() time.Time { return n.createdAt }

// ScheduledAt returns the scheduled delivery time, if set.
func (n *Notification) ScheduledAt() *time.Time { return n.scheduledAt }

// SentAt returns the delivery timestamp, if sent.
func (n *Notification) SentAt() *time.Time { return n.sentAt }

// FailedAt returns the failure timestamp, if failed.
func (n *Notification) FailedAt() *time.Time { return n.failedAt }

// ErrorMessage returns the most recent failure reason; empty unless failed.
func (n *Notification) ErrorMessage() string { return n.errorMessage }

// Version returns the optimistic concurrency token maintained by the store.
func (n *Notification) Version() int { return n.version }
