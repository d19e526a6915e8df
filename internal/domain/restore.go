package domain

import (
	"time"

	"notifier/internal/types"
)

// Snapshot types carry entity state across the persistence boundary. The
// Restore functions rebuild entities from already-validated stored rows and
// therefore bypass business-rule validation; they exist for the store
// adapters and must not be used to construct new entities.

// NotificationSnapshot is the persisted shape of a Notification.
type NotificationSnapshot struct {
	ID             string
	RecipientValue string
	Channel        types.Channel
	Content        string
	Subject        string
	Status         types.NotificationStatus
	Priority       types.Priority
	CreatedAt      time.Time
	ScheduledAt    *time.Time
	SentAt         *time.Time
	FailedAt       *time.Time
	ErrorMessage   string
	Version        int
}

// RestoreNotification materializes a notification from its persisted state.
// The event buffer starts empty: persisted rows carry no pending events.
func RestoreNotification(s NotificationSnapshot) *Notification {
	return &Notification{
		id:           s.ID,
		recipient:    Recipient{value: s.RecipientValue, channel: s.Channel},
		content:      s.Content,
		subject:      s.Subject,
		status:       s.Status,
		priority:     s.Priority,
		createdAt:    s.CreatedAt.UTC(),
		scheduledAt:  utcPtr(s.ScheduledAt),
		sentAt:       utcPtr(s.SentAt),
		failedAt:     utcPtr(s.FailedAt),
		errorMessage: s.ErrorMessage,
		version:      s.Version,
	}
}

// Snapshot returns the persisted shape of the notification.
func (n *Notification) Snapshot() NotificationSnapshot {
	return NotificationSnapshot{
		ID:             n.id,
		RecipientValue: n.recipient.value,
		Channel:        n.recipient.channel,
		Content:        n.content,
		Subject:        n.subject,
		Status:         n.status,
		Priority:       n.priority,
		CreatedAt:      n.createdAt,
		ScheduledAt:    n.scheduledAt,
		SentAt:         n.sentAt,
		FailedAt:       n.failedAt,
		ErrorMessage:   n.errorMessage,
		Version:        n.version,
	}
}

// TemplateSnapshot is the persisted shape of a Template.
type TemplateSnapshot struct {
	ID        string
	Name      string
	Channel   types.Channel
	Subject   string
	Body      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RestoreTemplate materializes a template from its persisted state.
func RestoreTemplate(s TemplateSnapshot) *Template {
	return &Template{
		id:        s.ID,
		name:      s.Name,
		channel:   s.Channel,
		subject:   s.Subject,
		body:      s.Body,
		isActive:  s.IsActive,
		createdAt: s.CreatedAt.UTC(),
		updatedAt: s.UpdatedAt.UTC(),
	}
}

// Snapshot returns the persisted shape of the template.
func (t *Template) Snapshot() TemplateSnapshot {
	return TemplateSnapshot{
		ID:        t.id,
		Name:      t.name,
		Channel:   t.channel,
		Subject:   t.subject,
		Body:      t.body,
		IsActive:  t.isActive,
		CreatedAt: t.createdAt,
		UpdatedAt: t.updatedAt,
	}
}

// AttemptSnapshot is the persisted shape of a DeliveryAttempt.
type AttemptSnapshot struct {
	ID             string
	NotificationID string
	AttemptNumber  int
	Status         types.AttemptStatus
	ErrorMessage   string
	AttemptedAt    time.Time
	CompletedAt    *time.Time
}

// RestoreDeliveryAttempt materializes a delivery attempt from its persisted
// state.
func RestoreDeliveryAttempt(s AttemptSnapshot) *DeliveryAttempt {
	return &DeliveryAttempt{
		id:             s.ID,
		notificationID: s.NotificationID,
		attemptNumber:  s.AttemptNumber,
		status:         s.Status,
		errorMessage:   s.ErrorMessage,
		attemptedAt:    s.AttemptedAt.UTC(),
		completedAt:    utcPtr(s.CompletedAt),
	}
}

// Snapshot returns the persisted shape of the attempt.
func (a *DeliveryAttempt) Snapshot() AttemptSnapshot {
	return AttemptSnapshot{
		ID:             a.id,
		NotificationID: a.notificationID,
		AttemptNumber:  a.attemptNumber,
		Status:         a.status,
		ErrorMessage:   a.errorMessage,
		AttemptedAt:    a.attemptedAt,
		CompletedAt:    a.completedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
