package domain

import (
	"context"

	"notifier/internal/types"
)

// NotificationStore is the persistence port for notifications. Concurrent
// transition attempts on the same notification are serialized by the store
// (optimistic concurrency on the version token), not by the domain.
type NotificationStore interface {
	// Get loads a notification by ID. Returns a not_found AppError if absent.
	Get(ctx context.Context, id string) (*Notification, error)

	// ListByStatus returns notifications in the given status, newest first.
	ListByStatus(ctx context.Context, status types.NotificationStatus, p types.ListParams) ([]*Notification, error)

	// ListPending returns pending notifications ordered by effective send
	// time: scheduled_at when set, otherwise created_at.
	ListPending(ctx context.Context, p types.ListParams) ([]*Notification, error)

	// Add persists a newly constructed notification.
	Add(ctx context.Context, n *Notification) error

	// Update persists a transitioned notification. Returns a
	// conflict_concurrent_modification AppError if the stored version no
	// longer matches the entity's.
	Update(ctx context.Context, n *Notification) error
}

// TemplateStore is the persistence port for templates. Name uniqueness is
// enforced here (unique index), per the Template entity's contract.
type TemplateStore interface {
	Get(ctx context.Context, id string) (*Template, error)
	GetByName(ctx context.Context, name string) (*Template, error)
	ListByChannel(ctx context.Context, channel types.Channel, p types.ListParams) ([]*Template, error)
	ListActiveByChannel(ctx context.Context, channel types.Channel, p types.ListParams) ([]*Template, error)
	Add(ctx context.Context, t *Template) error
	Update(ctx context.Context, t *Template) error
}

// AttemptStore is the persistence port for delivery attempts. Attempt numbers
// are unique per notification (unique index).
type AttemptStore interface {
	Get(ctx context.Context, id string) (*DeliveryAttempt, error)
	ListByNotification(ctx context.Context, notificationID string) ([]*DeliveryAttempt, error)
	Add(ctx context.Context, a *DeliveryAttempt) error
	Update(ctx context.Context, a *DeliveryAttempt) error
}

// Stores provides access to all store instances bound to one database
// handle, so the same code works inside or outside a transaction.
type Stores interface {
	Notifications() NotificationStore
	Templates() TemplateStore
	Attempts() AttemptStore
}

// TxManager is the commit boundary. RunInTx executes fn against
// transaction-bound stores and commits iff fn returns nil. Callers drain and
// dispatch entity events only after RunInTx returns successfully; a failed
// commit must leave the events undrained.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// EventSink consumes drained domain events after a commit. Implemented by
// the dispatch package.
type EventSink interface {
	Dispatch(ctx context.Context, events []Event)
}
