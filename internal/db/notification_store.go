package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"notifier/internal/domain"
	"notifier/internal/types"
)

// notificationColumns is the SELECT list shared by every notification query.
// Column order must match scanNotification.
const notificationColumns = `id, recipient_value, recipient_channel, content, subject,
	status, priority, created_at, scheduled_at, sent_at, failed_at, error_message, version`

// NotificationStore implements domain.NotificationStore on PostgreSQL.
// Updates use the version column as an optimistic concurrency token so two
// concurrent transition attempts on the same row cannot both win.
type NotificationStore struct {
	db DBTX
}

// NewNotificationStore creates a NotificationStore backed by the given
// database handle (pool or transaction).
func NewNotificationStore(db DBTX) *NotificationStore {
	return &NotificationStore{db: db}
}

// Get loads a notification by ID.
func (s *NotificationStore) Get(ctx context.Context, id string) (*domain.Notification, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeNotFoundNotification,
			"notification not found", err, map[string]any{"id": id})
	}
	if err != nil {
		return nil, dbError("failed to load notification", err)
	}
	return n, nil
}

// ListByStatus returns notifications in the given status, newest first.
func (s *NotificationStore) ListByStatus(ctx context.Context, status types.NotificationStatus, p types.ListParams) ([]*domain.Notification, error) {
	p = p.Normalize()
	rows, err := s.db.Query(ctx,
		`SELECT `+notificationColumns+`
		 FROM notifications
		 WHERE status = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		string(status), p.Limit, p.Offset)
	if err != nil {
		return nil, dbError("failed to list notifications by status", err)
	}
	return collectNotifications(rows)
}

// ListPending returns pending notifications ordered by effective send time:
// scheduled_at when set, otherwise created_at.
func (s *NotificationStore) ListPending(ctx context.Context, p types.ListParams) ([]*domain.Notification, error) {
	p = p.Normalize()
	rows, err := s.db.Query(ctx,
		`SELECT `+notificationColumns+`
		 FROM notifications
		 WHERE status = $1
		 ORDER BY COALESCE(scheduled_at, created_at)
		 LIMIT $2 OFFSET $3`,
		string(types.StatusPending), p.Limit, p.Offset)
	if err != nil {
		return nil, dbError("failed to list pending notifications", err)
	}
	return collectNotifications(rows)
}

// Add persists a newly constructed notification at version 1.
func (s *NotificationStore) Add(ctx context.Context, n *domain.Notification) error {
	snap := n.Snapshot()
	_, err := s.db.Exec(ctx,
		`INSERT INTO notifications
		 (id, recipient_value, recipient_channel, content, subject, status,
		  priority, created_at, scheduled_at, sent_at, failed_at, error_message, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)`,
		snap.ID,
		snap.RecipientValue,
		string(snap.Channel),
		snap.Content,
		nilIfEmpty(snap.Subject),
		string(snap.Status),
		string(snap.Priority),
		snap.CreatedAt,
		snap.ScheduledAt,
		snap.SentAt,
		snap.FailedAt,
		nilIfEmpty(snap.ErrorMessage),
	)
	if err != nil {
		return dbError("failed to insert notification", err)
	}
	return nil
}

// Update persists a transitioned notification, guarded by the version the
// entity was loaded at. A version mismatch means another writer committed
// first and surfaces as a concurrent-modification conflict; the caller
// should reload and retry the transition.
func (s *NotificationStore) Update(ctx context.Context, n *domain.Notification) error {
	snap := n.Snapshot()
	tag, err := s.db.Exec(ctx,
		`UPDATE notifications SET
		   status = $1, scheduled_at = $2, sent_at = $3, failed_at = $4,
		   error_message = $5, version = version + 1
		 WHERE id = $6 AND version = $7`,
		string(snap.Status),
		snap.ScheduledAt,
		snap.SentAt,
		snap.FailedAt,
		nilIfEmpty(snap.ErrorMessage),
		snap.ID,
		snap.Version,
	)
	if err != nil {
		return dbError("failed to update notification", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or another writer bumped the version.
		if _, getErr := s.Get(ctx, snap.ID); getErr != nil {
			return getErr
		}
		return types.NewAppErrorWithDetails(types.ErrCodeConflictConcurrent,
			"notification was modified concurrently", nil,
			map[string]any{"id": snap.ID, "expected_version": snap.Version})
	}
	return nil
}

// scanNotification reads one row in notificationColumns order and restores
// the domain entity.
func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var (
		snap         domain.NotificationSnapshot
		channel      string
		status       string
		priority     string
		subject      *string
		errorMessage *string
	)
	err := row.Scan(
		&snap.ID,
		&snap.RecipientValue,
		&channel,
		&snap.Content,
		&subject,
		&status,
		&priority,
		&snap.CreatedAt,
		&snap.ScheduledAt,
		&snap.SentAt,
		&snap.FailedAt,
		&errorMessage,
		&snap.Version,
	)
	if err != nil {
		return nil, err
	}
	snap.Channel = types.Channel(channel)
	snap.Status = types.NotificationStatus(status)
	snap.Priority = types.Priority(priority)
	if subject != nil {
		snap.Subject = *subject
	}
	if errorMessage != nil {
		snap.ErrorMessage = *errorMessage
	}
	return domain.RestoreNotification(snap), nil
}

func collectNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	defer rows.Close()
	var out []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, dbError("failed to scan notification row", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate notification rows", err)
	}
	return out, nil
}
