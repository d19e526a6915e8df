package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"notifier/internal/domain"
	"notifier/internal/types"
)

const attemptColumns = `id, notification_id, attempt_number, status, error_message, attempted_at, completed_at`

// AttemptStore implements domain.AttemptStore on PostgreSQL. The unique
// index on (notification_id, attempt_number) enforces per-notification
// attempt numbering.
type AttemptStore struct {
	db DBTX
}

// NewAttemptStore creates an AttemptStore backed by the given database
// handle (pool or transaction).
func NewAttemptStore(db DBTX) *AttemptStore {
	return &AttemptStore{db: db}
}

// Get loads a delivery attempt by ID.
func (s *AttemptStore) Get(ctx context.Context, id string) (*domain.DeliveryAttempt, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM delivery_attempts WHERE id = $1`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeNotFoundAttempt,
			"delivery attempt not found", err, map[string]any{"id": id})
	}
	if err != nil {
		return nil, dbError("failed to load delivery attempt", err)
	}
	return a, nil
}

// ListByNotification returns all attempts for a notification in attempt
// order.
func (s *AttemptStore) ListByNotification(ctx context.Context, notificationID string) ([]*domain.DeliveryAttempt, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+attemptColumns+`
		 FROM delivery_attempts
		 WHERE notification_id = $1
		 ORDER BY attempt_number`,
		notificationID)
	if err != nil {
		return nil, dbError("failed to list delivery attempts", err)
	}
	defer rows.Close()

	var out []*domain.DeliveryAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, dbError("failed to scan delivery attempt row", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate delivery attempt rows", err)
	}
	return out, nil
}

// Add persists a newly opened attempt. A duplicate attempt number for the
// same notification surfaces as a conflict.
func (s *AttemptStore) Add(ctx context.Context, a *domain.DeliveryAttempt) error {
	snap := a.Snapshot()
	_, err := s.db.Exec(ctx,
		`INSERT INTO delivery_attempts
		 (id, notification_id, attempt_number, status, error_message, attempted_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		snap.ID,
		snap.NotificationID,
		snap.AttemptNumber,
		string(snap.Status),
		nilIfEmpty(snap.ErrorMessage),
		snap.AttemptedAt,
		snap.CompletedAt,
	)
	if isUniqueViolation(err) {
		return types.NewAppErrorWithDetails(types.ErrCodeConflictAttemptNumber,
			"attempt number already recorded for this notification", err,
			map[string]any{"notification_id": snap.NotificationID, "attempt_number": snap.AttemptNumber})
	}
	if err != nil {
		return dbError("failed to insert delivery attempt", err)
	}
	return nil
}

// Update persists the completion of an attempt.
func (s *AttemptStore) Update(ctx context.Context, a *domain.DeliveryAttempt) error {
	snap := a.Snapshot()
	tag, err := s.db.Exec(ctx,
		`UPDATE delivery_attempts SET
		   status = $1, error_message = $2, completed_at = $3
		 WHERE id = $4`,
		string(snap.Status),
		nilIfEmpty(snap.ErrorMessage),
		snap.CompletedAt,
		snap.ID,
	)
	if err != nil {
		return dbError("failed to update delivery attempt", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppErrorWithDetails(types.ErrCodeNotFoundAttempt,
			"delivery attempt not found", nil, map[string]any{"id": snap.ID})
	}
	return nil
}

func scanAttempt(row pgx.Row) (*domain.DeliveryAttempt, error) {
	var (
		snap         domain.AttemptSnapshot
		status       string
		errorMessage *string
	)
	err := row.Scan(
		&snap.ID,
		&snap.NotificationID,
		&snap.AttemptNumber,
		&status,
		&errorMessage,
		&snap.AttemptedAt,
		&snap.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	snap.Status = types.AttemptStatus(status)
	if errorMessage != nil {
		snap.ErrorMessage = *errorMessage
	}
	return domain.RestoreDeliveryAttempt(snap), nil
}
