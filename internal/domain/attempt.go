package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"notifier/internal/types"
)

// DeliveryAttempt records one delivery try for a notification. It references
// the notification by ID only and never mutates it; many attempts may point
// at the same notification. An attempt starts InProgress and completes
// exactly once, after which it is immutable.
type DeliveryAttempt struct {
	id             string
	notificationID string
	attemptNumber  int
	status         types.AttemptStatus
	errorMessage   string
	attemptedAt    time.Time
	completedAt    *time.Time
}

// NewDeliveryAttempt opens an in-progress attempt. Attempt numbers are
// caller-assigned, start at 1, and must be unique per notification; the
// uniqueness is enforced by the attempt store.
func NewDeliveryAttempt(notificationID string, attemptNumber int) (*DeliveryAttempt, error) {
	if strings.TrimSpace(notificationID) == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField,
			"delivery attempt requires a notification id", nil)
	}
	if attemptNumber < 1 {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidAttempt,
			"attempt number must be at least 1", nil,
			map[string]any{"attempt_number": attemptNumber})
	}
	return &DeliveryAttempt{
		id:             "att_" + uuid.New().String(),
		notificationID: notificationID,
		attemptNumber:  attemptNumber,
		status:         types.AttemptInProgress,
		attemptedAt:    nowUTC(),
	}, nil
}

// MarkAsSuccess completes the attempt successfully.
func (a *DeliveryAttempt) MarkAsSuccess() error {
	if err := a.requireInProgress("mark success"); err != nil {
		return err
	}
	now := nowUTC()
	a.status = types.AttemptSuccess
	a.completedAt = &now
	return nil
}

// MarkAsFailed completes the attempt with a failure reason.
func (a *DeliveryAttempt) MarkAsFailed(reason string) error {
	if err := a.requireInProgress("mark failed"); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return types.NewAppError(types.ErrCodeValidationEmptyReason,
			"failure reason must not be empty", nil)
	}
	now := nowUTC()
	a.status = types.AttemptFailed
	a.errorMessage = reason
	a.completedAt = &now
	return nil
}

// Duration returns how long the attempt took, or false while still in
// progress.
func (a *DeliveryAttempt) Duration() (time.Duration, bool) {
	if a.completedAt == nil {
		return 0, false
	}
	return a.completedAt.Sub(a.attemptedAt), true
}

func (a *DeliveryAttempt) requireInProgress(op string) error {
	if a.status != types.AttemptInProgress {
		return types.NewAppErrorWithDetails(types.ErrCodeStateAttemptCompleted,
			"delivery attempt already completed", nil,
			map[string]any{"operation": op, "status": string(a.status)})
	}
	return nil
}

// ID returns the attempt identifier.
func (a *DeliveryAttempt) ID() string { return a.id }

// NotificationID returns the referenced notification's identifier.
func (a *DeliveryAttempt) NotificationID() string { return a.notificationID }

// AttemptNumber returns the caller-assigned 1-based attempt number.
func (a *DeliveryAttempt) AttemptNumber() int { return a.attemptNumber }

// Status returns the attempt state.
func (a *DeliveryAttempt) Status() types.AttemptStatus { return a.status }

// ErrorMessage returns the failure reason; empty unless failed.
func (a *DeliveryAttempt) ErrorMessage() string { return a.errorMessage }

// AttemptedAt returns when the attempt was opened.
func (a *DeliveryAttempt) AttemptedAt() time.Time { return a.attemptedAt }

// CompletedAt returns when the attempt completed, if it has.
func (a *DeliveryAttempt) CompletedAt() *time.Time { return a.completedAt }
