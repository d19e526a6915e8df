package db

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"notifier/internal/domain"
	"notifier/internal/types"
)

// Note: mockDBTX, mockRow, and mockRows are defined in
// notification_store_test.go and reused here.

func scanAttemptRow(snap domain.AttemptSnapshot) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = snap.ID
		*dest[1].(*string) = snap.NotificationID
		*dest[2].(*int) = snap.AttemptNumber
		*dest[3].(*string) = string(snap.Status)
		if snap.ErrorMessage != "" {
			s := snap.ErrorMessage
			*dest[4].(**string) = &s
		}
		*dest[5].(*time.Time) = snap.AttemptedAt
		*dest[6].(**time.Time) = snap.CompletedAt
		return nil
	}
}

func sampleAttemptSnapshot() domain.AttemptSnapshot {
	return domain.AttemptSnapshot{
		ID:             "att_abc123",
		NotificationID: "notif_abc123",
		AttemptNumber:  1,
		Status:         types.AttemptInProgress,
		AttemptedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAttemptStore_Get_Success(t *testing.T) {
	dbMock := new(mockDBTX)
	store := NewAttemptStore(dbMock)

	row := &mockRow{scanFn: scanAttemptRow(sampleAttemptSnapshot())}
	dbMock.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{"att_abc123"}).Return(row)

	a, err := store.Get(context.Background(), "att_abc123")
	require.NoError(t, err)
	assert.Equal(t, "notif_abc123", a.NotificationID())
	assert.Equal(t, types.AttemptInProgress, a.Status())
	dbMock.AssertExpectations(t)
}

func TestAttemptStore_Get_NotFound(t *testing.T) {
	dbMock := new(mockDBTX)
	store := NewAttemptStore(dbMock)

	row := &mockRow{scanErr: pgx.ErrNoRows}
	dbMock.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, err := store.Get(context.Background(), "att_missing")
	require.Error(t, err)
	assertAppErrorCode(t, err, types.ErrCodeNotFoundAttempt)
}

func TestAttemptStore_ListByNotification(t *testing.T) {
	dbMock := new(mockDBTX)
	store := NewAttemptStore(dbMock)

	completed := time.Date(2026, 3, 1, 12, 0, 3, 0, time.UTC)
	first := sampleAttemptSnapshot()
	first.Status = types.AttemptFailed
	first.ErrorMessage = "smtp timeout"
	first.CompletedAt = &completed
	second := sampleAttemptSnapshot()
	second.ID = "att_def456"
	second.AttemptNumber = 2

	rows := &mockRows{scanFns: []func(dest ...any) error{
		scanAttemptRow(first),
		scanAttemptRow(second),
	}}
	dbMock.On("Query", mock.Anything, mock.AnythingOfType("string"), []any{"notif_abc123"}).
		Return(rows, nil)

	list, err := store.ListByNotification(context.Background(), "notif_abc123")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, list[0].AttemptNumber())
	assert.Equal(t, "smtp timeout", list[0].ErrorMessage())
	assert.Equal(t, 2, list[1].AttemptNumber())
	assert.True(t, rows.closed)
}

func TestAttemptStore_Add_DuplicateAttemptNumber(t *testing.T) {
	dbMock := new(mockDBTX)
	store := NewAttemptStore(dbMock)

	a := domain.RestoreDeliveryAttempt(sampleAttemptSnapshot())
	dbMock.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, &pgconn.PgError{Code: uniqueViolation})

	err := store.Add(context.Background(), a)
	require.Error(t, err)
	assertAppErrorCode(t, err, types.ErrCodeConflictAttemptNumber)
}

func TestAttemptStore_Add_Success(t *testing.T) {
	dbMock := new(mockDBTX)
	store := NewAttemptStore(dbMock)

	a := domain.RestoreDeliveryAttempt(sampleAttemptSnapshot())
	dbMock.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)

	err := store.Add(context.Background(), a)
	require.NoError(t, err)
	dbMock.AssertExpectations(t)
}

func TestAttemptStore_Update_NotFound(t *testing.T) {
	dbMock := new(mockDBTX)
	store := NewAttemptStore(dbMock)

	a := domain.RestoreDeliveryAttempt(sampleAttemptSnapshot())
	dbMock.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := store.Update(context.Background(), a)
	require.Error(t, err)
	assertAppErrorCode(t, err, types.ErrCodeNotFoundAttempt)
}
