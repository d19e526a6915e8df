package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifier/internal/domain"
	"notifier/internal/types"
)

func newTestAttemptHandler() (*AttemptHandler, *stubStores, *stubTxManager) {
	stores := newStubStores()
	tx := &stubTxManager{stores: stores}
	h := NewAttemptHandler(stores, tx, testValidator(), testLogger())
	return h, stores, tx
}

func attemptRouter(h *AttemptHandler) *chi.Mux {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func decodeAttempt(t *testing.T, rr *httptest.ResponseRecorder) AttemptResponse {
	t.Helper()
	var resp struct {
		Data AttemptResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp.Data
}

func TestAttemptHandler_Open(t *testing.T) {
	h, stores, tx := newTestAttemptHandler()
	stores.notifications.getFn = func(_ context.Context, id string) (*domain.Notification, error) {
		return pendingNotification(id), nil
	}
	stores.attempts.listByNotificationFn = func(_ context.Context, id string) ([]*domain.DeliveryAttempt, error) {
		a, err := domain.NewDeliveryAttempt(id, 1)
		if err != nil {
			return nil, err
		}
		return []*domain.DeliveryAttempt{a}, nil
	}

	r := attemptRouter(h)
	req := httptest.NewRequest(http.MethodPost, "/notifications/notif_abc/attempts", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	got := decodeAttempt(t, rr)
	assert.True(t, strings.HasPrefix(got.ID, "att_"))
	assert.Equal(t, "notif_abc", got.NotificationID)
	assert.Equal(t, 2, got.AttemptNumber)
	assert.Equal(t, "in_progress", got.Status)
	assert.Nil(t, got.CompletedAt)

	assert.Equal(t, 1, tx.commits)
	require.NotNil(t, stores.attempts.lastAdded)
	assert.Equal(t, 2, stores.attempts.lastAdded.AttemptNumber())
}

func TestAttemptHandler_Open_NotificationMissing(t *testing.T) {
	h, stores, tx := newTestAttemptHandler()
	stores.notifications.getFn = func(_ context.Context, id string) (*domain.Notification, error) {
		return nil, types.NewAppError(types.ErrCodeNotFoundNotification, "notification not found", nil)
	}

	r := attemptRouter(h)
	req := httptest.NewRequest(http.MethodPost, "/notifications/notif_missing/attempts", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, 0, tx.commits)
	assert.Nil(t, stores.attempts.lastAdded)
}

func TestAttemptHandler_Complete_Success(t *testing.T) {
	h, stores, _ := newTestAttemptHandler()
	attempt, err := domain.NewDeliveryAttempt("notif_abc", 1)
	require.NoError(t, err)
	stores.attempts.getFn = func(_ context.Context, id string) (*domain.DeliveryAttempt, error) {
		return attempt, nil
	}

	r := attemptRouter(h)
	body := `{"status":"success"}`
	req := httptest.NewRequest(http.MethodPost, "/attempts/"+attempt.ID()+"/complete", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeAttempt(t, rr)
	assert.Equal(t, "success", got.Status)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.DurationMs)
	assert.GreaterOrEqual(t, *got.DurationMs, int64(0))

	require.NotNil(t, stores.attempts.lastUpdated)
	assert.Equal(t, types.AttemptSuccess, stores.attempts.lastUpdated.Status())
}

func TestAttemptHandler_Complete_FailedRequiresError(t *testing.T) {
	h, _, tx := newTestAttemptHandler()

	r := attemptRouter(h)
	body := `{"status":"failed"}`
	req := httptest.NewRequest(http.MethodPost, "/attempts/att_abc/complete", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	detail := decodeError(t, rr.Body)
	assert.Equal(t, string(types.ErrCodeValidationInvalidBody), detail.Code)
	assert.Equal(t, 0, tx.commits)
}

func TestAttemptHandler_Complete_Failed(t *testing.T) {
	h, stores, _ := newTestAttemptHandler()
	attempt, err := domain.NewDeliveryAttempt("notif_abc", 1)
	require.NoError(t, err)
	stores.attempts.getFn = func(_ context.Context, id string) (*domain.DeliveryAttempt, error) {
		return attempt, nil
	}

	r := attemptRouter(h)
	body := `{"status":"failed","error_message":"smtp timeout"}`
	req := httptest.NewRequest(http.MethodPost, "/attempts/"+attempt.ID()+"/complete", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeAttempt(t, rr)
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, "smtp timeout", got.ErrorMessage)
}

func TestAttemptHandler_Complete_OnlyOnce(t *testing.T) {
	h, stores, tx := newTestAttemptHandler()
	attempt, err := domain.NewDeliveryAttempt("notif_abc", 1)
	require.NoError(t, err)
	require.NoError(t, attempt.MarkAsSuccess())
	stores.attempts.getFn = func(_ context.Context, id string) (*domain.DeliveryAttempt, error) {
		return attempt, nil
	}

	r := attemptRouter(h)
	body := `{"status":"failed","error_message":"late failure"}`
	req := httptest.NewRequest(http.MethodPost, "/attempts/"+attempt.ID()+"/complete", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
	detail := decodeError(t, rr.Body)
	assert.Equal(t, string(types.ErrCodeStateAttemptCompleted), detail.Code)
	assert.Equal(t, 0, tx.commits)

	// original outcome is untouched
	assert.Equal(t, types.AttemptSuccess, attempt.Status())
	assert.Empty(t, attempt.ErrorMessage())
}

func TestAttemptHandler_List(t *testing.T) {
	h, stores, _ := newTestAttemptHandler()
	stores.notifications.getFn = func(_ context.Context, id string) (*domain.Notification, error) {
		return pendingNotification(id), nil
	}
	stores.attempts.listByNotificationFn = func(_ context.Context, id string) ([]*domain.DeliveryAttempt, error) {
		var out []*domain.DeliveryAttempt
		for i := 1; i <= 3; i++ {
			a, err := domain.NewDeliveryAttempt(id, i)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}
		return out, nil
	}

	r := attemptRouter(h)
	req := httptest.NewRequest(http.MethodGet, "/notifications/notif_abc/attempts", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp types.ListResponse[AttemptResponse]
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Data, 3)
	assert.Equal(t, 1, resp.Data[0].AttemptNumber)
	assert.Equal(t, 3, resp.Data[2].AttemptNumber)
}
