package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notifier/internal/api"
	"notifier/internal/domain"
	"notifier/internal/types"
)

func newTestNotificationHandler() (*NotificationHandler, *stubStores, *stubTxManager, *recordingSink) {
	stores := newStubStores()
	tx := &stubTxManager{stores: stores}
	sink := &recordingSink{}
	h := NewNotificationHandler(stores, tx, sink, testValidator(), testLogger())
	return h, stores, tx, sink
}

func notificationRouter(h *NotificationHandler) *chi.Mux {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func decodeNotification(t *testing.T, body *bytes.Buffer) NotificationResponse {
	t.Helper()
	var resp struct {
		Data NotificationResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Data
}

func decodeError(t *testing.T, body *bytes.Buffer) api.ErrorDetail {
	t.Helper()
	var resp api.APIErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Error
}

func TestNotificationHandler_Create(t *testing.T) {
	h, stores, _, _ := newTestNotificationHandler()

	body := `{"recipient":"  User@Example.COM ","channel":"email","priority":"high","content":"Your order shipped","subject":"Order update"}`
	req := httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	got := decodeNotification(t, rr.Body)
	assert.True(t, strings.HasPrefix(got.ID, "notif_"))
	assert.Equal(t, "user@example.com", got.Recipient)
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, "high", got.Priority)

	require.NotNil(t, stores.notifications.lastAdded)
	assert.Equal(t, got.ID, stores.notifications.lastAdded.ID())
}

func TestNotificationHandler_Create_FromTemplate(t *testing.T) {
	h, stores, _, _ := newTestNotificationHandler()

	tmpl, err := domain.NewTemplate("order-shipped", types.ChannelEmail,
		"Order {{orderId}} shipped", "Update on {{orderId}}")
	require.NoError(t, err)
	stores.templates.getByNameFn = func(_ context.Context, name string) (*domain.Template, error) {
		assert.Equal(t, "order-shipped", name)
		return tmpl, nil
	}

	body := `{"recipient":"user@example.com","channel":"email","priority":"normal","template":"order-shipped","data":{"orderId":"12345"}}`
	req := httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	got := decodeNotification(t, rr.Body)
	assert.Equal(t, "Order 12345 shipped", got.Content)
	assert.Equal(t, "Update on 12345", got.Subject)
}

func TestNotificationHandler_Create_TemplateChannelMismatch(t *testing.T) {
	h, stores, _, _ := newTestNotificationHandler()

	tmpl, err := domain.NewTemplate("order-shipped", types.ChannelSMS,
		"Order {{orderId}} shipped", "")
	require.NoError(t, err)
	stores.templates.getByNameFn = func(_ context.Context, _ string) (*domain.Template, error) {
		return tmpl, nil
	}

	body := `{"recipient":"user@example.com","channel":"email","priority":"normal","template":"order-shipped","data":{"orderId":"12345"}}`
	req := httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	detail := decodeError(t, rr.Body)
	assert.Equal(t, string(types.ErrCodeValidationChannelMismatch), detail.Code)
	assert.Equal(t, "sms", detail.Details["template_channel"])
	assert.Equal(t, "email", detail.Details["recipient_channel"])
	assert.Nil(t, stores.notifications.lastAdded)
}

func TestNotificationHandler_Create_TemplateAndContentRejected(t *testing.T) {
	h, _, _, _ := newTestNotificationHandler()

	body := `{"recipient":"user@example.com","channel":"email","priority":"normal","template":"order-shipped","content":"literal"}`
	req := httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	detail := decodeError(t, rr.Body)
	assert.Equal(t, string(types.ErrCodeValidationInvalidBody), detail.Code)
}

func TestNotificationHandler_Create_InvalidRecipient(t *testing.T) {
	h, _, _, _ := newTestNotificationHandler()

	body := `{"recipient":"not-an-email","channel":"email","priority":"normal","content":"hi","subject":"s"}`
	req := httptest.NewRequest(http.MethodPost, "/notifications", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	detail := decodeError(t, rr.Body)
	assert.Equal(t, string(types.ErrCodeValidationInvalidEmail), detail.Code)
}

func TestNotificationHandler_Send(t *testing.T) {
	h, stores, tx, sink := newTestNotificationHandler()
	stores.notifications.getFn = func(_ context.Context, id string) (*domain.Notification, error) {
		return pendingNotification(id), nil
	}

	r := notificationRouter(h)
	req := httptest.NewRequest(http.MethodPost, "/notifications/notif_abc/send", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeNotification(t, rr.Body)
	assert.Equal(t, "sent", got.Status)
	assert.NotNil(t, got.SentAt)

	assert.Equal(t, 1, tx.commits)
	require.NotNil(t, stores.notifications.lastUpdated)
	assert.Equal(t, types.StatusSent, stores.notifications.lastUpdated.Status())

	events := sink.dispatched()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventNotificationSent, events[0].EventName())
}

func TestNotificationHandler_Send_AlreadySent(t *testing.T) {
	h, stores, tx, sink := newTestNotificationHandler()
	stores.notifications.getFn = func(_ context.Context, id string) (*domain.Notification, error) {
		sentAt := time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC)
		return domain.RestoreNotification(domain.NotificationSnapshot{
			ID:             id,
			RecipientValue: "user@example.com",
			Channel:        types.ChannelEmail,
			Content:        "hi",
			Subject:        "s",
			Status:         types.StatusSent,
			Priority:       types.PriorityNormal,
			CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			SentAt:         &sentAt,
			Version:        2,
		}), nil
	}

	r := notificationRouter(h)
	req := httptest.NewRequest(http.MethodPost, "/notifications/notif_abc/send", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
	detail := decodeError(t, rr.Body)
	assert.Equal(t, string(types.ErrCodeStateInvalidTransition), detail.Code)

	// failed transaction: nothing persisted, nothing published
	assert.Equal(t, 0, tx.commits)
	assert.Empty(t, sink.dispatched())
}

func TestNotificationHandler_Fail(t *testing.T) {
	h, stores, _, sink := newTestNotificationHandler()
	stores.notifications.getFn = func(_ context.Context, id string) (*domain.Notification, error) {
		return pendingNotification(id), nil
	}

	r := notificationRouter(h)
	body := `{"reason":"smtp timeout"}`
	req := httptest.NewRequest(http.MethodPost, "/notifications/notif_abc/fail", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeNotification(t, rr.Body)
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, "smtp timeout", got.ErrorMessage)

	events := sink.dispatched()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventNotificationFailed, events[0].EventName())
}

func TestNotificationHandler_Cancel_NoEvent(t *testing.T) {
	h, stores, tx, sink := newTestNotificationHandler()
	stores.notifications.getFn = func(_ context.Context, id string) (*domain.Notification, error) {
		return pendingNotification(id), nil
	}

	r := notificationRouter(h)
	req := httptest.NewRequest(http.MethodPost, "/notifications/notif_abc/cancel", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeNotification(t, rr.Body)
	assert.Equal(t, "cancelled", got.Status)

	assert.Equal(t, 1, tx.commits)
	assert.Empty(t, sink.dispatched())
}

func TestNotificationHandler_Schedule(t *testing.T) {
	h, stores, _, sink := newTestNotificationHandler()
	stores.notifications.getFn = func(_ context.Context, id string) (*domain.Notification, error) {
		return pendingNotification(id), nil
	}

	at := time.Now().UTC().Add(2 * time.Hour).Truncate(time.Second)
	r := notificationRouter(h)
	body := fmt.Sprintf(`{"scheduled_at":%q}`, at.Format(time.RFC3339))
	req := httptest.NewRequest(http.MethodPost, "/notifications/notif_abc/schedule", strings.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeNotification(t, rr.Body)
	require.NotNil(t, got.ScheduledAt)
	assert.True(t, got.ScheduledAt.Equal(at))

	events := sink.dispatched()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventNotificationScheduled, events[0].EventName())
}

func TestNotificationHandler_Retry(t *testing.T) {
	h, stores, _, sink := newTestNotificationHandler()
	stores.notifications.getFn = func(_ context.Context, id string) (*domain.Notification, error) {
		return failedNotification(id, types.PriorityNormal), nil
	}
	stores.attempts.listByNotificationFn = func(_ context.Context, id string) ([]*domain.DeliveryAttempt, error) {
		a, err := domain.NewDeliveryAttempt(id, 1)
		if err != nil {
			return nil, err
		}
		return []*domain.DeliveryAttempt{a}, nil
	}

	r := notificationRouter(h)
	req := httptest.NewRequest(http.MethodPost, "/notifications/notif_abc/retry", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeNotification(t, rr.Body)
	assert.Equal(t, "pending", got.Status)
	assert.Empty(t, got.ErrorMessage)

	events := sink.dispatched()
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventNotificationRetried, events[0].EventName())
}

func TestNotificationHandler_Retry_BudgetExhausted(t *testing.T) {
	h, stores, tx, sink := newTestNotificationHandler()
	stores.notifications.getFn = func(_ context.Context, id string) (*domain.Notification, error) {
		return failedNotification(id, types.PriorityLow), nil
	}
	stores.attempts.listByNotificationFn = func(_ context.Context, id string) ([]*domain.DeliveryAttempt, error) {
		// low priority allows 2 attempts; both are spent
		var out []*domain.DeliveryAttempt
		for i := 1; i <= 2; i++ {
			a, err := domain.NewDeliveryAttempt(id, i)
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}
		return out, nil
	}

	r := notificationRouter(h)
	req := httptest.NewRequest(http.MethodPost, "/notifications/notif_abc/retry", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusConflict, rr.Code)
	detail := decodeError(t, rr.Body)
	assert.Equal(t, string(types.ErrCodeConflictRetryExhausted), detail.Code)
	assert.Equal(t, "low", detail.Details["priority"])

	assert.Equal(t, 0, tx.commits)
	assert.Empty(t, sink.dispatched())
}

func TestNotificationHandler_Get_NotFound(t *testing.T) {
	h, stores, _, _ := newTestNotificationHandler()
	stores.notifications.getFn = func(_ context.Context, id string) (*domain.Notification, error) {
		return nil, types.NewAppError(types.ErrCodeNotFoundNotification, "notification not found", nil)
	}

	r := notificationRouter(h)
	req := httptest.NewRequest(http.MethodGet, "/notifications/notif_missing", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	detail := decodeError(t, rr.Body)
	assert.Equal(t, string(types.ErrCodeNotFoundNotification), detail.Code)
}

func TestNotificationHandler_List_PendingUsesEffectiveOrder(t *testing.T) {
	h, stores, _, _ := newTestNotificationHandler()
	var pendingCalls, statusCalls int
	stores.notifications.listPendingFn = func(_ context.Context, p types.ListParams) ([]*domain.Notification, error) {
		pendingCalls++
		return []*domain.Notification{pendingNotification("notif_1")}, nil
	}
	stores.notifications.listByStatusFn = func(_ context.Context, _ types.NotificationStatus, _ types.ListParams) ([]*domain.Notification, error) {
		statusCalls++
		return nil, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/notifications?status=pending", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, pendingCalls)
	assert.Equal(t, 0, statusCalls)
}

func TestNotificationHandler_List_InvalidStatus(t *testing.T) {
	h, _, _, _ := newTestNotificationHandler()

	req := httptest.NewRequest(http.MethodGet, "/notifications?status=bogus", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}
