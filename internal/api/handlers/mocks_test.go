package handlers

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"notifier/internal/api"
	"notifier/internal/domain"
	"notifier/internal/types"
)

// =============================================================================
// Shared Mock Implementations
// =============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testValidator() *api.Validator {
	return api.NewValidator()
}

// pendingNotification builds a persisted-shape pending email notification.
func pendingNotification(id string) *domain.Notification {
	return domain.RestoreNotification(domain.NotificationSnapshot{
		ID:             id,
		RecipientValue: "user@example.com",
		Channel:        types.ChannelEmail,
		Content:        "Your order shipped",
		Subject:        "Order update",
		Status:         types.StatusPending,
		Priority:       types.PriorityNormal,
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Version:        1,
	})
}

// failedNotification builds a persisted-shape failed notification.
func failedNotification(id string, priority types.Priority) *domain.Notification {
	failedAt := time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC)
	return domain.RestoreNotification(domain.NotificationSnapshot{
		ID:             id,
		RecipientValue: "user@example.com",
		Channel:        types.ChannelEmail,
		Content:        "Your order shipped",
		Subject:        "Order update",
		Status:         types.StatusFailed,
		Priority:       priority,
		CreatedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		FailedAt:       &failedAt,
		ErrorMessage:   "smtp timeout",
		Version:        2,
	})
}

type mockNotificationStore struct {
	getFn          func(ctx context.Context, id string) (*domain.Notification, error)
	listByStatusFn func(ctx context.Context, status types.NotificationStatus, p types.ListParams) ([]*domain.Notification, error)
	listPendingFn  func(ctx context.Context, p types.ListParams) ([]*domain.Notification, error)
	addFn          func(ctx context.Context, n *domain.Notification) error
	updateFn       func(ctx context.Context, n *domain.Notification) error

	lastAdded   *domain.Notification
	lastUpdated *domain.Notification
}

func (m *mockNotificationStore) Get(ctx context.Context, id string) (*domain.Notification, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return pendingNotification(id), nil
}

func (m *mockNotificationStore) ListByStatus(ctx context.Context, status types.NotificationStatus, p types.ListParams) ([]*domain.Notification, error) {
	if m.listByStatusFn != nil {
		return m.listByStatusFn(ctx, status, p)
	}
	return nil, nil
}

func (m *mockNotificationStore) ListPending(ctx context.Context, p types.ListParams) ([]*domain.Notification, error) {
	if m.listPendingFn != nil {
		return m.listPendingFn(ctx, p)
	}
	return nil, nil
}

func (m *mockNotificationStore) Add(ctx context.Context, n *domain.Notification) error {
	m.lastAdded = n
	if m.addFn != nil {
		return m.addFn(ctx, n)
	}
	return nil
}

func (m *mockNotificationStore) Update(ctx context.Context, n *domain.Notification) error {
	m.lastUpdated = n
	if m.updateFn != nil {
		return m.updateFn(ctx, n)
	}
	return nil
}

type mockTemplateStore struct {
	getFn                 func(ctx context.Context, id string) (*domain.Template, error)
	getByNameFn           func(ctx context.Context, name string) (*domain.Template, error)
	listByChannelFn       func(ctx context.Context, channel types.Channel, p types.ListParams) ([]*domain.Template, error)
	listActiveByChannelFn func(ctx context.Context, channel types.Channel, p types.ListParams) ([]*domain.Template, error)
	addFn                 func(ctx context.Context, t *domain.Template) error
	updateFn              func(ctx context.Context, t *domain.Template) error

	lastAdded   *domain.Template
	lastUpdated *domain.Template

	listActiveCalls int
	listCalls       int
}

func (m *mockTemplateStore) Get(ctx context.Context, id string) (*domain.Template, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundTemplate, "template not found", nil)
}

func (m *mockTemplateStore) GetByName(ctx context.Context, name string) (*domain.Template, error) {
	if m.getByNameFn != nil {
		return m.getByNameFn(ctx, name)
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundTemplate, "template not found", nil)
}

func (m *mockTemplateStore) ListByChannel(ctx context.Context, channel types.Channel, p types.ListParams) ([]*domain.Template, error) {
	m.listCalls++
	if m.listByChannelFn != nil {
		return m.listByChannelFn(ctx, channel, p)
	}
	return nil, nil
}

func (m *mockTemplateStore) ListActiveByChannel(ctx context.Context, channel types.Channel, p types.ListParams) ([]*domain.Template, error) {
	m.listActiveCalls++
	if m.listActiveByChannelFn != nil {
		return m.listActiveByChannelFn(ctx, channel, p)
	}
	return nil, nil
}

func (m *mockTemplateStore) Add(ctx context.Context, t *domain.Template) error {
	m.lastAdded = t
	if m.addFn != nil {
		return m.addFn(ctx, t)
	}
	return nil
}

func (m *mockTemplateStore) Update(ctx context.Context, t *domain.Template) error {
	m.lastUpdated = t
	if m.updateFn != nil {
		return m.updateFn(ctx, t)
	}
	return nil
}

type mockAttemptStore struct {
	getFn                func(ctx context.Context, id string) (*domain.DeliveryAttempt, error)
	listByNotificationFn func(ctx context.Context, notificationID string) ([]*domain.DeliveryAttempt, error)
	addFn                func(ctx context.Context, a *domain.DeliveryAttempt) error
	updateFn             func(ctx context.Context, a *domain.DeliveryAttempt) error

	lastAdded   *domain.DeliveryAttempt
	lastUpdated *domain.DeliveryAttempt
}

func (m *mockAttemptStore) Get(ctx context.Context, id string) (*domain.DeliveryAttempt, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundAttempt, "delivery attempt not found", nil)
}

func (m *mockAttemptStore) ListByNotification(ctx context.Context, notificationID string) ([]*domain.DeliveryAttempt, error) {
	if m.listByNotificationFn != nil {
		return m.listByNotificationFn(ctx, notificationID)
	}
	return nil, nil
}

func (m *mockAttemptStore) Add(ctx context.Context, a *domain.DeliveryAttempt) error {
	m.lastAdded = a
	if m.addFn != nil {
		return m.addFn(ctx, a)
	}
	return nil
}

func (m *mockAttemptStore) Update(ctx context.Context, a *domain.DeliveryAttempt) error {
	m.lastUpdated = a
	if m.updateFn != nil {
		return m.updateFn(ctx, a)
	}
	return nil
}

// stubStores satisfies domain.Stores over the mock stores.
type stubStores struct {
	notifications *mockNotificationStore
	templates     *mockTemplateStore
	attempts      *mockAttemptStore
}

func newStubStores() *stubStores {
	return &stubStores{
		notifications: &mockNotificationStore{},
		templates:     &mockTemplateStore{},
		attempts:      &mockAttemptStore{},
	}
}

func (s *stubStores) Notifications() domain.NotificationStore { return s.notifications }
func (s *stubStores) Templates() domain.TemplateStore         { return s.templates }
func (s *stubStores) Attempts() domain.AttemptStore           { return s.attempts }

// stubTxManager runs the transactional function against the stub stores
// without a real transaction. commits counts successful runs.
type stubTxManager struct {
	stores  domain.Stores
	commits int
}

func (m *stubTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	if err := fn(ctx, m.stores); err != nil {
		return err
	}
	m.commits++
	return nil
}

// recordingSink captures dispatched events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Dispatch(_ context.Context, events []domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
}

func (s *recordingSink) dispatched() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}
