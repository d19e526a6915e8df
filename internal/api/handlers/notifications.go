package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"notifier/internal/api"
	"notifier/internal/domain"
	"notifier/internal/types"
)

// --- Request/Response Models ---

// CreateNotificationRequest is the request body for POST /v1/notifications.
// Content is supplied either directly (content + subject) or by naming an
// active template plus the data to render it with; the two modes are
// mutually exclusive.
type CreateNotificationRequest struct {
	Recipient string            `json:"recipient" validate:"required"`
	Channel   string            `json:"channel" validate:"required,oneof=email sms push webhook"`
	Priority  string            `json:"priority" validate:"required,oneof=low normal high critical"`
	Content   string            `json:"content,omitempty" validate:"required_without=Template,excluded_with=Template"`
	Subject   string            `json:"subject,omitempty" validate:"excluded_with=Template"`
	Template  string            `json:"template,omitempty"`
	Data      map[string]string `json:"data,omitempty" validate:"excluded_without=Template"`
}

// ScheduleNotificationRequest is the request body for
// POST /v1/notifications/{id}/schedule.
type ScheduleNotificationRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
}

// FailNotificationRequest is the request body for
// POST /v1/notifications/{id}/fail.
type FailNotificationRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// NotificationResponse is the API representation of a notification.
type NotificationResponse struct {
	ID           string     `json:"id"`
	Recipient    string     `json:"recipient"`
	Channel      string     `json:"channel"`
	Content      string     `json:"content"`
	Subject      string     `json:"subject,omitempty"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
}

func toNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:           n.ID(),
		Recipient:    n.Recipient().Value(),
		Channel:      string(n.Recipient().Channel()),
		Content:      n.Content(),
		Subject:      n.Subject(),
		Status:       string(n.Status()),
		Priority:     string(n.Priority()),
		ErrorMessage: n.ErrorMessage(),
		CreatedAt:    n.CreatedAt(),
		ScheduledAt:  n.ScheduledAt(),
		SentAt:       n.SentAt(),
		FailedAt:     n.FailedAt(),
	}
}

// --- Handler ---

// NotificationHandler manages the notification lifecycle. Every mutating
// handler follows the same shape: load the entity, apply the domain
// transition, persist inside a transaction, then dispatch the drained events
// only after the commit succeeded.
type NotificationHandler struct {
	stores    domain.Stores
	tx        domain.TxManager
	events    domain.EventSink
	validator *api.Validator
	logger    *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler with the provided
// dependencies.
func NewNotificationHandler(
	stores domain.Stores,
	tx domain.TxManager,
	events domain.EventSink,
	v *api.Validator,
	l *slog.Logger,
) *NotificationHandler {
	if l == nil {
		l = slog.Default()
	}
	return &NotificationHandler{
		stores:    stores,
		tx:        tx,
		events:    events,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts notification routes on the provided chi.Router.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Post("/schedule", h.Schedule)
			r.Post("/send", h.Send)
			r.Post("/fail", h.Fail)
			r.Post("/cancel", h.Cancel)
			r.Post("/retry", h.Retry)
		})
	})
}

// Create handles POST /v1/notifications.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateNotificationRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		api.Error(w, r, err)
		return
	}

	recipient, err := domain.NewRecipient(req.Recipient, types.Channel(req.Channel))
	if err != nil {
		api.Error(w, r, err)
		return
	}

	content, subject := req.Content, req.Subject
	if req.Template != "" {
		tmpl, err := h.stores.Templates().GetByName(r.Context(), req.Template)
		if err != nil {
			api.Error(w, r, err)
			return
		}
		if tmpl.Channel() != recipient.Channel() {
			api.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationChannelMismatch,
				"template channel does not match the recipient channel", nil,
				map[string]any{
					"template_channel":  string(tmpl.Channel()),
					"recipient_channel": string(recipient.Channel()),
				}))
			return
		}
		rendered, err := tmpl.Render(domain.NewTemplateData(req.Data))
		if err != nil {
			api.Error(w, r, err)
			return
		}
		content, subject = rendered.Body, rendered.Subject
	}

	n, err := domain.NewNotification(recipient, content, types.Priority(req.Priority), subject)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.stores.Notifications().Add(r.Context(), n); err != nil {
		api.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "notification created",
		"notification_id", n.ID(),
		"channel", n.Recipient().Channel(),
		"priority", n.Priority(),
	)
	api.JSON(w, r, http.StatusCreated, api.APIResponse{Data: toNotificationResponse(n)})
}

// Get handles GET /v1/notifications/{id}.
func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := h.stores.Notifications().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.Error(w, r, err)
		return
	}
	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: toNotificationResponse(n)})
}

// List handles GET /v1/notifications?status=. Listing pending notifications
// orders by effective send time (scheduled time, falling back to creation);
// other statuses list newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	status := types.NotificationStatus(r.URL.Query().Get("status"))
	if !status.Valid() {
		api.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
			"status query parameter must be one of pending, sent, failed, cancelled", nil,
			map[string]any{"field": "status", "value": string(status)}))
		return
	}

	params := listParams(r)
	var (
		list []*domain.Notification
		err  error
	)
	if status == types.StatusPending {
		list, err = h.stores.Notifications().ListPending(r.Context(), params)
	} else {
		list, err = h.stores.Notifications().ListByStatus(r.Context(), status, params)
	}
	if err != nil {
		api.Error(w, r, err)
		return
	}

	out := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, toNotificationResponse(n))
	}
	api.JSON(w, r, http.StatusOK, types.ListResponse[NotificationResponse]{
		Data:     out,
		PageInfo: types.PageInfo{HasMore: len(out) == params.Normalize().Limit},
	})
}

// Schedule handles POST /v1/notifications/{id}/schedule.
func (h *NotificationHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleNotificationRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		api.Error(w, r, err)
		return
	}

	h.transition(w, r, func(ctx context.Context, s domain.Stores, n *domain.Notification) error {
		return n.Schedule(req.ScheduledAt)
	})
}

// Send handles POST /v1/notifications/{id}/send.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, s domain.Stores, n *domain.Notification) error {
		return n.Send()
	})
}

// Fail handles POST /v1/notifications/{id}/fail.
func (h *NotificationHandler) Fail(w http.ResponseWriter, r *http.Request) {
	var req FailNotificationRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		api.Error(w, r, err)
		return
	}

	h.transition(w, r, func(ctx context.Context, s domain.Stores, n *domain.Notification) error {
		return n.Fail(req.Reason)
	})
}

// Cancel handles POST /v1/notifications/{id}/cancel.
func (h *NotificationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, s domain.Stores, n *domain.Notification) error {
		return n.Cancel()
	})
}

// Retry handles POST /v1/notifications/{id}/retry. The retry is admitted
// only while the priority tier's budget covers the attempts already made.
func (h *NotificationHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, s domain.Stores, n *domain.Notification) error {
		attempts, err := s.Attempts().ListByNotification(ctx, n.ID())
		if err != nil {
			return err
		}
		ok, err := n.CanRetry(len(attempts))
		if err != nil {
			return err
		}
		if !ok {
			return types.NewAppErrorWithDetails(types.ErrCodeConflictRetryExhausted,
				"retry budget exhausted for this priority", nil,
				map[string]any{
					"priority": string(n.Priority()),
					"attempts": len(attempts),
				})
		}
		return n.Retry()
	})
}

// transition runs one lifecycle operation inside a transaction: load, apply,
// persist. Events drained from the entity are dispatched only after the
// commit succeeded; a failed transaction leaves the buffer untouched and
// nothing is published.
func (h *NotificationHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, s domain.Stores, n *domain.Notification) error,
) {
	id := chi.URLParam(r, "id")

	var updated *domain.Notification
	err := h.tx.RunInTx(r.Context(), func(ctx context.Context, s domain.Stores) error {
		n, err := s.Notifications().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := op(ctx, s, n); err != nil {
			return err
		}
		if err := s.Notifications().Update(ctx, n); err != nil {
			return err
		}
		updated = n
		return nil
	})
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if h.events != nil {
		h.events.Dispatch(r.Context(), updated.PullEvents())
	}
	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: toNotificationResponse(updated)})
}
