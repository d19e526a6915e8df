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

// CompleteAttemptRequest is the request body for
// POST /v1/attempts/{id}/complete.
type CompleteAttemptRequest struct {
	Status       string `json:"status" validate:"required,oneof=success failed"`
	ErrorMessage string `json:"error_message,omitempty" validate:"required_if=Status failed,max=2000"`
}

// AttemptResponse is the API representation of a delivery attempt.
type AttemptResponse struct {
	ID             string     `json:"id"`
	NotificationID string     `json:"notification_id"`
	AttemptNumber  int        `json:"attempt_number"`
	Status         string     `json:"status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	AttemptedAt    time.Time  `json:"attempted_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	DurationMs     *int64     `json:"duration_ms,omitempty"`
}

func toAttemptResponse(a *domain.DeliveryAttempt) AttemptResponse {
	resp := AttemptResponse{
		ID:             a.ID(),
		NotificationID: a.NotificationID(),
		AttemptNumber:  a.AttemptNumber(),
		Status:         string(a.Status()),
		ErrorMessage:   a.ErrorMessage(),
		AttemptedAt:    a.AttemptedAt(),
		CompletedAt:    a.CompletedAt(),
	}
	if d, ok := a.Duration(); ok {
		ms := d.Milliseconds()
		resp.DurationMs = &ms
	}
	return resp
}

// --- Handler ---

// AttemptHandler manages the delivery attempt audit trail: opening attempts
// against a notification and completing them exactly once.
type AttemptHandler struct {
	stores    domain.Stores
	tx        domain.TxManager
	validator *api.Validator
	logger    *slog.Logger
}

// NewAttemptHandler creates an AttemptHandler with the provided
// dependencies.
func NewAttemptHandler(stores domain.Stores, tx domain.TxManager, v *api.Validator, l *slog.Logger) *AttemptHandler {
	if l == nil {
		l = slog.Default()
	}
	return &AttemptHandler{
		stores:    stores,
		tx:        tx,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts attempt routes on the provided chi.Router.
func (h *AttemptHandler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications/{id}/attempts", func(r chi.Router) {
		r.Post("/", h.Open)
		r.Get("/", h.List)
	})
	r.Post("/attempts/{id}/complete", h.Complete)
}

// Open handles POST /v1/notifications/{id}/attempts. The attempt number is
// assigned inside the transaction from the attempts already recorded; the
// unique index on (notification_id, attempt_number) catches the race where
// two workers open an attempt simultaneously.
func (h *AttemptHandler) Open(w http.ResponseWriter, r *http.Request) {
	notificationID := chi.URLParam(r, "id")

	var attempt *domain.DeliveryAttempt
	err := h.tx.RunInTx(r.Context(), func(ctx context.Context, s domain.Stores) error {
		if _, err := s.Notifications().Get(ctx, notificationID); err != nil {
			return err
		}

		existing, err := s.Attempts().ListByNotification(ctx, notificationID)
		if err != nil {
			return err
		}

		attempt, err = domain.NewDeliveryAttempt(notificationID, len(existing)+1)
		if err != nil {
			return err
		}
		return s.Attempts().Add(ctx, attempt)
	})
	if err != nil {
		api.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "delivery attempt opened",
		"attempt_id", attempt.ID(),
		"notification_id", notificationID,
		"attempt_number", attempt.AttemptNumber(),
	)
	api.JSON(w, r, http.StatusCreated, api.APIResponse{Data: toAttemptResponse(attempt)})
}

// List handles GET /v1/notifications/{id}/attempts.
func (h *AttemptHandler) List(w http.ResponseWriter, r *http.Request) {
	notificationID := chi.URLParam(r, "id")

	if _, err := h.stores.Notifications().Get(r.Context(), notificationID); err != nil {
		api.Error(w, r, err)
		return
	}

	attempts, err := h.stores.Attempts().ListByNotification(r.Context(), notificationID)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	out := make([]AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, toAttemptResponse(a))
	}
	api.JSON(w, r, http.StatusOK, types.ListResponse[AttemptResponse]{
		Data:     out,
		PageInfo: types.PageInfo{HasMore: false},
	})
}

// Complete handles POST /v1/attempts/{id}/complete. An attempt completes
// exactly once; a second completion returns a state error.
func (h *AttemptHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req CompleteAttemptRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		api.Error(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")

	var attempt *domain.DeliveryAttempt
	err := h.tx.RunInTx(r.Context(), func(ctx context.Context, s domain.Stores) error {
		a, err := s.Attempts().Get(ctx, id)
		if err != nil {
			return err
		}

		if req.Status == string(types.AttemptSuccess) {
			err = a.MarkAsSuccess()
		} else {
			err = a.MarkAsFailed(req.ErrorMessage)
		}
		if err != nil {
			return err
		}

		if err := s.Attempts().Update(ctx, a); err != nil {
			return err
		}
		attempt = a
		return nil
	})
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: toAttemptResponse(attempt)})
}
