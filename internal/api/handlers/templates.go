// Package handlers contains the HTTP handler implementations for the
// notifier API. Handlers depend on the domain store ports for persistence
// and on the api package chassis for decoding, validation, and response
// formatting.
package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"notifier/internal/api"
	"notifier/internal/domain"
	"notifier/internal/types"
)

// --- Request/Response Models ---

// CreateTemplateRequest is the request body for POST /v1/templates.
type CreateTemplateRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Channel string `json:"channel" validate:"required,oneof=email sms push webhook"`
	Subject string `json:"subject,omitempty" validate:"max=500"`
	Body    string `json:"body" validate:"required"`
}

// UpdateTemplateContentRequest is the request body for
// PATCH /v1/templates/{id}/content.
type UpdateTemplateContentRequest struct {
	Subject string `json:"subject,omitempty" validate:"max=500"`
	Body    string `json:"body" validate:"required"`
}

// RenderTemplateRequest is the request body for POST /v1/templates/{id}/render.
type RenderTemplateRequest struct {
	Data map[string]string `json:"data"`
}

// TemplateResponse is the API representation of a template.
type TemplateResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Channel      string    `json:"channel"`
	Subject      string    `json:"subject,omitempty"`
	Body         string    `json:"body"`
	IsActive     bool      `json:"is_active"`
	Placeholders []string  `json:"placeholders"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RenderedContentResponse is the result of a render preview.
type RenderedContentResponse struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

func toTemplateResponse(t *domain.Template) TemplateResponse {
	return TemplateResponse{
		ID:           t.ID(),
		Name:         t.Name(),
		Channel:      string(t.Channel()),
		Subject:      t.Subject(),
		Body:         t.Body(),
		IsActive:     t.IsActive(),
		Placeholders: t.Placeholders(),
		CreatedAt:    t.CreatedAt(),
		UpdatedAt:    t.UpdatedAt(),
	}
}

// --- Handler ---

// TemplateHandler manages template CRUD, activation lifecycle, and render
// previews.
type TemplateHandler struct {
	templates domain.TemplateStore
	validator *api.Validator
	logger    *slog.Logger
}

// NewTemplateHandler creates a TemplateHandler with the provided
// dependencies.
func NewTemplateHandler(templates domain.TemplateStore, v *api.Validator, l *slog.Logger) *TemplateHandler {
	if l == nil {
		l = slog.Default()
	}
	return &TemplateHandler{
		templates: templates,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts template routes on the provided chi.Router.
func (h *TemplateHandler) RegisterRoutes(r chi.Router) {
	r.Route("/templates", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/content", h.UpdateContent)
			r.Post("/activate", h.Activate)
			r.Post("/deactivate", h.Deactivate)
			r.Post("/render", h.Render)
		})
	})
}

// Create handles POST /v1/templates.
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		api.Error(w, r, err)
		return
	}

	tmpl, err := domain.NewTemplate(req.Name, types.Channel(req.Channel), req.Body, req.Subject)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.templates.Add(r.Context(), tmpl); err != nil {
		api.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "template created",
		"template_id", tmpl.ID(),
		"name", tmpl.Name(),
		"channel", tmpl.Channel(),
	)
	api.JSON(w, r, http.StatusCreated, api.APIResponse{Data: toTemplateResponse(tmpl)})
}

// Get handles GET /v1/templates/{id}.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.Error(w, r, err)
		return
	}
	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: toTemplateResponse(tmpl)})
}

// List handles GET /v1/templates?channel=&active=.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	channel := types.Channel(r.URL.Query().Get("channel"))
	if !channel.Valid() {
		api.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationUnknownChannel,
			"channel query parameter must be one of email, sms, push, webhook", nil,
			map[string]any{"channel": string(channel), "allowed": types.AllChannels}))
		return
	}

	params := listParams(r)
	var (
		list []*domain.Template
		err  error
	)
	if r.URL.Query().Get("active") == "true" {
		list, err = h.templates.ListActiveByChannel(r.Context(), channel, params)
	} else {
		list, err = h.templates.ListByChannel(r.Context(), channel, params)
	}
	if err != nil {
		api.Error(w, r, err)
		return
	}

	out := make([]TemplateResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toTemplateResponse(t))
	}
	api.JSON(w, r, http.StatusOK, types.ListResponse[TemplateResponse]{
		Data:     out,
		PageInfo: types.PageInfo{HasMore: len(out) == params.Normalize().Limit},
	})
}

// UpdateContent handles PATCH /v1/templates/{id}/content.
func (h *TemplateHandler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var req UpdateTemplateContentRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		api.Error(w, r, err)
		return
	}

	tmpl, err := h.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if err := tmpl.UpdateContent(req.Body, req.Subject); err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.templates.Update(r.Context(), tmpl); err != nil {
		api.Error(w, r, err)
		return
	}
	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: toTemplateResponse(tmpl)})
}

// Activate handles POST /v1/templates/{id}/activate. Activation is
// idempotent: activating an active template is a no-op.
func (h *TemplateHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.setActivation(w, r, true)
}

// Deactivate handles POST /v1/templates/{id}/deactivate. Also idempotent.
func (h *TemplateHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setActivation(w, r, false)
}

func (h *TemplateHandler) setActivation(w http.ResponseWriter, r *http.Request, active bool) {
	tmpl, err := h.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if active {
		tmpl.Activate()
	} else {
		tmpl.Deactivate()
	}

	if err := h.templates.Update(r.Context(), tmpl); err != nil {
		api.Error(w, r, err)
		return
	}
	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: toTemplateResponse(tmpl)})
}

// Render handles POST /v1/templates/{id}/render. It renders the template
// with the supplied data without persisting anything; rendering fails as a
// whole when any placeholder is missing.
func (h *TemplateHandler) Render(w http.ResponseWriter, r *http.Request) {
	var req RenderTemplateRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	tmpl, err := h.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.Error(w, r, err)
		return
	}

	rendered, err := tmpl.Render(domain.NewTemplateData(req.Data))
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.JSON(w, r, http.StatusOK, api.APIResponse{Data: RenderedContentResponse{
		Subject: rendered.Subject,
		Body:    rendered.Body,
	}})
}
