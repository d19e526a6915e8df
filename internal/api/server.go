// Package api provides the HTTP chassis for the notifier service. It creates
// a chi router and enforces cross-cutting concerns -- recovery, request
// correlation, logging, rate limiting, and error handling -- before requests
// reach domain-specific handlers.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"notifier/internal/config"
	"notifier/internal/domain"
	"notifier/internal/types"
)

// Server encapsulates all dependencies for the notifier API, allowing for
// easy injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config         *config.Config
	Stores         domain.Stores
	Tx             domain.TxManager
	Events         domain.EventSink
	Logger         *slog.Logger
	Validator      *Validator
	RateLimitStore types.RateLimitStore
	HealthProbes   []HealthProbe

	// V1RouteRegistrars are populated by the application entry point. This
	// indirection avoids import cycles between the chassis and handler
	// packages.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer initializes dependencies and prepares the server for route
// mounting. It performs a fail-fast check on critical dependencies.
//
// The caller is responsible for mounting routes via MountRoutes after
// registering handler routes.
func NewServer(
	cfg *config.Config,
	stores domain.Stores,
	tx domain.TxManager,
	events domain.EventSink,
	logger *slog.Logger,
) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if stores == nil {
		return nil, fmt.Errorf("store registry must not be nil")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction manager must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Stores:    stores,
		Tx:        tx,
		Events:    events,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	if closer, ok := s.Stores.(interface{ Close() }); ok {
		closer.Close()
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
