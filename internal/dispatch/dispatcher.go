// Package dispatch delivers drained domain events to registered subscribers
// after the enclosing database transaction has committed. Each subscriber is
// guarded by its own circuit breaker so a persistently failing consumer
// cannot slow down the rest.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"notifier/internal/config"
	"notifier/internal/domain"
)

// Subscriber consumes domain events. Handle is called once per event;
// returning an error counts against the subscriber's circuit breaker.
type Subscriber interface {
	// Name identifies the subscriber in logs and breaker state.
	Name() string
	// Handle processes a single event. The context carries the dispatch
	// timeout.
	Handle(ctx context.Context, event domain.Event) error
}

// subscription pairs a subscriber with its dedicated circuit breaker.
type subscription struct {
	sub     Subscriber
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// Dispatcher fans events out to all subscribers concurrently. Subscriber
// failures are isolated: they are logged and counted by the breaker, never
// propagated to the caller. Dispatch runs post-commit, so by the time it is
// called the state change is already durable.
type Dispatcher struct {
	cfg    config.DispatchConfig
	logger *slog.Logger
	subs   []subscription
}

var _ domain.EventSink = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with the given subscribers, wrapping
// each in its own circuit breaker.
func NewDispatcher(cfg config.DispatchConfig, logger *slog.Logger, subs ...Subscriber) *Dispatcher {
	d := &Dispatcher{
		cfg:    cfg,
		logger: logger,
		subs:   make([]subscription, 0, len(subs)),
	}
	for _, sub := range subs {
		d.subs = append(d.subs, subscription{
			sub:     sub,
			breaker: newBreaker(cfg, sub.Name()),
		})
	}
	return d
}

func newBreaker(cfg config.DispatchConfig, name string) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})
}

// Dispatch delivers every event to every subscriber. Each delivery gets its
// own timeout; failures are logged and absorbed.
func (d *Dispatcher) Dispatch(ctx context.Context, events []domain.Event) {
	if len(events) == 0 || len(d.subs) == 0 {
		return
	}

	g, gCtx := errgroup.WithContext(ctx)
	if d.cfg.MaxConcurrency > 0 {
		g.SetLimit(d.cfg.MaxConcurrency)
	}

	for _, s := range d.subs {
		for _, event := range events {
			s := s
			event := event

			g.Go(func() error {
				start := time.Now()
				_, err := s.breaker.Execute(func() (struct{}, error) {
					handleCtx := gCtx
					if d.cfg.Timeout > 0 {
						var cancel context.CancelFunc
						handleCtx, cancel = context.WithTimeout(gCtx, d.cfg.Timeout)
						defer cancel()
					}
					return struct{}{}, s.sub.Handle(handleCtx, event)
				})
				if err != nil {
					// Isolate the failure; other subscribers and events
					// proceed.
					d.logger.ErrorContext(ctx, "event delivery failed",
						"subscriber", s.sub.Name(),
						"event", event.EventName(),
						"duration", time.Since(start),
						"error", err,
					)
					return nil
				}
				d.logger.DebugContext(ctx, "event delivered",
					"subscriber", s.sub.Name(),
					"event", event.EventName(),
					"duration", time.Since(start),
				)
				return nil
			})
		}
	}

	// Handlers never return errors to the group, so Wait only blocks.
	_ = g.Wait()
}
