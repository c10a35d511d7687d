package team

import (
	"time"

	"github.com/Iron-Ham/squadron/internal/event"
	"github.com/Iron-Ham/squadron/internal/logging"
	"github.com/Iron-Ham/squadron/internal/session"
)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithEventBus publishes member lifecycle events to bus.
func WithEventBus(bus *event.Bus) RegistryOption {
	return func(r *Registry) {
		r.events = bus
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l.WithComponent("team")
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.now = now
	}
}

// WithHandleOptions applies opts to every session handle the registry
// creates, for example the query timeout and kill grace period.
func WithHandleOptions(opts ...session.HandleOption) RegistryOption {
	return func(r *Registry) {
		r.handleOpts = append(r.handleOpts, opts...)
	}
}

// WithReconcileConcurrency bounds concurrent liveness checks in List.
func WithReconcileConcurrency(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.concurrency = n
		}
	}
}
