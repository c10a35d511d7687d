package claims

import (
	"time"

	"github.com/Iron-Ham/squadron/internal/event"
	"github.com/Iron-Ham/squadron/internal/logging"
)

// Option configures a Store.
type Option func(*Store)

// WithEventBus publishes claim.granted and claim.released events to bus.
func WithEventBus(bus *event.Bus) Option {
	return func(s *Store) {
		s.bus = bus
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.WithComponent("claims")
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}
