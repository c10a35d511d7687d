package mailbox

import (
	"time"

	"github.com/Iron-Ham/squadron/internal/event"
	"github.com/Iron-Ham/squadron/internal/logging"
)

// Option configures a Bus.
type Option func(*Bus)

// WithEventBus attaches an event bus. When set, a message.sent event is
// published after every stored message.
func WithEventBus(events *event.Bus) Option {
	return func(b *Bus) {
		b.events = events
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l.WithComponent("mailbox")
		}
	}
}

// WithDefaultTTL sets the lifetime applied to messages sent without one.
// Zero means messages never expire.
func WithDefaultTTL(d time.Duration) Option {
	return func(b *Bus) {
		if d >= 0 {
			b.defaultTTL = d
		}
	}
}

// WithPollInterval sets the fallback interval between Watch polls.
// Zero or negative values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.pollInterval = d
		}
	}
}

// WithWatchDir makes Watch wake on file changes in dir, normally the
// directory holding the database file. Without it Watch only polls.
func WithWatchDir(dir string) Option {
	return func(b *Bus) {
		b.watchDir = dir
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		b.now = now
	}
}
