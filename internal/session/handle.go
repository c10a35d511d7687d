package session

import (
	"context"
	"time"

	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/logging"
)

// Default bounds applied when a Handle is created without options.
const (
	DefaultQueryTimeout = 2 * time.Second
	DefaultKillGrace    = 500 * time.Millisecond
)

// Handle is a reference to one named session. It holds no state beyond the
// name; every answer comes from the Manager at call time.
type Handle struct {
	mgr          Manager
	name         string
	queryTimeout time.Duration
	killGrace    time.Duration
	logger       *logging.Logger
}

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithQueryTimeout sets the ceiling applied to every Manager call.
func WithQueryTimeout(d time.Duration) HandleOption {
	return func(h *Handle) {
		if d > 0 {
			h.queryTimeout = d
		}
	}
}

// WithKillGrace sets how long Terminate waits after Ctrl-C before killing.
func WithKillGrace(d time.Duration) HandleOption {
	return func(h *Handle) {
		if d >= 0 {
			h.killGrace = d
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *logging.Logger) HandleOption {
	return func(h *Handle) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandle returns a Handle for the session called name.
func NewHandle(mgr Manager, name string, opts ...HandleOption) *Handle {
	h := &Handle{
		mgr:          mgr,
		name:         name,
		queryTimeout: DefaultQueryTimeout,
		killGrace:    DefaultKillGrace,
		logger:       logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("session", name)
	return h
}

// Name returns the session name.
func (h *Handle) Name() string { return h.name }

func (h *Handle) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, h.queryTimeout)
}

// Probe asks the Manager whether the session is alive. Unlike IsAlive it
// reports why the answer is unknown; such errors wrap errors.ErrSessionUnreachable.
func (h *Handle) Probe(ctx context.Context) (bool, error) {
	qctx, cancel := h.bounded(ctx)
	defer cancel()

	alive, err := h.mgr.IsAlive(qctx, h.name)
	if err != nil {
		if qctx.Err() == context.DeadlineExceeded {
			return false, errors.Join(errors.ErrSessionUnreachable,
				errors.NewTimeoutError("session liveness query", h.queryTimeout).WithCause(err))
		}
		return false, errors.Join(errors.ErrSessionUnreachable, err)
	}
	return alive, nil
}

// IsAlive reports whether the session's process is running. It never fails:
// an unreachable or slow manager yields false.
func (h *Handle) IsAlive(ctx context.Context) bool {
	alive, err := h.Probe(ctx)
	if err != nil {
		h.logger.Debug("liveness query failed, treating session as dead", "error", err.Error())
		return false
	}
	return alive
}

// CaptureScreen returns up to maxLines trailing lines of the session's screen.
// It returns an empty string when the session is dead or cannot be queried.
func (h *Handle) CaptureScreen(ctx context.Context, maxLines int) string {
	if !h.IsAlive(ctx) {
		return ""
	}

	qctx, cancel := h.bounded(ctx)
	defer cancel()

	out, err := h.mgr.Capture(qctx, h.name, maxLines)
	if err != nil {
		h.logger.Debug("screen capture failed", "error", err.Error())
		return ""
	}
	return lastLines(out, maxLines)
}

// Inject types text into the session, pressing Enter afterwards when
// autoSubmit is set. It fails with *errors.InjectionError when the session
// is not alive or the text could not be delivered.
func (h *Handle) Inject(ctx context.Context, text string, autoSubmit bool) error {
	if !h.IsAlive(ctx) {
		return errors.NewInjectionError("session is not accepting input", errors.ErrSessionNotInteractive).
			WithSession(h.name)
	}

	qctx, cancel := h.bounded(ctx)
	defer cancel()

	if err := h.mgr.Send(qctx, h.name, text, autoSubmit); err != nil {
		return errors.NewInjectionError("failed to send input", err).WithSession(h.name)
	}
	return nil
}

// Terminate stops the session: Ctrl-C, a bounded grace period, then a
// forced kill. It is idempotent and reports whether the session existed
// when it was called. Context cancellation shortens the grace period.
func (h *Handle) Terminate(ctx context.Context) bool {
	existed := h.IsAlive(ctx)

	if existed {
		qctx, cancel := h.bounded(ctx)
		if err := h.mgr.Interrupt(qctx, h.name); err != nil {
			h.logger.Warn("failed to interrupt session, proceeding to kill", "error", err.Error())
		}
		cancel()

		if h.killGrace > 0 {
			timer := time.NewTimer(h.killGrace)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
			}
		}
	}

	// Kill even when the liveness answer was "dead": a lingering pane whose
	// process already exited still occupies the name.
	kctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.queryTimeout)
	defer cancel()
	killed, err := h.mgr.Kill(kctx, h.name)
	if err != nil {
		h.logger.Warn("failed to kill session", "error", err.Error())
	}
	return existed || killed
}

// PID returns the OS process id of the session's process, or 0 when the
// manager cannot report it.
func (h *Handle) PID(ctx context.Context) int {
	reporter, ok := h.mgr.(PIDReporter)
	if !ok {
		return 0
	}
	qctx, cancel := h.bounded(ctx)
	defer cancel()

	pid, err := reporter.PID(qctx, h.name)
	if err != nil {
		return 0
	}
	return pid
}
