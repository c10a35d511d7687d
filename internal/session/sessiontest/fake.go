// Package sessiontest provides an in-memory session.Manager for tests.
package sessiontest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/session"
)

// Session is the fake's view of one session.
type Session struct {
	Name    string
	Options session.SpawnOptions
	Alive   bool
	Screen  []string
	Inputs  []string
	// Interrupts counts Ctrl-C deliveries.
	Interrupts int
	PID        int
}

// FakeManager is a goroutine-safe in-memory session.Manager.
//
// Failures can be injected per operation. When Hang is set every call
// blocks until its context is done, which exercises timeout handling.
type FakeManager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	nextPID  int

	// SpawnErr, if set, is returned by the next Spawn calls.
	SpawnErr error
	// QueryErr, if set, is returned by IsAlive and Capture.
	QueryErr error
	// SendErr, if set, is returned by Send.
	SendErr error
	// KillErr, if set, is returned by Kill.
	KillErr error
	// Hang makes every call block until ctx is done.
	Hang bool

	// SpawnCount counts successful spawns.
	SpawnCount int
	// Interrupted records the session names that received Ctrl-C, in order.
	Interrupted []string
}

var (
	_ session.Manager     = (*FakeManager)(nil)
	_ session.PIDReporter = (*FakeManager)(nil)
)

// NewFakeManager returns an empty FakeManager.
func NewFakeManager() *FakeManager {
	return &FakeManager{sessions: make(map[string]*Session), nextPID: 1000}
}

func (f *FakeManager) wait(ctx context.Context) error {
	f.mu.Lock()
	hang := f.Hang
	f.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return ctx.Err()
}

// Spawn implements session.Manager.
func (f *FakeManager) Spawn(ctx context.Context, name string, opts session.SpawnOptions) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SpawnErr != nil {
		return f.SpawnErr
	}
	if strings.TrimSpace(opts.Command) == "" {
		return errors.ErrEmptyCommand
	}
	if s, ok := f.sessions[name]; ok && s.Alive {
		return fmt.Errorf("%s: %w", name, errors.ErrSessionExists)
	}
	f.nextPID++
	f.sessions[name] = &Session{Name: name, Options: opts, Alive: true, PID: f.nextPID}
	f.SpawnCount++
	return nil
}

// IsAlive implements session.Manager.
func (f *FakeManager) IsAlive(ctx context.Context, name string) (bool, error) {
	if err := f.wait(ctx); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.QueryErr != nil {
		return false, f.QueryErr
	}
	s, ok := f.sessions[name]
	return ok && s.Alive, nil
}

// Capture implements session.Manager.
func (f *FakeManager) Capture(ctx context.Context, name string, lines int) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.QueryErr != nil {
		return "", f.QueryErr
	}
	s, ok := f.sessions[name]
	if !ok {
		return "", errors.ErrSessionNotFound
	}
	screen := s.Screen
	if lines > 0 && len(screen) > lines {
		screen = screen[len(screen)-lines:]
	}
	return strings.Join(screen, "\n"), nil
}

// Send implements session.Manager. Submitted text is appended to the screen.
func (f *FakeManager) Send(ctx context.Context, name, text string, submit bool) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SendErr != nil {
		return f.SendErr
	}
	s, ok := f.sessions[name]
	if !ok || !s.Alive {
		return errors.ErrSessionNotFound
	}
	s.Inputs = append(s.Inputs, text)
	if submit {
		s.Screen = append(s.Screen, "> "+text)
	}
	return nil
}

// Interrupt implements session.Manager.
func (f *FakeManager) Interrupt(ctx context.Context, name string) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.sessions[name]; ok {
		s.Interrupts++
		f.Interrupted = append(f.Interrupted, name)
	}
	return nil
}

// Kill implements session.Manager.
func (f *FakeManager) Kill(ctx context.Context, name string) (bool, error) {
	if err := f.wait(ctx); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.KillErr != nil {
		return false, f.KillErr
	}
	s, ok := f.sessions[name]
	if !ok {
		return false, nil
	}
	delete(f.sessions, s.Name)
	return true, nil
}

// PID implements session.PIDReporter.
func (f *FakeManager) PID(ctx context.Context, name string) (int, error) {
	if err := f.wait(ctx); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.sessions[name]
	if !ok {
		return 0, errors.ErrSessionNotFound
	}
	return s.PID, nil
}

// Exit simulates the session's process ending on its own. The session
// disappears as it does with tmux when its only process exits.
func (f *FakeManager) Exit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, name)
}

// SetScreen replaces the session's screen contents.
func (f *FakeManager) SetScreen(name string, lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[name]; ok {
		s.Screen = append([]string(nil), lines...)
	}
}

// SetHang toggles blocking behavior.
func (f *FakeManager) SetHang(hang bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Hang = hang
}

// Get returns a copy of the named session, if present.
func (f *FakeManager) Get(name string) (Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[name]
	if !ok {
		return Session{}, false
	}
	cp := *s
	cp.Screen = append([]string(nil), s.Screen...)
	cp.Inputs = append([]string(nil), s.Inputs...)
	return cp, true
}

// Names returns the names of all current sessions.
func (f *FakeManager) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.sessions))
	for name := range f.sessions {
		names = append(names, name)
	}
	return names
}
