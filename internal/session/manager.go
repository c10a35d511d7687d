package session

import (
	"context"
)

// SpawnOptions configures a new session.
type SpawnOptions struct {
	// Command is the shell command line run as the session's only process.
	// The session ends when it exits.
	Command string
	// WorkDir is the initial working directory. Empty means the caller's.
	WorkDir string
	// Env holds extra KEY=VALUE pairs for the session environment.
	Env []string
	// Width and Height size the virtual terminal.
	Width  int
	Height int
	// HistoryLimit is the scrollback retained for capture.
	HistoryLimit int
}

// Manager is the contract squadron needs from a terminal multiplexer.
//
// Implementations must honor ctx cancellation on every call; Handle relies
// on it to bound each query.
type Manager interface {
	// Spawn creates a detached session running opts.Command.
	// It fails with errors.ErrSessionExists when name is taken.
	Spawn(ctx context.Context, name string, opts SpawnOptions) error

	// IsAlive reports whether the session exists and its process is running.
	// A missing session is (false, nil); an error means the answer is unknown.
	IsAlive(ctx context.Context, name string) (bool, error)

	// Capture returns the last lines of the session's screen and scrollback.
	Capture(ctx context.Context, name string, lines int) (string, error)

	// Send types text into the session, followed by Enter when submit is set.
	Send(ctx context.Context, name, text string, submit bool) error

	// Interrupt delivers Ctrl-C to the session's foreground process.
	Interrupt(ctx context.Context, name string) error

	// Kill destroys the session. It reports whether the session existed.
	Kill(ctx context.Context, name string) (bool, error)
}

// PIDReporter is implemented by managers that can report the OS process id
// of a session's process.
type PIDReporter interface {
	PID(ctx context.Context, name string) (int, error)
}
