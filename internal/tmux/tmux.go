// Package tmux wraps the tmux command line for squadron.
//
// Every squadron process of a mission talks to the same tmux server through a
// named socket, so a session spawned by `squadron serve` can be inspected or
// killed by a later `squadron kill` invocation. The socket defaults to
// [DefaultSocket] and is usually the configured session prefix.
package tmux

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// DefaultSocket is the tmux socket used when a Client has none configured.
const DefaultSocket = "squadron"

// Client runs tmux commands against a single socket.
type Client struct {
	// Socket is the tmux socket name passed with -L.
	Socket string
	// Binary is the tmux executable. Empty means "tmux" on PATH.
	Binary string
}

// NewClient returns a Client bound to socket.
func NewClient(socket string) *Client {
	if socket == "" {
		socket = DefaultSocket
	}
	return &Client{Socket: socket}
}

// Args returns the full argument vector for a tmux invocation.
func (c *Client) Args(args ...string) []string {
	return append([]string{"-L", c.socket()}, args...)
}

// Command creates a context-aware exec.Cmd for tmux on this client's socket.
func (c *Client) Command(ctx context.Context, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, c.binary(), c.Args(args...)...)
}

// Run executes a tmux command and returns its trimmed combined output.
// Failures are returned as *CommandError so callers can classify them.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	out, err := c.Command(ctx, args...).CombinedOutput()
	output := strings.TrimSpace(string(out))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return output, &CommandError{Args: args, Output: output, Err: err}
	}
	return output, nil
}

func (c *Client) socket() string {
	if c.Socket == "" {
		return DefaultSocket
	}
	return c.Socket
}

func (c *Client) binary() string {
	if c.Binary == "" {
		return "tmux"
	}
	return c.Binary
}

// CommandError describes a failed tmux invocation.
type CommandError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CommandError) Error() string {
	sub := ""
	if len(e.Args) > 0 {
		sub = e.Args[0]
	}
	if e.Output != "" {
		return fmt.Sprintf("tmux %s: %v: %s", sub, e.Err, e.Output)
	}
	return fmt.Sprintf("tmux %s: %v", sub, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// SessionTarget returns a -t value that matches the session named name
// exactly. A bare name lets tmux fall back to prefix matching, so "w-1"
// would resolve to "w-10" when only the latter exists.
func SessionTarget(name string) string {
	return "=" + name
}

// PaneTarget returns a -t value for the active pane of the session named
// name, matched exactly.
func PaneTarget(name string) string {
	return "=" + name + ":"
}

// IsSessionNotFound reports whether err means the target session (or the
// whole tmux server) does not exist.
func IsSessionNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "session not found") ||
		strings.Contains(msg, "no server running") ||
		strings.Contains(msg, "can't find session") ||
		strings.Contains(msg, "can't find window") ||
		strings.Contains(msg, "can't find pane") ||
		strings.Contains(msg, "error connecting to")
}

// IsDuplicateSession reports whether err came from creating a session whose
// name is already taken.
func IsDuplicateSession(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate session")
}

// ParsePID parses the output of `display-message -p '#{pane_pid}'`.
// Returns 0 when the output is not a positive integer.
func ParsePID(output string) int {
	pid, err := strconv.Atoi(strings.TrimSpace(output))
	if err != nil || pid <= 0 {
		return 0
	}
	return pid
}

// IsProcessAlive checks if a process with the given PID exists.
// Uses kill(pid, 0) which checks for existence without sending a signal.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}
