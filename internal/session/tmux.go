package session

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/logging"
	"github.com/Iron-Ham/squadron/internal/tmux"
)

// TmuxManager implements Manager on top of tmux.
type TmuxManager struct {
	client *tmux.Client
	logger *logging.Logger
}

// Compile-time interface checks.
var (
	_ Manager     = (*TmuxManager)(nil)
	_ PIDReporter = (*TmuxManager)(nil)
)

// NewTmuxManager creates a TmuxManager using client. A nil logger discards output.
func NewTmuxManager(client *tmux.Client, logger *logging.Logger) *TmuxManager {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &TmuxManager{client: client, logger: logger.WithComponent("tmux")}
}

// spawnArgs builds the new-session invocation for name.
func spawnArgs(name string, opts SpawnOptions) []string {
	args := []string{"new-session", "-d", "-s", name}
	if opts.Width > 0 {
		args = append(args, "-x", strconv.Itoa(opts.Width))
	}
	if opts.Height > 0 {
		args = append(args, "-y", strconv.Itoa(opts.Height))
	}
	if opts.WorkDir != "" {
		args = append(args, "-c", opts.WorkDir)
	}
	for _, kv := range opts.Env {
		args = append(args, "-e", kv)
	}
	return append(args, opts.Command)
}

// Spawn implements Manager.
func (m *TmuxManager) Spawn(ctx context.Context, name string, opts SpawnOptions) error {
	if strings.TrimSpace(opts.Command) == "" {
		return errors.ErrEmptyCommand
	}

	cmd := m.client.Command(ctx, spawnArgs(name, opts)...)
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	out, err := cmd.CombinedOutput()
	if err != nil {
		cmdErr := &tmux.CommandError{Args: []string{"new-session"}, Output: strings.TrimSpace(string(out)), Err: err}
		if tmux.IsDuplicateSession(cmdErr) {
			return errors.Wrapf(errors.ErrSessionExists, "%s", name)
		}
		return cmdErr
	}

	if opts.HistoryLimit > 0 {
		if _, err := m.client.Run(ctx, "set-option", "-t", tmux.SessionTarget(name), "history-limit", strconv.Itoa(opts.HistoryLimit)); err != nil {
			m.logger.Warn("failed to set history-limit", "session", name, "error", err.Error())
		}
	}
	return nil
}

// IsAlive implements Manager using the pane_dead format variable, which is
// "0" while the session's process runs.
func (m *TmuxManager) IsAlive(ctx context.Context, name string) (bool, error) {
	out, err := m.client.Run(ctx, "display-message", "-p", "-t", tmux.PaneTarget(name), "#{pane_dead}")
	if err != nil {
		if tmux.IsSessionNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(out) == "0", nil
}

// Capture implements Manager.
func (m *TmuxManager) Capture(ctx context.Context, name string, lines int) (string, error) {
	args := []string{"capture-pane", "-p", "-J", "-t", tmux.PaneTarget(name)}
	if lines > 0 {
		args = append(args, "-S", fmt.Sprintf("-%d", lines))
	}
	out, err := m.client.Command(ctx, args...).Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &tmux.CommandError{Args: args, Err: err}
	}
	return lastLines(strings.TrimRight(string(out), "\n"), lines), nil
}

// Send implements Manager. Text is sent literally so tmux key names inside
// it are not interpreted.
func (m *TmuxManager) Send(ctx context.Context, name, text string, submit bool) error {
	if text != "" {
		if _, err := m.client.Run(ctx, "send-keys", "-t", tmux.PaneTarget(name), "-l", text); err != nil {
			return err
		}
	}
	if submit {
		if _, err := m.client.Run(ctx, "send-keys", "-t", tmux.PaneTarget(name), "Enter"); err != nil {
			return err
		}
	}
	return nil
}

// Interrupt implements Manager.
func (m *TmuxManager) Interrupt(ctx context.Context, name string) error {
	_, err := m.client.Run(ctx, "send-keys", "-t", tmux.PaneTarget(name), "C-c")
	return err
}

// Kill implements Manager.
func (m *TmuxManager) Kill(ctx context.Context, name string) (bool, error) {
	if _, err := m.client.Run(ctx, "kill-session", "-t", tmux.SessionTarget(name)); err != nil {
		if tmux.IsSessionNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PID implements PIDReporter.
func (m *TmuxManager) PID(ctx context.Context, name string) (int, error) {
	out, err := m.client.Run(ctx, "display-message", "-p", "-t", tmux.PaneTarget(name), "#{pane_pid}")
	if err != nil {
		return 0, err
	}
	return tmux.ParsePID(out), nil
}

// lastLines keeps at most n trailing lines of s. n <= 0 keeps everything.
func lastLines(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
