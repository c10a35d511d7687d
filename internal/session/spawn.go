package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Iron-Ham/squadron/internal/errors"
)

// Spec describes a session to spawn for a team member.
type Spec struct {
	// Name is the session name. It must be unique on the manager.
	Name string
	// Argv is the agent program followed by its flags. The prompt file
	// contents are appended as the final argument.
	Argv []string
	// Prompt is the startup payload handed to the agent.
	Prompt string
	// PromptDir is where the prompt file is written.
	PromptDir string
	// WorkDir is the session's working directory.
	WorkDir string
	// Env holds extra KEY=VALUE pairs for the session.
	Env []string

	Width        int
	Height       int
	HistoryLimit int
}

// Spawned is the result of a successful Spawn.
type Spawned struct {
	Handle *Handle
	// PromptPath is the file holding the startup payload.
	PromptPath string
}

// Spawn writes the startup prompt, creates the session and returns a Handle
// for it. Every failure is a *errors.SpawnError and leaves no prompt file
// behind. An existing session with the same name is never touched.
func Spawn(ctx context.Context, mgr Manager, spec Spec, opts ...HandleOption) (*Spawned, error) {
	if len(spec.Argv) == 0 || strings.TrimSpace(spec.Argv[0]) == "" {
		return nil, errors.NewSpawnError("no agent command configured", errors.ErrEmptyCommand).WithSession(spec.Name)
	}
	if strings.TrimSpace(spec.Name) == "" {
		return nil, errors.NewSpawnError("session name is empty", errors.ErrInvalidInput)
	}

	promptPath, err := writePromptFile(spec.PromptDir, spec.Name, spec.Prompt)
	if err != nil {
		return nil, errors.NewSpawnError("failed to write startup prompt", err).WithSession(spec.Name)
	}

	handle := NewHandle(mgr, spec.Name, opts...)
	sctx, cancel := handle.bounded(ctx)
	defer cancel()

	err = mgr.Spawn(sctx, spec.Name, SpawnOptions{
		Command:      StartupCommand(spec.Argv, promptPath),
		WorkDir:      spec.WorkDir,
		Env:          spec.Env,
		Width:        spec.Width,
		Height:       spec.Height,
		HistoryLimit: spec.HistoryLimit,
	})
	if err != nil {
		_ = os.Remove(promptPath)
		msg := "failed to create session"
		switch {
		case errors.Is(err, errors.ErrSessionExists):
			msg = "session name already in use"
		case sctx.Err() == context.DeadlineExceeded:
			err = errors.NewTimeoutError("session spawn", handle.queryTimeout).WithCause(err)
		}
		return nil, errors.NewSpawnError(msg, err).WithSession(spec.Name)
	}

	return &Spawned{Handle: handle, PromptPath: promptPath}, nil
}

// StartupCommand builds the shell command that runs argv with the contents
// of promptPath as its last argument. exec replaces the shell so the session
// ends exactly when the agent does.
func StartupCommand(argv []string, promptPath string) string {
	quoted := make([]string, 0, len(argv)+2)
	quoted = append(quoted, "exec")
	for _, a := range argv {
		quoted = append(quoted, ShellQuote(a))
	}
	quoted = append(quoted, fmt.Sprintf("\"$(cat %s)\"", ShellQuote(promptPath)))
	return strings.Join(quoted, " ")
}

// ShellQuote quotes s for POSIX sh. Strings made only of safe characters are
// returned unchanged.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./=:,@+%", r)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// writePromptFile stores prompt under dir with a name unique to this spawn,
// so a failed spawn never removes a file that a live session still reads.
func writePromptFile(dir, sessionName, prompt string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create prompt directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.prompt", sessionName, time.Now().UnixNano()))
	if err := atomicWriteFile(path, []byte(prompt), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// atomicWriteFile writes data to a temporary file in the same directory and
// renames it into place, so readers never observe a partial prompt.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
