// Package testutil provides helpers for tests that drive a real tmux server.
package testutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/squadron/internal/tmux"
)

var socketSeq atomic.Int64

// SkipIfNoTmux skips the test if tmux is not installed.
func SkipIfNoTmux(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("tmux"); err != nil {
		t.Skip("tmux not found in PATH, skipping test")
	}
}

// NewTmuxClient returns a client on a socket private to the test. The tmux
// server behind it is killed when the test ends.
func NewTmuxClient(t *testing.T) *tmux.Client {
	t.Helper()
	SkipIfNoTmux(t)

	socket := fmt.Sprintf("squadron-test-%d-%d", os.Getpid(), socketSeq.Add(1))
	client := tmux.NewClient(socket)
	t.Cleanup(func() {
		_, _ = client.Run(context.Background(), "kill-server")
	})
	return client
}

// WriteAgentScript writes an executable stand-in for an agent CLI. It
// prints "agent ready", then echoes every input line as "heard: <line>"
// and exits when it reads "quit".
func WriteAgentScript(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "agent.sh")
	script := `#!/bin/sh
echo "agent ready"
while read -r line; do
  if [ "$line" = "quit" ]; then
    exit 0
  fi
  echo "heard: $line"
done
`
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write agent script: %v", err)
	}
	return path
}

// Eventually polls cond every 25ms until it returns true or timeout passes.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msgAndArgs ...any) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			if len(msgAndArgs) > 0 {
				if format, ok := msgAndArgs[0].(string); ok {
					t.Fatalf("condition not met within %v: "+format, append([]any{timeout}, msgAndArgs[1:]...)...)
				}
			}
			t.Fatalf("condition not met within %v", timeout)
		}
		time.Sleep(25 * time.Millisecond)
	}
}
