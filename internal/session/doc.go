// Package session manages the terminal sessions that host team members.
//
// Each team member runs as a long-lived agent process inside its own
// terminal-multiplexer session so it survives coordinator restarts. This
// package defines the narrow [Manager] contract over the multiplexer, ships
// a tmux implementation ([TmuxManager]), and wraps one named session in a
// [Handle] that answers liveness questions conservatively:
//
//   - every query runs under a fixed timeout ceiling;
//   - a query that fails or times out means "not alive";
//   - screen capture of a dead session is an empty string, not an error.
//
// [Spawn] writes the startup prompt to a file, builds the agent command line
// around it and creates the session. Name collisions fail with a
// *errors.SpawnError and never replace the existing session.
//
// The sessiontest subpackage provides an in-memory Manager for tests.
package session
