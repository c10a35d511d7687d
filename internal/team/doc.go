// Package team manages the members of a squadron mission.
//
// A team member is a long-running agent process inside its own tmux session.
// The Registry owns member records and the session handles behind them; the
// Deployer creates new members. Records are never deleted: killed members
// are marked terminated so history stays queryable.
//
// # Liveness
//
// The stored status is a cache. Get and List probe each running member's
// session before answering and record members whose sessions disappeared as
// exited. A probe that fails or times out counts as dead.
//
// # Deploy
//
// Deploy writes the startup prompt (role bootstrap, communication
// instructions, the caller's prompt), spawns the session and writes the
// record. If the spawn fails nothing is recorded; if the record cannot be
// written the session is terminated, so a member either fully exists or
// does not exist at all.
package team
