// Package store is the durable shared datastore of a squadron mission.
//
// A single SQLite file holds team member records, the message log with its
// per-reader consumption marks, and task claims. Every squadron process of a
// mission (the API server, CLI invocations, hooks) opens the same file, so all
// writes run inside IMMEDIATE transactions and rely on SQLite's locking for
// cross-process atomicity. The database runs in WAL mode so readers do not
// block the single writer.
//
// Store implements team.Repository, mailbox.Repository and claims.Backend.
package store
