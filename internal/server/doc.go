// Package server exposes the orchestrator facade over HTTP.
//
// Every route speaks JSON. Failures are reported as
//
//	{"error": {"code": "...", "message": "..."}}
//
// with the code taken from errors.Code. GET /api/events upgrades to a
// WebSocket that streams domain events as they are published.
package server
