// Package heartbeat derives team liveness from the message log.
//
// A heartbeat is a status message broadcast by a member. Nothing is stored
// besides the messages themselves: a member's [Record] is its most recent
// status message, so the tracker stays correct across processes that share
// one store.
package heartbeat
