// Package event provides a pub-sub event bus for decoupled inter-component
// communication in squadron.
//
// The registry, message bus and claim store publish domain events here
// without knowing who consumes them. The HTTP server streams every event to
// WebSocket clients, and the dashboard refreshes on them.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Team member lifecycle:
//   - [MemberDeployedEvent], [MemberExitedEvent], [MemberKilledEvent]
//
// Messaging:
//   - [MessageSentEvent]
//
// Task claims:
//   - [ClaimGrantedEvent], [ClaimReleasedEvent]
//
// # Thread Safety
//
// [Bus] is safe for concurrent use. Handlers run synchronously on the
// publishing goroutine, so they must not block for long.
package event
