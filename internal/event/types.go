package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "member.deployed", "claim.granted")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeMemberDeployed = "member.deployed"
	TypeMemberExited   = "member.exited"
	TypeMemberKilled   = "member.killed"
	TypeMessageSent    = "message.sent"
	TypeClaimGranted   = "claim.granted"
	TypeClaimReleased  = "claim.released"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Team Member Lifecycle Events
// -----------------------------------------------------------------------------

// MemberDeployedEvent is emitted after a team member's session has been
// spawned and its record written.
type MemberDeployedEvent struct {
	baseEvent
	MemberID    string `json:"team_member_id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Model       string `json:"model"`
	SessionName string `json:"session_name"`
}

// NewMemberDeployedEvent creates a MemberDeployedEvent.
func NewMemberDeployedEvent(memberID, name, role, model, sessionName string) MemberDeployedEvent {
	return MemberDeployedEvent{
		baseEvent:   newBaseEvent(TypeMemberDeployed),
		MemberID:    memberID,
		Name:        name,
		Role:        role,
		Model:       model,
		SessionName: sessionName,
	}
}

// MemberExitedEvent is emitted when reconciliation finds that a running
// member's session has disappeared without being killed.
type MemberExitedEvent struct {
	baseEvent
	MemberID    string `json:"team_member_id"`
	SessionName string `json:"session_name"`
}

// NewMemberExitedEvent creates a MemberExitedEvent.
func NewMemberExitedEvent(memberID, sessionName string) MemberExitedEvent {
	return MemberExitedEvent{
		baseEvent:   newBaseEvent(TypeMemberExited),
		MemberID:    memberID,
		SessionName: sessionName,
	}
}

// MemberKilledEvent is emitted when a member is killed through the coordinator.
type MemberKilledEvent struct {
	baseEvent
	MemberID   string `json:"team_member_id"`
	HadSession bool   `json:"had_session"` // false when the session was already gone
}

// NewMemberKilledEvent creates a MemberKilledEvent.
func NewMemberKilledEvent(memberID string, hadSession bool) MemberKilledEvent {
	return MemberKilledEvent{
		baseEvent:  newBaseEvent(TypeMemberKilled),
		MemberID:   memberID,
		HadSession: hadSession,
	}
}

// -----------------------------------------------------------------------------
// Message Events
// -----------------------------------------------------------------------------

// MessageSentEvent is emitted for every message accepted by the bus,
// including broadcasts, help traffic and heartbeats.
type MessageSentEvent struct {
	baseEvent
	MessageID string `json:"message_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Type      string `json:"type"`
	Priority  string `json:"priority"`
}

// NewMessageSentEvent creates a MessageSentEvent.
func NewMessageSentEvent(messageID, from, to, msgType, priority string) MessageSentEvent {
	return MessageSentEvent{
		baseEvent: newBaseEvent(TypeMessageSent),
		MessageID: messageID,
		From:      from,
		To:        to,
		Type:      msgType,
		Priority:  priority,
	}
}

// -----------------------------------------------------------------------------
// Claim Events
// -----------------------------------------------------------------------------

// ClaimGrantedEvent is emitted when a new active claim is created.
// Idempotent re-claims by the current owner do not emit it.
type ClaimGrantedEvent struct {
	baseEvent
	TaskKey string `json:"task_key"`
	Owner   string `json:"owner"`
}

// NewClaimGrantedEvent creates a ClaimGrantedEvent.
func NewClaimGrantedEvent(taskKey, owner string) ClaimGrantedEvent {
	return ClaimGrantedEvent{
		baseEvent: newBaseEvent(TypeClaimGranted),
		TaskKey:   taskKey,
		Owner:     owner,
	}
}

// ClaimReleasedEvent is emitted when an active claim is released.
type ClaimReleasedEvent struct {
	baseEvent
	TaskKey string `json:"task_key"`
	Owner   string `json:"owner"`
}

// NewClaimReleasedEvent creates a ClaimReleasedEvent.
func NewClaimReleasedEvent(taskKey, owner string) ClaimReleasedEvent {
	return ClaimReleasedEvent{
		baseEvent: newBaseEvent(TypeClaimReleased),
		TaskKey:   taskKey,
		Owner:     owner,
	}
}
