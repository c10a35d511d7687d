package mailbox

import (
	"context"
	"time"
)

// MessageType identifies the kind of message on the bus.
type MessageType string

const (
	// TypeDirect is an ordinary message addressed to one member.
	TypeDirect MessageType = "direct"
	// TypeBroadcast is addressed to every member.
	TypeBroadcast MessageType = "broadcast"
	// TypeHelpRequest asks the team for assistance. It is broadcast.
	TypeHelpRequest MessageType = "help_request"
	// TypeHelpResponse answers a help request. It is addressed to the requester.
	TypeHelpResponse MessageType = "help_response"
	// TypeStatus is a heartbeat. It is broadcast.
	TypeStatus MessageType = "status"
)

// ValidTypes returns every known message type.
func ValidTypes() []MessageType {
	return []MessageType{TypeDirect, TypeBroadcast, TypeHelpRequest, TypeHelpResponse, TypeStatus}
}

// IsValid returns true if t is a known message type.
func (t MessageType) IsValid() bool {
	switch t {
	case TypeDirect, TypeBroadcast, TypeHelpRequest, TypeHelpResponse, TypeStatus:
		return true
	default:
		return false
	}
}

// Priority orders messages when a reader asks for priority order.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriorities returns every known priority, lowest first.
func ValidPriorities() []Priority {
	return []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}
}

// Rank returns a comparable weight for p. Unknown priorities rank as normal.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	default:
		return 1
	}
}

// IsValid returns true if p is a known priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	default:
		return false
	}
}

// BroadcastRecipient is the "to" value of messages intended for every member.
const BroadcastRecipient = "broadcast"

// Message is a single communication between team members. It is immutable
// once stored, apart from consumption.
type Message struct {
	ID string `json:"id"`
	// Seq is the store-assigned position. It defines creation order.
	Seq        int64       `json:"seq"`
	From       string      `json:"from"`
	To         string      `json:"to"`
	Type       MessageType `json:"type"`
	Content    string      `json:"content"`
	Priority   Priority    `json:"priority"`
	ReplyTo    string      `json:"reply_to,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	ExpiresAt  *time.Time  `json:"expires_at,omitempty"`
	ConsumedAt *time.Time  `json:"consumed_at,omitempty"`
}

// IsBroadcast returns true if the message is addressed to all members.
func (m Message) IsBroadcast() bool {
	return m.To == BroadcastRecipient
}

// Expired reports whether the message has expired at now.
func (m Message) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && !m.ExpiresAt.After(now)
}

// Query selects messages visible to one reader.
type Query struct {
	// Reader is the member whose inbox is read: messages addressed to it,
	// plus broadcasts it did not send.
	Reader string
	// Now is the reference time for expiry.
	Now time.Time
	// IncludeExpired returns expired messages too.
	IncludeExpired bool
	// IncludeRead returns messages the reader already consumed.
	IncludeRead bool
	// Types restricts the result to these types. Empty means all.
	Types []MessageType
	// AfterSeq returns only messages with a larger Seq.
	AfterSeq int64
	// Limit caps the number of messages. Zero means no cap.
	Limit int
	// ByPriority orders by Priority.Rank, highest first, then Seq. The order
	// applies before Limit, so a capped read keeps the most urgent messages.
	ByPriority bool
	// Consume marks every returned message consumed by Reader at Now.
	Consume bool
}

// Repository persists messages and per-reader consumption.
type Repository interface {
	// AppendMessage stores msg and sets its Seq.
	AppendMessage(ctx context.Context, msg *Message) error
	// Receive returns the messages matching q in Seq order, or priority
	// order when q.ByPriority is set, consuming them atomically when
	// q.Consume is set.
	Receive(ctx context.Context, q Query) ([]Message, error)
	// GetMessage returns a message by ID or a *errors.NotFoundError.
	GetMessage(ctx context.Context, id string) (Message, error)
	// LatestPerSender returns the newest message of type t from each sender,
	// ordered by sender.
	LatestPerSender(ctx context.Context, t MessageType) ([]Message, error)
	// LastSeq returns the largest Seq stored, or 0.
	LastSeq(ctx context.Context) (int64, error)
}
