package orchestrator

import (
	"time"

	"github.com/Iron-Ham/squadron/internal/claims"
	"github.com/Iron-Ham/squadron/internal/heartbeat"
	"github.com/Iron-Ham/squadron/internal/mailbox"
	"github.com/Iron-Ham/squadron/internal/team"
)

// DeployRequest describes a member to deploy.
type DeployRequest = team.DeployRequest

// DeployResult is returned by a successful deploy.
type DeployResult = team.DeployResult

// MemberRequest names one team member.
type MemberRequest struct {
	MemberID string `json:"team_member_id"`
}

// StatusResult is a member's record reconciled against its session.
type StatusResult = team.MemberStatus

// ListResult holds every member in deployment order.
type ListResult struct {
	Members []team.MemberStatus `json:"members"`
}

// ScreenRequest asks for the last Lines lines of a member's terminal.
// Zero Lines uses the configured default.
type ScreenRequest struct {
	MemberID string `json:"team_member_id"`
	Lines    int    `json:"lines,omitempty"`
}

// ScreenResult is a screen capture.
type ScreenResult = team.ScreenResult

// InterveneRequest types Text into a member's terminal. AutoSubmit
// defaults to true.
type InterveneRequest struct {
	MemberID   string `json:"team_member_id"`
	Text       string `json:"text"`
	AutoSubmit *bool  `json:"auto_submit,omitempty"`
}

// InterveneResult reports a delivered intervention.
type InterveneResult struct {
	Success  bool   `json:"success"`
	MemberID string `json:"team_member_id"`
}

// KillResult reports a kill and the claims released with it.
type KillResult struct {
	Success        bool     `json:"success"`
	MemberID       string   `json:"team_member_id"`
	HadSession     bool     `json:"had_session"`
	ReleasedClaims []string `json:"released_claims,omitempty"`
}

// SendRequest describes a message. TTLSeconds of zero applies the bus
// default.
type SendRequest struct {
	From       string              `json:"from"`
	To         string              `json:"to"`
	Content    string              `json:"content"`
	Type       mailbox.MessageType `json:"type,omitempty"`
	Priority   mailbox.Priority    `json:"priority,omitempty"`
	TTLSeconds int                 `json:"ttl_seconds,omitempty"`
}

// BroadcastRequest describes a message to the whole team.
type BroadcastRequest struct {
	From     string           `json:"from"`
	Content  string           `json:"content"`
	Priority mailbox.Priority `json:"priority,omitempty"`
}

// HelpRequest asks the team for help. Priority defaults to high.
type HelpRequest struct {
	From     string           `json:"from"`
	Content  string           `json:"content"`
	Priority mailbox.Priority `json:"priority,omitempty"`
}

// HelpResponse answers the help request RequestID.
type HelpResponse struct {
	RequestID string `json:"request_id"`
	From      string `json:"from"`
	Content   string `json:"content"`
}

// MessageResult is a stored message.
type MessageResult struct {
	Success bool            `json:"success"`
	Message mailbox.Message `json:"message"`
}

// ListenRequest reads a member's messages.
type ListenRequest struct {
	MemberID       string                `json:"team_member_id"`
	IncludeExpired bool                  `json:"include_expired,omitempty"`
	IncludeRead    bool                  `json:"include_read,omitempty"`
	ByPriority     bool                  `json:"by_priority,omitempty"`
	Types          []mailbox.MessageType `json:"types,omitempty"`
	Limit          int                   `json:"limit,omitempty"`
	Peek           bool                  `json:"peek,omitempty"`
}

func (r ListenRequest) options() mailbox.ListenOptions {
	return mailbox.ListenOptions{
		IncludeExpired: r.IncludeExpired,
		IncludeRead:    r.IncludeRead,
		SortByPriority: r.ByPriority,
		Types:          r.Types,
		Limit:          r.Limit,
		Peek:           r.Peek,
	}
}

// ListenResult holds the messages returned by a listen.
type ListenResult struct {
	MemberID string            `json:"team_member_id"`
	Messages []mailbox.Message `json:"messages"`
}

// ClaimRequest names a task and the member acting on it.
type ClaimRequest struct {
	TaskKey  string `json:"task_key"`
	MemberID string `json:"team_member_id"`
}

// ClaimResult is the outcome of a claim attempt.
type ClaimResult struct {
	TaskKey string `json:"task_key"`
	claims.Result
}

// ReleaseResult reports a released claim.
type ReleaseResult struct {
	Success bool         `json:"success"`
	Claim   claims.Claim `json:"claim"`
}

// ClaimsResult holds the active claims.
type ClaimsResult struct {
	Claims []claims.Claim `json:"claims"`
}

// HeartbeatRequest reports a member's status.
type HeartbeatRequest struct {
	MemberID string `json:"team_member_id"`
	Status   string `json:"status"`
}

// TeamStatusRequest selects heartbeat records. A zero Within returns every
// member that has ever sent a heartbeat.
type TeamStatusRequest struct {
	Within time.Duration `json:"within,omitempty"`
}

// TeamStatusResult holds heartbeat records ordered by member id.
type TeamStatusResult struct {
	Members []heartbeat.Record `json:"members"`
}
