package team

import (
	"context"
	"slices"
	"time"
)

// Role describes what a team member does in the mission.
type Role string

const (
	// RoleOverseer assigns work and reviews results.
	RoleOverseer Role = "overseer"
	// RoleWorker executes assigned tasks.
	RoleWorker Role = "worker"
	// RoleHelper answers lookups and help requests from other members.
	RoleHelper Role = "helper"
)

// ValidRoles returns the recognized roles in display order.
func ValidRoles() []Role {
	return []Role{RoleOverseer, RoleWorker, RoleHelper}
}

// IsValid returns true if this is a recognized role value.
func (r Role) IsValid() bool {
	return slices.Contains(ValidRoles(), r)
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Status is the last known lifecycle state of a team member. It is a cache;
// the session's liveness is authoritative and refreshes it on read.
type Status string

const (
	// StatusRunning means the member's session was alive at the last check.
	StatusRunning Status = "running"
	// StatusExited means the session disappeared without being killed.
	StatusExited Status = "exited"
	// StatusTerminated means the member was killed through the coordinator.
	StatusTerminated Status = "terminated"
)

// IsTerminal returns true if the member is no longer running.
func (s Status) IsTerminal() bool {
	return s == StatusExited || s == StatusTerminated
}

// Member is the durable record of a deployed team member.
type Member struct {
	ID          string    `json:"team_member_id"`
	Name        string    `json:"name"`
	Role        Role      `json:"role"`
	Model       string    `json:"model"`
	SessionName string    `json:"session_name"`
	PID         int       `json:"pid,omitempty"`
	PromptRef   string    `json:"prompt_ref"`
	WorkDir     string    `json:"work_dir,omitempty"`
	Status      Status    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Repository persists Member records. Records are never deleted.
type Repository interface {
	// UpsertMember inserts m or replaces the record with the same ID.
	UpsertMember(ctx context.Context, m Member) error
	// GetMember returns the member or a *errors.NotFoundError.
	GetMember(ctx context.Context, id string) (Member, error)
	// ListMembers returns every member ordered by StartedAt, then ID.
	ListMembers(ctx context.Context) ([]Member, error)
	// SetMemberStatus unconditionally sets the status of id.
	SetMemberStatus(ctx context.Context, id string, status Status, at time.Time) error
	// TransitionMemberStatus sets the status of id to "to" only if it is
	// currently "from", reporting whether the record changed.
	TransitionMemberStatus(ctx context.Context, id string, from, to Status, at time.Time) (bool, error)
}
