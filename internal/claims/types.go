package claims

import (
	"context"
	"time"
)

// Claim records that a team member owns a task. A claim is active until it
// is released; there is at most one active claim per task key.
type Claim struct {
	ID         string     `json:"id"`
	TaskKey    string     `json:"task_key"`
	ClaimedBy  string     `json:"claimed_by"`
	ClaimedAt  time.Time  `json:"claimed_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
}

// Active returns true if the claim has not been released.
func (c Claim) Active() bool {
	return c.ReleasedAt == nil
}

// Backend stores claims with an atomic compare-and-set per task key.
type Backend interface {
	// TryClaim creates an active claim for memberID unless one exists.
	// It returns the active claim after the attempt, whoever owns it.
	TryClaim(ctx context.Context, taskKey, memberID string, at time.Time) (Claim, error)
	// ReleaseClaim releases the active claim on taskKey held by memberID.
	// It fails with *errors.NotFoundError when there is no active claim and
	// *errors.OwnershipError when another member holds it.
	ReleaseClaim(ctx context.Context, taskKey, memberID string, at time.Time) (Claim, error)
	// ActiveClaims returns every active claim ordered by ClaimedAt.
	ActiveClaims(ctx context.Context) ([]Claim, error)
	// ReleaseClaimsHeldBy releases every active claim held by memberID and
	// returns the released claims.
	ReleaseClaimsHeldBy(ctx context.Context, memberID string, at time.Time) ([]Claim, error)
}
