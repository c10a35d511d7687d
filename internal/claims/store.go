package claims

import (
	"context"
	"strings"
	"time"

	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/event"
	"github.com/Iron-Ham/squadron/internal/logging"
	"github.com/Iron-Ham/squadron/internal/util"
)

// MaxTaskKeyLength bounds task keys so they stay usable as Redis keys and
// in URLs.
const MaxTaskKeyLength = 256

// Result is the outcome of a claim attempt.
type Result struct {
	Granted   bool      `json:"granted"`
	Owner     string    `json:"owner"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// Store is the task claim ledger. It is safe for concurrent use.
type Store struct {
	backend Backend
	bus     *event.Bus
	logger  *logging.Logger
	now     func() time.Time
	locks   util.KeyedMutex
}

// NewStore creates a Store on top of backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  logging.NopLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Claim attempts to take ownership of taskKey for memberID. When another
// member holds the task, Granted is false and Owner names the holder. A
// member re-claiming a task it already owns is granted without a new claim.
func (s *Store) Claim(ctx context.Context, taskKey, memberID string) (Result, error) {
	if err := validate(taskKey, memberID); err != nil {
		return Result{}, err
	}

	at := s.now()
	unlock := s.locks.Lock(taskKey)
	active, err := s.backend.TryClaim(ctx, taskKey, memberID, at)
	unlock()
	if err != nil {
		return Result{}, errors.Wrapf(err, "claim %s", taskKey)
	}

	res := Result{
		Granted:   active.ClaimedBy == memberID,
		Owner:     active.ClaimedBy,
		ClaimedAt: active.ClaimedAt,
	}
	log := s.logger.WithTask(taskKey).WithMember(memberID)
	switch {
	case !res.Granted:
		log.Debug("claim denied", "owner", res.Owner)
	case active.ClaimedAt.Equal(at):
		log.Info("claim granted")
		s.bus.Publish(event.NewClaimGrantedEvent(taskKey, memberID))
	default:
		log.Debug("claim already held by caller")
	}
	return res, nil
}

// Release gives up memberID's claim on taskKey, making the task claimable
// again. It fails with an *errors.OwnershipError, leaving the claim in
// place, when another member holds it, and with an *errors.NotFoundError
// when the task has no active claim.
func (s *Store) Release(ctx context.Context, taskKey, memberID string) (Claim, error) {
	if err := validate(taskKey, memberID); err != nil {
		return Claim{}, err
	}

	unlock := s.locks.Lock(taskKey)
	released, err := s.backend.ReleaseClaim(ctx, taskKey, memberID, s.now())
	unlock()
	if err != nil {
		return Claim{}, err
	}

	s.logger.WithTask(taskKey).WithMember(memberID).Info("claim released")
	s.bus.Publish(event.NewClaimReleasedEvent(taskKey, memberID))
	return released, nil
}

// ActiveClaims returns every active claim, oldest first.
func (s *Store) ActiveClaims(ctx context.Context) ([]Claim, error) {
	active, err := s.backend.ActiveClaims(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list active claims")
	}
	return active, nil
}

// ReleaseAll releases every claim held by memberID. It returns nil when the
// member holds nothing.
func (s *Store) ReleaseAll(ctx context.Context, memberID string) ([]Claim, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, errors.NewValidationError("team member id is required").WithField("team_member_id")
	}
	released, err := s.backend.ReleaseClaimsHeldBy(ctx, memberID, s.now())
	if err != nil {
		return nil, errors.Wrapf(err, "release claims of %s", memberID)
	}
	for _, c := range released {
		s.bus.Publish(event.NewClaimReleasedEvent(c.TaskKey, memberID))
	}
	if len(released) > 0 {
		s.logger.WithMember(memberID).Info("released held claims", "count", len(released))
	}
	return released, nil
}

func validate(taskKey, memberID string) error {
	if strings.TrimSpace(taskKey) == "" {
		return errors.NewValidationError("task key is required").WithField("task_key")
	}
	if len(taskKey) > MaxTaskKeyLength {
		return errors.NewValidationError("task key too long").WithField("task_key").WithValue(len(taskKey))
	}
	if strings.TrimSpace(memberID) == "" {
		return errors.NewValidationError("team member id is required").WithField("team_member_id")
	}
	return nil
}
