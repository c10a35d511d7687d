package team

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/event"
	"github.com/Iron-Ham/squadron/internal/logging"
	"github.com/Iron-Ham/squadron/internal/session"
	"github.com/Iron-Ham/squadron/internal/util"
)

// defaultReconcileConcurrency bounds concurrent liveness checks in List.
const defaultReconcileConcurrency = 8

const maxIDLength = 128

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:@-]*$`)

// reservedIDs cannot name a team member.
var reservedIDs = map[string]bool{"broadcast": true}

// ValidateID reports whether id can name a team member.
func ValidateID(id string) error {
	if id == "" {
		return errors.NewValidationError("team member id is required").WithField("team_member_id")
	}
	if len(id) > maxIDLength || !idPattern.MatchString(id) {
		return errors.NewValidationError("malformed team member id").WithField("team_member_id").WithValue(id)
	}
	if reservedIDs[id] {
		return errors.NewValidationError("team member id is reserved").WithField("team_member_id").WithValue(id)
	}
	return nil
}

// MemberStatus is a member record reconciled against its live session.
type MemberStatus struct {
	Member
	// Running is the live answer; Status may lag for terminal members.
	Running bool `json:"running"`
}

// ScreenResult is a screen capture of a member's session.
type ScreenResult struct {
	MemberID string `json:"team_member_id"`
	Running  bool   `json:"running"`
	Content  string `json:"content"`
}

// KillResult reports the outcome of a kill.
type KillResult struct {
	MemberID string `json:"team_member_id"`
	// HadSession is false when the session was already gone.
	HadSession bool `json:"had_session"`
}

// Registry owns team member records and the sessions behind them. Stored
// status is a cache: every read checks the live session first.
type Registry struct {
	repo        Repository
	mgr         session.Manager
	events      *event.Bus
	logger      *logging.Logger
	now         func() time.Time
	handleOpts  []session.HandleOption
	concurrency int
	locks       util.KeyedMutex
}

// NewRegistry creates a Registry over repo and the session manager mgr.
func NewRegistry(repo Repository, mgr session.Manager, opts ...RegistryOption) *Registry {
	r := &Registry{
		repo:        repo,
		mgr:         mgr,
		logger:      logging.NopLogger(),
		now:         time.Now,
		concurrency: defaultReconcileConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle returns the process handle for m's session.
func (r *Registry) Handle(m Member) *session.Handle {
	opts := append([]session.HandleOption{session.WithLogger(r.logger.WithMember(m.ID))}, r.handleOpts...)
	return session.NewHandle(r.mgr, m.SessionName, opts...)
}

// Get returns the reconciled status of one member. Unknown ids fail with
// *errors.NotFoundError.
func (r *Registry) Get(ctx context.Context, id string) (MemberStatus, error) {
	if err := ValidateID(id); err != nil {
		return MemberStatus{}, err
	}
	m, err := r.repo.GetMember(ctx, id)
	if err != nil {
		return MemberStatus{}, err
	}
	return r.reconcile(ctx, m), nil
}

// List returns every member, reconciled, in deployment order.
func (r *Registry) List(ctx context.Context) ([]MemberStatus, error) {
	members, err := r.repo.ListMembers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list members")
	}
	mapper := iter.Mapper[Member, MemberStatus]{MaxGoroutines: r.concurrency}
	return mapper.Map(members, func(m *Member) MemberStatus {
		return r.reconcile(ctx, *m)
	}), nil
}

// reconcile checks m against its session and persists any status change.
// Terminated members are final and are not probed.
func (r *Registry) reconcile(ctx context.Context, m Member) MemberStatus {
	if m.Status == StatusTerminated {
		return MemberStatus{Member: m}
	}

	alive := r.Handle(m).IsAlive(ctx)
	now := r.now()
	log := r.logger.WithMember(m.ID)

	switch {
	case m.Status == StatusRunning && !alive:
		changed, err := r.repo.TransitionMemberStatus(ctx, m.ID, StatusRunning, StatusExited, now)
		if err != nil {
			log.Warn("failed to record member exit", "error", err.Error())
		}
		m.Status = StatusExited
		if changed {
			m.UpdatedAt = now
			log.Info("member session exited", "session", m.SessionName)
			r.events.Publish(event.NewMemberExitedEvent(m.ID, m.SessionName))
		}
	case m.Status == StatusExited && alive:
		// An earlier probe timed out while the session was still up.
		changed, err := r.repo.TransitionMemberStatus(ctx, m.ID, StatusExited, StatusRunning, now)
		if err != nil {
			log.Warn("failed to record member revival", "error", err.Error())
		}
		m.Status = StatusRunning
		if changed {
			m.UpdatedAt = now
		}
	}
	return MemberStatus{Member: m, Running: alive && m.Status == StatusRunning}
}

// Screen captures the last lines of a member's terminal. A dead session
// yields empty content, not an error.
func (r *Registry) Screen(ctx context.Context, id string, lines int) (ScreenResult, error) {
	st, err := r.Get(ctx, id)
	if err != nil {
		return ScreenResult{}, err
	}
	res := ScreenResult{MemberID: id, Running: st.Running}
	if st.Running {
		res.Content = r.Handle(st.Member).CaptureScreen(ctx, lines)
	}
	return res, nil
}

// Intervene types text into a running member's terminal.
func (r *Registry) Intervene(ctx context.Context, id, text string, autoSubmit bool) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewValidationError("text is required").WithField("text")
	}
	st, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !st.Running {
		return errors.NewInjectionError("member is not running", errors.ErrMemberNotRunning).
			WithMemberID(id).WithSession(st.SessionName)
	}
	if err := r.Handle(st.Member).Inject(ctx, text, autoSubmit); err != nil {
		var injErr *errors.InjectionError
		if errors.As(err, &injErr) {
			return injErr.WithMemberID(id)
		}
		return err
	}
	r.logger.WithMember(id).Info("intervention sent", "auto_submit", autoSubmit)
	return nil
}

// Kill terminates a member's session and marks the record terminated,
// whether or not a live session was found. Killing a dead member succeeds.
func (r *Registry) Kill(ctx context.Context, id string) (KillResult, error) {
	if err := ValidateID(id); err != nil {
		return KillResult{}, err
	}
	unlock := r.locks.Lock(id)
	defer unlock()

	m, err := r.repo.GetMember(ctx, id)
	if err != nil {
		return KillResult{}, err
	}

	hadSession := r.Handle(m).Terminate(ctx)
	if err := r.repo.SetMemberStatus(context.WithoutCancel(ctx), id, StatusTerminated, r.now()); err != nil {
		return KillResult{}, errors.Wrapf(err, "mark %s terminated", id)
	}

	r.logger.WithMember(id).Info("member killed", "had_session", hadSession)
	r.events.Publish(event.NewMemberKilledEvent(id, hadSession))
	return KillResult{MemberID: id, HadSession: hadSession}, nil
}
