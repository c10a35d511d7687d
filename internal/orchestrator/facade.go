package orchestrator

import (
	"context"
	"time"

	"github.com/Iron-Ham/squadron/internal/claims"
	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/event"
	"github.com/Iron-Ham/squadron/internal/heartbeat"
	"github.com/Iron-Ham/squadron/internal/logging"
	"github.com/Iron-Ham/squadron/internal/mailbox"
	"github.com/Iron-Ham/squadron/internal/team"
)

// Screen capture bounds used when Deps leaves them unset.
const (
	DefaultScreenLines = 100
	MaxScreenLines     = 2000
)

// Deps are the components a Facade composes.
type Deps struct {
	Registry  *team.Registry
	Deployer  *team.Deployer
	Bus       *mailbox.Bus
	Claims    *claims.Store
	Heartbeat *heartbeat.Tracker
	Events    *event.Bus
	Logger    *logging.Logger

	// ScreenLines is the capture size when a request names none.
	ScreenLines int
	// MaxScreenLines caps any requested capture size.
	MaxScreenLines int
	// ReleaseOnKill releases a member's claims when it is killed.
	ReleaseOnKill bool
}

// Facade exposes every caller-facing operation.
type Facade struct {
	registry      *team.Registry
	deployer      *team.Deployer
	bus           *mailbox.Bus
	claims        *claims.Store
	heartbeat     *heartbeat.Tracker
	events        *event.Bus
	logger        *logging.Logger
	screenLines   int
	maxLines      int
	releaseOnKill bool
}

// NewFacade creates a Facade over d.
func NewFacade(d Deps) *Facade {
	f := &Facade{
		registry:      d.Registry,
		deployer:      d.Deployer,
		bus:           d.Bus,
		claims:        d.Claims,
		heartbeat:     d.Heartbeat,
		events:        d.Events,
		logger:        d.Logger,
		screenLines:   d.ScreenLines,
		maxLines:      d.MaxScreenLines,
		releaseOnKill: d.ReleaseOnKill,
	}
	if f.logger == nil {
		f.logger = logging.NopLogger()
	}
	f.logger = f.logger.WithComponent("orchestrator")
	if f.screenLines <= 0 {
		f.screenLines = DefaultScreenLines
	}
	if f.maxLines <= 0 {
		f.maxLines = MaxScreenLines
	}
	return f
}

// Events returns the domain event bus, or nil when none is configured.
func (f *Facade) Events() *event.Bus { return f.events }

// Deploy starts a new team member.
func (f *Facade) Deploy(ctx context.Context, req DeployRequest) (DeployResult, error) {
	return f.deployer.Deploy(ctx, req)
}

// Status reports whether a member is running, checked against its session.
func (f *Facade) Status(ctx context.Context, req MemberRequest) (StatusResult, error) {
	return f.registry.Get(ctx, req.MemberID)
}

// List returns every member in deployment order.
func (f *Facade) List(ctx context.Context) (ListResult, error) {
	members, err := f.registry.List(ctx)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Members: members}, nil
}

// ActiveMembers returns the members whose sessions are running.
func (f *Facade) ActiveMembers(ctx context.Context) (ListResult, error) {
	all, err := f.List(ctx)
	if err != nil {
		return ListResult{}, err
	}
	running := make([]team.MemberStatus, 0, len(all.Members))
	for _, m := range all.Members {
		if m.Running {
			running = append(running, m)
		}
	}
	return ListResult{Members: running}, nil
}

// Screen captures the last lines of a member's terminal.
func (f *Facade) Screen(ctx context.Context, req ScreenRequest) (ScreenResult, error) {
	lines := req.Lines
	switch {
	case lines < 0:
		return ScreenResult{}, errors.NewValidationError("lines must not be negative").WithField("lines").WithValue(lines)
	case lines == 0:
		lines = f.screenLines
	case lines > f.maxLines:
		lines = f.maxLines
	}
	return f.registry.Screen(ctx, req.MemberID, lines)
}

// Intervene types text into a running member's terminal.
func (f *Facade) Intervene(ctx context.Context, req InterveneRequest) (InterveneResult, error) {
	autoSubmit := true
	if req.AutoSubmit != nil {
		autoSubmit = *req.AutoSubmit
	}
	if err := f.registry.Intervene(ctx, req.MemberID, req.Text, autoSubmit); err != nil {
		return InterveneResult{}, err
	}
	return InterveneResult{Success: true, MemberID: req.MemberID}, nil
}

// Kill terminates a member. With ReleaseOnKill its claims are released too;
// a failure there is logged and does not fail the kill.
func (f *Facade) Kill(ctx context.Context, req MemberRequest) (KillResult, error) {
	res, err := f.registry.Kill(ctx, req.MemberID)
	if err != nil {
		return KillResult{}, err
	}
	out := KillResult{Success: true, MemberID: res.MemberID, HadSession: res.HadSession}

	if f.releaseOnKill {
		released, err := f.claims.ReleaseAll(context.WithoutCancel(ctx), req.MemberID)
		if err != nil {
			f.logger.WithMember(req.MemberID).Warn("failed to release claims of killed member", "error", err.Error())
		}
		for _, c := range released {
			out.ReleasedClaims = append(out.ReleasedClaims, c.TaskKey)
		}
	}
	return out, nil
}

// Send delivers a message. The recipient does not need to be running.
func (f *Facade) Send(ctx context.Context, req SendRequest) (MessageResult, error) {
	if req.TTLSeconds < 0 {
		return MessageResult{}, errors.NewValidationError("ttl must not be negative").WithField("ttl_seconds").WithValue(req.TTLSeconds)
	}
	if int64(req.TTLSeconds) > int64(mailbox.MaxTTL/time.Second) {
		return MessageResult{}, errors.NewValidationError("ttl exceeds maximum").WithField("ttl_seconds").WithValue(req.TTLSeconds)
	}
	msg, err := f.bus.Send(ctx, mailbox.SendRequest{
		From:     req.From,
		To:       req.To,
		Content:  req.Content,
		Type:     req.Type,
		Priority: req.Priority,
		TTL:      time.Duration(req.TTLSeconds) * time.Second,
	})
	return messageResult(msg, err)
}

// Broadcast sends a message to every member.
func (f *Facade) Broadcast(ctx context.Context, req BroadcastRequest) (MessageResult, error) {
	return messageResult(f.bus.Broadcast(ctx, req.From, req.Content, req.Priority))
}

// RequestHelp broadcasts a help request.
func (f *Facade) RequestHelp(ctx context.Context, req HelpRequest) (MessageResult, error) {
	return messageResult(f.bus.RequestHelp(ctx, req.From, req.Content, req.Priority))
}

// RespondHelp answers a help request.
func (f *Facade) RespondHelp(ctx context.Context, req HelpResponse) (MessageResult, error) {
	return messageResult(f.bus.RespondToHelp(ctx, req.RequestID, req.From, req.Content))
}

func messageResult(msg mailbox.Message, err error) (MessageResult, error) {
	if err != nil {
		return MessageResult{}, err
	}
	return MessageResult{Success: true, Message: msg}, nil
}

// Listen returns a member's waiting messages.
func (f *Facade) Listen(ctx context.Context, req ListenRequest) (ListenResult, error) {
	msgs, err := f.bus.Listen(ctx, req.MemberID, req.options())
	if err != nil {
		return ListenResult{}, err
	}
	if msgs == nil {
		msgs = []mailbox.Message{}
	}
	return ListenResult{MemberID: req.MemberID, Messages: msgs}, nil
}

// Watch calls handler for every message reaching a member until ctx is done.
func (f *Facade) Watch(ctx context.Context, req ListenRequest, handler func(mailbox.Message)) error {
	return f.bus.Watch(ctx, req.MemberID, req.options(), handler)
}

// Claim attempts to take a task for a member.
func (f *Facade) Claim(ctx context.Context, req ClaimRequest) (ClaimResult, error) {
	res, err := f.claims.Claim(ctx, req.TaskKey, req.MemberID)
	if err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{TaskKey: req.TaskKey, Result: res}, nil
}

// Release gives up a member's claim on a task.
func (f *Facade) Release(ctx context.Context, req ClaimRequest) (ReleaseResult, error) {
	c, err := f.claims.Release(ctx, req.TaskKey, req.MemberID)
	if err != nil {
		return ReleaseResult{}, err
	}
	return ReleaseResult{Success: true, Claim: c}, nil
}

// ActiveClaims returns every active claim.
func (f *Facade) ActiveClaims(ctx context.Context) (ClaimsResult, error) {
	active, err := f.claims.ActiveClaims(ctx)
	if err != nil {
		return ClaimsResult{}, err
	}
	if active == nil {
		active = []claims.Claim{}
	}
	return ClaimsResult{Claims: active}, nil
}

// Heartbeat records a member's status.
func (f *Facade) Heartbeat(ctx context.Context, req HeartbeatRequest) (heartbeat.Record, error) {
	return f.heartbeat.Beat(ctx, req.MemberID, req.Status)
}

// TeamStatus returns the latest heartbeat of each member.
func (f *Facade) TeamStatus(ctx context.Context, req TeamStatusRequest) (TeamStatusResult, error) {
	var (
		records []heartbeat.Record
		err     error
	)
	switch {
	case req.Within < 0:
		return TeamStatusResult{}, errors.NewValidationError("window must not be negative").WithField("within").WithValue(req.Within)
	case req.Within == 0:
		records, err = f.heartbeat.TeamStatus(ctx)
	default:
		records, err = f.heartbeat.Active(ctx, req.Within)
	}
	if err != nil {
		return TeamStatusResult{}, err
	}
	if records == nil {
		records = []heartbeat.Record{}
	}
	return TeamStatusResult{Members: records}, nil
}
