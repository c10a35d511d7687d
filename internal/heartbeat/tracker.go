package heartbeat

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/logging"
	"github.com/Iron-Ham/squadron/internal/mailbox"
)

// DefaultActiveWindow is used by Active when no window is given.
const DefaultActiveWindow = 2 * time.Minute

// Record is the latest heartbeat seen from one member.
type Record struct {
	MemberID   string    `json:"team_member_id"`
	LastStatus string    `json:"last_status"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Tracker reports and folds member heartbeats.
type Tracker struct {
	bus    *mailbox.Bus
	window time.Duration
	logger *logging.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithActiveWindow sets the window Active uses when called with zero.
func WithActiveWindow(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.window = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l.WithComponent("heartbeat")
		}
	}
}

// NewTracker creates a Tracker over bus.
func NewTracker(bus *mailbox.Bus, opts ...Option) *Tracker {
	t := &Tracker{
		bus:    bus,
		window: DefaultActiveWindow,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Beat broadcasts status as memberID's heartbeat and returns the resulting
// record.
func (t *Tracker) Beat(ctx context.Context, memberID, status string) (Record, error) {
	if strings.TrimSpace(status) == "" {
		return Record{}, errors.NewValidationError("status is required").WithField("status")
	}
	msg, err := t.bus.Send(ctx, mailbox.SendRequest{
		From:    memberID,
		To:      mailbox.BroadcastRecipient,
		Content: status,
		Type:    mailbox.TypeStatus,
	})
	if err != nil {
		return Record{}, err
	}
	t.logger.WithMember(memberID).Debug("heartbeat", "status", status)
	return recordOf(msg), nil
}

// TeamStatus returns the latest heartbeat of every member that has sent
// one, ordered by member id.
func (t *Tracker) TeamStatus(ctx context.Context) ([]Record, error) {
	msgs, err := t.bus.Latest(ctx, mailbox.TypeStatus)
	if err != nil {
		return nil, err
	}
	records := make([]Record, len(msgs))
	for i, m := range msgs {
		records[i] = recordOf(m)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].MemberID < records[j].MemberID
	})
	return records, nil
}

// Active returns the members whose latest heartbeat is no older than
// within. A zero within uses the tracker's default window.
func (t *Tracker) Active(ctx context.Context, within time.Duration) ([]Record, error) {
	if within < 0 {
		return nil, errors.NewValidationError("window must not be negative").WithField("within").WithValue(within)
	}
	if within == 0 {
		within = t.window
	}
	all, err := t.TeamStatus(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := t.bus.Now().Add(-within)
	active := make([]Record, 0, len(all))
	for _, r := range all {
		if !r.LastSeenAt.Before(cutoff) {
			active = append(active, r)
		}
	}
	return active, nil
}

func recordOf(m mailbox.Message) Record {
	return Record{MemberID: m.From, LastStatus: m.Content, LastSeenAt: m.CreatedAt}
}
