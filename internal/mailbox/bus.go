package mailbox

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/Iron-Ham/squadron/internal/errors"
	"github.com/Iron-Ham/squadron/internal/event"
	"github.com/Iron-Ham/squadron/internal/logging"
)

const (
	// defaultPollInterval is the default interval for the Watch poller.
	defaultPollInterval = 500 * time.Millisecond

	// MaxContentLength bounds a message body in bytes.
	MaxContentLength = 64 * 1024

	maxIDLength = 128
)

var memberIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:@-]*$`)

// Bus is the message bus shared by every member of a mission. It is safe for
// concurrent use; cross-process safety comes from the Repository.
type Bus struct {
	repo         Repository
	events       *event.Bus
	logger       *logging.Logger
	now          func() time.Time
	ids          *idSource
	defaultTTL   time.Duration
	pollInterval time.Duration
	watchDir     string
}

// NewBus creates a Bus backed by repo.
func NewBus(repo Repository, opts ...Option) *Bus {
	b := &Bus{
		repo:         repo,
		logger:       logging.NopLogger(),
		now:          time.Now,
		ids:          newIDSource(),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// MaxTTL bounds message lifetimes. Expiry instants are stored as Unix
// nanoseconds, which cannot represent dates past 2262.
const MaxTTL = 100 * 365 * 24 * time.Hour

// SendRequest describes a message to send.
type SendRequest struct {
	From    string
	To      string
	Content string
	// Type defaults to TypeDirect, or TypeBroadcast when To is the
	// broadcast recipient.
	Type MessageType
	// Priority defaults to PriorityNormal.
	Priority Priority
	// TTL is the message lifetime. Zero applies the bus default.
	TTL time.Duration
	// ReplyTo correlates a help response with its request.
	ReplyTo string
}

// ListenOptions controls what Listen returns.
type ListenOptions struct {
	// IncludeExpired also returns messages whose expiry has passed.
	IncludeExpired bool
	// IncludeRead also returns messages this reader already consumed.
	IncludeRead bool
	// SortByPriority orders the result by priority, highest first, keeping
	// creation order among equal priorities.
	SortByPriority bool
	// Types restricts the result to these message types.
	Types []MessageType
	// Limit caps the number of messages returned. Zero means no cap.
	Limit int
	// Peek leaves the returned messages unconsumed.
	Peek bool
}

// Send stores a message and returns it with its ID and sequence assigned.
// The recipient does not need to be running; the message waits for it.
func (b *Bus) Send(ctx context.Context, req SendRequest) (Message, error) {
	msg, err := b.build(req)
	if err != nil {
		return Message{}, err
	}
	if err := b.repo.AppendMessage(ctx, &msg); err != nil {
		return Message{}, errors.Wrap(err, "send message")
	}

	b.logger.WithMember(msg.From).Debug("message sent",
		"message_id", msg.ID,
		"to", msg.To,
		"type", string(msg.Type),
		"priority", string(msg.Priority),
	)
	b.events.Publish(event.NewMessageSentEvent(msg.ID, msg.From, msg.To, string(msg.Type), string(msg.Priority)))
	return msg, nil
}

// Broadcast sends content from one member to the whole team.
func (b *Bus) Broadcast(ctx context.Context, from, content string, priority Priority) (Message, error) {
	return b.Send(ctx, SendRequest{
		From:     from,
		To:       BroadcastRecipient,
		Content:  content,
		Type:     TypeBroadcast,
		Priority: priority,
	})
}

// RequestHelp broadcasts a help request. The returned message ID is the
// request ID responders pass to RespondToHelp.
func (b *Bus) RequestHelp(ctx context.Context, from, content string, priority Priority) (Message, error) {
	if priority == "" {
		priority = PriorityHigh
	}
	return b.Send(ctx, SendRequest{
		From:     from,
		To:       BroadcastRecipient,
		Content:  content,
		Type:     TypeHelpRequest,
		Priority: priority,
	})
}

// RespondToHelp answers a help request. The response is addressed to the
// original requester and carries the request ID in ReplyTo.
func (b *Bus) RespondToHelp(ctx context.Context, requestID, from, content string) (Message, error) {
	if strings.TrimSpace(requestID) == "" {
		return Message{}, errors.NewValidationError("request id is required").WithField("request_id")
	}
	req, err := b.repo.GetMessage(ctx, requestID)
	if err != nil {
		if errors.Is(err, &errors.NotFoundError{}) {
			return Message{}, errors.NewNotFoundError("help request", requestID)
		}
		return Message{}, errors.Wrapf(err, "look up help request %s", requestID)
	}
	if req.Type != TypeHelpRequest {
		return Message{}, errors.NewNotFoundError("help request", requestID)
	}
	return b.Send(ctx, SendRequest{
		From:     from,
		To:       req.From,
		Content:  content,
		Type:     TypeHelpResponse,
		Priority: req.Priority,
		ReplyTo:  requestID,
	})
}

// Listen returns the messages waiting for memberID: those addressed to it
// and broadcasts from other members. Unless opts.Peek is set, the returned
// messages are consumed for this reader.
func (b *Bus) Listen(ctx context.Context, memberID string, opts ListenOptions) ([]Message, error) {
	return b.receive(ctx, memberID, opts, 0)
}

func (b *Bus) receive(ctx context.Context, memberID string, opts ListenOptions, afterSeq int64) ([]Message, error) {
	if err := ValidateMemberID(memberID); err != nil {
		return nil, err
	}
	if opts.Limit < 0 {
		return nil, errors.NewValidationError("limit must not be negative").WithField("limit").WithValue(opts.Limit)
	}
	for _, t := range opts.Types {
		if !t.IsValid() {
			return nil, errors.NewValidationError("unknown message type").WithField("type").WithValue(t)
		}
	}

	msgs, err := b.repo.Receive(ctx, Query{
		Reader:         memberID,
		Now:            b.now(),
		IncludeExpired: opts.IncludeExpired,
		IncludeRead:    opts.IncludeRead,
		Types:          opts.Types,
		AfterSeq:       afterSeq,
		Limit:          opts.Limit,
		ByPriority:     opts.SortByPriority,
		Consume:        !opts.Peek,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listen for %s", memberID)
	}
	return msgs, nil
}

// Latest returns the most recent message of type t from each sender,
// ordered by sender. Expiry and consumption are ignored.
func (b *Bus) Latest(ctx context.Context, t MessageType) ([]Message, error) {
	if !t.IsValid() {
		return nil, errors.NewValidationError("unknown message type").WithField("type").WithValue(t)
	}
	msgs, err := b.repo.LatestPerSender(ctx, t)
	if err != nil {
		return nil, errors.Wrapf(err, "latest %s messages", t)
	}
	return msgs, nil
}

// Now returns the bus clock's current time.
func (b *Bus) Now() time.Time { return b.now() }

// build validates req and fills in defaults.
func (b *Bus) build(req SendRequest) (Message, error) {
	if err := validateMemberID("from", req.From); err != nil {
		return Message{}, err
	}
	if req.From == BroadcastRecipient {
		return Message{}, errors.NewValidationError("sender cannot be the broadcast recipient").WithField("from")
	}

	msgType := req.Type
	if msgType == "" {
		msgType = TypeDirect
		if req.To == BroadcastRecipient {
			msgType = TypeBroadcast
		}
	}
	if !msgType.IsValid() {
		return Message{}, errors.NewValidationError("unknown message type").WithField("type").WithValue(msgType)
	}

	to := req.To
	switch msgType {
	case TypeBroadcast, TypeHelpRequest, TypeStatus:
		if to == "" {
			to = BroadcastRecipient
		}
		if to != BroadcastRecipient {
			return Message{}, errors.NewValidationError("message type is always broadcast").
				WithField("to").WithValue(to)
		}
	default:
		if err := validateMemberID("to", to); err != nil {
			return Message{}, err
		}
		if to == BroadcastRecipient {
			return Message{}, errors.NewValidationError("message type cannot be broadcast").
				WithField("type").WithValue(msgType)
		}
	}

	if strings.TrimSpace(req.Content) == "" {
		return Message{}, errors.NewValidationError("content is required").WithField("content")
	}
	if len(req.Content) > MaxContentLength {
		return Message{}, errors.NewValidationError("content too long").WithField("content").WithValue(len(req.Content))
	}

	priority := req.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.IsValid() {
		return Message{}, errors.NewValidationError("unknown priority").WithField("priority").WithValue(priority)
	}

	if req.TTL < 0 {
		return Message{}, errors.NewValidationError("ttl must not be negative").WithField("ttl").WithValue(req.TTL)
	}
	if req.TTL > MaxTTL {
		return Message{}, errors.NewValidationError("ttl exceeds maximum").WithField("ttl").WithValue(req.TTL)
	}
	ttl := req.TTL
	if ttl == 0 {
		ttl = b.defaultTTL
	}

	now := b.now()
	msg := Message{
		ID:        b.ids.next(now),
		From:      req.From,
		To:        to,
		Type:      msgType,
		Content:   req.Content,
		Priority:  priority,
		ReplyTo:   req.ReplyTo,
		CreatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		msg.ExpiresAt = &expires
	}
	return msg, nil
}

func validateMemberID(field, id string) error {
	if id == "" {
		return errors.NewValidationError(field + " is required").WithField(field)
	}
	if len(id) > maxIDLength || !memberIDPattern.MatchString(id) {
		return errors.NewValidationError("malformed identifier").WithField(field).WithValue(id)
	}
	return nil
}

// ValidateMemberID reports whether id is a well-formed team member
// identifier. The broadcast recipient is reserved.
func ValidateMemberID(id string) error {
	if err := validateMemberID("team_member_id", id); err != nil {
		return err
	}
	if id == BroadcastRecipient {
		return errors.NewValidationError("identifier is reserved").WithField("team_member_id").WithValue(id)
	}
	return nil
}
