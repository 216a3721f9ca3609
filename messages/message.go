package messages

import (
	"errors"
	"fmt"
	"time"

	"github.com/casualjim/roost/pkg/jsonx"
	"github.com/casualjim/roost/pkg/uuidx"
	"github.com/go-openapi/strfmt"
)

// ErrValidation is wrapped by every error returned from Message.Validate.
var ErrValidation = errors.New("invalid message")

// Message is the unit of agent-to-agent communication.
type Message struct {
	ID             string
	Sender         string
	Recipient      string
	ConversationID string
	Timestamp      strfmt.DateTime
	Type           Type
	Priority       Priority
	// TTL bounds how long the message may wait in the queue. Zero means no expiry.
	TTL     time.Duration
	Content map[string]any
	TraceID string
}

// Validate checks the fields a sender must provide.
// All problems are reported at once, joined into a single error wrapping ErrValidation.
func (m Message) Validate() error {
	var errs []error
	if m.Sender == "" {
		errs = append(errs, errors.New("sender is required"))
	}
	if m.Recipient == "" {
		errs = append(errs, errors.New("recipient is required"))
	}
	if m.Type != "" && !m.Type.Valid() {
		errs = append(errs, fmt.Errorf("unknown message type %q", m.Type))
	}
	if m.Priority != "" && !m.Priority.Valid() {
		errs = append(errs, fmt.Errorf("unknown message priority %q", m.Priority))
	}
	if m.TTL < 0 {
		errs = append(errs, fmt.Errorf("ttl must not be negative, got %s", m.TTL))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrValidation, errors.Join(errs...))
}

// Normalize fills the fields the protocol assigns when a sender left them empty
// and deep copies the content so later changes by the caller, nested ones
// included, don't reach the queued message.
func (m Message) Normalize() Message {
	if m.ID == "" {
		m.ID = uuidx.NewString()
	}
	if m.ConversationID == "" {
		m.ConversationID = uuidx.NewString()
	}
	if time.Time(m.Timestamp).IsZero() {
		m.Timestamp = strfmt.DateTime(time.Now())
	}
	if m.Type == "" {
		m.Type = TypeRequest
	}
	if m.Priority == "" {
		m.Priority = PriorityMedium
	}
	if m.Content == nil {
		m.Content = map[string]any{}
	} else {
		m.Content = jsonx.CloneMap(m.Content)
	}
	return m
}

// ExpiresAt returns the moment the message expires and whether it expires at all.
func (m Message) ExpiresAt() (time.Time, bool) {
	if m.TTL <= 0 {
		return time.Time{}, false
	}
	return time.Time(m.Timestamp).Add(m.TTL), true
}

// Expired reports whether the message's ttl elapsed before now.
func (m Message) Expired(now time.Time) bool {
	deadline, ok := m.ExpiresAt()
	return ok && now.After(deadline)
}

// Builder assembles messages with a fluent API.
type Builder struct {
	msg Message
}

// New starts a message with a fresh id and the current time.
func New() Builder {
	return Builder{msg: Message{
		ID:        uuidx.NewString(),
		Timestamp: strfmt.DateTime(time.Now()),
		Priority:  PriorityMedium,
	}}
}

func (b Builder) From(sender string) Builder {
	b.msg.Sender = sender
	return b
}

func (b Builder) To(recipient string) Builder {
	b.msg.Recipient = recipient
	return b
}

func (b Builder) InConversation(id string) Builder {
	b.msg.ConversationID = id
	return b
}

func (b Builder) WithPriority(p Priority) Builder {
	b.msg.Priority = p
	return b
}

func (b Builder) WithTTL(ttl time.Duration) Builder {
	b.msg.TTL = ttl
	return b
}

func (b Builder) WithTrace(traceID string) Builder {
	b.msg.TraceID = traceID
	return b
}

func (b Builder) Request(content map[string]any) Message {
	return b.build(TypeRequest, content)
}

func (b Builder) Response(content map[string]any) Message {
	return b.build(TypeResponse, content)
}

func (b Builder) Notification(content map[string]any) Message {
	return b.build(TypeNotification, content)
}

func (b Builder) Error(content map[string]any) Message {
	return b.build(TypeError, content)
}

func (b Builder) build(t Type, content map[string]any) Message {
	m := b.msg
	m.Type = t
	if content == nil {
		content = map[string]any{}
	}
	m.Content = content
	return m
}

// Reply builds a response to orig in the same conversation, addressed back to its sender.
// The trace id and priority carry over.
func Reply(orig Message, content map[string]any) Message {
	return New().
		From(orig.Recipient).
		To(orig.Sender).
		InConversation(orig.ConversationID).
		WithPriority(orig.Priority).
		WithTrace(orig.TraceID).
		Response(content)
}
