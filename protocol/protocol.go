package protocol

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/casualjim/roost/api"
	"github.com/casualjim/roost/internal/metrics"
	"github.com/casualjim/roost/internal/pqueue"
	"github.com/casualjim/roost/internal/registry"
	"github.com/casualjim/roost/messages"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/casualjim/roost/pubsub"
	"github.com/fogfish/opts"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultStopTimeout = 5 * time.Second

var (
	ErrInvalidAgent = errors.New("invalid agent")
	ErrAgentExists  = errors.New("agent already registered")
	ErrStopTimeout  = errors.New("message pump did not stop in time")
)

// DeliveryCallback is invoked once when a message reaches a terminal delivery status.
type DeliveryCallback func(messages.DeliveryConfirmation)

// Protocol is safe for concurrent use.
type Protocol struct {
	logger          *slog.Logger
	deliveryTimeout time.Duration
	stopTimeout     time.Duration
	historyLimit    int
	now             func() time.Time
	registerer      prometheus.Registerer
	metrics         *metrics.Protocol

	agents registry.Registry[api.Agent]
	topics *pubsub.Registry
	queue  *pqueue.Queue[messages.Message]

	mu            sync.Mutex
	confirmations map[string]messages.DeliveryConfirmation
	callbacks     map[string]DeliveryCallback
	conversations map[string]*conversation
	history       []messages.Message

	processed atomic.Int64

	pumpMu sync.Mutex
	pump   *pump
}

var (
	// WithLogger sets the logger used for delivery failures and pump lifecycle.
	WithLogger = opts.ForName[Protocol, *slog.Logger]("logger")
	// WithDeliveryTimeout bounds each Receive call. Zero waits forever.
	WithDeliveryTimeout = opts.ForName[Protocol, time.Duration]("deliveryTimeout")
	// WithStopTimeout bounds how long Stop waits for the pump to exit.
	WithStopTimeout = opts.ForName[Protocol, time.Duration]("stopTimeout")
	// WithHistoryLimit caps the global history; the oldest messages are evicted first. Zero keeps everything.
	WithHistoryLimit = opts.ForName[Protocol, int]("historyLimit")
	// WithMetrics registers the protocol metrics with the given registerer.
	WithMetrics = opts.ForName[Protocol, prometheus.Registerer]("registerer")
)

// WithClock replaces the clock used for ttl checks.
func WithClock(now func() time.Time) opts.Option[Protocol] {
	return opts.Type[Protocol](func(p *Protocol) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		p.now = now
		return nil
	})
}

// New creates a protocol. It panics when an option is invalid.
func New(options ...opts.Option[Protocol]) *Protocol {
	p := &Protocol{
		stopTimeout:   defaultStopTimeout,
		now:           time.Now,
		agents:        registry.New[api.Agent](),
		topics:        pubsub.NewRegistry(),
		queue:         pqueue.New[messages.Message](),
		confirmations: make(map[string]messages.DeliveryConfirmation),
		callbacks:     make(map[string]DeliveryCallback),
		conversations: make(map[string]*conversation),
	}
	if err := opts.Apply(p, options); err != nil {
		panic(err)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With(slogx.LoggerName("roost.protocol"))

	m, err := metrics.NewProtocol(p.registerer)
	if err != nil {
		panic(fmt.Errorf("failed to register protocol metrics: %w", err))
	}
	p.metrics = m
	return p
}

// RegisterAgent makes agent addressable by its id.
func (p *Protocol) RegisterAgent(agent api.Agent) error {
	if agent == nil || agent.ID() == "" {
		return fmt.Errorf("%w: agent and agent id are required", ErrInvalidAgent)
	}
	if !p.agents.AddIfAbsent(agent.ID(), agent) {
		return fmt.Errorf("%w: %s", ErrAgentExists, agent.ID())
	}
	p.logger.Debug("agent registered", slogx.AgentID(agent.ID()))
	return nil
}

// UnregisterAgent removes an agent together with its subscriptions.
// Queued messages addressed to it will fail with "recipient not found".
func (p *Protocol) UnregisterAgent(id string) bool {
	if !p.agents.Del(id) {
		return false
	}
	removed := p.topics.UnsubscribeAll(id)
	p.logger.Debug("agent unregistered", slogx.AgentID(id), slog.Int("subscriptions", removed))
	return true
}

// Agent returns a registered agent.
func (p *Protocol) Agent(id string) (api.Agent, bool) {
	return p.agents.Get(id)
}

// Agents returns the ids of the registered agents, sorted.
func (p *Protocol) Agents() []string {
	return p.agents.Names()
}

// Send enqueues msg for delivery and returns its id.
func (p *Protocol) Send(msg messages.Message) (string, error) {
	return p.send(msg, nil)
}

// SendWithCallback is Send with a callback fired once when the message reaches a terminal status.
func (p *Protocol) SendWithCallback(msg messages.Message, cb DeliveryCallback) (string, error) {
	return p.send(msg, cb)
}

func (p *Protocol) send(msg messages.Message, cb DeliveryCallback) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	msg = msg.Normalize()

	p.mu.Lock()
	if _, exists := p.confirmations[msg.ID]; exists {
		p.mu.Unlock()
		return "", fmt.Errorf("%w: duplicate message id %s", messages.ErrValidation, msg.ID)
	}
	p.confirmations[msg.ID] = messages.Pending(msg)
	if cb != nil {
		p.callbacks[msg.ID] = cb
	}
	p.recordLocked(msg)
	// pushed under p.mu so equal priorities queue in history order
	p.queue.Push(msg.Priority.Rank(), msg)
	p.mu.Unlock()

	p.metrics.MessagesSent.WithLabelValues(string(msg.Type), string(msg.Priority)).Inc()
	p.metrics.QueueDepth.Set(float64(p.queue.Len()))
	return msg.ID, nil
}

// DeliveryStatus returns the confirmation recorded for a message id.
func (p *Protocol) DeliveryStatus(messageID string) (messages.DeliveryConfirmation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	conf, ok := p.confirmations[messageID]
	return conf, ok
}

// Stats is a point-in-time snapshot of the protocol.
type Stats struct {
	Agents               int   `json:"agents"`
	Topics               int   `json:"topics"`
	Conversations        int   `json:"conversations"`
	QueueDepth           int   `json:"queue_depth"`
	History              int   `json:"history"`
	PendingConfirmations int   `json:"pending_confirmations"`
	Processed            int64 `json:"processed"`
	Running              bool  `json:"running"`
}

func (p *Protocol) Stats() Stats {
	p.mu.Lock()
	pending := 0
	for _, conf := range p.confirmations {
		if !conf.Status.Terminal() {
			pending++
		}
	}
	s := Stats{
		Conversations:        len(p.conversations),
		History:              len(p.history),
		PendingConfirmations: pending,
	}
	p.mu.Unlock()

	s.Agents = p.agents.Len()
	s.Topics = p.topics.Len()
	s.QueueDepth = p.queue.Len()
	s.Processed = p.processed.Load()
	s.Running = p.Running()
	return s
}
