// Package natsbridge connects protocols running in different processes.
//
// A remote agent is represented locally by a proxy registered with the
// protocol: every message the protocol delivers to the proxy is published on
// "<prefix>.<agent id>". On the other side Serve subscribes to that subject
// and sends each incoming message to the local protocol, which delivers it to
// the real agent. Delivery confirmations stay local to each side.
//
// Example usage:
//
//	nc, err := natsx.NewClient(cfg.NATS.URL)
//	if err != nil {
//	    return err
//	}
//	b := natsbridge.New(broker.NATS(nc), p, natsbridge.WithSubjectPrefix("roost"))
//	if err := b.Remote("billing", "invoicing"); err != nil { // billing runs elsewhere
//	    return err
//	}
//	if err := b.Serve(ctx, "creative"); err != nil { // creative runs here
//	    return err
//	}
//	defer b.Close()
package natsbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/casualjim/roost/internal/broker"
	"github.com/casualjim/roost/messages"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/casualjim/roost/protocol"
	"github.com/fogfish/opts"
)

const DefaultSubjectPrefix = "roost"

var ErrLoop = errors.New("agent is a remote proxy and can't be served locally")

type Bridge struct {
	broker   broker.Broker
	protocol *protocol.Protocol
	prefix   string
	logger   *slog.Logger

	mu      sync.Mutex
	served  map[string]broker.Subscription
	proxies []string
}

var (
	WithSubjectPrefix = opts.ForName[Bridge, string]("prefix")
	WithLogger        = opts.ForName[Bridge, *slog.Logger]("logger")
)

func New(b broker.Broker, p *protocol.Protocol, options ...opts.Option[Bridge]) *Bridge {
	br := &Bridge{
		broker:   b,
		protocol: p,
		prefix:   DefaultSubjectPrefix,
		served:   make(map[string]broker.Subscription),
	}
	if err := opts.Apply(br, options); err != nil {
		panic(err)
	}
	br.prefix = strings.TrimSuffix(br.prefix, ".")
	if br.logger == nil {
		br.logger = slog.Default()
	}
	br.logger = br.logger.With(slogx.LoggerName("roost.natsbridge"))
	return br
}

// Subject returns the subject messages for agentID travel on.
func (b *Bridge) Subject(agentID string) string {
	if b.prefix == "" {
		return agentID
	}
	return b.prefix + "." + agentID
}

// Remote registers a proxy for an agent living in another process.
func (b *Bridge) Remote(agentID string, capabilities ...string) error {
	px := &proxy{
		id:           agentID,
		capabilities: slices.Clone(capabilities),
		topic:        b.broker.Topic(context.Background(), b.Subject(agentID)),
	}
	if err := b.protocol.RegisterAgent(px); err != nil {
		return err
	}
	b.mu.Lock()
	b.proxies = append(b.proxies, agentID)
	b.mu.Unlock()
	b.logger.Info("remote agent proxied", slogx.AgentID(agentID), slog.String("subject", b.Subject(agentID)))
	return nil
}

// Serve forwards messages published for agentID to the local protocol until
// ctx is cancelled or Close is called. Serving an agent twice is a no-op.
func (b *Bridge) Serve(ctx context.Context, agentID string) error {
	if local, ok := b.protocol.Agent(agentID); ok {
		if _, isProxy := local.(*proxy); isProxy {
			return fmt.Errorf("%w: %s", ErrLoop, agentID)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.served[agentID]; ok {
		return nil
	}

	subject := b.Subject(agentID)
	sub, err := b.broker.Topic(ctx, subject).Subscribe(ctx, func(_ context.Context, msg messages.Message) {
		if msg.Recipient != agentID {
			b.logger.Warn("dropping message for another recipient",
				slogx.MessageID(msg.ID),
				slog.String("subject", subject),
				slogx.AgentID(msg.Recipient),
			)
			return
		}
		if _, err := b.protocol.Send(msg); err != nil {
			b.logger.Error("failed to import message", slogx.MessageID(msg.ID), slogx.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to serve %s: %w", agentID, err)
	}
	b.served[agentID] = sub
	b.logger.Info("serving agent", slogx.AgentID(agentID), slog.String("subject", subject))
	return nil
}

// Served returns the ids of the agents served by this bridge, sorted.
func (b *Bridge) Served() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.served))
	for id := range b.served {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Close stops serving and unregisters the proxies.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.served {
		sub.Unsubscribe()
		delete(b.served, id)
	}
	for _, id := range b.proxies {
		b.protocol.UnregisterAgent(id)
	}
	b.proxies = nil
}
