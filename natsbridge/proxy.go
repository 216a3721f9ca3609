package natsbridge

import (
	"context"
	"fmt"
	"slices"

	"github.com/casualjim/roost/internal/broker"
	"github.com/casualjim/roost/messages"
)

// proxy stands in for a remote agent. Publishing failures fail the delivery.
type proxy struct {
	id           string
	capabilities []string
	topic        broker.Topic
}

func (p *proxy) ID() string { return p.id }

func (p *proxy) Capabilities() []string { return slices.Clone(p.capabilities) }

func (p *proxy) Receive(ctx context.Context, msg messages.Message) (bool, error) {
	if err := p.topic.Publish(ctx, msg); err != nil {
		return false, fmt.Errorf("failed to forward to %s: %w", p.id, err)
	}
	return true, nil
}
