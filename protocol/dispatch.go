package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/casualjim/roost/api"
	"github.com/casualjim/roost/messages"
	"github.com/casualjim/roost/pkg/jsonx"
	"github.com/casualjim/roost/pkg/slogx"
)

// ProcessMessageQueue drains the queue and returns how many messages were delivered.
// Messages sent by recipients while draining are processed in the same call.
// When ctx is cancelled the drain stops and the remaining messages stay queued.
func (p *Protocol) ProcessMessageQueue(ctx context.Context) int {
	delivered := 0
	for ctx.Err() == nil {
		msg, ok := p.queue.Pop()
		if !ok {
			break
		}
		if p.dispatch(ctx, msg) {
			delivered++
		}
	}
	p.metrics.QueueDepth.Set(float64(p.queue.Len()))
	return delivered
}

func (p *Protocol) dispatch(ctx context.Context, msg messages.Message) bool {
	if msg.Expired(p.now()) {
		p.logger.Debug("message expired", slogx.MessageID(msg.ID), slogx.AgentID(msg.Recipient))
		p.resolve(msg, messages.StatusExpired, "message expired")
		return false
	}

	recipient, ok := p.agents.Get(msg.Recipient)
	if !ok {
		p.logger.Warn("recipient not found", slogx.MessageID(msg.ID), slogx.AgentID(msg.Recipient))
		p.resolve(msg, messages.StatusFailed, "recipient not found")
		return false
	}

	// the recipient gets its own copy, the queued message stays as sent
	out := msg
	out.Content = jsonx.CloneMap(msg.Content)

	start := time.Now()
	err := p.deliver(ctx, recipient, out)
	p.metrics.DeliveryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.logger.Error(
			"delivery failed",
			slogx.MessageID(msg.ID),
			slogx.AgentID(msg.Recipient),
			slogx.Error(err),
		)
		p.resolve(msg, messages.StatusFailed, err.Error())
		return false
	}

	p.resolve(msg, messages.StatusDelivered, "")
	p.processed.Add(1)
	return true
}

func (p *Protocol) deliver(ctx context.Context, recipient api.Agent, msg messages.Message) error {
	if p.deliveryTimeout <= 0 {
		return receive(ctx, recipient, msg)
	}

	dctx, cancel := context.WithTimeout(ctx, p.deliveryTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- receive(dctx, recipient, msg) }()

	select {
	case err := <-done:
		return err
	case <-dctx.Done():
		if errors.Is(dctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("delivery timed out after %s", p.deliveryTimeout)
		}
		return fmt.Errorf("delivery aborted: %w", dctx.Err())
	}
}

// receive calls the recipient. A handled=false answer still counts as delivered.
func receive(ctx context.Context, recipient api.Agent, msg messages.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recipient panicked: %v", r)
		}
	}()
	_, err = recipient.Receive(ctx, msg)
	return err
}

// resolve moves the confirmation of msg to a terminal status and fires its callback.
// Only the first transition wins.
func (p *Protocol) resolve(msg messages.Message, status messages.DeliveryStatus, errText string) {
	p.mu.Lock()
	conf, ok := p.confirmations[msg.ID]
	if !ok || conf.Status.Terminal() {
		p.mu.Unlock()
		return
	}
	conf = conf.Resolve(status, errText)
	p.confirmations[msg.ID] = conf
	cb := p.callbacks[msg.ID]
	delete(p.callbacks, msg.ID)
	p.mu.Unlock()

	p.metrics.MessagesProcessed.WithLabelValues(string(status)).Inc()
	if cb != nil {
		p.notify(cb, conf)
	}
}

func (p *Protocol) notify(cb DeliveryCallback, conf messages.DeliveryConfirmation) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error(
				"delivery callback panicked",
				slogx.MessageID(conf.MessageID),
				slog.Any("panic", r),
			)
		}
	}()
	cb(conf)
}
