package protocol

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type pump struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start runs ProcessMessageQueue every interval on a background goroutine.
// Calling Start on a running protocol is a no-op.
func (p *Protocol) Start(interval time.Duration) error {
	if interval <= 0 {
		return errors.New("pump interval must be positive")
	}

	p.pumpMu.Lock()
	defer p.pumpMu.Unlock()
	if p.pump != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	pm := &pump{cancel: cancel, done: make(chan struct{})}
	p.pump = pm
	go p.runPump(ctx, interval, pm.done)
	p.logger.Info("message pump started", slog.Duration("interval", interval))
	return nil
}

func (p *Protocol) runPump(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessMessageQueue(ctx)
		}
	}
}

// Stop cancels the pump and waits for it to exit. When the pump is stuck in a
// recipient for longer than the stop timeout it is detached and ErrStopTimeout
// is returned; the protocol can be started again either way.
func (p *Protocol) Stop() error {
	p.pumpMu.Lock()
	pm := p.pump
	p.pump = nil
	p.pumpMu.Unlock()

	if pm == nil {
		return nil
	}
	pm.cancel()

	timer := time.NewTimer(p.stopTimeout)
	defer timer.Stop()
	select {
	case <-pm.done:
		p.logger.Info("message pump stopped")
		return nil
	case <-timer.C:
		p.logger.Warn("message pump did not stop in time, detaching", slog.Duration("timeout", p.stopTimeout))
		return ErrStopTimeout
	}
}

// Running reports whether the pump is started.
func (p *Protocol) Running() bool {
	p.pumpMu.Lock()
	defer p.pumpMu.Unlock()
	return p.pump != nil
}
