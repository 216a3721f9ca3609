package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/roost/messages"
	"github.com/casualjim/roost/pkg/uuidx"
	"github.com/fogfish/opts"
)

const defaultSlowSubscriberTimeout = 100 * time.Millisecond

type localBroker struct {
	topics                *haxmap.Map[string, *topic]
	slowSubscriberTimeout time.Duration
}

// LocalOption configures the in-memory broker.
type LocalOption = opts.Option[localBroker]

// WithSlowSubscriberTimeout sets how long a publish waits on a full subscriber before dropping it.
var WithSlowSubscriberTimeout = opts.ForName[localBroker, time.Duration]("slowSubscriberTimeout")

// Local creates an in-memory broker.
func Local(options ...LocalOption) Broker {
	b := &localBroker{
		topics:                haxmap.New[string, *topic](),
		slowSubscriberTimeout: defaultSlowSubscriberTimeout,
	}
	if err := opts.Apply(b, options); err != nil {
		panic(err)
	}
	return b
}

func (b *localBroker) Topic(ctx context.Context, id string) Topic {
	t, _ := b.topics.GetOrCompute(id, func() *topic {
		return &topic{
			ID:                    id,
			subscriptions:         haxmap.New[string, *subscription](),
			slowSubscriberTimeout: b.slowSubscriberTimeout,
		}
	})
	return t
}

type topic struct {
	ID                    string
	subscriptions         *haxmap.Map[string, *subscription]
	slowSubscriberTimeout time.Duration
}

func (t *topic) Publish(ctx context.Context, msg messages.Message) error {
	t.subscriptions.ForEach(func(id string, sub *subscription) bool {
		if sub == nil {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-sub.done:
			return true
		case <-sub.ctx.Done():
			sub.Unsubscribe()
			return true
		default:
		}

		timer := time.NewTimer(t.slowSubscriberTimeout)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-sub.done:
		case <-sub.ctx.Done():
			sub.Unsubscribe()
		case sub.channel <- msg:
		case <-timer.C:
			// full for too long
			sub.Unsubscribe()
		}
		return true
	})
	return ctx.Err()
}

func (t *topic) Subscribe(ctx context.Context, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	return t.newSubscription(ctx, handler), nil
}

func (t *topic) newSubscription(ctx context.Context, handler Handler) *subscription {
	id := uuidx.NewString()
	sub := &subscription{
		id:      id,
		ctx:     ctx,
		channel: make(chan messages.Message, 50),
		done:    make(chan struct{}),
		onClose: func() { t.subscriptions.Del(id) },
		handler: handler,
	}
	t.subscriptions.Set(id, sub)
	go sub.forward()
	return sub
}

type subscription struct {
	id        string
	ctx       context.Context
	channel   chan messages.Message
	done      chan struct{}
	closeOnce sync.Once
	onClose   func()
	handler   Handler
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) Unsubscribe() {
	s.closeOnce.Do(func() {
		if s.onClose != nil {
			s.onClose()
		}
		close(s.done)
	})
}

func (s *subscription) forward() {
	for {
		select {
		case msg := <-s.channel:
			s.handler(s.ctx, msg)
		case <-s.done:
			return
		case <-s.ctx.Done():
			return
		}
	}
}
