package broker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alphadose/haxmap"
	"github.com/casualjim/roost/messages"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/casualjim/roost/pkg/uuidx"
	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
)

type natsBroker struct {
	client *nats.Conn
	topics *haxmap.Map[string, *natsTopic]
}

// NATS creates a broker publishing JSON encoded messages on the subjects of client.
func NATS(client *nats.Conn) Broker {
	return &natsBroker{
		client: client,
		topics: haxmap.New[string, *natsTopic](),
	}
}

func (b *natsBroker) Topic(ctx context.Context, id string) Topic {
	top, _ := b.topics.GetOrCompute(id, func() *natsTopic {
		return &natsTopic{
			subject: id,
			client:  b.client,
		}
	})
	return top
}

type natsTopic struct {
	client  *nats.Conn
	subject string
}

func (t *natsTopic) Publish(ctx context.Context, msg messages.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message %s: %w", msg.ID, err)
	}
	return t.client.Publish(t.subject, data)
}

func (t *natsTopic) Subscribe(ctx context.Context, handler Handler) (Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	sub := make(chan messages.Message, 50)
	nsub, err := t.client.Subscribe(t.subject, func(nmsg *nats.Msg) {
		var msg messages.Message
		if err := json.Unmarshal(nmsg.Data, &msg); err != nil {
			slog.Error("failed to decode message", slog.String("subject", nmsg.Subject), slogx.Error(err))
			return
		}

		select {
		case sub <- msg:
		case <-ctx.Done():
			return
		}

		if nmsg.Reply != "" {
			if nerr := nmsg.Ack(); nerr != nil {
				slog.Error("failed to ack message", slogx.Error(nerr))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	done := make(chan struct{})
	nsub.SetClosedHandler(func(_ string) { close(done) })

	go forward(ctx, sub, done, handler)
	return &natsSubscription{
		id:  uuidx.NewString(),
		sub: nsub,
	}, nil
}

func forward(ctx context.Context, sub <-chan messages.Message, done <-chan struct{}, handler Handler) {
	for {
		select {
		case msg := <-sub:
			handler(ctx, msg)
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

type natsSubscription struct {
	id  string
	sub *nats.Subscription
}

func (n *natsSubscription) ID() string {
	return n.id
}

func (n *natsSubscription) Unsubscribe() {
	if err := n.sub.Unsubscribe(); err != nil {
		slog.Error("failed to unsubscribe", slogx.Error(err), slog.String("subscription", n.id))
	}
}
