package broker

import (
	"context"

	"github.com/casualjim/roost/messages"
)

type Broker interface {
	Topic(context.Context, string) Topic
}

type Topic interface {
	Publish(context.Context, messages.Message) error
	Subscribe(context.Context, Handler) (Subscription, error)
}

// Handler receives the messages of a subscription, one at a time.
type Handler func(context.Context, messages.Message)

type Subscription interface {
	ID() string
	Unsubscribe()
}
