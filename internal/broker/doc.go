// Package broker moves roost messages between processes by subject.
//
// It is the transport under the network bridge: a Topic is a subject, a
// Subscription forwards every message published on that subject to a
// Handler on its own goroutine.
//
// Two implementations exist:
//   - Local: in-memory, used in tests and single process setups
//   - NATS: messages encoded as JSON on NATS subjects
//
// Example usage:
//
//	b := broker.NATS(nc)
//	topic := b.Topic(ctx, "roost.creative")
//	sub, err := topic.Subscribe(ctx, func(ctx context.Context, msg messages.Message) {
//	    // hand msg to the local protocol
//	})
//	if err != nil {
//	    return err
//	}
//	defer sub.Unsubscribe()
package broker
