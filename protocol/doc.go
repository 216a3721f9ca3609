// Package protocol is the in-process message broker agents talk through.
//
// A Protocol owns the agent registry, a priority queue of pending messages,
// the pub/sub topic table, the conversation index, the global message
// history and the delivery confirmations with their one-shot callbacks.
//
// Sending never blocks on the recipient: Send validates, records a pending
// confirmation, enqueues and returns the message id. Delivery happens when the
// queue is drained, either explicitly with ProcessMessageQueue (deterministic,
// what tests use) or by the background pump started with Start.
//
// Ordering:
//   - Queue order: high before medium before low, equal priorities in send order
//   - History order: send order, regardless of priority
//
// Failures inside recipients never escape the drain loop. They end up as a
// failed DeliveryConfirmation and are reported to the callback registered with
// SendWithCallback, if any.
//
// Example usage:
//
//	p := protocol.New(protocol.WithDeliveryTimeout(5 * time.Second))
//	if err := p.RegisterAgent(creative); err != nil {
//	    return err
//	}
//	id, err := p.Send(messages.New().From("strategist").To(creative.ID()).Request(brief))
//	if err != nil {
//	    return err
//	}
//	p.ProcessMessageQueue(ctx)
//	conf, _ := p.DeliveryStatus(id)
package protocol
