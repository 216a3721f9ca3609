// Package messages defines the envelope agents exchange through the protocol
// and the record of what happened to each envelope after it was sent.
//
// Design decisions:
//   - Value semantics: a Message is a plain struct passed by value; once
//     enqueued it is never mutated, its fate is tracked separately in a
//     DeliveryConfirmation
//   - Schema-less content: payloads are map[string]any at this layer, typed
//     payload structs belong to the agents producing them
//   - Explicit priority: High, Medium and Low map to ranks 0, 1 and 2
//   - Hand-written JSON: envelopes serialize with a stable field layout so
//     they can cross a bridge (NATS) and come back intact
//
// Example usage:
//
//	msg := messages.New().
//	    From("strategist").
//	    To("creative").
//	    WithPriority(messages.PriorityHigh).
//	    Request(map[string]any{"brief": "spring launch"})
//
//	reply := messages.Reply(msg, map[string]any{"status": "accepted"})
package messages
