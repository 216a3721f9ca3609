// Package pubsub keeps the topic table of the protocol: which topics exist,
// who subscribed to them and which published payloads each subscription wants.
//
// The registry does not deliver anything itself. The protocol asks it for the
// subscriptions matching a payload and fans the payload out as one unicast
// message per subscriber.
//
// Key concepts:
//   - Topic: a named channel with a description, kept even when nobody listens
//   - Subscription: subscriber id plus an optional equality Filter
//   - Filter: every key/value pair must equal the payload's entry; an empty
//     filter matches every payload. Dotted keys ("campaign.id") reach into
//     nested objects when the payload has no literal key of that name.
package pubsub
