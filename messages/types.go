package messages

import "fmt"

// Type classifies a message.
type Type string

const (
	TypeRequest      Type = "request"
	TypeResponse     Type = "response"
	TypeNotification Type = "notification"
	TypeError        Type = "error"
)

// Valid reports whether t is one of the known message types.
func (t Type) Valid() bool {
	switch t {
	case TypeRequest, TypeResponse, TypeNotification, TypeError:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	return string(t)
}

// ParseType converts a string into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown message type %q", s)
	}
	return t, nil
}

// Priority orders messages in the delivery queue.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank returns the queue rank of the priority: lower ranks are delivered first.
// Unknown priorities rank with medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

func (p Priority) String() string {
	return string(p)
}

// ParsePriority converts a string into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown message priority %q", s)
	}
	return p, nil
}

// DeliveryStatus is the state of a DeliveryConfirmation.
type DeliveryStatus string

const (
	StatusPending   DeliveryStatus = "pending"
	StatusDelivered DeliveryStatus = "delivered"
	StatusFailed    DeliveryStatus = "failed"
	StatusExpired   DeliveryStatus = "expired"
)

// Terminal reports whether the status is a final outcome.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed || s == StatusExpired
}

func (s DeliveryStatus) String() string {
	return string(s)
}
