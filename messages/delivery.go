package messages

import (
	"time"

	"github.com/go-openapi/strfmt"
)

// DeliveryConfirmation records the outcome of dispatching one message.
// It starts pending and moves to exactly one terminal status.
type DeliveryConfirmation struct {
	MessageID   string          `json:"message_id"`
	RecipientID string          `json:"recipient_id"`
	Status      DeliveryStatus  `json:"status"`
	Timestamp   strfmt.DateTime `json:"timestamp"`
	Error       string          `json:"error,omitempty"`
}

// Pending creates the confirmation recorded when msg is sent.
func Pending(msg Message) DeliveryConfirmation {
	return DeliveryConfirmation{
		MessageID:   msg.ID,
		RecipientID: msg.Recipient,
		Status:      StatusPending,
		Timestamp:   strfmt.DateTime(time.Now()),
	}
}

// Resolve returns a copy of the confirmation moved to status.
func (d DeliveryConfirmation) Resolve(status DeliveryStatus, errText string) DeliveryConfirmation {
	d.Status = status
	d.Error = errText
	d.Timestamp = strfmt.DateTime(time.Now())
	return d
}
