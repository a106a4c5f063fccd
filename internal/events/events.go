package events

import (
	"context"
	"time"
)

// Event types published after a delivery attempt has left the system.
const (
	TypeDeliverySent       = "delivery.sent"
	TypeDeliveryUnrecorded = "delivery.unrecorded"
)

// Event describes a delivery outcome for downstream consumers. delivery.unrecorded events
// are the reconciliation feed for mails that left the system without a history record.
type Event struct {
	Type           string    `json:"type"`
	ProfileID      string    `json:"profile_id"`
	DeliveryID     string    `json:"delivery_id"`
	RecipientEmail string    `json:"recipient_email"`
	Mode           string    `json:"mode"`
	SentAt         time.Time `json:"sent_at"`
	Error          string    `json:"error,omitempty"`
}

// Publisher emits delivery events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
