package model

import "time"

// DeliveryMode is the way a document reached a recipient.
type DeliveryMode string

const (
	DeliveryModeLink       DeliveryMode = "link"
	DeliveryModeAttachment DeliveryMode = "attachment"
)

// Profile links a sender, an uploaded document and the history of its deliveries.
// This is a pure domain model with no database-specific dependencies or tags.
type Profile struct {
	ID          string           `json:"id"`
	SenderEmail string           `json:"sender_email"`
	Message     string           `json:"message"`
	Document    DocumentRef      `json:"document"`
	CreatedAt   time.Time        `json:"created_at"`
	SentHistory []DeliveryRecord `json:"sent_history"`
}

// DeliveryRecord captures one successful send. Records are append-only.
type DeliveryRecord struct {
	ID             string       `json:"id"`
	RecipientEmail string       `json:"recipient_email"`
	Mode           DeliveryMode `json:"mode"`
	SentAt         time.Time    `json:"sent_at"`
}
