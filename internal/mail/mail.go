package mail

import "context"

// Attachment is a binary file embedded into a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a rendered email ready for dispatch.
type Message struct {
	From        string
	ReplyTo     string
	To          string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Dispatcher sends a message through an external transport. A nil error means the transport
// accepted the message.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}
