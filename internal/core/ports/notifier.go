package ports

import "context"

// Message is an outbound notification.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Notifier delivers a message to an address.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}
