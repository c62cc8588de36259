// Package bus hides the publish/subscribe transport behind subjects. A
// subject is a dotted name such as "payment.paid"; every subscriber of a
// subject receives every message published to it.
package bus

import "context"

type Message struct {
	Subject string
	Body    []byte
}

type Handler func(ctx context.Context, msg Message) error

type Publisher interface {
	// Publish returns once the transport has accepted the message.
	Publish(ctx context.Context, subject string, body []byte) error
}

type Subscriber interface {
	// Subscribe starts delivering messages for subject to h until ctx is
	// cancelled. It returns once the subscription is established.
	Subscribe(ctx context.Context, subject string, h Handler) error
}

type Bus interface {
	Publisher
	Subscriber
	Ping(ctx context.Context) error
	Close() error
}
