package messaging

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrDestinationRequired is returned when Publish gets an empty destination.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrClosed is returned when publishing through a closed publisher.
	ErrClosed = errors.New("messaging: publisher is closed")
)

// Publisher sends messages to a destination (topic or subject).
type Publisher interface {
	io.Closer

	// Publish sends msg to destination and returns once the broker accepted it.
	Publish(ctx context.Context, destination string, msg Message) error
}

// Message is a broker-agnostic outgoing message.
type Message struct {
	// Key is used for partitioning (Kafka) and ordering (Pub/Sub).
	Key string
	// Body is the message payload.
	Body []byte
	// Headers are carried as headers or attributes where the broker has them.
	Headers map[string]string
}

// Noop drops every message.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(ctx context.Context, destination string, _ Message) error {
	if destination == "" {
		return ErrDestinationRequired
	}
	return ctx.Err()
}

// Close implements Publisher.
func (Noop) Close() error { return nil }
