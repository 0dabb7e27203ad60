package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"
)

// ErrNATSURLRequired is returned when the NATS server URL is missing.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// natsFlushTimeout bounds the flush when ctx carries no deadline.
const natsFlushTimeout = 5 * time.Second

// NATSConfig configures the NATS publisher.
type NATSConfig struct {
	// URL is the NATS server address.
	URL string
	// Options are passed to the NATS client.
	Options []nats.Option
}

// NATS publishes to NATS subjects.
type NATS struct {
	conn   *nats.Conn
	closed *atomic.Bool
}

// NewNATS connects to the NATS server.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	return &NATS{conn: conn, closed: atomic.NewBool(false)}, nil
}

// Publish sends msg to the subject and waits for the server to see it.
func (n *NATS) Publish(ctx context.Context, destination string, msg Message) error {
	if destination == "" {
		return ErrDestinationRequired
	}
	if n.closed.Load() {
		return ErrClosed
	}

	nmsg := nats.NewMsg(destination)
	nmsg.Data = msg.Body
	for k, v := range msg.Headers {
		nmsg.Header.Set(k, v)
	}

	if err := n.conn.PublishMsg(nmsg); err != nil {
		return fmt.Errorf("messaging: nats publish: %w", err)
	}
	var err error
	if _, ok := ctx.Deadline(); ok {
		err = n.conn.FlushWithContext(ctx)
	} else {
		err = n.conn.FlushTimeout(natsFlushTimeout)
	}
	if err != nil {
		return fmt.Errorf("messaging: nats flush: %w", err)
	}

	return nil
}

// Close drains pending messages and closes the connection.
func (n *NATS) Close() error {
	if n.closed.Swap(true) {
		return nil
	}
	return n.conn.Drain()
}
