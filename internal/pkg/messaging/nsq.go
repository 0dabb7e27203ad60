package messaging

import (
	"context"
	"errors"
	"fmt"

	nsq "github.com/nsqio/go-nsq"
	"go.uber.org/atomic"
)

// ErrNSQProducerAddrRequired is returned when the nsqd address is missing.
var ErrNSQProducerAddrRequired = errors.New("messaging: nsq producer address is required")

// NSQConfig configures the NSQ publisher.
type NSQConfig struct {
	// ProducerAddr is the nsqd TCP address.
	ProducerAddr string
	// ProducerConfig overrides the default producer config.
	ProducerConfig *nsq.Config
}

// NSQ publishes to NSQ topics. NSQ has no headers, so Message.Headers is
// dropped and callers put everything they need in the body.
type NSQ struct {
	producer *nsq.Producer
	closed   *atomic.Bool
}

// NewNSQ constructs an NSQ producer. The connection is opened lazily by the
// first publish.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	if cfg.ProducerAddr == "" {
		return nil, ErrNSQProducerAddrRequired
	}

	pcfg := cfg.ProducerConfig
	if pcfg == nil {
		pcfg = nsq.NewConfig()
	}

	p, err := nsq.NewProducer(cfg.ProducerAddr, pcfg)
	if err != nil {
		return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
	}
	p.SetLoggerLevel(nsq.LogLevelError)

	return &NSQ{producer: p, closed: atomic.NewBool(false)}, nil
}

// Publish sends msg.Body to the topic.
func (n *NSQ) Publish(ctx context.Context, destination string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	if n.closed.Load() {
		return ErrClosed
	}

	if err := n.producer.Publish(destination, msg.Body); err != nil {
		return fmt.Errorf("messaging: nsq publish: %w", err)
	}

	return nil
}

// Close stops the producer.
func (n *NSQ) Close() error {
	if n.closed.Swap(true) {
		return nil
	}
	n.producer.Stop()
	return nil
}
