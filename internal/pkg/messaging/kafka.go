package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/atomic"
)

// ErrKafkaBrokersRequired is returned when no Kafka brokers are configured.
var ErrKafkaBrokersRequired = errors.New("messaging: kafka brokers are required")

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	// Brokers lists Kafka broker addresses.
	Brokers []string
	// BatchTimeout bounds how long a message waits for a batch. Zero keeps
	// the kafka-go default.
	BatchTimeout time.Duration
	// AllowAutoTopicCreation lets the broker create missing topics.
	AllowAutoTopicCreation bool
}

// Kafka publishes to Kafka topics through one shared writer.
type Kafka struct {
	writer *kafka.Writer
	closed *atomic.Bool
}

// NewKafka constructs a Kafka publisher. Brokers are dialed on first publish.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrKafkaBrokersRequired
	}

	return &Kafka{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           cfg.BatchTimeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: cfg.AllowAutoTopicCreation,
		},
		closed: atomic.NewBool(false),
	}, nil
}

// Publish writes msg to the topic, keyed by msg.Key.
func (k *Kafka) Publish(ctx context.Context, destination string, msg Message) error {
	if destination == "" {
		return ErrDestinationRequired
	}
	if k.closed.Load() {
		return ErrClosed
	}

	kmsg := kafka.Message{
		Topic: destination,
		Key:   []byte(msg.Key),
		Value: msg.Body,
		Time:  time.Now(),
	}
	for key, value := range msg.Headers {
		kmsg.Headers = append(kmsg.Headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	if err := k.writer.WriteMessages(ctx, kmsg); err != nil {
		return fmt.Errorf("messaging: kafka publish: %w", err)
	}

	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	if k.closed.Swap(true) {
		return nil
	}
	return k.writer.Close()
}
