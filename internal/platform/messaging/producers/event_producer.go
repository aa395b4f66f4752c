package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/membership-ledger/internal/config"
	"github.com/segmentio/kafka-go"
)

// EventProducer writes JSON messages to a single topic and waits for all replicas to ack.
// Callers rely on a nil error meaning the message is durable.
type EventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

var _ MessagePublisher = (*EventProducer)(nil)

// NewEventProducer ensures topic exists and returns a synchronous producer for it
func NewEventProducer(logger *slog.Logger, cfg *config.KafkaConfig, topic string) (*EventProducer, error) {
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is not configured")
	}
	logger = logger.With("topic", topic)

	if err := EnsureTopic(cfg, topic, logger); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &EventProducer{
		logger: logger,
		writer: writer,
		topic:  topic,
	}, nil
}

// Publish marshals value unless it already is raw JSON. Messages with the same key land on the same partition.
func (p *EventProducer) Publish(ctx context.Context, key string, value any) error {
	var payload []byte
	switch v := value.(type) {
	case json.RawMessage:
		payload = v
	default:
		var err error
		if payload, err = json.Marshal(value); err != nil {
			return fmt.Errorf("failed to marshal message value for topic %s: %w", p.topic, err)
		}
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish message", "key", key, "error", err)
		return fmt.Errorf("failed to publish message to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published message", "key", key)
	return nil
}

func (p *EventProducer) Close() error {
	p.logger.Info("Closing Kafka event producer")
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
