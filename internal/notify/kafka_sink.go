package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Priya8975/email-event-ingestion/internal/domain"
	"github.com/segmentio/kafka-go"
)

const DefaultKafkaTopic = "email.status-changes"

// KafkaSink publishes status changes keyed by message id, so every change
// for one message lands on the same partition in order.
type KafkaSink struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewKafkaSink(brokers []string, topic string, logger *slog.Logger) *KafkaSink {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...), "sink", "kafka")
		}),
	}
	return &KafkaSink{writer: writer, logger: logger}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Send(ctx context.Context, change domain.StatusChange) error {
	msg, err := kafkaMessage(change)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.writer.WriteTimeout)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing to kafka topic %s: %w", s.writer.Topic, err)
	}
	s.logger.Debug("status change written to kafka",
		"topic", s.writer.Topic,
		"message_id", change.MessageID,
	)
	return nil
}

func (s *KafkaSink) Close() error {
	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("closing kafka writer: %w", err)
	}
	return nil
}

func kafkaMessage(change domain.StatusChange) (kafka.Message, error) {
	value, err := json.Marshal(change)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshalling status change: %w", err)
	}
	return kafka.Message{
		Key:   []byte(change.MessageID),
		Value: value,
		Time:  change.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_kind", Value: []byte(change.EventKind)},
			{Key: "status", Value: []byte(change.To)},
		},
	}, nil
}
