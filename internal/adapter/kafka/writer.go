package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/city-stats-service/internal/config"
	"github.com/couchcryptid/city-stats-service/internal/domain"
)

// Notifier publishes refresh events to a Kafka topic.
// It implements pipeline.Notifier.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured refresh topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return &Notifier{writer: w, logger: logger}
}

// Notify publishes a single event keyed by job name, so events of one job stay ordered.
func (n *Notifier) Notify(ctx context.Context, event domain.RefreshEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish refresh event: %w", err)
	}
	n.logger.Debug("refresh event published", "topic", n.writer.Topic, "run_id", event.RunID)
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a RefreshEvent into a Kafka message.
func serializeToMessage(event domain.RefreshEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize refresh event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Job),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(event.RunID)},
			{Key: "finished_at", Value: []byte(event.FinishedAt.Format(time.RFC3339))},
		},
	}, nil
}
