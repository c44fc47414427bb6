// Package kafka publishes dataset generation events to a Kafka topic so
// downstream training jobs can react to freshly written batches.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/bnubald/icenet/internal/config"
	"github.com/bnubald/icenet/internal/loader"
)

// Notifier produces batch events to a Kafka topic.
// It implements loader.Notifier.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// NotifyBatch serializes and publishes one batch event.
func (n *Notifier) NotifyBatch(ctx context.Context, event loader.BatchEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, msg)
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a BatchEvent into a Kafka message keyed by
// dataset and split so per-split ordering is preserved.
func serializeToMessage(event loader.BatchEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize batch event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Dataset + "/" + event.Split),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "hemisphere", Value: []byte(event.Hemisphere)},
			{Key: "processed_at", Value: []byte(event.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
