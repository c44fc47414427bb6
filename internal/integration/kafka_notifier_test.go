//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/bnubald/icenet/internal/adapter/kafka"
	"github.com/bnubald/icenet/internal/config"
	"github.com/bnubald/icenet/internal/loader"
)

const testTopic = "icenet-dataset-events-test"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka brings up a single-node Kafka and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("icenet-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestNotifierPublishesBatchEvents verifies the Kafka notifier round-trips
// batch events through a real broker with key and headers intact.
func TestNotifierPublishesBatchEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testTopic,
	}

	notifier := kafkaadapter.NewNotifier(cfg, discardLogger())
	t.Cleanup(func() { _ = notifier.Close() })

	events := []loader.BatchEvent{
		{
			Dataset:     "test_ds",
			Hemisphere:  "north",
			Split:       "train",
			File:        "network_datasets/test_ds/north/train/00000000.nc",
			Samples:     8,
			Dates:       []string{"2020_01_01"},
			ProcessedAt: time.Now().UTC(),
		},
		{
			Dataset:     "test_ds",
			Hemisphere:  "north",
			Split:       "val",
			File:        "network_datasets/test_ds/north/val/00000000.nc",
			Samples:     4,
			Dates:       []string{"2020_02_01"},
			ProcessedAt: time.Now().UTC(),
		},
	}
	for _, e := range events {
		require.NoError(t, notifier.NotifyBatch(ctx, e))
	}

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i := range events {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read event %d", i)

		assert.Equal(t, []byte(events[i].Dataset+"/"+events[i].Split), msg.Key)

		var got loader.BatchEvent
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		assert.Equal(t, events[i].Split, got.Split)
		assert.Equal(t, events[i].File, got.File)
		assert.Equal(t, events[i].Samples, got.Samples)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "north", headers["hemisphere"])
		_, err = time.Parse(time.RFC3339, headers["processed_at"])
		assert.NoError(t, err, "processed_at should be valid RFC3339")
	}
}
