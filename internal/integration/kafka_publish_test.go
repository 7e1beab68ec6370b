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
	kafkacontainer "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/Angellovem/biocredits-calc/internal/adapter/kafka"
	"github.com/Angellovem/biocredits-calc/internal/config"
	"github.com/Angellovem/biocredits-calc/internal/domain"
)

const (
	testScoresTopic = "test-biocredit-scores"
	testUnionsTopic = "test-biocredit-daily-unions"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := kafkacontainer.Run(ctx, "confluentinc/confluent-local:7.5.0",
		kafkacontainer.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
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

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func newConsumer(t *testing.T, broker, topic string) *kafkago.Reader {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

func readMessage(ctx context.Context, t *testing.T, consumer *kafkago.Reader) (kafkago.Message, map[string]string) {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read published message")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return msg, headers
}

// TestPublisherRoundTrip verifies that published scores and daily unions
// arrive on their topics with keys, headers, and payload fields intact.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testScoresTopic)
	createTopic(t, broker, testUnionsTopic)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaScoresTopic: testScoresTopic,
		KafkaUnionsTopic: testUnionsTopic,
	}

	publisher := kafkaadapter.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	computed := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	scores := []domain.CreditScore{
		{
			PlotID:         "PLT-RN-001",
			ProjectID:      "PRJ-RIONEGRO",
			CertifierID:    "cert-andes",
			CreditedArea:   2431.5,
			WeightedCredit: 3039.375,
			Days:           2,
			From:           domain.Date{Year: 2024, Month: 3, Day: 15},
			To:             domain.Date{Year: 2024, Month: 3, Day: 16},
			RunID:          "run-integration",
			ComputedAt:     computed,
		},
		{
			PlotID:       "PLT-RN-002",
			ProjectID:    "PRJ-RIONEGRO",
			CreditedArea: 812.25,
			Days:         1,
			RunID:        "run-integration",
			ComputedAt:   computed,
		},
	}
	unions := []domain.DailyUnion{
		{
			PlotID:       "PLT-RN-001",
			Day:          domain.Date{Year: 2024, Month: 3, Day: 15},
			Area:         1234.5,
			Observations: 2,
		},
	}

	require.NoError(t, publisher.PublishScores(ctx, scores))
	require.NoError(t, publisher.PublishUnions(ctx, "run-integration", unions))

	// Scores topic.
	scoreConsumer := newConsumer(t, broker, testScoresTopic)

	received := make(map[string]map[string]any, len(scores))
	for range scores {
		msg, headers := readMessage(ctx, t, scoreConsumer)

		assert.Equal(t, "run-integration", headers["run_id"])
		_, err := time.Parse(time.RFC3339, headers["computed_at"])
		assert.NoError(t, err, "computed_at header should be valid RFC3339")

		var payload map[string]any
		require.NoError(t, json.Unmarshal(msg.Value, &payload))
		received[string(msg.Key)] = payload
	}

	require.Contains(t, received, "PLT-RN-001")
	first := received["PLT-RN-001"]
	assert.Equal(t, 2431.5, first["credited_area_m2"])
	assert.Equal(t, 3039.375, first["weighted_credit"])
	assert.Equal(t, "2024-03-15", first["from_day"])
	assert.Equal(t, "2024-03-16", first["to_day"])
	assert.Equal(t, "cert-andes", first["certifier_id"])

	require.Contains(t, received, "PLT-RN-002")
	assert.Equal(t, 812.25, received["PLT-RN-002"]["credited_area_m2"])

	// Unions topic.
	unionConsumer := newConsumer(t, broker, testUnionsTopic)

	msg, headers := readMessage(ctx, t, unionConsumer)
	assert.Equal(t, "PLT-RN-001/2024-03-15", string(msg.Key))
	assert.Equal(t, "run-integration", headers["run_id"])

	var union map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &union))
	assert.Equal(t, "2024-03-15", union["day"])
	assert.Equal(t, 1234.5, union["area_m2"])
	assert.Equal(t, float64(2), union["observations"])
}
