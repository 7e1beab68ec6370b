//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkaadapter "github.com/Angellovem/biocredits-calc/internal/adapter/kafka"
	"github.com/Angellovem/biocredits-calc/internal/config"
	"github.com/Angellovem/biocredits-calc/internal/domain"
	"github.com/Angellovem/biocredits-calc/internal/fixture"
	"github.com/Angellovem/biocredits-calc/internal/observability"
	"github.com/Angellovem/biocredits-calc/internal/pipeline"
)

type nullSink struct{}

func (nullSink) StoreDailyUnions(context.Context, []domain.DailyUnion) error { return nil }
func (nullSink) StoreScores(context.Context, []domain.CreditScore) error     { return nil }
func (nullSink) ClearResults(context.Context) error                          { return nil }
func (nullSink) LogEntry(context.Context, string, string) error              { return nil }

// TestPipelineToKafkaFlow runs the scoring pipeline over the bundled fixture
// data and verifies every computed score and daily union comes back out of
// the Kafka topics the publisher writes to.
func TestPipelineToKafkaFlow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testScoresTopic)
	createTopic(t, broker, testUnionsTopic)

	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)))
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })

	cfg := &config.Config{
		Workers:             2,
		LookbackYears:       10,
		CircleSegments:      32,
		NegligibleAreaM2:    1e-6,
		ProjectionOriginLon: -77.0,
		ProjectionOriginLat: 0.7,
		KafkaBrokers:        []string{broker},
		KafkaScoresTopic:    testScoresTopic,
		KafkaUnionsTopic:    testUnionsTopic,
	}

	src, err := fixture.NewSource("../../data/mock")
	require.NoError(t, err, "load fixture data")

	logger := discardLogger()
	p := pipeline.New(cfg, src, src, nullSink{}, nullSink{}, logger, observability.NewMetricsForTesting())

	res, err := p.Run(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, res.Scores)
	require.NotEmpty(t, res.Unions)

	publisher := kafkaadapter.NewPublisher(cfg, logger)
	t.Cleanup(func() { _ = publisher.Close() })

	scores := make([]domain.CreditScore, 0, len(res.Scores))
	for _, s := range res.Scores {
		scores = append(scores, s)
	}
	unions := make([]domain.DailyUnion, 0, len(res.Unions))
	for _, u := range res.Unions {
		unions = append(unions, u)
	}

	require.NoError(t, publisher.PublishScores(ctx, scores))
	require.NoError(t, publisher.PublishUnions(ctx, res.RunID, unions))

	// Every score should arrive keyed by plot and carry the run it came from.
	scoreConsumer := newConsumer(t, broker, testScoresTopic)
	seenScores := make(map[string]float64, len(scores))
	for range scores {
		msg, headers := readMessage(ctx, t, scoreConsumer)
		assert.Equal(t, res.RunID, headers["run_id"])

		var payload map[string]any
		require.NoError(t, json.Unmarshal(msg.Value, &payload))
		assert.Equal(t, string(msg.Key), payload["plot_id"])
		seenScores[string(msg.Key)] = payload["credited_area_m2"].(float64)
	}
	for plotID, want := range res.Scores {
		got, ok := seenScores[plotID]
		require.True(t, ok, "missing score message for plot %s", plotID)
		assert.InDelta(t, want.CreditedArea, got, 1e-6)
	}

	// Every daily union should arrive keyed by plot and day.
	unionConsumer := newConsumer(t, broker, testUnionsTopic)
	seenUnions := make(map[string]float64, len(unions))
	for range unions {
		msg, headers := readMessage(ctx, t, unionConsumer)
		assert.Equal(t, res.RunID, headers["run_id"])

		var payload map[string]any
		require.NoError(t, json.Unmarshal(msg.Value, &payload))
		seenUnions[string(msg.Key)] = payload["area_m2"].(float64)
	}
	for key, want := range res.Unions {
		wireKey := key.PlotID + "/" + key.Day.String()
		got, ok := seenUnions[wireKey]
		require.True(t, ok, "missing union message for %s", wireKey)
		assert.InDelta(t, want.Area, got, 1e-6)
	}
}

// TestPublishEmptyRunIsNoop verifies that a run with nothing to publish does
// not write messages to either topic.
func TestPublishEmptyRunIsNoop(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testScoresTopic)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaScoresTopic: testScoresTopic,
		KafkaUnionsTopic: testUnionsTopic,
	}
	publisher := kafkaadapter.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	require.NoError(t, publisher.PublishScores(ctx, nil))
	require.NoError(t, publisher.PublishUnions(ctx, "run-empty", nil))

	consumer := newConsumer(t, broker, testScoresTopic)
	readCtx, readCancel := context.WithTimeout(ctx, 10*time.Second)
	defer readCancel()
	_, err := consumer.ReadMessage(readCtx)
	assert.Error(t, err, "no message should have been produced")
}
