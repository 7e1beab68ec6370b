package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/Angellovem/biocredits-calc/internal/config"
	"github.com/Angellovem/biocredits-calc/internal/domain"
)

// Publisher produces scoring results to Kafka so downstream credit issuance
// services can consume them without polling the result tables.
type Publisher struct {
	scores *kafkago.Writer
	unions *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates producers for the configured score and union topics.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	newWriter := func(topic string) *kafkago.Writer {
		return &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.KafkaBrokers...),
			Topic:        topic,
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireAll,
		}
	}
	return &Publisher{
		scores: newWriter(cfg.KafkaScoresTopic),
		unions: newWriter(cfg.KafkaUnionsTopic),
		logger: logger,
	}
}

// PublishScores serializes and publishes credit scores in a single
// WriteMessages call.
func (p *Publisher) PublishScores(ctx context.Context, scores []domain.CreditScore) error {
	if len(scores) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(scores))
	for i := range scores {
		msg, err := serializeScore(scores[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.scores.WriteMessages(ctx, msgs...)
}

// PublishUnions serializes and publishes daily coverage records in a single
// WriteMessages call.
func (p *Publisher) PublishUnions(ctx context.Context, runID string, unions []domain.DailyUnion) error {
	if len(unions) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(unions))
	for i := range unions {
		msg, err := serializeUnion(runID, unions[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.unions.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	if err := p.scores.Close(); err != nil {
		return err
	}
	return p.unions.Close()
}

// scoreMessage is the wire form of a credit score.
type scoreMessage struct {
	PlotID         string    `json:"plot_id"`
	ProjectID      string    `json:"project_id"`
	CertifierID    string    `json:"certifier_id"`
	CreditedAreaM2 float64   `json:"credited_area_m2"`
	WeightedCredit float64   `json:"weighted_credit"`
	Days           int       `json:"days"`
	FromDay        string    `json:"from_day"`
	ToDay          string    `json:"to_day"`
	RunID          string    `json:"run_id"`
	ComputedAt     time.Time `json:"computed_at"`
}

// unionMessage is the wire form of a daily coverage record. The covered
// geometry stays in the result store; consumers only need the area.
type unionMessage struct {
	PlotID       string  `json:"plot_id"`
	Day          string  `json:"day"`
	AreaM2       float64 `json:"area_m2"`
	Observations int     `json:"observations"`
	RunID        string  `json:"run_id"`
}

func serializeScore(s domain.CreditScore) (kafkago.Message, error) {
	data, err := json.Marshal(scoreMessage{
		PlotID:         s.PlotID,
		ProjectID:      s.ProjectID,
		CertifierID:    s.CertifierID,
		CreditedAreaM2: s.CreditedArea,
		WeightedCredit: s.WeightedCredit,
		Days:           s.Days,
		FromDay:        s.From.String(),
		ToDay:          s.To.String(),
		RunID:          s.RunID,
		ComputedAt:     s.ComputedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize credit score: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(s.PlotID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(s.RunID)},
			{Key: "computed_at", Value: []byte(s.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}

func serializeUnion(runID string, du domain.DailyUnion) (kafkago.Message, error) {
	data, err := json.Marshal(unionMessage{
		PlotID:       du.PlotID,
		Day:          du.Day.String(),
		AreaM2:       du.Area,
		Observations: du.Observations,
		RunID:        runID,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize daily union: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(du.PlotID + "/" + du.Day.String()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}
