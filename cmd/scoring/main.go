package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/Angellovem/biocredits-calc/internal/adapter/http"
	kafkaadapter "github.com/Angellovem/biocredits-calc/internal/adapter/kafka"
	"github.com/Angellovem/biocredits-calc/internal/adapter/postgres"
	"github.com/Angellovem/biocredits-calc/internal/adapter/rest"
	"github.com/Angellovem/biocredits-calc/internal/config"
	"github.com/Angellovem/biocredits-calc/internal/domain"
	"github.com/Angellovem/biocredits-calc/internal/observability"
	"github.com/Angellovem/biocredits-calc/internal/pipeline"
)

// backend is the full registry surface a source implementation provides.
type backend interface {
	pipeline.LandSource
	pipeline.ObservationSource
	pipeline.ResultSink
	pipeline.RunLog
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var src backend
	switch cfg.SourceBackend {
	case "postgres":
		store, err := postgres.Open(cfg.PostgresDSN, logger)
		if err != nil {
			logger.Error("postgres backend init failed", "error", err)
			os.Exit(1)
		}
		src = store
		logger.Info("using postgres backend")
	case "rest":
		src = rest.NewClient(cfg.APIBaseURL, cfg.APIKey, cfg.APITimeout, cfg.CacheSize, logger, metrics)
		logger.Info("using rest backend", "base_url", cfg.APIBaseURL)
	}

	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		logger.Info("kafka publication enabled", "brokers", cfg.KafkaBrokers,
			"scores_topic", cfg.KafkaScoresTopic, "unions_topic", cfg.KafkaUnionsTopic)
	}

	p := pipeline.New(cfg, src, src, src, src, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		runLoop(ctx, cfg, p, publisher, logger)
	}()

	if cfg.RunInterval == 0 {
		// Single-run mode: exit once the run and the shutdown of the HTTP
		// server are done, or when a signal arrives first.
		select {
		case <-runDone:
		case <-ctx.Done():
		}
	} else {
		<-ctx.Done()
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// runLoop executes one run immediately, then repeats on the configured
// interval. A zero interval means run once.
func runLoop(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, publisher *kafkaadapter.Publisher, logger *slog.Logger) {
	runOnce(ctx, p, publisher, logger)
	if cfg.RunInterval == 0 {
		return
	}

	ticker := time.NewTicker(cfg.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce(ctx, p, publisher, logger)
		}
	}
}

func runOnce(ctx context.Context, p *pipeline.Pipeline, publisher *kafkaadapter.Publisher, logger *slog.Logger) {
	res, err := p.Run(ctx)
	if err != nil {
		logger.Error("scoring run failed", "error", err)
		return
	}
	if publisher == nil {
		return
	}

	unions := make([]domain.DailyUnion, 0, len(res.Unions))
	for _, du := range res.Unions {
		unions = append(unions, du)
	}
	if err := publisher.PublishUnions(ctx, res.RunID, unions); err != nil {
		logger.Error("publish daily unions failed", "error", err)
	}

	scores := make([]domain.CreditScore, 0, len(res.Scores))
	for _, s := range res.Scores {
		scores = append(scores, s)
	}
	if err := publisher.PublishScores(ctx, scores); err != nil {
		logger.Error("publish scores failed", "error", err)
	}
}
