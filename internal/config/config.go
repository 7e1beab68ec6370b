package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	SourceBackend   string // "postgres" or "rest"
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Postgres backend.
	PostgresDSN string

	// REST backend.
	APIBaseURL string
	APIKey     string
	APITimeout time.Duration
	CacheSize  int

	// Kafka score publication.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaScoresTopic string
	KafkaUnionsTopic string

	// Scheduling.
	RunInterval   time.Duration // 0 means run once and exit
	LookbackYears int
	Workers       int

	// Engine parameters.
	CircleSegments      int
	MatchToleranceM     float64
	NegligibleAreaM2    float64
	ProjectionOriginLon float64
	ProjectionOriginLat float64
	UseConfidenceFactor bool
	ClearResultsFirst   bool
	CertifierWeights    map[string]float64
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	apiTimeout, err := parseDuration("API_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	runInterval, err := parseOptionalDuration("RUN_INTERVAL")
	if err != nil {
		return nil, err
	}

	lookback, err := parseInt("LOOKBACK_YEARS", 10, 1)
	if err != nil {
		return nil, err
	}
	workers, err := parseInt("WORKERS", 4, 1)
	if err != nil {
		return nil, err
	}
	segments, err := parseInt("CIRCLE_SEGMENTS", 32, 8)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("CACHE_SIZE", 1000, 1)
	if err != nil {
		return nil, err
	}

	tolerance, err := parseFloat("MATCH_TOLERANCE_M", 0)
	if err != nil {
		return nil, err
	}
	negligible, err := parseFloat("NEGLIGIBLE_AREA_M2", 1e-6)
	if err != nil {
		return nil, err
	}

	originLon, originLat, err := parseOrigin(envOrDefault("PROJECTION_ORIGIN", "-77.0,0.7"))
	if err != nil {
		return nil, err
	}

	weights, err := parseCertifierWeights(os.Getenv("CERTIFIER_WEIGHTS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SourceBackend:   envOrDefault("SOURCE_BACKEND", "postgres"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		APIBaseURL: os.Getenv("API_BASE_URL"),
		APIKey:     os.Getenv("API_KEY"),
		APITimeout: apiTimeout,
		CacheSize:  cacheSize,

		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaScoresTopic: envOrDefault("KAFKA_SCORES_TOPIC", "biocredit-scores"),
		KafkaUnionsTopic: envOrDefault("KAFKA_UNIONS_TOPIC", "biocredit-daily-unions"),

		RunInterval:   runInterval,
		LookbackYears: lookback,
		Workers:       workers,

		CircleSegments:      segments,
		MatchToleranceM:     tolerance,
		NegligibleAreaM2:    negligible,
		ProjectionOriginLon: originLon,
		ProjectionOriginLat: originLat,
		UseConfidenceFactor: os.Getenv("USE_CONFIDENCE_FACTOR") == "true",
		ClearResultsFirst:   os.Getenv("CLEAR_RESULTS_BEFORE_RUN") == "true",
		CertifierWeights:    weights,
	}

	switch cfg.SourceBackend {
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, errors.New("POSTGRES_DSN is required when SOURCE_BACKEND=postgres")
		}
	case "rest":
		if cfg.APIBaseURL == "" {
			return nil, errors.New("API_BASE_URL is required when SOURCE_BACKEND=rest")
		}
	default:
		return nil, fmt.Errorf("unknown SOURCE_BACKEND %q", cfg.SourceBackend)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.MatchToleranceM < 0 {
		return nil, errors.New("MATCH_TOLERANCE_M must not be negative")
	}
	if cfg.NegligibleAreaM2 < 0 {
		return nil, errors.New("NEGLIGIBLE_AREA_M2 must not be negative")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

// parseOptionalDuration treats unset, empty, and "0" as zero.
func parseOptionalDuration(key string) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func parseInt(key string, fallback, minimum int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return f, nil
}

func parseOrigin(s string) (lon, lat float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid PROJECTION_ORIGIN %q, want \"lon,lat\"", s)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid PROJECTION_ORIGIN longitude %q", parts[0])
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid PROJECTION_ORIGIN latitude %q", parts[1])
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("PROJECTION_ORIGIN %q out of range", s)
	}
	return lon, lat, nil
}

// parseCertifierWeights parses "id=1.25,id2=0.8" into a weight table.
func parseCertifierWeights(s string) (map[string]float64, error) {
	if s == "" {
		return nil, nil
	}
	weights := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, val, found := strings.Cut(pair, "=")
		if !found || id == "" {
			return nil, fmt.Errorf("invalid CERTIFIER_WEIGHTS entry %q", pair)
		}
		w, err := strconv.ParseFloat(val, 64)
		if err != nil || w < 0 {
			return nil, fmt.Errorf("invalid CERTIFIER_WEIGHTS value %q", pair)
		}
		weights[strings.TrimSpace(id)] = w
	}
	return weights, nil
}
