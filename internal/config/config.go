package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/water-budget-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	DefaultUnits    domain.UnitSystem

	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string

	BatchSize          int
	BatchFlushInterval time.Duration
	PlanWorkers        int // concurrent plans per batch

	// Remote geospatial service supplying NDVI, precipitation and PET.
	GeodataURL             string
	GeodataToken           string
	GeodataEnabled         bool
	GeodataTimeout         time.Duration
	GeodataCacheSize       int
	GeodataMaxRetries      int
	GeodataBreakerFailures int
	GeodataBreakerTimeout  time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := positiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	units, err := domain.ParseUnitSystem(envOrDefault("DEFAULT_UNITS", string(domain.Metric)))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_UNITS: %w", err)
	}

	logFormat := strings.ToLower(envOrDefault("LOG_FORMAT", "json"))
	if logFormat != "json" && logFormat != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: must be json or text", logFormat)
	}
	logLevel := strings.ToLower(envOrDefault("LOG_LEVEL", "info"))
	switch logLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: must be debug, info, warn or error", logLevel)
	}

	brokersEnv := os.Getenv("KAFKA_BROKERS")
	kafkaEnabled, err := boolFlag("KAFKA_ENABLED", strings.TrimSpace(brokersEnv) != "")
	if err != nil {
		return nil, err
	}

	batchSize, err := intInRange("BATCH_SIZE", 50, 1, maxBatchSize)
	if err != nil {
		return nil, err
	}
	flushInterval, err := positiveDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}
	planWorkers, err := intInRange("PLAN_WORKERS", 4, 1, 64)
	if err != nil {
		return nil, err
	}

	geodataURL := strings.TrimRight(envOrDefault("GEODATA_URL", ""), "/")
	geodataEnabled, err := boolFlag("GEODATA_ENABLED", geodataURL != "")
	if err != nil {
		return nil, err
	}
	geodataTimeout, err := positiveDuration("GEODATA_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheSize, err := intInRange("GEODATA_CACHE_SIZE", 1000, 1, 1_000_000)
	if err != nil {
		return nil, err
	}
	maxRetries, err := intInRange("GEODATA_MAX_RETRIES", 3, 0, 10)
	if err != nil {
		return nil, err
	}
	breakerFailures, err := intInRange("GEODATA_BREAKER_FAILURES", 5, 1, 100)
	if err != nil {
		return nil, err
	}
	breakerTimeout, err := positiveDuration("GEODATA_BREAKER_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        logLevel,
		LogFormat:       logFormat,
		ShutdownTimeout: shutdownTimeout,
		DefaultUnits:    units,

		KafkaEnabled:     kafkaEnabled,
		KafkaBrokers:     parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: envOrDefault("KAFKA_SOURCE_TOPIC", "irrigation-plan-requests"),
		KafkaSinkTopic:   envOrDefault("KAFKA_SINK_TOPIC", "irrigation-plans"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "water-budget"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
		PlanWorkers:        planWorkers,

		GeodataURL:             geodataURL,
		GeodataToken:           os.Getenv("GEODATA_TOKEN"),
		GeodataEnabled:         geodataEnabled,
		GeodataTimeout:         geodataTimeout,
		GeodataCacheSize:       cacheSize,
		GeodataMaxRetries:      maxRetries,
		GeodataBreakerFailures: breakerFailures,
		GeodataBreakerTimeout:  breakerTimeout,
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when Kafka is enabled")
		}
		if cfg.KafkaSourceTopic == cfg.KafkaSinkTopic {
			return nil, errors.New("KAFKA_SOURCE_TOPIC and KAFKA_SINK_TOPIC must differ")
		}
	}
	if cfg.GeodataEnabled && cfg.GeodataURL == "" {
		return nil, errors.New("GEODATA_ENABLED is true but GEODATA_URL is not set")
	}

	return cfg, nil
}
