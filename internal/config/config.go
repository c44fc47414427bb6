package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all pipeline settings, populated from environment variables.
// CLI flags may override individual fields after Load.
type Config struct {
	// DataPath is the root for generated producer/loader output trees.
	DataPath string
	// SourcePath is the root the processors discover raw daily files under.
	SourcePath string
	// ResultsPath is the root for prediction and evaluation output.
	ResultsPath string

	Workers         int
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// MetricsAddr exposes /healthz, /readyz and /metrics during long
	// generation runs when non-empty.
	MetricsAddr string

	// Kafka event notification configuration (optional).
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("ICENET_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	workers, err := parseIntEnv("ICENET_WORKERS", 2)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("ICENET_KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("ICENET_KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		DataPath:        envOrDefault("ICENET_DATA_PATH", "./data"),
		SourcePath:      envOrDefault("ICENET_SOURCE_PATH", "./source"),
		ResultsPath:     envOrDefault("ICENET_RESULTS_PATH", "./results"),
		Workers:         workers,
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "text"),
		ShutdownTimeout: shutdownTimeout,
		MetricsAddr:     os.Getenv("ICENET_METRICS_ADDR"),
		KafkaBrokers:    brokers,
		KafkaTopic:      envOrDefault("ICENET_KAFKA_TOPIC", "icenet-dataset-events"),
		KafkaEnabled:    kafkaEnabled,
	}

	if cfg.Workers <= 0 {
		return nil, errors.New("ICENET_WORKERS must be positive")
	}
	if cfg.DataPath == "" {
		return nil, errors.New("ICENET_DATA_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("ICENET_KAFKA_ENABLED is true but ICENET_KAFKA_BROKERS is not set")
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
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parseIntEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}
