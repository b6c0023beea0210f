// Package config loads the environment configuration shared by both
// services, per spec.md §6 plus the HTTP_ADDR/LOG_*/REDIS_URL additions
// in SPEC_FULL.md §4.9.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	HTTPAddr    string

	DBDSN     string
	BrokerURL string
	RedisURL  string // optional

	OutboxPollInterval   time.Duration
	OutboxBatchSize      int
	MaxRetries           int
	ConsumerPrefetch     int
	ShutdownDrainTimeout time.Duration

	EmbargoSKUs          []string
	ProcessingSuccessProb float64

	LogLevel  string
	LogFormat string
}

// Load reads the environment, applying spec.md §6 defaults. DB_DSN and
// BROKER_URL are mandatory; everything else has a workable default.
func Load(serviceName, defaultHTTPAddr string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", serviceName),
		HTTPAddr:    getEnv("HTTP_ADDR", defaultHTTPAddr),
		DBDSN:       getEnv("DB_DSN", ""),
		BrokerURL:   getEnv("BROKER_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		OutboxPollInterval:   getDuration("OUTBOX_POLL_INTERVAL", 5*time.Second),
		OutboxBatchSize:      getInt("OUTBOX_BATCH_SIZE", 100),
		MaxRetries:           getInt("MAX_RETRIES", 3),
		ConsumerPrefetch:     getInt("CONSUMER_PREFETCH", 10),
		ShutdownDrainTimeout: getDuration("SHUTDOWN_DRAIN_TIMEOUT", 30*time.Second),

		EmbargoSKUs:           getList("EMBARGO_SKUS", []string{"pineapple_pizza", "teapot"}),
		ProcessingSuccessProb: getFloat("PROCESSING_SUCCESS_PROB", 0.8),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("missing DB_DSN")
	}
	if cfg.BrokerURL == "" {
		return nil, fmt.Errorf("missing BROKER_URL")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getList(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
