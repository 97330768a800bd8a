package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	AllocatorLog   = "log"
	AllocatorRedis = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	Port string `env:"PORT" envDefault:"3000"`

	StoreDriver  string        `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabaseURL  string        `env:"DATABASE_URL"`
	SQLitePath   string        `env:"SQLITE_PATH" envDefault:"hrdb.sqlite"`
	StoreTimeout time.Duration `env:"STORE_TIMEOUT" envDefault:"5s"`

	RedisURL       string `env:"REDIS_URL"`
	IDAllocator    string `env:"ID_ALLOCATOR" envDefault:"log"`
	WriteRateLimit int    `env:"WRITE_RATE_LIMIT" envDefault:"0"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"hr.employee.events"`
	SinkWorkers  int      `env:"SINK_WORKERS" envDefault:"4"` // 0 delivers synchronously

	OTelEnabled       bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint      string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelSamplingRatio float64 `env:"OTEL_SAMPLING_RATIO" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.IDAllocator = strings.ToLower(strings.TrimSpace(cfg.IDAllocator))

	switch cfg.StoreDriver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return nil, fmt.Errorf("SQLITE_PATH is required")
		}
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, cfg.StoreDriver)
	}

	switch cfg.IDAllocator {
	case AllocatorLog:
	case AllocatorRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required")
		}
	default:
		return nil, fmt.Errorf("ID_ALLOCATOR must be %q or %q, got %q", AllocatorLog, AllocatorRedis, cfg.IDAllocator)
	}

	if cfg.StoreTimeout <= 0 {
		return nil, fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if cfg.SinkWorkers < 0 {
		return nil, fmt.Errorf("SINK_WORKERS must not be negative")
	}

	return &cfg, nil
}
