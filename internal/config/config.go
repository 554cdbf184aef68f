package config

import (
	"fmt"

	"github.com/marco-pm/zencart-typesense/internal/sync"
	"github.com/marco-pm/zencart-typesense/internal/typesense"
	pkgconfig "github.com/marco-pm/zencart-typesense/pkg/config"
	"github.com/marco-pm/zencart-typesense/pkg/database"
)

// Config holds all configuration for the sync service and dashboard.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server (dashboard/control API)
	HTTPPort int `env:"HTTP_PORT" envDefault:"8020"`

	// Typesense server
	TypesenseHost     string `env:"TYPESENSE_HOST" envDefault:"localhost"`
	TypesensePort     int    `env:"TYPESENSE_PORT" envDefault:"8108"`
	TypesenseProtocol string `env:"TYPESENSE_PROTOCOL" envDefault:"http"`
	TypesenseAPIKey   string `env:"TYPESENSE_API_KEY"`

	// Sync engine
	FullSyncFrequencyHours   int    `env:"FULL_SYNC_FREQUENCY_HOURS" envDefault:"12"`
	SyncTimeoutMinutes       int    `env:"SYNC_TIMEOUT_MINUTES" envDefault:"30"`
	RetryAfterFailed         bool   `env:"SYNC_AFTER_FAILED" envDefault:"true"`
	FullSyncOnCategoryChange bool   `env:"FULL_SYNC_AFTER_CATEGORY_CHANGE" envDefault:"true"`
	SyncLog                  bool   `env:"SYNC_LOG" envDefault:"false"`
	CollectionPrefix         string `env:"COLLECTION_PREFIX" envDefault:""`

	// Optional in-process scheduler for the dashboard binary. When disabled
	// the engine is only driven by the cron binary.
	SchedulerEnabled         bool `env:"SYNC_SCHEDULER_ENABLED" envDefault:"false"`
	SchedulerIntervalMinutes int  `env:"SYNC_SCHEDULER_INTERVAL_MINUTES" envDefault:"5"`

	// Search provider selection
	SearchProvider string `env:"SEARCH_PROVIDER" envDefault:"typesense"`

	// PostgreSQL (the shop catalog database)
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"catalog"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"zencart-typesense"`

	// Tracing
	TracingEnabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint   string  `env:"TRACING_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables. Configuration errors
// are fatal before any state mutation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if err := c.Typesense().Validate(); err != nil {
		return err
	}
	if c.FullSyncFrequencyHours < 1 {
		return fmt.Errorf("full sync frequency must be at least 1 hour, got %d", c.FullSyncFrequencyHours)
	}
	if c.SyncTimeoutMinutes < 1 {
		return fmt.Errorf("sync timeout must be at least 1 minute, got %d", c.SyncTimeoutMinutes)
	}
	return nil
}

// Typesense returns the Typesense client configuration.
func (c *Config) Typesense() typesense.Config {
	return typesense.Config{
		Host:     c.TypesenseHost,
		Port:     c.TypesensePort,
		Protocol: c.TypesenseProtocol,
		APIKey:   c.TypesenseAPIKey,
	}
}

// Postgres returns the database pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	return pg
}

// Sync returns the orchestrator configuration.
func (c *Config) Sync() sync.Config {
	return sync.Config{
		FullSyncFrequencyHours: c.FullSyncFrequencyHours,
		SyncTimeoutMinutes:     c.SyncTimeoutMinutes,
		RetryAfterFailed:       c.RetryAfterFailed,
		CollectionPrefix:       c.CollectionPrefix,
		SyncLog:                c.SyncLog,
	}
}
