// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Rollup transports.
const (
	TransportLog    = "log"
	TransportPubSub = "pubsub"
	TransportNATS   = "nats"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Limits  LimitsConfig  `mapstructure:"rate_limit"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	Merge   MergeConfig   `mapstructure:"merge"`
	Rollup  RollupConfig  `mapstructure:"rollup"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LimitsConfig throttles /v1 requests per client (API key or remote IP).
type LimitsConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig selects the record/batch backend and its table names.
type StorageConfig struct {
	Backend      string        `mapstructure:"backend"`
	RecordsTable string        `mapstructure:"records_table"`
	BatchesTable string        `mapstructure:"batches_table"`
	AutoMigrate  bool          `mapstructure:"auto_migrate"`
	Batches      []BatchConfig `mapstructure:"batches"`
}

// BatchConfig seeds a batch window into the memory backend.
type BatchConfig struct {
	ID        string `mapstructure:"id"`
	StartDate string `mapstructure:"start_date"`
	EndDate   string `mapstructure:"end_date"`
}

// MergeConfig tunes the record merger.
type MergeConfig struct {
	MaxAttempts int    `mapstructure:"max_attempts"`
	TimeZone    string `mapstructure:"time_zone"`
}

// RollupConfig configures the rollup hub and its transport.
type RollupConfig struct {
	Transport       string `mapstructure:"transport"`
	BufferSize      int    `mapstructure:"buffer_size"`
	BatchSize       int    `mapstructure:"batch_size"`
	FlushIntervalMs int    `mapstructure:"flush_interval_ms"`
	SinkTimeoutMs   int    `mapstructure:"sink_timeout_ms"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// NATSConfig holds the JetStream connection used for rollup notifications.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

// RedisConfig controls the optional batch window cache.
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	KeyPrefix  string `mapstructure:"key_prefix"`
	TTLSeconds int    `mapstructure:"ttl_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TracingConfig toggles OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PROGRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 15)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 50.0)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.records_table", "content_consumption")
	v.SetDefault("storage.batches_table", "course_batch")
	v.SetDefault("storage.auto_migrate", false)
	v.SetDefault("merge.max_attempts", 5)
	v.SetDefault("merge.time_zone", "UTC")
	v.SetDefault("rollup.transport", TransportLog)
	v.SetDefault("rollup.buffer_size", 1024)
	v.SetDefault("rollup.batch_size", 64)
	v.SetDefault("rollup.flush_interval_ms", 500)
	v.SetDefault("rollup.sink_timeout_ms", 2000)
	v.SetDefault("pubsub.topic_name", "content-progress-rollup")
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.subject", "progress.rollup")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.key_prefix", "progress:batch:")
	v.SetDefault("redis.ttl_seconds", 300)
	v.SetDefault("logging.development", true)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "progressd")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Limits.Enabled && (c.Limits.RPS <= 0 || c.Limits.Burst <= 0) {
		return fmt.Errorf("rate_limit.rps and rate_limit.burst must be > 0 when rate limiting is enabled")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when storage.backend is %q", BackendPostgres)
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendMemory, BackendPostgres, c.Storage.Backend)
	}
	if c.Merge.MaxAttempts <= 0 {
		return fmt.Errorf("merge.max_attempts must be > 0")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.Rollup.Transport {
	case TransportLog:
	case TransportPubSub:
		if c.PubSub.ProjectID == "" || c.PubSub.TopicName == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when rollup.transport is %q", TransportPubSub)
		}
	case TransportNATS:
		if c.NATS.URL == "" || c.NATS.Subject == "" {
			return fmt.Errorf("nats.url and nats.subject must be set when rollup.transport is %q", TransportNATS)
		}
	default:
		return fmt.Errorf("rollup.transport must be one of log, pubsub, nats; got %q", c.Rollup.Transport)
	}
	if c.Rollup.BufferSize <= 0 || c.Rollup.BatchSize <= 0 {
		return fmt.Errorf("rollup.buffer_size and rollup.batch_size must be > 0")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr must be set when redis is enabled")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0,1]")
	}
	return nil
}

// Location resolves merge.time_zone, used for batch window calendar dates.
func (c Config) Location() (*time.Location, error) {
	if c.Merge.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Merge.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("merge.time_zone: %w", err)
	}
	return loc, nil
}

// RequestTimeout is the per-request handler budget.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// FlushInterval is the rollup hub's maximum batching delay.
func (c Config) FlushInterval() time.Duration {
	return time.Duration(c.Rollup.FlushIntervalMs) * time.Millisecond
}

// SinkTimeout bounds a single rollup sink delivery.
func (c Config) SinkTimeout() time.Duration {
	return time.Duration(c.Rollup.SinkTimeoutMs) * time.Millisecond
}

// CacheTTL is how long batch windows stay in Redis.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}
