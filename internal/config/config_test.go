package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, BackendMemory, cfg.Storage.Backend)
	require.Equal(t, "content_consumption", cfg.Storage.RecordsTable)
	require.Equal(t, "course_batch", cfg.Storage.BatchesTable)
	require.Equal(t, 5, cfg.Merge.MaxAttempts)
	require.Equal(t, TransportLog, cfg.Rollup.Transport)
	require.Equal(t, 500*time.Millisecond, cfg.FlushInterval())
	require.Equal(t, 30*time.Second, cfg.RequestTimeout())

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "UTC", loc.String())
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
  request_timeout_seconds: 5
auth:
  enabled: true
  api_key: secret
db:
  dsn: postgres://localhost/progress
storage:
  backend: postgres
  records_table: learner_content
  auto_migrate: true
  batches:
    - id: b1
      start_date: "2024-01-01"
      end_date: "2024-06-30"
merge:
  max_attempts: 3
  time_zone: Asia/Kolkata
rollup:
  transport: nats
  flush_interval_ms: 100
nats:
  url: nats://nats:4222
  subject: course.rollup
redis:
  enabled: true
  addr: redis:6379
  ttl_seconds: 60
logging:
  development: false
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5*time.Second, cfg.RequestTimeout())
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, "secret", cfg.Auth.APIKey)
	require.Equal(t, BackendPostgres, cfg.Storage.Backend)
	require.Equal(t, "learner_content", cfg.Storage.RecordsTable)
	require.Equal(t, "course_batch", cfg.Storage.BatchesTable)
	require.True(t, cfg.Storage.AutoMigrate)
	require.Equal(t, []BatchConfig{{ID: "b1", StartDate: "2024-01-01", EndDate: "2024-06-30"}}, cfg.Storage.Batches)
	require.Equal(t, 3, cfg.Merge.MaxAttempts)
	require.Equal(t, TransportNATS, cfg.Rollup.Transport)
	require.Equal(t, "course.rollup", cfg.NATS.Subject)
	require.Equal(t, 100*time.Millisecond, cfg.FlushInterval())
	require.True(t, cfg.Redis.Enabled)
	require.Equal(t, time.Minute, cfg.CacheTTL())
	require.False(t, cfg.Logging.Development)
	require.Equal(t, "warn", cfg.Logging.Level)

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PROGRESS_SERVER_PORT", "7070")
	t.Setenv("PROGRESS_MERGE_MAX_ATTEMPTS", "9")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, 9, cfg.Merge.MaxAttempts)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080, RequestTimeoutSeconds: 10},
		Storage: StorageConfig{Backend: BackendMemory},
		Merge:   MergeConfig{MaxAttempts: 5, TimeZone: "UTC"},
		Rollup:  RollupConfig{Transport: TransportLog, BufferSize: 8, BatchSize: 4},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"invalid timeout", func(c *Config) { c.Server.RequestTimeoutSeconds = 0 }, "server.request_timeout_seconds"},
		{"auth missing api key", func(c *Config) { c.Auth.Enabled = true }, "auth.api_key"},
		{"rate limit without rps", func(c *Config) { c.Limits = LimitsConfig{Enabled: true, Burst: 5} }, "rate_limit.rps"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }, "storage.backend"},
		{"postgres missing dsn", func(c *Config) { c.Storage.Backend = BackendPostgres }, "db.dsn"},
		{"no merge attempts", func(c *Config) { c.Merge.MaxAttempts = 0 }, "merge.max_attempts"},
		{"bad time zone", func(c *Config) { c.Merge.TimeZone = "Mars/Olympus" }, "merge.time_zone"},
		{"unknown transport", func(c *Config) { c.Rollup.Transport = "kafka" }, "rollup.transport"},
		{"pubsub missing project", func(c *Config) { c.Rollup.Transport = TransportPubSub }, "pubsub.project_id"},
		{"nats missing url", func(c *Config) { c.Rollup.Transport = TransportNATS }, "nats.url"},
		{"zero batch size", func(c *Config) { c.Rollup.BatchSize = 0 }, "rollup.batch_size"},
		{"redis missing addr", func(c *Config) { c.Redis.Enabled = true }, "redis.addr"},
		{"sample ratio", func(c *Config) { c.Tracing.SampleRatio = 2 }, "tracing.sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
