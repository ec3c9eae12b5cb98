// Package main hosts the content progress service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, readiness, metrics and POST /v1/content/state. Bodies are decoded
//     into a contentstate.Request, validated as a whole, then handed to the Ingestor.
//   - Ingestor & merger: each item's batch window is checked against the configured time zone, then the Merger reads
//     the stored record, applies the monotonic merge and saves it with a version check, retrying on conflict.
//   - Persistence: records and batch windows live in Postgres (or process memory for development). An optional Redis
//     cache fronts batch lookups.
//   - Rollup: every request with at least one merged item produces a summary that the rollup Hub batches and fans out
//     to Prometheus, the log, and the configured broker (Pub/Sub or NATS JetStream).
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler; OpenTelemetry spans wrap each request.
//
// Quick checklist:
//   - Configure env vars: PROGRESS_SERVER_PORT or PORT, PROGRESS_STORAGE_BACKEND, PROGRESS_DB_DSN,
//     PROGRESS_ROLLUP_TRANSPORT and the matching pubsub/nats settings, PROGRESS_REDIS_ENABLED.
//   - Run locally: go run ./cmd/progressd serve --config config.yaml (or rely solely on env overrides).
//   - The process reacts to SIGINT/SIGTERM by draining HTTP, flushing rollups and closing storage.
package main
