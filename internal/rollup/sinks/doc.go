// Package sinks implements concrete rollup consumers: a message publisher,
// Prometheus metrics and structured logging. Each sink satisfies the
// rollup.Sink interface and is safe for repeated Consume/Close cycles.
package sinks
