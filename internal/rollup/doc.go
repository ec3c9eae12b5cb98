// Package rollup delivers learner progress summaries to the parent
// aggregate without blocking request handling. A Hub batches summaries on a
// background goroutine and fans them out to pluggable sinks such as a
// message publisher, Prometheus metrics or structured logs.
package rollup
