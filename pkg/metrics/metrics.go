// Package metrics provides the centralized Prometheus registry reference
// for the harvester. All metrics are defined in their respective packages
// (fetch, harvest, output, errlog, checkpoint) to maintain modularity and
// avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the harvester.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Fetch Metrics (pkg/fetch):
//   - harvester_fetch_requests_total{outcome} (Counter): Fetch attempts by outcome (success, error)
//   - harvester_fetch_duration_seconds (Histogram): Duration of a single fetch attempt
//   - harvester_fetch_errors_total{class} (Counter): Attempt errors by class (network, server, client, decode)
//   - harvester_fetch_retries_total{error_class} (Counter): Retry attempts by error class
//   - harvester_fetch_retry_exhausted_total{error_class} (Counter): IDs that exhausted max retries
//
// Pipeline Metrics (pkg/harvest):
//   - harvester_products_processed_total (Counter): Products fetched and queued for output
//   - harvester_products_failed_total (Counter): Products that failed permanently
//
// Output Metrics (pkg/output):
//   - harvester_batch_flushes_total (Counter): Batch files written
//   - harvester_batch_records_total (Counter): Records written across all batches
//
// Checkpoint Metrics (pkg/checkpoint):
//   - harvester_checkpoint_saves_total{backend} (Counter): Checkpoint saves by backend (file, redis)
//
// Error Sink Metrics (pkg/errlog):
//   - harvester_failures_total (Counter): Failure log entries written
//
// Example Prometheus Queries:
//
//   # Fetch Error Rate
//   sum(rate(harvester_fetch_errors_total[5m])) / sum(rate(harvester_fetch_requests_total[5m]))
//
//   # Permanent Failure Ratio
//   rate(harvester_products_failed_total[5m]) / rate(harvester_products_processed_total[5m])
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(harvester_fetch_duration_seconds_bucket[5m]))
//
//   # Records Flushed Per Second
//   rate(harvester_batch_records_total[5m])
