// Package metrics provides the Prometheus registry used by the Canvas client.
// Metrics are defined in their owning packages (client, pagination, aggregate,
// canvas, snapshot) via promauto to avoid circular imports.
//
// This package documents every exported series and exposes the registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the Canvas client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns an HTTP handler exposing the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - canvas_requests_total{endpoint, status} (Counter): requests by endpoint and HTTP status
//   - canvas_request_duration_seconds{endpoint} (Histogram): request duration by endpoint
//   - canvas_errors_total{class} (Counter): errors by class (client, server, network)
//
// Pagination Metrics (pkg/pagination):
//   - canvas_pages_fetched_total{resource} (Counter): pages decoded per resource
//   - canvas_items_fetched_total{resource} (Counter): JSON elements accumulated per resource
//
// Aggregate Metrics (pkg/aggregate):
//   - canvas_aggregate_tasks_total{outcome, reason} (Counter): per-key task outcomes
//   - canvas_aggregate_run_duration_seconds (Histogram): wall time of a whole run
//
// Normalization Metrics (pkg/canvas):
//   - canvas_normalization_warnings_total{kind} (Counter): non-fatal normalization warnings
//
// Snapshot Metrics (pkg/snapshot):
//   - canvas_snapshot_writes_total{resource} (Counter): tables published to Redis
//   - canvas_snapshot_bytes{resource} (Gauge): size of the last published snapshot
//   - canvas_snapshot_errors_total{operation} (Counter): store operation errors
//
// Example Prometheus Queries:
//
//   # Share of aggregate tasks failing on permissions
//   sum(rate(canvas_aggregate_tasks_total{reason="permission_denied"}[1h])) /
//   sum(rate(canvas_aggregate_tasks_total[1h]))
//
//   # P95 request latency
//   histogram_quantile(0.95, rate(canvas_request_duration_seconds_bucket[5m]))
