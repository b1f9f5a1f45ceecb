package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotWrites tracks snapshots written by resource
	SnapshotWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_snapshot_writes_total",
			Help: "Total number of snapshots written",
		},
		[]string{"resource"},
	)

	// SnapshotBytes tracks the size of the last snapshot written per resource
	SnapshotBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "canvas_snapshot_bytes",
			Help: "Size of the last snapshot written in bytes",
		},
		[]string{"resource"},
	)

	// SnapshotErrors tracks store operation errors
	SnapshotErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvas_snapshot_errors_total",
			Help: "Total number of snapshot store errors",
		},
		[]string{"operation"}, // "get", "put", "delete"
	)
)
