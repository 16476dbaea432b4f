// Package metrics holds the Prometheus collectors of the backup engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackupRunsTotal counts finished backup runs.
	// Labels:
	//   - kind: "scheduled", "manual"
	//   - status: "completed", "failed"
	BackupRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_backup_runs_total",
			Help: "Total number of finished backup runs",
		},
		[]string{"kind", "status"},
	)

	// BackupDuration measures a run from ledger begin to its terminal state.
	BackupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenantvault_backup_duration_seconds",
			Help:    "Duration of backup runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"kind"},
	)

	SnapshotSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tenantvault_snapshot_size_bytes",
			Help:    "Size of written snapshot objects in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	SnapshotRecords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tenantvault_snapshot_records",
			Help:    "Number of records exported per snapshot",
			Buckets: prometheus.ExponentialBuckets(10, 4, 10),
		},
	)

	// TableExportFailures counts tables omitted from a snapshot after a read error.
	TableExportFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_table_export_failures_total",
			Help: "Total number of tables omitted from snapshots because the read failed",
		},
		[]string{"table"},
	)

	PrunedSnapshotsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tenantvault_pruned_snapshots_total",
			Help: "Total number of snapshots removed by retention",
		},
	)

	// TenantsEvaluated counts tenants seen by the scheduler.
	// Labels:
	//   - outcome: "skipped", "triggered", "failed"
	TenantsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantvault_tenants_evaluated_total",
			Help: "Total number of tenant evaluations by outcome",
		},
		[]string{"outcome"},
	)

	// StuckRuns is the number of in_progress runs older than the stuck threshold
	// as of the last scheduler pass.
	StuckRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenantvault_stuck_runs",
			Help: "Backup runs left in_progress longer than the stuck threshold",
		},
	)
)
