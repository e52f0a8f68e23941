package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run holds the metrics of a single sweep. It owns its registry; a one-shot
// process has no scrape endpoint, so results are written for node_exporter's
// textfile collector instead.
type Run struct {
	registry *prometheus.Registry

	// SnapshotsDeleted counts snapshots whose batch was destroyed
	SnapshotsDeleted prometheus.Counter
	// SnapshotsQueued is the size of the deletion set
	SnapshotsQueued prometheus.Gauge
	// SnapshotsExcluded is the number protected by the exclusion file
	SnapshotsExcluded prometheus.Gauge
	// SnapshotsMalformed counts listed names that did not parse
	SnapshotsMalformed prometheus.Gauge

	// BatchesTotal tracks batches by status (ok, failed)
	BatchesTotal *prometheus.CounterVec
	// BatchDuration tracks each destroy call
	BatchDuration prometheus.Histogram

	RunDuration      prometheus.Histogram
	LastRunTimestamp prometheus.Gauge
	// LastRunState is 1 for the terminal state of the run, 0 otherwise
	LastRunState *prometheus.GaugeVec
}

// New creates and registers the metrics for one pool
func New(pool string) *Run {
	labels := prometheus.Labels{"pool": pool}
	m := &Run{
		registry: prometheus.NewRegistry(),
		SnapshotsDeleted: NewCounter(
			"snapsweeper_snapshots_deleted_total",
			"Snapshots destroyed in this run.",
			labels,
		),
		SnapshotsQueued: NewGauge(
			"snapsweeper_snapshots_queued",
			"Snapshots selected for deletion in this run.",
			labels,
		),
		SnapshotsExcluded: NewGauge(
			"snapsweeper_snapshots_excluded",
			"Snapshots protected by the exclusion list in this run.",
			labels,
		),
		SnapshotsMalformed: NewGauge(
			"snapsweeper_snapshots_unrecognized",
			"Listed snapshot names that do not follow the managed format.",
			labels,
		),
		BatchesTotal: NewCounterVec(
			"snapsweeper_batches_total",
			"Destroy batches processed, by status.",
			labels,
			[]string{"status"},
		),
		BatchDuration: NewDurationHistogram(
			"snapsweeper_batch_duration_seconds",
			"Duration of individual destroy batches in seconds.",
			labels,
		),
		RunDuration: NewDurationHistogram(
			"snapsweeper_run_duration_seconds",
			"Duration of the whole run in seconds.",
			labels,
		),
		LastRunTimestamp: NewGauge(
			"snapsweeper_last_run_timestamp",
			"Timestamp of the run (Unix epoch seconds).",
			labels,
		),
		LastRunState: NewGaugeVec(
			"snapsweeper_last_run_state",
			"Terminal state of the run (1 for the state reached).",
			labels,
			[]string{"state"},
		),
	}

	m.registry.MustRegister(
		m.SnapshotsDeleted,
		m.SnapshotsQueued,
		m.SnapshotsExcluded,
		m.SnapshotsMalformed,
		m.BatchesTotal,
		m.BatchDuration,
		m.RunDuration,
		m.LastRunTimestamp,
		m.LastRunState,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *Run) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveBatch records one destroy call. destroyed counts the snapshots
// actually removed, which a failed batch may still have done in part.
func (m *Run) ObserveBatch(destroyed int, ok bool, d time.Duration) {
	m.BatchDuration.Observe(d.Seconds())
	m.SnapshotsDeleted.Add(float64(destroyed))
	if ok {
		m.BatchesTotal.WithLabelValues("ok").Inc()
		return
	}
	m.BatchesTotal.WithLabelValues("failed").Inc()
}

// RecordSelection sets the per-run selection gauges
func (m *Run) RecordSelection(queued, excluded, malformed int) {
	m.SnapshotsQueued.Set(float64(queued))
	m.SnapshotsExcluded.Set(float64(excluded))
	m.SnapshotsMalformed.Set(float64(malformed))
}

// Finish stamps the run with its terminal state and duration
func (m *Run) Finish(state string, started, now time.Time) {
	m.LastRunState.Reset()
	m.LastRunState.WithLabelValues(state).Set(1)
	m.LastRunTimestamp.Set(float64(now.Unix()))
	m.RunDuration.Observe(now.Sub(started).Seconds())
}

// WriteTextfile atomically writes the registry in the text exposition format
func (m *Run) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
