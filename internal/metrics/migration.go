// Package metrics provides prometheus collectors for migration runs
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MigrationMetrics contains Prometheus metrics for migration runs.
// A nil *MigrationMetrics is valid and records nothing.
type MigrationMetrics struct {
	rowsMigratedTotal    *prometheus.CounterVec
	rowsSkippedTotal     *prometheus.CounterVec
	batchesFailedTotal   *prometheus.CounterVec
	batchDurationSeconds *prometheus.HistogramVec
	rowsLinkedTotal      *prometheus.CounterVec
	affiliatesRecounted  *prometheus.CounterVec
	stageCompletedTotal  *prometheus.CounterVec
}

// NewMigrationMetrics creates and registers migration metrics
func NewMigrationMetrics(registry prometheus.Registerer) (*MigrationMetrics, error) {
	m := &MigrationMetrics{
		rowsMigratedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affiliate_migration_rows_migrated_total",
			Help: "Source rows read and committed per stage",
		}, []string{"source", "stage"}),
		rowsSkippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affiliate_migration_rows_skipped_total",
			Help: "Source rows that could not be mapped",
		}, []string{"source", "stage"}),
		batchesFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affiliate_migration_batches_failed_total",
			Help: "Batches rolled back because of an error",
		}, []string{"source", "stage"}),
		batchDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "affiliate_migration_batch_duration_seconds",
			Help:    "Time taken to read, map and commit one batch",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}, []string{"source", "stage"}),
		rowsLinkedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affiliate_migration_rows_linked_total",
			Help: "Rows updated by post-migration linking",
		}, []string{"source", "pass"}),
		affiliatesRecounted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affiliate_migration_affiliates_recounted_total",
			Help: "Affiliates whose earnings aggregates were recomputed",
		}, []string{"source"}),
		stageCompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "affiliate_migration_stage_completed_total",
			Help: "Stage transitions per source",
		}, []string{"source", "stage"}),
	}

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements prometheus.Collector
func (m *MigrationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.rowsMigratedTotal.Describe(ch)
	m.rowsSkippedTotal.Describe(ch)
	m.batchesFailedTotal.Describe(ch)
	m.batchDurationSeconds.Describe(ch)
	m.rowsLinkedTotal.Describe(ch)
	m.affiliatesRecounted.Describe(ch)
	m.stageCompletedTotal.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *MigrationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.rowsMigratedTotal.Collect(ch)
	m.rowsSkippedTotal.Collect(ch)
	m.batchesFailedTotal.Collect(ch)
	m.batchDurationSeconds.Collect(ch)
	m.rowsLinkedTotal.Collect(ch)
	m.affiliatesRecounted.Collect(ch)
	m.stageCompletedTotal.Collect(ch)
}

// RecordBatch records a committed batch
func (m *MigrationMetrics) RecordBatch(source, stage string, fetched, skipped int, duration time.Duration) {
	if m == nil {
		return
	}
	m.rowsMigratedTotal.WithLabelValues(source, stage).Add(float64(fetched))
	if skipped > 0 {
		m.rowsSkippedTotal.WithLabelValues(source, stage).Add(float64(skipped))
	}
	m.batchDurationSeconds.WithLabelValues(source, stage).Observe(duration.Seconds())
}

// RecordBatchFailure records a rolled back batch
func (m *MigrationMetrics) RecordBatchFailure(source, stage string) {
	if m == nil {
		return
	}
	m.batchesFailedTotal.WithLabelValues(source, stage).Inc()
}

// RecordLinked records rows updated by a linking pass
func (m *MigrationMetrics) RecordLinked(source, pass string, rows int64) {
	if m == nil || rows <= 0 {
		return
	}
	m.rowsLinkedTotal.WithLabelValues(source, pass).Add(float64(rows))
}

// RecordRecounted records affiliates processed by the earnings recount
func (m *MigrationMetrics) RecordRecounted(source string, affiliates int) {
	if m == nil || affiliates <= 0 {
		return
	}
	m.affiliatesRecounted.WithLabelValues(source).Add(float64(affiliates))
}

// RecordStageCompleted records a stage transition
func (m *MigrationMetrics) RecordStageCompleted(source, stage string) {
	if m == nil {
		return
	}
	m.stageCompletedTotal.WithLabelValues(source, stage).Inc()
}
