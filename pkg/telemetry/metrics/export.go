package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/pivotal/pkg/config"
	"mercator-hq/pivotal/pkg/pivot"
)

// ExportMetrics tracks export runs.
//
// Metrics:
//   - pivotal_export_runs_total: export runs by sink and status
//   - pivotal_export_duration_seconds: export wall time by sink
//   - pivotal_export_chunks_total: drained chunks by status
//   - pivotal_export_chunk_duration_seconds: time to pivot one chunk
//   - pivotal_export_rows_total: rows accepted by each sink
//   - pivotal_export_state: state of the most recent run
type ExportMetrics struct {
	exportsTotal   *prometheus.CounterVec
	exportDuration *prometheus.HistogramVec
	chunksTotal    *prometheus.CounterVec
	chunkDuration  prometheus.Histogram
	rowsTotal      *prometheus.CounterVec
	state          prometheus.Gauge
}

// NewExportMetrics creates and registers export metrics with the provided registry.
func NewExportMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExportMetrics {
	em := &ExportMetrics{
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "export",
				Name:      "runs_total",
				Help:      "Total number of export runs",
			},
			[]string{"sink", "status"},
		),

		exportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "export",
				Name:      "duration_seconds",
				Help:      "Duration of export runs in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"sink"},
		),

		chunksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "export",
				Name:      "chunks_total",
				Help:      "Total number of drained chunks",
			},
			[]string{"status"},
		),

		chunkDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "export",
				Name:      "chunk_duration_seconds",
				Help:      "Time to read and pivot one chunk in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
		),

		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "export",
				Name:      "rows_total",
				Help:      "Total number of wide rows accepted by sinks",
			},
			[]string{"sink"},
		),

		state: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "export",
				Name:      "state",
				Help:      "State of the most recent export (0=idle 1=columns_discovered 2=workers_launched 3=draining 4=complete 5=failed)",
			},
		),
	}

	registry.MustRegister(
		em.exportsTotal,
		em.exportDuration,
		em.chunksTotal,
		em.chunkDuration,
		em.rowsTotal,
		em.state,
	)

	return em
}

// RecordExport records a finished export run.
//
// Parameters:
//   - sink: sink name ("csv", "sqlite", ...)
//   - status: "success", "partial" or "error"
//   - duration: wall time of the run
func (em *ExportMetrics) RecordExport(sink, status string, duration time.Duration) {
	em.exportsTotal.WithLabelValues(sink, status).Inc()
	em.exportDuration.WithLabelValues(sink).Observe(duration.Seconds())
}

// RecordChunk records one drained chunk. A chunk with err set is counted
// as failed; its rows are missing from the output.
func (em *ExportMetrics) RecordChunk(rows int, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	em.chunksTotal.WithLabelValues(status).Inc()
	em.chunkDuration.Observe(duration.Seconds())
}

// RecordRows adds rows accepted by sink.
func (em *ExportMetrics) RecordRows(sink string, rows int) {
	em.rowsTotal.WithLabelValues(sink).Add(float64(rows))
}

// SetState records the current export state.
func (em *ExportMetrics) SetState(state pivot.State) {
	em.state.Set(float64(state))
}
