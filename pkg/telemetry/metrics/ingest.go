package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/pivotal/pkg/config"
)

// IngestMetrics tracks loading of long-format input into the staging store.
//
// Metrics:
//   - pivotal_ingest_attributes_total: attached attributes
//   - pivotal_ingest_attach_failures_total: attributes skipped by the store
//   - pivotal_ingest_runs_total: ingest runs by format
//   - pivotal_ingest_duration_seconds: ingest wall time by format
//   - pivotal_ingest_entities: entities in the store after the last ingest
type IngestMetrics struct {
	attributesTotal prometheus.Counter
	failuresTotal   prometheus.Counter
	runsTotal       *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	entities        prometheus.Gauge
}

// NewIngestMetrics creates and registers ingest metrics with the provided registry.
func NewIngestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *IngestMetrics {
	im := &IngestMetrics{
		attributesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "ingest",
				Name:      "attributes_total",
				Help:      "Total number of attributes attached to entities",
			},
		),

		failuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "ingest",
				Name:      "attach_failures_total",
				Help:      "Total number of attributes the store refused",
			},
		),

		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "ingest",
				Name:      "runs_total",
				Help:      "Total number of ingest runs",
			},
			[]string{"format"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "ingest",
				Name:      "duration_seconds",
				Help:      "Duration of ingest runs in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"format"},
		),

		entities: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: "ingest",
				Name:      "entities",
				Help:      "Number of entities in the staging store after the last ingest",
			},
		),
	}

	registry.MustRegister(
		im.attributesTotal,
		im.failuresTotal,
		im.runsTotal,
		im.duration,
		im.entities,
	)

	return im
}

// RecordAttach adds the outcome of one batch attach.
func (im *IngestMetrics) RecordAttach(attached, failed int) {
	im.attributesTotal.Add(float64(attached))
	im.failuresTotal.Add(float64(failed))
}

// RecordRun records a finished ingest.
func (im *IngestMetrics) RecordRun(format string, entities int64, duration time.Duration) {
	im.runsTotal.WithLabelValues(format).Inc()
	im.duration.WithLabelValues(format).Observe(duration.Seconds())
	im.entities.Set(float64(entities))
}
