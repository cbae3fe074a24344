package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/pivotal/pkg/config"
)

// PublishMetrics tracks uploads of export files to object storage.
type PublishMetrics struct {
	uploadsTotal   *prometheus.CounterVec
	uploadBytes    prometheus.Counter
	uploadDuration prometheus.Histogram
}

// NewPublishMetrics creates and registers publish metrics with the provided registry.
func NewPublishMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PublishMetrics {
	pm := &PublishMetrics{
		uploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "publish",
				Name:      "uploads_total",
				Help:      "Total number of export file uploads",
			},
			[]string{"status"},
		),

		uploadBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "publish",
				Name:      "bytes_total",
				Help:      "Total bytes uploaded",
			},
		),

		uploadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "publish",
				Name:      "upload_duration_seconds",
				Help:      "Duration of uploads in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	registry.MustRegister(pm.uploadsTotal, pm.uploadBytes, pm.uploadDuration)

	return pm
}

// RecordUpload records one upload. Bytes are only counted on success.
func (pm *PublishMetrics) RecordUpload(status string, bytes int64, duration time.Duration) {
	pm.uploadsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		pm.uploadBytes.Add(float64(bytes))
	}
	pm.uploadDuration.Observe(duration.Seconds())
}
