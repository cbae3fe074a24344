package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/pivotal/pkg/config"
	"mercator-hq/pivotal/pkg/eav"
	"mercator-hq/pivotal/pkg/pivot"
)

// Collector owns the Prometheus registry for one process and records
// export, ingest and publish metrics. It implements pivot.Observer so an
// Exporter can report to it directly.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	exportMetrics  *ExportMetrics
	ingestMetrics  *IngestMetrics
	publishMetrics *PublishMetrics

	// Sink names come from configuration, but custom sinks can report
	// arbitrary names.
	cardinalityLimiter *CardinalityLimiter
}

var _ pivot.Observer = (*Collector)(nil)

// NewCollector creates a collector registered on registry. A nil registry
// gets a fresh private one so tests and repeated runs never collide with
// the global default.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(64),
	}

	c.exportMetrics = NewExportMetrics(cfg, registry)
	c.ingestMetrics = NewIngestMetrics(cfg, registry)
	c.publishMetrics = NewPublishMetrics(cfg, registry)

	return c
}

// StateChanged implements pivot.Observer.
func (c *Collector) StateChanged(state pivot.State) {
	if !c.config.Enabled {
		return
	}
	c.exportMetrics.SetState(state)
}

// ChunkCompleted implements pivot.Observer.
func (c *Collector) ChunkCompleted(_ int, rows int, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	c.exportMetrics.RecordChunk(rows, duration, err)
}

// RowsWritten implements pivot.Observer.
func (c *Collector) RowsWritten(sink string, rows int) {
	if !c.config.Enabled {
		return
	}
	c.exportMetrics.RecordRows(c.sinkLabel(sink), rows)
}

// ExportCompleted implements pivot.Observer.
func (c *Collector) ExportCompleted(report *pivot.Report, err error) {
	if !c.config.Enabled {
		return
	}

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case report != nil && !report.OK():
		status = "partial"
	}

	sink := "unknown"
	var duration time.Duration
	if report != nil {
		sink = report.Sink
		duration = report.Duration
	}

	c.exportMetrics.RecordExport(c.sinkLabel(sink), status, duration)
}

// RecordAttach records the outcome of one batch attach during ingest.
func (c *Collector) RecordAttach(result eav.AttachResult) {
	if !c.config.Enabled {
		return
	}
	c.ingestMetrics.RecordAttach(result.Attached, len(result.Failed))
}

// RecordIngest records a finished ingest run.
//
// Parameters:
//   - format: input format ("csv", "jsonl", "demo")
//   - entities: number of entities in the store afterwards
//   - duration: wall time of the ingest
func (c *Collector) RecordIngest(format string, entities int64, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.ingestMetrics.RecordRun(format, entities, duration)
}

// RecordPublish records one upload of an export file.
func (c *Collector) RecordPublish(status string, bytes int64, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.publishMetrics.RecordUpload(status, bytes, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) sinkLabel(sink string) string {
	if !c.cardinalityLimiter.Allow(sink) {
		return "other"
	}
	return sink
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is already tracked or still fits under
// the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
