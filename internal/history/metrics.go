package history

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricVisitsRecordedTotal = "history_visits_recorded_total"
	MetricVisitsDroppedTotal  = "history_visits_dropped_total"
	MetricVisitErrorsTotal    = "history_visit_errors_total"
	MetricQueueDepth          = "history_queue_depth"
)

// Metrics contains Prometheus metrics for the visit writer.
// All operations are thread-safe.
type Metrics struct {
	visitsRecorded prometheus.Counter
	visitsDropped  prometheus.Counter
	visitErrors    prometheus.Counter
	queueDepth     prometheus.Gauge
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		visitsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricVisitsRecordedTotal,
			Help: "Total number of visits written to storage",
		}),
		visitsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricVisitsDroppedTotal,
			Help: "Total number of visits dropped because the queue was full",
		}),
		visitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricVisitErrorsTotal,
			Help: "Total number of visit storage write failures",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricQueueDepth,
			Help: "Current number of visits waiting in the write queue",
		}),
	}
}

// Register registers all metrics with the given registry.
// Returns an error if registration fails.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncVisitsRecorded increments the recorded visits counter.
func (m *Metrics) IncVisitsRecorded() {
	m.visitsRecorded.Inc()
}

// IncVisitsDropped increments the dropped visits counter.
func (m *Metrics) IncVisitsDropped() {
	m.visitsDropped.Inc()
}

// IncVisitErrors increments the write errors counter.
func (m *Metrics) IncVisitErrors() {
	m.visitErrors.Inc()
}

// SetQueueDepth sets the queue depth gauge.
func (m *Metrics) SetQueueDepth(depth float64) {
	m.queueDepth.Set(depth)
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.visitsRecorded,
		m.visitsDropped,
		m.visitErrors,
		m.queueDepth,
	}
}
