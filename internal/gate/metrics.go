package gate

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricGateDecisionsTotal = "gate_decisions_total"
)

// Metrics contains Prometheus metrics for gate decisions.
// All operations are thread-safe.
type Metrics struct {
	decisionsTotal *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricGateDecisionsTotal,
				Help: "Total number of gate decisions by outcome",
			},
			[]string{"outcome"},
		),
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

// IncDecisionsTotal increments the decisions counter for an outcome.
func (m *Metrics) IncDecisionsTotal(outcome Outcome) {
	m.decisionsTotal.WithLabelValues(string(outcome)).Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.decisionsTotal,
	}
}
