package geocode

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricGeocodeRequestsTotal    = "geocode_requests_total"
	MetricGeocodeRequestsDuration = "geocode_request_duration_seconds"
	MetricGeocodeErrorsTotal      = "geocode_errors_total"
)

// Operation constants for labeling.
const (
	OperationReverse = "reverse"
	OperationForward = "forward"
	OperationPostal  = "postal"
)

// Status constants for request completion.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics contains Prometheus metrics for geocoding operations.
// All operations are thread-safe.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestsDuration *prometheus.HistogramVec
	errorsTotal      *prometheus.CounterVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors
// initialized. The metrics are not registered; call Register to register
// them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricGeocodeRequestsTotal,
				Help: "Total number of geocoding requests by provider, operation, and status",
			},
			[]string{"provider", "operation", "status"},
		),
		requestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricGeocodeRequestsDuration,
				Help:    "Histogram of geocoding request duration in seconds by provider and operation",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"provider", "operation"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricGeocodeErrorsTotal,
				Help: "Total number of geocoding errors by provider, operation, and error type",
			},
			[]string{"provider", "operation", "error_type"},
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

// IncRequestsTotal increments the requests counter.
func (m *Metrics) IncRequestsTotal(provider, operation, status string) {
	m.requestsTotal.WithLabelValues(provider, operation, status).Inc()
}

// ObserveRequestDuration records a request duration sample.
func (m *Metrics) ObserveRequestDuration(provider, operation string, seconds float64) {
	m.requestsDuration.WithLabelValues(provider, operation).Observe(seconds)
}

// IncErrorsTotal increments the errors counter.
// errorType: one of "provider_unavailable", "no_address_found", "no_results_found".
func (m *Metrics) IncErrorsTotal(provider, operation, errorType string) {
	m.errorsTotal.WithLabelValues(provider, operation, errorType).Inc()
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requestsTotal,
		m.requestsDuration,
		m.errorsTotal,
	}
}
