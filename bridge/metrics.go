package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
)

// Call outcomes recorded in the requests counter
const (
	OutcomeAnswered    = "answered"
	OutcomeNotRoutable = "not_routable"
	OutcomeNotARequest = "not_a_request"
	OutcomeTimeout     = "timeout"
	OutcomeCancelled   = "cancelled"
	OutcomeFailed      = "failed"
)

// Dispatch failure reasons recorded in the dispatch errors counter
const (
	ReasonDuplicateAnswer = "duplicate_answer"
	ReasonForeignState    = "foreign_state"
)

// Metrics holds the bridge's Prometheus collectors
type Metrics struct {
	Requests       *prometheus.CounterVec
	InFlight       prometheus.Gauge
	WaitDuration   prometheus.Histogram
	DispatchErrors *prometheus.CounterVec
}

// NewMetrics creates unregistered collectors under namespace
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync_client",
			Name:      "requests_total",
			Help:      "Synchronous requests by outcome.",
		}, []string{"outcome"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync_client",
			Name:      "in_flight_requests",
			Help:      "Callers currently blocked waiting for an answer.",
		}),
		WaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync_client",
			Name:      "wait_duration_seconds",
			Help:      "Time from submission to answer for answered requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		DispatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync_client",
			Name:      "dispatch_errors_total",
			Help:      "Answers the engine dispatched that could not be delivered to a caller.",
		}, []string{"reason"}),
	}
}

// Collectors returns every collector
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Requests, m.InFlight, m.WaitDuration, m.DispatchErrors}
}

// Register registers every collector with reg
func (m *Metrics) Register(reg prometheus.Registerer) error {
	var err error
	for _, c := range m.Collectors() {
		err = multierr.Append(err, reg.Register(c))
	}
	return err
}

func (m *Metrics) outcome(outcome string) {
	m.Requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) dispatchError(reason string) {
	m.DispatchErrors.WithLabelValues(reason).Inc()
}
