// Package metrics holds the prometheus collectors for contract calls and
// the HTTP layer.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "orchestrator"

// call outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeReverted  = "reverted"
	OutcomeError     = "error"
	OutcomeDuplicate = "duplicate"
)

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	calls           *prometheus.CounterVec
	submitDuration  *prometheus.HistogramVec
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "calls_total",
				Help:      "Contract calls by kind, contract, method and outcome",
			},
			[]string{"kind", "contract", "method", "outcome"},
		),
		submitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "submit_duration_seconds",
				Help:      "Time from broadcast to confirmed receipt",
				Buckets:   []float64{1, 2, 5, 10, 15, 30, 60, 120, 300},
			},
			[]string{"contract", "method"},
		),
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"method", "path"},
		),
	}
}

func (m *Metrics) ObserveCall(kind, contract, method, outcome string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(kind, contract, method, outcome).Inc()
}

func (m *Metrics) ObserveSubmit(contract, method string, d time.Duration) {
	if m == nil {
		return
	}
	m.submitDuration.WithLabelValues(contract, method).Observe(d.Seconds())
}

func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
