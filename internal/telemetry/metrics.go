package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hvac_gateway"

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeNotReady = "not_ready"
)

// Metrics tracks provider health and gateway traffic.
//
// Metrics:
//   - hvac_gateway_provider_available: availability flag per provider (1/0)
//   - hvac_gateway_provider_requests_total: adapter calls by provider and outcome
//   - hvac_gateway_provider_latency_seconds: adapter call latency
//   - hvac_gateway_operation_requests_total: gateway operations by outcome
//   - hvac_gateway_fallback_attempts: providers tried per fallback call
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	available        *prometheus.GaugeVec
	providerRequests *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	operations       *prometheus.CounterVec
	fallbackAttempts prometheus.Histogram
}

// NewMetrics creates the gateway metrics on a fresh registry, together with
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		available: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "provider_available",
				Help:      "Provider availability flag (1=available, 0=unavailable)",
			},
			[]string{"provider"},
		),

		providerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total number of adapter calls by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),

		providerLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_latency_seconds",
				Help:      "Adapter call latency in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),

		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operation_requests_total",
				Help:      "Total number of gateway operations by outcome",
			},
			[]string{"operation", "outcome"},
		),

		fallbackAttempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fallback_attempts",
				Help:      "Number of providers tried per fallback call",
				Buckets:   []float64{0, 1, 2, 3, 4},
			},
		),
	}

	m.registry.MustRegister(
		m.available,
		m.providerRequests,
		m.providerLatency,
		m.operations,
		m.fallbackAttempts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// SetAvailable records a provider's availability flag.
func (m *Metrics) SetAvailable(provider string, available bool) {
	if m == nil {
		return
	}
	value := 0.0
	if available {
		value = 1.0
	}
	m.available.WithLabelValues(provider).Set(value)
}

// ObserveProviderCall records one adapter call.
func (m *Metrics) ObserveProviderCall(provider, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.providerRequests.WithLabelValues(provider, outcome).Inc()
	if outcome != OutcomeNotReady {
		m.providerLatency.WithLabelValues(provider).Observe(latency.Seconds())
	}
}

// ObserveOperation records one gateway operation.
func (m *Metrics) ObserveOperation(operation string, success bool) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeError
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// ObserveFallback records how many providers one fallback call tried.
func (m *Metrics) ObserveFallback(tried int) {
	if m == nil {
		return
	}
	m.fallbackAttempts.Observe(float64(tried))
}
