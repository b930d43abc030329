package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	RateLimitRejections prometheus.Counter
	AuthFailures        prometheus.Counter
	ValidationFailures  *prometheus.CounterVec
	QueriesProcessed    *prometheus.CounterVec
	UpstreamLatency     prometheus.Histogram
	EndpointLatency     *prometheus.HistogramVec
	TrackedClients      prometheus.Gauge
	SweeperRuns         *prometheus.CounterVec
	SweeperEvictions    prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RateLimitRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gateway_rate_limit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gateway_auth_failures_total",
			Help: "Total number of authentication failures",
		}),
		ValidationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_validation_failures_total",
			Help: "Total number of rejected query payloads, labeled by reason",
		}, []string{"reason"}),
		QueriesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_queries_total",
			Help: "Total number of queries forwarded to the engine, labeled by outcome",
		}, []string{"outcome"}),
		UpstreamLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_upstream_latency_seconds",
			Help:    "Latency of external query engine calls in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		TrackedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_rate_limit_tracked_clients",
			Help: "Current number of client identities held by the rate limiter",
		}),
		SweeperRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_rate_limit_sweeper_runs_total",
			Help: "Total number of rate limiter eviction sweeps, labeled by result",
		}, []string{"result"}),
		SweeperEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gateway_rate_limit_evictions_total",
			Help: "Total number of idle client identities evicted by the sweeper",
		}),
	}
}

func (m *Metrics) IncrementRateLimitRejections() {
	m.RateLimitRejections.Inc()
}

func (m *Metrics) IncrementAuthFailures() {
	m.AuthFailures.Inc()
}

// IncrementValidationFailures records a rejected payload with its reason
// (empty, too_long, or pattern).
func (m *Metrics) IncrementValidationFailures(reason string) {
	m.ValidationFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementQueriesProcessed(outcome string) {
	m.QueriesProcessed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveUpstreamLatency(durationSeconds float64) {
	m.UpstreamLatency.Observe(durationSeconds)
}

// ObserveEndpointLatency records the latency for a given endpoint.
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

func (m *Metrics) SetTrackedClients(count int) {
	m.TrackedClients.Set(float64(count))
}

func (m *Metrics) RecordSweep(result string, evicted int) {
	m.SweeperRuns.WithLabelValues(result).Inc()
	if evicted > 0 {
		m.SweeperEvictions.Add(float64(evicted))
	}
}
