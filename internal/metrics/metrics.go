package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the reconciliation counters on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	countryRuns     *prometheus.CounterVec
	countryDuration prometheus.Histogram
	fetchCache      *prometheus.CounterVec
	fetchFailures   *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	queueDepth      prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		countryRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broadcast_review_country_runs_total",
			Help: "Country reconciliations by outcome.",
		}, []string{"outcome"}),
		countryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "broadcast_review_country_duration_seconds",
			Help:    "Time to fetch, reconcile and store one country.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		fetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broadcast_review_fetch_cache_total",
			Help: "Source fetch cache lookups by source and result.",
		}, []string{"source", "result"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "broadcast_review_fetch_failures_total",
			Help: "Source fetches that fell back to an empty table.",
		}, []string{"source"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "broadcast_review_source_breaker_state",
			Help: "Source circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"source"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "broadcast_review_queue_depth",
			Help: "Country jobs waiting in the queue.",
		}),
	}

	m.registry.MustRegister(
		m.countryRuns,
		m.countryDuration,
		m.fetchCache,
		m.fetchFailures,
		m.breakerState,
		m.queueDepth,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) CountryFinished(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.countryRuns.WithLabelValues(outcome).Inc()
	m.countryDuration.Observe(took.Seconds())
}

func (m *Metrics) CacheHit(source string) {
	if m == nil {
		return
	}
	m.fetchCache.WithLabelValues(source, "hit").Inc()
}

func (m *Metrics) CacheMiss(source string) {
	if m == nil {
		return
	}
	m.fetchCache.WithLabelValues(source, "miss").Inc()
}

func (m *Metrics) FetchFailed(source string) {
	if m == nil {
		return
	}
	m.fetchFailures.WithLabelValues(source).Inc()
}

// SetBreakerState records a breaker state by name ("closed", "half-open", "open").
func (m *Metrics) SetBreakerState(source, state string) {
	if m == nil {
		return
	}
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.breakerState.WithLabelValues(source).Set(v)
}

func (m *Metrics) SetQueueDepth(n int64) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
