package observability

import (
	"time"

	"github.com/regenpay/wallet-api/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the wallet API.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	spendDecisions  *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wallet_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		spendDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_spend_decisions_total",
				Help: "Total spend-authorization decisions by verdict.",
			},
			[]string{"verdict"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrSpendDecision increments the spend-decision counter. The
// indeterminate count in particular is watched: a rising value means
// spends are being waved through without a budget check.
func (m *Metrics) IncrSpendDecision(verdict domain.SpendVerdict) {
	m.spendDecisions.WithLabelValues(string(verdict)).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// GetOpsSnapshot returns a snapshot of operational metrics suitable for
// the GET /v1/metrics/ops endpoint.
func (m *Metrics) GetOpsSnapshot() *domain.OpsMetrics {
	// Prometheus counters expose cumulative values.
	totalRequests := getCounterValue(m.requestsTotal, "success") +
		getCounterValue(m.requestsTotal, "error")
	errorCount := getCounterValue(m.requestsTotal, "error")
	cacheHits := getCounterValue(m.cacheHits, "profile")
	cacheMisses := getCounterValue(m.cacheMisses, "profile")

	errorRate := float64(0)
	cacheHitRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	return &domain.OpsMetrics{
		TotalRequests:       int64(totalRequests),
		ErrorRate:           errorRate,
		CacheHitRate:        cacheHitRate,
		SpendsAllowed:       int64(getCounterValue(m.spendDecisions, string(domain.SpendAllowed))),
		SpendsDenied:        int64(getCounterValue(m.spendDecisions, string(domain.SpendDenied))),
		SpendsIndeterminate: int64(getCounterValue(m.spendDecisions, string(domain.SpendIndeterminate))),
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
