// Package metrics provides Prometheus metrics for the context service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the service's collectors on a dedicated prometheus registry
type Registry struct {
	registry *prometheus.Registry

	Cache    *CacheMetrics
	Upstream *UpstreamMetrics
	Refresh  *RefreshMetrics
}

// CacheMetrics tracks freshness-bounded cache behaviour per named cache
type CacheMetrics struct {
	Hits         *prometheus.CounterVec
	Misses       *prometheus.CounterVec
	LoadFailures *prometheus.CounterVec
	StaleServed  *prometheus.CounterVec
}

// UpstreamMetrics tracks calls to external providers
type UpstreamMetrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// RefreshMetrics tracks background dataset refreshes
type RefreshMetrics struct {
	Runs        *prometheus.CounterVec
	LastSuccess *prometheus.GaugeVec
}

// NewRegistry creates and registers all collectors
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,
		Cache: &CacheMetrics{
			Hits: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "waiver_cache_hits_total",
					Help: "Cache reads served from a live entry",
				},
				[]string{"cache"},
			),
			Misses: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "waiver_cache_misses_total",
					Help: "Cache reads that invoked the loader",
				},
				[]string{"cache"},
			),
			LoadFailures: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "waiver_cache_load_failures_total",
					Help: "Loader invocations that returned an error",
				},
				[]string{"cache"},
			),
			StaleServed: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "waiver_cache_stale_served_total",
					Help: "Reads answered with an expired entry after a failed reload",
				},
				[]string{"cache"},
			),
		},
		Upstream: &UpstreamMetrics{
			Requests: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "waiver_upstream_requests_total",
					Help: "Requests made to external providers",
				},
				[]string{"provider", "outcome"},
			),
			Duration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "waiver_upstream_request_duration_seconds",
					Help:    "Latency of external provider requests",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
		},
		Refresh: &RefreshMetrics{
			Runs: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "waiver_dataset_refresh_total",
					Help: "Background dataset refresh attempts",
				},
				[]string{"dataset", "outcome"},
			),
			LastSuccess: prometheus.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "waiver_dataset_last_success_timestamp_seconds",
					Help: "Unix time of the last successful refresh",
				},
				[]string{"dataset"},
			),
		},
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Cache.Hits,
		r.Cache.Misses,
		r.Cache.LoadFailures,
		r.Cache.StaleServed,
		r.Upstream.Requests,
		r.Upstream.Duration,
		r.Refresh.Runs,
		r.Refresh.LastSuccess,
	)

	return r
}

// Handler exposes the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests and exporters
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (m *CacheMetrics) Hit(cache string) {
	if m != nil {
		m.Hits.WithLabelValues(cache).Inc()
	}
}

func (m *CacheMetrics) Miss(cache string) {
	if m != nil {
		m.Misses.WithLabelValues(cache).Inc()
	}
}

func (m *CacheMetrics) LoadFailed(cache string) {
	if m != nil {
		m.LoadFailures.WithLabelValues(cache).Inc()
	}
}

func (m *CacheMetrics) Stale(cache string) {
	if m != nil {
		m.StaleServed.WithLabelValues(cache).Inc()
	}
}

// Observe records one upstream call
func (m *UpstreamMetrics) Observe(provider string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.Requests.WithLabelValues(provider, outcome).Inc()
	m.Duration.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

// Record notes the outcome of a dataset refresh
func (m *RefreshMetrics) Record(dataset string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.Runs.WithLabelValues(dataset, "error").Inc()
		return
	}
	m.Runs.WithLabelValues(dataset, "success").Inc()
	m.LastSuccess.WithLabelValues(dataset).SetToCurrentTime()
}
