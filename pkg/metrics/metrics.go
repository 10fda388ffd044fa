// Package metrics exposes Prometheus instrumentation for the gate.
//
// Collection is opt-in: nothing is registered until InitRegistry is called,
// and every observation helper is a no-op while metrics are disabled, so
// the instrumented paths carry zero overhead by default.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	c        *gateCollectors
)

type gateCollectors struct {
	issuanceTotal     *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	upsertDuration    prometheus.Histogram
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	ttlExtensionTotal prometheus.Counter
}

// InitRegistry creates the metrics registry and registers all collectors.
// Safe to call once at process start; subsequent calls are ignored.
func InitRegistry() {
	mu.Lock()
	defer mu.Unlock()

	if registry != nil {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c = &gateCollectors{
		issuanceTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "esgate_issuance_total",
				Help: "Credential issuance attempts by outcome",
			},
			[]string{"outcome"}, // "issued", "cached", "failed"
		),
		cacheLookups: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "esgate_cache_lookups_total",
				Help: "Credential cache lookups by result",
			},
			[]string{"result"}, // "hit", "miss"
		),
		upsertDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "esgate_directory_upsert_duration_seconds",
				Help:    "Duration of directory user upserts",
				Buckets: prometheus.DefBuckets,
			},
		),
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "esgate_http_requests_total",
				Help: "HTTP requests by path and status code",
			},
			[]string{"path", "status"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "esgate_http_request_duration_seconds",
				Help:    "HTTP request duration by path",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		ttlExtensionTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "esgate_cache_ttl_extensions_total",
				Help: "Sliding-window TTL extensions of cached credentials",
			},
		),
	}
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the registry for the /metrics handler, or nil when
// metrics are disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

func get() *gateCollectors {
	mu.RLock()
	defer mu.RUnlock()
	return c
}

// ObserveIssuance counts an issuance attempt.
// Outcome is "issued" (fresh credential), "cached" (served from cache) or
// "failed".
func ObserveIssuance(outcome string) {
	if g := get(); g != nil {
		g.issuanceTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveCacheLookup counts a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	g := get()
	if g == nil {
		return
	}
	if hit {
		g.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		g.cacheLookups.WithLabelValues("miss").Inc()
	}
}

// ObserveUpsert records the duration of a directory upsert.
func ObserveUpsert(d time.Duration) {
	if g := get(); g != nil {
		g.upsertDuration.Observe(d.Seconds())
	}
}

// ObserveTTLExtension counts a sliding-window TTL refresh.
func ObserveTTLExtension() {
	if g := get(); g != nil {
		g.ttlExtensionTotal.Inc()
	}
}

// ObserveRequest records one completed HTTP request.
func ObserveRequest(path string, status int, d time.Duration) {
	g := get()
	if g == nil {
		return
	}
	g.requestsTotal.WithLabelValues(path, statusLabel(status)).Inc()
	g.requestDuration.WithLabelValues(path).Observe(d.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
