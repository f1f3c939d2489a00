// Package metrics holds the Prometheus collectors exported on /metrics.
// Every method is safe on a nil *Registry so components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all holdfast metrics
type Registry struct {
	reg *prometheus.Registry

	LedgerMutations *prometheus.CounterVec
	LedgerReplays   prometheus.Counter
	LedgerRejected  *prometheus.CounterVec

	FeedLatency  *prometheus.HistogramVec
	QuoteResults *prometheus.CounterVec
	CacheHits    *prometheus.CounterVec
	CacheMisses  *prometheus.CounterVec

	HTTPDuration *prometheus.HistogramVec
	JobRuns      *prometheus.CounterVec
}

// New creates a registry with Go runtime and process collectors attached
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		LedgerMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holdfast_ledger_mutations_total",
				Help: "Committed ledger mutations by operation",
			},
			[]string{"operation"},
		),
		LedgerReplays: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "holdfast_ledger_replays_total",
				Help: "Full position rebuilds from the transaction log",
			},
		),
		LedgerRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holdfast_ledger_rejected_total",
				Help: "Ledger mutations rejected by error kind",
			},
			[]string{"operation", "kind"},
		),
		FeedLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "holdfast_price_feed_duration_seconds",
				Help:    "Latency of price feed requests",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "result"},
		),
		QuoteResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holdfast_quotes_total",
				Help: "Quote lookups by resulting status",
			},
			[]string{"status"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holdfast_cache_hits_total",
				Help: "Price cache hits by cache type",
			},
			[]string{"cache_type"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holdfast_cache_misses_total",
				Help: "Price cache misses by cache type",
			},
			[]string{"cache_type"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "holdfast_http_request_duration_seconds",
				Help:    "HTTP request latency by route and status class",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		JobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holdfast_job_runs_total",
				Help: "Scheduled job executions by job and result",
			},
			[]string{"job", "result"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.LedgerMutations,
		r.LedgerReplays,
		r.LedgerRejected,
		r.FeedLatency,
		r.QuoteResults,
		r.CacheHits,
		r.CacheMisses,
		r.HTTPDuration,
		r.JobRuns,
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) RecordMutation(operation string) {
	if r == nil {
		return
	}
	r.LedgerMutations.WithLabelValues(operation).Inc()
}

func (r *Registry) RecordReplay() {
	if r == nil {
		return
	}
	r.LedgerReplays.Inc()
}

func (r *Registry) RecordRejected(operation, kind string) {
	if r == nil {
		return
	}
	r.LedgerRejected.WithLabelValues(operation, kind).Inc()
}

func (r *Registry) ObserveFeed(endpoint string, started time.Time, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.FeedLatency.WithLabelValues(endpoint, result).Observe(time.Since(started).Seconds())
}

func (r *Registry) RecordQuote(status string) {
	if r == nil {
		return
	}
	r.QuoteResults.WithLabelValues(status).Inc()
}

func (r *Registry) RecordCache(cacheType string, hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheHits.WithLabelValues(cacheType).Inc()
	} else {
		r.CacheMisses.WithLabelValues(cacheType).Inc()
	}
}

func (r *Registry) ObserveHTTP(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.HTTPDuration.WithLabelValues(method, route, statusClass(status)).Observe(d.Seconds())
}

func (r *Registry) RecordJob(job string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.JobRuns.WithLabelValues(job, result).Inc()
}

func statusClass(status int) string {
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
