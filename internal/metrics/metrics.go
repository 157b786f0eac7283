package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Counters
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Requests issued to Wikimedia endpoints",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Retried upstream requests",
		},
		[]string{"endpoint"},
	)

	CollectorFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_failures_total",
			Help: "Collector runs that returned an error and were zeroed",
		},
		[]string{"metric"},
	)

	WorkItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "work_items_total",
			Help: "Dispatched (metric, language, batch) work items by outcome",
		},
		[]string{"outcome"},
	)

	AnalysesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "analyses_total",
			Help: "Completed analyses",
		},
	)

	PagesScoredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pages_scored_total",
			Help: "Pages scored, by language edition",
		},
		[]string{"language"},
	)

	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "API requests",
		},
		[]string{"endpoint", "method"},
	)

	APIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "API errors by error code",
		},
		[]string{"error_code"},
	)

	RateLimitHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limit_hits_total",
			Help: "Rate limiter hits",
		},
	)

	TasksEvictedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_evicted_total",
			Help: "Analysis tasks evicted from the registry",
		},
		[]string{"reason"},
	)

	// Gauges
	WorkerPoolSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_pool_size",
			Help: "Worker ceiling of the analysis currently running",
		},
	)

	TasksActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tasks_active",
			Help: "Analysis tasks currently processing",
		},
	)

	APIRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_requests_in_flight",
			Help: "API requests currently being served",
		},
	)

	// Histograms
	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Latency of upstream requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	WorkItemDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "work_item_duration_seconds",
			Help:    "Duration of one work item",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"metric"},
	)

	AnalysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "End-to-end duration of a full analysis",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	APIResponseSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_response_size_bytes",
			Help:    "API response sizes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
		[]string{"endpoint"},
	)

	initOnce sync.Once
)

// InitMetrics registers all metrics with Prometheus. Safe to call more than
// once; only the first call registers.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			UpstreamRequestsTotal,
			UpstreamRetriesTotal,
			CollectorFailuresTotal,
			WorkItemsTotal,
			AnalysesTotal,
			PagesScoredTotal,
			APIRequestsTotal,
			APIErrorsTotal,
			RateLimitHitsTotal,
			TasksEvictedTotal,

			WorkerPoolSize,
			TasksActive,
			APIRequestsInFlight,

			UpstreamRequestDuration,
			WorkItemDuration,
			AnalysisDuration,
			APIRequestDuration,
			APIResponseSizeBytes,
		)
	})
}
