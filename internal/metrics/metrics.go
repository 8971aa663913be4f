// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "api_request_duration_seconds",
			Help: "API request duration in seconds",
			// Analytics range requests can queue for tens of seconds.
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of inbound rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Response Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"cache_type"}, // "catalog", "report"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of response cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache entries removed by the sweeper",
		},
		[]string{"cache_type"},
	)

	// Upstream Client Metrics
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Total number of upstream HTTP attempts",
		},
		[]string{"operation", "status"}, // status: HTTP code or "network_error"
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream HTTP attempt duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	UpstreamBackoff = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "upstream_backoff_seconds",
			Help: "Current per-endpoint backoff interval in seconds",
		},
		[]string{"endpoint"},
	)

	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_rate_limit_retries_total",
			Help: "Total number of retries after upstream rate limiting",
		},
		[]string{"endpoint"},
	)

	MalformedFields = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_malformed_fields_total",
			Help: "Total number of upstream fields that failed to parse and were degraded",
		},
		[]string{"field"},
	)

	SampleFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_sample_fallbacks_total",
			Help: "Total number of analytics responses served from generated sample data",
		},
		[]string{"reason"}, // "rate_limited", "no_data"
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected", or an upstream error kind
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Request Queue Metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "request_queue_depth",
			Help: "Number of upstream requests waiting in the priority queue",
		},
	)

	QueueRequeues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "request_queue_requeues_total",
			Help: "Total number of items requeued at lower priority because their class quota was used up",
		},
		[]string{"class"},
	)

	QueueWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_queue_wait_seconds",
			Help:    "Time from enqueue to dispatch in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"class"},
	)

	QueueTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "request_queue_tasks_total",
			Help: "Total number of queued tasks by outcome",
		},
		[]string{"class", "status"}, // status: "ok", "error", "cancelled"
	)

	// Search Accumulator Metrics
	SearchSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "search_sessions_active",
			Help: "Current number of search sessions held in memory",
		},
	)

	SearchPagesScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_upstream_pages_scanned_total",
			Help: "Total number of upstream catalog pages scanned by search sessions",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCacheLookup counts a hit or miss for cacheType.
func RecordCacheLookup(cacheType string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cacheType).Inc()
		return
	}
	CacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordCacheSweep publishes the result of one sweeper pass.
func RecordCacheSweep(cacheType string, removed, remaining int) {
	CacheEvictions.WithLabelValues(cacheType).Add(float64(removed))
	CacheSize.WithLabelValues(cacheType).Set(float64(remaining))
}

// RecordBackoff publishes the backoff interval of an endpoint. A retry is
// counted whenever the interval grows past zero.
func RecordBackoff(endpoint string, backoff time.Duration) {
	UpstreamBackoff.WithLabelValues(endpoint).Set(backoff.Seconds())
	if backoff > 0 {
		UpstreamRetries.WithLabelValues(endpoint).Inc()
	}
}

// RecordSampleFallback counts an analytics response served from sample data.
func RecordSampleFallback(reason string) {
	SampleFallbacks.WithLabelValues(reason).Inc()
}

// SetAppInfo publishes build information.
func SetAppInfo(version, goVersion string) {
	AppInfo.WithLabelValues(version, goVersion).Set(1)
}
