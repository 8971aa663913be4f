// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

/*
Package middleware provides HTTP middleware components for the proxy API.

Every component has the chi-compatible signature
func(http.Handler) http.Handler and can be passed to Router.Use.

Key Components:

  - RequestID: X-Request-ID propagation (UUID v4 when absent)
  - ClientID: resolves the caller identity used to key search sessions
  - RequestLogger: one structured zerolog line per request
  - PrometheusMetrics: request count, latency and in-flight gauge
  - Compression: gzip for clients that accept it
  - PerformanceMonitor: sliding-window latency percentiles per route

Middleware Stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientID)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.PrometheusMetrics)
	r.Use(perf.Middleware)
	r.Use(middleware.Compression)

Metrics and the performance monitor label requests with the chi route
pattern (for example "/api/v1/tracks/search") rather than the raw path,
so query strings and unmatched paths cannot blow up label cardinality.

Client Identity:

A search session belongs to one client. The client is the value of the
X-Client-ID header when present (trimmed, at most 128 bytes), otherwise
the remote IP without its port.
*/
package middleware
