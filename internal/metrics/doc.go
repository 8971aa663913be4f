// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

/*
Package metrics defines the Prometheus collectors exported at /metrics.

All collectors are registered on the default registry via promauto when
the package is initialized, so any package may record into them without
setup.

# Families

  - api_*: inbound request count, latency, in-flight and rate-limit rejections
  - cache_*: response cache hits, misses, size and sweeper evictions
  - upstream_*: outbound attempts by operation and status, latency,
    current backoff per endpoint, 429 retries, malformed fields
  - circuit_breaker_*: gobreaker state, transitions and outcomes
  - request_queue_*: depth, quota requeues, wait time and task outcomes
  - search_*: live sessions and upstream pages scanned
  - analytics_sample_fallbacks_total: responses served from sample data

# Example

	metrics.RecordCacheLookup("catalog", hit)
	metrics.QueueTasks.WithLabelValues("analytics", "ok").Inc()
*/
package metrics
