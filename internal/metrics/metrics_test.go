// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/tracks", "200"))

	RecordAPIRequest("GET", "/api/v1/tracks", 200, 15*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/tracks", "200"))
	if after-before != 1 {
		t.Errorf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	start := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != start+2 {
		t.Errorf("expected %v active, got %v", start+2, got)
	}

	TrackActiveRequest(false)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != start {
		t.Errorf("expected %v active, got %v", start, got)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(CacheHits.WithLabelValues("test_lookup"))
	misses := testutil.ToFloat64(CacheMisses.WithLabelValues("test_lookup"))

	RecordCacheLookup("test_lookup", true)
	RecordCacheLookup("test_lookup", false)
	RecordCacheLookup("test_lookup", false)

	if got := testutil.ToFloat64(CacheHits.WithLabelValues("test_lookup")) - hits; got != 1 {
		t.Errorf("hits delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("test_lookup")) - misses; got != 2 {
		t.Errorf("misses delta = %v, want 2", got)
	}
}

func TestRecordCacheSweep(t *testing.T) {
	evicted := testutil.ToFloat64(CacheEvictions.WithLabelValues("test_sweep"))

	RecordCacheSweep("test_sweep", 3, 7)

	if got := testutil.ToFloat64(CacheEvictions.WithLabelValues("test_sweep")) - evicted; got != 3 {
		t.Errorf("evictions delta = %v, want 3", got)
	}
	if got := testutil.ToFloat64(CacheSize.WithLabelValues("test_sweep")); got != 7 {
		t.Errorf("size = %v, want 7", got)
	}
}

func TestRecordBackoff(t *testing.T) {
	retries := testutil.ToFloat64(UpstreamRetries.WithLabelValues("test_backoff"))

	RecordBackoff("test_backoff", 400*time.Millisecond)
	if got := testutil.ToFloat64(UpstreamBackoff.WithLabelValues("test_backoff")); got != 0.4 {
		t.Errorf("backoff gauge = %v, want 0.4", got)
	}

	RecordBackoff("test_backoff", 0)
	if got := testutil.ToFloat64(UpstreamBackoff.WithLabelValues("test_backoff")); got != 0 {
		t.Errorf("backoff gauge after reset = %v, want 0", got)
	}
	if got := testutil.ToFloat64(UpstreamRetries.WithLabelValues("test_backoff")) - retries; got != 1 {
		t.Errorf("retries delta = %v, want 1", got)
	}
}

func TestRecordSampleFallback(t *testing.T) {
	before := testutil.ToFloat64(SampleFallbacks.WithLabelValues("no_data"))
	RecordSampleFallback("no_data")
	if got := testutil.ToFloat64(SampleFallbacks.WithLabelValues("no_data")) - before; got != 1 {
		t.Errorf("fallback delta = %v, want 1", got)
	}
}

func TestMetricNames(t *testing.T) {
	SetAppInfo("test", "go1.24")

	expected := `
		# HELP app_info Application version and build information
		# TYPE app_info gauge
		app_info{go_version="go1.24",version="test"} 1
	`
	if err := testutil.CollectAndCompare(AppInfo, strings.NewReader(expected), "app_info"); err != nil {
		t.Errorf("unexpected app_info output: %v", err)
	}
}

func TestCollectorsLint(t *testing.T) {
	QueueRequeues.WithLabelValues("music").Add(0)
	QueueTasks.WithLabelValues("music", "ok").Add(0)
	MalformedFields.WithLabelValues("views").Add(0)

	collectors := map[string]prometheus.Collector{
		"queue_requeues":  QueueRequeues,
		"queue_tasks":     QueueTasks,
		"queue_depth":     QueueDepth,
		"malformed":       MalformedFields,
		"search_sessions": SearchSessionsActive,
		"search_pages":    SearchPagesScanned,
	}
	for name, c := range collectors {
		problems, err := testutil.CollectAndLint(c)
		if err != nil {
			t.Fatalf("%s: lint failed: %v", name, err)
		}
		for _, p := range problems {
			t.Errorf("%s: %s: %s", name, p.Metric, p.Text)
		}
	}
}
