// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
	"github.com/tayawaaean/mediatiger-sub002/internal/metrics"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		wantSame bool
	}{
		{"generates when absent", "", false},
		{"preserves inbound", "req-123", true},
		{"replaces oversized", strings.Repeat("a", 200), false},
		{"replaces control characters", "bad\nid", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got == "" {
				t.Fatal("response has no X-Request-ID")
			}
			if got != seen {
				t.Errorf("context ID %q != header ID %q", seen, got)
			}
			if tt.wantSame && got != tt.header {
				t.Errorf("X-Request-ID = %q, want %q", got, tt.header)
			}
			if !tt.wantSame && got == tt.header {
				t.Errorf("X-Request-ID %q should have been regenerated", got)
			}
		})
	}
}

func TestResolveClientID(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		remoteAddr string
		want       string
	}{
		{"header wins", "  app-7 ", "10.0.0.1:5000", "app-7"},
		{"remote ip without port", "", "10.0.0.1:5000", "10.0.0.1"},
		{"ipv6 remote", "", "[::1]:8080", "::1"},
		{"remote without port", "", "10.0.0.2", "10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.header != "" {
				req.Header.Set(ClientIDHeader, tt.header)
			}
			if got := ResolveClientID(req); got != tt.want {
				t.Errorf("ResolveClientID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIDStoresContext(t *testing.T) {
	var got string
	handler := ClientID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logging.ClientIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ClientIDHeader, "dashboard")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != "dashboard" {
		t.Errorf("client ID in context = %q, want dashboard", got)
	}
}

func TestCompression(t *testing.T) {
	body := strings.Repeat("track data ", 200)
	handler := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))

	t.Run("gzip when accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", "gzip, deflate")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Header().Get("Content-Encoding") != "gzip" {
			t.Fatalf("Content-Encoding = %q, want gzip", rec.Header().Get("Content-Encoding"))
		}
		gr, err := gzip.NewReader(rec.Body)
		if err != nil {
			t.Fatalf("gzip.NewReader: %v", err)
		}
		plain, err := io.ReadAll(gr)
		if err != nil {
			t.Fatalf("read gzip body: %v", err)
		}
		if string(plain) != body {
			t.Error("decompressed body does not match")
		}
	})

	t.Run("plain when not accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Header().Get("Content-Encoding") != "" {
			t.Error("response should not be compressed")
		}
		if rec.Body.String() != body {
			t.Error("body changed without compression")
		}
		if rec.Header().Get("Vary") != "Accept-Encoding" {
			t.Errorf("Vary = %q", rec.Header().Get("Vary"))
		}
	})
}

func TestPrometheusMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/api/v1/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/items/{id}", "418")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/items/"+id, nil))
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("api_requests_total delta = %v, want 3", got)
	}
}

func TestStatusRecorderKeepsFirstStatus(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	_, _ = rec.Write([]byte("ok"))
	rec.WriteHeader(http.StatusInternalServerError)

	if rec.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want 200", rec.statusCode)
	}
}

func TestPerformanceMonitor(t *testing.T) {
	pm := NewPerformanceMonitor(3, 0)

	for i, d := range []int64{50, 10, 20, 30} {
		status := http.StatusOK
		if i == 3 {
			status = http.StatusBadGateway
		}
		pm.RecordRequest(&RequestMetrics{Route: "/a", Method: "GET", DurationMS: d, StatusCode: status, Timestamp: time.Now()})
	}

	recent := pm.GetRecentMetrics(10)
	if len(recent) != 3 {
		t.Fatalf("window holds %d requests, want 3", len(recent))
	}
	if recent[0].DurationMS != 10 {
		t.Errorf("oldest kept = %d, want 10", recent[0].DurationMS)
	}

	stats := pm.GetStats()
	if len(stats) != 1 {
		t.Fatalf("got %d endpoints, want 1", len(stats))
	}
	s := stats[0]
	if s.Endpoint != "GET /a" || s.RequestCount != 3 || s.ErrorCount != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
	if s.MinDuration != 10 || s.MaxDuration != 30 || s.P50Duration != 20 {
		t.Errorf("unexpected durations %+v", s)
	}
}

func TestPerformanceMonitorMiddleware(t *testing.T) {
	pm := NewPerformanceMonitor(10, time.Nanosecond)

	r := chi.NewRouter()
	r.Use(pm.Middleware)
	r.Get("/api/v1/stats", func(w http.ResponseWriter, r *http.Request) {})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	recent := pm.GetRecentMetrics(2)
	if len(recent) != 2 {
		t.Fatalf("recorded %d requests, want 2", len(recent))
	}
	if recent[0].Route != "/api/v1/stats" {
		t.Errorf("route = %q", recent[0].Route)
	}
	if recent[1].Route != unmatchedRoute || recent[1].StatusCode != http.StatusNotFound {
		t.Errorf("unmatched request recorded as %+v", recent[1])
	}
}

func TestPercentile(t *testing.T) {
	if percentile(nil, 0.5) != 0 {
		t.Error("percentile of empty slice should be 0")
	}
	if got := percentile([]int64{1, 2, 3, 4, 5}, 0.99); got != 4 {
		t.Errorf("p99 = %d, want 4", got)
	}
}
