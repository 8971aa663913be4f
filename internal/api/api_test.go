// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package api

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tayawaaean/mediatiger-sub002/internal/config"
	"github.com/tayawaaean/mediatiger-sub002/internal/middleware"
	"github.com/tayawaaean/mediatiger-sub002/internal/models"
	"github.com/tayawaaean/mediatiger-sub002/internal/proxy"
	"github.com/tayawaaean/mediatiger-sub002/internal/upstream"
)

// fakeUpstream serves the upstream catalog and report endpoints.
type fakeUpstream struct {
	catalogCalls atomic.Int32
	reportCalls  atomic.Int32

	total         int
	epic          map[int]bool
	catalogStatus int
	reportStatus  int
	report        []byte
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/music/list":
		f.catalogCalls.Add(1)
		if f.catalogStatus != 0 {
			w.WriteHeader(f.catalogStatus)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))

		items := []string{}
		for i := (page - 1) * size; i < page*size && i < f.total; i++ {
			mood := "calm"
			if f.epic[i] {
				mood = "epic"
			}
			items = append(items, fmt.Sprintf(`{"music_id":%d,"title":"Song %d","artist_name":"Band","mood":%q,"tags":"ambient"}`, i, i, mood))
		}
		next := page*size < f.total
		fmt.Fprintf(w, `{"success":true,"response_code":200,"datas":[%s],"page_data":{"next":%t,"total":%d}}`,
			strings.Join(items, ","), next, f.total)

	case "/api/report/daily":
		f.reportCalls.Add(1)
		if f.reportStatus != 0 {
			w.WriteHeader(f.reportStatus)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(f.report)

	default:
		http.NotFound(w, r)
	}
}

func testConfig(baseURL string) *config.Config {
	fast := config.ClassConfig{MaxInFlight: 2}
	return &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL:     baseURL,
			APIKey:      "test-key",
			CatalogPath: "/api/music/list",
			ReportPath:  "/api/report/daily",
			Timeout:     5 * time.Second,
		},
		Cache: config.CacheConfig{TTL: time.Minute, ReportTTL: time.Minute, Idle: time.Minute},
		Backoff: config.BackoffConfig{
			Base:           time.Millisecond,
			MaxMultiplier:  30,
			MaxRetries:     3,
			NoRetryClasses: []string{"analytics"},
		},
		Queue: config.QueueConfig{MaxConcurrent: 4, Music: fast, Analytics: fast, Range: fast},
		Search: config.SearchConfig{
			UpstreamPageSize: 100,
			DefaultPageSize:  20,
			MaxPageSize:      100,
			MaxPages:         50,
			SessionIdle:      time.Minute,
		},
		Analytics: config.AnalyticsConfig{SampleFallback: true, MaxRangeDays: 31},
		Security:  config.SecurityConfig{RateLimitDisabled: true, CORSOrigins: []string{"*"}},
	}
}

// newTestAPI starts the full stack against fake. mutate may adjust the
// configuration before the service is built.
func newTestAPI(t *testing.T, fake *fakeUpstream, mutate func(*config.Config)) http.Handler {
	t.Helper()

	up := httptest.NewServer(fake)
	t.Cleanup(up.Close)

	cfg := testConfig(up.URL)
	if mutate != nil {
		mutate(cfg)
	}

	svc := proxy.NewFromConfig(cfg, upstream.NewCircuitBreakerClient(&cfg.Upstream))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = svc.Queue().Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	perf := middleware.NewPerformanceMonitor(100, 0)
	handler := NewHandler(svc, perf, "test")
	return NewRouter(handler, NewChiMiddleware(ChiMiddlewareConfigFromSecurity(cfg.Security)), perf).Setup()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set(middleware.ClientIDHeader, "test-client")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v\nbody: %s", err, rec.Body.String())
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, status, rec.Body.String())
	}
	var resp APIResponse
	decode(t, rec, &resp)
	if resp.Success {
		t.Error("success should be false")
	}
	if resp.Error == nil {
		t.Fatal("error block missing")
	}
	if resp.Error.Code != code {
		t.Errorf("error code = %q, want %q", resp.Error.Code, code)
	}
	if resp.Error.RequestID == "" {
		t.Error("error response has no request_id")
	}
}

func buildReport(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("data.csv")
	if err != nil {
		t.Fatal(err)
	}
	csv := "channel_id,channel_name,views,premium_views,revenue,analytics\n" +
		`UC1,Alpha,100,10,5.00,"[{""country"":""US"",""views"":90,""revenue"":4.5},{""country"":""GB"",""views"":60,""revenue"":3}]"` + "\n"
	if _, err := w.Write([]byte(csv)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestMoodEndToEnd(t *testing.T) {
	fake := &fakeUpstream{
		total: 300,
		epic:  map[int]bool{110: true, 125: true, 140: true, 160: true, 195: true},
	}
	h := newTestAPI(t, fake, nil)

	rec := get(t, h, "/api/v1/tracks/mood?mood=epic&page=1&size=20")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp FilteredTracksResponse
	decode(t, rec, &resp)

	if !resp.Success {
		t.Error("success = false")
	}
	if len(resp.Tracks) != 5 {
		t.Errorf("got %d tracks, want 5", len(resp.Tracks))
	}
	if resp.HasMore {
		t.Error("hasMore should be false once the scan completed with everything buffered")
	}
	if resp.SearchInfo != nil {
		t.Error("mood responses must not carry searchInfo")
	}
	if resp.MoodInfo == nil {
		t.Fatal("moodInfo missing")
	}
	want := ScanInfo{TotalFound: 5, SearchComplete: true, TotalAvailable: 300, SearchedThrough: 300}
	if *resp.MoodInfo != want {
		t.Errorf("moodInfo = %+v, want %+v", *resp.MoodInfo, want)
	}
	if got := fake.catalogCalls.Load(); got != 3 {
		t.Errorf("upstream catalog calls = %d, want 3", got)
	}
	if resp.Tracks[0].ID != "110" || resp.Tracks[0].Name != "Song 110" {
		t.Errorf("first track = %+v", resp.Tracks[0])
	}
}

func TestSearchEndToEnd(t *testing.T) {
	fake := &fakeUpstream{total: 250}
	h := newTestAPI(t, fake, nil)

	rec := get(t, h, "/api/v1/tracks/search?q=song+24&size=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp FilteredTracksResponse
	decode(t, rec, &resp)

	// "Song 24" and "Song 240".."Song 249" match: 11 items.
	if len(resp.Tracks) != 5 || !resp.HasMore {
		t.Errorf("tracks = %d, hasMore = %v", len(resp.Tracks), resp.HasMore)
	}
	if resp.SearchInfo == nil || resp.SearchInfo.TotalFound != 11 || !resp.SearchInfo.SearchComplete {
		t.Errorf("searchInfo = %+v", resp.SearchInfo)
	}

	rec = get(t, h, "/api/v1/tracks/search?q=song+24&size=5&page=3")
	decode(t, rec, &resp)
	if len(resp.Tracks) != 1 || resp.HasMore {
		t.Errorf("last page: tracks = %d, hasMore = %v", len(resp.Tracks), resp.HasMore)
	}
	if got := fake.catalogCalls.Load(); got != 3 {
		t.Errorf("upstream catalog calls = %d, want 3", got)
	}
}

func TestTracksList(t *testing.T) {
	fake := &fakeUpstream{total: 30}
	h := newTestAPI(t, fake, nil)

	rec := get(t, h, "/api/v1/tracks?page=2&size=20")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp TrackListResponse
	decode(t, rec, &resp)
	if len(resp.Tracks) != 10 || resp.HasMore || resp.Total != 30 || resp.Page != 2 {
		t.Errorf("unexpected page %+v", resp)
	}
}

func TestParameterErrors(t *testing.T) {
	fake := &fakeUpstream{total: 10}
	h := newTestAPI(t, fake, nil)

	tests := []struct {
		name   string
		target string
		code   string
	}{
		{"non-numeric page", "/api/v1/tracks?page=abc", ErrCodeBadRequest},
		{"page zero", "/api/v1/tracks?page=0", ErrCodeValidation},
		{"missing query", "/api/v1/tracks/search", ErrCodeValidation},
		{"blank mood", "/api/v1/tracks/mood?mood=%20%20", ErrCodeValidation},
		{"missing date", "/api/v1/analytics", ErrCodeValidation},
		{"bad date", "/api/v1/analytics?date=2026-13-01", ErrCodeValidation},
		{"future date", "/api/v1/analytics?date=2999-01-01", ErrCodeValidation},
		{"inverted range", "/api/v1/analytics/range?start=2026-01-10&end=2026-01-01", ErrCodeBadRequest},
		{"oversized range", "/api/v1/analytics/range?start=2025-01-01&end=2025-06-01", ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, get(t, h, tt.target), http.StatusBadRequest, tt.code)
		})
	}

	if got := fake.catalogCalls.Load() + fake.reportCalls.Load(); got != 0 {
		t.Errorf("invalid requests reached the upstream %d times", got)
	}
}

func TestFutureDateMakesNoUpstreamCall(t *testing.T) {
	fake := &fakeUpstream{report: buildReport(t)}
	h := newTestAPI(t, fake, nil)

	tomorrow := time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02")
	rec := get(t, h, "/api/v1/analytics?date="+tomorrow)

	expectError(t, rec, http.StatusBadRequest, ErrCodeValidation)
	if got := fake.reportCalls.Load(); got != 0 {
		t.Errorf("upstream report calls = %d, want 0", got)
	}
}

func TestAnalyticsEndToEnd(t *testing.T) {
	fake := &fakeUpstream{report: buildReport(t)}
	h := newTestAPI(t, fake, nil)

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	rec := get(t, h, "/api/v1/analytics?date="+yesterday)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var rep models.AnalyticsReport
	decode(t, rec, &rep)
	if rep.IsSampleData {
		t.Error("real report flagged as sample data")
	}
	if rep.Totals.Views != 150 {
		t.Errorf("views = %d, want 150 (nested breakdown wins)", rep.Totals.Views)
	}
	if rep.Date != yesterday {
		t.Errorf("date = %q, want %q", rep.Date, yesterday)
	}
}

func TestAnalyticsRateLimitedFallsBackToSample(t *testing.T) {
	fake := &fakeUpstream{reportStatus: http.StatusTooManyRequests}
	h := newTestAPI(t, fake, nil)

	rec := get(t, h, "/api/v1/analytics?date=2026-01-05")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var rep models.AnalyticsReport
	decode(t, rec, &rep)
	if !rep.IsSampleData {
		t.Error("expected sample data")
	}
	if got := fake.reportCalls.Load(); got != 1 {
		t.Errorf("analytics 429 must not be retried, got %d calls", got)
	}
}

func TestUpstreamErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		fake     *fakeUpstream
		target   string
		fallback bool
		status   int
		code     string
	}{
		{
			name:     "auth failure is never masked",
			fake:     &fakeUpstream{reportStatus: http.StatusUnauthorized},
			target:   "/api/v1/analytics?date=2026-01-05",
			fallback: true,
			status:   http.StatusBadGateway,
			code:     ErrCodeUpstreamAuth,
		},
		{
			name:   "catalog rate limit exhausted",
			fake:   &fakeUpstream{catalogStatus: http.StatusTooManyRequests},
			target: "/api/v1/tracks",
			status: http.StatusTooManyRequests,
			code:   ErrCodeUpstreamRateLimited,
		},
		{
			name:   "server error",
			fake:   &fakeUpstream{catalogStatus: http.StatusInternalServerError},
			target: "/api/v1/tracks",
			status: http.StatusBadGateway,
			code:   ErrCodeExternalServiceFail,
		},
		{
			name:     "no data without fallback",
			fake:     &fakeUpstream{reportStatus: http.StatusNoContent},
			target:   "/api/v1/analytics?date=2026-01-05",
			fallback: false,
			status:   http.StatusNotFound,
			code:     ErrCodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestAPI(t, tt.fake, func(cfg *config.Config) {
				cfg.Analytics.SampleFallback = tt.fallback
			})
			expectError(t, get(t, h, tt.target), tt.status, tt.code)
		})
	}
}

func TestUpstreamServerErrorHidesCause(t *testing.T) {
	fake := &fakeUpstream{catalogStatus: http.StatusInternalServerError}
	h := newTestAPI(t, fake, nil)

	rec := get(t, h, "/api/v1/tracks")
	expectError(t, rec, http.StatusBadGateway, ErrCodeExternalServiceFail)

	var resp APIResponse
	decode(t, rec, &resp)
	if resp.Error.Message != "The upstream API returned an unexpected response" {
		t.Errorf("message = %q", resp.Error.Message)
	}
}

func TestValidationErrorCarriesFieldDetails(t *testing.T) {
	h := newTestAPI(t, &fakeUpstream{}, nil)

	rec := get(t, h, "/api/v1/analytics?date=03-01-2026")
	expectError(t, rec, http.StatusBadRequest, ErrCodeValidation)

	var resp APIResponse
	decode(t, rec, &resp)
	details, ok := resp.Error.Details.(map[string]interface{})
	if !ok {
		t.Fatalf("details = %#v, want an object", resp.Error.Details)
	}
	if details["field"] == nil {
		t.Errorf("details missing field: %v", details)
	}
}

func TestCatalogRateLimitRetriesAreBounded(t *testing.T) {
	fake := &fakeUpstream{catalogStatus: http.StatusTooManyRequests}
	h := newTestAPI(t, fake, nil)

	expectError(t, get(t, h, "/api/v1/tracks"), http.StatusTooManyRequests, ErrCodeUpstreamRateLimited)
	if got := fake.catalogCalls.Load(); got != 4 {
		t.Errorf("upstream calls = %d, want 1 attempt + 3 retries", got)
	}
}

func TestUnreachableUpstream(t *testing.T) {
	h := newTestAPI(t, &fakeUpstream{}, func(cfg *config.Config) {
		cfg.Upstream.BaseURL = "http://127.0.0.1:1"
	})
	expectError(t, get(t, h, "/api/v1/tracks"), http.StatusGatewayTimeout, ErrCodeUpstreamUnreachable)
}

func TestHealthAndStats(t *testing.T) {
	fake := &fakeUpstream{total: 5}
	h := newTestAPI(t, fake, nil)

	_ = get(t, h, "/api/v1/tracks")

	rec := get(t, h, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var health struct {
		Success bool         `json:"success"`
		Data    HealthStatus `json:"data"`
	}
	decode(t, rec, &health)
	if !health.Success || health.Data.Status != "healthy" || health.Data.CircuitBreaker != "closed" {
		t.Errorf("unexpected health %+v", health)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}

	rec = get(t, h, "/api/v1/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats struct {
		Data StatsResponse `json:"data"`
	}
	decode(t, rec, &stats)
	if stats.Data.Cache.Keys != 1 {
		t.Errorf("cache keys = %d, want 1", stats.Data.Cache.Keys)
	}
	if _, ok := stats.Data.Queue.Classes["music"]; !ok {
		t.Error("queue stats missing music class")
	}
	if len(stats.Data.Endpoints) == 0 {
		t.Error("endpoint latency stats missing")
	}
	if len(stats.Data.Recent) < 2 {
		t.Fatalf("recent requests = %d, want at least 2", len(stats.Data.Recent))
	}
	if stats.Data.Recent[0].Method != http.MethodGet || stats.Data.Recent[0].StatusCode != http.StatusOK {
		t.Errorf("unexpected recent request %+v", stats.Data.Recent[0])
	}
}

func TestRequestIDAndUnknownRoute(t *testing.T) {
	h := newTestAPI(t, &fakeUpstream{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	req.Header.Set(middleware.RequestIDHeader, "trace-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	expectError(t, rec, http.StatusNotFound, ErrCodeNotFound)
	if rec.Header().Get(middleware.RequestIDHeader) != "trace-42" {
		t.Errorf("X-Request-ID = %q", rec.Header().Get(middleware.RequestIDHeader))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestAPI(t, &fakeUpstream{}, nil)
	_ = get(t, h, "/api/v1/health")

	rec := get(t, h, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "api_requests_total") {
		t.Error("metrics output missing api_requests_total")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"future date", proxy.ErrFutureDate, http.StatusBadRequest, ErrCodeValidation},
		{"invalid range", proxy.ErrInvalidRange, http.StatusBadRequest, ErrCodeBadRequest},
		{"auth", &upstream.StatusError{StatusCode: 403}, http.StatusBadGateway, ErrCodeUpstreamAuth},
		{"rate limited", &upstream.StatusError{StatusCode: 429}, http.StatusTooManyRequests, ErrCodeUpstreamRateLimited},
		{"unreachable", fmt.Errorf("x: %w", upstream.ErrUnreachable), http.StatusGatewayTimeout, ErrCodeUpstreamUnreachable},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeUpstreamUnreachable},
		{"empty", upstream.ErrEmpty, http.StatusNotFound, ErrCodeNotFound},
		{"malformed", upstream.ErrMalformed, http.StatusBadGateway, ErrCodeExternalServiceFail},
		{"5xx", &upstream.StatusError{StatusCode: 503}, http.StatusBadGateway, ErrCodeExternalServiceFail},
		{"cancelled upstream call", fmt.Errorf("report: %w", context.Canceled), http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := classifyError(tt.err)
			if m.status != tt.status || m.code != tt.code {
				t.Errorf("classifyError() = %d %s, want %d %s", m.status, m.code, tt.status, tt.code)
			}
		})
	}
}
