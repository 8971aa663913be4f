// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package api

import (
	"net/http"
	"time"

	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
	"github.com/tayawaaean/mediatiger-sub002/internal/middleware"
	"github.com/tayawaaean/mediatiger-sub002/internal/models"
	"github.com/tayawaaean/mediatiger-sub002/internal/proxy"
)

// Handler serves the proxy API.
type Handler struct {
	svc       *proxy.Service
	perf      *middleware.PerformanceMonitor
	version   string
	startTime time.Time
}

// NewHandler creates a Handler. perf may be nil.
func NewHandler(svc *proxy.Service, perf *middleware.PerformanceMonitor, version string) *Handler {
	return &Handler{
		svc:       svc,
		perf:      perf,
		version:   version,
		startTime: time.Now(),
	}
}

// TrackListResponse is the unfiltered catalog page.
type TrackListResponse struct {
	Success bool           `json:"success"`
	Tracks  []models.Track `json:"tracks"`
	HasMore bool           `json:"hasMore"`
	Page    int            `json:"page"`
	Size    int            `json:"size"`
	Total   int            `json:"total,omitempty"`
}

// ScanInfo surfaces the search session state to the client.
type ScanInfo struct {
	TotalFound      int  `json:"totalFound"`
	SearchComplete  bool `json:"searchComplete"`
	TotalAvailable  int  `json:"totalAvailable"`
	SearchedThrough int  `json:"searchedThrough"`
}

// FilteredTracksResponse is one page of a search or mood scan. Exactly one
// of SearchInfo and MoodInfo is set.
type FilteredTracksResponse struct {
	Success    bool           `json:"success"`
	Tracks     []models.Track `json:"tracks"`
	HasMore    bool           `json:"hasMore"`
	Page       int            `json:"page"`
	Size       int            `json:"size"`
	SearchInfo *ScanInfo      `json:"searchInfo,omitempty"`
	MoodInfo   *ScanInfo      `json:"moodInfo,omitempty"`
}

func scanInfo(p *proxy.TrackPage) *ScanInfo {
	return &ScanInfo{
		TotalFound:      p.Info.TotalFound,
		SearchComplete:  p.Info.Complete,
		TotalAvailable:  p.Info.TotalAvailable,
		SearchedThrough: p.Info.SearchedThrough,
	}
}

func nonNil(tracks []models.Track) []models.Track {
	if tracks == nil {
		return []models.Track{}
	}
	return tracks
}

// Tracks handles GET /api/v1/tracks.
func (h *Handler) Tracks(w http.ResponseWriter, r *http.Request) {
	params, err := parsePage(r)
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	if !bind(w, r, &params) {
		return
	}

	page, err := h.svc.ListTracks(r.Context(), params.Page, params.Size)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	total := 0
	if page.TotalKnown() {
		total = page.Total
	}
	NewResponseWriter(w, r).JSON(http.StatusOK, TrackListResponse{
		Success: true,
		Tracks:  nonNil(page.Items),
		HasMore: page.HasNext,
		Page:    page.Page,
		Size:    page.Size,
		Total:   total,
	})
}

// SearchTracks handles GET /api/v1/tracks/search.
func (h *Handler) SearchTracks(w http.ResponseWriter, r *http.Request) {
	pp, err := parsePage(r)
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	params := searchParams{pageParams: pp, Query: query(r, "q")}
	if !bind(w, r, &params) {
		return
	}

	client := logging.ClientIDFromContext(r.Context())
	page, err := h.svc.SearchTracks(r.Context(), client, params.Query, params.Page, params.Size)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	NewResponseWriter(w, r).JSON(http.StatusOK, FilteredTracksResponse{
		Success:    true,
		Tracks:     nonNil(page.Tracks),
		HasMore:    page.HasMore,
		Page:       page.Info.Page,
		Size:       page.Info.Size,
		SearchInfo: scanInfo(page),
	})
}

// TracksByMood handles GET /api/v1/tracks/mood.
func (h *Handler) TracksByMood(w http.ResponseWriter, r *http.Request) {
	pp, err := parsePage(r)
	if err != nil {
		WriteBadRequest(w, r, err.Error())
		return
	}
	params := moodParams{pageParams: pp, Mood: query(r, "mood")}
	if !bind(w, r, &params) {
		return
	}

	client := logging.ClientIDFromContext(r.Context())
	page, err := h.svc.TracksByMood(r.Context(), client, params.Mood, params.Page, params.Size)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	NewResponseWriter(w, r).JSON(http.StatusOK, FilteredTracksResponse{
		Success:  true,
		Tracks:   nonNil(page.Tracks),
		HasMore:  page.HasMore,
		Page:     page.Info.Page,
		Size:     page.Info.Size,
		MoodInfo: scanInfo(page),
	})
}

// Analytics handles GET /api/v1/analytics.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	params := analyticsParams{Date: query(r, "date"), Channel: query(r, "channel")}
	if !bind(w, r, &params) {
		return
	}

	rep, err := h.svc.Analytics(r.Context(), params.Date, params.Channel)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(http.StatusOK, rep)
}

// AnalyticsRange handles GET /api/v1/analytics/range.
func (h *Handler) AnalyticsRange(w http.ResponseWriter, r *http.Request) {
	params := rangeParams{Start: query(r, "start"), End: query(r, "end"), Channel: query(r, "channel")}
	if !bind(w, r, &params) {
		return
	}

	rep, err := h.svc.AnalyticsRange(r.Context(), params.Start, params.End, params.Channel)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).JSON(http.StatusOK, rep)
}

// HealthStatus is the liveness payload.
type HealthStatus struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	Uptime         float64 `json:"uptime_seconds"`
	CircuitBreaker string  `json:"circuit_breaker,omitempty"`
}

// Health handles GET /api/v1/health. An open circuit breaker reports the
// service as degraded but still answers 200: cached data is still served.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Stats()
	status := "healthy"
	if st.Breaker == "open" {
		status = "degraded"
	}

	WriteSuccess(w, r, HealthStatus{
		Status:         status,
		Version:        h.version,
		Uptime:         time.Since(h.startTime).Seconds(),
		CircuitBreaker: st.Breaker,
	})
}

// recentRequests is how many of the latest requests /stats lists.
const recentRequests = 20

// StatsResponse combines proxy internals with request latency.
type StatsResponse struct {
	proxy.Stats
	Endpoints []middleware.EndpointStats  `json:"endpoints,omitempty"`
	Recent    []middleware.RequestMetrics `json:"recent,omitempty"`
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Stats: h.svc.Stats()}
	if h.perf != nil {
		resp.Endpoints = h.perf.GetStats()
		resp.Recent = h.perf.GetRecentMetrics(recentRequests)
	}
	WriteSuccess(w, r, resp)
}
