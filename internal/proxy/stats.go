// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package proxy

import (
	"time"

	"github.com/tayawaaean/mediatiger-sub002/internal/metrics"
	"github.com/tayawaaean/mediatiger-sub002/internal/queue"
)

// SweepResult counts what one maintenance pass removed.
type SweepResult struct {
	CacheEntries   int `json:"cache_entries"`
	LimiterKeys    int `json:"limiter_keys"`
	SearchSessions int `json:"search_sessions"`
}

// Total returns the number of removed items across all stores.
func (r SweepResult) Total() int {
	return r.CacheEntries + r.LimiterKeys + r.SearchSessions
}

// Sweep drops expired and idle state: cache entries, limiter keys and
// search sessions. Safe to call concurrently with requests.
func (s *Service) Sweep(now time.Time) SweepResult {
	res := SweepResult{
		CacheEntries: s.cache.Sweep(now),
	}
	if s.opts.LimiterIdle > 0 {
		res.LimiterKeys = s.limiter.Sweep(now, s.opts.LimiterIdle)
	}
	if s.opts.SessionIdle > 0 {
		res.SearchSessions = s.search.Sweep(now, s.opts.SessionIdle)
	}

	metrics.RecordCacheSweep("proxy", res.CacheEntries, s.cache.Len())
	return res
}

// CacheStats is the JSON view of the response cache counters.
type CacheStats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Keys      int     `json:"keys"`
	HitRate   float64 `json:"hit_rate"`
}

// Stats is a point-in-time view of the proxy internals.
type Stats struct {
	Cache          CacheStats  `json:"cache"`
	Queue          queue.Stats `json:"queue"`
	SearchSessions int         `json:"search_sessions"`
	LimiterKeys    int         `json:"limiter_keys"`
	Breaker        string      `json:"circuit_breaker,omitempty"`
}

// breakerState is implemented by upstream clients wrapped in a circuit breaker.
type breakerState interface {
	State() string
}

// Stats returns a snapshot of cache, queue, limiter and search state.
func (s *Service) Stats() Stats {
	cs := s.cache.GetStats()
	st := Stats{
		Cache: CacheStats{
			Hits:      cs.Hits,
			Misses:    cs.Misses,
			Evictions: cs.Evictions,
			Keys:      s.cache.Len(),
			HitRate:   s.cache.HitRate(),
		},
		Queue:          s.queue.Stats(),
		SearchSessions: s.search.Len(),
		LimiterKeys:    s.limiter.Len(),
	}
	if b, ok := s.api.(breakerState); ok {
		st.Breaker = b.State()
	}
	return st
}
