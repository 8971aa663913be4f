// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package services

import (
	"context"
	"time"

	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
	"github.com/tayawaaean/mediatiger-sub002/internal/proxy"
)

// Sweeper is satisfied by *proxy.Service.
type Sweeper interface {
	Sweep(now time.Time) proxy.SweepResult
}

// SweeperService periodically drops expired cache entries, idle backoff
// state and abandoned search sessions.
type SweeperService struct {
	target   Sweeper
	interval time.Duration
	now      func() time.Time
	name     string
}

// NewSweeperService sweeps target every interval (1m when non-positive).
func NewSweeperService(target Sweeper, interval time.Duration) *SweeperService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SweeperService{
		target:   target,
		interval: interval,
		now:      time.Now,
		name:     "state-sweeper",
	}
}

// Serve implements suture.Service.
func (s *SweeperService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			res := s.target.Sweep(s.now())
			if res.Total() > 0 {
				logging.Debug().
					Int("cache_entries", res.CacheEntries).
					Int("limiter_keys", res.LimiterKeys).
					Int("search_sessions", res.SearchSessions).
					Msg("Swept idle state")
			}
		}
	}
}

func (s *SweeperService) String() string {
	return s.name
}
