// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package search

import (
	"context"
	"sync"
	"time"

	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
	"github.com/tayawaaean/mediatiger-sub002/internal/metrics"
	"github.com/tayawaaean/mediatiger-sub002/internal/models"
)

// Fetcher retrieves one upstream catalog page. Implementations route the
// call through the request queue and rate limiter.
type Fetcher func(ctx context.Context, page int) (*models.CatalogPage, error)

// Config holds accumulator settings.
type Config struct {
	// UpstreamPageSize is the bulk page size requested from the upstream.
	UpstreamPageSize int
	// MaxPages bounds a scan while the upstream total is unknown.
	MaxPages int
}

// Result is the client-visible outcome of one Page call.
type Result struct {
	Items           []models.Track
	HasMore         bool
	Page            int
	Size            int
	TotalFound      int
	Complete        bool
	TotalAvailable  int
	SearchedThrough int
	PagesFetched    int
}

type entry struct {
	mu      sync.Mutex
	session Session
}

// Accumulator owns every live search session. The map has its own lock;
// each session has another so a multi-step scan on one session is atomic
// with respect to other requests for the same key.
type Accumulator struct {
	mu       sync.Mutex
	sessions map[string]*entry
	cfg      Config
	now      func() time.Time
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator(cfg Config) *Accumulator {
	if cfg.UpstreamPageSize <= 0 {
		cfg.UpstreamPageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}
	return &Accumulator{
		sessions: make(map[string]*entry),
		cfg:      cfg,
		now:      time.Now,
	}
}

// SessionKey derives the deterministic key for (client, normalized filter).
func SessionKey(client string, filter Filter) string {
	return client + "#" + filter.Key()
}

// UpstreamPageSize returns the configured bulk page size.
func (a *Accumulator) UpstreamPageSize() int {
	return a.cfg.UpstreamPageSize
}

// session returns the entry for key, replacing it with a fresh session
// when fresh is true or none exists.
func (a *Accumulator) session(key string, filter Filter, fresh bool) *entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.sessions[key]
	if ok && !fresh {
		return e
	}

	e = &entry{session: NewSession(key, filter, a.cfg.MaxPages, a.now())}
	a.sessions[key] = e
	metrics.SearchSessionsActive.Set(float64(len(a.sessions)))
	return e
}

// Page returns page (1-based) of size filtered items for client.
//
// Page 1 always starts a new session. A later page with no live session
// also starts from scratch, then scans as far as the requested page needs.
// Only the upstream pages not yet scanned are fetched, so a client paging
// forward pays for each upstream page once.
//
// When fetch fails, the pages accumulated so far are kept and the error is
// returned; a retry resumes from the first unscanned page.
func (a *Accumulator) Page(ctx context.Context, client string, filter Filter, page, size int, fetch Fetcher) (Result, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}

	normalized := filter.Normalize()
	key := SessionKey(client, normalized)
	e := a.session(key, normalized, page == 1)

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session.Touch(a.now())
	need := page * size
	fetched := 0

	for s.State == Collecting && len(s.Found) < need {
		if err := ctx.Err(); err != nil {
			e.session = s
			return Result{}, err
		}

		pageNum := s.NextPage()
		upstreamPage, err := fetch(ctx, pageNum)
		if err != nil {
			e.session = s
			log := logging.WithComponent("search")
			log.Debug().Err(err).Str("session", key).Int("upstream_page", pageNum).Msg("Search scan interrupted")
			return Result{}, err
		}

		s = Advance(s, pageNum, upstreamPage, a.cfg.UpstreamPageSize, a.now())
		fetched++
		metrics.SearchPagesScanned.Inc()
	}
	e.session = s

	if fetched > 0 && s.IsComplete() {
		log := logging.WithComponent("search")
		log.Debug().
			Str("session", key).
			Str("reason", string(s.Reason)).
			Int("found", len(s.Found)).
			Int("scanned", s.Scanned).
			Msg("Search session complete")
	}

	window := s.Slice(page, size)
	total := s.Total
	if total < 0 {
		total = 0
	}

	return Result{
		Items:           window.Items,
		HasMore:         window.HasMore,
		Page:            page,
		Size:            size,
		TotalFound:      len(s.Found),
		Complete:        s.IsComplete(),
		TotalAvailable:  total,
		SearchedThrough: s.Scanned,
		PagesFetched:    fetched,
	}, nil
}

// Snapshot returns a copy of the session for (client, filter), if any.
func (a *Accumulator) Snapshot(client string, filter Filter) (Session, bool) {
	key := SessionKey(client, filter.Normalize())

	a.mu.Lock()
	e, ok := a.sessions[key]
	a.mu.Unlock()
	if !ok {
		return Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, true
}

// Sweep removes sessions idle for at least idle. Sessions in the middle of
// a scan are skipped. Returns the number removed.
func (a *Accumulator) Sweep(now time.Time, idle time.Duration) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	removed := 0
	for key, e := range a.sessions {
		if !e.mu.TryLock() {
			continue
		}
		stale := now.Sub(e.session.LastAccessed) >= idle
		e.mu.Unlock()

		if stale {
			delete(a.sessions, key)
			removed++
		}
	}
	metrics.SearchSessionsActive.Set(float64(len(a.sessions)))
	return removed
}

// Len returns the number of live sessions.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}
