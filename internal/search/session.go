// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package search

import (
	"time"

	"github.com/tayawaaean/mediatiger-sub002/internal/models"
)

// State is the accumulation state of a session.
type State int

const (
	// Collecting sessions may still pull upstream pages.
	Collecting State = iota
	// Complete is a latch: no further upstream pages are pulled.
	Complete
)

func (s State) String() string {
	if s == Complete {
		return "complete"
	}
	return "collecting"
}

// CompletionReason records why a session latched Complete.
type CompletionReason string

const (
	ReasonNone        CompletionReason = ""
	ReasonEmptyPage   CompletionReason = "empty_page"
	ReasonScannedAll  CompletionReason = "scanned_total"
	ReasonPageCeiling CompletionReason = "page_ceiling"
	ReasonNoNextPage  CompletionReason = "no_next_page"
)

// Session is the accumulated state of one client's filtered scan. It is a
// value type: transitions return a new Session and never mutate the input.
type Session struct {
	Key              string
	Filter           Filter
	Found            []models.Track
	LastUpstreamPage int
	State            State
	Reason           CompletionReason
	Scanned          int
	// Total is the upstream item count, or -1 while unknown.
	Total int
	// MaxPages is the page ceiling: the configured bound until Total is
	// learned, then ceil(Total/upstreamPageSize).
	MaxPages     int
	CreatedAt    time.Time
	LastAccessed time.Time
}

// NewSession starts a Collecting session for a normalized filter.
func NewSession(key string, filter Filter, maxPages int, now time.Time) Session {
	return Session{
		Key:          key,
		Filter:       filter,
		Found:        []models.Track{},
		State:        Collecting,
		Total:        -1,
		MaxPages:     maxPages,
		CreatedAt:    now,
		LastAccessed: now,
	}
}

// IsComplete reports whether the session has latched.
func (s Session) IsComplete() bool {
	return s.State == Complete
}

// NextPage is the upstream page the next step must request.
func (s Session) NextPage() int {
	return s.LastUpstreamPage + 1
}

// Touch returns s with LastAccessed set to now.
func (s Session) Touch(now time.Time) Session {
	s.LastAccessed = now
	return s
}

// Advance applies one fetched upstream page to s. pageNum must be
// s.NextPage(); anything else (a stale or replayed page) and any call on a
// Complete session leaves s unchanged, which keeps LastUpstreamPage
// monotonic and the Complete latch one-way.
func Advance(s Session, pageNum int, page *models.CatalogPage, upstreamPageSize int, now time.Time) Session {
	if s.State == Complete || pageNum != s.NextPage() || page == nil {
		return s
	}

	next := s
	next.LastUpstreamPage = pageNum
	next.LastAccessed = now

	if len(page.Items) == 0 {
		return latch(next, ReasonEmptyPage)
	}

	var matches []models.Track
	for i := range page.Items {
		if s.Filter.Match(&page.Items[i]) {
			matches = append(matches, page.Items[i])
		}
	}
	if len(matches) > 0 {
		// Full slice expression forces a copy so s.Found is never shared.
		next.Found = append(s.Found[:len(s.Found):len(s.Found)], matches...)
	}
	next.Scanned = s.Scanned + len(page.Items)

	if page.TotalKnown() {
		next.Total = page.Total
		if upstreamPageSize > 0 {
			next.MaxPages = ceilDiv(page.Total, upstreamPageSize)
		}
	}

	switch {
	case next.Total >= 0 && next.Scanned >= next.Total:
		return latch(next, ReasonScannedAll)
	case next.MaxPages > 0 && next.LastUpstreamPage >= next.MaxPages:
		return latch(next, ReasonPageCeiling)
	case !page.HasNext && next.Total < 0:
		return latch(next, ReasonNoNextPage)
	}
	return next
}

func latch(s Session, reason CompletionReason) Session {
	s.State = Complete
	s.Reason = reason
	return s
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Window is the client-visible slice of a session.
type Window struct {
	Items   []models.Track
	HasMore bool
}

// Slice returns page (1-based) of size items from s.Found. HasMore is true
// while more matches are buffered beyond the page or the session is still
// Collecting, even if the next scan step may find nothing.
func (s Session) Slice(page, size int) Window {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	end := start + size

	items := []models.Track{}
	if start < len(s.Found) {
		if end > len(s.Found) {
			end = len(s.Found)
		}
		items = append(items, s.Found[start:end]...)
	}

	return Window{
		Items:   items,
		HasMore: len(s.Found) > page*size || s.State == Collecting,
	}
}
