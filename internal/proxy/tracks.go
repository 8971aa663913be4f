// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package proxy

import (
	"context"
	"fmt"
	"strings"

	"github.com/tayawaaean/mediatiger-sub002/internal/cache"
	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
	"github.com/tayawaaean/mediatiger-sub002/internal/metrics"
	"github.com/tayawaaean/mediatiger-sub002/internal/models"
	"github.com/tayawaaean/mediatiger-sub002/internal/queue"
	"github.com/tayawaaean/mediatiger-sub002/internal/search"
)

// ErrEmptyQuery is returned when a search or mood lookup has nothing to match.
var ErrEmptyQuery = fmt.Errorf("%w: query must not be empty", ErrInvalidInput)

// TrackPage is one client-facing page of a filtered catalog scan.
type TrackPage struct {
	Tracks  []models.Track
	HasMore bool
	Info    search.Result
}

type catalogKey struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// catalogPage returns one upstream page through the cache, collapsing
// concurrent misses for the same page.
func (s *Service) catalogPage(ctx context.Context, page, size, priority int) (*models.CatalogPage, error) {
	key := cache.GenerateKey("catalog", catalogKey{Page: page, Size: size})
	if v, ok := s.cache.Get(key); ok {
		metrics.RecordCacheLookup("catalog", true)
		return v.(*models.CatalogPage), nil
	}
	metrics.RecordCacheLookup("catalog", false)

	return shared(ctx, s, key, func(ctx context.Context) (*models.CatalogPage, error) {
		p, err := call(ctx, s, ClassMusic, keyCatalog, priority, func(ctx context.Context) (*models.CatalogPage, error) {
			return s.api.FetchCatalogPage(ctx, page, size)
		})
		if err != nil {
			return nil, err
		}
		s.cache.SetWithTTL(key, p, s.opts.CatalogTTL)
		return p, nil
	})
}

// ListTracks returns one unfiltered catalog page.
func (s *Service) ListTracks(ctx context.Context, page, size int) (*models.CatalogPage, error) {
	if page < 1 {
		page = 1
	}
	return s.catalogPage(ctx, page, s.clampSize(size), queue.PriorityHigh)
}

// SearchTracks pages through catalog items whose name, artist, genre or
// tags contain query.
func (s *Service) SearchTracks(ctx context.Context, client, query string, page, size int) (*TrackPage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	return s.filtered(ctx, client, search.Filter{Text: query}, page, size)
}

// TracksByMood pages through catalog items whose mood or a tag equals mood.
func (s *Service) TracksByMood(ctx context.Context, client, mood string, page, size int) (*TrackPage, error) {
	if strings.TrimSpace(mood) == "" {
		return nil, ErrEmptyQuery
	}
	return s.filtered(ctx, client, search.Filter{Tag: mood}, page, size)
}

func (s *Service) filtered(ctx context.Context, client string, filter search.Filter, page, size int) (*TrackPage, error) {
	if page < 1 {
		page = 1
	}
	size = s.clampSize(size)
	bulk := s.search.UpstreamPageSize()

	fetch := func(ctx context.Context, upstreamPage int) (*models.CatalogPage, error) {
		return s.catalogPage(ctx, upstreamPage, bulk, queue.PriorityNormal)
	}

	res, err := s.search.Page(ctx, client, filter, page, size, fetch)
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().
		Str("filter", filter.Key()).
		Int("page", page).
		Int("found", res.TotalFound).
		Int("upstream_pages", res.PagesFetched).
		Bool("complete", res.Complete).
		Msg("Served filtered page")

	return &TrackPage{Tracks: res.Items, HasMore: res.HasMore, Info: res}, nil
}
