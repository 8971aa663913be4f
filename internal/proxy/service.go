// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package proxy

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tayawaaean/mediatiger-sub002/internal/cache"
	"github.com/tayawaaean/mediatiger-sub002/internal/config"
	"github.com/tayawaaean/mediatiger-sub002/internal/metrics"
	"github.com/tayawaaean/mediatiger-sub002/internal/queue"
	"github.com/tayawaaean/mediatiger-sub002/internal/ratelimit"
	"github.com/tayawaaean/mediatiger-sub002/internal/sample"
	"github.com/tayawaaean/mediatiger-sub002/internal/search"
	"github.com/tayawaaean/mediatiger-sub002/internal/upstream"
)

// Request classes. Each has its own queue quota and inter-request delay.
const (
	ClassMusic     = "music"
	ClassAnalytics = "analytics"
	ClassRange     = "range"
)

// Limiter keys, one per upstream operation.
const (
	keyCatalog = "catalog"
	keyReport  = "report"
)

// Options holds the Service settings that are not owned by a component.
type Options struct {
	CatalogTTL      time.Duration
	ReportTTL       time.Duration
	SessionIdle     time.Duration
	LimiterIdle     time.Duration
	DefaultPageSize int
	MaxPageSize     int
	MaxRangeDays    int
	SampleFallback  bool
}

// Service composes the proxy pipeline: cache, then queue, then limiter,
// then upstream, with search accumulation and report extraction on top.
type Service struct {
	api     upstream.API
	cache   *cache.Cache
	queue   *queue.Queue
	limiter *ratelimit.Limiter
	search  *search.Accumulator
	sample  *sample.Generator
	flight  singleflight.Group
	opts    Options
	now     func() time.Time
}

// New wires a Service from explicit components. The queue's Run loop must
// be started by the caller.
func New(api upstream.API, c *cache.Cache, q *queue.Queue, l *ratelimit.Limiter, acc *search.Accumulator, gen *sample.Generator, opts Options) *Service {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	if opts.MaxRangeDays <= 0 {
		opts.MaxRangeDays = 31
	}
	if opts.CatalogTTL <= 0 {
		opts.CatalogTTL = 5 * time.Minute
	}
	if opts.ReportTTL <= 0 {
		opts.ReportTTL = time.Hour
	}
	if gen == nil {
		gen = sample.New()
	}
	return &Service{
		api:     api,
		cache:   c,
		queue:   q,
		limiter: l,
		search:  acc,
		sample:  gen,
		opts:    opts,
		now:     time.Now,
	}
}

// NewFromConfig builds every component from application configuration.
func NewFromConfig(cfg *config.Config, api upstream.API) *Service {
	classes := make(map[string]queue.ClassConfig)
	for name, c := range cfg.Queue.Classes() {
		classes[name] = queue.ClassConfig{
			Quota:       c.Quota,
			Window:      c.Window,
			Delay:       c.Delay,
			MaxInFlight: c.MaxInFlight,
		}
	}

	q := queue.New(queue.Config{
		MaxConcurrent: cfg.Queue.MaxConcurrent,
		Classes:       classes,
	})

	l := ratelimit.New(ratelimit.Config{
		Base:           cfg.Backoff.Base,
		MaxMultiplier:  cfg.Backoff.MaxMultiplier,
		MaxRetries:     cfg.Backoff.MaxRetries,
		NoRetryClasses: cfg.Backoff.NoRetryClasses,
		IsRateLimited:  upstream.IsRateLimited,
		RetryAfter:     upstream.RetryAfter,
		OnBackoff:      metrics.RecordBackoff,
	})

	acc := search.NewAccumulator(search.Config{
		UpstreamPageSize: cfg.Search.UpstreamPageSize,
		MaxPages:         cfg.Search.MaxPages,
	})

	return New(api, cache.New(cfg.Cache.TTL, cfg.Cache.Idle), q, l, acc, sample.New(), Options{
		CatalogTTL:      cfg.Cache.TTL,
		ReportTTL:       cfg.Cache.ReportTTL,
		SessionIdle:     cfg.Search.SessionIdle,
		LimiterIdle:     cfg.Cache.Idle,
		DefaultPageSize: cfg.Search.DefaultPageSize,
		MaxPageSize:     cfg.Search.MaxPageSize,
		MaxRangeDays:    cfg.Analytics.MaxRangeDays,
		SampleFallback:  cfg.Analytics.SampleFallback,
	})
}

// Queue exposes the request queue so the supervisor can run it.
func (s *Service) Queue() *queue.Queue {
	return s.queue
}

// call runs fn as one queued, rate-limited upstream operation.
func call[T any](ctx context.Context, s *Service, class, key string, priority int, fn func(ctx context.Context) (T, error)) (T, error) {
	return queue.Submit(ctx, s.queue, class, priority, func(ctx context.Context) (T, error) {
		var out T
		err := s.limiter.Do(ctx, key, class, func(ctx context.Context) error {
			v, err := fn(ctx)
			if err == nil {
				out = v
			}
			return err
		})
		return out, err
	})
}

// shared collapses concurrent identical fetches into one. The fetch runs
// detached from the caller that started it, so one client going away does
// not fail the others; each caller stops waiting when its own ctx ends.
// A detached fetch still finishes and fills the cache.
func shared[T any](ctx context.Context, s *Service, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		return fn(detached)
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// IsRateLimitExhausted reports whether err means the upstream kept
// answering 429 after every allowed retry.
func IsRateLimitExhausted(err error) bool {
	return errors.Is(err, ratelimit.ErrExhausted)
}

// clampSize applies the default and maximum page sizes.
func (s *Service) clampSize(size int) int {
	if size <= 0 {
		return s.opts.DefaultPageSize
	}
	if size > s.opts.MaxPageSize {
		return s.opts.MaxPageSize
	}
	return size
}
