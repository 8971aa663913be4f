// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tayawaaean/mediatiger-sub002/internal/cache"
	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
	"github.com/tayawaaean/mediatiger-sub002/internal/metrics"
	"github.com/tayawaaean/mediatiger-sub002/internal/models"
	"github.com/tayawaaean/mediatiger-sub002/internal/queue"
	"github.com/tayawaaean/mediatiger-sub002/internal/report"
	"github.com/tayawaaean/mediatiger-sub002/internal/sample"
	"github.com/tayawaaean/mediatiger-sub002/internal/upstream"
)

// rangeWorkers bounds how many days of a range are enqueued at once.
const rangeWorkers = 4

// fallbackReason classifies errors that may be answered with sample data.
// Auth failures, 5xx and malformed archives are never masked.
func fallbackReason(err error) string {
	switch {
	case IsRateLimitExhausted(err):
		return "rate_limited"
	case upstream.IsEmpty(err), errors.Is(err, report.ErrNoData):
		return "no_data"
	}
	return ""
}

// parseDay parses a YYYY-MM-DD date and rejects dates after today (UTC).
func (s *Service) parseDay(value string) (time.Time, error) {
	d, err := time.Parse(sample.DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if d.After(today) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrFutureDate, d.Format(sample.DateLayout))
	}
	return d, nil
}

// reportArchive returns the raw archive for date. Archives are cached per
// date, independent of the channel filter, and fetched once even when
// many requests ask for the same date concurrently.
func (s *Service) reportArchive(ctx context.Context, date, class string, priority int) ([]byte, error) {
	key := "report.raw:" + date
	if v, ok := s.cache.Get(key); ok {
		metrics.RecordCacheLookup("report", true)
		return v.([]byte), nil
	}
	metrics.RecordCacheLookup("report", false)

	return shared(ctx, s, key, func(ctx context.Context) ([]byte, error) {
		data, err := call(ctx, s, class, keyReport, priority, func(ctx context.Context) ([]byte, error) {
			return s.api.FetchReport(ctx, date)
		})
		if err != nil {
			return nil, err
		}
		s.cache.SetWithTTL(key, data, s.opts.ReportTTL)
		return data, nil
	})
}

type extractKey struct {
	Date    string `json:"date"`
	Channel string `json:"channel"`
}

// dailyReport resolves one date: extracted-report cache, raw archive,
// extraction. It does not fall back; callers decide.
func (s *Service) dailyReport(ctx context.Context, date, channel, class string, priority int) (*models.AnalyticsReport, error) {
	key := cache.GenerateKey("report.extract", extractKey{Date: date, Channel: strings.ToLower(strings.TrimSpace(channel))})
	if v, ok := s.cache.Get(key); ok {
		return v.(*models.AnalyticsReport), nil
	}

	data, err := s.reportArchive(ctx, date, class, priority)
	if err != nil {
		return nil, err
	}

	rep, err := report.Extract(data, channel)
	if err != nil {
		if errors.Is(err, report.ErrInvalidArchive) {
			return nil, fmt.Errorf("%w: %w", upstream.ErrMalformed, err)
		}
		return nil, err
	}
	rep.Date = date

	s.cache.SetWithTTL(key, rep, s.opts.ReportTTL)
	return rep, nil
}

// Analytics returns the reconciled report for one date.
//
// A future date fails with ErrFutureDate before anything is queued. When
// the upstream stays rate limited or has no report for the date, sample
// data is returned instead (if enabled). Sample reports are never cached.
func (s *Service) Analytics(ctx context.Context, date, channel string) (*models.AnalyticsReport, error) {
	d, err := s.parseDay(date)
	if err != nil {
		return nil, err
	}
	date = d.Format(sample.DateLayout)

	rep, err := s.dailyReport(ctx, date, channel, ClassAnalytics, queue.PriorityHigh)
	if err == nil {
		return rep, nil
	}

	reason := fallbackReason(err)
	if reason == "" || !s.opts.SampleFallback {
		return nil, err
	}

	metrics.RecordSampleFallback(reason)
	logging.Ctx(ctx).Warn().Err(err).Str("date", date).Str("reason", reason).Msg("Serving sample analytics")
	return s.sample.Analytics(date, channel), nil
}

// AnalyticsRange returns a daily series from start to end inclusive.
//
// Each day is scheduled on the range class, so range scans share their
// own quota and run with a longer inter-request delay than single-date
// lookups. Days that fall back to sample data mark the whole result as
// sample data. Any other failure aborts the range.
func (s *Service) AnalyticsRange(ctx context.Context, start, end, channel string) (*models.RangeReport, error) {
	from, err := s.parseDay(start)
	if err != nil {
		return nil, err
	}
	to, err := s.parseDay(end)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, end, start)
	}
	days := int(to.Sub(from)/(24*time.Hour)) + 1
	if days > s.opts.MaxRangeDays {
		return nil, fmt.Errorf("%w: %d days requested, at most %d allowed", ErrInvalidRange, days, s.opts.MaxRangeDays)
	}

	points := make([]models.DailyPoint, days)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rangeWorkers)

	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i).Format(sample.DateLayout)
		g.Go(func() error {
			p, err := s.rangeDay(gctx, date, channel)
			if err != nil {
				return fmt.Errorf("%s: %w", date, err)
			}
			points[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &models.RangeReport{
		Success:   true,
		StartDate: from.Format(sample.DateLayout),
		EndDate:   to.Format(sample.DateLayout),
		Channel:   strings.TrimSpace(channel),
		Daily:     points,
	}
	for _, p := range points {
		out.Totals.Add(p.MetricTotals)
		if p.IsSampleData {
			out.IsSampleData = true
		}
	}
	out.Totals.ComputeRPM()
	return out, nil
}

func (s *Service) rangeDay(ctx context.Context, date, channel string) (models.DailyPoint, error) {
	rep, err := s.dailyReport(ctx, date, channel, ClassRange, queue.PriorityLow)
	if err == nil {
		return sample.Point(rep), nil
	}

	reason := fallbackReason(err)
	if reason == "" || !s.opts.SampleFallback {
		return models.DailyPoint{}, err
	}
	metrics.RecordSampleFallback(reason)
	logging.Ctx(ctx).Debug().Err(err).Str("date", date).Str("reason", reason).Msg("Sample data for range day")
	return sample.Point(s.sample.Analytics(date, channel)), nil
}
