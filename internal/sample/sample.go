// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

// Package sample generates placeholder analytics shaped exactly like real
// reports. It is used only when the upstream is rate limited or has no
// report for a date; every value it returns is marked IsSampleData.
package sample

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tayawaaean/mediatiger-sub002/internal/models"
)

// DateLayout is the date format used across the analytics API.
const DateLayout = "2006-01-02"

var (
	sampleCountries = []string{"US", "GB", "DE", "BR", "IN", "JP", "FR", "CA", "MX", "KR"}
	sampleChannels  = []struct{ id, name string }{
		{"UCsample0001", "Sample Lofi Radio"},
		{"UCsample0002", "Sample Epic Scores"},
		{"UCsample0003", "Sample Chill Beats"},
	}
)

// Generator produces randomized but plausible analytics. Safe for
// concurrent use.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Generator seeded from the wall clock.
func New() *Generator {
	seed := uint64(time.Now().UnixNano())
	return NewWithRand(rand.New(rand.NewPCG(seed, seed>>1|1)))
}

// NewWithRand returns a Generator drawing from rnd, for reproducible output.
func NewWithRand(rnd *rand.Rand) *Generator {
	return &Generator{rnd: rnd}
}

func (g *Generator) intRange(lo, hi int64) int64 {
	return lo + g.rnd.Int64N(hi-lo+1)
}

func (g *Generator) floatRange(lo, hi float64) float64 {
	return lo + g.rnd.Float64()*(hi-lo)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// channelsFor picks which sample channels a report covers. A non-empty
// filter yields one channel carrying the filter as its ID.
func channelsFor(channel string) []struct{ id, name string } {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return sampleChannels
	}
	return []struct{ id, name string }{{channel, "Sample " + channel}}
}

// Analytics returns a sample report for one date.
func (g *Generator) Analytics(date, channel string) *models.AnalyticsReport {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.analytics(date, channel)
}

// analytics must be called with mu held.
func (g *Generator) analytics(date, channel string) *models.AnalyticsReport {
	rep := &models.AnalyticsReport{
		Success:      true,
		IsSampleData: true,
		Date:         date,
		Channel:      strings.TrimSpace(channel),
	}

	byCountry := make(map[string]*models.CountryMetrics)
	for _, ch := range channelsFor(channel) {
		var row models.MetricTotals
		for _, country := range sampleCountries {
			// A channel is seen in roughly two thirds of countries.
			if g.rnd.IntN(3) == 0 {
				continue
			}
			views := g.intRange(200, 25000)
			m := models.MetricTotals{
				Views:        views,
				PremiumViews: views * g.intRange(3, 12) / 100,
				// RPM between $0.40 and $4.00.
				Revenue: round2(float64(views) * g.floatRange(0.4, 4.0) / 1000),
			}
			row.Add(m)

			agg, ok := byCountry[country]
			if !ok {
				agg = &models.CountryMetrics{Country: country}
				byCountry[country] = agg
			}
			agg.Add(m)
		}
		row.Revenue = round2(row.Revenue)
		row.ComputeRPM()

		rep.Channels = append(rep.Channels, models.ChannelMetrics{
			ChannelID:    ch.id,
			ChannelName:  ch.name,
			MetricTotals: row,
			FlatViews:    row.Views,
			NestedViews:  row.Views,
		})
		rep.Totals.Add(row)
	}
	rep.Totals.Revenue = round2(rep.Totals.Revenue)
	rep.Totals.ComputeRPM()

	rep.Countries = make([]models.CountryMetrics, 0, len(byCountry))
	for _, c := range byCountry {
		c.Revenue = round2(c.Revenue)
		c.ComputeRPM()
		rep.Countries = append(rep.Countries, *c)
	}
	sort.Slice(rep.Countries, func(i, j int) bool {
		if rep.Countries[i].Views != rep.Countries[j].Views {
			return rep.Countries[i].Views > rep.Countries[j].Views
		}
		return rep.Countries[i].Country < rep.Countries[j].Country
	})

	return rep
}

// Range returns a sample daily series from start to end inclusive.
func (g *Generator) Range(start, end, channel string) (*models.RangeReport, error) {
	from, err := time.Parse(DateLayout, start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	to, err := time.Parse(DateLayout, end)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("end date %s is before start date %s", end, start)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	out := &models.RangeReport{
		Success:      true,
		IsSampleData: true,
		StartDate:    start,
		EndDate:      end,
		Channel:      strings.TrimSpace(channel),
	}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := g.analytics(d.Format(DateLayout), channel)
		out.Daily = append(out.Daily, Point(day))
		out.Totals.Add(day.Totals)
	}
	out.Totals.Revenue = round2(out.Totals.Revenue)
	out.Totals.ComputeRPM()
	return out, nil
}

// Point condenses a daily report into one series entry.
func Point(rep *models.AnalyticsReport) models.DailyPoint {
	return models.DailyPoint{
		Date:         rep.Date,
		IsSampleData: rep.IsSampleData,
		MetricTotals: rep.Totals,
	}
}
