// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package sample

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded() *Generator {
	return NewWithRand(rand.New(rand.NewPCG(1, 2)))
}

func TestAnalyticsShape(t *testing.T) {
	rep := seeded().Analytics("2024-03-01", "")

	assert.True(t, rep.Success)
	assert.True(t, rep.IsSampleData)
	assert.Equal(t, "2024-03-01", rep.Date)
	require.Len(t, rep.Channels, len(sampleChannels))
	assert.NotEmpty(t, rep.Countries)

	var views, premium int64
	var revenue float64
	for _, c := range rep.Channels {
		views += c.Views
		premium += c.PremiumViews
		revenue += c.Revenue
		assert.LessOrEqual(t, c.PremiumViews, c.Views)
	}
	assert.Equal(t, views, rep.Totals.Views)
	assert.Equal(t, premium, rep.Totals.PremiumViews)
	assert.InDelta(t, revenue, rep.Totals.Revenue, 0.05)

	if rep.Totals.Views > 0 {
		assert.InDelta(t, rep.Totals.Revenue/float64(rep.Totals.Views)*1000, rep.Totals.RPM, 1e-9)
		assert.GreaterOrEqual(t, rep.Totals.RPM, 0.3)
		assert.LessOrEqual(t, rep.Totals.RPM, 4.1)
	}

	for i := 1; i < len(rep.Countries); i++ {
		assert.GreaterOrEqual(t, rep.Countries[i-1].Views, rep.Countries[i].Views)
	}
}

func TestAnalyticsChannelFilter(t *testing.T) {
	rep := seeded().Analytics("2024-03-01", " UCabc ")

	require.Len(t, rep.Channels, 1)
	assert.Equal(t, "UCabc", rep.Channels[0].ChannelID)
	assert.Equal(t, "UCabc", rep.Channel)
}

func TestAnalyticsDeterministicWithSeed(t *testing.T) {
	a := seeded().Analytics("2024-03-01", "")
	b := seeded().Analytics("2024-03-01", "")
	assert.Equal(t, a, b)
}

func TestRange(t *testing.T) {
	rep, err := seeded().Range("2024-02-27", "2024-03-02", "")
	require.NoError(t, err)

	assert.True(t, rep.IsSampleData)
	require.Len(t, rep.Daily, 5, "leap day included")
	assert.Equal(t, "2024-02-29", rep.Daily[2].Date)

	var views int64
	for _, d := range rep.Daily {
		assert.True(t, d.IsSampleData)
		views += d.Views
	}
	assert.Equal(t, views, rep.Totals.Views)
}

func TestRangeErrors(t *testing.T) {
	g := seeded()

	_, err := g.Range("2024-03-02", "2024-03-01", "")
	assert.Error(t, err)

	_, err = g.Range("yesterday", "2024-03-01", "")
	assert.Error(t, err)

	_, err = g.Range("2024-03-01", "2024-13-01", "")
	assert.Error(t, err)
}

func TestGeneratorConcurrentUse(t *testing.T) {
	g := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = g.Analytics("2024-01-01", "")
		}()
	}
	wg.Wait()
}
