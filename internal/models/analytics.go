// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package models

// MetricTotals holds reconciled totals and the RPM values derived from them.
type MetricTotals struct {
	Views        int64   `json:"views"`
	PremiumViews int64   `json:"premiumViews"`
	Revenue      float64 `json:"revenue"`
	RPM          float64 `json:"rpm"`
	PremiumRPM   float64 `json:"premiumRpm"`
}

// Add accumulates the raw counters of other. RPM values are left untouched;
// call ComputeRPM once all rows have been added.
func (m *MetricTotals) Add(other MetricTotals) {
	m.Views += other.Views
	m.PremiumViews += other.PremiumViews
	m.Revenue += other.Revenue
}

// ComputeRPM derives revenue per thousand views from the aggregate counters.
// Averaging per-row RPM would overweight small rows, so callers aggregate
// first and derive once.
func (m *MetricTotals) ComputeRPM() {
	m.RPM = 0
	m.PremiumRPM = 0
	if m.Views > 0 {
		m.RPM = m.Revenue / float64(m.Views) * 1000
	}
	if m.PremiumViews > 0 {
		m.PremiumRPM = m.Revenue / float64(m.PremiumViews) * 1000
	}
}

// CountryMetrics is one entry of the nested per-country breakdown.
type CountryMetrics struct {
	Country string `json:"country"`
	MetricTotals
}

// ChannelMetrics is one reconciled data.csv row.
type ChannelMetrics struct {
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
	MetricTotals
	// Flat and Nested keep both candidate values for diagnostics.
	FlatViews   int64 `json:"flatViews"`
	NestedViews int64 `json:"nestedViews"`
}

// BreakdownRow is a row of one of the optional channel/video/music members.
type BreakdownRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ChannelID string `json:"channelId,omitempty"`
	MetricTotals
}

// AnalyticsReport is the reconciled analytics for a single date.
type AnalyticsReport struct {
	Success      bool             `json:"success"`
	IsSampleData bool             `json:"isSampleData"`
	Date         string           `json:"date"`
	Channel      string           `json:"channel,omitempty"`
	Totals       MetricTotals     `json:"totals"`
	Channels     []ChannelMetrics `json:"channels"`
	Countries    []CountryMetrics `json:"countries"`
	ChannelRows  []BreakdownRow   `json:"channelBreakdown,omitempty"`
	Videos       []BreakdownRow   `json:"videos,omitempty"`
	Music        []BreakdownRow   `json:"music,omitempty"`
	// Warnings counts fields that were malformed and degraded to zero.
	Warnings int `json:"warnings,omitempty"`
}

// DailyPoint is one day of a RangeReport series.
type DailyPoint struct {
	Date         string `json:"date"`
	IsSampleData bool   `json:"isSampleData"`
	MetricTotals
}

// RangeReport aggregates several daily reports.
type RangeReport struct {
	Success      bool         `json:"success"`
	IsSampleData bool         `json:"isSampleData"`
	StartDate    string       `json:"startDate"`
	EndDate      string       `json:"endDate"`
	Channel      string       `json:"channel,omitempty"`
	Totals       MetricTotals `json:"totals"`
	Daily        []DailyPoint `json:"daily"`
}
