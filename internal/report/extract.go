// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package report

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
	"github.com/tayawaaean/mediatiger-sub002/internal/metrics"
	"github.com/tayawaaean/mediatiger-sub002/internal/models"
)

// Member names inside a report archive.
const (
	MemberData    = "data.csv"
	MemberChannel = "channel.csv"
	MemberVideo   = "video.csv"
	MemberMusic   = "music.csv"
)

// maxMemberSize bounds the decompressed size of a single CSV member.
const maxMemberSize = 128 << 20

var (
	// ErrNoData means the archive has no data.csv member, the upstream's
	// way of saying the date has no report.
	ErrNoData = errors.New("report archive has no data.csv")

	// ErrInvalidArchive means the payload is not a readable ZIP.
	ErrInvalidArchive = errors.New("invalid report archive")
)

// rowFilter selects data.csv rows for one channel.
type rowFilter struct {
	value string
}

func newRowFilter(channel string) rowFilter {
	return rowFilter{value: strings.ToLower(strings.TrimSpace(channel))}
}

func (f rowFilter) active() bool { return f.value != "" }

func normalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// extraction carries per-call state.
type extraction struct {
	warnings map[string]int
}

func (e *extraction) warn(kind string) {
	e.warnings[kind]++
	metrics.MalformedFields.WithLabelValues(kind).Inc()
}

func (e *extraction) total() int {
	n := 0
	for _, c := range e.warnings {
		n += c
	}
	return n
}

// Extract decompresses a report archive in memory and reconciles it.
//
// For every data.csv row each metric has two candidates: the flat column
// and the sum of the per-country JSON array in the Analytics column. The
// larger one is trusted; summing both would double count. A malformed
// cell degrades to zero for that candidate only.
//
// channel optionally restricts the report to one channel. An exact
// channel ID match is preferred; only when no row has that ID are rows
// whose channel name contains the filter used.
func Extract(data []byte, channel string) (*models.AnalyticsReport, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	members := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		members[strings.ToLower(path.Base(f.Name))] = f
	}

	dataFile, ok := members[MemberData]
	if !ok {
		return nil, ErrNoData
	}

	ex := &extraction{warnings: make(map[string]int)}
	filter := newRowFilter(channel)

	header, rows, err := readCSV(dataFile, ex)
	if err != nil {
		return nil, err
	}

	channels, countries := ex.reconcileRows(header, rows, filter)

	report := &models.AnalyticsReport{
		Success:   true,
		Channel:   strings.TrimSpace(channel),
		Channels:  channels,
		Countries: countries,
	}
	for i := range channels {
		report.Totals.Add(channels[i].MetricTotals)
	}
	report.Totals.ComputeRPM()

	matched := make(map[string]bool, len(channels))
	for _, c := range channels {
		matched[normalizeID(c.ChannelID)] = true
	}

	if f, ok := members[MemberChannel]; ok {
		report.ChannelRows = ex.breakdown(f, fieldChannelID, fieldChannelName, filter.active(), matched)
	}
	if f, ok := members[MemberVideo]; ok {
		report.Videos = ex.breakdown(f, fieldVideoID, fieldVideoTitle, filter.active(), matched)
	}
	if f, ok := members[MemberMusic]; ok {
		report.Music = ex.breakdown(f, fieldMusicID, fieldMusicTitle, filter.active(), matched)
	}

	report.Warnings = ex.total()
	if report.Warnings > 0 {
		event := logging.Warn().Int("malformed_fields", report.Warnings)
		for kind, n := range ex.warnings {
			event = event.Int(kind, n)
		}
		event.Msg("Report contained malformed fields, degraded to zero")
	}

	return report, nil
}

// readCSV reads a whole member. Rows the CSV parser rejects are skipped.
func readCSV(f *zip.File, ex *extraction) ([]string, [][]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %v", ErrInvalidArchive, f.Name, err)
	}
	defer rc.Close()

	r := csv.NewReader(io.LimitReader(rc, maxMemberSize))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.ReuseRecord = false

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []string{}, nil, nil
		}
		return nil, nil, fmt.Errorf("%w: %s header: %v", ErrInvalidArchive, f.Name, err)
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				ex.warn("csv_row")
				continue
			}
			ex.warn("csv_stream")
			break
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// reconcileRows turns data.csv rows into trusted per-channel metrics and
// aggregates the nested breakdown per country.
func (ex *extraction) reconcileRows(header []string, rows [][]string, filter rowFilter) ([]models.ChannelMetrics, []models.CountryMetrics) {
	idx := indexHeader(header)
	rows = selectRows(idx, rows, filter)

	channels := make([]models.ChannelMetrics, 0, len(rows))
	byCountry := make(map[string]*models.CountryMetrics)

	for _, row := range rows {
		flat := models.MetricTotals{
			Views:        ex.parseInt(idx.get(row, fieldViews), "views"),
			PremiumViews: ex.parseInt(idx.get(row, fieldPremiumViews), "premium_views"),
			Revenue:      ex.parseFloat(idx.get(row, fieldRevenue), "revenue"),
		}

		nested, perCountry := ex.parseBreakdown(idx.get(row, fieldAnalytics))

		trusted := models.MetricTotals{
			Views:        max(flat.Views, nested.Views),
			PremiumViews: max(flat.PremiumViews, nested.PremiumViews),
			Revenue:      max(flat.Revenue, nested.Revenue),
		}
		trusted.ComputeRPM()

		channels = append(channels, models.ChannelMetrics{
			ChannelID:    idx.get(row, fieldChannelID),
			ChannelName:  idx.get(row, fieldChannelName),
			MetricTotals: trusted,
			FlatViews:    flat.Views,
			NestedViews:  nested.Views,
		})

		for _, c := range perCountry {
			agg, ok := byCountry[c.Country]
			if !ok {
				agg = &models.CountryMetrics{Country: c.Country}
				byCountry[c.Country] = agg
			}
			agg.Add(c.MetricTotals)
		}
	}

	countries := make([]models.CountryMetrics, 0, len(byCountry))
	for _, c := range byCountry {
		c.ComputeRPM()
		countries = append(countries, *c)
	}
	sort.Slice(countries, func(i, j int) bool {
		if countries[i].Views != countries[j].Views {
			return countries[i].Views > countries[j].Views
		}
		return countries[i].Country < countries[j].Country
	})

	return channels, countries
}

// selectRows applies the channel filter: exact ID matches first, then a
// fuzzy name match.
func selectRows(idx headerIndex, rows [][]string, filter rowFilter) [][]string {
	if !filter.active() {
		return rows
	}

	var exact, fuzzy [][]string
	for _, row := range rows {
		if normalizeID(idx.get(row, fieldChannelID)) == filter.value {
			exact = append(exact, row)
			continue
		}
		name := normalizeID(idx.get(row, fieldChannelName))
		if name != "" && strings.Contains(name, filter.value) {
			fuzzy = append(fuzzy, row)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return fuzzy
}

// parseBreakdown sums the nested per-country array. Invalid JSON yields a
// zero total and is counted as a warning.
func (ex *extraction) parseBreakdown(raw string) (models.MetricTotals, []models.CountryMetrics) {
	var total models.MetricTotals
	if raw == "" {
		return total, nil
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		ex.warn("analytics_json")
		return models.MetricTotals{}, nil
	}

	countries := make([]models.CountryMetrics, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		m := models.MetricTotals{
			Views:        ex.nestedInt(entry, fieldViews),
			PremiumViews: ex.nestedInt(entry, fieldPremiumViews),
			Revenue:      ex.nestedFloat(entry, fieldRevenue),
		}
		total.Add(m)

		country := "UNKNOWN"
		if v, ok := nestedKey(entry, fieldCountry); ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				country = strings.ToUpper(strings.TrimSpace(s))
			}
		}
		countries = append(countries, models.CountryMetrics{Country: country, MetricTotals: m})
	}
	return total, countries
}

func (ex *extraction) nestedInt(obj map[string]interface{}, f field) int64 {
	v, ok := nestedKey(obj, f)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case json.Number:
		return ex.parseInt(n.String(), "analytics_value")
	case string:
		return ex.parseInt(n, "analytics_value")
	default:
		ex.warn("analytics_value")
		return 0
	}
}

func (ex *extraction) nestedFloat(obj map[string]interface{}, f field) float64 {
	v, ok := nestedKey(obj, f)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		return ex.parseFloat(n.String(), "analytics_value")
	case string:
		return ex.parseFloat(n, "analytics_value")
	default:
		ex.warn("analytics_value")
		return 0
	}
}

// cleanNumber strips currency symbols, thousands separators and spaces.
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strings.ReplaceAll(s, " ", "")
}

func (ex *extraction) parseInt(s, kind string) int64 {
	s = cleanNumber(s)
	if s == "" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	ex.warn(kind)
	return 0
}

func (ex *extraction) parseFloat(s, kind string) float64 {
	s = cleanNumber(s)
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	ex.warn(kind)
	return 0
}

// breakdown parses one of the optional members. When the report is
// filtered, only rows tied to a matched channel are kept; rows of a member
// without a channel column cannot be attributed and are dropped.
func (ex *extraction) breakdown(f *zip.File, idField, nameField field, filtered bool, matched map[string]bool) []models.BreakdownRow {
	header, rows, err := readCSV(f, ex)
	if err != nil {
		ex.warn("member")
		logging.Warn().Err(err).Str("member", f.Name).Msg("Skipping unreadable report member")
		return nil
	}

	idx := indexHeader(header)
	if filtered && !idx.has(fieldChannelID) {
		return []models.BreakdownRow{}
	}

	out := make([]models.BreakdownRow, 0, len(rows))
	for _, row := range rows {
		channelID := idx.get(row, fieldChannelID)
		if filtered && !matched[normalizeID(channelID)] {
			continue
		}

		br := models.BreakdownRow{
			ID:        idx.get(row, idField),
			Name:      idx.get(row, nameField),
			ChannelID: channelID,
			MetricTotals: models.MetricTotals{
				Views:        ex.parseInt(idx.get(row, fieldViews), "views"),
				PremiumViews: ex.parseInt(idx.get(row, fieldPremiumViews), "premium_views"),
				Revenue:      ex.parseFloat(idx.get(row, fieldRevenue), "revenue"),
			},
		}
		if nested, _ := ex.parseBreakdown(idx.get(row, fieldAnalytics)); nested.Views > 0 || nested.Revenue > 0 {
			br.Views = max(br.Views, nested.Views)
			br.PremiumViews = max(br.PremiumViews, nested.PremiumViews)
			br.Revenue = max(br.Revenue, nested.Revenue)
		}
		br.ComputeRPM()
		out = append(out, br)
	}
	return out
}
