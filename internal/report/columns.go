// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package report

import "strings"

// field is a logical column.
type field int

const (
	fieldChannelID field = iota
	fieldChannelName
	fieldViews
	fieldPremiumViews
	fieldRevenue
	fieldAnalytics
	fieldVideoID
	fieldVideoTitle
	fieldMusicID
	fieldMusicTitle
	fieldCountry
)

// aliases lists every header spelling seen for a logical column, in
// normalized form (see normalizeHeader). Earlier aliases win when a file
// carries more than one.
var aliases = map[field][]string{
	fieldChannelID:    {"channelid", "channel", "ytchannelid", "youtubechannelid"},
	fieldChannelName:  {"channelname", "channeltitle", "name"},
	fieldViews:        {"views", "view", "totalviews", "viewcount"},
	fieldPremiumViews: {"premiumviews", "premiumview", "ytpremiumviews", "youtubepremiumviews", "redviews"},
	fieldRevenue:      {"revenue", "estimatedrevenue", "totalrevenue", "earnings", "revenueusd"},
	fieldAnalytics:    {"analytics", "analyticsjson", "countries", "breakdown"},
	fieldVideoID:      {"videoid", "video", "assetid"},
	fieldVideoTitle:   {"videotitle", "videoname", "title"},
	fieldMusicID:      {"musicid", "trackid", "songid", "music"},
	fieldMusicTitle:   {"musictitle", "musicname", "trackname", "songname", "title", "name"},
	fieldCountry:      {"country", "countrycode", "code", "region"},
}

// normalizeHeader lowercases and drops separators so "Premium Views",
// "premium_views" and "PremiumViews" compare equal.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(h)) {
		switch r {
		case ' ', '_', '-', '.', '(', ')', '$':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// headerIndex maps logical fields to column positions for one CSV header.
type headerIndex map[field]int

func indexHeader(header []string) headerIndex {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	idx := make(headerIndex)
	for f, names := range aliases {
		for _, name := range names {
			if pos, ok := positions[name]; ok {
				idx[f] = pos
				break
			}
		}
	}
	return idx
}

// get returns the trimmed cell for f, or "" when the column is absent.
func (h headerIndex) get(row []string, f field) string {
	pos, ok := h[f]
	if !ok || pos >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[pos])
}

func (h headerIndex) has(f field) bool {
	_, ok := h[f]
	return ok
}

// nestedKey finds a value in a breakdown object by logical field.
func nestedKey(obj map[string]interface{}, f field) (interface{}, bool) {
	for _, name := range aliases[f] {
		for key, v := range obj {
			if normalizeHeader(key) == name {
				return v, true
			}
		}
	}
	return nil, false
}
