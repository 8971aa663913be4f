// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package models

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Track is a catalog item. The upstream API is inconsistent about field
// names and types, so UnmarshalJSON accepts the known variants.
type Track struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Artist   string   `json:"artist"`
	Genre    string   `json:"genre,omitempty"`
	Mood     string   `json:"mood,omitempty"`
	Tags     []string `json:"tags"`
	Duration float64  `json:"duration,omitempty"`
	CoverURL string   `json:"coverUrl,omitempty"`
	AudioURL string   `json:"audioUrl,omitempty"`
}

// rawTrack mirrors the upstream item with every tolerated alias.
type rawTrack struct {
	ID         json.RawMessage `json:"id"`
	MusicID    json.RawMessage `json:"music_id"`
	Name       string          `json:"name"`
	Title      string          `json:"title"`
	Artist     string          `json:"artist"`
	ArtistName string          `json:"artist_name"`
	Singer     string          `json:"singer"`
	Genre      string          `json:"genre"`
	Mood       string          `json:"mood"`
	Tags       json.RawMessage `json:"tags"`
	Tag        json.RawMessage `json:"tag"`
	Duration   json.RawMessage `json:"duration"`
	Cover      string          `json:"cover"`
	CoverURL   string          `json:"cover_url"`
	URL        string          `json:"url"`
	AudioURL   string          `json:"audio_url"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Track) UnmarshalJSON(data []byte) error {
	var raw rawTrack
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.ID = firstNonEmpty(rawString(raw.ID), rawString(raw.MusicID))
	t.Name = firstNonEmpty(raw.Name, raw.Title)
	t.Artist = firstNonEmpty(raw.Artist, raw.ArtistName, raw.Singer)
	t.Genre = raw.Genre
	t.Mood = raw.Mood
	t.Tags = rawTags(raw.Tags)
	if len(t.Tags) == 0 {
		t.Tags = rawTags(raw.Tag)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	t.Duration, _ = strconv.ParseFloat(rawString(raw.Duration), 64)
	t.CoverURL = firstNonEmpty(raw.CoverURL, raw.Cover)
	t.AudioURL = firstNonEmpty(raw.AudioURL, raw.URL)
	return nil
}

// rawString renders a JSON scalar (string or number) as a plain string.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// rawTags accepts either a JSON array of strings or a comma separated string.
func rawTags(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanTags(list)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return cleanTags(strings.Split(s, ","))
	}
	return nil
}

func cleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, tag := range in {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// CatalogPage is one decoded upstream catalog page.
type CatalogPage struct {
	Page    int
	Size    int
	Items   []Track
	HasNext bool
	// Total is the upstream item count, or -1 while unknown.
	Total int
}

// TotalKnown reports whether the upstream disclosed its total item count.
func (p *CatalogPage) TotalKnown() bool {
	return p.Total >= 0
}
