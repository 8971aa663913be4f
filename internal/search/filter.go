// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package search

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/tayawaaean/mediatiger-sub002/internal/models"
)

// Filter is the local predicate applied to upstream pages. Both parts are
// optional; when both are set an item must satisfy both.
type Filter struct {
	// Text is matched as a substring of name, artist, genre or any tag.
	Text string `json:"text,omitempty"`
	// Tag must equal one of the item's tags or its mood.
	Tag string `json:"tag,omitempty"`
}

// fold performs Unicode case folding. A Caser is not safe for concurrent
// use, so one is created per call.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Normalize returns the filter with both parts trimmed and case folded.
// Normalized filters are what session keys are derived from.
func (f Filter) Normalize() Filter {
	return Filter{
		Text: strings.Join(strings.Fields(fold(f.Text)), " "),
		Tag:  fold(f.Tag),
	}
}

// IsEmpty reports whether the filter matches everything.
func (f Filter) IsEmpty() bool {
	return f.Text == "" && f.Tag == ""
}

// Key renders the normalized filter for use in a session key.
func (f Filter) Key() string {
	n := f.Normalize()
	return "text=" + n.Text + "|tag=" + n.Tag
}

// Match reports whether track satisfies the filter. f must be normalized.
func (f Filter) Match(track *models.Track) bool {
	if f.Text != "" && !matchText(f.Text, track) {
		return false
	}
	if f.Tag != "" && !matchTag(f.Tag, track) {
		return false
	}
	return true
}

func matchText(text string, track *models.Track) bool {
	if strings.Contains(fold(track.Name), text) ||
		strings.Contains(fold(track.Artist), text) ||
		strings.Contains(fold(track.Genre), text) {
		return true
	}
	for _, tag := range track.Tags {
		if strings.Contains(fold(tag), text) {
			return true
		}
	}
	return false
}

func matchTag(tag string, track *models.Track) bool {
	if fold(track.Mood) == tag {
		return true
	}
	for _, t := range track.Tags {
		if fold(t) == tag {
			return true
		}
	}
	return false
}
