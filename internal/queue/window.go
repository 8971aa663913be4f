// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package queue

import "time"

// quotaWindow counts admissions for one endpoint class. The counter resets
// when the window rolls over; a limit of zero disables the quota.
type quotaWindow struct {
	limit  int
	length time.Duration
	start  time.Time
	count  int
}

func (w *quotaWindow) roll(now time.Time) {
	if w.start.IsZero() || now.Sub(w.start) >= w.length {
		w.start = now
		w.count = 0
	}
}

// allow consumes one unit of quota if available.
func (w *quotaWindow) allow(now time.Time) bool {
	if w.limit <= 0 || w.length <= 0 {
		return true
	}
	w.roll(now)
	if w.count >= w.limit {
		return false
	}
	w.count++
	return true
}

// resetAt is when the current window rolls over.
func (w *quotaWindow) resetAt() time.Time {
	return w.start.Add(w.length)
}

// used returns the admissions counted in the window that contains now.
func (w *quotaWindow) used(now time.Time) int {
	if w.start.IsZero() || now.Sub(w.start) >= w.length {
		return 0
	}
	return w.count
}
