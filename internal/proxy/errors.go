// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package proxy

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the parent of every caller-side error. The HTTP layer
// answers these with 400 and never reaches the upstream.
var ErrInvalidInput = errors.New("invalid input")

var (
	// ErrInvalidDate is returned when a date parameter is not a calendar
	// date in YYYY-MM-DD form.
	ErrInvalidDate = fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidInput)

	// ErrFutureDate is returned for a date after today (UTC). It is checked
	// before anything is queued, so it never costs an upstream call.
	ErrFutureDate = fmt.Errorf("%w: date is in the future", ErrInvalidInput)

	// ErrInvalidRange is returned when a range ends before it starts or
	// spans more days than the configured maximum.
	ErrInvalidRange = fmt.Errorf("%w: invalid date range", ErrInvalidInput)
)
