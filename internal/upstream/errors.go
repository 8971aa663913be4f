// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error taxonomy for upstream calls. Callers match with errors.Is.
var (
	// ErrAuth means the upstream rejected our credentials (401/403).
	// It is never retried and never masked by sample data.
	ErrAuth = errors.New("upstream authentication failed")

	// ErrRateLimited means the upstream answered 429.
	ErrRateLimited = errors.New("upstream rate limited")

	// ErrUnreachable covers network failures, timeouts and an open circuit.
	ErrUnreachable = errors.New("upstream unreachable")

	// ErrEmpty is a structurally valid "no data" answer.
	ErrEmpty = errors.New("upstream returned no data")

	// ErrMalformed means the payload could not be decoded at all.
	ErrMalformed = errors.New("malformed upstream payload")
)

// StatusError is a non-success answer from the upstream, either an HTTP
// status or a response_code inside a JSON envelope.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: upstream status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: upstream status %d", e.Op, e.StatusCode)
}

// Is maps status codes onto the sentinel taxonomy.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrAuth:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrEmpty:
		return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusNoContent
	}
	return false
}

// IsAuth reports whether err is an upstream authentication failure.
func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }

// IsRateLimited reports whether err is an upstream 429.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// IsEmpty reports whether err is a "no data" answer.
func IsEmpty(err error) bool { return errors.Is(err, ErrEmpty) }

// IsUnreachable reports whether err is a network-level failure.
func IsUnreachable(err error) bool { return errors.Is(err, ErrUnreachable) }

// RetryAfter returns the upstream Retry-After hint carried by err, or 0.
func RetryAfter(err error) time.Duration {
	var se *StatusError
	if errors.As(err, &se) {
		return se.RetryAfter
	}
	return 0
}
