// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrExhausted is returned (wrapped in *ExhaustedError) when a key is still
// rate limited after the configured number of attempts.
var ErrExhausted = errors.New("rate limit retries exhausted")

// ExhaustedError reports a terminal rate-limit failure for one key.
type ExhaustedError struct {
	Key      string
	Class    string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s after %d attempts: %v", e.Key, e.Attempts, e.Last)
}

// Unwrap exposes both ErrExhausted and the last upstream error to errors.Is.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// Config holds limiter settings.
type Config struct {
	// Base is the minimum spacing between calls on one key.
	Base time.Duration
	// MaxMultiplier caps backoff at Base*MaxMultiplier.
	MaxMultiplier int
	// MaxRetries bounds the retries after the first attempt.
	MaxRetries int
	// NoRetryClasses fail on the first rate-limited response.
	NoRetryClasses []string
	// IsRateLimited classifies an error returned by the wrapped call.
	IsRateLimited func(error) bool
	// RetryAfter extracts an upstream hint from a rate-limited error, or 0.
	RetryAfter func(error) time.Duration
	// OnBackoff is notified whenever a key's backoff changes.
	OnBackoff func(key string, backoff time.Duration)
}

// state is the per-key RateLimitState.
type state struct {
	lastCallAt     time.Time
	currentBackoff time.Duration
	lastSeen       time.Time
}

// Limiter gates upstream calls per logical key with adaptive backoff.
type Limiter struct {
	mu      sync.Mutex
	states  map[string]*state
	base    time.Duration
	max     time.Duration
	retries int
	noRetry map[string]bool
	isLimit func(error) bool
	hint    func(error) time.Duration
	notify  func(string, time.Duration)
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates a Limiter. Zero values fall back to 200ms base, a 30x cap
// and 3 retries.
func New(cfg Config) *Limiter {
	if cfg.Base <= 0 {
		cfg.Base = 200 * time.Millisecond
	}
	if cfg.MaxMultiplier <= 0 {
		cfg.MaxMultiplier = 30
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.IsRateLimited == nil {
		cfg.IsRateLimited = func(error) bool { return false }
	}

	noRetry := make(map[string]bool, len(cfg.NoRetryClasses))
	for _, class := range cfg.NoRetryClasses {
		noRetry[class] = true
	}

	return &Limiter{
		states:  make(map[string]*state),
		base:    cfg.Base,
		max:     cfg.Base * time.Duration(cfg.MaxMultiplier),
		retries: cfg.MaxRetries,
		noRetry: noRetry,
		isLimit: cfg.IsRateLimited,
		hint:    cfg.RetryAfter,
		notify:  cfg.OnBackoff,
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// stateFor returns the state for key, creating it lazily. Caller holds mu.
func (l *Limiter) stateFor(key string) *state {
	st, ok := l.states[key]
	if !ok {
		st = &state{currentBackoff: l.base}
		l.states[key] = st
	}
	return st
}

// Acquire suspends until lastCallAt + currentBackoff has passed for key.
// Concurrent callers reserve consecutive slots, so successive calls on the
// same key are always spaced by at least the backoff in effect.
func (l *Limiter) Acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	st := l.stateFor(key)
	now := l.now()
	slot := now
	if !st.lastCallAt.IsZero() {
		if earliest := st.lastCallAt.Add(st.currentBackoff); earliest.After(now) {
			slot = earliest
		}
	}
	st.lastCallAt = slot
	st.lastSeen = now
	l.mu.Unlock()

	if wait := slot.Sub(now); wait > 0 {
		return l.sleep(ctx, wait)
	}
	return ctx.Err()
}

// OnSuccess resets the key's backoff to the base value.
func (l *Limiter) OnSuccess(key string) {
	l.mu.Lock()
	st := l.stateFor(key)
	changed := st.currentBackoff != l.base
	st.currentBackoff = l.base
	l.mu.Unlock()

	if changed && l.notify != nil {
		l.notify(key, l.base)
	}
}

// OnRateLimited doubles the key's backoff up to the cap. A larger upstream
// hint replaces the doubled value but is capped the same way.
func (l *Limiter) OnRateLimited(key string, hint time.Duration) time.Duration {
	l.mu.Lock()
	st := l.stateFor(key)
	next := st.currentBackoff * 2
	if hint > next {
		next = hint
	}
	if next > l.max {
		next = l.max
	}
	st.currentBackoff = next
	l.mu.Unlock()

	if l.notify != nil {
		l.notify(key, next)
	}
	return next
}

// Backoff returns the key's current backoff (base for unseen keys).
func (l *Limiter) Backoff(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok := l.states[key]; ok {
		return st.currentBackoff
	}
	return l.base
}

// Cap returns the maximum backoff.
func (l *Limiter) Cap() time.Duration {
	return l.max
}

// MaxRetries returns the retry bound used by Do.
func (l *Limiter) MaxRetries() int {
	return l.retries
}

// Do runs fn under the limiter for key. Rate-limited failures are retried
// with doubling backoff at most MaxRetries times; classes listed in
// NoRetryClasses fail on the first rate-limited response. Any other error
// is returned as is.
func (l *Limiter) Do(ctx context.Context, key, class string, fn func(ctx context.Context) error) error {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= l.retries; attempt++ {
		if err := l.Acquire(ctx, key); err != nil {
			return err
		}

		attempts++
		err := fn(ctx)
		if err == nil {
			l.OnSuccess(key)
			return nil
		}
		if !l.isLimit(err) {
			return err
		}

		lastErr = err
		var hint time.Duration
		if l.hint != nil {
			hint = l.hint(err)
		}
		l.OnRateLimited(key, hint)

		if l.noRetry[class] {
			break
		}
	}

	return &ExhaustedError{Key: key, Class: class, Attempts: attempts, Last: lastErr}
}

// Sweep removes keys not acquired within idle. Returns the number removed.
func (l *Limiter) Sweep(now time.Time, idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, st := range l.states {
		if now.Sub(st.lastSeen) >= idle {
			delete(l.states, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
