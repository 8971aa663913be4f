// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTestCache(ttl, idle time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New(ttl, idle)
	c.now = clock.Now
	return c, clock
}

func TestCacheBasicOperations(t *testing.T) {
	c := New(1*time.Minute, 0)

	c.Set("key1", "value1")
	value, exists := c.Get("key1")
	if !exists {
		t.Error("Expected key1 to exist")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	_, exists = c.Get("key2")
	if exists {
		t.Error("Expected key2 to not exist")
	}
}

func TestCacheExpiration(t *testing.T) {
	c, clock := newTestCache(100*time.Millisecond, 0)

	c.Set("key1", "value1")
	if _, exists := c.Get("key1"); !exists {
		t.Error("Expected key1 to exist immediately after set")
	}

	clock.Advance(99 * time.Millisecond)
	if _, exists := c.Get("key1"); !exists {
		t.Error("Expected key1 to exist before TTL elapses")
	}

	clock.Advance(1 * time.Millisecond)
	if _, exists := c.Get("key1"); exists {
		t.Error("Expected key1 to be expired once TTL elapsed")
	}
}

func TestCacheReadDoesNotExtendTTL(t *testing.T) {
	c, clock := newTestCache(time.Minute, 0)
	c.Set("k", 1)

	for i := 0; i < 5; i++ {
		clock.Advance(10 * time.Second)
		if _, ok := c.Get("k"); !ok {
			t.Fatalf("read %d: expected hit", i)
		}
	}

	clock.Advance(10 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Error("reads must not push expiry past storedAt + TTL")
	}
}

func TestCacheOverwriteRestartsTTL(t *testing.T) {
	c, clock := newTestCache(time.Minute, 0)
	c.Set("k", "old")
	clock.Advance(50 * time.Second)
	c.Set("k", "new")
	clock.Advance(50 * time.Second)

	v, ok := c.Get("k")
	if !ok || v != "new" {
		t.Errorf("Get() = %v, %v; want new, true", v, ok)
	}
}

func TestCacheSetWithTTL(t *testing.T) {
	c, clock := newTestCache(time.Hour, 0)
	c.SetWithTTL("short", "v", time.Second)
	clock.Advance(2 * time.Second)

	if _, ok := c.Get("short"); ok {
		t.Error("custom TTL should override the default")
	}
}

func TestCacheDelete(t *testing.T) {
	c := New(1*time.Minute, 0)

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, exists := c.Get("key1"); exists {
		t.Error("Expected key1 to be deleted")
	}
	if got := c.GetStats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}

	c.Delete("missing")
	if got := c.GetStats().Evictions; got != 1 {
		t.Errorf("deleting a missing key changed Evictions to %d", got)
	}
}

func TestCacheClear(t *testing.T) {
	c := New(1*time.Minute, 0)
	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("key%d", i), i)
	}

	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", c.Len())
	}
	stats := c.GetStats()
	if stats.Evictions != 10 {
		t.Errorf("Evictions = %d, want 10", stats.Evictions)
	}
	if stats.TotalKeys != 0 {
		t.Errorf("TotalKeys = %d, want 0", stats.TotalKeys)
	}
}

func TestCacheSweep(t *testing.T) {
	tests := []struct {
		name      string
		ttl       time.Duration
		idle      time.Duration
		touch     bool
		advance   time.Duration
		wantAlive bool
	}{
		{"fresh entry survives", time.Hour, 10 * time.Minute, false, time.Minute, true},
		{"expired entry removed", time.Minute, 0, false, 2 * time.Minute, false},
		{"idle entry removed before TTL", time.Hour, 10 * time.Minute, false, 11 * time.Minute, false},
		{"recently read entry survives idle sweep", time.Hour, 10 * time.Minute, true, 11 * time.Minute, true},
		{"idle disabled keeps entry", time.Hour, 0, false, 30 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, clock := newTestCache(tt.ttl, tt.idle)
			c.Set("k", "v")

			if tt.touch {
				clock.Advance(tt.advance / 2)
				if _, ok := c.Get("k"); !ok {
					t.Fatal("expected hit before sweep")
				}
				clock.Advance(tt.advance - tt.advance/2)
			} else {
				clock.Advance(tt.advance)
			}

			removed := c.Sweep(clock.Now())
			alive := c.Len() == 1
			if alive != tt.wantAlive {
				t.Errorf("alive = %v, want %v (removed %d)", alive, tt.wantAlive, removed)
			}
		})
	}
}

func TestCacheStats(t *testing.T) {
	c := New(1*time.Minute, 0)

	c.Set("key1", "value1")
	c.Get("key1")
	c.Get("key1")
	c.Get("missing")

	stats := c.GetStats()
	if stats.Hits != 2 {
		t.Errorf("Hits = %d, want 2", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Misses = %d, want 1", stats.Misses)
	}
	if stats.TotalKeys != 1 {
		t.Errorf("TotalKeys = %d, want 1", stats.TotalKeys)
	}

	hitRate := c.HitRate()
	expected := 2.0 / 3.0 * 100.0
	if hitRate < expected-0.01 || hitRate > expected+0.01 {
		t.Errorf("HitRate = %.2f, want %.2f", hitRate, expected)
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New(1*time.Minute, time.Minute)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key%d", n%5)
			for j := 0; j < 100; j++ {
				c.Set(key, j)
				c.Get(key)
				if j%25 == 0 {
					c.Sweep(time.Now())
				}
			}
		}(i)
	}
	wg.Wait()

	if c.Len() > 5 {
		t.Errorf("Len() = %d, want at most 5", c.Len())
	}
}

func TestGenerateKey(t *testing.T) {
	type params struct {
		Page int `json:"page"`
		Size int `json:"size"`
	}

	a := GenerateKey("tracks", params{Page: 1, Size: 20})
	b := GenerateKey("tracks", params{Page: 1, Size: 20})
	c := GenerateKey("tracks", params{Page: 2, Size: 20})
	d := GenerateKey("analytics", params{Page: 1, Size: 20})

	if a != b {
		t.Errorf("identical params produced different keys: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different pages must not share a key")
	}
	if a == d {
		t.Error("different operations must not share a key")
	}
	if a[:7] != "tracks:" {
		t.Errorf("key %q should be prefixed with the operation name", a)
	}
}
