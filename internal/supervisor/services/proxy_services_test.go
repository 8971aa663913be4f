// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tayawaaean/mediatiger-sub002/internal/proxy"
	"github.com/tayawaaean/mediatiger-sub002/internal/queue"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep(time.Time) proxy.SweepResult {
	c.calls.Add(1)
	return proxy.SweepResult{CacheEntries: 1}
}

type failingDispatcher struct {
	runs atomic.Int32
}

func (f *failingDispatcher) Run(ctx context.Context) error {
	if f.runs.Add(1) == 1 {
		return errors.New("dispatch loop crashed")
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestSweeperService(t *testing.T) {
	var _ suture.Service = (*SweeperService)(nil)

	target := &countingSweeper{}
	svc := NewSweeperService(target, 10*time.Millisecond)
	if svc.String() != "state-sweeper" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 75*time.Millisecond)
	defer cancel()

	err := svc.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
	}
	if target.calls.Load() < 2 {
		t.Errorf("sweep calls = %d, want at least 2", target.calls.Load())
	}
}

func TestSweeperServiceDefaultInterval(t *testing.T) {
	svc := NewSweeperService(&countingSweeper{}, 0)
	if svc.interval != time.Minute {
		t.Errorf("interval = %v, want 1m", svc.interval)
	}
}

func TestDispatcherServiceRunsQueue(t *testing.T) {
	var _ suture.Service = (*DispatcherService)(nil)

	q := queue.New(queue.Config{
		MaxConcurrent: 1,
		Classes:       map[string]queue.ClassConfig{"music": {MaxInFlight: 1}},
	})
	svc := NewDispatcherService(q)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	v, err := queue.Submit[string](context.Background(), q, "music", queue.PriorityNormal,
		func(context.Context) (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Fatalf("Submit() = %q, %v", v, err)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestDispatcherServiceRestartedBySupervisor(t *testing.T) {
	d := &failingDispatcher{}

	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 5,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(NewDispatcherService(d))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for d.runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-errCh

	if d.runs.Load() < 2 {
		t.Errorf("dispatcher runs = %d, want a restart after the crash", d.runs.Load())
	}
}
