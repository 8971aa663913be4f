// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
	"github.com/tayawaaean/mediatiger-sub002/internal/metrics"
)

// Priorities. Lower numbers run first.
const (
	PriorityHigh   = 1
	PriorityNormal = 2
	PriorityLow    = 3
)

var (
	// ErrClosed is returned for work submitted to, or still pending in, a stopped queue.
	ErrClosed = errors.New("request queue closed")

	// ErrUnknownClass is returned when the endpoint class has no configuration.
	ErrUnknownClass = errors.New("unknown endpoint class")
)

// Task is a deferred upstream call. It receives the submitter's context, so
// an abandoned request stops consuming upstream quota.
type Task func(ctx context.Context) (interface{}, error)

// ClassConfig configures one endpoint class.
type ClassConfig struct {
	// Quota is the number of admissions allowed per Window (0 = unlimited).
	Quota  int
	Window time.Duration
	// Delay is the pause after a task of this class completes before the
	// next one of the same class is admitted.
	Delay time.Duration
	// MaxInFlight bounds concurrently running tasks of this class (default 1).
	MaxInFlight int
}

// Config holds queue settings.
type Config struct {
	MaxConcurrent int
	Classes       map[string]ClassConfig
}

type result struct {
	value interface{}
	err   error
}

// item is a QueueItem.
type item struct {
	id         string
	class      string
	priority   int
	seq        uint64
	enqueuedAt time.Time
	requeues   int
	task       Task
	ctx        context.Context
	done       chan result
}

func (it *item) finish(v interface{}, err error) {
	it.done <- result{value: v, err: err}
}

// classState is the per-class admission bookkeeping.
type classState struct {
	cfg       ClassConfig
	window    quotaWindow
	inFlight  int
	nextAdmit time.Time

	started   int64
	completed int64
	failed    int64
	requeued  int64
	cancelled int64
}

// Queue bounds upstream concurrency, enforces per-class quotas and spacing,
// and orders pending work by priority. Run is the single dispatcher; every
// admission decision is made there.
type Queue struct {
	mu            sync.Mutex
	pending       itemHeap
	classes       map[string]*classState
	maxConcurrent int
	running       int
	seq           uint64
	closed        bool
	wake          chan struct{}
	now           func() time.Time
}

// New creates a queue. Run must be started for submitted work to execute.
func New(cfg Config) *Queue {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}

	classes := make(map[string]*classState, len(cfg.Classes))
	for name, cc := range cfg.Classes {
		if cc.MaxInFlight <= 0 {
			cc.MaxInFlight = 1
		}
		classes[name] = &classState{
			cfg:    cc,
			window: quotaWindow{limit: cc.Quota, length: cc.Window},
		}
	}

	return &Queue{
		classes:       classes,
		maxConcurrent: cfg.MaxConcurrent,
		wake:          make(chan struct{}, 1),
		now:           time.Now,
	}
}

// Enqueue schedules task on the given endpoint class and blocks until it
// has run or ctx is done. Priority is clamped to 1..3.
func (q *Queue) Enqueue(ctx context.Context, class string, priority int, task Task) (interface{}, error) {
	if priority < PriorityHigh {
		priority = PriorityHigh
	}
	if priority > PriorityLow {
		priority = PriorityLow
	}

	it := &item{
		id:       uuid.NewString(),
		class:    class,
		priority: priority,
		task:     task,
		ctx:      ctx,
		done:     make(chan result, 1),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	if _, ok := q.classes[class]; !ok {
		q.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	q.seq++
	it.seq = q.seq
	it.enqueuedAt = q.now()
	q.pending.Push(it)
	depth := q.pending.Len()
	q.mu.Unlock()

	metrics.QueueDepth.Set(float64(depth))
	q.signal()

	select {
	case res := <-it.done:
		return res.value, res.err
	case <-ctx.Done():
		// The dispatcher discards the item when it next sees it.
		q.signal()
		return nil, ctx.Err()
	}
}

// Submit is a typed wrapper around Enqueue.
func Submit[T any](ctx context.Context, q *Queue, class string, priority int, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	v, err := q.Enqueue(ctx, class, priority, func(ctx context.Context) (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("queue: unexpected result type %T", v)
	}
	return typed, nil
}

// Run dispatches queued work until ctx is done. Between dispatch passes it
// sleeps until the earliest quota rollover or inter-request delay expires,
// or until new work or a completion wakes it.
func (q *Queue) Run(ctx context.Context) error {
	q.mu.Lock()
	q.closed = false
	q.mu.Unlock()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			q.close()
			return err
		}

		wait := q.dispatch(q.now())

		timer.Stop()
		var timerC <-chan time.Time
		if wait >= 0 {
			timer.Reset(wait)
			timerC = timer.C
		}

		select {
		case <-ctx.Done():
			q.close()
			return ctx.Err()
		case <-q.wake:
		case <-timerC:
		}
	}
}

// signal wakes the dispatcher without blocking.
func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// dispatch starts every admissible item and returns how long to wait
// before the next scheduled attempt, or -1 if only an external event
// (enqueue or completion) can unblock pending work.
func (q *Queue) dispatch(now time.Time) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	var held []*item
	var wakeAt time.Time
	schedule := func(t time.Time) {
		if wakeAt.IsZero() || t.Before(wakeAt) {
			wakeAt = t
		}
	}

	for q.running < q.maxConcurrent && q.pending.Len() > 0 {
		it := q.pending.Pop()
		cs := q.classes[it.class]

		if err := it.ctx.Err(); err != nil {
			cs.cancelled++
			it.finish(nil, err)
			continue
		}

		if now.Before(cs.nextAdmit) {
			held = append(held, it)
			schedule(cs.nextAdmit)
			continue
		}

		if cs.inFlight >= cs.cfg.MaxInFlight {
			held = append(held, it)
			continue
		}

		if !cs.window.allow(now) {
			if it.priority < PriorityLow {
				it.priority++
			}
			it.requeues++
			cs.requeued++
			metrics.QueueRequeues.WithLabelValues(it.class).Inc()
			qlog := logging.WithComponent("queue")
			qlog.Debug().
				Str("item_id", it.id).
				Str("class", it.class).
				Int("priority", it.priority).
				Dur("retry_in", cs.window.resetAt().Sub(now)).
				Msg("Endpoint class over quota, requeued with lower priority")
			held = append(held, it)
			schedule(cs.window.resetAt())
			continue
		}

		q.start(it, cs, now)
	}

	for _, it := range held {
		q.pending.Push(it)
	}
	metrics.QueueDepth.Set(float64(q.pending.Len()))

	if wakeAt.IsZero() {
		return -1
	}
	if d := wakeAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// start launches the item. Caller holds mu.
func (q *Queue) start(it *item, cs *classState, now time.Time) {
	q.running++
	cs.inFlight++
	cs.started++
	metrics.QueueWaitDuration.WithLabelValues(it.class).Observe(now.Sub(it.enqueuedAt).Seconds())

	go func() {
		v, err := it.task(it.ctx)
		q.complete(cs, err)
		metrics.QueueTasks.WithLabelValues(it.class, taskStatus(err)).Inc()
		it.finish(v, err)
	}()
}

func (q *Queue) complete(cs *classState, err error) {
	q.mu.Lock()
	q.running--
	cs.inFlight--
	if err != nil {
		cs.failed++
	} else {
		cs.completed++
	}
	cs.nextAdmit = q.now().Add(cs.cfg.Delay)
	q.mu.Unlock()

	q.signal()
}

// close fails everything still pending. Running tasks finish on their own.
func (q *Queue) close() {
	q.mu.Lock()
	q.closed = true
	var drained []*item
	for q.pending.Len() > 0 {
		drained = append(drained, q.pending.Pop())
	}
	q.mu.Unlock()

	for _, it := range drained {
		it.finish(nil, ErrClosed)
	}
	metrics.QueueDepth.Set(0)
}

func taskStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

// ClassStats is a snapshot of one endpoint class.
type ClassStats struct {
	InFlight    int   `json:"in_flight"`
	WindowUsed  int   `json:"window_used"`
	WindowQuota int   `json:"window_quota"`
	Started     int64 `json:"started"`
	Completed   int64 `json:"completed"`
	Failed      int64 `json:"failed"`
	Requeued    int64 `json:"requeued"`
	Cancelled   int64 `json:"cancelled"`
}

// Stats is a snapshot of the queue.
type Stats struct {
	Depth         int                   `json:"depth"`
	Running       int                   `json:"running"`
	MaxConcurrent int                   `json:"max_concurrent"`
	Classes       map[string]ClassStats `json:"classes"`
}

// Stats returns a snapshot of queue state.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	classes := make(map[string]ClassStats, len(q.classes))
	for name, cs := range q.classes {
		classes[name] = ClassStats{
			InFlight:    cs.inFlight,
			WindowUsed:  cs.window.used(now),
			WindowQuota: cs.cfg.Quota,
			Started:     cs.started,
			Completed:   cs.completed,
			Failed:      cs.failed,
			Requeued:    cs.requeued,
			Cancelled:   cs.cancelled,
		}
	}

	return Stats{
		Depth:         q.pending.Len(),
		Running:       q.running,
		MaxConcurrent: q.maxConcurrent,
		Classes:       classes,
	}
}
