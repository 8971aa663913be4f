// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package services

import (
	"context"
	"fmt"
)

// Dispatcher is satisfied by *queue.Queue.
type Dispatcher interface {
	Run(ctx context.Context) error
}

// DispatcherService runs the upstream request queue's dispatch loop.
//
// Every upstream call waits on this loop for admission, so a crash here
// stalls the whole proxy. The supervisor restarts it; items queued at the
// time stay queued and are picked up by the next Run.
type DispatcherService struct {
	queue Dispatcher
	name  string
}

// NewDispatcherService wraps q.
func NewDispatcherService(q Dispatcher) *DispatcherService {
	return &DispatcherService{queue: q, name: "request-queue"}
}

// Serve implements suture.Service.
func (d *DispatcherService) Serve(ctx context.Context) error {
	if err := d.queue.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("request queue stopped: %w", err)
	}
	return ctx.Err()
}

func (d *DispatcherService) String() string {
	return d.name
}
