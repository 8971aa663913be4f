// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

/*
Package services provides suture.Service wrappers for the proxy's
long-running components.

Each wrapper translates a component's own lifecycle (ListenAndServe, a
blocking Run loop, a ticker) into suture's context-aware Serve method and
implements fmt.Stringer so supervisor events name the service.

# Available Services

HTTPServerService:
  - Wraps *http.Server
  - Graceful Shutdown with a configurable drain timeout
  - http.ErrServerClosed is treated as a clean exit

DispatcherService:
  - Runs the upstream request queue's dispatch loop (queue.Queue.Run)
  - Restarted by the supervisor if it ever returns early

SweeperService:
  - Calls proxy.Service.Sweep on a fixed interval
  - Removes expired cache entries, idle per-endpoint backoff state and
    abandoned search sessions

# Usage

	tree.AddCoreService(services.NewDispatcherService(svc.Queue()))
	tree.AddCoreService(services.NewSweeperService(svc, cfg.Cache.SweepInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
*/
package services
