// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

/*
Package supervisor provides process supervision for the proxy using suture v4.

The tree has two layers:

	RootSupervisor ("mediatiger")
	├── CoreSupervisor ("core-layer")
	│   ├── DispatcherService (request queue dispatch loop)
	│   └── SweeperService (cache, backoff and search session expiry)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A crashed service is restarted with suture's failure decay and backoff.
Restarting the dispatcher keeps queued items; restarting the HTTP server
drops nothing held by the proxy service since all state lives there.

# Logging

Supervisor events (service panics, restarts, backoff) are routed through
sutureslog into a slog.Logger. Pass logging.NewSlogLogger() so they end up
in the same zerolog output as the rest of the process.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
	    return err
	}
	tree.AddCoreService(services.NewDispatcherService(svc.Queue()))
	tree.AddCoreService(services.NewSweeperService(svc, cfg.Cache.SweepInterval))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)

See the services subpackage for the wrappers.
*/
package supervisor
