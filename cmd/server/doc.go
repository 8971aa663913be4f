// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

/*
Package main is the entry point for the MediaTiger aggregation proxy.

The proxy sits in front of a rate-limited music catalog and daily reporting
API. It serves paginated and filtered track lists, and per-day or
date-range analytics extracted from the upstream ZIP/CSV reports, while
keeping the upstream call rate inside its quotas through a priority queue,
per-endpoint adaptive backoff, a response cache and a circuit breaker.

# Application Architecture

	RootSupervisor ("mediatiger")
	├── CoreSupervisor ("core-layer")
	│   ├── Request queue dispatcher
	│   └── State sweeper (cache, backoff keys, search sessions)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Component initialization order:

 1. Configuration: Koanf v2 (defaults, optional YAML file, environment)
 2. Logging: zerolog with JSON/console output modes
 3. Upstream client: HTTP client wrapped in a gobreaker circuit breaker
 4. Proxy service: cache, queue, backoff limiter, search accumulator
 5. HTTP router: chi with request ID, rate limit, CORS and metrics middleware
 6. Supervisor tree: suture v4

# Configuration

	# Server
	HTTP_PORT=8080
	WRITE_TIMEOUT=5m                  # analytics ranges wait on the queue
	LOG_LEVEL=info                    # trace, debug, info, warn, error
	LOG_FORMAT=json                   # json or console

	# Upstream (required)
	UPSTREAM_BASE_URL=https://api.example.com
	UPSTREAM_API_KEY=<key>

	# Throttling
	QUEUE_MUSIC_DELAY=500ms
	QUEUE_RANGE_DELAY=1500ms
	BACKOFF_BASE=200ms
	BACKOFF_MAX_RETRIES=3

	# Analytics
	ANALYTICS_SAMPLE_FALLBACK=true
	ANALYTICS_MAX_RANGE_DAYS=31

A YAML file at CONFIG_PATH (or ./config.yaml) may set any of these under
the same section names; environment variables win.

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains for
SHUTDOWN_TIMEOUT, queued upstream calls are cancelled and their callers
receive 503 SERVICE_UNAVAILABLE.

# Example Usage

	export UPSTREAM_BASE_URL=https://partner.example.com
	export UPSTREAM_API_KEY=secret
	export LOG_FORMAT=console
	./mediatiger

	curl 'localhost:8080/api/v1/tracks/mood?mood=epic&size=20'
	curl 'localhost:8080/api/v1/analytics?date=2026-03-01'
*/
package main
