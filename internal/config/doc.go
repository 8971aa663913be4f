// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

/*
Package config loads and validates the proxy configuration.

Configuration is layered with Koanf v2: built-in defaults, then an
optional YAML file, then environment variables. Only variables listed in
the mapping table are read.

# Minimal setup

	UPSTREAM_BASE_URL=https://api.example.net
	UPSTREAM_API_KEY=...

# Example config.yaml

	upstream:
	  base_url: https://api.example.net
	  api_key: ...
	queue:
	  max_concurrent: 4
	  range:
	    quota: 20
	    window: 1m
	    delay: 2s
	backoff:
	  base: 250ms
	  max_retries: 3
	  no_retry_classes: [analytics]

Durations use Go syntax (500ms, 1m30s). Slice values from the environment
are comma-separated (CORS_ORIGINS=https://a.example,https://b.example).
*/
package config
