// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

/*
Package api exposes the throttled aggregation proxy over HTTP.

Routes (chi):

	GET /api/v1/health                              liveness and breaker state
	GET /api/v1/stats                               cache, queue, limiter and latency stats
	GET /api/v1/tracks?page&size                    one upstream catalog page
	GET /api/v1/tracks/search?q&page&size           text search across the whole catalog
	GET /api/v1/tracks/mood?mood&page&size          mood or tag filter across the whole catalog
	GET /api/v1/analytics?date&channel              reconciled daily report
	GET /api/v1/analytics/range?start&end&channel   daily series with totals
	GET /metrics                                    Prometheus exposition

Response Contract:

Track and analytics endpoints keep the flat shape the web client was built
against:

	{
	  "success": true,
	  "tracks": [...],
	  "hasMore": true,
	  "page": 1,
	  "size": 20,
	  "searchInfo": {
	    "totalFound": 5,
	    "searchComplete": true,
	    "totalAvailable": 300,
	    "searchedThrough": 300
	  }
	}

Mood filtering returns the same block under "moodInfo". Health and stats
use the {success, data, meta} envelope. Every error uses:

	{"success": false, "error": {"code": "...", "message": "...", "request_id": "..."}}

Error Mapping:

  - 400 BAD_REQUEST: malformed parameters, inverted or oversized ranges
  - 400 VALIDATION_ERROR: failed validation tags, dates in the future
  - 404 NOT_FOUND: the upstream has no data and sample fallback is off
  - 429 UPSTREAM_RATE_LIMITED: the upstream kept answering 429
  - 429 TOO_MANY_REQUESTS: this client exceeded the inbound limit
  - 502 UPSTREAM_AUTH_FAILED: the upstream rejected our credentials
  - 502 EXTERNAL_SERVICE_FAILED: other upstream statuses or undecodable payloads
  - 504 UPSTREAM_UNREACHABLE: network failure, timeout or an open circuit

Search sessions are keyed by client. The client is X-Client-ID when sent,
otherwise the remote IP (after chi's RealIP).
*/
package api
