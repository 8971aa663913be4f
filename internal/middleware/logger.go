// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
)

// RequestLogger writes one log line per request. Server errors log at
// error level, client errors at warn, everything else at debug so that
// polling clients do not flood the log.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		level := zerolog.DebugLevel
		switch {
		case rec.statusCode >= 500:
			level = zerolog.ErrorLevel
		case rec.statusCode >= 400:
			level = zerolog.WarnLevel
		}

		logging.Ctx(r.Context()).WithLevel(level).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", routePattern(r)).
			Int("status", rec.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}
