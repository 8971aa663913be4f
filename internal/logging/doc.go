// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

// Package logging provides the process-wide zerolog logger.
//
// The global logger is usable before Init is called (JSON to stderr at
// info level), so packages and their tests can log freely. main calls
// Init once configuration is loaded.
//
//	logging.Init(logging.Config{Level: "debug", Format: "console"})
//	logging.Info().Str("class", "analytics").Msg("Queue started")
//
// Request-scoped logging goes through Ctx, which adds request_id and
// client_id when the HTTP middleware stored them in the context:
//
//	logging.Ctx(r.Context()).Warn().Err(err).Msg("Upstream rejected request")
//
// NewSlogLogger bridges the logger to libraries that expect *slog.Logger,
// such as the supervisor's sutureslog event hook.
//
// Secrets never go to the log verbatim; use Redact for API keys and
// RedactValue for free-form key/value pairs.
//
// Always terminate chains with Msg or Send, or nothing is written.
package logging
