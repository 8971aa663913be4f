// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
	"github.com/tayawaaean/mediatiger-sub002/internal/proxy"
	"github.com/tayawaaean/mediatiger-sub002/internal/queue"
	"github.com/tayawaaean/mediatiger-sub002/internal/report"
	"github.com/tayawaaean/mediatiger-sub002/internal/upstream"
)

// errorMapping is the HTTP rendering of one error class.
type errorMapping struct {
	status  int
	code    string
	message string
}

// classifyError maps the proxy and upstream error taxonomy onto HTTP.
// Order matters: an exhausted rate limit also matches ErrRateLimited, and
// the caller-side checks must run before any upstream one.
func classifyError(err error) errorMapping {
	switch {
	case errors.Is(err, proxy.ErrFutureDate):
		return errorMapping{http.StatusBadRequest, ErrCodeValidation, err.Error()}
	case errors.Is(err, proxy.ErrInvalidInput):
		return errorMapping{http.StatusBadRequest, ErrCodeBadRequest, err.Error()}

	case upstream.IsAuth(err):
		return errorMapping{http.StatusBadGateway, ErrCodeUpstreamAuth,
			"The upstream API rejected our credentials"}
	case proxy.IsRateLimitExhausted(err), upstream.IsRateLimited(err):
		return errorMapping{http.StatusTooManyRequests, ErrCodeUpstreamRateLimited,
			"The upstream API is rate limiting requests, try again shortly"}
	case upstream.IsUnreachable(err), errors.Is(err, context.DeadlineExceeded):
		return errorMapping{http.StatusGatewayTimeout, ErrCodeUpstreamUnreachable,
			"The upstream API could not be reached"}
	case upstream.IsEmpty(err), errors.Is(err, report.ErrNoData):
		return errorMapping{http.StatusNotFound, ErrCodeNotFound,
			"No data is available for this request"}
	case errors.Is(err, queue.ErrClosed):
		return errorMapping{http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"The server is shutting down"}
	case errors.Is(err, context.Canceled):
		// Only reached when the caller itself is still connected.
		return errorMapping{http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"The upstream call was cancelled, try again"}
	}

	var se *upstream.StatusError
	if errors.As(err, &se) || errors.Is(err, upstream.ErrMalformed) {
		return errorMapping{http.StatusBadGateway, ErrCodeExternalServiceFail,
			"The upstream API returned an unexpected response"}
	}
	return errorMapping{http.StatusInternalServerError, ErrCodeInternalError, "Internal server error"}
}

// respondServiceError writes the error envelope for err. A client that went
// away gets nothing; there is nobody left to read the answer.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Client cancelled request")
		return
	}

	m := classifyError(err)
	if m.code == ErrCodeExternalServiceFail {
		NewResponseWriter(w, r).ExternalServiceError("upstream API", err)
		return
	}

	ev := logging.Ctx(r.Context()).Warn()
	if m.status >= http.StatusInternalServerError {
		ev = logging.Ctx(r.Context()).Error()
	}
	ev.Err(err).Int("status", m.status).Str("code", m.code).Msg("Request failed")

	NewResponseWriter(w, r).Error(m.status, m.code, m.message)
}
