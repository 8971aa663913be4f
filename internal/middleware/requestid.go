// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tayawaaean/mediatiger-sub002/internal/logging"
)

const (
	// RequestIDHeader carries the request ID in both directions.
	RequestIDHeader = "X-Request-ID"
	// ClientIDHeader lets a client name itself for search sessions.
	ClientIDHeader = "X-Client-ID"

	maxHeaderIDLen = 128
)

// RequestID reuses an inbound X-Request-ID or generates a UUID v4, echoes
// it in the response and stores it in the request context for logging.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := sanitizeID(r.Header.Get(RequestIDHeader))
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientID resolves the client identity that keys search sessions.
func ClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWithClientID(r.Context(), ResolveClientID(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ResolveClientID returns X-Client-ID when set, else the remote IP.
func ResolveClientID(r *http.Request) string {
	if id := sanitizeID(r.Header.Get(ClientIDHeader)); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// GetRequestID extracts the request ID from r's context.
func GetRequestID(r *http.Request) string {
	return logging.RequestIDFromContext(r.Context())
}

// sanitizeID trims v and rejects values that are too long or contain
// control characters.
func sanitizeID(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || len(v) > maxHeaderIDLen {
		return ""
	}
	for _, c := range v {
		if c < 0x20 || c == 0x7f {
			return ""
		}
	}
	return v
}
