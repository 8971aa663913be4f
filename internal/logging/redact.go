// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package logging

import "strings"

// Redact masks a secret, keeping the first and last 4 characters of long
// values so operators can tell keys apart.
//
//	Redact("sk-live-0123456789abcdef") // "sk-l...cdef"
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 12 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

var sensitiveKeys = map[string]bool{
	"apikey":        true,
	"api_key":       true,
	"x-api-key":     true,
	"token":         true,
	"secret":        true,
	"password":      true,
	"authorization": true,
	"cookie":        true,
}

// RedactValue masks value when key names a credential.
func RedactValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(strings.TrimSpace(key))] {
		return Redact(value)
	}
	return value
}
