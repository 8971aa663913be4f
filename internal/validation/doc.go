// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

/*
Package validation validates inbound request parameters with
go-playground/validator v10.

A single validator instance is built on first use and shared; it caches
struct metadata and is safe for concurrent use. Field names in error
messages come from the `query` struct tag, so a client sees the parameter
it actually sent.

Custom tags:
  - ymd: a calendar date in YYYY-MM-DD form
  - notblank: a string with at least one non-space character

Usage:

	type AnalyticsRequest struct {
	    Date    string `query:"date" validate:"required,ymd"`
	    Channel string `query:"channel" validate:"omitempty,max=128"`
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
	    apiErr := verr.ToAPIError()
	    // respond 400 with apiErr.Code and apiErr.Message
	}

Failures are reported with code VALIDATION_ERROR. A single failing field
carries field, tag and value details; several failing fields are joined
into one message and listed under "fields".
*/
package validation
