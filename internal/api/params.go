// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tayawaaean/mediatiger-sub002/internal/validation"
)

// Query parameter structs. Size 0 means "use the configured default"; the
// proxy clamps larger sizes to its maximum.
type pageParams struct {
	Page int `query:"page" validate:"min=1,max=100000"`
	Size int `query:"size" validate:"min=0,max=1000"`
}

type searchParams struct {
	pageParams
	Query string `query:"q" validate:"required,notblank,max=200"`
}

type moodParams struct {
	pageParams
	Mood string `query:"mood" validate:"required,notblank,max=100"`
}

type analyticsParams struct {
	Date    string `query:"date" validate:"required,ymd"`
	Channel string `query:"channel" validate:"omitempty,max=200"`
}

type rangeParams struct {
	Start   string `query:"start" validate:"required,ymd"`
	End     string `query:"end" validate:"required,ymd"`
	Channel string `query:"channel" validate:"omitempty,max=200"`
}

// queryInt parses an optional integer parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func parsePage(r *http.Request) (pageParams, error) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		return pageParams{}, err
	}
	size, err := queryInt(r, "size", 0)
	if err != nil {
		return pageParams{}, err
	}
	return pageParams{Page: page, Size: size}, nil
}

// bind validates params and writes the 400 response on failure. It returns
// false when the handler must stop.
func bind(w http.ResponseWriter, r *http.Request, params interface{}) bool {
	verr := validation.ValidateStruct(params)
	if verr == nil {
		return true
	}
	apiErr := verr.ToAPIError()
	NewResponseWriter(w, r).ValidationError(apiErr.Message, apiErr.Details)
	return false
}

func query(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}
