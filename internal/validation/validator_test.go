// MediaTiger - Throttled Aggregation Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tayawaaean/mediatiger

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type pageRequest struct {
	Query string `query:"q" validate:"required,notblank,max=200"`
	Page  int    `query:"page" validate:"min=1,max=10000"`
	Size  int    `query:"size" validate:"min=1,max=100"`
}

type dateRequest struct {
	Date    string `query:"date" validate:"required,ymd"`
	Channel string `query:"channel" validate:"omitempty,max=16"`
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{"page request", &pageRequest{Query: "epic", Page: 1, Size: 20}},
		{"upper bounds", &pageRequest{Query: "a", Page: 10000, Size: 100}},
		{"date only", &dateRequest{Date: "2026-03-01"}},
		{"date and channel", &dateRequest{Date: "2024-02-29", Channel: "UC123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(tt.input); err != nil {
				t.Errorf("ValidateStruct() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{"missing query", &pageRequest{Page: 1, Size: 20}, "q", "required", "q is required"},
		{"blank query", &pageRequest{Query: "   ", Page: 1, Size: 20}, "q", "notblank", "q must not be blank"},
		{"page zero", &pageRequest{Query: "x", Page: 0, Size: 20}, "page", "min", "page must be at least 1"},
		{"size too big", &pageRequest{Query: "x", Page: 1, Size: 500}, "size", "max", "size must be at most 100"},
		{"bad date", &dateRequest{Date: "03/01/2026"}, "date", "ymd", "date must be a date in YYYY-MM-DD format"},
		{"impossible date", &dateRequest{Date: "2026-02-30"}, "date", "ymd", "date must be a date in YYYY-MM-DD format"},
		{"long channel", &dateRequest{Date: "2026-03-01", Channel: strings.Repeat("x", 17)}, "channel", "max", "channel must be at most 16 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(tt.input)
			if verr == nil {
				t.Fatal("ValidateStruct() expected error, got nil")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
			if errs[0].Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", errs[0].Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError_Single(t *testing.T) {
	verr := ValidateStruct(&dateRequest{Date: "yesterday"})
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Details["field"] != "date" {
		t.Errorf("Details[field] = %v, want date", apiErr.Details["field"])
	}
	if apiErr.Details["value"] != "yesterday" {
		t.Errorf("Details[value] = %v, want yesterday", apiErr.Details["value"])
	}
}

func TestToAPIError_Multiple(t *testing.T) {
	verr := ValidateStruct(&pageRequest{Page: 0, Size: 0})
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok {
		t.Fatalf("Details[fields] has type %T", apiErr.Details["fields"])
	}
	if len(fields) != 3 {
		t.Errorf("expected 3 field errors, got %d", len(fields))
	}
	for _, want := range []string{"q:", "page:", "size:"} {
		if !strings.Contains(apiErr.Message, want) {
			t.Errorf("Message %q does not mention %q", apiErr.Message, want)
		}
	}
}

func TestRequestValidationError_EmptyMessage(t *testing.T) {
	verr := &RequestValidationError{}
	if verr.Error() != "validation failed" {
		t.Errorf("Error() = %q", verr.Error())
	}
	if got := verr.ToAPIError().Message; got != "Validation failed" {
		t.Errorf("ToAPIError().Message = %q", got)
	}
}
