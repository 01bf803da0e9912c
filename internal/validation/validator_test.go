// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package validation

import (
	"strings"
	"testing"
)

type signupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Timezone string `json:"timezone" validate:"omitempty,timezone"`
}

type statsQuery struct {
	Timeframe string `json:"timeframe" validate:"timeframe"`
	Limit     int    `json:"limit" validate:"gte=0,lte=100"`
	Format    string `json:"format" validate:"omitempty,oneof=csv json"`
}

func TestGetValidator_Singleton(t *testing.T) {
	t.Parallel()
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{
			name:  "valid signup",
			input: &signupRequest{Email: "a@example.com", Password: "correct horse", Timezone: "Europe/Berlin"},
		},
		{
			name:  "valid signup without timezone",
			input: &signupRequest{Email: "a@example.com", Password: "12345678"},
		},
		{
			name:      "missing email",
			input:     &signupRequest{Password: "12345678"},
			wantField: "email",
			wantTag:   "required",
			wantMsg:   "email is required",
		},
		{
			name:      "malformed email",
			input:     &signupRequest{Email: "nope", Password: "12345678"},
			wantField: "email",
			wantTag:   "email",
			wantMsg:   "email must be a valid email address",
		},
		{
			name:      "short password",
			input:     &signupRequest{Email: "a@example.com", Password: "short"},
			wantField: "password",
			wantTag:   "min",
			wantMsg:   "password must be at least 8 characters",
		},
		{
			name:      "unknown timezone",
			input:     &signupRequest{Email: "a@example.com", Password: "12345678", Timezone: "Mars/Olympus"},
			wantField: "timezone",
			wantTag:   "timezone",
			wantMsg:   "timezone must be a valid IANA timezone",
		},
		{
			name:  "valid stats query with default timeframe",
			input: &statsQuery{Limit: 10},
		},
		{
			name:      "unknown timeframe",
			input:     &statsQuery{Timeframe: "lastcentury"},
			wantField: "timeframe",
			wantTag:   "timeframe",
			wantMsg:   "timeframe must be a known timeframe",
		},
		{
			name:      "limit too large",
			input:     &statsQuery{Limit: 1000},
			wantField: "limit",
			wantTag:   "lte",
			wantMsg:   "limit must be less than or equal to 100",
		},
		{
			name:      "bad format",
			input:     &statsQuery{Format: "xml"},
			wantField: "format",
			wantTag:   "oneof",
			wantMsg:   "format must be one of: csv json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			verr := ValidateStruct(tt.input)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if len(verr.Errors()) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(verr.Errors()), verr)
			}
			fe := verr.Errors()[0]
			if fe.Field() != tt.wantField || fe.Tag() != tt.wantTag {
				t.Errorf("field/tag = %s/%s, want %s/%s", fe.Field(), fe.Tag(), tt.wantField, tt.wantTag)
			}
			if fe.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", fe.Error(), tt.wantMsg)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	t.Parallel()

	single := ValidateStruct(&signupRequest{Email: "a@example.com", Password: "short"}).ToAPIError()
	if single.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", single.Code)
	}
	if single.Details["field"] != "password" {
		t.Errorf("Details = %v", single.Details)
	}
	if _, ok := single.Details["value"]; ok {
		t.Error("rejected values must not be echoed back")
	}

	multi := ValidateStruct(&signupRequest{}).ToAPIError()
	fields, ok := multi.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("Details = %v, want two fields", multi.Details)
	}
	if !strings.Contains(multi.Message, "email is required") || !strings.Contains(multi.Message, "password is required") {
		t.Errorf("Message = %q", multi.Message)
	}

	empty := (&RequestValidationError{}).ToAPIError()
	if empty.Message != "Validation failed" {
		t.Errorf("empty Message = %q", empty.Message)
	}
}
