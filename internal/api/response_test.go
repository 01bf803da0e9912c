// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/accounts"
	"github.com/blazer82/analytodon-sub001/internal/mastodon"
	"github.com/blazer82/analytodon-sub001/internal/models"
)

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"line\nbreak", `line\x0abreak`},
		{"tab\there", `tab\x09here`},
		{"del\x7f", `del\x7f`},
		{"ümlaut", "ümlaut"},
	}
	for _, tt := range tests {
		if got := sanitizeLogValue(tt.in); got != tt.want {
			t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateETag(t *testing.T) {
	t.Parallel()

	a := generateETag([]byte(`{"status":"success"}`))
	b := generateETag([]byte(`{"status":"success"}`))
	c := generateETag([]byte(`{"status":"error"}`))
	if a != b {
		t.Errorf("ETag not stable: %s != %s", a, b)
	}
	if a == c {
		t.Error("different bodies share an ETag")
	}
	if a[0] != '"' || a[len(a)-1] != '"' {
		t.Errorf("ETag %s is not quoted", a)
	}
	// FNV-1a offset basis for empty input
	if got := generateETag(nil); got != `"811c9dc5"` {
		t.Errorf("generateETag(nil) = %s", got)
	}
}

func TestRespondSuccess(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	respondSuccess(rec, http.StatusCreated, map[string]int{"n": 1}, time.Now())

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("ETag") == "" || rec.Header().Get("Cache-Control") != "private, no-store" {
		t.Errorf("headers = %v", rec.Header())
	}
	env := decodeEnvelope(t, rec)
	if env.Status != "success" || string(env.Data) != `{"n":1}` || env.Error != nil {
		t.Errorf("envelope = %+v", env)
	}
}

func TestRespondServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"wrapped mapping", fmt.Errorf("load: %w", accounts.ErrNotFound), http.StatusNotFound, models.ErrCodeNotFound},
		{"account limit", accounts.ErrAccountLimit, http.StatusForbidden, models.ErrCodeForbidden},
		{"upstream status", &mastodon.APIError{StatusCode: 500, Body: "oops"}, http.StatusBadGateway, models.ErrCodeUpstream},
		{"circuit open", mastodon.ErrCircuitOpen, http.StatusServiceUnavailable, models.ErrCodeUpstream},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, models.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			respondServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			expectError(t, rec, tt.status, tt.code)
		})
	}
}

func TestRespondServiceError_HidesInternalMessage(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	respondServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("duckdb: table users locked"))
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Message != "Internal server error" {
		t.Errorf("error = %+v", env.Error)
	}
}
