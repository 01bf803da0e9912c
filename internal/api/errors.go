// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/blazer82/analytodon-sub001/internal/accounts"
	"github.com/blazer82/analytodon-sub001/internal/auth"
	"github.com/blazer82/analytodon-sub001/internal/collector"
	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/mastodon"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/stats"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

// errorMapping is the response for a sentinel error.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// errorMappings is checked in order with errors.Is. The first match wins.
var errorMappings = []errorMapping{
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid email or password"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid or expired token"},
	{auth.ErrUserInactive, http.StatusForbidden, models.ErrCodeForbidden, "User is inactive"},
	{auth.ErrEmailTaken, http.StatusConflict, models.ErrCodeConflict, "Email address is already registered"},
	{auth.ErrWeakPassword, http.StatusBadRequest, models.ErrCodeValidation, "Password must be at least 8 characters"},
	{auth.ErrInvalidTimezone, http.StatusBadRequest, models.ErrCodeValidation, "Invalid timezone"},
	{accounts.ErrAccountLimit, http.StatusForbidden, models.ErrCodeForbidden, "Account limit reached"},
	{accounts.ErrForbidden, http.StatusForbidden, models.ErrCodeForbidden, "Access to this account is not allowed"},
	{accounts.ErrNotFound, http.StatusNotFound, models.ErrCodeNotFound, "Account not found"},
	{accounts.ErrInvalidTimezone, http.StatusBadRequest, models.ErrCodeValidation, "Invalid timezone"},
	{accounts.ErrInvalidConnection, http.StatusBadRequest, models.ErrCodeValidation, "Invalid or expired connection"},
	{stats.ErrInvalidMetric, http.StatusNotFound, models.ErrCodeNotFound, "Unknown metric"},
	{timeframe.ErrInvalidTimeframe, http.StatusBadRequest, models.ErrCodeValidation, "Invalid timeframe"},
	{timeframe.ErrInvalidPeriod, http.StatusNotFound, models.ErrCodeNotFound, "Unknown period"},
	{collector.ErrUnknownJob, http.StatusNotFound, models.ErrCodeNotFound, "Unknown job"},
	{mastodon.ErrInvalidServerURL, http.StatusBadRequest, models.ErrCodeValidation, "Invalid Mastodon server URL"},
	{mastodon.ErrUnauthorized, http.StatusBadGateway, models.ErrCodeUpstream, "Mastodon rejected the credentials"},
	{mastodon.ErrCircuitOpen, http.StatusServiceUnavailable, models.ErrCodeUpstream, "Mastodon server is unavailable, try again later"},
	{database.ErrNotFound, http.StatusNotFound, models.ErrCodeNotFound, "Not found"},
	{database.ErrDuplicate, http.StatusConflict, models.ErrCodeConflict, "Already exists"},
}

// respondServiceError maps err to a status and error code. Unknown errors
// become 500 without leaking their text.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			respondError(w, m.status, m.code, m.message, err)
			return
		}
	}

	var upstream *mastodon.APIError
	switch {
	case errors.As(err, &upstream):
		respondError(w, http.StatusBadGateway, models.ErrCodeUpstream, "Mastodon request failed", err)
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		// Client went away; nobody reads the response.
		logError(r, err, "Request canceled")
	default:
		logError(r, err, "Unhandled service error")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Internal server error", nil)
	}
}

func logError(r *http.Request, err error, msg string) {
	logging.Ctx(r.Context()).Error().Err(err).Str("path", sanitizeLogValue(r.URL.Path)).Msg(msg)
}
