// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/validation"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 1 << 20

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	Timezone  string `json:"timezone" validate:"required,timezone"`
	ServerURL string `json:"serverURL" validate:"omitempty,max=255"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// RefreshRequest is the body of POST /auth/refresh and /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required,max=512"`
}

// TokenRequest carries a one-time token from a mail link.
type TokenRequest struct {
	Token string `json:"token" validate:"required,max=512"`
}

// PasswordResetRequest is the body of POST /auth/request-password-reset.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required,max=512"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// UpdateUserRequest is the body of PATCH /users/me. Omitted fields are kept.
type UpdateUserRequest struct {
	Timezone           *string                    `json:"timezone" validate:"omitempty,timezone"`
	EmailNotifications *EmailNotificationsRequest `json:"emailNotifications"`
}

// EmailNotificationsRequest toggles mail opt-ins individually.
type EmailNotificationsRequest struct {
	WeeklyStats *bool `json:"weeklyStats"`
	News        *bool `json:"news"`
}

// UnsubscribeRequest is sent by the unsubscribe link of the weekly mail.
type UnsubscribeRequest struct {
	UserID string `json:"userId" validate:"required,max=64"`
	Email  string `json:"email" validate:"required,email,max=254"`
}

// CreateAccountRequest is the body of POST /accounts.
type CreateAccountRequest struct {
	ServerURL string `json:"serverURL" validate:"required,max=255"`
	Timezone  string `json:"timezone" validate:"required,timezone"`
}

// UpdateAccountRequest is the body of PATCH /accounts/{accountID}.
type UpdateAccountRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Timezone *string `json:"timezone" validate:"omitempty,timezone"`
}

// ConnectCallbackRequest carries the OAuth state token and code Mastodon
// redirected back with.
type ConnectCallbackRequest struct {
	Token string `json:"token" validate:"required,max=512"`
	Code  string `json:"code" validate:"required,max=512"`
}

// StatsQuery holds the query string of the stats endpoints.
type StatsQuery struct {
	Timeframe string `json:"timeframe" validate:"timeframe"`
	Limit     int    `json:"limit" validate:"gte=0,lte=1000"`
}

// validateRequest returns nil when v is valid.
func validateRequest(v interface{}) *models.APIError {
	validationErr := validation.ValidateStruct(v)
	if validationErr == nil {
		return nil
	}

	apiErr := validationErr.ToAPIError()
	return &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// decodeRequest reads a JSON body into v and validates it. It writes the
// error response itself and returns false on failure.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondError(w, http.StatusRequestEntityTooLarge, models.ErrCodeValidation, "Request body too large", nil)
		case errors.Is(err, io.EOF):
			respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "Request body is required", nil)
		default:
			respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "Invalid JSON body", err)
		}
		return false
	}

	if apiErr := validateRequest(v); apiErr != nil {
		respondErrorDetails(w, http.StatusBadRequest, apiErr, nil)
		return false
	}
	return true
}
