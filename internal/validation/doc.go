// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Package validation checks API request bodies and query DTOs with
// go-playground/validator v10.
//
// A single validator instance is shared process-wide. Besides the built-in
// tags it understands:
//
//   - timezone: an IANA zone name such as "Europe/Berlin"
//   - timeframe: one of the dashboard timeframes (last7days, last30days, ...)
//
// Errors name fields by their json tag and convert to the VALIDATION_ERROR
// response body with ToAPIError:
//
//	type registerRequest struct {
//	    Email    string `json:"email" validate:"required,email,max=254"`
//	    Password string `json:"password" validate:"required,min=8,max=128"`
//	    Timezone string `json:"timezone" validate:"omitempty,timezone"`
//	}
package validation
