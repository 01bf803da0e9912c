// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package models

import "time"

// Account is a Mastodon account connected to Analytodon.
type Account struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"ownerId"`
	ServerURL         string    `json:"serverURL"`
	Name              string    `json:"name,omitempty"`
	Username          string    `json:"username,omitempty"`
	AccountName       string    `json:"accountName,omitempty"`
	AccountURL        string    `json:"accountURL,omitempty"`
	AvatarURL         string    `json:"avatarURL,omitempty"`
	MastodonAccountID string    `json:"-"`
	Timezone          string    `json:"timezone"`
	IsActive          bool      `json:"isActive"`
	SetupComplete     bool      `json:"setupComplete"`
	RequestedScope    []string  `json:"requestedScope,omitempty"`
	ConnectionToken   string    `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`

	// ConnectionTokenIssuedAt is when the pending ConnectionToken was minted.
	ConnectionTokenIssuedAt *time.Time `json:"-"`
}

// AccountCredentials holds the OAuth client and token for an account.
// Never serialized to API clients.
type AccountCredentials struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	AccessToken  string
}
