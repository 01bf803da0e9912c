// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Purpose scopes an opaque token to one flow.
type Purpose string

const (
	PurposeRefresh           Purpose = "refresh"
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
)

// ErrTokenNotFound is returned for unknown, expired or revoked tokens.
var ErrTokenNotFound = errors.New("token not found")

// TokenStore persists opaque tokens by their SHA-256, never in plain text.
type TokenStore interface {
	// Put stores token for userID until ttl elapses.
	Put(ctx context.Context, purpose Purpose, token, userID string, ttl time.Duration) error
	// Get returns the user the token belongs to.
	Get(ctx context.Context, purpose Purpose, token string) (string, error)
	// Take returns the owner of token and revokes it in one step, so a
	// token is handed out at most once.
	Take(ctx context.Context, purpose Purpose, token string) (string, error)
	// Delete revokes one token. Unknown tokens are not an error.
	Delete(ctx context.Context, purpose Purpose, token string) error
	// DeleteUser revokes every token of purpose held by userID.
	DeleteUser(ctx context.Context, purpose Purpose, userID string) (int, error)
	Close() error
}

// tokenRecord is the stored value.
type tokenRecord struct {
	UserID    string    `json:"user_id"`
	Purpose   Purpose   `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (r *tokenRecord) expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// NewToken returns 32 random bytes, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
