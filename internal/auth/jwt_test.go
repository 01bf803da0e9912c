// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/models"
)

const testSecret = "k9Qv2mX7pL4sT8wZ1rB6nH3cF5dJ0aYe"

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:        testSecret,
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  24 * time.Hour,
		VerificationTTL:  time.Hour,
		PasswordResetTTL: time.Hour,
		BcryptCost:       4,
	}
}

func newTestJWTManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	return m
}

var testUser = &models.User{ID: "u-1", Email: "alice@example.com", Role: models.RoleAccountOwner}

func TestNewJWTManager_EmptySecret(t *testing.T) {
	t.Parallel()
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestJWTManager_RoundTrip(t *testing.T) {
	t.Parallel()

	m := newTestJWTManager(t)
	token, err := m.GenerateToken(testUser)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "u-1" || claims.Email != "alice@example.com" || claims.Role != models.RoleAccountOwner {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Issuer != issuer {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
}

func TestJWTManager_Rejects(t *testing.T) {
	t.Parallel()

	m := newTestJWTManager(t)

	expired := newTestJWTManager(t)
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expiredToken, err := expired.GenerateToken(testUser)
	if err != nil {
		t.Fatal(err)
	}

	other, err := NewJWTManager(&config.SecurityConfig{JWTSecret: strings.Repeat("z", 32), AccessTokenTTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	foreignToken, err := other.GenerateToken(testUser)
	if err != nil {
		t.Fatal(err)
	}

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1", Issuer: issuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer, ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expiredToken},
		{"wrong secret", foreignToken},
		{"alg none", noneToken},
		{"missing subject", noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := m.ValidateToken(tt.token); err == nil {
				t.Error("ValidateToken() expected error")
			}
		})
	}
}

func TestPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse", 4)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("CheckPassword() rejected the right password")
	}
	if CheckPassword(hash, "battery staple") {
		t.Error("CheckPassword() accepted a wrong password")
	}
	if CheckPassword("not-a-hash", "correct horse") {
		t.Error("CheckPassword() accepted a malformed hash")
	}
}
