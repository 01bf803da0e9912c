// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/models"
)

// TokenCookie is the cookie the dashboard stores the access token in.
const TokenCookie = "token"

// AuthSubject is the authenticated caller.
type AuthSubject struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the subject holds the admin role.
func (s *AuthSubject) IsAdmin() bool {
	return s.Role == models.RoleAdmin
}

type contextKey struct{}

// ContextWithSubject stores s in ctx.
func ContextWithSubject(ctx context.Context, s *AuthSubject) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// GetAuthSubject returns the subject stored by Authenticate.
func GetAuthSubject(ctx context.Context) (*AuthSubject, bool) {
	s, ok := ctx.Value(contextKey{}).(*AuthSubject)
	return s, ok && s != nil
}

// Middleware authenticates requests with access tokens.
type Middleware struct {
	jwt *JWTManager
}

// NewMiddleware returns a Middleware validating tokens with m.
func NewMiddleware(m *JWTManager) *Middleware {
	return &Middleware{jwt: m}
}

// Authenticate requires a valid access token in the Authorization header
// or the token cookie.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeUnauthorized(w, "authentication required")
			return
		}

		claims, err := m.jwt.ValidateToken(token)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Token validation failed")
			writeUnauthorized(w, "invalid or expired token")
			return
		}

		subject := &AuthSubject{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}
		ctx := ContextWithSubject(r.Context(), subject)
		ctx = logging.ContextWithUserID(ctx, subject.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="analytodon"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: models.ErrCodeUnauthorized, Message: msg},
	})
}
