// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package authz

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/blazer82/analytodon-sub001/internal/auth"
	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/models"
)

// Middleware enforces the route policy for authenticated requests.
type Middleware struct {
	enforcer *Enforcer
}

// NewMiddleware returns a Middleware backed by enforcer.
func NewMiddleware(enforcer *Enforcer) *Middleware {
	return &Middleware{enforcer: enforcer}
}

// Authorize must run after auth.Middleware.Authenticate.
func (m *Middleware) Authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, ok := auth.GetAuthSubject(r.Context())
		if !ok {
			writeForbidden(w, "no authentication context")
			return
		}

		allowed, err := m.enforcer.Enforce(subject.Role, r.URL.Path, MethodToAction(r.Method))
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Authorization error")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if !allowed {
			logging.Ctx(r.Context()).Info().
				Str("role", subject.Role).
				Str("path", r.URL.Path).
				Str("method", r.Method).
				Msg("Access denied")
			writeForbidden(w, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MethodToAction maps an HTTP method to a policy action.
func MethodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "read"
	case http.MethodDelete:
		return "delete"
	default:
		return "write"
	}
}

func writeForbidden(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: models.ErrCodeForbidden, Message: msg},
	})
}
