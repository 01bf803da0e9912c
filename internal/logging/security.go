// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package logging

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent is one audit record of an authentication action.
type SecurityEvent struct {
	Event   string
	UserID  string
	Email   string
	Success bool
	Reason  string
}

// SecurityLogger writes auth audit records with emails and tokens masked.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger returns a logger tagged component=auth.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{logger: WithComponent("auth")}
}

// NewSecurityLoggerWithLogger is used by tests to capture output.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{logger: logger.With().Str("component", "auth").Logger()}
}

// LogEvent writes ev, picking up request and correlation IDs from ctx.
func (l *SecurityLogger) LogEvent(ctx context.Context, ev *SecurityEvent) {
	e := l.logger.Info()
	if !ev.Success {
		e = l.logger.Warn()
	}
	e = e.Str("event", ev.Event).Bool("success", ev.Success)

	if id := RequestIDFromContext(ctx); id != "" {
		e = e.Str("request_id", id)
	}
	if id := CorrelationIDFromContext(ctx); id != "" {
		e = e.Str("correlation_id", id)
	}
	if ev.UserID != "" {
		e = e.Str("user_id", ev.UserID)
	}
	if ev.Email != "" {
		e = e.Str("email", SanitizeEmail(ev.Email))
	}
	if ev.Reason != "" {
		e = e.Str("reason", truncateString(ev.Reason, 200))
	}
	e.Msg("auth event")
}

// LogLogin records a login attempt.
func (l *SecurityLogger) LogLogin(ctx context.Context, userID, email string, success bool, reason string) {
	l.LogEvent(ctx, &SecurityEvent{Event: "login", UserID: userID, Email: email, Success: success, Reason: reason})
}

// LogRefresh records a refresh token rotation.
func (l *SecurityLogger) LogRefresh(ctx context.Context, userID string, success bool) {
	l.LogEvent(ctx, &SecurityEvent{Event: "token_refresh", UserID: userID, Success: success})
}

// LogPasswordReset records a completed password reset.
func (l *SecurityLogger) LogPasswordReset(ctx context.Context, userID string) {
	l.LogEvent(ctx, &SecurityEvent{Event: "password_reset", UserID: userID, Success: true})
}

// SanitizeToken keeps the first and last four characters.
//
//	"eyJhbGciOiJIUzI1NiJ9..." -> "eyJh...iJ9."
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeEmail keeps the first two characters of the local part.
//
//	"john.doe@example.com" -> "jo***@example.com"
func SanitizeEmail(email string) string {
	if email == "" {
		return ""
	}
	at := strings.Index(email, "@")
	if at <= 0 {
		return "***"
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return "***" + domain
	}
	return local[:2] + "***" + domain
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
