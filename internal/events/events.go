// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Package events carries domain events between the API, the collector and
// the mailer over watermill. The memory backend is an in-process gochannel;
// the nats backend uses core NATS, optionally served by an embedded server.
package events

import (
	"context"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/stats"
)

// Topics.
const (
	TopicWelcome          = "mail.welcome"
	TopicPasswordReset    = "mail.password_reset"
	TopicWeeklyStats      = "mail.weekly_stats"
	TopicDeletionNotice   = "mail.deletion_notice"
	TopicFirstStats       = "mail.first_stats"
	TopicAccountConnected = "account.connected"
)

// Publisher is the producing side of the bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// WelcomeMail asks the mailer to send the verification link.
type WelcomeMail struct {
	UserID            string `json:"userId"`
	Email             string `json:"email"`
	VerificationToken string `json:"verificationToken"`
}

// PasswordResetMail carries a one-time reset token.
type PasswordResetMail struct {
	UserID     string `json:"userId"`
	Email      string `json:"email"`
	ResetToken string `json:"resetToken"`
}

// WeeklyStatsMail holds one summary per active account of the user.
type WeeklyStatsMail struct {
	UserID   string                 `json:"userId"`
	Email    string                 `json:"email"`
	Accounts []stats.AccountSummary `json:"accounts"`
}

// DeletionNoticeMail warns an inactive user before the account is removed.
type DeletionNoticeMail struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	DeleteAfter time.Time `json:"deleteAfter"`
}

// FirstStatsMail announces that the initial collection finished.
type FirstStatsMail struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	AccountID   string `json:"accountId"`
	AccountName string `json:"accountName"`
}

// AccountConnected is published after the OAuth callback succeeds.
type AccountConnected struct {
	AccountID string `json:"accountId"`
	OwnerID   string `json:"ownerId"`
}
