// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package models

import "time"

// User roles.
const (
	RoleAdmin        = "admin"
	RoleAccountOwner = "account-owner"
)

// User is a dashboard login. One user owns zero or more Mastodon accounts.
type User struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	PasswordHash      string `json:"-"`
	Role              string `json:"role"`
	IsActive          bool   `json:"isActive"`
	EmailVerified     bool   `json:"emailVerified"`
	Timezone          string `json:"timezone"`
	ServerURLOnSignUp string `json:"serverURLOnSignUp,omitempty"`

	EmailNotifications EmailNotifications `json:"emailNotifications"`

	LastLoginAt          *time.Time `json:"lastLoginAt,omitempty"`
	DeletionNoticeSentAt *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// EmailNotifications holds per-user mail opt-ins.
type EmailNotifications struct {
	WeeklyStats bool `json:"weeklyStats"`
	News        bool `json:"news"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
