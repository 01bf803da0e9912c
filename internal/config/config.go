// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Package config loads Analytodon configuration from defaults, an optional
// YAML file, and environment variables (highest priority).
package config

import "time"

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Authz    AuthzConfig    `koanf:"authz"`
	Tokens   TokenConfig    `koanf:"tokens"`
	Mastodon MastodonConfig `koanf:"mastodon"`
	Accounts AccountsConfig `koanf:"accounts"`
	Jobs     JobsConfig     `koanf:"jobs"`
	Mail     MailConfig     `koanf:"mail"`
	Events   EventsConfig   `koanf:"events"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`

	// PublicURL is the dashboard base URL used in mail links and the
	// Mastodon OAuth redirect.
	PublicURL string `koanf:"public_url"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path        string `koanf:"path"`
	MaxMemory   string `koanf:"max_memory"`
	Threads     int    `koanf:"threads"`
	SkipIndexes bool   `koanf:"skip_indexes"`
}

// SecurityConfig holds authentication and HTTP hardening settings.
type SecurityConfig struct {
	// JWTSecret signs access tokens. At least 32 characters.
	JWTSecret       string        `koanf:"jwt_secret"`
	AccessTokenTTL  time.Duration `koanf:"access_token_ttl"`
	RefreshTokenTTL time.Duration `koanf:"refresh_token_ttl"`

	// VerificationTTL and PasswordResetTTL bound the one-time mail tokens.
	VerificationTTL  time.Duration `koanf:"verification_ttl"`
	PasswordResetTTL time.Duration `koanf:"password_reset_ttl"`

	BcryptCost int `koanf:"bcrypt_cost"`

	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// AuthzConfig points at optional casbin model/policy overrides.
// Empty paths use the embedded defaults.
type AuthzConfig struct {
	ModelPath  string        `koanf:"model_path"`
	PolicyPath string        `koanf:"policy_path"`
	CacheTTL   time.Duration `koanf:"cache_ttl"`
}

// TokenConfig selects the refresh/verification token store.
type TokenConfig struct {
	// Store is badger or memory.
	Store string `koanf:"store"`
	Path  string `koanf:"path"`
}

// MastodonConfig controls the outbound Mastodon API client.
type MastodonConfig struct {
	AppName        string        `koanf:"app_name"`
	Website        string        `koanf:"website"`
	Scopes         []string      `koanf:"scopes"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	RateLimit      float64       `koanf:"rate_limit"`
	RateBurst      int           `koanf:"rate_burst"`
	UserAgent      string        `koanf:"user_agent"`
	PageSize       int           `koanf:"page_size"`
}

// AccountsConfig limits per-user account creation.
type AccountsConfig struct {
	MaxPerUser int `koanf:"max_per_user"`
}

// JobsConfig controls the stats collector and its scheduler.
type JobsConfig struct {
	SchedulerEnabled     bool          `koanf:"scheduler_enabled"`
	AccountStatsInterval time.Duration `koanf:"account_stats_interval"`
	TootStatsInterval    time.Duration `koanf:"toot_stats_interval"`
	CleanupInterval      time.Duration `koanf:"cleanup_interval"`
	WeeklyStatsEnabled   bool          `koanf:"weekly_stats_enabled"`
	TootLookback         time.Duration `koanf:"toot_lookback"`
	Concurrency          int           `koanf:"concurrency"`
	StaleSetupAfter      time.Duration `koanf:"stale_setup_after"`
	InactiveAfter        time.Duration `koanf:"inactive_after"`
	DeletionGrace        time.Duration `koanf:"deletion_grace"`
}

// MailConfig holds SMTP settings. An empty Host logs mails instead of sending.
type MailConfig struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	Username     string `koanf:"username"`
	Password     string `koanf:"password"`
	From         string `koanf:"from"`
	FromName     string `koanf:"from_name"`
	UseTLS       bool   `koanf:"use_tls"`
	SupportEmail string `koanf:"support_email"`
}

// EventsConfig selects the event transport.
type EventsConfig struct {
	// Backend is memory (in-process gochannel) or nats.
	Backend string `koanf:"backend"`

	NATSURL string `koanf:"nats_url"`

	// EmbeddedNATS starts an in-process nats-server and ignores NATSURL.
	EmbeddedNATS bool `koanf:"embedded_nats"`
	NATSPort     int  `koanf:"nats_port"`

	RetryCount    int           `koanf:"retry_count"`
	RetryInterval time.Duration `koanf:"retry_interval"`

	// BlockUntilAck makes in-memory publishes wait for the handler. The
	// jobs CLI sets it so queued mails are sent before the process exits.
	BlockUntilAck bool `koanf:"block_until_ack"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from all sources and validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
