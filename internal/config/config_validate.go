// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateSecurity,
		c.validateTokens,
		c.validateMastodon,
		c.validateJobs,
		c.validateMail,
		c.validateEvents,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT=production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Environment, "production")
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if err := validateHTTPURL(c.Server.PublicURL); err != nil {
		return fmt.Errorf("APP_URL is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	if c.Security.AccessTokenTTL <= 0 || c.Security.RefreshTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL and REFRESH_TOKEN_TTL must be positive")
	}
	if c.Security.RefreshTokenTTL < c.Security.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL")
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Security.BcryptCost)
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Security.RateLimitWindow < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	return c.validateCORS()
}

// placeholderSecrets are rejected as JWT secrets.
var placeholderSecrets = []string{"changeme", "secret", "replace_with", "your_jwt_secret"}

func (c *Config) validateJWTSecret() error {
	secret := c.Security.JWTSecret
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(secret))
	}
	lower := strings.ToLower(secret)
	for _, p := range placeholderSecrets {
		if strings.Contains(lower, p) {
			return fmt.Errorf("JWT_SECRET looks like a placeholder value")
		}
	}
	return nil
}

func (c *Config) validateCORS() error {
	if !c.IsProduction() {
		return nil
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain '*' in production")
		}
	}
	return nil
}

func (c *Config) validateTokens() error {
	switch c.Tokens.Store {
	case "memory":
		return nil
	case "badger":
		if c.Tokens.Path == "" {
			return fmt.Errorf("TOKEN_STORE_PATH is required when TOKEN_STORE=badger")
		}
		return nil
	default:
		return fmt.Errorf("TOKEN_STORE must be 'badger' or 'memory', got %q", c.Tokens.Store)
	}
}

func (c *Config) validateMastodon() error {
	if c.Mastodon.AppName == "" {
		return fmt.Errorf("MASTODON_APP_NAME is required")
	}
	if len(c.Mastodon.Scopes) == 0 {
		return fmt.Errorf("MASTODON_SCOPES must list at least one scope")
	}
	if c.Mastodon.RateLimit <= 0 || c.Mastodon.RateBurst < 1 {
		return fmt.Errorf("MASTODON_RATE_LIMIT and MASTODON_RATE_BURST must be positive")
	}
	if c.Mastodon.PageSize < 1 || c.Mastodon.PageSize > 40 {
		return fmt.Errorf("MASTODON_PAGE_SIZE must be between 1 and 40, got %d", c.Mastodon.PageSize)
	}
	return nil
}

func (c *Config) validateJobs() error {
	if c.Jobs.Concurrency < 1 {
		return fmt.Errorf("JOBS_CONCURRENCY must be at least 1")
	}
	if c.Jobs.TootLookback < 24*time.Hour {
		return fmt.Errorf("TOOT_LOOKBACK must be at least 24h")
	}
	if !c.Jobs.SchedulerEnabled {
		return nil
	}
	if c.Jobs.AccountStatsInterval < time.Minute || c.Jobs.TootStatsInterval < time.Minute {
		return fmt.Errorf("ACCOUNT_STATS_INTERVAL and TOOT_STATS_INTERVAL must be at least 1m")
	}
	if c.Jobs.CleanupInterval < time.Hour {
		return fmt.Errorf("CLEANUP_INTERVAL must be at least 1h")
	}
	return nil
}

func (c *Config) validateMail() error {
	if c.Mail.Host == "" {
		return nil
	}
	if c.Mail.Port < 1 || c.Mail.Port > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535, got %d", c.Mail.Port)
	}
	if !strings.Contains(c.Mail.From, "@") {
		return fmt.Errorf("EMAIL_FROM must be an email address")
	}
	return nil
}

func (c *Config) validateEvents() error {
	switch c.Events.Backend {
	case "memory":
		return nil
	case "nats":
		if !c.Events.EmbeddedNATS && c.Events.NATSURL == "" {
			return fmt.Errorf("NATS_URL is required when EVENTS_BACKEND=nats without NATS_EMBEDDED")
		}
		return nil
	default:
		return fmt.Errorf("EVENTS_BACKEND must be 'memory' or 'nats', got %q", c.Events.Backend)
	}
}

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "disabled": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL %q is not valid", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console', got %q", c.Logging.Format)
	}
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}
