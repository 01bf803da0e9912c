// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/analytodon/config.yaml",
	"/etc/analytodon/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        3000,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
			PublicURL:   "http://localhost:3000",
		},
		Database: DatabaseConfig{
			Path:      "/data/analytodon.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Security: SecurityConfig{
			AccessTokenTTL:   15 * time.Minute,
			RefreshTokenTTL:  30 * 24 * time.Hour,
			VerificationTTL:  7 * 24 * time.Hour,
			PasswordResetTTL: time.Hour,
			BcryptCost:       12,
			RateLimitReqs:    100,
			RateLimitWindow:  time.Minute,
			CORSOrigins:      []string{"http://localhost:3000"},
		},
		Authz: AuthzConfig{
			CacheTTL: 5 * time.Minute,
		},
		Tokens: TokenConfig{
			Store: "badger",
			Path:  "/data/tokens",
		},
		Mastodon: MastodonConfig{
			AppName:        "Analytodon",
			Website:        "https://www.analytodon.com",
			Scopes:         []string{"read:accounts", "read:statuses"},
			RequestTimeout: 15 * time.Second,
			RateLimit:      5,
			RateBurst:      10,
			UserAgent:      "Analytodon (+https://www.analytodon.com)",
			PageSize:       40,
		},
		Accounts: AccountsConfig{
			MaxPerUser: 5,
		},
		Jobs: JobsConfig{
			SchedulerEnabled:     true,
			AccountStatsInterval: time.Hour,
			TootStatsInterval:    time.Hour,
			CleanupInterval:      24 * time.Hour,
			WeeklyStatsEnabled:   true,
			TootLookback:         365 * 24 * time.Hour,
			Concurrency:          4,
			StaleSetupAfter:      7 * 24 * time.Hour,
			InactiveAfter:        180 * 24 * time.Hour,
			DeletionGrace:        14 * 24 * time.Hour,
		},
		Mail: MailConfig{
			Port:     587,
			From:     "no-reply@analytodon.com",
			FromName: "Analytodon",
			UseTLS:   true,
		},
		Events: EventsConfig{
			Backend:       "memory",
			NATSURL:       "nats://127.0.0.1:4222",
			NATSPort:      4222,
			RetryCount:    3,
			RetryInterval: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration in three layers:
//  1. Defaults from defaultConfig
//  2. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables, mapped by envTransformFunc
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as plain strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"mastodon.scopes",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := splitCommaList(strVal)
		if len(parts) == 0 {
			continue
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func splitCommaList(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",
	"app_url":      "server.public_url",

	// Database
	"duckdb_path":         "database.path",
	"duckdb_max_memory":   "database.max_memory",
	"duckdb_threads":      "database.threads",
	"duckdb_skip_indexes": "database.skip_indexes",

	// Security
	"jwt_secret":          "security.jwt_secret",
	"access_token_ttl":    "security.access_token_ttl",
	"refresh_token_ttl":   "security.refresh_token_ttl",
	"verification_ttl":    "security.verification_ttl",
	"password_reset_ttl":  "security.password_reset_ttl",
	"bcrypt_cost":         "security.bcrypt_cost",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Authorization
	"authz_model_path":  "authz.model_path",
	"authz_policy_path": "authz.policy_path",

	// Token store
	"token_store":      "tokens.store",
	"token_store_path": "tokens.path",

	// Mastodon
	"mastodon_app_name":        "mastodon.app_name",
	"mastodon_scopes":          "mastodon.scopes",
	"mastodon_request_timeout": "mastodon.request_timeout",
	"mastodon_rate_limit":      "mastodon.rate_limit",
	"mastodon_rate_burst":      "mastodon.rate_burst",
	"mastodon_page_size":       "mastodon.page_size",

	// Accounts
	"max_accounts_per_user": "accounts.max_per_user",

	// Jobs
	"scheduler_enabled":      "jobs.scheduler_enabled",
	"account_stats_interval": "jobs.account_stats_interval",
	"toot_stats_interval":    "jobs.toot_stats_interval",
	"cleanup_interval":       "jobs.cleanup_interval",
	"weekly_stats_enabled":   "jobs.weekly_stats_enabled",
	"toot_lookback":          "jobs.toot_lookback",
	"jobs_concurrency":       "jobs.concurrency",
	"stale_setup_after":      "jobs.stale_setup_after",
	"inactive_after":         "jobs.inactive_after",
	"deletion_grace":         "jobs.deletion_grace",

	// Mail
	"smtp_host":       "mail.host",
	"smtp_port":       "mail.port",
	"smtp_username":   "mail.username",
	"smtp_password":   "mail.password",
	"email_from":      "mail.from",
	"email_from_name": "mail.from_name",
	"smtp_use_tls":    "mail.use_tls",
	"support_email":   "mail.support_email",

	// Events
	"events_backend":     "events.backend",
	"nats_url":           "events.nats_url",
	"nats_embedded":      "events.embedded_nats",
	"nats_port":          "events.nats_port",
	"events_retry_count": "events.retry_count",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable to its koanf path.
// Unknown variables return "" and are ignored by the provider.
//
// Examples:
//   - JWT_SECRET -> security.jwt_secret
//   - DUCKDB_PATH -> database.path
//   - SMTP_HOST -> mail.host
func envTransformFunc(key string) string {
	if path, ok := envMappings[strings.ToLower(key)]; ok {
		return path
	}
	return ""
}
