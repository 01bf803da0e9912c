// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context for DDL and migrations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// Foreign keys are omitted; DuckDB cannot update a referenced row, so
// cascading deletes are done explicitly in DeleteUser and DeleteAccount.
var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR PRIMARY KEY,
		email VARCHAR NOT NULL UNIQUE,
		password_hash VARCHAR NOT NULL,
		role VARCHAR NOT NULL DEFAULT 'account-owner',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		email_verified BOOLEAN NOT NULL DEFAULT FALSE,
		timezone VARCHAR NOT NULL DEFAULT 'UTC',
		server_url_on_signup VARCHAR NOT NULL DEFAULT '',
		weekly_stats BOOLEAN NOT NULL DEFAULT TRUE,
		news BOOLEAN NOT NULL DEFAULT TRUE,
		last_login_at TIMESTAMP,
		deletion_notice_sent_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS accounts (
		id VARCHAR PRIMARY KEY,
		owner_id VARCHAR NOT NULL,
		server_url VARCHAR NOT NULL,
		name VARCHAR NOT NULL DEFAULT '',
		username VARCHAR NOT NULL DEFAULT '',
		account_name VARCHAR NOT NULL DEFAULT '',
		account_url VARCHAR NOT NULL DEFAULT '',
		avatar_url VARCHAR NOT NULL DEFAULT '',
		mastodon_account_id VARCHAR NOT NULL DEFAULT '',
		timezone VARCHAR NOT NULL DEFAULT 'UTC',
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		setup_complete BOOLEAN NOT NULL DEFAULT FALSE,
		requested_scope VARCHAR NOT NULL DEFAULT '',
		connection_token VARCHAR NOT NULL DEFAULT '',
		connection_token_issued_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS account_credentials (
		account_id VARCHAR PRIMARY KEY,
		client_id VARCHAR NOT NULL DEFAULT '',
		client_secret VARCHAR NOT NULL DEFAULT '',
		access_token VARCHAR NOT NULL DEFAULT ''
	);`,

	`CREATE TABLE IF NOT EXISTS daily_account_stats (
		account_id VARCHAR NOT NULL,
		day DATE NOT NULL,
		followers_count BIGINT NOT NULL DEFAULT 0,
		following_count BIGINT NOT NULL DEFAULT 0,
		statuses_count BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (account_id, day)
	);`,

	`CREATE TABLE IF NOT EXISTS daily_toot_stats (
		account_id VARCHAR NOT NULL,
		day DATE NOT NULL,
		replies_count BIGINT NOT NULL DEFAULT 0,
		boosts_count BIGINT NOT NULL DEFAULT 0,
		favourites_count BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (account_id, day)
	);`,

	`CREATE TABLE IF NOT EXISTS toots (
		account_id VARCHAR NOT NULL,
		uri VARCHAR NOT NULL,
		url VARCHAR NOT NULL DEFAULT '',
		content VARCHAR NOT NULL DEFAULT '',
		visibility VARCHAR NOT NULL DEFAULT '',
		language VARCHAR NOT NULL DEFAULT '',
		tags VARCHAR NOT NULL DEFAULT '',
		replies_count BIGINT NOT NULL DEFAULT 0,
		boosts_count BIGINT NOT NULL DEFAULT 0,
		favourites_count BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		fetched_at TIMESTAMP NOT NULL,
		PRIMARY KEY (account_id, uri)
	);`,

	`CREATE TABLE IF NOT EXISTS job_runs (
		job VARCHAR PRIMARY KEY,
		period VARCHAR NOT NULL,
		ran_at TIMESTAMP NOT NULL
	);`,
}

// createIndexes is skipped when cfg.SkipIndexes is set (tests).
func (db *DB) createIndexes() error {
	if db.cfg != nil && db.cfg.SkipIndexes {
		return nil
	}

	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute index query: %s: %w", query, err)
		}
	}
	return nil
}

// Indexed columns are never updated after insert.
var indexQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner_id);`,
	`CREATE INDEX IF NOT EXISTS idx_toots_account_created ON toots(account_id, created_at);`,
}
