// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/blazer82/analytodon-sub001/internal/models"
)

const accountColumns = "id, owner_id, server_url, name, username, account_name, account_url, avatar_url, " +
	"mastodon_account_id, timezone, is_active, setup_complete, requested_scope, connection_token, " +
	"connection_token_issued_at, created_at, updated_at"

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a        models.Account
		scope    string
		issuedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.OwnerID, &a.ServerURL, &a.Name, &a.Username, &a.AccountName, &a.AccountURL,
		&a.AvatarURL, &a.MastodonAccountID, &a.Timezone, &a.IsActive, &a.SetupComplete, &scope,
		&a.ConnectionToken, &issuedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.RequestedScope = splitList(scope)
	a.ConnectionTokenIssuedAt = timePtr(issuedAt)
	return &a, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// CreateAccount inserts a not yet connected account.
func (db *DB) CreateAccount(ctx context.Context, a *models.Account) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("insert", "accounts", &err)()

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Timezone == "" {
		a.Timezone = "UTC"
	}

	_, err = db.execBuilt(ctx, builder.Insert("accounts").
		Columns("id", "owner_id", "server_url", "name", "username", "account_name", "account_url", "avatar_url",
			"mastodon_account_id", "timezone", "is_active", "setup_complete", "requested_scope", "connection_token",
			"connection_token_issued_at", "created_at", "updated_at").
		Values(a.ID, a.OwnerID, a.ServerURL, a.Name, a.Username, a.AccountName, a.AccountURL, a.AvatarURL,
			a.MastodonAccountID, a.Timezone, a.IsActive, a.SetupComplete, strings.Join(a.RequestedScope, ","),
			a.ConnectionToken, nullableTime(a.ConnectionTokenIssuedAt), a.CreatedAt.UTC(), a.UpdatedAt))
	if isConstraintViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (db *DB) getAccountWhere(ctx context.Context, pred interface{}) (a *models.Account, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("select", "accounts", &err)()

	query, args, err := builder.Select(accountColumns).From("accounts").Where(pred).ToSql()
	if err != nil {
		return nil, err
	}
	a, err = scanAccount(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// GetAccount returns ErrNotFound for an unknown id.
func (db *DB) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return db.getAccountWhere(ctx, sq.Eq{"id": id})
}

// GetAccountByConnectionToken resolves the OAuth state of a pending connect.
func (db *DB) GetAccountByConnectionToken(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return db.getAccountWhere(ctx, sq.Eq{"connection_token": token})
}

func (db *DB) listAccountsWhere(ctx context.Context, preds ...interface{}) (accounts []models.Account, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("select", "accounts", &err)()

	q := builder.Select(accountColumns).From("accounts").OrderBy("created_at", "id")
	for _, p := range preds {
		q = q.Where(p)
	}
	rows, err := db.queryBuilt(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// ListAccountsByOwner returns the owner's accounts, oldest first.
func (db *DB) ListAccountsByOwner(ctx context.Context, ownerID string) ([]models.Account, error) {
	return db.listAccountsWhere(ctx, sq.Eq{"owner_id": ownerID})
}

// ListActiveAccounts returns connected accounts that collection runs over.
func (db *DB) ListActiveAccounts(ctx context.Context) ([]models.Account, error) {
	return db.listAccountsWhere(ctx, sq.Eq{"is_active": true})
}

// ListStaleSetupAccounts returns accounts created before the cutoff whose
// setup never completed.
func (db *DB) ListStaleSetupAccounts(ctx context.Context, before time.Time) ([]models.Account, error) {
	return db.listAccountsWhere(ctx, sq.Eq{"setup_complete": false}, sq.Lt{"created_at": before.UTC()})
}

// CountAccountsByOwner counts accounts regardless of state.
func (db *DB) CountAccountsByOwner(ctx context.Context, ownerID string) (n int, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("count", "accounts", &err)()

	query, args, err := builder.Select("COUNT(*)").From("accounts").Where(sq.Eq{"owner_id": ownerID}).ToSql()
	if err != nil {
		return 0, err
	}
	if err = db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return n, nil
}

// UpdateAccount writes every mutable column. Owner and creation time are fixed.
func (db *DB) UpdateAccount(ctx context.Context, a *models.Account) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("update", "accounts", &err)()

	a.UpdatedAt = time.Now().UTC()
	res, err := db.execBuilt(ctx, builder.Update("accounts").
		Set("server_url", a.ServerURL).
		Set("name", a.Name).
		Set("username", a.Username).
		Set("account_name", a.AccountName).
		Set("account_url", a.AccountURL).
		Set("avatar_url", a.AvatarURL).
		Set("mastodon_account_id", a.MastodonAccountID).
		Set("timezone", a.Timezone).
		Set("is_active", a.IsActive).
		Set("setup_complete", a.SetupComplete).
		Set("requested_scope", strings.Join(a.RequestedScope, ",")).
		Set("connection_token", a.ConnectionToken).
		Set("connection_token_issued_at", nullableTime(a.ConnectionTokenIssuedAt)).
		Set("updated_at", a.UpdatedAt).
		Where(sq.Eq{"id": a.ID}))
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return affectedOrNotFound(res)
}

// SetAccountConnected stores the verified profile, activates the account
// and consumes the connection token.
func (db *DB) SetAccountConnected(ctx context.Context, a *models.Account) error {
	a.IsActive = true
	a.ConnectionToken = ""
	a.ConnectionTokenIssuedAt = nil
	return db.UpdateAccount(ctx, a)
}

// SetAccountActive toggles collection for an account.
func (db *DB) SetAccountActive(ctx context.Context, id string, active bool) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("update", "accounts", &err)()

	res, err := db.execBuilt(ctx, builder.Update("accounts").
		Set("is_active", active).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return affectedOrNotFound(res)
}

// MarkSetupComplete flags that the initial statistics have been collected.
func (db *DB) MarkSetupComplete(ctx context.Context, id string) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("update", "accounts", &err)()

	res, err := db.execBuilt(ctx, builder.Update("accounts").
		Set("setup_complete", true).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return affectedOrNotFound(res)
}

// DeleteAccount removes the account with its credentials, stats and toots.
func (db *DB) DeleteAccount(ctx context.Context, id string) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("delete", "accounts", &err)()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		return deleteAccountData(ctx, tx, id)
	})
}

// deleteAccountData deletes dependants first, then the account row.
func deleteAccountData(ctx context.Context, tx *sql.Tx, accountID string) error {
	for _, table := range []string{"account_credentials", "daily_account_stats", "daily_toot_stats", "toots"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE account_id = ?", accountID); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return affectedOrNotFound(res)
}

// SaveCredentials upserts the OAuth app and token for an account.
func (db *DB) SaveCredentials(ctx context.Context, c *models.AccountCredentials) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("upsert", "account_credentials", &err)()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO account_credentials (account_id, client_id, client_secret, access_token)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			client_id = excluded.client_id,
			client_secret = excluded.client_secret,
			access_token = excluded.access_token`,
		c.AccountID, c.ClientID, c.ClientSecret, c.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// GetCredentials returns ErrNotFound until the account has been connected.
func (db *DB) GetCredentials(ctx context.Context, accountID string) (c *models.AccountCredentials, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("select", "account_credentials", &err)()

	c = &models.AccountCredentials{}
	err = db.conn.QueryRowContext(ctx,
		`SELECT account_id, client_id, client_secret, access_token FROM account_credentials WHERE account_id = ?`,
		accountID).Scan(&c.AccountID, &c.ClientID, &c.ClientSecret, &c.AccessToken)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	return c, nil
}
