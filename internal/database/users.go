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

const userColumns = "id, email, password_hash, role, is_active, email_verified, timezone, server_url_on_signup, " +
	"weekly_stats, news, last_login_at, deletion_notice_sent_at, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u            models.User
		lastLogin    sql.NullTime
		deletionSent sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.EmailVerified, &u.Timezone,
		&u.ServerURLOnSignUp, &u.EmailNotifications.WeeklyStats, &u.EmailNotifications.News,
		&lastLogin, &deletionSent, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.LastLoginAt = timePtr(lastLogin)
	u.DeletionNoticeSentAt = timePtr(deletionSent)
	return &u, nil
}

// CreateUser inserts a user. The email is stored lower-cased.
func (db *DB) CreateUser(ctx context.Context, u *models.User) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("insert", "users", &err)()

	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = models.RoleAccountOwner
	}
	if u.Timezone == "" {
		u.Timezone = "UTC"
	}

	_, err = db.execBuilt(ctx, builder.Insert("users").
		Columns("id", "email", "password_hash", "role", "is_active", "email_verified", "timezone",
			"server_url_on_signup", "weekly_stats", "news", "last_login_at", "deletion_notice_sent_at",
			"created_at", "updated_at").
		Values(u.ID, u.Email, u.PasswordHash, u.Role, u.IsActive, u.EmailVerified, u.Timezone,
			u.ServerURLOnSignUp, u.EmailNotifications.WeeklyStats, u.EmailNotifications.News,
			nullableTime(u.LastLoginAt), nullableTime(u.DeletionNoticeSentAt),
			u.CreatedAt.UTC(), u.UpdatedAt))
	if isConstraintViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (db *DB) getUserWhere(ctx context.Context, pred interface{}) (u *models.User, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("select", "users", &err)()

	query, args, err := builder.Select(userColumns).From("users").Where(pred).ToSql()
	if err != nil {
		return nil, err
	}
	u, err = scanUser(db.conn.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetUserByID returns ErrNotFound for an unknown id.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return db.getUserWhere(ctx, sq.Eq{"id": id})
}

// GetUserByEmail matches case-insensitively.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUserWhere(ctx, sq.Eq{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (db *DB) listUsersWhere(ctx context.Context, preds ...interface{}) (users []models.User, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("select", "users", &err)()

	q := builder.Select(userColumns).From("users").OrderBy("created_at")
	for _, p := range preds {
		q = q.Where(p)
	}
	rows, err := db.queryBuilt(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// ListUsers returns every user ordered by sign-up time.
func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	return db.listUsersWhere(ctx)
}

// ListUsersForWeeklyStats returns active, verified users who opted in.
func (db *DB) ListUsersForWeeklyStats(ctx context.Context) ([]models.User, error) {
	return db.listUsersWhere(ctx, sq.Eq{"is_active": true, "email_verified": true, "weekly_stats": true})
}

// ListInactiveUsers returns non-admin users without activity since before
// who have not been sent a deletion notice yet.
func (db *DB) ListInactiveUsers(ctx context.Context, before time.Time) ([]models.User, error) {
	return db.listUsersWhere(ctx,
		sq.NotEq{"role": models.RoleAdmin},
		sq.Eq{"deletion_notice_sent_at": nil},
		sq.Expr("COALESCE(last_login_at, created_at) < ?", before.UTC()),
	)
}

// ListUsersPendingDeletion returns users notified before noticeBefore who
// have not logged in since the notice.
func (db *DB) ListUsersPendingDeletion(ctx context.Context, noticeBefore time.Time) ([]models.User, error) {
	return db.listUsersWhere(ctx,
		sq.NotEq{"role": models.RoleAdmin},
		sq.Lt{"deletion_notice_sent_at": noticeBefore.UTC()},
		sq.Expr("COALESCE(last_login_at, created_at) < deletion_notice_sent_at"),
	)
}

// UpdateUser writes the mutable profile fields. Email and id never change.
func (db *DB) UpdateUser(ctx context.Context, u *models.User) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("update", "users", &err)()

	u.UpdatedAt = time.Now().UTC()
	res, err := db.execBuilt(ctx, builder.Update("users").
		Set("role", u.Role).
		Set("is_active", u.IsActive).
		Set("timezone", u.Timezone).
		Set("server_url_on_signup", u.ServerURLOnSignUp).
		Set("weekly_stats", u.EmailNotifications.WeeklyStats).
		Set("news", u.EmailNotifications.News).
		Set("updated_at", u.UpdatedAt).
		Where(sq.Eq{"id": u.ID}))
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return affectedOrNotFound(res)
}

func (db *DB) setUserFields(ctx context.Context, id string, fields map[string]interface{}) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("update", "users", &err)()

	fields["updated_at"] = time.Now().UTC()
	res, err := db.execBuilt(ctx, builder.Update("users").SetMap(fields).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return affectedOrNotFound(res)
}

// SetEmailVerified flips the verification flag.
func (db *DB) SetEmailVerified(ctx context.Context, id string, verified bool) error {
	return db.setUserFields(ctx, id, map[string]interface{}{"email_verified": verified})
}

// SetPassword stores a new bcrypt hash.
func (db *DB) SetPassword(ctx context.Context, id, passwordHash string) error {
	return db.setUserFields(ctx, id, map[string]interface{}{"password_hash": passwordHash})
}

// TouchLastLogin records a login and withdraws any pending deletion notice.
func (db *DB) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return db.setUserFields(ctx, id, map[string]interface{}{
		"last_login_at":           at.UTC(),
		"deletion_notice_sent_at": nil,
	})
}

// MarkDeletionNoticeSent records when the inactivity notice went out.
func (db *DB) MarkDeletionNoticeSent(ctx context.Context, id string, at time.Time) error {
	return db.setUserFields(ctx, id, map[string]interface{}{"deletion_notice_sent_at": at.UTC()})
}

// DeleteUser removes the user and everything owned by their accounts.
func (db *DB) DeleteUser(ctx context.Context, id string) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("delete", "users", &err)()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM accounts WHERE owner_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to list user accounts: %w", err)
		}
		var accountIDs []string
		for rows.Next() {
			var accountID string
			if err := rows.Scan(&accountID); err != nil {
				closeQuietly(rows)
				return err
			}
			accountIDs = append(accountIDs, accountID)
		}
		if err := rows.Err(); err != nil {
			closeQuietly(rows)
			return err
		}
		closeWithLog(rows, "rows")

		for _, accountID := range accountIDs {
			if err := deleteAccountData(ctx, tx, accountID); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return affectedOrNotFound(res)
	})
}
