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
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/blazer82/analytodon-sub001/internal/models"
)

// UpsertDailyAccountStats writes the account snapshot for s.Day.
// A second collection on the same day overwrites the first.
func (db *DB) UpsertDailyAccountStats(ctx context.Context, s *models.DailyAccountStats) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("upsert", "daily_account_stats", &err)()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO daily_account_stats (account_id, day, followers_count, following_count, statuses_count)
		VALUES (?, CAST(? AS DATE), ?, ?, ?)
		ON CONFLICT (account_id, day) DO UPDATE SET
			followers_count = excluded.followers_count,
			following_count = excluded.following_count,
			statuses_count = excluded.statuses_count`,
		s.AccountID, dayParam(s.Day), s.FollowersCount, s.FollowingCount, s.StatusesCount)
	if err != nil {
		return fmt.Errorf("failed to upsert daily account stats: %w", err)
	}
	return nil
}

// UpsertDailyTootStats writes the cumulative toot totals for s.Day.
func (db *DB) UpsertDailyTootStats(ctx context.Context, s *models.DailyTootStats) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("upsert", "daily_toot_stats", &err)()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO daily_toot_stats (account_id, day, replies_count, boosts_count, favourites_count)
		VALUES (?, CAST(? AS DATE), ?, ?, ?)
		ON CONFLICT (account_id, day) DO UPDATE SET
			replies_count = excluded.replies_count,
			boosts_count = excluded.boosts_count,
			favourites_count = excluded.favourites_count`,
		s.AccountID, dayParam(s.Day), s.RepliesCount, s.BoostsCount, s.FavouritesCount)
	if err != nil {
		return fmt.Errorf("failed to upsert daily toot stats: %w", err)
	}
	return nil
}

func dayRange(accountID string, from, to time.Time) sq.And {
	return sq.And{
		sq.Eq{"account_id": accountID},
		sq.Expr("day >= CAST(? AS DATE)", dayParam(from)),
		sq.Expr("day < CAST(? AS DATE)", dayParam(to)),
	}
}

// GetDailyAccountStats returns snapshots for days in [from, to), ascending.
func (db *DB) GetDailyAccountStats(ctx context.Context, accountID string, from, to time.Time) (out []models.DailyAccountStats, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("select", "daily_account_stats", &err)()

	rows, err := db.queryBuilt(ctx, builder.
		Select("account_id", "day", "followers_count", "following_count", "statuses_count").
		From("daily_account_stats").
		Where(dayRange(accountID, from, to)).
		OrderBy("day"))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily account stats: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var s models.DailyAccountStats
		if err := rows.Scan(&s.AccountID, &s.Day, &s.FollowersCount, &s.FollowingCount, &s.StatusesCount); err != nil {
			return nil, fmt.Errorf("failed to scan daily account stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetLatestAccountStatsBefore returns the newest snapshot strictly before
// the given day, or ErrNotFound.
func (db *DB) GetLatestAccountStatsBefore(ctx context.Context, accountID string, before time.Time) (s *models.DailyAccountStats, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("select", "daily_account_stats", &err)()

	query, args, err := builder.
		Select("account_id", "day", "followers_count", "following_count", "statuses_count").
		From("daily_account_stats").
		Where(sq.Eq{"account_id": accountID}).
		Where(sq.Expr("day < CAST(? AS DATE)", dayParam(before))).
		OrderBy("day DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	s = &models.DailyAccountStats{}
	err = db.conn.QueryRowContext(ctx, query, args...).
		Scan(&s.AccountID, &s.Day, &s.FollowersCount, &s.FollowingCount, &s.StatusesCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest account stats: %w", err)
	}
	return s, nil
}

// GetDailyTootStats returns cumulative totals for days in [from, to), ascending.
func (db *DB) GetDailyTootStats(ctx context.Context, accountID string, from, to time.Time) (out []models.DailyTootStats, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("select", "daily_toot_stats", &err)()

	rows, err := db.queryBuilt(ctx, builder.
		Select("account_id", "day", "replies_count", "boosts_count", "favourites_count").
		From("daily_toot_stats").
		Where(dayRange(accountID, from, to)).
		OrderBy("day"))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily toot stats: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var s models.DailyTootStats
		if err := rows.Scan(&s.AccountID, &s.Day, &s.RepliesCount, &s.BoostsCount, &s.FavouritesCount); err != nil {
			return nil, fmt.Errorf("failed to scan daily toot stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetLatestTootStatsBefore returns the newest totals strictly before the
// given day, or ErrNotFound.
func (db *DB) GetLatestTootStatsBefore(ctx context.Context, accountID string, before time.Time) (s *models.DailyTootStats, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("select", "daily_toot_stats", &err)()

	query, args, err := builder.
		Select("account_id", "day", "replies_count", "boosts_count", "favourites_count").
		From("daily_toot_stats").
		Where(sq.Eq{"account_id": accountID}).
		Where(sq.Expr("day < CAST(? AS DATE)", dayParam(before))).
		OrderBy("day DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, err
	}

	s = &models.DailyTootStats{}
	err = db.conn.QueryRowContext(ctx, query, args...).
		Scan(&s.AccountID, &s.Day, &s.RepliesCount, &s.BoostsCount, &s.FavouritesCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest toot stats: %w", err)
	}
	return s, nil
}
