// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/blazer82/analytodon-sub001/internal/models"
)

// Toot ordering keys accepted by GetTopToots.
const (
	OrderByReplies    = "replies"
	OrderByBoosts     = "boosts"
	OrderByFavourites = "favourites"
	OrderByEngagement = "engagement"
)

var tootOrderExpr = map[string]string{
	OrderByReplies:    "replies_count",
	OrderByBoosts:     "boosts_count",
	OrderByFavourites: "favourites_count",
	OrderByEngagement: "(replies_count + boosts_count + favourites_count)",
}

const tootColumns = "account_id, uri, url, content, visibility, language, tags, " +
	"replies_count, boosts_count, favourites_count, created_at, fetched_at"

// JoinTags normalizes tags for storage: lower-cased, comma-free, unique.
func JoinTags(tags []string) string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(t, ",", "")))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return strings.Join(out, ",")
}

// dedupeToots keeps the last occurrence of each (account, uri) pair.
// DuckDB refuses to update the same row twice in one upsert batch.
func dedupeToots(toots []models.Toot) []models.Toot {
	index := make(map[string]int, len(toots))
	out := make([]models.Toot, 0, len(toots))
	for i := range toots {
		key := toots[i].AccountID + "\x00" + toots[i].URI
		if pos, ok := index[key]; ok {
			out[pos] = toots[i]
			continue
		}
		index[key] = len(out)
		out = append(out, toots[i])
	}
	return out
}

// UpsertToots writes a batch of toots in one transaction and returns the
// number of distinct rows written. Counters and tags are refreshed on
// conflict; the creation time is immutable.
func (db *DB) UpsertToots(ctx context.Context, toots []models.Toot) (n int, err error) {
	if len(toots) == 0 {
		return 0, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("upsert", "toots", &err)()

	batch := dedupeToots(toots)
	now := time.Now().UTC()

	err = db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO toots (`+tootColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (account_id, uri) DO UPDATE SET
				url = excluded.url,
				content = excluded.content,
				visibility = excluded.visibility,
				language = excluded.language,
				tags = excluded.tags,
				replies_count = excluded.replies_count,
				boosts_count = excluded.boosts_count,
				favourites_count = excluded.favourites_count,
				fetched_at = excluded.fetched_at`)
		if err != nil {
			return fmt.Errorf("failed to prepare toot upsert: %w", err)
		}
		defer closeWithLog(stmt, "prepared statement")

		for i := range batch {
			t := &batch[i]
			fetched := t.FetchedAt
			if fetched.IsZero() {
				fetched = now
			}
			if _, err := stmt.ExecContext(ctx, t.AccountID, t.URI, t.URL, t.Content, t.Visibility, t.Language,
				JoinTags(t.Tags), t.RepliesCount, t.BoostsCount, t.FavouritesCount,
				t.CreatedAt.UTC(), fetched.UTC()); err != nil {
				return fmt.Errorf("failed to upsert toot %s: %w", t.URI, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(batch), nil
}

// ComputeTootTotals sums reply, boost and favourite counters over every
// stored toot of the account.
func (db *DB) ComputeTootTotals(ctx context.Context, accountID string) (s *models.DailyTootStats, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("aggregate", "toots", &err)()

	query, args, err := builder.
		Select(
			"CAST(COALESCE(SUM(replies_count), 0) AS BIGINT)",
			"CAST(COALESCE(SUM(boosts_count), 0) AS BIGINT)",
			"CAST(COALESCE(SUM(favourites_count), 0) AS BIGINT)",
		).
		From("toots").
		Where(sq.Eq{"account_id": accountID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	s = &models.DailyTootStats{AccountID: accountID}
	if err = db.conn.QueryRowContext(ctx, query, args...).Scan(&s.RepliesCount, &s.BoostsCount, &s.FavouritesCount); err != nil {
		return nil, fmt.Errorf("failed to compute toot totals: %w", err)
	}
	return s, nil
}

// GetTopToots returns toots created in [from, to) with a positive value for
// orderBy, highest first.
func (db *DB) GetTopToots(ctx context.Context, accountID string, from, to time.Time, orderBy string, limit int) (out []models.Toot, err error) {
	expr, ok := tootOrderExpr[orderBy]
	if !ok {
		return nil, fmt.Errorf("unknown toot ordering %q", orderBy)
	}
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("select", "toots", &err)()

	rows, err := db.queryBuilt(ctx, builder.
		Select(tootColumns).
		From("toots").
		Where(sq.Eq{"account_id": accountID}).
		Where(sq.GtOrEq{"created_at": from.UTC()}).
		Where(sq.Lt{"created_at": to.UTC()}).
		Where(expr+" > 0").
		OrderBy(expr+" DESC", "created_at DESC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to query top toots: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			t    models.Toot
			tags string
		)
		if err := rows.Scan(&t.AccountID, &t.URI, &t.URL, &t.Content, &t.Visibility, &t.Language, &tags,
			&t.RepliesCount, &t.BoostsCount, &t.FavouritesCount, &t.CreatedAt, &t.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan toot: %w", err)
		}
		t.Tags = splitList(tags)
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountToots returns how many toots are stored for the account.
func (db *DB) CountToots(ctx context.Context, accountID string) (n int64, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("count", "toots", &err)()

	err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM toots WHERE account_id = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count toots: %w", err)
	}
	return n, nil
}
