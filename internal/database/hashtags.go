// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package database

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/blazer82/analytodon-sub001/internal/models"
)

// Hashtag ordering keys accepted by GetHashtagStats.
const (
	HashtagOrderCount      = "count"
	HashtagOrderEngagement = "engagement"
	HashtagOrderAverage    = "average"
)

var hashtagOrderExpr = map[string][]string{
	HashtagOrderCount:      {"toot_count DESC", "total_engagement DESC", "hashtag"},
	HashtagOrderEngagement: {"total_engagement DESC", "toot_count DESC", "hashtag"},
	HashtagOrderAverage:    {"average_engagement DESC", "toot_count DESC", "hashtag"},
}

// HashtagQuery selects hashtag aggregates over toots created in [From, To).
type HashtagQuery struct {
	AccountID string
	From      time.Time
	To        time.Time
	OrderBy   string
	MinToots  int
	Limit     int
}

// taggedToots expands each toot into one row per hashtag.
func taggedToots(accountID string, from, to time.Time) sq.SelectBuilder {
	return builder.
		Select(
			"UNNEST(string_split(tags, ',')) AS hashtag",
			"replies_count",
			"boosts_count",
			"favourites_count",
			"created_at",
		).
		From("toots").
		Where(sq.Eq{"account_id": accountID}).
		Where(sq.GtOrEq{"created_at": from.UTC()}).
		Where(sq.Lt{"created_at": to.UTC()}).
		Where(sq.NotEq{"tags": ""})
}

// GetHashtagStats aggregates usage and engagement per hashtag.
func (db *DB) GetHashtagStats(ctx context.Context, q HashtagQuery) (out []models.HashtagStat, err error) {
	order, ok := hashtagOrderExpr[q.OrderBy]
	if !ok {
		return nil, fmt.Errorf("unknown hashtag ordering %q", q.OrderBy)
	}
	minToots := q.MinToots
	if minToots < 1 {
		minToots = 1
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("aggregate", "toots", &err)()

	rows, err := db.queryBuilt(ctx, builder.
		Select(
			"hashtag",
			"COUNT(*) AS toot_count",
			"CAST(SUM(replies_count) AS BIGINT) AS replies",
			"CAST(SUM(boosts_count) AS BIGINT) AS boosts",
			"CAST(SUM(favourites_count) AS BIGINT) AS favourites",
			"CAST(SUM(replies_count + boosts_count + favourites_count) AS BIGINT) AS total_engagement",
			"CAST(AVG(replies_count + boosts_count + favourites_count) AS DOUBLE) AS average_engagement",
		).
		FromSelect(taggedToots(q.AccountID, q.From, q.To), "tagged").
		Where(sq.NotEq{"hashtag": ""}).
		GroupBy("hashtag").
		Having("COUNT(*) >= ?", minToots).
		OrderBy(order...).
		Limit(uint64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to query hashtag stats: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var h models.HashtagStat
		if err := rows.Scan(&h.Hashtag, &h.TootCount, &h.RepliesCount, &h.BoostsCount, &h.FavouritesCount,
			&h.TotalEngagement, &h.AverageEngagement); err != nil {
			return nil, fmt.Errorf("failed to scan hashtag stat: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// HashtagUse is one toot carrying a hashtag.
type HashtagUse struct {
	Hashtag   string
	CreatedAt time.Time
}

// GetHashtagUses returns every use of the given hashtags in [from, to).
// Bucketing into days happens in the caller, which knows the timezone.
func (db *DB) GetHashtagUses(ctx context.Context, accountID string, from, to time.Time, hashtags []string) (out []HashtagUse, err error) {
	if len(hashtags) == 0 {
		return nil, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer track("select", "toots", &err)()

	rows, err := db.queryBuilt(ctx, builder.
		Select("hashtag", "created_at").
		FromSelect(taggedToots(accountID, from, to), "tagged").
		Where(sq.Eq{"hashtag": hashtags}).
		OrderBy("created_at"))
	if err != nil {
		return nil, fmt.Errorf("failed to query hashtag uses: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var u HashtagUse
		if err := rows.Scan(&u.Hashtag, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hashtag use: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
