// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package stats

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/export"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

// minTootsForEffectiveness keeps one-off hashtags out of the
// most-effective ranking.
const minTootsForEffectiveness = 2

func (s *Service) hashtags(ctx context.Context, account *models.Account, tf timeframe.Timeframe, orderBy string, minToots, limit int) ([]models.HashtagStat, timeframe.Range, error) {
	r := timeframe.Resolve(tf, s.now(), location(account))
	stats, err := s.store.GetHashtagStats(ctx, database.HashtagQuery{
		AccountID: account.ID,
		From:      r.Start,
		To:        r.End,
		OrderBy:   orderBy,
		MinToots:  minToots,
		Limit:     limit,
	})
	if err != nil {
		return nil, r, fmt.Errorf("failed to load hashtag stats: %w", err)
	}
	if stats == nil {
		stats = []models.HashtagStat{}
	}
	return stats, r, nil
}

// TopHashtags ranks hashtags by how many toots used them.
func (s *Service) TopHashtags(ctx context.Context, account *models.Account, tf timeframe.Timeframe, limit int) ([]models.HashtagStat, error) {
	stats, _, err := s.hashtags(ctx, account, tf, database.HashtagOrderCount, 1, ClampLimit(limit))
	return stats, err
}

// HashtagEngagement ranks hashtags by total engagement.
func (s *Service) HashtagEngagement(ctx context.Context, account *models.Account, tf timeframe.Timeframe, limit int) ([]models.HashtagStat, error) {
	stats, _, err := s.hashtags(ctx, account, tf, database.HashtagOrderEngagement, 1, ClampLimit(limit))
	return stats, err
}

// MostEffectiveHashtags ranks hashtags used at least twice by average
// engagement per toot.
func (s *Service) MostEffectiveHashtags(ctx context.Context, account *models.Account, tf timeframe.Timeframe, limit int) ([]models.HashtagStat, error) {
	stats, _, err := s.hashtags(ctx, account, tf, database.HashtagOrderAverage, minTootsForEffectiveness, ClampLimit(limit))
	return stats, err
}

// HashtagsOverTime returns daily usage counts for the top hashtags of tf.
func (s *Service) HashtagsOverTime(ctx context.Context, account *models.Account, tf timeframe.Timeframe, limit int) ([]models.HashtagTimeseries, error) {
	top, r, err := s.hashtags(ctx, account, tf, database.HashtagOrderCount, 1, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	out := make([]models.HashtagTimeseries, 0, len(top))
	if len(top) == 0 {
		return out, nil
	}

	names := make([]string, len(top))
	for i, h := range top {
		names[i] = h.Hashtag
	}
	uses, err := s.store.GetHashtagUses(ctx, account.ID, r.Start, r.End, names)
	if err != nil {
		return nil, fmt.Errorf("failed to load hashtag usage: %w", err)
	}

	loc := location(account)
	counts := make(map[string]map[time.Time]int64, len(names))
	for _, u := range uses {
		byDay, ok := counts[u.Hashtag]
		if !ok {
			byDay = make(map[time.Time]int64)
			counts[u.Hashtag] = byDay
		}
		byDay[database.DayOf(u.CreatedAt, loc)]++
	}

	for _, name := range names {
		points := make([]models.DailyPoint, 0, len(counts[name]))
		for d, n := range counts[name] {
			points = append(points, models.DailyPoint{Day: d, Value: n})
		}
		out = append(out, models.HashtagTimeseries{
			Hashtag: name,
			Data:    timeframe.FillDays(r, points, false),
		})
	}
	return out, nil
}

// ExportHashtagsCSV writes every hashtag of tf ranked by usage.
func (s *Service) ExportHashtagsCSV(ctx context.Context, account *models.Account, tf timeframe.Timeframe, w io.Writer) error {
	stats, _, err := s.hashtags(ctx, account, tf, database.HashtagOrderCount, 1, exportLimit)
	if err != nil {
		return err
	}
	return export.WriteHashtagCSV(w, stats)
}
