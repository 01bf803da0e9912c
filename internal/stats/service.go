// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Package stats answers dashboard queries: KPIs, daily charts, top toots,
// hashtag analytics and their CSV exports.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

// Metric is one of the charted account statistics.
type Metric string

const (
	Followers Metric = "followers"
	Replies   Metric = "replies"
	Boosts    Metric = "boosts"
	Favorites Metric = "favorites"
)

// ErrInvalidMetric is returned for an unknown metric name.
var ErrInvalidMetric = errors.New("invalid metric")

// ParseMetric accepts the British "favourites" spelling as well.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(s) {
	case "followers":
		return Followers, nil
	case "replies":
		return Replies, nil
	case "boosts":
		return Boosts, nil
	case "favorites", "favourites":
		return Favorites, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMetric, s)
}

// Label is the CSV column header for m.
func (m Metric) Label() string {
	switch m {
	case Followers:
		return "Followers"
	case Replies:
		return "Replies"
	case Boosts:
		return "Boosts"
	default:
		return "Favorites"
	}
}

// Store is the read side of the database used by Service.
type Store interface {
	GetDailyAccountStats(ctx context.Context, accountID string, from, to time.Time) ([]models.DailyAccountStats, error)
	GetLatestAccountStatsBefore(ctx context.Context, accountID string, before time.Time) (*models.DailyAccountStats, error)
	GetDailyTootStats(ctx context.Context, accountID string, from, to time.Time) ([]models.DailyTootStats, error)
	GetLatestTootStatsBefore(ctx context.Context, accountID string, before time.Time) (*models.DailyTootStats, error)
	GetTopToots(ctx context.Context, accountID string, from, to time.Time, orderBy string, limit int) ([]models.Toot, error)
	GetHashtagStats(ctx context.Context, q database.HashtagQuery) ([]models.HashtagStat, error)
	GetHashtagUses(ctx context.Context, accountID string, from, to time.Time, hashtags []string) ([]database.HashtagUse, error)
}

// Service computes statistics for a single account at a time.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService returns a Service reading from store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// SetClock replaces the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func location(account *models.Account) *time.Location {
	return timeframe.LoadLocation(account.Timezone)
}

// series returns the cumulative daily values of metric for DATEs in
// [from, to), preceded by the newest value before from when one exists.
func (s *Service) series(ctx context.Context, account *models.Account, metric Metric, from, to time.Time) ([]models.DailyPoint, error) {
	if metric == Followers {
		return s.followerSeries(ctx, account.ID, from, to)
	}
	return s.tootSeries(ctx, account.ID, metric, from, to)
}

func (s *Service) followerSeries(ctx context.Context, accountID string, from, to time.Time) ([]models.DailyPoint, error) {
	var out []models.DailyPoint

	seed, err := s.store.GetLatestAccountStatsBefore(ctx, accountID, from)
	switch {
	case err == nil:
		out = append(out, models.DailyPoint{Day: seed.Day, Value: seed.FollowersCount})
	case !errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("failed to load follower baseline: %w", err)
	}

	rows, err := s.store.GetDailyAccountStats(ctx, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load follower stats: %w", err)
	}
	for _, r := range rows {
		out = append(out, models.DailyPoint{Day: r.Day, Value: r.FollowersCount})
	}
	return out, nil
}

func tootValue(metric Metric, st *models.DailyTootStats) int64 {
	switch metric {
	case Replies:
		return st.RepliesCount
	case Boosts:
		return st.BoostsCount
	default:
		return st.FavouritesCount
	}
}

func (s *Service) tootSeries(ctx context.Context, accountID string, metric Metric, from, to time.Time) ([]models.DailyPoint, error) {
	var out []models.DailyPoint

	seed, err := s.store.GetLatestTootStatsBefore(ctx, accountID, from)
	switch {
	case err == nil:
		out = append(out, models.DailyPoint{Day: seed.Day, Value: tootValue(metric, seed)})
	case !errors.Is(err, database.ErrNotFound):
		return nil, fmt.Errorf("failed to load %s baseline: %w", metric, err)
	}

	rows, err := s.store.GetDailyTootStats(ctx, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s stats: %w", metric, err)
	}
	for i := range rows {
		out = append(out, models.DailyPoint{Day: rows[i].Day, Value: tootValue(metric, &rows[i])})
	}
	return out, nil
}
