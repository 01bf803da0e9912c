// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package stats

import (
	"context"
	"fmt"
	"io"

	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/export"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

// Limits for list endpoints and exports.
const (
	DefaultLimit = 10
	MaxLimit     = 100
	exportLimit  = 1000
)

// ClampLimit maps a requested list size into [1, MaxLimit].
func ClampLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultLimit
	case n > MaxLimit:
		return MaxLimit
	default:
		return n
	}
}

// TopToots returns the best toots created in tf, overall and per counter.
func (s *Service) TopToots(ctx context.Context, account *models.Account, tf timeframe.Timeframe, limit int) (*models.TopToots, error) {
	r := timeframe.Resolve(tf, s.now(), location(account))
	limit = ClampLimit(limit)

	out := &models.TopToots{}
	lists := []struct {
		orderBy string
		dst     *[]models.Toot
	}{
		{database.OrderByEngagement, &out.Top},
		{database.OrderByReplies, &out.TopByReplies},
		{database.OrderByBoosts, &out.TopByBoosts},
		{database.OrderByFavourites, &out.TopByFavorites},
	}

	for _, l := range lists {
		toots, err := s.store.GetTopToots(ctx, account.ID, r.Start, r.End, l.orderBy, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to load top toots by %s: %w", l.orderBy, err)
		}
		if toots == nil {
			toots = []models.Toot{}
		}
		*l.dst = toots
	}
	return out, nil
}

// ExportTopTootsCSV writes the toots of tf ordered by total engagement.
func (s *Service) ExportTopTootsCSV(ctx context.Context, account *models.Account, tf timeframe.Timeframe, w io.Writer) error {
	r := timeframe.Resolve(tf, s.now(), location(account))
	toots, err := s.store.GetTopToots(ctx, account.ID, r.Start, r.End, database.OrderByEngagement, exportLimit)
	if err != nil {
		return fmt.Errorf("failed to load toots: %w", err)
	}
	return export.WriteTopTootsCSV(w, toots)
}
