// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package stats

import (
	"context"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/kpi"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

// AccountSummary is one account's section of the weekly mail.
type AccountSummary struct {
	AccountID   string  `json:"accountId"`
	AccountName string  `json:"accountName"`
	Followers   kpi.KPI `json:"followers"`
	Replies     kpi.KPI `json:"replies"`
	Boosts      kpi.KPI `json:"boosts"`
	Favorites   kpi.KPI `json:"favorites"`
}

// WeeklySummary reports the last complete week against the week before.
func (s *Service) WeeklySummary(ctx context.Context, account *models.Account) (*AccountSummary, error) {
	loc := location(account)
	weekStart := timeframe.PeriodStart(timeframe.Week, s.now(), loc)
	// Noon on the last Sunday: the previous week is then fully elapsed.
	lastSunday := timeframe.AddDays(weekStart, -1).Add(12 * time.Hour)

	summary := &AccountSummary{AccountID: account.ID, AccountName: account.AccountName}
	targets := []struct {
		metric Metric
		dst    *kpi.KPI
	}{
		{Followers, &summary.Followers},
		{Replies, &summary.Replies},
		{Boosts, &summary.Boosts},
		{Favorites, &summary.Favorites},
	}
	for _, t := range targets {
		k, err := s.kpiAt(ctx, account, t.metric, timeframe.Week, lastSunday)
		if err != nil {
			return nil, err
		}
		*t.dst = *k
	}
	return summary, nil
}
