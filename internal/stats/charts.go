// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package stats

import (
	"context"
	"io"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/export"
	"github.com/blazer82/analytodon-sub001/internal/kpi"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

// KPI compares the metric's growth in the current period with the one before.
func (s *Service) KPI(ctx context.Context, account *models.Account, metric Metric, period timeframe.Period) (*kpi.KPI, error) {
	return s.kpiAt(ctx, account, metric, period, s.now())
}

func (s *Service) kpiAt(ctx context.Context, account *models.Account, metric Metric, period timeframe.Period, now time.Time) (*kpi.KPI, error) {
	loc := location(account)
	from := kpi.Window(period, now, loc)
	to := timeframe.Date(timeframe.AddDays(timeframe.StartOfDay(now, loc), 1))

	points, err := s.series(ctx, account, metric, from, to)
	if err != nil {
		return nil, err
	}
	k := kpi.Compute(period, points, now, loc)
	return &k, nil
}

// Chart returns one point per day of tf. Followers are the absolute count
// carried over gaps; the other metrics are daily increases, never negative.
func (s *Service) Chart(ctx context.Context, account *models.Account, metric Metric, tf timeframe.Timeframe) (*models.ChartResponse, error) {
	loc := location(account)
	r := timeframe.Resolve(tf, s.now(), loc)

	points, err := s.series(ctx, account, metric, timeframe.Date(r.Start), timeframe.Date(r.End))
	if err != nil {
		return nil, err
	}

	resp := &models.ChartResponse{Timeframe: string(tf)}
	if metric == Followers {
		resp.Data = timeframe.FillDays(r, points, true)
		resp.Total = growth(r, points)
	} else {
		resp.Data = dailyIncrease(r, points)
		for _, p := range resp.Data {
			resp.Total += p.Value
		}
	}
	return resp, nil
}

// growth is the last known value in r minus the baseline: the value before
// r when known, otherwise the first value inside r.
func growth(r timeframe.Range, points []models.DailyPoint) int64 {
	start, end := timeframe.Date(r.Start), timeframe.Date(r.End)

	var (
		base, last       int64
		haveBase, inside bool
	)
	for _, p := range points {
		switch {
		case p.Day.Before(start):
			base, haveBase = p.Value, true
		case p.Day.Before(end):
			if !haveBase {
				base, haveBase = p.Value, true
			}
			last, inside = p.Value, true
		}
	}
	if !inside {
		return 0
	}
	return last - base
}

// dailyIncrease turns a cumulative series into per-day deltas. Days before
// the first known value are zero, and a drop is reported as zero.
func dailyIncrease(r timeframe.Range, points []models.DailyPoint) []models.DailyPoint {
	start := timeframe.Date(r.Start)
	byDay := make(map[time.Time]int64, len(points))

	var (
		prev     int64
		havePrev bool
	)
	for _, p := range points {
		if p.Day.Before(start) {
			prev, havePrev = p.Value, true
			continue
		}
		byDay[p.Day] = p.Value
	}

	days := timeframe.Days(r)
	out := make([]models.DailyPoint, 0, len(days))
	for _, d := range days {
		v, ok := byDay[d]
		if !ok {
			if !havePrev {
				out = append(out, models.DailyPoint{Day: d})
				continue
			}
			v = prev
		}
		var delta int64
		if havePrev && v > prev {
			delta = v - prev
		}
		prev, havePrev = v, true
		out = append(out, models.DailyPoint{Day: d, Value: delta})
	}
	return out
}

// ExportCSV writes the chart for tf as CSV.
func (s *Service) ExportCSV(ctx context.Context, account *models.Account, metric Metric, tf timeframe.Timeframe, w io.Writer) error {
	chart, err := s.Chart(ctx, account, metric, tf)
	if err != nil {
		return err
	}
	return export.WriteDailyCSV(w, metric.Label(), chart.Data)
}
