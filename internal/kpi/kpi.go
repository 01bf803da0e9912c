// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Package kpi computes period-over-period indicators from cumulative
// daily series.
package kpi

import (
	"math"
	"sort"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

// KPI compares the current (or last complete) period with the one before.
type KPI struct {
	CurrentPeriod         *int64   `json:"currentPeriod"`
	CurrentPeriodProgress float64  `json:"currentPeriodProgress"`
	PreviousPeriod        *int64   `json:"previousPeriod"`
	Trend                 *float64 `json:"trend"`
	IsLastPeriod          bool     `json:"isLastPeriod"`
}

// Trend extrapolates current to a full period and compares it with
// previous. It is nil when there is nothing to compare against.
func Trend(current, previous int64, progress float64) *float64 {
	if previous == 0 || progress <= 0 {
		return nil
	}
	t := (float64(current)/progress)/float64(previous) - 1
	t = math.Round(t*10000) / 10000
	return &t
}

// Percentage returns part/total, or 0 for an empty total.
func Percentage(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

// series is a cumulative daily series sorted by day.
type series []models.DailyPoint

func newSeries(points []models.DailyPoint) series {
	s := make(series, len(points))
	copy(s, points)
	sort.Slice(s, func(i, j int) bool { return s[i].Day.Before(s[j].Day) })
	return s
}

// lastBefore returns the newest value on a day before end.
func (s series) lastBefore(end time.Time) (int64, bool) {
	idx := sort.Search(len(s), func(i int) bool { return !s[i].Day.Before(end) })
	if idx == 0 {
		return 0, false
	}
	return s[idx-1].Value, true
}

// firstIn returns the oldest value in [start, end).
func (s series) firstIn(start, end time.Time) (int64, bool) {
	idx := sort.Search(len(s), func(i int) bool { return !s[i].Day.Before(start) })
	if idx == len(s) || !s[idx].Day.Before(end) {
		return 0, false
	}
	return s[idx].Value, true
}

// delta is the growth over [start, end). The baseline is the last value
// before start, or the first value inside the window for a new series.
func (s series) delta(start, end time.Time) (int64, bool) {
	first, ok := s.firstIn(start, end)
	if !ok {
		return 0, false
	}
	last, _ := s.lastBefore(end)
	base, ok := s.lastBefore(start)
	if !ok {
		base = first
	}
	return last - base, true
}

// Compute builds the KPI for period from a cumulative series whose points
// carry DATE values (UTC midnight) in the account's calendar.
func Compute(period timeframe.Period, points []models.DailyPoint, now time.Time, loc *time.Location) KPI {
	s := newSeries(points)

	curStart, prevStart := timeframe.PeriodBounds(period, now, loc)
	beforePrev := timeframe.PeriodStart(period, timeframe.AddDays(prevStart, -1), loc)
	tomorrow := timeframe.AddDays(timeframe.StartOfDay(now, loc), 1)

	cur, prev, prevPrev := timeframe.Date(curStart), timeframe.Date(prevStart), timeframe.Date(beforePrev)
	end := timeframe.Date(tomorrow)

	var k KPI
	if current, ok := s.delta(cur, end); ok {
		k.CurrentPeriod = &current
		k.CurrentPeriodProgress = timeframe.Progress(period, now, loc)
		if previous, ok := s.delta(prev, cur); ok {
			k.PreviousPeriod = &previous
		}
	} else {
		k.IsLastPeriod = true
		k.CurrentPeriodProgress = 1
		if current, ok := s.delta(prev, cur); ok {
			k.CurrentPeriod = &current
		}
		if previous, ok := s.delta(prevPrev, prev); ok {
			k.PreviousPeriod = &previous
		}
	}

	if k.CurrentPeriod != nil && k.PreviousPeriod != nil {
		k.Trend = Trend(*k.CurrentPeriod, *k.PreviousPeriod, k.CurrentPeriodProgress)
	}
	return k
}

// Window returns the earliest DATE Compute may look at for period, so
// callers can bound their query.
func Window(period timeframe.Period, now time.Time, loc *time.Location) time.Time {
	_, prevStart := timeframe.PeriodBounds(period, now, loc)
	beforePrev := timeframe.PeriodStart(period, timeframe.AddDays(prevStart, -1), loc)
	return timeframe.Date(beforePrev)
}
