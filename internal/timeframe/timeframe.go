// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Package timeframe resolves dashboard timeframes and KPI periods into
// calendar ranges in an account's timezone.
package timeframe

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone names must resolve on hosts without zoneinfo

	"github.com/blazer82/analytodon-sub001/internal/models"
)

// Timeframe names a chart window.
type Timeframe string

const (
	Last7Days  Timeframe = "last7days"
	Last30Days Timeframe = "last30days"
	ThisWeek   Timeframe = "thisweek"
	ThisMonth  Timeframe = "thismonth"
	ThisYear   Timeframe = "thisyear"
	LastWeek   Timeframe = "lastweek"
	LastMonth  Timeframe = "lastmonth"
	LastYear   Timeframe = "lastyear"
)

// Default is used when no timeframe is given.
const Default = Last30Days

// All lists the accepted timeframes.
var All = []Timeframe{Last7Days, Last30Days, ThisWeek, ThisMonth, ThisYear, LastWeek, LastMonth, LastYear}

// Period is the unit a KPI compares against.
type Period string

const (
	Week  Period = "week"
	Month Period = "month"
	Year  Period = "year"
)

var (
	ErrInvalidTimeframe = errors.New("invalid timeframe")
	ErrInvalidPeriod    = errors.New("invalid period")
)

// Range is a half-open interval [Start, End) of local midnights.
type Range struct {
	Start time.Time
	End   time.Time
}

// Parse validates s. Empty input yields Default.
func Parse(s string) (Timeframe, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Default, nil
	}
	for _, tf := range All {
		if Timeframe(s) == tf {
			return tf, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
}

// ParsePeriod accepts both "week" and "weekly" forms.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "week", "weekly":
		return Week, nil
	case "month", "monthly":
		return Month, nil
	case "year", "yearly":
		return Year, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
}

// LoadLocation resolves an IANA zone, falling back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ValidLocation reports whether name is a loadable IANA zone.
func ValidLocation(name string) bool {
	if name == "" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// StartOfDay returns local midnight of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// AddDays moves a local midnight by n calendar days, DST-safe.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, t.Location())
}

// Date maps a local midnight to the UTC-midnight value used for DATE columns.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PeriodStart returns the start of the period containing t. Weeks start
// on Monday.
func PeriodStart(p Period, t time.Time, loc *time.Location) time.Time {
	day := StartOfDay(t, loc)
	switch p {
	case Week:
		offset := (int(day.Weekday()) + 6) % 7
		return AddDays(day, -offset)
	case Month:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, loc)
	}
}

// nextPeriodStart returns the start of the period after the one at start.
func nextPeriodStart(p Period, start time.Time) time.Time {
	switch p {
	case Week:
		return AddDays(start, 7)
	case Month:
		return time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, start.Location())
	default:
		return time.Date(start.Year()+1, time.January, 1, 0, 0, 0, 0, start.Location())
	}
}

// PeriodBounds returns the start of the current and the previous period.
func PeriodBounds(p Period, now time.Time, loc *time.Location) (currentStart, previousStart time.Time) {
	currentStart = PeriodStart(p, now, loc)
	previousStart = PeriodStart(p, AddDays(currentStart, -1), loc)
	return currentStart, previousStart
}

// Progress is the share of the current period's days elapsed, today
// included. It is always in (0, 1].
func Progress(p Period, now time.Time, loc *time.Location) float64 {
	start := PeriodStart(p, now, loc)
	total := daysBetween(start, nextPeriodStart(p, start))
	elapsed := daysBetween(start, StartOfDay(now, loc)) + 1
	return float64(elapsed) / float64(total)
}

// Resolve turns a timeframe into a local range relative to now.
func Resolve(tf Timeframe, now time.Time, loc *time.Location) Range {
	today := StartOfDay(now, loc)
	tomorrow := AddDays(today, 1)

	switch tf {
	case Last7Days:
		return Range{Start: AddDays(today, -7), End: today}
	case ThisWeek:
		return Range{Start: PeriodStart(Week, now, loc), End: tomorrow}
	case ThisMonth:
		return Range{Start: PeriodStart(Month, now, loc), End: tomorrow}
	case ThisYear:
		return Range{Start: PeriodStart(Year, now, loc), End: tomorrow}
	case LastWeek:
		cur, prev := PeriodBounds(Week, now, loc)
		return Range{Start: prev, End: cur}
	case LastMonth:
		cur, prev := PeriodBounds(Month, now, loc)
		return Range{Start: prev, End: cur}
	case LastYear:
		cur, prev := PeriodBounds(Year, now, loc)
		return Range{Start: prev, End: cur}
	default:
		return Range{Start: AddDays(today, -30), End: today}
	}
}

// Days lists each day of r as a DATE value.
func Days(r Range) []time.Time {
	var out []time.Time
	for d := r.Start; d.Before(r.End); d = AddDays(d, 1) {
		out = append(out, Date(d))
	}
	return out
}

// Len returns the number of calendar days in r.
func (r Range) Len() int {
	return daysBetween(r.Start, r.End)
}

func daysBetween(a, b time.Time) int {
	return int(Date(b).Sub(Date(a)).Hours() / 24)
}

// FillDays returns one point per day of r. Points before r seed the carried
// value; points on or after r.End are ignored. With carry, gaps repeat the
// last known value, otherwise they are zero.
func FillDays(r Range, points []models.DailyPoint, carry bool) []models.DailyPoint {
	byDay := make(map[time.Time]int64, len(points))
	start := Date(r.Start)

	var (
		last    int64
		lastDay time.Time
	)
	for _, p := range points {
		d := Date(p.Day)
		byDay[d] = p.Value
		if d.Before(start) && (lastDay.IsZero() || d.After(lastDay)) {
			last, lastDay = p.Value, d
		}
	}

	days := Days(r)
	out := make([]models.DailyPoint, 0, len(days))
	for _, d := range days {
		v, ok := byDay[d]
		switch {
		case ok:
			last = v
		case carry:
			v = last
		default:
			v = 0
		}
		out = append(out, models.DailyPoint{Day: d, Value: v})
	}
	return out
}
