// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package timeframe

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/blazer82/analytodon-sub001/internal/models"
)

// wednesday is 2026-03-18 10:00 UTC.
var wednesday = time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("tzdata unavailable for %s: %v", name, err)
	}
	return loc
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Timeframe
		wantErr bool
	}{
		{"", Last30Days, false},
		{"last7days", Last7Days, false},
		{" ThisMonth ", ThisMonth, false},
		{"lastyear", LastYear, false},
		{"yesterday", "", true},
		{"last90days", "", true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidTimeframe) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidTimeframe", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Parse(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestParsePeriod(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Period{"weekly": Week, "month": Month, "YEARLY": Year} {
		if got, err := ParsePeriod(in); err != nil || got != want {
			t.Errorf("ParsePeriod(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePeriod("daily"); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("ParsePeriod(daily) error = %v", err)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tf         Timeframe
		start, end string
	}{
		{Last7Days, "2026-03-11", "2026-03-18"},
		{Last30Days, "2026-02-16", "2026-03-18"},
		{ThisWeek, "2026-03-16", "2026-03-19"},
		{ThisMonth, "2026-03-01", "2026-03-19"},
		{ThisYear, "2026-01-01", "2026-03-19"},
		{LastWeek, "2026-03-09", "2026-03-16"},
		{LastMonth, "2026-02-01", "2026-03-01"},
		{LastYear, "2025-01-01", "2026-01-01"},
	}
	for _, tt := range tests {
		t.Run(string(tt.tf), func(t *testing.T) {
			t.Parallel()
			r := Resolve(tt.tf, wednesday, time.UTC)
			if !r.Start.Equal(date(tt.start)) || !r.End.Equal(date(tt.end)) {
				t.Errorf("Resolve(%s) = [%s, %s), want [%s, %s)", tt.tf,
					r.Start.Format(time.DateOnly), r.End.Format(time.DateOnly), tt.start, tt.end)
			}
			if r.Len() < 1 {
				t.Errorf("Resolve(%s) produced an empty range", tt.tf)
			}
		})
	}
}

func TestResolve_UsesAccountTimezone(t *testing.T) {
	t.Parallel()
	auckland := mustLoad(t, "Pacific/Auckland")

	// 23:30 UTC is already the next day in Auckland.
	now := time.Date(2026, 3, 18, 23, 30, 0, 0, time.UTC)
	r := Resolve(Last7Days, now, auckland)
	if got := r.Start.Format(time.DateOnly); got != "2026-03-12" {
		t.Errorf("start = %s, want 2026-03-12", got)
	}
	if r.Start.Location() != auckland {
		t.Errorf("range not in account timezone: %v", r.Start.Location())
	}
}

func TestDays_AcrossDST(t *testing.T) {
	t.Parallel()
	berlin := mustLoad(t, "Europe/Berlin")

	// Clocks go forward on 2026-03-29 in Berlin.
	r := Resolve(Last7Days, time.Date(2026, 4, 1, 12, 0, 0, 0, berlin), berlin)
	days := Days(r)
	if len(days) != 7 || r.Len() != 7 {
		t.Fatalf("got %d days (Len %d), want 7", len(days), r.Len())
	}
	want := []string{"2026-03-25", "2026-03-26", "2026-03-27", "2026-03-28", "2026-03-29", "2026-03-30", "2026-03-31"}
	for i, d := range days {
		if d.Format(time.DateOnly) != want[i] {
			t.Errorf("day %d = %s, want %s", i, d.Format(time.DateOnly), want[i])
		}
	}
}

func TestPeriodBoundsAndProgress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		p             Period
		current, prev string
		progress      float64
	}{
		{Week, "2026-03-16", "2026-03-09", 3.0 / 7.0},
		{Month, "2026-03-01", "2026-02-01", 18.0 / 31.0},
		{Year, "2026-01-01", "2025-01-01", 77.0 / 365.0},
	}
	for _, tt := range tests {
		cur, prev := PeriodBounds(tt.p, wednesday, time.UTC)
		if !cur.Equal(date(tt.current)) || !prev.Equal(date(tt.prev)) {
			t.Errorf("PeriodBounds(%s) = %s, %s", tt.p, cur.Format(time.DateOnly), prev.Format(time.DateOnly))
		}
		if got := Progress(tt.p, wednesday, time.UTC); got != tt.progress {
			t.Errorf("Progress(%s) = %v, want %v", tt.p, got, tt.progress)
		}
	}

	// The last day of a period is complete.
	sunday := time.Date(2026, 3, 22, 23, 0, 0, 0, time.UTC)
	if got := Progress(Week, sunday, time.UTC); got != 1 {
		t.Errorf("Progress(week, sunday) = %v, want 1", got)
	}
}

func TestLoadLocation(t *testing.T) {
	t.Parallel()

	if LoadLocation("") != time.UTC || LoadLocation("Not/AZone") != time.UTC {
		t.Error("expected UTC fallback")
	}
	if ValidLocation("Not/AZone") || ValidLocation("") {
		t.Error("invalid zones reported valid")
	}
	if !ValidLocation("UTC") {
		t.Error("UTC reported invalid")
	}
}

func TestFillDays(t *testing.T) {
	t.Parallel()

	r := Range{Start: date("2026-03-02"), End: date("2026-03-06")}
	points := []models.DailyPoint{
		{Day: date("2026-02-20"), Value: 90},
		{Day: date("2026-03-01"), Value: 100},
		{Day: date("2026-03-03"), Value: 104},
		{Day: date("2026-03-06"), Value: 999},
	}

	values := func(ps []models.DailyPoint) []int64 {
		out := make([]int64, len(ps))
		for i, p := range ps {
			out[i] = p.Value
		}
		return out
	}

	carried := FillDays(r, points, true)
	if diff := cmp.Diff([]int64{100, 104, 104, 104}, values(carried)); diff != "" {
		t.Errorf("carry mismatch (-want +got):\n%s", diff)
	}
	zeroed := FillDays(r, points, false)
	if diff := cmp.Diff([]int64{0, 104, 0, 0}, values(zeroed)); diff != "" {
		t.Errorf("zero-fill mismatch (-want +got):\n%s", diff)
	}
	if !carried[0].Day.Equal(date("2026-03-02")) {
		t.Errorf("first day = %v", carried[0].Day)
	}
}
