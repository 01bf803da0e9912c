// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package stats

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

// fakeStore serves canned rows and filters them like the database does.
type fakeStore struct {
	accountStats []models.DailyAccountStats
	tootStats    []models.DailyTootStats
	toots        map[string][]models.Toot
	hashtags     []models.HashtagStat
	uses         []database.HashtagUse

	lastHashtagQuery database.HashtagQuery
	topTootCalls     []string
}

func (f *fakeStore) GetDailyAccountStats(_ context.Context, _ string, from, to time.Time) ([]models.DailyAccountStats, error) {
	var out []models.DailyAccountStats
	for _, s := range f.accountStats {
		if !s.Day.Before(from) && s.Day.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetLatestAccountStatsBefore(_ context.Context, _ string, before time.Time) (*models.DailyAccountStats, error) {
	var best *models.DailyAccountStats
	for i := range f.accountStats {
		if f.accountStats[i].Day.Before(before) {
			best = &f.accountStats[i]
		}
	}
	if best == nil {
		return nil, database.ErrNotFound
	}
	return best, nil
}

func (f *fakeStore) GetDailyTootStats(_ context.Context, _ string, from, to time.Time) ([]models.DailyTootStats, error) {
	var out []models.DailyTootStats
	for _, s := range f.tootStats {
		if !s.Day.Before(from) && s.Day.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) GetLatestTootStatsBefore(_ context.Context, _ string, before time.Time) (*models.DailyTootStats, error) {
	var best *models.DailyTootStats
	for i := range f.tootStats {
		if f.tootStats[i].Day.Before(before) {
			best = &f.tootStats[i]
		}
	}
	if best == nil {
		return nil, database.ErrNotFound
	}
	return best, nil
}

func (f *fakeStore) GetTopToots(_ context.Context, _ string, _, _ time.Time, orderBy string, _ int) ([]models.Toot, error) {
	f.topTootCalls = append(f.topTootCalls, orderBy)
	return f.toots[orderBy], nil
}

func (f *fakeStore) GetHashtagStats(_ context.Context, q database.HashtagQuery) ([]models.HashtagStat, error) {
	f.lastHashtagQuery = q
	return f.hashtags, nil
}

func (f *fakeStore) GetHashtagUses(_ context.Context, _ string, _, _ time.Time, _ []string) ([]database.HashtagUse, error) {
	return f.uses, nil
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func values(points []models.DailyPoint) []int64 {
	out := make([]int64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// newTestService pins the clock to Wednesday 2026-03-18 10:00 UTC.
func newTestService(store *fakeStore) *Service {
	s := NewService(store)
	s.SetClock(func() time.Time { return time.Date(2026, 3, 18, 10, 0, 0, 0, time.UTC) })
	return s
}

var utcAccount = &models.Account{ID: "a1", AccountName: "@alice@mastodon.social", Timezone: "UTC"}

func TestParseMetric(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Metric{"followers": Followers, "Boosts": Boosts, "favourites": Favorites, "favorites": Favorites} {
		if got, err := ParseMetric(in); err != nil || got != want {
			t.Errorf("ParseMetric(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMetric("likes"); !errors.Is(err, ErrInvalidMetric) {
		t.Errorf("ParseMetric(likes) error = %v", err)
	}
}

func TestChart_Followers(t *testing.T) {
	t.Parallel()

	store := &fakeStore{accountStats: []models.DailyAccountStats{
		{Day: date("2026-03-09"), FollowersCount: 100},
		{Day: date("2026-03-12"), FollowersCount: 103},
		{Day: date("2026-03-14"), FollowersCount: 101},
		{Day: date("2026-03-17"), FollowersCount: 110},
	}}
	svc := newTestService(store)

	chart, err := svc.Chart(context.Background(), utcAccount, Followers, timeframe.Last7Days)
	if err != nil {
		t.Fatalf("Chart() error = %v", err)
	}
	// Range 03-11..03-17, seeded by 03-09.
	want := []int64{100, 103, 103, 101, 101, 101, 110}
	if diff := cmp.Diff(want, values(chart.Data)); diff != "" {
		t.Errorf("followers mismatch (-want +got):\n%s", diff)
	}
	if chart.Total != 10 {
		t.Errorf("Total = %d, want 10", chart.Total)
	}
	if chart.Timeframe != "last7days" {
		t.Errorf("Timeframe = %q", chart.Timeframe)
	}
}

func TestChart_DailyIncrease(t *testing.T) {
	t.Parallel()

	store := &fakeStore{tootStats: []models.DailyTootStats{
		{Day: date("2026-03-10"), BoostsCount: 50},
		{Day: date("2026-03-11"), BoostsCount: 53},
		{Day: date("2026-03-13"), BoostsCount: 60},
		{Day: date("2026-03-14"), BoostsCount: 58}, // deleted toot
		{Day: date("2026-03-15"), BoostsCount: 61},
	}}
	svc := newTestService(store)

	chart, err := svc.Chart(context.Background(), utcAccount, Boosts, timeframe.Last7Days)
	if err != nil {
		t.Fatalf("Chart() error = %v", err)
	}
	want := []int64{3, 0, 7, 0, 3, 0, 0}
	if diff := cmp.Diff(want, values(chart.Data)); diff != "" {
		t.Errorf("boosts mismatch (-want +got):\n%s", diff)
	}
	if chart.Total != 13 {
		t.Errorf("Total = %d, want 13", chart.Total)
	}
}

func TestChart_NewAccountHasNoSpike(t *testing.T) {
	t.Parallel()

	store := &fakeStore{tootStats: []models.DailyTootStats{
		{Day: date("2026-03-15"), RepliesCount: 500},
		{Day: date("2026-03-16"), RepliesCount: 502},
	}}
	svc := newTestService(store)

	chart, err := svc.Chart(context.Background(), utcAccount, Replies, timeframe.Last7Days)
	if err != nil {
		t.Fatal(err)
	}
	want := []int64{0, 0, 0, 0, 0, 2, 0}
	if diff := cmp.Diff(want, values(chart.Data)); diff != "" {
		t.Errorf("replies mismatch (-want +got):\n%s", diff)
	}
}

func TestKPI(t *testing.T) {
	t.Parallel()

	store := &fakeStore{accountStats: []models.DailyAccountStats{
		{Day: date("2026-03-08"), FollowersCount: 100},
		{Day: date("2026-03-10"), FollowersCount: 110},
		{Day: date("2026-03-15"), FollowersCount: 120},
		{Day: date("2026-03-18"), FollowersCount: 129},
	}}
	svc := newTestService(store)

	k, err := svc.KPI(context.Background(), utcAccount, Followers, timeframe.Week)
	if err != nil {
		t.Fatalf("KPI() error = %v", err)
	}
	if k.CurrentPeriod == nil || *k.CurrentPeriod != 9 || k.PreviousPeriod == nil || *k.PreviousPeriod != 20 {
		t.Errorf("KPI() = %+v", k)
	}
	if k.Trend == nil || *k.Trend != 0.05 {
		t.Errorf("Trend = %v, want 0.05", k.Trend)
	}
}

func TestWeeklySummary(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		accountStats: []models.DailyAccountStats{
			{Day: date("2026-03-01"), FollowersCount: 80},
			{Day: date("2026-03-08"), FollowersCount: 100},
			{Day: date("2026-03-15"), FollowersCount: 130},
			{Day: date("2026-03-18"), FollowersCount: 135},
		},
		tootStats: []models.DailyTootStats{
			{Day: date("2026-03-08"), FavouritesCount: 10},
			{Day: date("2026-03-15"), FavouritesCount: 25},
		},
	}
	svc := newTestService(store)

	sum, err := svc.WeeklySummary(context.Background(), utcAccount)
	if err != nil {
		t.Fatalf("WeeklySummary() error = %v", err)
	}
	if sum.AccountName != "@alice@mastodon.social" {
		t.Errorf("AccountName = %q", sum.AccountName)
	}
	f := sum.Followers
	if f.CurrentPeriod == nil || *f.CurrentPeriod != 30 || f.PreviousPeriod == nil || *f.PreviousPeriod != 20 {
		t.Errorf("followers = %+v", f)
	}
	if f.CurrentPeriodProgress != 1 || f.Trend == nil || *f.Trend != 0.5 {
		t.Errorf("followers progress/trend = %v / %v", f.CurrentPeriodProgress, f.Trend)
	}
	if sum.Favorites.CurrentPeriod == nil || *sum.Favorites.CurrentPeriod != 15 {
		t.Errorf("favorites = %+v", sum.Favorites)
	}
}

func TestTopToots(t *testing.T) {
	t.Parallel()

	store := &fakeStore{toots: map[string][]models.Toot{
		database.OrderByEngagement: {{URI: "a"}},
		database.OrderByReplies:    {{URI: "b"}},
	}}
	svc := newTestService(store)

	top, err := svc.TopToots(context.Background(), utcAccount, timeframe.ThisMonth, 0)
	if err != nil {
		t.Fatalf("TopToots() error = %v", err)
	}
	if len(top.Top) != 1 || top.Top[0].URI != "a" || top.TopByReplies[0].URI != "b" {
		t.Errorf("TopToots() = %+v", top)
	}
	if top.TopByBoosts == nil || len(top.TopByBoosts) != 0 {
		t.Errorf("empty list should be non-nil: %#v", top.TopByBoosts)
	}
	if len(store.topTootCalls) != 4 {
		t.Errorf("expected 4 queries, got %v", store.topTootCalls)
	}
}

func TestHashtags_QueryParameters(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.MostEffectiveHashtags(ctx, utcAccount, timeframe.LastMonth, 500); err != nil {
		t.Fatal(err)
	}
	q := store.lastHashtagQuery
	if q.OrderBy != database.HashtagOrderAverage || q.MinToots != 2 || q.Limit != MaxLimit {
		t.Errorf("most effective query = %+v", q)
	}
	if !q.From.Equal(date("2026-02-01")) || !q.To.Equal(date("2026-03-01")) {
		t.Errorf("range = %v..%v", q.From, q.To)
	}

	if _, err := svc.HashtagEngagement(ctx, utcAccount, timeframe.LastMonth, 0); err != nil {
		t.Fatal(err)
	}
	if store.lastHashtagQuery.OrderBy != database.HashtagOrderEngagement || store.lastHashtagQuery.Limit != DefaultLimit {
		t.Errorf("engagement query = %+v", store.lastHashtagQuery)
	}
}

func TestHashtagsOverTime_BucketsInAccountTimezone(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	account := &models.Account{ID: "a1", Timezone: tokyo.String()}

	store := &fakeStore{
		hashtags: []models.HashtagStat{{Hashtag: "go", TootCount: 3}},
		uses: []database.HashtagUse{
			// 2026-03-12 20:00 UTC is 03-13 in Tokyo.
			{Hashtag: "go", CreatedAt: time.Date(2026, 3, 12, 20, 0, 0, 0, time.UTC)},
			{Hashtag: "go", CreatedAt: time.Date(2026, 3, 13, 1, 0, 0, 0, time.UTC)},
			{Hashtag: "go", CreatedAt: time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC)},
		},
	}
	svc := newTestService(store)

	series, err := svc.HashtagsOverTime(context.Background(), account, timeframe.Last7Days, 5)
	if err != nil {
		t.Fatalf("HashtagsOverTime() error = %v", err)
	}
	if len(series) != 1 || series[0].Hashtag != "go" {
		t.Fatalf("HashtagsOverTime() = %+v", series)
	}
	// Range 03-11..03-17 in Tokyo.
	want := []int64{0, 0, 2, 0, 1, 0, 0}
	if diff := cmp.Diff(want, values(series[0].Data)); diff != "" {
		t.Errorf("usage mismatch (-want +got):\n%s", diff)
	}
}

func TestExports(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		accountStats: []models.DailyAccountStats{{Day: date("2026-03-10"), FollowersCount: 7}},
		hashtags:     []models.HashtagStat{{Hashtag: "fediverse", TootCount: 1}},
		toots:        map[string][]models.Toot{database.OrderByEngagement: {{URL: "https://x/1", Content: "<p>hi</p>", CreatedAt: date("2026-03-12")}}},
	}
	svc := newTestService(store)
	ctx := context.Background()

	var buf bytes.Buffer
	if err := svc.ExportCSV(ctx, utcAccount, Followers, timeframe.Last7Days, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "Day,Followers\n2026-03-11,7\n") {
		t.Errorf("ExportCSV() = %q", buf.String())
	}

	buf.Reset()
	if err := svc.ExportHashtagsCSV(ctx, utcAccount, timeframe.Last7Days, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "#fediverse,1") {
		t.Errorf("ExportHashtagsCSV() = %q", buf.String())
	}

	buf.Reset()
	if err := svc.ExportTopTootsCSV(ctx, utcAccount, timeframe.Last7Days, &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "2026-03-12,https://x/1,hi,") {
		t.Errorf("ExportTopTootsCSV() = %q", buf.String())
	}
}

func TestClampLimit(t *testing.T) {
	t.Parallel()
	for in, want := range map[int]int{-1: DefaultLimit, 0: DefaultLimit, 5: 5, 100: 100, 101: MaxLimit} {
		if got := ClampLimit(in); got != want {
			t.Errorf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
