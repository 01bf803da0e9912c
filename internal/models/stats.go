// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package models

import "time"

// DailyAccountStats is one snapshot of profile counters per local day.
type DailyAccountStats struct {
	AccountID      string    `json:"accountId"`
	Day            time.Time `json:"day"`
	FollowersCount int64     `json:"followersCount"`
	FollowingCount int64     `json:"followingCount"`
	StatusesCount  int64     `json:"statusesCount"`
}

// DailyTootStats holds the cumulative engagement totals across all
// collected toots at the end of a local day.
type DailyTootStats struct {
	AccountID       string    `json:"accountId"`
	Day             time.Time `json:"day"`
	RepliesCount    int64     `json:"repliesCount"`
	BoostsCount     int64     `json:"boostsCount"`
	FavouritesCount int64     `json:"favouritesCount"`
}

// Toot is a collected status with its engagement counters.
type Toot struct {
	AccountID       string    `json:"-"`
	URI             string    `json:"uri"`
	URL             string    `json:"url"`
	Content         string    `json:"content"`
	Visibility      string    `json:"visibility,omitempty"`
	Language        string    `json:"language,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	RepliesCount    int64     `json:"repliesCount"`
	BoostsCount     int64     `json:"boostsCount"`
	FavouritesCount int64     `json:"favouritesCount"`
	CreatedAt       time.Time `json:"createdAt"`
	FetchedAt       time.Time `json:"-"`
}

// Engagement is the sum of replies, boosts and favourites.
func (t *Toot) Engagement() int64 {
	return t.RepliesCount + t.BoostsCount + t.FavouritesCount
}

// DailyPoint is one chart value for a local day.
type DailyPoint struct {
	Day   time.Time `json:"day"`
	Value int64     `json:"value"`
}

// ChartResponse is the payload of the */chart endpoints.
type ChartResponse struct {
	Timeframe string       `json:"timeframe"`
	Data      []DailyPoint `json:"data"`
	Total     int64        `json:"total"`
}

// TopToots groups the ranked toot lists for a timeframe.
type TopToots struct {
	Top            []Toot `json:"top"`
	TopByReplies   []Toot `json:"topByReplies"`
	TopByBoosts    []Toot `json:"topByBoosts"`
	TopByFavorites []Toot `json:"topByFavorites"`
}

// HashtagStat aggregates engagement of toots using one hashtag.
type HashtagStat struct {
	Hashtag           string  `json:"hashtag"`
	TootCount         int64   `json:"tootCount"`
	RepliesCount      int64   `json:"repliesCount"`
	BoostsCount       int64   `json:"boostsCount"`
	FavouritesCount   int64   `json:"favouritesCount"`
	TotalEngagement   int64   `json:"totalEngagement"`
	AverageEngagement float64 `json:"averageEngagement"`
}

// HashtagTimeseries is per-day usage of one hashtag.
type HashtagTimeseries struct {
	Hashtag string       `json:"hashtag"`
	Data    []DailyPoint `json:"data"`
}
