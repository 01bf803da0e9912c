// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Package export renders statistics as CSV downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/blazer82/analytodon-sub001/internal/models"
)

const dayLayout = "2006-01-02"

// ContentType is sent with every CSV download.
const ContentType = "text/csv; charset=utf-8"

// escapeCell neutralizes values a spreadsheet would evaluate as a formula.
func escapeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func writeAll(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		for i := range row {
			row[i] = escapeCell(row[i])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteDailyCSV writes "Day,<header>" followed by one row per point.
func WriteDailyCSV(w io.Writer, header string, points []models.DailyPoint) error {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{p.Day.Format(dayLayout), strconv.FormatInt(p.Value, 10)})
	}
	return writeAll(w, []string{"Day", header}, rows)
}

// WriteHashtagCSV writes hashtag aggregates.
func WriteHashtagCSV(w io.Writer, stats []models.HashtagStat) error {
	rows := make([][]string, 0, len(stats))
	for _, h := range stats {
		rows = append(rows, []string{
			"#" + h.Hashtag,
			strconv.FormatInt(h.TootCount, 10),
			strconv.FormatInt(h.RepliesCount, 10),
			strconv.FormatInt(h.BoostsCount, 10),
			strconv.FormatInt(h.FavouritesCount, 10),
			strconv.FormatInt(h.TotalEngagement, 10),
			strconv.FormatFloat(h.AverageEngagement, 'f', 2, 64),
		})
	}
	return writeAll(w, []string{"Hashtag", "Toots", "Replies", "Boosts", "Favorites", "Total Engagement", "Average Engagement"}, rows)
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// plainText strips markup from toot content for spreadsheet use.
func plainText(html string) string {
	s := strings.ReplaceAll(html, "</p><p>", "\n\n")
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, "<br />", "\n")
	s = tagPattern.ReplaceAllString(s, "")
	r := strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", "\"", "&#39;", "'")
	return strings.TrimSpace(r.Replace(s))
}

// WriteTopTootsCSV writes toots with their counters.
func WriteTopTootsCSV(w io.Writer, toots []models.Toot) error {
	rows := make([][]string, 0, len(toots))
	for i := range toots {
		t := &toots[i]
		rows = append(rows, []string{
			t.CreatedAt.Format(dayLayout),
			t.URL,
			plainText(t.Content),
			strconv.FormatInt(t.RepliesCount, 10),
			strconv.FormatInt(t.BoostsCount, 10),
			strconv.FormatInt(t.FavouritesCount, 10),
			strconv.FormatInt(t.Engagement(), 10),
		})
	}
	return writeAll(w, []string{"Date", "URL", "Content", "Replies", "Boosts", "Favorites", "Engagement"}, rows)
}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

func slug(s string) string {
	s = unsafeFilename.ReplaceAllString(strings.ToLower(strings.TrimPrefix(s, "@")), "-")
	return strings.Trim(s, "-.")
}

// Filename builds "analytodon-[<account>-]<metric>-<timeframe>.csv" with
// every part reduced to filename-safe characters.
func Filename(accountName, metric, timeframe string) string {
	parts := []string{"analytodon"}
	for _, p := range []string{accountName, metric, timeframe} {
		if s := slug(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "-") + ".csv"
}
