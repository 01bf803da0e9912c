// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package mastodon

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Status is the subset of a Mastodon status entity Analytodon stores.
type Status struct {
	ID              string    `json:"id"`
	URI             string    `json:"uri"`
	URL             string    `json:"url"`
	Content         string    `json:"content"`
	Visibility      string    `json:"visibility"`
	Language        string    `json:"language"`
	CreatedAt       time.Time `json:"created_at"`
	RepliesCount    int64     `json:"replies_count"`
	ReblogsCount    int64     `json:"reblogs_count"`
	FavouritesCount int64     `json:"favourites_count"`
	Tags            []Tag     `json:"tags"`
	Reblog          *Status   `json:"reblog"`
}

// Tag is a hashtag attached to a status.
type Tag struct {
	Name string `json:"name"`
}

// IsReblog reports whether the status is a boost of another status.
func (s *Status) IsReblog() bool {
	return s.Reblog != nil
}

// TagNames returns the hashtag names without the leading '#'.
func (s *Status) TagNames() []string {
	names := make([]string, 0, len(s.Tags))
	for _, t := range s.Tags {
		names = append(names, t.Name)
	}
	return names
}

// ErrStopIteration may be returned from an IterateStatuses callback to end
// the walk early without an error.
var ErrStopIteration = errors.New("mastodon: stop iteration")

// AccountStatuses returns one page of an account's statuses, newest first.
// An empty maxID starts at the newest status. limit <= 0 uses the configured
// page size.
func (c *Client) AccountStatuses(ctx context.Context, server, token, accountID, maxID string, limit int) ([]Status, error) {
	if limit <= 0 {
		limit = c.pageSize
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if maxID != "" {
		q.Set("max_id", maxID)
	}

	var page []Status
	err := c.do(ctx, &request{
		endpoint: "account_statuses",
		method:   http.MethodGet,
		server:   server,
		path:     "/api/v1/accounts/" + url.PathEscape(accountID) + "/statuses",
		token:    token,
		query:    q,
	}, &page)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// IterateStatuses walks an account's statuses from newest to oldest and calls
// fn for every status created at or after since. The walk ends at the first
// older status, at an empty page, or when fn returns ErrStopIteration.
func (c *Client) IterateStatuses(ctx context.Context, server, token, accountID string, since time.Time, fn func(*Status) error) error {
	maxID := ""
	for {
		page, err := c.AccountStatuses(ctx, server, token, accountID, maxID, c.pageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}

		for i := range page {
			if page[i].CreatedAt.Before(since) {
				return nil
			}
			if err := fn(&page[i]); err != nil {
				if errors.Is(err, ErrStopIteration) {
					return nil
				}
				return err
			}
		}

		next := page[len(page)-1].ID
		if next == "" || next == maxID {
			return nil
		}
		maxID = next
	}
}
