// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

/*
Package cache holds stats API responses in memory for a short TTL.

Responses are keyed per account with AccountKey(accountID, path, query), so
the collector can drop everything it just made stale:

	key := cache.AccountKey(account.ID, r.URL.Path, r.URL.RawQuery)
	if v, ok := c.Get(key); ok {
	    return v
	}
	...
	c.Set(key, resp)

	// after new stats land
	c.InvalidateAccount(account.ID)

Hits, misses and the entry count are exported as Prometheus metrics.
*/
package cache
