// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

/*
Package models defines the data structures shared by the store, the
services and the HTTP layer.

  - User, Account and AccountCredentials are the tenant records.
  - DailyAccountStats, DailyTootStats and Toot hold collected Mastodon data.
  - ChartResponse, TopToots, HashtagStat and HashtagTimeseries are the
    shapes returned by the stats endpoints.
  - APIResponse is the envelope around every JSON response, with the
    ErrCode constants used in its error object.

Timestamps are UTC. Calendar days are stored as UTC midnight of the day in
the account's timezone.
*/
package models
