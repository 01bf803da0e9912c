// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

/*
Package collector pulls account and toot statistics from Mastodon into the
database and runs the periodic maintenance jobs.

Per-account operations:
  - FetchAccountStats: one verify_credentials call, stored as today's
    follower/following/status snapshot in the account's timezone
  - FetchTootStats: walks the account's own statuses inside the lookback
    window, upserts them and stores today's cumulative engagement totals
  - FetchInitialStats: both of the above right after an account connects,
    then marks setup complete and mails the owner

Batch jobs (see Job) fan out over all active accounts with a bounded
errgroup; one failing account never stops the rest. The Scheduler runs
them on their configured intervals.
*/
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/events"
	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/mastodon"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/stats"
	"github.com/blazer82/analytodon-sub001/internal/timeframe"
)

// ErrNotConnected is returned for accounts without an access token.
var ErrNotConnected = errors.New("account is not connected")

// tootBatchSize bounds how many toots are buffered before an upsert.
const tootBatchSize = 200

// Store is the slice of the database the collector needs.
type Store interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	ListActiveAccounts(ctx context.Context) ([]models.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID string) ([]models.Account, error)
	ListStaleSetupAccounts(ctx context.Context, before time.Time) ([]models.Account, error)
	SetAccountActive(ctx context.Context, id string, active bool) error
	MarkSetupComplete(ctx context.Context, id string) error
	DeleteAccount(ctx context.Context, id string) error
	GetCredentials(ctx context.Context, accountID string) (*models.AccountCredentials, error)

	UpsertDailyAccountStats(ctx context.Context, s *models.DailyAccountStats) error
	UpsertDailyTootStats(ctx context.Context, s *models.DailyTootStats) error
	UpsertToots(ctx context.Context, toots []models.Toot) (int, error)
	ComputeTootTotals(ctx context.Context, accountID string) (*models.DailyTootStats, error)

	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsersForWeeklyStats(ctx context.Context) ([]models.User, error)
	ListInactiveUsers(ctx context.Context, before time.Time) ([]models.User, error)
	ListUsersPendingDeletion(ctx context.Context, noticeBefore time.Time) ([]models.User, error)
	MarkDeletionNoticeSent(ctx context.Context, id string, at time.Time) error
	DeleteUser(ctx context.Context, id string) error

	LastJobPeriod(ctx context.Context, job string) (string, error)
	RecordJobPeriod(ctx context.Context, job, period string, at time.Time) error
}

// MastodonClient is the part of mastodon.Client the collector uses.
type MastodonClient interface {
	VerifyCredentials(ctx context.Context, server, token string) (*mastodon.Account, error)
	IterateStatuses(ctx context.Context, server, token, accountID string, since time.Time, fn func(*mastodon.Status) error) error
}

// Summarizer builds the weekly mail sections.
type Summarizer interface {
	WeeklySummary(ctx context.Context, account *models.Account) (*stats.AccountSummary, error)
}

// Invalidator drops cached responses of an account after new data lands.
type Invalidator interface {
	InvalidateAccount(accountID string) int
}

// Collector runs collection and maintenance jobs.
type Collector struct {
	store      Store
	client     MastodonClient
	summarizer Summarizer
	publisher  events.Publisher
	cache      Invalidator
	cfg        config.JobsConfig
	now        func() time.Time
}

// New wires a collector. cache may be nil.
func New(store Store, client MastodonClient, summarizer Summarizer, publisher events.Publisher, cache Invalidator, cfg *config.JobsConfig) *Collector {
	return &Collector{
		store:      store,
		client:     client,
		summarizer: summarizer,
		publisher:  publisher,
		cache:      cache,
		cfg:        *cfg,
		now:        time.Now,
	}
}

func (c *Collector) credentials(ctx context.Context, account *models.Account) (string, error) {
	creds, err := c.store.GetCredentials(ctx, account.ID)
	if errors.Is(err, database.ErrNotFound) {
		return "", ErrNotConnected
	}
	if err != nil {
		return "", err
	}
	if creds.AccessToken == "" {
		return "", ErrNotConnected
	}
	return creds.AccessToken, nil
}

// today is the current calendar day in the account's timezone.
func (c *Collector) today(account *models.Account) time.Time {
	return database.DayOf(c.now(), timeframe.LoadLocation(account.Timezone))
}

// handleUpstreamError deactivates accounts whose token was revoked.
func (c *Collector) handleUpstreamError(ctx context.Context, account *models.Account, err error) error {
	if !errors.Is(err, mastodon.ErrUnauthorized) {
		return err
	}
	logging.Ctx(ctx).Warn().
		Str("account_id", account.ID).
		Str("account_name", account.AccountName).
		Msg("Access token rejected, deactivating account")
	if dErr := c.store.SetAccountActive(ctx, account.ID, false); dErr != nil {
		return errors.Join(err, dErr)
	}
	account.IsActive = false
	return err
}

func (c *Collector) invalidate(accountID string) {
	if c.cache != nil {
		c.cache.InvalidateAccount(accountID)
	}
}

// FetchAccountStats stores today's profile counters.
func (c *Collector) FetchAccountStats(ctx context.Context, account *models.Account) error {
	token, err := c.credentials(ctx, account)
	if err != nil {
		return err
	}

	profile, err := c.client.VerifyCredentials(ctx, account.ServerURL, token)
	if err != nil {
		return fmt.Errorf("account %s: %w", account.ID, c.handleUpstreamError(ctx, account, err))
	}

	snapshot := &models.DailyAccountStats{
		AccountID:      account.ID,
		Day:            c.today(account),
		FollowersCount: profile.FollowersCount,
		FollowingCount: profile.FollowingCount,
		StatusesCount:  profile.StatusesCount,
	}
	if err := c.store.UpsertDailyAccountStats(ctx, snapshot); err != nil {
		return err
	}
	c.invalidate(account.ID)

	logging.Ctx(ctx).Debug().
		Str("account_id", account.ID).
		Int64("followers", snapshot.FollowersCount).
		Msg("Account stats collected")
	return nil
}

// FetchTootStats refreshes the account's toots inside the lookback window
// and stores today's engagement totals. Boosts of other people's statuses
// are skipped.
func (c *Collector) FetchTootStats(ctx context.Context, account *models.Account) error {
	token, err := c.credentials(ctx, account)
	if err != nil {
		return err
	}
	if account.MastodonAccountID == "" {
		return fmt.Errorf("account %s: %w", account.ID, ErrNotConnected)
	}

	now := c.now()
	since := now.Add(-c.cfg.TootLookback)
	batch := make([]models.Toot, 0, tootBatchSize)
	stored := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.store.UpsertToots(ctx, batch)
		if err != nil {
			return err
		}
		stored += n
		batch = batch[:0]
		return nil
	}

	err = c.client.IterateStatuses(ctx, account.ServerURL, token, account.MastodonAccountID, since, func(s *mastodon.Status) error {
		if s.IsReblog() {
			return nil
		}
		batch = append(batch, tootFromStatus(account.ID, s, now))
		if len(batch) >= tootBatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("account %s: %w", account.ID, c.handleUpstreamError(ctx, account, err))
	}
	if err := flush(); err != nil {
		return err
	}

	totals, err := c.store.ComputeTootTotals(ctx, account.ID)
	if err != nil {
		return err
	}
	totals.Day = c.today(account)
	if err := c.store.UpsertDailyTootStats(ctx, totals); err != nil {
		return err
	}
	c.invalidate(account.ID)

	logging.Ctx(ctx).Debug().
		Str("account_id", account.ID).
		Int("toots", stored).
		Int64("replies", totals.RepliesCount).
		Int64("boosts", totals.BoostsCount).
		Int64("favourites", totals.FavouritesCount).
		Msg("Toot stats collected")
	return nil
}

func tootFromStatus(accountID string, s *mastodon.Status, fetchedAt time.Time) models.Toot {
	return models.Toot{
		AccountID:       accountID,
		URI:             s.URI,
		URL:             s.URL,
		Content:         s.Content,
		Visibility:      s.Visibility,
		Language:        s.Language,
		Tags:            s.TagNames(),
		RepliesCount:    s.RepliesCount,
		BoostsCount:     s.ReblogsCount,
		FavouritesCount: s.FavouritesCount,
		CreatedAt:       s.CreatedAt,
		FetchedAt:       fetchedAt,
	}
}

// FetchInitialStats collects everything for a freshly connected account,
// marks its setup complete and tells the owner.
func (c *Collector) FetchInitialStats(ctx context.Context, accountID string) error {
	account, err := c.store.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account %s: %w", accountID, err)
	}
	if err := c.FetchAccountStats(ctx, account); err != nil {
		return err
	}
	if err := c.FetchTootStats(ctx, account); err != nil {
		return err
	}
	if err := c.store.MarkSetupComplete(ctx, account.ID); err != nil {
		return err
	}

	owner, err := c.store.GetUserByID(ctx, account.OwnerID)
	if err != nil {
		return fmt.Errorf("load owner of %s: %w", account.ID, err)
	}
	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, events.TopicFirstStats, events.FirstStatsMail{
			UserID:      owner.ID,
			Email:       owner.Email,
			AccountID:   account.ID,
			AccountName: account.AccountName,
		}); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("account_id", account.ID).Msg("Failed to publish first stats mail")
		}
	}

	logging.Ctx(ctx).Info().Str("account_id", account.ID).Msg("Initial stats collected")
	return nil
}
