// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/events"
	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/metrics"
	"github.com/blazer82/analytodon-sub001/internal/models"
	"github.com/blazer82/analytodon-sub001/internal/stats"
)

// Job names a batch job. The names double as CLI subcommands and metric
// labels.
type Job string

const (
	JobAccountStats Job = "fetch-account-stats"
	JobTootStats    Job = "fetch-toot-stats"
	JobWeeklyStats  Job = "send-weekly-stats"
	JobCleanup      Job = "cleanup"
)

// ErrUnknownJob is returned by ParseJob.
var ErrUnknownJob = errors.New("unknown job")

// Jobs lists every batch job.
var Jobs = []Job{JobAccountStats, JobTootStats, JobWeeklyStats, JobCleanup}

// ParseJob validates a job name.
func ParseJob(s string) (Job, error) {
	for _, j := range Jobs {
		if string(j) == s {
			return j, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownJob, s)
}

// Run executes one batch job and records its metrics.
func (c *Collector) Run(ctx context.Context, job Job) error {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	logger := logging.Ctx(ctx).With().Str("job", string(job)).Logger()

	start := time.Now()
	logger.Info().Msg("Job started")

	var err error
	switch job {
	case JobAccountStats, JobTootStats:
		err = c.FetchAll(ctx, job)
	case JobWeeklyStats:
		err = c.SendWeeklyStats(ctx)
	case JobCleanup:
		err = c.Cleanup(ctx)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownJob, job)
	}

	duration := time.Since(start)
	metrics.RecordJobRun(string(job), duration, err)
	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("Job finished with errors")
		return err
	}
	logger.Info().Dur("duration", duration).Msg("Job finished")
	return nil
}

// RunForAccount runs a per-account collection job for a single account.
func (c *Collector) RunForAccount(ctx context.Context, job Job, accountID string) error {
	account, err := c.store.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load account %s: %w", accountID, err)
	}
	switch job {
	case JobAccountStats:
		return c.FetchAccountStats(ctx, account)
	case JobTootStats:
		return c.FetchTootStats(ctx, account)
	default:
		return fmt.Errorf("%w: %q is not a per-account job", ErrUnknownJob, job)
	}
}

// FetchAll runs a per-account job over every active account with at most
// jobs.concurrency accounts in flight. Per-account failures are collected
// and returned together once every account was attempted.
func (c *Collector) FetchAll(ctx context.Context, job Job) error {
	var fetch func(context.Context, *models.Account) error
	switch job {
	case JobAccountStats:
		fetch = c.FetchAccountStats
	case JobTootStats:
		fetch = c.FetchTootStats
	default:
		return fmt.Errorf("%w: %q is not a per-account job", ErrUnknownJob, job)
	}

	accounts, err := c.store.ListActiveAccounts(ctx)
	if err != nil {
		return err
	}

	var (
		mu     sync.Mutex
		result *multierror.Error
	)
	var g errgroup.Group
	g.SetLimit(max(c.cfg.Concurrency, 1))

	for i := range accounts {
		account := &accounts[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if err := fetch(ctx, account); err != nil {
				metrics.JobAccountErrors.WithLabelValues(string(job)).Inc()
				logging.Ctx(ctx).Warn().Err(err).
					Str("job", string(job)).
					Str("account_id", account.ID).
					Msg("Account collection failed")
				mu.Lock()
				result = multierror.Append(result, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	logging.Ctx(ctx).Info().
		Str("job", string(job)).
		Int("accounts", len(accounts)).
		Int("failed", failedCount(result)).
		Msg("Collection pass complete")
	return result.ErrorOrNil()
}

func failedCount(err *multierror.Error) int {
	if err == nil {
		return 0
	}
	return len(err.Errors)
}

// SendWeeklyStats publishes one weekly mail per opted-in user with at least
// one active, fully set up account.
func (c *Collector) SendWeeklyStats(ctx context.Context) error {
	users, err := c.store.ListUsersForWeeklyStats(ctx)
	if err != nil {
		return err
	}

	var result *multierror.Error
	sent := 0
	for i := range users {
		user := &users[i]
		summaries, err := c.weeklySummaries(ctx, user)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("user %s: %w", user.ID, err))
			continue
		}
		if len(summaries) == 0 {
			continue
		}
		if err := c.publisher.Publish(ctx, events.TopicWeeklyStats, events.WeeklyStatsMail{
			UserID:   user.ID,
			Email:    user.Email,
			Accounts: summaries,
		}); err != nil {
			result = multierror.Append(result, fmt.Errorf("user %s: %w", user.ID, err))
			continue
		}
		sent++
	}

	logging.Ctx(ctx).Info().Int("users", len(users)).Int("sent", sent).Msg("Weekly stats queued")
	return result.ErrorOrNil()
}

func (c *Collector) weeklySummaries(ctx context.Context, user *models.User) ([]stats.AccountSummary, error) {
	accounts, err := c.store.ListAccountsByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	var out []stats.AccountSummary
	for i := range accounts {
		a := &accounts[i]
		if !a.IsActive || !a.SetupComplete {
			continue
		}
		summary, err := c.summarizer.WeeklySummary(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", a.ID, err)
		}
		out = append(out, *summary)
	}
	return out, nil
}

// CleanupReport counts what a Cleanup pass did.
type CleanupReport struct {
	StaleAccountsDeleted int
	NoticesSent          int
	UsersDeleted         int
}

// Cleanup removes abandoned setups, warns inactive users and deletes users
// who stayed inactive through the grace period.
func (c *Collector) Cleanup(ctx context.Context) error {
	_, err := c.cleanup(ctx)
	return err
}

func (c *Collector) cleanup(ctx context.Context) (*CleanupReport, error) {
	now := c.now()
	report := &CleanupReport{}
	var result *multierror.Error

	stale, err := c.store.ListStaleSetupAccounts(ctx, now.Add(-c.cfg.StaleSetupAfter))
	if err != nil {
		return nil, err
	}
	for i := range stale {
		if err := c.store.DeleteAccount(ctx, stale[i].ID); err != nil && !errors.Is(err, database.ErrNotFound) {
			result = multierror.Append(result, fmt.Errorf("delete stale account %s: %w", stale[i].ID, err))
			continue
		}
		c.invalidate(stale[i].ID)
		report.StaleAccountsDeleted++
	}

	inactive, err := c.store.ListInactiveUsers(ctx, now.Add(-c.cfg.InactiveAfter))
	if err != nil {
		return nil, multierror.Append(result, err)
	}
	for i := range inactive {
		u := &inactive[i]
		if err := c.publisher.Publish(ctx, events.TopicDeletionNotice, events.DeletionNoticeMail{
			UserID:      u.ID,
			Email:       u.Email,
			DeleteAfter: now.Add(c.cfg.DeletionGrace),
		}); err != nil {
			result = multierror.Append(result, fmt.Errorf("notify user %s: %w", u.ID, err))
			continue
		}
		if err := c.store.MarkDeletionNoticeSent(ctx, u.ID, now); err != nil {
			result = multierror.Append(result, fmt.Errorf("mark user %s: %w", u.ID, err))
			continue
		}
		report.NoticesSent++
	}

	pending, err := c.store.ListUsersPendingDeletion(ctx, now.Add(-c.cfg.DeletionGrace))
	if err != nil {
		return nil, multierror.Append(result, err)
	}
	for i := range pending {
		if err := c.store.DeleteUser(ctx, pending[i].ID); err != nil && !errors.Is(err, database.ErrNotFound) {
			result = multierror.Append(result, fmt.Errorf("delete user %s: %w", pending[i].ID, err))
			continue
		}
		report.UsersDeleted++
	}

	logging.Ctx(ctx).Info().
		Int("stale_accounts_deleted", report.StaleAccountsDeleted).
		Int("notices_sent", report.NoticesSent).
		Int("users_deleted", report.UsersDeleted).
		Msg("Cleanup complete")
	return report, result.ErrorOrNil()
}

// WeeklyPeriod is the ISO week key the weekly mail is deduplicated on.
func WeeklyPeriod(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// RunWeeklyIfDue sends the weekly mail on Mondays (UTC), at most once per
// ISO week. The week is recorded even when some mails failed.
func (c *Collector) RunWeeklyIfDue(ctx context.Context) (bool, error) {
	now := c.now()
	if now.UTC().Weekday() != time.Monday {
		return false, nil
	}
	period := WeeklyPeriod(now)
	last, err := c.store.LastJobPeriod(ctx, string(JobWeeklyStats))
	if err != nil {
		return false, err
	}
	if last == period {
		return false, nil
	}

	runErr := c.Run(ctx, JobWeeklyStats)
	if err := c.store.RecordJobPeriod(ctx, string(JobWeeklyStats), period, now); err != nil {
		return true, errors.Join(runErr, err)
	}
	return true, runErr
}

// HandleAccountConnected consumes account.connected events.
func (c *Collector) HandleAccountConnected(ctx context.Context, msg *message.Message) error {
	var ev events.AccountConnected
	if err := events.Decode(msg, &ev); err != nil {
		// Malformed payloads are not retried.
		logging.Ctx(ctx).Error().Err(err).Msg("Dropping malformed account.connected event")
		return nil
	}
	err := c.FetchInitialStats(ctx, ev.AccountID)
	if errors.Is(err, database.ErrNotFound) || errors.Is(err, ErrNotConnected) {
		logging.Ctx(ctx).Warn().Err(err).Str("account_id", ev.AccountID).Msg("Skipping initial stats")
		return nil
	}
	return err
}
