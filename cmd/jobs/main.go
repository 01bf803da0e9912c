// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Command jobs runs one collection or maintenance job and exits. It opens
// the DuckDB file directly, and DuckDB allows one writing process per file,
// so run it while the API server is stopped (maintenance windows, setups
// without a long-running server). With the server up, trigger jobs through
// POST /api/v1/admin/jobs/{job} instead.
//
//	jobs fetch-account-stats [--account ID]
//	jobs fetch-toot-stats [--account ID]
//	jobs fetch-initial-stats --account ID
//	jobs send-weekly-stats
//	jobs cleanup
//	jobs migrate
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/blazer82/analytodon-sub001/internal/collector"
	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logging.Error().Err(err).Msg("Job failed")
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "jobs",
		Short:         "Run Analytodon collection and maintenance jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newFetchCommand(collector.JobAccountStats, "Fetch follower and post counts for active accounts"),
		newFetchCommand(collector.JobTootStats, "Fetch recent posts with their reply, boost and favorite counts"),
		newInitialStatsCommand(),
		newJobCommand(collector.JobWeeklyStats, "Mail last week's summary to subscribed users"),
		newJobCommand(collector.JobCleanup, "Delete stale setups, warn inactive users and delete users past the grace period"),
		newMigrateCommand(),
	)
	return root
}

// loadConfig reads the configuration and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	return cfg, nil
}

// withRuntime opens a runtime, calls fn and closes the runtime. An error
// from fn wins over a close error.
func withRuntime(ctx context.Context, fn func(context.Context, *runtime) error) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := openRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); err == nil {
			err = closeErr
		}
	}()

	return fn(ctx, rt)
}

func newFetchCommand(job collector.Job, short string) *cobra.Command {
	var accountID string
	cmd := &cobra.Command{
		Use:   string(job),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				if accountID != "" {
					return rt.collector.RunForAccount(ctx, job, accountID)
				}
				return rt.collector.Run(ctx, job)
			})
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "only process this account ID")
	return cmd
}

func newInitialStatsCommand() *cobra.Command {
	var accountID string
	cmd := &cobra.Command{
		Use:   "fetch-initial-stats",
		Short: "Fetch the first stats of a freshly connected account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				return rt.collector.FetchInitialStats(ctx, accountID)
			})
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "account ID to backfill")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func newJobCommand(job collector.Job, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(job),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
				return rt.collector.Run(ctx, job)
			})
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Opening the database applies pending migrations.
			db, err := database.New(&cfg.Database)
			if err != nil {
				return explainOpenError(err)
			}
			defer db.Close()

			version, err := db.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			logging.Info().Int("schema_version", version).Msg("Database schema is up to date")
			return nil
		},
	}
}
