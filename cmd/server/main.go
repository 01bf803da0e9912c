// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

// Command server runs the Analytodon REST API together with the stats
// scheduler and the event handlers that send mails.
//
// Configuration comes from config.yaml and environment variables (see the
// config package). The process stops gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"
	_ "time/tzdata" // account timezones must resolve in minimal containers

	"github.com/blazer82/analytodon-sub001/internal/accounts"
	"github.com/blazer82/analytodon-sub001/internal/api"
	"github.com/blazer82/analytodon-sub001/internal/auth"
	"github.com/blazer82/analytodon-sub001/internal/authz"
	"github.com/blazer82/analytodon-sub001/internal/cache"
	"github.com/blazer82/analytodon-sub001/internal/collector"
	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/events"
	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/mail"
	"github.com/blazer82/analytodon-sub001/internal/mastodon"
	"github.com/blazer82/analytodon-sub001/internal/stats"
	"github.com/blazer82/analytodon-sub001/internal/supervisor"
	"github.com/blazer82/analytodon-sub001/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
}

//nolint:gocyclo // sequential wiring
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Str("events_backend", cfg.Events.Backend).
		Msg("Starting Analytodon")

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	tokens, err := auth.OpenTokenStore(cfg.Tokens.Store, cfg.Tokens.Path)
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	defer func() {
		if err := tokens.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing token store")
		}
	}()

	enforcer, err := authz.NewEnforcer(&cfg.Authz)
	if err != nil {
		return fmt.Errorf("initialize authorization: %w", err)
	}
	defer enforcer.Close()

	bus, err := events.NewBus(&cfg.Events)
	if err != nil {
		return fmt.Errorf("initialize event bus: %w", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return fmt.Errorf("initialize JWT manager: %w", err)
	}

	responseCache := cache.New(api.DefaultCacheTTL)
	defer responseCache.Close()

	client := mastodon.NewClient(&cfg.Mastodon)
	statsService := stats.NewService(db)
	coll := collector.New(db, client, statsService, bus, responseCache, &cfg.Jobs)

	router := events.NewRouter(bus)
	mail.NewHandlers(mail.NewMailer(&cfg.Mail), cfg).Register(router)
	router.Handle("collector_account_connected", events.TopicAccountConnected, coll.HandleAccountConnected)

	handler := api.NewHandler(api.Services{
		Auth:          auth.NewService(db, tokens, jwtManager, bus, &cfg.Security),
		Accounts:      accounts.NewService(db, client, bus, cfg),
		Stats:         statsService,
		Users:         db,
		Jobs:          coll,
		DB:            db,
		Cache:         responseCache,
		SecureCookies: cfg.IsProduction(),
		Version:       version,
	})
	chiRouter := api.NewRouter(
		handler,
		auth.NewMiddleware(jwtManager),
		authz.NewMiddleware(enforcer),
		api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)),
	)
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED")
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           chiRouter.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  shutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddEventService(router)
	if cfg.Jobs.SchedulerEnabled {
		tree.AddJobService(services.NewSchedulerService(collector.NewScheduler(coll, &cfg.Jobs)))
	} else {
		logging.Info().Msg("Scheduler disabled, run jobs with the jobs command")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
	err = tree.Serve(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("Analytodon stopped")
	return nil
}
