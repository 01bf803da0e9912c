// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/blazer82/analytodon-sub001/internal/collector"
	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/database"
	"github.com/blazer82/analytodon-sub001/internal/events"
	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/mail"
	"github.com/blazer82/analytodon-sub001/internal/mastodon"
	"github.com/blazer82/analytodon-sub001/internal/stats"
)

// routerStartTimeout bounds the wait for the local mail router.
const routerStartTimeout = 10 * time.Second

// runtime holds what a job invocation needs. With the in-memory event
// backend it also runs the mail handlers locally, because no server
// process shares the bus.
type runtime struct {
	db        *database.DB
	bus       *events.Bus
	collector *collector.Collector

	stopRouter func()
	routerDone chan error
}

// explainOpenError adds what to do when the server holds the database.
func explainOpenError(err error) error {
	if errors.Is(err, database.ErrLocked) {
		return fmt.Errorf("%w; stop the API server first or trigger the job with POST /api/v1/admin/jobs/{job}", err)
	}
	return fmt.Errorf("initialize database: %w", err)
}

func openRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, explainOpenError(err)
	}

	eventsCfg := cfg.Events
	eventsCfg.BlockUntilAck = true
	bus, err := events.NewBus(&eventsCfg)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize event bus: %w", err)
	}

	client := mastodon.NewClient(&cfg.Mastodon)
	rt := &runtime{
		db:        db,
		bus:       bus,
		collector: collector.New(db, client, stats.NewService(db), bus, nil, &cfg.Jobs),
	}

	if eventsCfg.Backend == "memory" || eventsCfg.Backend == "" {
		if err := rt.startMailRouter(ctx, cfg); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

func (rt *runtime) startMailRouter(ctx context.Context, cfg *config.Config) error {
	router := events.NewRouter(rt.bus)
	mail.NewHandlers(mail.NewMailer(&cfg.Mail), cfg).Register(router)

	routerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	rt.stopRouter = cancel
	rt.routerDone = make(chan error, 1)
	go func() { rt.routerDone <- router.Serve(routerCtx) }()

	select {
	case <-router.Ready():
		return nil
	case err := <-rt.routerDone:
		rt.routerDone = nil
		return fmt.Errorf("start mail router: %w", err)
	case <-time.After(routerStartTimeout):
		return errors.New("mail router did not start in time")
	}
}

// Close stops the mail router and releases the bus and the database.
func (rt *runtime) Close() error {
	var result *multierror.Error
	if rt.stopRouter != nil {
		rt.stopRouter()
		if rt.routerDone != nil {
			if err := <-rt.routerDone; err != nil && !errors.Is(err, context.Canceled) {
				result = multierror.Append(result, err)
			}
		}
	}
	if err := rt.bus.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close event bus: %w", err))
	}
	if err := rt.db.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close database: %w", err))
	}
	if result != nil {
		logging.Warn().Err(result).Msg("Shutdown incomplete")
	}
	return result.ErrorOrNil()
}
