// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/logging"
)

// weeklyCheckInterval is how often the scheduler asks whether the weekly
// mail is due.
const weeklyCheckInterval = time.Hour

// Scheduler runs the batch jobs on their configured intervals. A job that
// is still running when its next tick arrives is skipped for that tick.
type Scheduler struct {
	collector *Collector
	cfg       config.JobsConfig

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	jobLocks map[Job]*sync.Mutex
}

// NewScheduler returns a stopped scheduler.
func NewScheduler(c *Collector, cfg *config.JobsConfig) *Scheduler {
	locks := make(map[Job]*sync.Mutex, len(Jobs))
	for _, j := range Jobs {
		locks[j] = &sync.Mutex{}
	}
	return &Scheduler{
		collector: c,
		cfg:       *cfg,
		jobLocks:  locks,
	}
}

// Start launches one loop per job. It returns immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})

	s.every(ctx, s.cfg.AccountStatsInterval, func(ctx context.Context) { s.runJob(ctx, JobAccountStats) })
	s.every(ctx, s.cfg.TootStatsInterval, func(ctx context.Context) { s.runJob(ctx, JobTootStats) })
	s.every(ctx, s.cfg.CleanupInterval, func(ctx context.Context) { s.runJob(ctx, JobCleanup) })
	if s.cfg.WeeklyStatsEnabled {
		s.every(ctx, weeklyCheckInterval, s.checkWeekly)
	}

	logging.Info().
		Dur("account_stats_interval", s.cfg.AccountStatsInterval).
		Dur("toot_stats_interval", s.cfg.TootStatsInterval).
		Dur("cleanup_interval", s.cfg.CleanupInterval).
		Bool("weekly_stats", s.cfg.WeeklyStatsEnabled).
		Msg("Scheduler started")
	return nil
}

// Stop ends all loops and waits for running jobs to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is not running")
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	s.wg.Wait()
	logging.Info().Msg("Scheduler stopped")
	return nil
}

// every calls fn on each tick until Stop or ctx is done. The stop channel
// also cancels the context handed to fn.
func (s *Scheduler) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	stop := s.stopChan
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-stop:
				cancel()
			case <-runCtx.Done():
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				fn(runCtx)
			}
		}
	}()
}

// runJob runs job unless a previous run is still in progress.
func (s *Scheduler) runJob(ctx context.Context, job Job) {
	lock := s.jobLocks[job]
	if !lock.TryLock() {
		logging.Warn().Str("job", string(job)).Msg("Previous run still in progress, skipping tick")
		return
	}
	defer lock.Unlock()

	// Run logs and records the outcome.
	_ = s.collector.Run(ctx, job)
}

func (s *Scheduler) checkWeekly(ctx context.Context) {
	lock := s.jobLocks[JobWeeklyStats]
	if !lock.TryLock() {
		return
	}
	defer lock.Unlock()

	if _, err := s.collector.RunWeeklyIfDue(ctx); err != nil {
		logging.Error().Err(err).Msg("Weekly stats run failed")
	}
}
