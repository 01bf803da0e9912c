// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package services

import (
	"context"
	"fmt"
)

// Scheduler matches the Start/Stop lifecycle of collector.Scheduler.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService adapts a Scheduler to suture's Serve pattern.
type SchedulerService struct {
	scheduler Scheduler
	name      string
}

func NewSchedulerService(scheduler Scheduler) *SchedulerService {
	return &SchedulerService{
		scheduler: scheduler,
		name:      "stats-scheduler",
	}
}

// Serve starts the scheduler, blocks until ctx is canceled and stops it.
// A failed Start is returned so suture restarts the service with backoff.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.scheduler.Stop(); err != nil {
		return fmt.Errorf("scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

func (s *SchedulerService) String() string {
	return s.name
}
