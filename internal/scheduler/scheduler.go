// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic background jobs against the request store.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Job is one schedulable unit of background work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler drives registered jobs on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New creates a stopped scheduler.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Register adds a job under the given cron spec (standard 5-field syntax).
func (s *Scheduler) Register(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if err := job.Run(ctx); err != nil {
			s.logger.Error("scheduled job failed",
				"category", "system", "job", job.Name(), "error", err)
			return
		}
		s.logger.Debug("scheduled job finished", "job", job.Name())
	})
	if err != nil {
		return fmt.Errorf("registering job %s: %w", job.Name(), err)
	}
	return nil
}

// Start begins running registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}
