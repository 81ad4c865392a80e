// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openeuropa/oe-translation-sub001/internal/model"
	"github.com/openeuropa/oe-translation-sub001/internal/store"
)

// DeadlineWatchdog scans active requests and flags those whose provider
// deadline has passed without delivery. Each overdue request is warned about
// once per process lifetime; the audit trail records the miss.
type DeadlineWatchdog struct {
	queries *store.Queries
	logger  *slog.Logger

	mu     sync.Mutex
	warned map[string]struct{}

	now func() time.Time
}

// NewDeadlineWatchdog creates the watchdog job.
func NewDeadlineWatchdog(db *sql.DB, logger *slog.Logger) *DeadlineWatchdog {
	return &DeadlineWatchdog{
		queries: store.New(db),
		logger:  logger,
		warned:  make(map[string]struct{}),
		now:     time.Now,
	}
}

// Name implements Job.
func (w *DeadlineWatchdog) Name() string { return "deadline-watchdog" }

// Run implements Job.
func (w *DeadlineWatchdog) Run(ctx context.Context) error {
	requests, err := w.queries.ListActiveRequests(ctx)
	if err != nil {
		return fmt.Errorf("listing active requests: %w", err)
	}

	now := w.now()
	for _, req := range requests {
		deadline, ok := requestDeadline(req)
		if !ok || !deadline.Before(now) {
			continue
		}
		if w.alreadyWarned(req.ID) {
			continue
		}

		w.logger.Warn("translation deadline missed",
			"category", model.EventCategoryProvider,
			"request", req.ID, "provider", req.ProviderKind,
			"deadline", deadline.Format(time.RFC3339))

		err := w.queries.AppendRequestLog(ctx, model.LogEntry{
			RequestID: req.ID,
			Type:      model.LogTypeWarning,
			Actor:     "system",
			Message:   fmt.Sprintf("Deadline %s passed without delivery.", deadline.Format("2006-01-02")),
		})
		if err != nil {
			return fmt.Errorf("recording missed deadline for %s: %w", req.ID, err)
		}
		w.markWarned(req.ID)
	}
	return nil
}

func (w *DeadlineWatchdog) alreadyWarned(requestID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.warned[requestID]
	return ok
}

func (w *DeadlineWatchdog) markWarned(requestID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warned[requestID] = struct{}{}
}

func requestDeadline(req *model.TranslationRequest) (time.Time, bool) {
	switch {
	case req.EPoetry != nil && req.EPoetry.Deadline.Valid:
		return req.EPoetry.Deadline.Time, true
	case req.CDT != nil && req.CDT.Deadline.Valid:
		return req.CDT.Deadline.Time, true
	}
	return time.Time{}, false
}
