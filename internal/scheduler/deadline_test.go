// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/openeuropa/oe-translation-sub001/internal/model"
	"github.com/openeuropa/oe-translation-sub001/internal/store"
	"github.com/openeuropa/oe-translation-sub001/internal/testutil"
)

func seedRequestWithDeadline(t *testing.T, queries *store.Queries, id string, deadline time.Time) {
	t.Helper()
	err := queries.CreateRequest(context.Background(), store.CreateRequestParams{
		ID:             id,
		ProviderKind:   model.ProviderEPoetry,
		EntityType:     "node",
		EntityID:       1,
		RevisionID:     10,
		SourceLanguage: "en",
		ProviderRef:    "DIGIT/2026/11111/0/0",
		EPoetry: &model.EPoetryState{
			Code: "DIGIT", Year: 2026, Number: "11111",
			Deadline: sql.NullTime{Time: deadline, Valid: true},
		},
		Langcodes: []string{"fr"},
	})
	if err != nil {
		t.Fatalf("seeding request: %v", err)
	}
}

func TestDeadlineWatchdog(t *testing.T) {
	db, queries := testutil.TestQueries(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	seedRequestWithDeadline(t, queries, "req-overdue", now.Add(-24*time.Hour))
	seedRequestWithDeadline(t, queries, "req-ontime", now.Add(24*time.Hour))

	w := NewDeadlineWatchdog(db, testutil.TestLogger())
	w.now = func() time.Time { return now }

	if err := w.Run(ctx); err != nil {
		t.Fatalf("running watchdog: %v", err)
	}

	overdue, err := queries.ListRequestLog(ctx, "req-overdue")
	if err != nil {
		t.Fatalf("listing log: %v", err)
	}
	if len(overdue) != 1 || overdue[0].Type != model.LogTypeWarning {
		t.Errorf("overdue log = %+v, want one warning", overdue)
	}

	ontime, err := queries.ListRequestLog(ctx, "req-ontime")
	if err != nil {
		t.Fatalf("listing log: %v", err)
	}
	if len(ontime) != 0 {
		t.Errorf("on-time request logged %d entries, want none", len(ontime))
	}

	// A second run must not warn about the same request again.
	if err := w.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	overdue, err = queries.ListRequestLog(ctx, "req-overdue")
	if err != nil {
		t.Fatalf("listing log: %v", err)
	}
	if len(overdue) != 1 {
		t.Errorf("overdue logged %d entries after second run, want still 1", len(overdue))
	}
}

func TestSchedulerRegisterRejectsBadSpec(t *testing.T) {
	s := New(testutil.TestLogger())
	w := NewDeadlineWatchdog(testutil.TestDB(t), testutil.TestLogger())

	if err := s.Register("not a cron spec", w); err == nil {
		t.Error("Register with invalid spec must fail")
	}
	if err := s.Register("@hourly", w); err != nil {
		t.Errorf("Register(@hourly) = %v", err)
	}
}
