// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package allocator produces dossier identifiers for new ePoetry requests.
// The granted dossier number is process-wide shared state: allocation is a
// serialized read-modify-write over the jobs history and the global number.
package allocator

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

// Allocator computes the next identifier for a content item from the
// historical job record and the process-wide granted number.
type Allocator struct {
	db     *sql.DB
	logger *slog.Logger

	code     string // requester code stamped on every dossier
	sequence string // opaque token used when asking for a fresh number

	// mu serializes allocations: two concurrent allocations for different
	// content items must not compute the same part under one number.
	mu sync.Mutex

	now func() time.Time
}

// New creates an allocator. code is the requester code (e.g. "DIGIT"),
// sequence the provider-agreed sequence token for fresh numbers.
func New(db *sql.DB, code, sequence string, logger *slog.Logger) *Allocator {
	return &Allocator{
		db:       db,
		logger:   logger,
		code:     code,
		sequence: sequence,
		now:      time.Now,
	}
}

// Allocate returns the identifier the next request for the given content item
// should be filed under. Allocation is deterministic: without intervening job
// history changes it returns the same identifier again.
func (a *Allocator) Allocate(ctx context.Context, entityType string, entityID int64) (model.Identifier, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Identifier{}, fmt.Errorf("beginning allocation tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	queries := store.New(tx)
	id, err := a.allocate(ctx, queries, entityType, entityID)
	if err != nil {
		return model.Identifier{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Identifier{}, fmt.Errorf("committing allocation tx: %w", err)
	}
	return id, nil
}

func (a *Allocator) allocate(ctx context.Context, queries *store.Queries, entityType string, entityID int64) (model.Identifier, error) {
	// An already-numbered content item gets the next version of its dossier.
	job, err := queries.LatestDossierJobForEntity(ctx, entityType, entityID)
	if err != nil {
		return model.Identifier{}, err
	}
	if job != nil && job.Number != "" {
		return model.Identifier{
			Code:    job.Code,
			Year:    job.Year,
			Number:  job.Number,
			Part:    job.Part,
			Version: job.Version + 1,
		}, nil
	}

	number, err := queries.GetGlobalNumber(ctx)
	if err != nil {
		return model.Identifier{}, err
	}
	if number != "" {
		// A granted number is only trustworthy while jobs explaining its
		// provenance still exist. A purged history means re-sequencing.
		count, err := queries.CountJobsForNumber(ctx, number)
		if err != nil {
			return model.Identifier{}, err
		}
		if count == 0 {
			a.logger.Warn("global number has no backing job history, re-sequencing",
				"category", model.EventCategoryAllocator, "number", number)
			return a.sequenced(), nil
		}

		maxPart, err := queries.MaxPartForNumber(ctx, number)
		if err != nil {
			return model.Identifier{}, err
		}
		next := maxPart + 1
		if next > model.MaxDossierPart {
			// Parts exhausted: drop the number and ask for a fresh one.
			if err := queries.ClearGlobalNumber(ctx); err != nil {
				return model.Identifier{}, err
			}
			a.logger.Info("dossier number exhausted, re-sequencing",
				"category", model.EventCategoryAllocator, "number", number)
			return a.sequenced(), nil
		}
		return model.Identifier{
			Code:   a.code,
			Year:   a.now().Year(),
			Number: number,
			Part:   next,
		}, nil
	}

	return a.sequenced(), nil
}

func (a *Allocator) sequenced() model.Identifier {
	return model.Identifier{
		Code:     a.code,
		Year:     a.now().Year(),
		Sequence: a.sequence,
	}
}

// RecordJob persists an allocation as a pending dossier job once the request
// was sent. Returns the job ID for later number grants.
func (a *Allocator) RecordJob(ctx context.Context, entityType string, entityID int64, id model.Identifier) (int64, error) {
	queries := store.New(a.db)
	return queries.CreateDossierJob(ctx, model.DossierJob{
		EntityType: entityType,
		EntityID:   entityID,
		Code:       id.Code,
		Year:       id.Year,
		Number:     id.Number,
		Part:       id.Part,
		Version:    id.Version,
		Status:     model.DossierJobPending,
	})
}

// GrantNumber records a freshly granted dossier number for a sequenced job
// and publishes it as the process-wide number for subsequent allocations.
func (a *Allocator) GrantNumber(ctx context.Context, jobID int64, number string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning grant tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	queries := store.New(tx)
	if err := queries.SetDossierJobNumber(ctx, jobID, number); err != nil {
		return err
	}
	if err := queries.SetGlobalNumber(ctx, number); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing grant tx: %w", err)
	}
	a.logger.Info("dossier number granted",
		"category", model.EventCategoryAllocator, "job", jobID, "number", number)
	return nil
}

// FinishJob marks a dossier job as acknowledged by the provider.
func (a *Allocator) FinishJob(ctx context.Context, jobID int64) error {
	return store.New(a.db).UpdateDossierJobStatus(ctx, jobID, model.DossierJobFinished)
}

// Reset clears the process-wide number, forcing the next allocation to
// re-sequence. Administrator action.
func (a *Allocator) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := store.New(a.db).ClearGlobalNumber(ctx); err != nil {
		return err
	}
	a.logger.Info("global dossier number reset", "category", model.EventCategoryAllocator)
	return nil
}
