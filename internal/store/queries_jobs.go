// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openeuropa/oe-translation-sub001/internal/model"
)

// CreateDossierJob records an identifier sent to the provider for a content item.
func (q *Queries) CreateDossierJob(ctx context.Context, job model.DossierJob) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO dossier_jobs (entity_type, entity_id, code, year, number, part, version, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.EntityType, job.EntityID, job.Code, job.Year, job.Number, job.Part, job.Version, job.Status)
	if err != nil {
		return 0, fmt.Errorf("inserting dossier job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading dossier job id: %w", err)
	}
	return id, nil
}

// LatestDossierJobForEntity returns the most recent job for a content item,
// or nil when the item has never been sent to the provider.
func (q *Queries) LatestDossierJobForEntity(ctx context.Context, entityType string, entityID int64) (*model.DossierJob, error) {
	var job model.DossierJob
	err := q.db.QueryRowContext(ctx, `
		SELECT id, entity_type, entity_id, code, year, number, part, version, status, created_at
		FROM dossier_jobs WHERE entity_type = ? AND entity_id = ?
		ORDER BY version DESC, id DESC LIMIT 1`, entityType, entityID).
		Scan(&job.ID, &job.EntityType, &job.EntityID, &job.Code, &job.Year,
			&job.Number, &job.Part, &job.Version, &job.Status, &job.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest dossier job: %w", err)
	}
	return &job, nil
}

// MaxPartForNumber returns the highest part ever used under a dossier number,
// or -1 when no job references the number.
func (q *Queries) MaxPartForNumber(ctx context.Context, number string) (int, error) {
	var part sql.NullInt64
	err := q.db.QueryRowContext(ctx,
		`SELECT MAX(part) FROM dossier_jobs WHERE number = ?`, number).Scan(&part)
	if err != nil {
		return 0, fmt.Errorf("querying max part: %w", err)
	}
	if !part.Valid {
		return -1, nil
	}
	return int(part.Int64), nil
}

// CountJobsForNumber returns how many historical jobs reference a dossier number.
func (q *Queries) CountJobsForNumber(ctx context.Context, number string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dossier_jobs WHERE number = ?`, number).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting jobs for number: %w", err)
	}
	return n, nil
}

// UpdateDossierJobStatus moves a job between pending and finished.
func (q *Queries) UpdateDossierJobStatus(ctx context.Context, id int64, status string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE dossier_jobs SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("updating dossier job status: %w", err)
	}
	return requireRowAffected(res, "dossier job", fmt.Sprint(id))
}

// SetDossierJobNumber records the number the provider granted for a sequenced job.
func (q *Queries) SetDossierJobNumber(ctx context.Context, id int64, number string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE dossier_jobs SET number = ? WHERE id = ?`, number, id)
	if err != nil {
		return fmt.Errorf("updating dossier job number: %w", err)
	}
	return requireRowAffected(res, "dossier job", fmt.Sprint(id))
}

// DeleteDossierJobsForEntity purges the historical record of a content item.
// Used when content is deleted; the allocator treats the disappearance as
// data loss and re-sequences.
func (q *Queries) DeleteDossierJobsForEntity(ctx context.Context, entityType string, entityID int64) error {
	_, err := q.db.ExecContext(ctx,
		`DELETE FROM dossier_jobs WHERE entity_type = ? AND entity_id = ?`, entityType, entityID)
	if err != nil {
		return fmt.Errorf("deleting dossier jobs: %w", err)
	}
	return nil
}

// GetGlobalNumber reads the process-wide granted dossier number. Empty string
// means unset or exhausted.
func (q *Queries) GetGlobalNumber(ctx context.Context) (string, error) {
	var number sql.NullString
	err := q.db.QueryRowContext(ctx,
		`SELECT number FROM global_number WHERE id = 1`).Scan(&number)
	if err != nil {
		return "", fmt.Errorf("reading global number: %w", err)
	}
	if !number.Valid {
		return "", nil
	}
	return number.String, nil
}

// SetGlobalNumber records a newly granted dossier number.
func (q *Queries) SetGlobalNumber(ctx context.Context, number string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE global_number SET number = ? WHERE id = 1`, number)
	if err != nil {
		return fmt.Errorf("setting global number: %w", err)
	}
	return nil
}

// ClearGlobalNumber forces the next allocation to re-sequence.
func (q *Queries) ClearGlobalNumber(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE global_number SET number = NULL WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("clearing global number: %w", err)
	}
	return nil
}
