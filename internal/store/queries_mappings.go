// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/openeuropa/oe-translation-sub001/internal/model"
)

// UpsertMapping creates or replaces the mapping for one language of a content item.
func (q *Queries) UpsertMapping(ctx context.Context, m model.RevisionMapping) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO revision_mappings (entity_type, entity_id, langcode, revision_id, hidden, scope, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_type, entity_id, langcode)
		DO UPDATE SET revision_id = excluded.revision_id, hidden = excluded.hidden,
		              scope = excluded.scope, updated_at = excluded.updated_at`,
		m.EntityType, m.EntityID, m.Langcode, m.RevisionID, m.Hidden, m.Scope, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting mapping: %w", err)
	}
	return nil
}

// GetMapping returns the mapping for one language, or nil when none exists.
func (q *Queries) GetMapping(ctx context.Context, entityType string, entityID int64, langcode string) (*model.RevisionMapping, error) {
	var m model.RevisionMapping
	err := q.db.QueryRowContext(ctx, `
		SELECT id, entity_type, entity_id, langcode, revision_id, hidden, scope, updated_at
		FROM revision_mappings WHERE entity_type = ? AND entity_id = ? AND langcode = ?`,
		entityType, entityID, langcode).
		Scan(&m.ID, &m.EntityType, &m.EntityID, &m.Langcode, &m.RevisionID, &m.Hidden, &m.Scope, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading mapping: %w", err)
	}
	return &m, nil
}

// ListMappingsForEntity returns all language mappings of a content item.
func (q *Queries) ListMappingsForEntity(ctx context.Context, entityType string, entityID int64) ([]model.RevisionMapping, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, langcode, revision_id, hidden, scope, updated_at
		FROM revision_mappings WHERE entity_type = ? AND entity_id = ? ORDER BY langcode`,
		entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.RevisionMapping
	for rows.Next() {
		var m model.RevisionMapping
		if err := rows.Scan(&m.ID, &m.EntityType, &m.EntityID, &m.Langcode,
			&m.RevisionID, &m.Hidden, &m.Scope, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// DeleteMapping removes one language mapping. Returns sql.ErrNoRows when the
// mapping did not exist.
func (q *Queries) DeleteMapping(ctx context.Context, entityType string, entityID int64, langcode string) error {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM revision_mappings WHERE entity_type = ? AND entity_id = ? AND langcode = ?`,
		entityType, entityID, langcode)
	if err != nil {
		return fmt.Errorf("deleting mapping: %w", err)
	}
	return requireRowAffected(res, "mapping", fmt.Sprintf("%s:%d:%s", entityType, entityID, langcode))
}
