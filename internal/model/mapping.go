// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Mapping scopes. A mapping scoped to "published" only overrides the
// published major version; "published_validated" also covers a newer,
// not-yet-published validated major version running in parallel.
const (
	MappingScopePublished          = "published"
	MappingScopePublishedValidated = "published_validated"
)

// RevisionMapping directs where a language's translation should be considered
// to live for a content item. RevisionID is NULL when Hidden is set: the
// translation exists but must not be shown.
type RevisionMapping struct {
	ID         int64         `json:"id"`
	EntityType string        `json:"entity_type"`
	EntityID   int64         `json:"entity_id"`
	Langcode   string        `json:"langcode"`
	RevisionID sql.NullInt64 `json:"revision_id"`
	Hidden     bool          `json:"hidden"`
	Scope      string        `json:"scope"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// AppliesToValidated reports whether the mapping also covers the parallel
// validated major version.
func (m RevisionMapping) AppliesToValidated() bool {
	return m.Scope == MappingScopePublishedValidated
}
