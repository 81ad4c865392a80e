// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package content defines the content-store collaborator the translation core
// writes to. The CMS owns revisions; this package only describes the surface
// the synchronization engine and the mapping resolver need.
package content

import (
	"context"
	"errors"
)

// Moderation states of a revision.
const (
	ModerationDraft     = "draft"
	ModerationPublished = "published"
	ModerationValidated = "validated"
)

// Workflow kinds. Corporate content keeps a published and a validated major
// version alive in parallel; standard content has a single live version.
const (
	WorkflowStandard  = "standard"
	WorkflowCorporate = "corporate"
)

// Errors returned by Store implementations.
var (
	ErrRevisionNotFound = errors.New("revision not found")
	ErrEntityNotFound   = errors.New("entity not found")
	ErrSaveRejected     = errors.New("revision save rejected")
)

// FieldSet is a flattened field-tree snapshot: field path to rendered value.
type FieldSet map[string]string

// Clone returns a deep copy of the field set.
func (f FieldSet) Clone() FieldSet {
	if f == nil {
		return nil
	}
	out := make(FieldSet, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Translation is one language's translation attached to a revision.
// SourceRevisionID records which revision the originating request was created
// against; when it differs from the carrying revision the translation was
// carried over through the revision chain rather than freshly requested.
type Translation struct {
	Langcode         string   `json:"langcode"`
	Fields           FieldSet `json:"fields"`
	SourceRevisionID int64    `json:"source_revision_id"`
}

// Revision is one version of a content entity.
type Revision struct {
	ID           int64                  `json:"id"`
	EntityType   string                 `json:"entity_type"`
	EntityID     int64                  `json:"entity_id"`
	Major        int                    `json:"major"`
	Minor        int                    `json:"minor"`
	Title        string                 `json:"title"`
	Moderation   string                 `json:"moderation"`
	Workflow     string                 `json:"workflow"`
	Default      bool                   `json:"default"`
	Fields       FieldSet               `json:"fields,omitempty"`
	Translations map[string]Translation `json:"translations,omitempty"`
}

// HasTranslation reports whether the revision carries a translation for langcode.
func (r *Revision) HasTranslation(langcode string) bool {
	_, ok := r.Translations[langcode]
	return ok
}

// Translation returns the revision's translation for langcode, if any.
func (r *Revision) Translation(langcode string) (Translation, bool) {
	t, ok := r.Translations[langcode]
	return t, ok
}

// SetTranslation attaches or replaces a language's translation.
func (r *Revision) SetTranslation(t Translation) {
	if r.Translations == nil {
		r.Translations = make(map[string]Translation)
	}
	r.Translations[t.Langcode] = t
}

// IsCorporate reports whether the revision belongs to corporate-workflow content.
func (r *Revision) IsCorporate() bool {
	return r.Workflow == WorkflowCorporate
}

// Store is the content storage collaborator. Implementations are expected to
// provide their own concurrency control for same-entity writes.
type Store interface {
	// LoadRevision loads one revision of an entity.
	LoadRevision(ctx context.Context, entityType string, entityID, revisionID int64) (*Revision, error)

	// LatestRevisionID returns the newest revision of an entity.
	LatestRevisionID(ctx context.Context, entityType string, entityID int64) (int64, error)

	// SaveRevision persists revision changes, including the default flag.
	SaveRevision(ctx context.Context, rev *Revision) error

	// ListRevisions returns all revisions of an entity, oldest first.
	ListRevisions(ctx context.Context, entityType string, entityID int64) ([]*Revision, error)

	// RevisionsInVersionFamily returns the revisions sharing a major/minor
	// version, oldest first.
	RevisionsInVersionFamily(ctx context.Context, entityType string, entityID int64, major, minor int) ([]*Revision, error)
}
