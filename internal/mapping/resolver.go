// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mapping decides which content revision a language's translation
// attaches to. Explicit per-language mappings override the natural
// translation a revision carries; the hidden sentinel suppresses display
// entirely.
package mapping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openeuropa/oe-translation-sub001/internal/content"
	"github.com/openeuropa/oe-translation-sub001/internal/model"
	"github.com/openeuropa/oe-translation-sub001/internal/store"
)

// Errors returned by mapping operations.
var (
	ErrSelfMapping   = errors.New("cannot map a language to the current latest revision")
	ErrNoMapping     = errors.New("no mapping exists")
	ErrNoTranslation = errors.New("revision has no translation for language")
	ErrBadScope      = errors.New("invalid mapping scope")
)

// Resolution kinds.
const (
	ResolutionMapped  = "mapped"  // an explicit mapping points at a revision
	ResolutionHidden  = "hidden"  // an explicit mapping suppresses display
	ResolutionNatural = "natural" // the version shows its own translation
	ResolutionNone    = "none"    // no translation to show
)

// Resolution is the outcome of resolving a language against one version.
type Resolution struct {
	Kind       string `json:"kind"`
	RevisionID int64  `json:"revision_id,omitempty"`
	Scope      string `json:"scope,omitempty"`
}

// Resolver resolves and manages per-language revision mappings.
type Resolver struct {
	queries *store.Queries
	content content.Store
	logger  *slog.Logger
}

// New creates a resolver.
func New(db *sql.DB, contentStore content.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		queries: store.New(db),
		content: contentStore,
		logger:  logger,
	}
}

// NewWithQueries creates a resolver on an existing query layer. The
// synchronization engine uses this to share a transaction.
func NewWithQueries(queries *store.Queries, contentStore content.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		queries: queries,
		content: contentStore,
		logger:  logger,
	}
}

// Resolve determines what translation the given version of an entity shows
// for langcode. The target revision stands for the major version in
// question: its moderation state decides which mapping scopes apply.
func (r *Resolver) Resolve(ctx context.Context, target *content.Revision, langcode string) (Resolution, error) {
	m, err := r.queries.GetMapping(ctx, target.EntityType, target.EntityID, langcode)
	if err != nil {
		return Resolution{}, err
	}

	if m != nil {
		applies := target.Moderation != content.ModerationValidated || m.AppliesToValidated()
		if applies {
			if m.Hidden {
				return Resolution{Kind: ResolutionHidden, Scope: m.Scope}, nil
			}
			return Resolution{Kind: ResolutionMapped, RevisionID: m.RevisionID.Int64, Scope: m.Scope}, nil
		}
	}

	// No applicable mapping: each version shows whatever translation it
	// naturally carries, with no carry-over between parallel versions.
	if target.HasTranslation(langcode) {
		return Resolution{Kind: ResolutionNatural, RevisionID: target.ID}, nil
	}
	return Resolution{Kind: ResolutionNone}, nil
}

// Get returns the stored mapping for a language, or nil when none exists.
func (r *Resolver) Get(ctx context.Context, entityType string, entityID int64, langcode string) (*model.RevisionMapping, error) {
	return r.queries.GetMapping(ctx, entityType, entityID, langcode)
}

// Set creates or replaces a language mapping. Mapping to the current latest
// revision is rejected (it is the default anyway), as is mapping to a
// revision that carries no translation for the language. Pass hidden=true
// with revisionID=0 for the hidden sentinel.
func (r *Resolver) Set(ctx context.Context, entityType string, entityID int64, langcode string, revisionID int64, hidden bool, scope string) error {
	if scope != model.MappingScopePublished && scope != model.MappingScopePublishedValidated {
		return fmt.Errorf("%w: %q", ErrBadScope, scope)
	}

	m := model.RevisionMapping{
		EntityType: entityType,
		EntityID:   entityID,
		Langcode:   langcode,
		Hidden:     hidden,
		Scope:      scope,
	}

	if !hidden {
		latest, err := r.content.LatestRevisionID(ctx, entityType, entityID)
		if err != nil {
			return fmt.Errorf("loading latest revision: %w", err)
		}
		if revisionID == latest {
			return fmt.Errorf("%s:%d revision %d: %w", entityType, entityID, revisionID, ErrSelfMapping)
		}
		rev, err := r.content.LoadRevision(ctx, entityType, entityID, revisionID)
		if err != nil {
			return fmt.Errorf("loading mapped revision: %w", err)
		}
		if !rev.HasTranslation(langcode) {
			return fmt.Errorf("revision %d langcode %s: %w", revisionID, langcode, ErrNoTranslation)
		}
		m.RevisionID = sql.NullInt64{Int64: revisionID, Valid: true}
	}

	if err := r.queries.UpsertMapping(ctx, m); err != nil {
		return err
	}
	r.logger.Info("language mapping set",
		"category", model.EventCategoryMapping,
		"entity", fmt.Sprintf("%s:%d", entityType, entityID),
		"langcode", langcode, "hidden", hidden, "scope", scope)
	return nil
}

// Remove deletes a language mapping. Mapping rows are the record: removing
// the last one leaves nothing behind for the entity.
func (r *Resolver) Remove(ctx context.Context, entityType string, entityID int64, langcode string) error {
	err := r.queries.DeleteMapping(ctx, entityType, entityID, langcode)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s:%d langcode %s: %w", entityType, entityID, langcode, ErrNoMapping)
	}
	if err != nil {
		return err
	}
	r.logger.Info("language mapping removed",
		"category", model.EventCategoryMapping,
		"entity", fmt.Sprintf("%s:%d", entityType, entityID), "langcode", langcode)
	return nil
}
