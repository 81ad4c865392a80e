// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package synchronizer commits delivered translations onto content revisions.
// A successful run writes the translation, advances the language status and
// reconciles mapping state in one go; a failed run changes nothing beyond an
// error entry in the audit trail.
package synchronizer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"

	"github.com/openeuropa/oe-translation-sub001/internal/content"
	"github.com/openeuropa/oe-translation-sub001/internal/lifecycle"
	"github.com/openeuropa/oe-translation-sub001/internal/model"
	"github.com/openeuropa/oe-translation-sub001/internal/provider"
	"github.com/openeuropa/oe-translation-sub001/internal/store"
)

// Errors returned by synchronization.
var (
	ErrEmptyPayload = errors.New("no translated payload delivered for language")
	ErrWriteFailed  = errors.New("content store rejected the translation")
)

// Result reports the outcome of one synchronization run.
type Result struct {
	Synchronized bool   `json:"synchronized"`
	RevisionID   int64  `json:"revision_id,omitempty"`
	Langcode     string `json:"langcode"`
	Message      string `json:"message"`
}

// Engine orchestrates revision resolution, payload merge, status update and
// mapping reconciliation.
type Engine struct {
	db        *sql.DB
	content   content.Store
	providers *provider.Registry
	logger    *slog.Logger
	policy    *bluemonday.Policy
}

// New creates a synchronization engine. Delivered payloads are provider HTML
// and pass through a UGC sanitization policy before being merged.
func New(db *sql.DB, contentStore content.Store, providers *provider.Registry, logger *slog.Logger) *Engine {
	return &Engine{
		db:        db,
		content:   contentStore,
		providers: providers,
		logger:    logger,
		policy:    bluemonday.UGCPolicy(),
	}
}

// SynchronizeLanguage writes the delivered translation for one language onto
// the correct content revision. From the caller's perspective the run is
// atomic: either the translation is committed and the language status
// advances, or nothing changes and an error is reported.
func (e *Engine) SynchronizeLanguage(ctx context.Context, req *model.TranslationRequest, langcode, actor string) (Result, error) {
	result := Result{Langcode: langcode}
	queries := store.New(e.db)

	lang := req.Language(langcode)
	if lang == nil {
		return result, fmt.Errorf("request %s language %s: %w", req.ID, langcode, lifecycle.ErrUnknownLanguage)
	}
	if !lifecycle.CanTransition(lang.Status, model.LanguageStatusSynchronised) {
		return result, fmt.Errorf("%s is %s: %w", langcode, lang.Status, lifecycle.ErrInvalidTransition)
	}

	payload, err := queries.GetLanguagePayload(ctx, req.ID, langcode)
	if err != nil {
		return result, err
	}
	if len(payload) == 0 {
		e.appendLog(ctx, queries, req.ID, model.LogTypeError, actor,
			fmt.Sprintf("Cannot synchronise %s: the provider has not delivered a translation.", langcode))
		result.Message = "no translated payload delivered"
		return result, fmt.Errorf("request %s language %s: %w", req.ID, langcode, ErrEmptyPayload)
	}

	target, err := e.resolveTarget(ctx, req)
	if err != nil {
		return result, err
	}

	// Creating a translation must never silently promote a non-default
	// revision to default; remember the flag across the merge.
	wasDefault := target.Default
	target.SetTranslation(content.Translation{
		Langcode:         langcode,
		Fields:           e.sanitize(payload),
		SourceRevisionID: req.ContentRef.RevisionID,
	})
	target.Default = wasDefault

	forwardPublished, err := e.hasForwardPublished(ctx, target)
	if err != nil {
		return result, err
	}
	if forwardPublished {
		// A later published revision always wins as the default.
		target.Default = false
	}

	if err := e.content.SaveRevision(ctx, target); err != nil {
		e.appendLog(ctx, queries, req.ID, model.LogTypeError, actor,
			fmt.Sprintf("Synchronising %s onto revision %d failed: %v.", langcode, target.ID, err))
		result.Message = "content store rejected the write"
		return result, fmt.Errorf("saving revision %d: %w: %w", target.ID, ErrWriteFailed, err)
	}

	// The content write succeeded; status, audit trail and mapping
	// reconciliation commit together.
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("beginning sync tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	txQueries := queries.WithTx(tx)
	lc := lifecycle.NewWithQueries(txQueries, e.providers, e.logger)
	if err := lc.MarkSynchronised(ctx, req, langcode, actor); err != nil {
		return result, err
	}
	if err := txQueries.AppendRequestLog(ctx, model.LogEntry{
		RequestID: req.ID,
		Type:      model.LogTypeInfo,
		Actor:     actor,
		Message:   fmt.Sprintf("Language %s synchronised onto revision %d.", langcode, target.ID),
	}); err != nil {
		return result, err
	}
	if err := e.reconcileMapping(ctx, txQueries, target, langcode); err != nil {
		return result, err
	}
	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("committing sync tx: %w", err)
	}

	e.logger.Info("language synchronised",
		"category", model.EventCategorySync,
		"request", req.ID, "langcode", langcode, "revision", target.ID)

	result.Synchronized = true
	result.RevisionID = target.ID
	result.Message = fmt.Sprintf("synchronised onto revision %d", target.ID)
	return result, nil
}

// resolveTarget returns the revision the translation should be written to:
// the revision the request was created against, or for corporate-workflow
// content the latest revision within the same major/minor version family.
func (e *Engine) resolveTarget(ctx context.Context, req *model.TranslationRequest) (*content.Revision, error) {
	ref := req.ContentRef
	rev, err := e.content.LoadRevision(ctx, ref.EntityType, ref.EntityID, ref.RevisionID)
	if err != nil {
		return nil, fmt.Errorf("loading request revision: %w", err)
	}
	if !rev.IsCorporate() {
		return rev, nil
	}

	family, err := e.content.RevisionsInVersionFamily(ctx, ref.EntityType, ref.EntityID, rev.Major, rev.Minor)
	if err != nil {
		return nil, fmt.Errorf("loading version family %d.%d: %w", rev.Major, rev.Minor, err)
	}
	if len(family) == 0 {
		return rev, nil
	}
	return family[len(family)-1], nil
}

// hasForwardPublished reports whether any later revision of the entity is
// already published.
func (e *Engine) hasForwardPublished(ctx context.Context, target *content.Revision) (bool, error) {
	revs, err := e.content.ListRevisions(ctx, target.EntityType, target.EntityID)
	if err != nil {
		return false, fmt.Errorf("listing revisions: %w", err)
	}
	for _, rev := range revs {
		if rev.ID > target.ID && rev.Moderation == content.ModerationPublished {
			return true, nil
		}
	}
	return false, nil
}

// reconcileMapping narrows or removes the language's mapping after a
// successful write. The validated version keeps the published mapping alive
// but narrowed; the published version no longer needs one at all.
func (e *Engine) reconcileMapping(ctx context.Context, queries *store.Queries, target *content.Revision, langcode string) error {
	m, err := queries.GetMapping(ctx, target.EntityType, target.EntityID, langcode)
	if err != nil {
		return err
	}
	if m == nil {
		return nil
	}

	if target.Moderation == content.ModerationValidated {
		if m.AppliesToValidated() {
			m.Scope = model.MappingScopePublished
			if err := queries.UpsertMapping(ctx, *m); err != nil {
				return err
			}
			e.logger.Info("mapping narrowed to published scope",
				"category", model.EventCategoryMapping,
				"entity", fmt.Sprintf("%s:%d", target.EntityType, target.EntityID),
				"langcode", langcode)
		}
		return nil
	}

	if err := queries.DeleteMapping(ctx, target.EntityType, target.EntityID, langcode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	e.logger.Info("mapping removed after synchronisation",
		"category", model.EventCategoryMapping,
		"entity", fmt.Sprintf("%s:%d", target.EntityType, target.EntityID),
		"langcode", langcode)
	return nil
}

// sanitize runs every payload value through the HTML policy.
func (e *Engine) sanitize(payload map[string]string) content.FieldSet {
	fields := make(content.FieldSet, len(payload))
	for path, value := range payload {
		fields[path] = e.policy.Sanitize(value)
	}
	return fields
}

func (e *Engine) appendLog(ctx context.Context, queries *store.Queries, requestID, logType, actor, message string) {
	err := queries.AppendRequestLog(ctx, model.LogEntry{
		RequestID: requestID,
		Type:      logType,
		Actor:     actor,
		Message:   message,
	})
	if err != nil {
		e.logger.Error("appending request log failed",
			"category", model.EventCategorySync, "request", requestID, "error", err)
	}
}
