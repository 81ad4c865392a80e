// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package lifecycle implements the translation request state machine: the
// per-language transitions, the derived aggregate status and the append-only
// audit trail every change leaves behind.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openeuropa/oe-translation-sub001/internal/model"
	"github.com/openeuropa/oe-translation-sub001/internal/provider"
	"github.com/openeuropa/oe-translation-sub001/internal/store"
)

// Errors returned by lifecycle operations.
var (
	ErrUnknownLanguage   = errors.New("language not targeted by request")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrRequestTerminal   = errors.New("request is in a terminal status")
	ErrRequestNotFailed  = errors.New("request is not in failed status")
	ErrUnknownProvider   = errors.New("provider kind not registered")
)

// Engine applies status changes to requests and keeps the audit trail.
type Engine struct {
	queries   *store.Queries
	providers *provider.Registry
	logger    *slog.Logger
}

// New creates a lifecycle engine.
func New(db *sql.DB, providers *provider.Registry, logger *slog.Logger) *Engine {
	return &Engine{
		queries:   store.New(db),
		providers: providers,
		logger:    logger,
	}
}

// NewWithQueries creates a lifecycle engine on an existing query layer.
// The synchronization engine uses this to share a transaction.
func NewWithQueries(queries *store.Queries, providers *provider.Registry, logger *slog.Logger) *Engine {
	return &Engine{
		queries:   queries,
		providers: providers,
		logger:    logger,
	}
}

// AggregateStatus derives the aggregate request status from the language
// statuses. Cancelled languages no longer participate; a request whose
// languages were all cancelled counts as finished.
func AggregateStatus(langs []model.LanguageJob) string {
	live := 0
	synchronised := 0
	reviewed := 0
	for _, lang := range langs {
		if lang.Status == model.LanguageStatusCancelled {
			continue
		}
		live++
		switch lang.Status {
		case model.LanguageStatusSynchronised:
			synchronised++
			reviewed++
		case model.LanguageStatusReview, model.LanguageStatusAccepted:
			reviewed++
		}
	}
	switch {
	case live == 0 || synchronised == live:
		return model.RequestStatusFinished
	case reviewed == live:
		return model.RequestStatusTranslated
	default:
		return model.RequestStatusRequested
	}
}

// languageTransitions enumerates the forward edges of the per-language state
// machine. Reopen is the only way back to requested and is handled separately.
var languageTransitions = map[string][]string{
	model.LanguageStatusRequested: {
		model.LanguageStatusReview,
		model.LanguageStatusCancelled,
	},
	model.LanguageStatusReview: {
		model.LanguageStatusAccepted,
		model.LanguageStatusSynchronised,
		model.LanguageStatusCancelled,
	},
	model.LanguageStatusAccepted: {
		model.LanguageStatusSynchronised,
		model.LanguageStatusCancelled,
	},
}

// CanTransition reports whether a language may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range languageTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ApplyLanguageStatus normalizes a provider-reported language status code and
// applies it. Unknown codes and backward transitions never fail the callback:
// they are normalized or ignored, and the anomaly is logged.
func (e *Engine) ApplyLanguageStatus(ctx context.Context, req *model.TranslationRequest, langcode, providerCode, actor string) error {
	if req.IsTerminal() {
		return fmt.Errorf("request %s: %w", req.ID, ErrRequestTerminal)
	}
	lang := req.Language(langcode)
	if lang == nil {
		return fmt.Errorf("request %s language %s: %w", req.ID, langcode, ErrUnknownLanguage)
	}

	def, ok := e.providers.Get(req.ProviderKind)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, req.ProviderKind)
	}

	status, known := def.NormalizeLanguageStatus(providerCode)
	if !known {
		status = model.LanguageStatusRequested
		e.logger.Warn("unknown provider language status",
			"category", model.EventCategoryProvider,
			"request", req.ID, "langcode", langcode,
			"provider", req.ProviderKind, "code", providerCode)
		e.appendLog(ctx, req.ID, model.LogTypeWarning, actor,
			fmt.Sprintf("Provider sent unknown status code %q for %s, treated as %s.", providerCode, langcode, status))
	}

	if status == lang.Status {
		return nil
	}
	if !CanTransition(lang.Status, status) {
		e.logger.Warn("out-of-order language status ignored",
			"category", model.EventCategoryProvider,
			"request", req.ID, "langcode", langcode,
			"current", lang.Status, "reported", status)
		e.appendLog(ctx, req.ID, model.LogTypeWarning, actor,
			fmt.Sprintf("Ignored out-of-order status %s for %s (currently %s).", status, langcode, lang.Status))
		return nil
	}

	return e.setLanguageStatus(ctx, req, lang, status, actor)
}

// Accept moves a language from review to accepted on explicit reviewer action.
func (e *Engine) Accept(ctx context.Context, req *model.TranslationRequest, langcode, actor string) error {
	lang := req.Language(langcode)
	if lang == nil {
		return fmt.Errorf("request %s language %s: %w", req.ID, langcode, ErrUnknownLanguage)
	}
	if lang.Status != model.LanguageStatusReview {
		return fmt.Errorf("%s is %s, not %s: %w", langcode, lang.Status, model.LanguageStatusReview, ErrInvalidTransition)
	}
	return e.setLanguageStatus(ctx, req, lang, model.LanguageStatusAccepted, actor)
}

// CanReceiveTranslation reports whether a provider delivery for langcode may
// be stored: only a first delivery (requested) or a redelivery of a pending
// review is allowed. Once a reviewer accepted the text, a late delivery must
// not replace it. Callers check this before persisting the payload so a
// rejected delivery leaves no trace.
func (e *Engine) CanReceiveTranslation(req *model.TranslationRequest, langcode string) error {
	lang := req.Language(langcode)
	if lang == nil {
		return fmt.Errorf("request %s language %s: %w", req.ID, langcode, ErrUnknownLanguage)
	}
	if lang.Status == model.LanguageStatusReview {
		return nil
	}
	if !CanTransition(lang.Status, model.LanguageStatusReview) {
		return fmt.Errorf("%s is %s: %w", langcode, lang.Status, ErrInvalidTransition)
	}
	return nil
}

// ReceiveTranslation moves a language to review after the provider delivered
// its translation. A repeated delivery for a language already in review is
// recorded but changes nothing.
func (e *Engine) ReceiveTranslation(ctx context.Context, req *model.TranslationRequest, langcode, actor string) error {
	if err := e.CanReceiveTranslation(req, langcode); err != nil {
		return err
	}
	lang := req.Language(langcode)
	if lang.Status == model.LanguageStatusReview {
		e.appendLog(ctx, req.ID, model.LogTypeInfo, actor,
			fmt.Sprintf("Provider delivered %s again, replacing the pending translation.", langcode))
		return nil
	}
	return e.setLanguageStatus(ctx, req, lang, model.LanguageStatusReview, actor)
}

// MarkSynchronised moves a language to synchronised. The synchronization
// engine calls this after the translation was committed to the content store.
// Reviewers may synchronize straight from review, skipping acceptance.
func (e *Engine) MarkSynchronised(ctx context.Context, req *model.TranslationRequest, langcode, actor string) error {
	lang := req.Language(langcode)
	if lang == nil {
		return fmt.Errorf("request %s language %s: %w", req.ID, langcode, ErrUnknownLanguage)
	}
	if !CanTransition(lang.Status, model.LanguageStatusSynchronised) {
		return fmt.Errorf("%s is %s: %w", langcode, lang.Status, ErrInvalidTransition)
	}
	return e.setLanguageStatus(ctx, req, lang, model.LanguageStatusSynchronised, actor)
}

// Reopen resets all non-terminal languages to requested. It is used when a
// new content version is submitted while translation is still ongoing.
func (e *Engine) Reopen(ctx context.Context, req *model.TranslationRequest, actor string) error {
	if req.IsTerminal() {
		return fmt.Errorf("request %s: %w", req.ID, ErrRequestTerminal)
	}
	for i := range req.Languages {
		lang := &req.Languages[i]
		if lang.IsTerminal() || lang.Status == model.LanguageStatusRequested {
			continue
		}
		if err := e.queries.UpdateLanguageStatus(ctx, req.ID, lang.Langcode, model.LanguageStatusRequested); err != nil {
			return err
		}
		lang.Status = model.LanguageStatusRequested
	}
	e.appendLog(ctx, req.ID, model.LogTypeInfo, actor, "Request reopened for a new content version.")
	return e.recomputeAggregate(ctx, req, actor)
}

// ApplyRequestStatus normalizes a provider-reported request status. Only the
// failed override mutates the aggregate directly; everything else is derived
// from language statuses and the report is merely recorded.
func (e *Engine) ApplyRequestStatus(ctx context.Context, req *model.TranslationRequest, providerCode, actor string) error {
	if req.IsTerminal() {
		return fmt.Errorf("request %s: %w", req.ID, ErrRequestTerminal)
	}
	def, ok := e.providers.Get(req.ProviderKind)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, req.ProviderKind)
	}

	status, known := def.NormalizeRequestStatus(providerCode)
	if !known {
		e.logger.Warn("unknown provider request status",
			"category", model.EventCategoryProvider,
			"request", req.ID, "provider", req.ProviderKind, "code", providerCode)
		e.appendLog(ctx, req.ID, model.LogTypeWarning, actor,
			fmt.Sprintf("Provider sent unknown request status code %q, ignored.", providerCode))
		return nil
	}

	if status == model.RequestStatusFailed {
		if err := e.queries.UpdateRequestStatus(ctx, req.ID, model.RequestStatusFailed); err != nil {
			return err
		}
		req.RequestStatus = model.RequestStatusFailed
		e.appendLog(ctx, req.ID, model.LogTypeError, actor,
			fmt.Sprintf("Provider reported the request as failed (code %s).", providerCode))
		return nil
	}

	e.appendLog(ctx, req.ID, model.LogTypeInfo, actor,
		fmt.Sprintf("Provider reported request status %s (code %s).", status, providerCode))
	return nil
}

// Close moves a failed request to failed-and-finished so a new request can be
// created for the same content. Administrator action only.
func (e *Engine) Close(ctx context.Context, req *model.TranslationRequest, actor string) error {
	if req.RequestStatus != model.RequestStatusFailed {
		return fmt.Errorf("request %s is %s: %w", req.ID, req.RequestStatus, ErrRequestNotFailed)
	}
	if err := e.queries.UpdateRequestStatus(ctx, req.ID, model.RequestStatusFailedFinished); err != nil {
		return err
	}
	req.RequestStatus = model.RequestStatusFailedFinished
	e.appendLog(ctx, req.ID, model.LogTypeInfo, actor, "Failed request closed out by administrator.")
	return nil
}

func (e *Engine) setLanguageStatus(ctx context.Context, req *model.TranslationRequest, lang *model.LanguageJob, status, actor string) error {
	previous := lang.Status
	if err := e.queries.UpdateLanguageStatus(ctx, req.ID, lang.Langcode, status); err != nil {
		return err
	}
	lang.Status = status
	e.appendLog(ctx, req.ID, model.LogTypeInfo, actor,
		fmt.Sprintf("Language %s moved from %s to %s.", lang.Langcode, previous, status))
	return e.recomputeAggregate(ctx, req, actor)
}

func (e *Engine) recomputeAggregate(ctx context.Context, req *model.TranslationRequest, actor string) error {
	// Failed overrides are sticky; language changes never resurrect a failed request.
	if req.RequestStatus == model.RequestStatusFailed || req.RequestStatus == model.RequestStatusFailedFinished {
		return nil
	}
	aggregate := AggregateStatus(req.Languages)
	if aggregate == req.RequestStatus {
		return nil
	}
	if err := e.queries.UpdateRequestStatus(ctx, req.ID, aggregate); err != nil {
		return err
	}
	previous := req.RequestStatus
	req.RequestStatus = aggregate
	e.appendLog(ctx, req.ID, model.LogTypeInfo, actor,
		fmt.Sprintf("Request status moved from %s to %s.", previous, aggregate))
	return nil
}

func (e *Engine) appendLog(ctx context.Context, requestID, logType, actor, message string) {
	err := e.queries.AppendRequestLog(ctx, model.LogEntry{
		RequestID: requestID,
		Type:      logType,
		Actor:     actor,
		Message:   message,
	})
	if err != nil {
		e.logger.Error("appending request log failed",
			"category", model.EventCategoryRequest, "request", requestID, "error", err)
	}
}
