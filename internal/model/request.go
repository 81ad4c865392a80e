// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the data model shared by the store, the lifecycle
// engine and the HTTP surface.
package model

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Provider kinds
const (
	ProviderEPoetry = "epoetry"
	ProviderCDT     = "cdt"
)

// Per-language statuses
const (
	LanguageStatusRequested    = "requested"
	LanguageStatusReview       = "review"
	LanguageStatusAccepted     = "accepted"
	LanguageStatusSynchronised = "synchronised"
	LanguageStatusCancelled    = "cancelled"
)

// Aggregate request statuses
const (
	RequestStatusRequested      = "requested"
	RequestStatusTranslated     = "translated"
	RequestStatusFinished       = "finished"
	RequestStatusFailed         = "failed"
	RequestStatusFailedFinished = "failed_finished"
)

// ContentRef points at the content revision a request was created against.
// It is immutable once the request has been sent to a provider.
type ContentRef struct {
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	RevisionID int64  `json:"revision_id"`
}

// String returns the canonical "type:id:revision" form used in log entries.
func (r ContentRef) String() string {
	return fmt.Sprintf("%s:%d:%d", r.EntityType, r.EntityID, r.RevisionID)
}

// LanguageJob is the per-target-language progress record of a request.
type LanguageJob struct {
	RequestID string    `json:"request_id"`
	Langcode  string    `json:"langcode"`
	Status    string    `json:"status"`
	Weight    int       `json:"weight"` // preserves the submission order
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal returns true when the language can no longer move forward.
func (j LanguageJob) IsTerminal() bool {
	return j.Status == LanguageStatusSynchronised || j.Status == LanguageStatusCancelled
}

// EPoetryState carries the ePoetry-specific fields of a request. The core
// state machine never interprets these beyond logging; the allocator owns the
// dossier numbering.
type EPoetryState struct {
	Code          string       `json:"code"`
	Year          int          `json:"year"`
	Number        string       `json:"number"` // empty until the provider grants one
	Part          int          `json:"part"`
	Version       int          `json:"version"`
	Deadline      sql.NullTime `json:"deadline"`
	ContactEmail  string       `json:"contact_email"`
	AutoAccept    bool         `json:"auto_accept"`
	AutoSync      bool         `json:"auto_sync"`
	ProviderRef   string       `json:"provider_ref"`   // dossier reference echoed in callbacks
	FileReference string       `json:"file_reference"` // name the content is transmitted under
	PreviousReqID string       `json:"previous_request_id"`
}

// CDTState carries the CDT-specific fields of a request.
type CDTState struct {
	PermanentID   string       `json:"permanent_id"`
	CorrelationID string       `json:"correlation_id"`
	Deadline      sql.NullTime `json:"deadline"`
	Comments      string       `json:"comments"`
}

// TranslationRequest is a translation order covering one source language and
// one or more target languages for one content revision. Exactly one of the
// provider variants is set, matching ProviderKind.
type TranslationRequest struct {
	ID             string        `json:"id"`
	ProviderKind   string        `json:"provider_kind"`
	ContentRef     ContentRef    `json:"content_ref"`
	SourceLanguage string        `json:"source_language"`
	RequestStatus  string        `json:"request_status"`
	Languages      []LanguageJob `json:"languages"`
	EPoetry        *EPoetryState `json:"epoetry,omitempty"`
	CDT            *CDTState     `json:"cdt,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Validation errors returned by TranslationRequest.Validate.
var (
	ErrNoTargetLanguages   = errors.New("request has no target languages")
	ErrSourceIsTarget      = errors.New("source language listed as target")
	ErrDuplicateTarget     = errors.New("duplicate target language")
	ErrProviderStateWrong  = errors.New("provider state does not match provider kind")
	ErrUnknownProviderKind = errors.New("unknown provider kind")
)

// Validate checks the structural invariants of a request. It is called when a
// request is created and after provider callbacks are decoded.
func (r *TranslationRequest) Validate() error {
	if len(r.Languages) == 0 {
		return ErrNoTargetLanguages
	}
	seen := make(map[string]bool, len(r.Languages))
	for _, lang := range r.Languages {
		if lang.Langcode == r.SourceLanguage {
			return fmt.Errorf("%w: %s", ErrSourceIsTarget, lang.Langcode)
		}
		if seen[lang.Langcode] {
			return fmt.Errorf("%w: %s", ErrDuplicateTarget, lang.Langcode)
		}
		seen[lang.Langcode] = true
	}
	switch r.ProviderKind {
	case ProviderEPoetry:
		if r.EPoetry == nil || r.CDT != nil {
			return ErrProviderStateWrong
		}
	case ProviderCDT:
		if r.CDT == nil || r.EPoetry != nil {
			return ErrProviderStateWrong
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProviderKind, r.ProviderKind)
	}
	return nil
}

// Language returns the language job for langcode, or nil if the request does
// not target it.
func (r *TranslationRequest) Language(langcode string) *LanguageJob {
	for i := range r.Languages {
		if r.Languages[i].Langcode == langcode {
			return &r.Languages[i]
		}
	}
	return nil
}

// IsTerminal returns true once the request reached a final aggregate status.
// Terminal requests are append-only: only log entries may still be added.
func (r *TranslationRequest) IsTerminal() bool {
	switch r.RequestStatus {
	case RequestStatusFinished, RequestStatusFailedFinished:
		return true
	}
	return false
}

// ProviderReference returns the identifier a provider uses to refer to this
// request in callbacks: the formatted dossier reference for ePoetry, the
// permanent ticket ID for CDT, the request ID otherwise.
func (r *TranslationRequest) ProviderReference() string {
	switch {
	case r.EPoetry != nil && r.EPoetry.ProviderRef != "":
		return r.EPoetry.ProviderRef
	case r.CDT != nil && r.CDT.PermanentID != "":
		return r.CDT.PermanentID
	}
	return r.ID
}
