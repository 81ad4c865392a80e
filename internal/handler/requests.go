// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openeuropa/oe-translation-sub001/internal/content"
	"github.com/openeuropa/oe-translation-sub001/internal/model"
	"github.com/openeuropa/oe-translation-sub001/internal/store"
	"github.com/openeuropa/oe-translation-sub001/internal/synchronizer"
	"github.com/openeuropa/oe-translation-sub001/internal/util"
)

// createRequestDTO is the admin API shape for a new translation request.
type createRequestDTO struct {
	Provider        string   `json:"provider"`
	EntityType      string   `json:"entity_type"`
	EntityID        int64    `json:"entity_id"`
	RevisionID      int64    `json:"revision_id"`
	SourceLanguage  string   `json:"source_language"`
	TargetLanguages []string `json:"target_languages"`
	Deadline        string   `json:"deadline,omitempty"` // RFC 3339
	ContactEmail    string   `json:"contact_email,omitempty"`
	AutoAccept      bool     `json:"auto_accept,omitempty"`
	AutoSync        bool     `json:"auto_sync,omitempty"`
	Comments        string   `json:"comments,omitempty"`
}

// CreateRequest creates a translation request, allocates the dossier
// identifier for ePoetry requests and submits the order to the provider.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var dto createRequestDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	def, ok := h.providers.Get(dto.Provider)
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("unknown provider %q", dto.Provider))
		return
	}

	source := util.NormalizeLangcode(dto.SourceLanguage)
	if source == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid source language")
		return
	}
	targets := make([]string, 0, len(dto.TargetLanguages))
	for _, raw := range dto.TargetLanguages {
		langcode := util.NormalizeLangcode(raw)
		if langcode == "" {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid target language %q", raw))
			return
		}
		targets = append(targets, langcode)
	}

	var deadline sql.NullTime
	if dto.Deadline != "" {
		t, err := time.Parse(time.RFC3339, dto.Deadline)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "deadline must be RFC 3339")
			return
		}
		deadline = sql.NullTime{Time: t, Valid: true}
	}

	ctx := r.Context()
	rev, err := h.content.LoadRevision(ctx, dto.EntityType, dto.EntityID, dto.RevisionID)
	if err != nil {
		if errors.Is(err, content.ErrRevisionNotFound) || errors.Is(err, content.ErrEntityNotFound) {
			writeError(w, http.StatusNotFound, "content revision not found")
			return
		}
		h.serverError(w, err)
		return
	}

	req := &model.TranslationRequest{
		ID:           uuid.NewString(),
		ProviderKind: def.Kind,
		ContentRef: model.ContentRef{
			EntityType: dto.EntityType,
			EntityID:   dto.EntityID,
			RevisionID: dto.RevisionID,
		},
		SourceLanguage: source,
		RequestStatus:  model.RequestStatusRequested,
	}
	for i, langcode := range targets {
		req.Languages = append(req.Languages, model.LanguageJob{
			RequestID: req.ID,
			Langcode:  langcode,
			Status:    model.LanguageStatusRequested,
			Weight:    i,
		})
	}

	var ident model.Identifier
	switch def.Kind {
	case model.ProviderEPoetry:
		var err error
		ident, err = h.allocator.Allocate(ctx, dto.EntityType, dto.EntityID)
		if err != nil {
			h.serverError(w, err)
			return
		}
		req.EPoetry = &model.EPoetryState{
			Code:         ident.Code,
			Year:         ident.Year,
			Number:       ident.Number,
			Part:         ident.Part,
			Version:      ident.Version,
			Deadline:     deadline,
			ContactEmail: dto.ContactEmail,
			AutoAccept:   dto.AutoAccept,
			AutoSync:     dto.AutoSync,
			ProviderRef:  ident.String(),
			// The document travels to the provider under a stable ASCII name
			// derived from the content title.
			FileReference: fmt.Sprintf("%s-%s.html", util.Slugify(rev.Title), source),
		}
	case model.ProviderCDT:
		req.CDT = &model.CDTState{
			CorrelationID: uuid.NewString(),
			Deadline:      deadline,
			Comments:      dto.Comments,
		}
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ack, err := def.Client.Submit(ctx, req)
	if err != nil {
		h.logger.Error("provider submission failed",
			"category", model.EventCategoryProvider,
			"provider", def.Kind, "request", req.ID, "error", err)
		writeError(w, http.StatusBadGateway, "provider rejected the submission")
		return
	}

	switch def.Kind {
	case model.ProviderEPoetry:
		jobID, err := h.allocator.RecordJob(ctx, dto.EntityType, dto.EntityID, ident)
		if err != nil {
			h.serverError(w, err)
			return
		}
		if ident.IsSequenced() && ack.Number != "" {
			if err := h.allocator.GrantNumber(ctx, jobID, ack.Number); err != nil {
				h.serverError(w, err)
				return
			}
			req.EPoetry.Number = ack.Number
			req.EPoetry.ProviderRef = model.Identifier{
				Code:    ident.Code,
				Year:    ident.Year,
				Number:  ack.Number,
				Part:    ident.Part,
				Version: ident.Version,
			}.String()
		}
		if ack.Reference != "" {
			req.EPoetry.ProviderRef = ack.Reference
		}
		if err := h.allocator.FinishJob(ctx, jobID); err != nil {
			h.serverError(w, err)
			return
		}
	case model.ProviderCDT:
		req.CDT.PermanentID = ack.Reference
	}

	err = h.queries.CreateRequest(ctx, store.CreateRequestParams{
		ID:             req.ID,
		ProviderKind:   req.ProviderKind,
		EntityType:     req.ContentRef.EntityType,
		EntityID:       req.ContentRef.EntityID,
		RevisionID:     req.ContentRef.RevisionID,
		SourceLanguage: req.SourceLanguage,
		ProviderRef:    req.ProviderReference(),
		EPoetry:        req.EPoetry,
		CDT:            req.CDT,
		Langcodes:      targets,
	})
	if err != nil {
		h.serverError(w, err)
		return
	}

	if err := h.queries.AppendRequestLog(ctx, model.LogEntry{
		RequestID: req.ID,
		Type:      model.LogTypeInfo,
		Actor:     "admin",
		Message:   fmt.Sprintf("Request submitted to %s as %s.", def.Name, req.ProviderReference()),
	}); err != nil {
		h.serverError(w, err)
		return
	}

	h.refs.Put(ctx, def.Kind+":"+req.ProviderReference(), req.ID)
	h.logger.Info("translation request created",
		"category", model.EventCategoryRequest,
		"request", req.ID, "provider", def.Kind,
		"reference", req.ProviderReference(), "languages", len(targets))

	respondJSON(w, http.StatusCreated, req)
}

// GetRequest returns one request with its language jobs.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadRequest(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// GetRequestLog returns the append-only audit trail of a request.
func (h *Handler) GetRequestLog(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadRequest(w, r)
	if !ok {
		return
	}
	entries, err := h.queries.ListRequestLog(r.Context(), req.ID)
	if err != nil {
		h.serverError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// AcceptLanguage moves a delivered language from review to accepted.
func (h *Handler) AcceptLanguage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadRequest(w, r)
	if !ok {
		return
	}
	langcode := util.NormalizeLangcode(chi.URLParam(r, "langcode"))
	if err := h.lifecycle.Accept(r.Context(), req, langcode, "admin"); err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// SynchronizeLanguage commits the delivered translation for one language.
func (h *Handler) SynchronizeLanguage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadRequest(w, r)
	if !ok {
		return
	}
	langcode := util.NormalizeLangcode(chi.URLParam(r, "langcode"))
	result, err := h.sync.SynchronizeLanguage(r.Context(), req, langcode, "admin")
	if err != nil {
		switch {
		case errors.Is(err, synchronizer.ErrEmptyPayload):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, synchronizer.ErrWriteFailed):
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			h.writeLifecycleError(w, err)
		}
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ReopenRequest resets non-terminal languages to requested after a new
// content version was submitted mid-flight.
func (h *Handler) ReopenRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadRequest(w, r)
	if !ok {
		return
	}
	if err := h.lifecycle.Reopen(r.Context(), req, "admin"); err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// CloseRequest finishes a failed request so a new one can be created.
func (h *Handler) CloseRequest(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadRequest(w, r)
	if !ok {
		return
	}
	if err := h.lifecycle.Close(r.Context(), req, "admin"); err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

// loadRequest loads the request named by the {id} URL segment.
func (h *Handler) loadRequest(w http.ResponseWriter, r *http.Request) (*model.TranslationRequest, bool) {
	id := chi.URLParam(r, "id")
	req, err := h.queries.GetRequest(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("request %q not found", id))
		return nil, false
	}
	if err != nil {
		h.serverError(w, err)
		return nil, false
	}
	return req, true
}
