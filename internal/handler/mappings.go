// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/openeuropa/oe-translation-sub001/internal/content"
	"github.com/openeuropa/oe-translation-sub001/internal/mapping"
	"github.com/openeuropa/oe-translation-sub001/internal/model"
	"github.com/openeuropa/oe-translation-sub001/internal/util"
)

// putMappingDTO is the admin API shape for setting a language mapping.
type putMappingDTO struct {
	RevisionID int64  `json:"revision_id,omitempty"`
	Hidden     bool   `json:"hidden,omitempty"`
	Scope      string `json:"scope"`
}

// GetMapping returns the stored mapping for a language, 404 when none exists.
func (h *Handler) GetMapping(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, langcode, ok := h.mappingParams(w, r)
	if !ok {
		return
	}

	m, err := h.resolver.Get(r.Context(), entityType, entityID, langcode)
	if err != nil {
		h.serverError(w, err)
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no mapping for %s", langcode))
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// PutMapping creates or replaces a language mapping.
func (h *Handler) PutMapping(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, langcode, ok := h.mappingParams(w, r)
	if !ok {
		return
	}

	var dto putMappingDTO
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if dto.Scope == "" {
		dto.Scope = model.MappingScopePublished
	}

	err := h.resolver.Set(r.Context(), entityType, entityID, langcode, dto.RevisionID, dto.Hidden, dto.Scope)
	if err != nil {
		switch {
		case errors.Is(err, mapping.ErrBadScope),
			errors.Is(err, mapping.ErrSelfMapping),
			errors.Is(err, mapping.ErrNoTranslation):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, content.ErrRevisionNotFound), errors.Is(err, content.ErrEntityNotFound):
			writeError(w, http.StatusNotFound, "revision not found")
		default:
			h.serverError(w, err)
		}
		return
	}

	m, err := h.resolver.Get(r.Context(), entityType, entityID, langcode)
	if err != nil {
		h.serverError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, m)
}

// DeleteMapping removes a language mapping.
func (h *Handler) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, langcode, ok := h.mappingParams(w, r)
	if !ok {
		return
	}

	err := h.resolver.Remove(r.Context(), entityType, entityID, langcode)
	if errors.Is(err, mapping.ErrNoMapping) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.serverError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MappingOptions lists the revisions a language could be mapped to.
func (h *Handler) MappingOptions(w http.ResponseWriter, r *http.Request) {
	entityType, entityID, langcode, ok := h.mappingParams(w, r)
	if !ok {
		return
	}

	options, err := h.resolver.VersionOptions(r.Context(), entityType, entityID, langcode)
	if err != nil {
		if errors.Is(err, content.ErrEntityNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		h.serverError(w, err)
		return
	}
	if options == nil {
		options = []mapping.VersionOption{}
	}
	respondJSON(w, http.StatusOK, options)
}

func (h *Handler) mappingParams(w http.ResponseWriter, r *http.Request) (string, int64, string, bool) {
	entityType := chi.URLParam(r, "type")
	entityID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "entity ID must be numeric")
		return "", 0, "", false
	}
	langcode := util.NormalizeLangcode(chi.URLParam(r, "langcode"))
	if langcode == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid language code")
		return "", 0, "", false
	}
	return entityType, entityID, langcode, true
}
