// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openeuropa/oe-translation-sub001/internal/lifecycle"
	"github.com/openeuropa/oe-translation-sub001/internal/model"
	"github.com/openeuropa/oe-translation-sub001/internal/provider"
	"github.com/openeuropa/oe-translation-sub001/internal/util"
)

// Callback DTOs. Providers address requests by their own identifier, the
// dossier reference for ePoetry and the permanent ticket ID for CDT.
type requestStatusCallback struct {
	Identifier string `json:"identifier"`
	Status     string `json:"status"`
}

type languageStatusCallback struct {
	Identifier string `json:"identifier"`
	Langcode   string `json:"langcode"`
	Status     string `json:"status"`
}

type translationCallback struct {
	Identifier string            `json:"identifier"`
	Langcode   string            `json:"langcode"`
	Payload    map[string]string `json:"payload"`
}

type fieldUpdateCallback struct {
	Identifier string `json:"identifier"`
	Field      string `json:"field"`
	Value      string `json:"value"`
}

type callbackResponse struct {
	RequestID     string `json:"request_id"`
	RequestStatus string `json:"request_status"`
}

// CallbackRequestStatus handles a provider report about the whole request.
func (h *Handler) CallbackRequestStatus(w http.ResponseWriter, r *http.Request) {
	def, ok := h.callbackProvider(w, r)
	if !ok {
		return
	}

	var dto requestStatusCallback
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if dto.Identifier == "" || dto.Status == "" {
		writeError(w, http.StatusUnprocessableEntity, "identifier and status are required")
		return
	}

	req, ok := h.resolveRequest(w, r.Context(), def.Kind, dto.Identifier)
	if !ok {
		return
	}

	actor := "provider:" + def.Kind
	if err := h.lifecycle.ApplyRequestStatus(r.Context(), req, dto.Status, actor); err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	if req.IsTerminal() {
		h.refs.Forget(r.Context(), def.Kind+":"+dto.Identifier)
	}
	respondJSON(w, http.StatusOK, callbackResponse{RequestID: req.ID, RequestStatus: req.RequestStatus})
}

// CallbackLanguageStatus handles a provider report about one target language.
func (h *Handler) CallbackLanguageStatus(w http.ResponseWriter, r *http.Request) {
	def, ok := h.callbackProvider(w, r)
	if !ok {
		return
	}

	var dto languageStatusCallback
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	langcode := util.NormalizeLangcode(dto.Langcode)
	if dto.Identifier == "" || langcode == "" || dto.Status == "" {
		writeError(w, http.StatusUnprocessableEntity, "identifier, langcode and status are required")
		return
	}

	req, ok := h.resolveRequest(w, r.Context(), def.Kind, dto.Identifier)
	if !ok {
		return
	}

	actor := "provider:" + def.Kind
	if err := h.lifecycle.ApplyLanguageStatus(r.Context(), req, langcode, dto.Status, actor); err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, callbackResponse{RequestID: req.ID, RequestStatus: req.RequestStatus})
}

// CallbackTranslation handles a delivered translation for one language. The
// payload is stored as-is; sanitization happens at synchronization time.
func (h *Handler) CallbackTranslation(w http.ResponseWriter, r *http.Request) {
	def, ok := h.callbackProvider(w, r)
	if !ok {
		return
	}

	var dto translationCallback
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	langcode := util.NormalizeLangcode(dto.Langcode)
	if dto.Identifier == "" || langcode == "" {
		writeError(w, http.StatusUnprocessableEntity, "identifier and langcode are required")
		return
	}
	if len(dto.Payload) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "payload must not be empty")
		return
	}

	ctx := r.Context()
	req, ok := h.resolveRequest(w, ctx, def.Kind, dto.Identifier)
	if !ok {
		return
	}

	// The delivery must be admissible before the payload row is touched: a
	// late redelivery for an accepted language would otherwise overwrite
	// text the reviewer already approved.
	actor := "provider:" + def.Kind
	if err := h.lifecycle.CanReceiveTranslation(req, langcode); err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	if err := h.queries.SetLanguagePayload(ctx, req.ID, langcode, dto.Payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("language %s is not part of the request", langcode))
			return
		}
		h.serverError(w, err)
		return
	}
	if err := h.lifecycle.ReceiveTranslation(ctx, req, langcode, actor); err != nil {
		h.writeLifecycleError(w, err)
		return
	}

	h.autoProgress(ctx, req, langcode, actor)
	respondJSON(w, http.StatusOK, callbackResponse{RequestID: req.ID, RequestStatus: req.RequestStatus})
}

// CallbackFieldUpdate handles a provider-side change to a request field, for
// example a postponed deadline.
func (h *Handler) CallbackFieldUpdate(w http.ResponseWriter, r *http.Request) {
	def, ok := h.callbackProvider(w, r)
	if !ok {
		return
	}

	var dto fieldUpdateCallback
	if err := decodeJSON(w, r, &dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if dto.Identifier == "" || dto.Field == "" {
		writeError(w, http.StatusUnprocessableEntity, "identifier and field are required")
		return
	}

	req, ok := h.resolveRequest(w, r.Context(), def.Kind, dto.Identifier)
	if !ok {
		return
	}

	actor := "provider:" + def.Kind
	if err := h.lifecycle.ApplyProviderField(r.Context(), req, dto.Field, dto.Value, actor); err != nil {
		h.writeLifecycleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, callbackResponse{RequestID: req.ID, RequestStatus: req.RequestStatus})
}

// autoProgress applies the request's auto-accept and auto-sync flags after a
// delivery. Failures are recorded but never bounce the callback: the provider
// already delivered, the review can still happen manually.
func (h *Handler) autoProgress(ctx context.Context, req *model.TranslationRequest, langcode, actor string) {
	if req.EPoetry == nil {
		return
	}
	if req.EPoetry.AutoAccept {
		if err := h.lifecycle.Accept(ctx, req, langcode, actor); err != nil {
			h.logger.Warn("auto-accept failed",
				"category", model.EventCategoryRequest,
				"request", req.ID, "langcode", langcode, "error", err)
			return
		}
	}
	if req.EPoetry.AutoSync {
		if _, err := h.sync.SynchronizeLanguage(ctx, req, langcode, actor); err != nil {
			h.logger.Warn("auto-sync failed",
				"category", model.EventCategorySync,
				"request", req.ID, "langcode", langcode, "error", err)
		}
	}
}

// callbackProvider resolves the {provider} URL segment against the registry.
func (h *Handler) callbackProvider(w http.ResponseWriter, r *http.Request) (*provider.Definition, bool) {
	kind := chi.URLParam(r, "provider")
	def, ok := h.providers.Get(kind)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown provider %q", kind))
		return nil, false
	}
	return def, true
}

// resolveRequest finds the request a provider identifier points at, going
// through the reference cache before hitting the store.
func (h *Handler) resolveRequest(w http.ResponseWriter, ctx context.Context, kind, identifier string) (*model.TranslationRequest, bool) {
	cacheKey := kind + ":" + identifier

	if id := h.refs.Get(ctx, cacheKey); id != "" {
		req, err := h.queries.GetRequest(ctx, id)
		if err == nil {
			return req, true
		}
		// Stale cache entry, fall through to the reference lookup.
		h.refs.Forget(ctx, cacheKey)
	}

	req, err := h.queries.GetRequestByProviderRef(ctx, kind, identifier)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no request for identifier %q", identifier))
		return nil, false
	}
	if err != nil {
		h.serverError(w, err)
		return nil, false
	}

	h.refs.Put(ctx, cacheKey, req.ID)
	return req, true
}

// writeLifecycleError maps lifecycle sentinel errors to HTTP statuses.
func (h *Handler) writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrUnknownLanguage):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrRequestTerminal),
		errors.Is(err, lifecycle.ErrInvalidTransition),
		errors.Is(err, lifecycle.ErrRequestNotFailed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, lifecycle.ErrUnknownField):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.serverError(w, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.logger.Error("request failed", "category", model.EventCategorySystem, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
