// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"

	"github.com/openeuropa/oe-translation-sub001/internal/version"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health reports overall service health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Version: version.Get()})
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: version.Get()})
}

// HealthLive is the liveness probe: the process answers, nothing else.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: version.Get()})
}

// HealthReady is the readiness probe: the database must answer.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready", Version: version.Get()})
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{Status: "ready", Version: version.Get()})
}
