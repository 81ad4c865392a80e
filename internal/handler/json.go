// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openeuropa/oe-translation-sub001/internal/middleware"
)

// maxBodySize caps JSON request bodies at 2 MiB. Delivered translations are
// field trees of HTML fragments, well below that.
const maxBodySize = 2 << 20

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// A single JSON value per body.
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// respondJSON writes v as a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError delegates to the shared API error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	middleware.WriteAPIError(w, status, message)
}
