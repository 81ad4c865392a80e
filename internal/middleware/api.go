// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware contains HTTP middleware shared by the callback and
// admin API surfaces.
package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

// APIError is the JSON error envelope every API surface returns.
type APIError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// WriteAPIError writes a JSON error response with the given status code.
func WriteAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIError{Error: message, Code: status})
}

// APIKeyAuth returns middleware that requires the X-API-Key header to match
// the configured key. Provider callbacks authenticate with a shared key.
func APIKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-API-Key")
			if got == "" {
				WriteAPIError(w, http.StatusUnauthorized, "missing API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				WriteAPIError(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
