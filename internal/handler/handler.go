// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the HTTP surface: the provider callback ingress,
// the admin JSON API and health endpoints.
package handler

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openeuropa/oe-translation-sub001/internal/allocator"
	"github.com/openeuropa/oe-translation-sub001/internal/cache"
	"github.com/openeuropa/oe-translation-sub001/internal/content"
	"github.com/openeuropa/oe-translation-sub001/internal/lifecycle"
	"github.com/openeuropa/oe-translation-sub001/internal/mapping"
	"github.com/openeuropa/oe-translation-sub001/internal/middleware"
	"github.com/openeuropa/oe-translation-sub001/internal/provider"
	"github.com/openeuropa/oe-translation-sub001/internal/store"
	"github.com/openeuropa/oe-translation-sub001/internal/synchronizer"
)

// Handler carries the dependencies of all HTTP endpoints.
type Handler struct {
	db        *sql.DB
	queries   *store.Queries
	lifecycle *lifecycle.Engine
	sync      *synchronizer.Engine
	allocator *allocator.Allocator
	resolver  *mapping.Resolver
	providers *provider.Registry
	refs      *cache.ReferenceCache
	content   content.Store
	logger    *slog.Logger
}

// Options bundles the dependencies for New.
type Options struct {
	DB        *sql.DB
	Lifecycle *lifecycle.Engine
	Sync      *synchronizer.Engine
	Allocator *allocator.Allocator
	Resolver  *mapping.Resolver
	Providers *provider.Registry
	Refs      *cache.ReferenceCache
	Content   content.Store
	Logger    *slog.Logger
}

// New creates the HTTP handler set.
func New(opts Options) *Handler {
	return &Handler{
		db:        opts.DB,
		queries:   store.New(opts.DB),
		lifecycle: opts.Lifecycle,
		sync:      opts.Sync,
		allocator: opts.Allocator,
		resolver:  opts.Resolver,
		providers: opts.Providers,
		refs:      opts.Refs,
		content:   opts.Content,
		logger:    opts.Logger,
	}
}

// Routes mounts all endpoints on a fresh router. The callback ingress is
// rate-limited and key-authenticated; the admin API carries a timeout.
func (h *Handler) Routes(apiKey string) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", h.Health)
	r.Get("/health/live", h.HealthLive)
	r.Get("/health/ready", h.HealthReady)

	limiter := middleware.NewIPRateLimiter(20, 40)
	r.Route("/callback/{provider}", func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Use(middleware.APIKeyAuth(apiKey))
		r.Post("/request-status", h.CallbackRequestStatus)
		r.Post("/language-status", h.CallbackLanguageStatus)
		r.Post("/translation", h.CallbackTranslation)
		r.Post("/field", h.CallbackFieldUpdate)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Post("/requests", h.CreateRequest)
		r.Get("/requests/{id}", h.GetRequest)
		r.Get("/requests/{id}/log", h.GetRequestLog)
		r.Post("/requests/{id}/languages/{langcode}/accept", h.AcceptLanguage)
		r.Post("/requests/{id}/languages/{langcode}/synchronize", h.SynchronizeLanguage)
		r.Post("/requests/{id}/reopen", h.ReopenRequest)
		r.Post("/requests/{id}/close", h.CloseRequest)

		r.Route("/content/{type}/{id}/mappings", func(r chi.Router) {
			r.Get("/{langcode}", h.GetMapping)
			r.Put("/{langcode}", h.PutMapping)
			r.Delete("/{langcode}", h.DeleteMapping)
			r.Get("/{langcode}/options", h.MappingOptions)
		})
	})

	return r
}
