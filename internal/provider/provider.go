// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package provider describes the external translation providers a request can
// be sent to: their identity, their outbound client and the normalization
// tables that map provider wire statuses onto internal statuses.
package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/openeuropa/oe-translation-sub001/internal/model"
)

// Acknowledgement is what an outbound submission returns. Reference is the
// provider's key for the request in later callbacks; Number is only set when
// a sequenced ePoetry allocation was granted a fresh dossier number.
type Acknowledgement struct {
	Reference string
	Number    string
}

// Client submits a formatted request to a provider. Transport and document
// formatting live outside this core; the engine only consumes the
// acknowledgement.
type Client interface {
	Submit(ctx context.Context, req *model.TranslationRequest) (Acknowledgement, error)
}

// ErrNoLiveTransport is returned when dry-run mode is disabled: no live
// SOAP/REST transport ships in this binary.
var ErrNoLiveTransport = errors.New("no live provider transport is built in")

// NewClient returns the submission client for the configured mode. Disabling
// dry-run without a live transport is refused at startup so fabricated
// acknowledgements can never pass for real submissions.
func NewClient(dryRun bool) (Client, error) {
	if !dryRun {
		return nil, ErrNoLiveTransport
	}
	return NewDryRunClient(), nil
}

// Definition binds a provider kind to its client and normalization tables.
type Definition struct {
	Kind             string
	Name             string
	Client           Client
	RequestStatuses  map[string]string // provider code -> aggregate status
	LanguageStatuses map[string]string // provider code -> language status
}

// NormalizeRequestStatus maps a provider's request status code onto an
// internal aggregate status. The second return is false for unknown codes;
// callers treat those as a protocol anomaly and fall back to "requested".
func (d *Definition) NormalizeRequestStatus(code string) (string, bool) {
	status, ok := d.RequestStatuses[code]
	return status, ok
}

// NormalizeLanguageStatus maps a provider's language status code onto an
// internal per-language status.
func (d *Definition) NormalizeLanguageStatus(code string) (string, bool) {
	status, ok := d.LanguageStatuses[code]
	return status, ok
}

// Registry manages provider registration and lookup.
type Registry struct {
	mu     sync.RWMutex
	defs   map[string]*Definition
	order  []string
	logger *slog.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		defs:   make(map[string]*Definition),
		logger: logger,
	}
}

// Register adds a provider definition to the registry.
func (r *Registry) Register(d *Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[d.Kind]; exists {
		return fmt.Errorf("provider %q already registered", d.Kind)
	}
	r.defs[d.Kind] = d
	r.order = append(r.order, d.Kind)
	r.logger.Info("provider registered", "kind", d.Kind, "name", d.Name)
	return nil
}

// Get returns a provider definition by kind.
func (r *Registry) Get(kind string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.defs[kind]
	return d, ok
}

// List returns all registered providers in registration order.
func (r *Registry) List() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Definition, 0, len(r.order))
	for _, kind := range r.order {
		out = append(out, r.defs[kind])
	}
	return out
}
