// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openeuropa/oe-translation-sub001/internal/model"
)

// ErrUnknownField is returned when a callback tries to update a provider
// field that is not enumerated below.
var ErrUnknownField = errors.New("unknown provider field")

// FieldUpdate describes one updatable provider-state field: how to apply a
// new value and how the change reads in the audit trail. Enumerating the
// fields keeps the set of valid updates and their log phrasing static.
type FieldUpdate struct {
	Name   string
	Phrase string // fmt pattern with one %s for the new value
	Apply  func(req *model.TranslationRequest, value string) error
}

// providerFieldUpdates enumerates every provider-state field a callback may change.
var providerFieldUpdates = map[string]FieldUpdate{
	"deadline": {
		Name:   "deadline",
		Phrase: "Provider updated the translation deadline to %s.",
		Apply: func(req *model.TranslationRequest, value string) error {
			deadline, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return fmt.Errorf("parsing deadline: %w", err)
			}
			switch {
			case req.EPoetry != nil:
				req.EPoetry.Deadline.Time = deadline
				req.EPoetry.Deadline.Valid = true
			case req.CDT != nil:
				req.CDT.Deadline.Time = deadline
				req.CDT.Deadline.Valid = true
			}
			return nil
		},
	},
	"contact_email": {
		Name:   "contact_email",
		Phrase: "Provider updated the contact address to %s.",
		Apply: func(req *model.TranslationRequest, value string) error {
			if req.EPoetry == nil {
				return errors.New("contact address only applies to ePoetry requests")
			}
			req.EPoetry.ContactEmail = value
			return nil
		},
	},
	"comments": {
		Name:   "comments",
		Phrase: "Provider attached a comment: %s",
		Apply: func(req *model.TranslationRequest, value string) error {
			if req.CDT == nil {
				return errors.New("comments only apply to CDT requests")
			}
			req.CDT.Comments = value
			return nil
		},
	},
}

// UpdatableFields returns the names of the enumerated provider fields, sorted.
func UpdatableFields() []string {
	names := make([]string, 0, len(providerFieldUpdates))
	for name := range providerFieldUpdates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyProviderField updates one enumerated provider-state field, persists the
// new state and records the change in the audit trail.
func (e *Engine) ApplyProviderField(ctx context.Context, req *model.TranslationRequest, field, value, actor string) error {
	if req.IsTerminal() {
		return fmt.Errorf("request %s: %w", req.ID, ErrRequestTerminal)
	}
	update, ok := providerFieldUpdates[field]
	if !ok {
		return fmt.Errorf("%w: %q (updatable: %s)", ErrUnknownField, field, strings.Join(UpdatableFields(), ", "))
	}
	if err := update.Apply(req, value); err != nil {
		return fmt.Errorf("applying %s: %w", field, err)
	}
	if err := e.queries.UpdateProviderState(ctx, req); err != nil {
		return err
	}
	e.appendLog(ctx, req.ID, model.LogTypeInfo, actor, fmt.Sprintf(update.Phrase, value))
	return nil
}
