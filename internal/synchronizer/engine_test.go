// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package synchronizer

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/openeuropa/oe-translation-sub001/internal/content"
	"github.com/openeuropa/oe-translation-sub001/internal/lifecycle"
	"github.com/openeuropa/oe-translation-sub001/internal/model"
	"github.com/openeuropa/oe-translation-sub001/internal/provider"
	"github.com/openeuropa/oe-translation-sub001/internal/store"
	"github.com/openeuropa/oe-translation-sub001/internal/testutil"
)

type testEnv struct {
	db      *sql.DB
	queries *store.Queries
	content *content.MemoryStore
	engine  *Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, queries := testutil.TestQueries(t)
	cs := content.NewMemoryStore()

	registry := provider.NewRegistry(testutil.TestLogger())
	if err := registry.Register(provider.NewEPoetry(provider.NewDryRunClient())); err != nil {
		t.Fatalf("registering provider: %v", err)
	}

	return &testEnv{
		db:      db,
		queries: queries,
		content: cs,
		engine:  New(db, cs, registry, testutil.TestLogger()),
	}
}

// seedRequest creates a published revision and a request targeting fr, with
// the language already in review and a delivered payload.
func (env *testEnv) seedRequest(t *testing.T, moderation string) (*model.TranslationRequest, *content.Revision) {
	t.Helper()
	ctx := context.Background()

	rev := env.content.AddRevision(&content.Revision{
		EntityType: "node", EntityID: 1, Major: 1, Minor: 0,
		Title: "Hello", Moderation: moderation, Default: true,
		Fields: content.FieldSet{"title": "Hello", "body": "<p>Body</p>"},
	})

	err := env.queries.CreateRequest(ctx, store.CreateRequestParams{
		ID:             "req-sync",
		ProviderKind:   model.ProviderEPoetry,
		EntityType:     "node",
		EntityID:       1,
		RevisionID:     rev.ID,
		SourceLanguage: "en",
		ProviderRef:    "DIGIT/2026/11111/0/0",
		EPoetry:        &model.EPoetryState{Code: "DIGIT", Year: 2026, Number: "11111"},
		Langcodes:      []string{"fr"},
	})
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	err = env.queries.SetLanguagePayload(ctx, "req-sync", "fr", map[string]string{
		"title": "Bonjour", "body": "<p>Corps</p><script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("storing payload: %v", err)
	}
	if err := env.queries.UpdateLanguageStatus(ctx, "req-sync", "fr", model.LanguageStatusReview); err != nil {
		t.Fatalf("moving language to review: %v", err)
	}

	req, err := env.queries.GetRequest(ctx, "req-sync")
	if err != nil {
		t.Fatalf("loading request: %v", err)
	}
	return req, rev
}

func TestSynchronizeLanguage(t *testing.T) {
	env := newTestEnv(t)
	req, rev := env.seedRequest(t, content.ModerationPublished)
	ctx := context.Background()

	result, err := env.engine.SynchronizeLanguage(ctx, req, "fr", "reviewer")
	if err != nil {
		t.Fatalf("synchronising: %v", err)
	}
	if !result.Synchronized || result.RevisionID != rev.ID {
		t.Errorf("result = %+v, want synchronized onto %d", result, rev.ID)
	}

	stored, err := env.content.LoadRevision(ctx, "node", 1, rev.ID)
	if err != nil {
		t.Fatalf("loading revision: %v", err)
	}
	translation, ok := stored.Translation("fr")
	if !ok {
		t.Fatal("revision has no fr translation after sync")
	}
	if translation.Fields["title"] != "Bonjour" {
		t.Errorf("title = %q, want Bonjour", translation.Fields["title"])
	}
	// Delivered HTML is sanitized before the merge.
	if got := translation.Fields["body"]; got != "<p>Corps</p>" {
		t.Errorf("body = %q, want script stripped", got)
	}
	if !stored.Default {
		t.Error("default flag lost during synchronization")
	}

	if got := req.Language("fr").Status; got != model.LanguageStatusSynchronised {
		t.Errorf("language status = %q, want synchronised", got)
	}
	if req.RequestStatus != model.RequestStatusFinished {
		t.Errorf("aggregate = %q, want finished (single language)", req.RequestStatus)
	}
}

func TestSynchronizeEmptyPayload(t *testing.T) {
	env := newTestEnv(t)
	req, _ := env.seedRequest(t, content.ModerationPublished)
	ctx := context.Background()

	if err := env.queries.SetLanguagePayload(ctx, "req-sync", "fr", nil); err != nil {
		t.Fatalf("clearing payload: %v", err)
	}

	_, err := env.engine.SynchronizeLanguage(ctx, req, "fr", "reviewer")
	if !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("SynchronizeLanguage = %v, want ErrEmptyPayload", err)
	}
	if got := req.Language("fr").Status; got != model.LanguageStatusReview {
		t.Errorf("language status = %q, want review (unchanged)", got)
	}

	entries, err := env.queries.ListRequestLog(ctx, req.ID)
	if err != nil {
		t.Fatalf("listing log: %v", err)
	}
	var logged bool
	for _, entry := range entries {
		if entry.Type == model.LogTypeError {
			logged = true
		}
	}
	if !logged {
		t.Error("expected an error log entry for the failed run")
	}
}

func TestSynchronizeWriteFailure(t *testing.T) {
	env := newTestEnv(t)
	req, _ := env.seedRequest(t, content.ModerationPublished)
	ctx := context.Background()

	env.content.RejectSaves(true)
	_, err := env.engine.SynchronizeLanguage(ctx, req, "fr", "reviewer")
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("SynchronizeLanguage = %v, want ErrWriteFailed", err)
	}
	if got := req.Language("fr").Status; got != model.LanguageStatusReview {
		t.Errorf("language status = %q, want review (no state change)", got)
	}

	// The run is repeatable once the external store recovers.
	env.content.RejectSaves(false)
	if _, err := env.engine.SynchronizeLanguage(ctx, req, "fr", "reviewer"); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
	if got := req.Language("fr").Status; got != model.LanguageStatusSynchronised {
		t.Errorf("language status after retry = %q, want synchronised", got)
	}
}

func TestSynchronizeInvalidLanguageState(t *testing.T) {
	env := newTestEnv(t)
	req, _ := env.seedRequest(t, content.ModerationPublished)
	ctx := context.Background()

	if err := env.queries.UpdateLanguageStatus(ctx, "req-sync", "fr", model.LanguageStatusCancelled); err != nil {
		t.Fatalf("cancelling language: %v", err)
	}
	req.Language("fr").Status = model.LanguageStatusCancelled

	_, err := env.engine.SynchronizeLanguage(ctx, req, "fr", "reviewer")
	if !errors.Is(err, lifecycle.ErrInvalidTransition) {
		t.Errorf("sync of cancelled language = %v, want ErrInvalidTransition", err)
	}

	_, err = env.engine.SynchronizeLanguage(ctx, req, "de", "reviewer")
	if !errors.Is(err, lifecycle.ErrUnknownLanguage) {
		t.Errorf("sync of untargeted language = %v, want ErrUnknownLanguage", err)
	}
}

// A forward published revision must keep the default flag; the older target
// revision cannot stay default alongside it.
func TestSynchronizeForwardPublishedDemotesDefault(t *testing.T) {
	env := newTestEnv(t)
	req, rev := env.seedRequest(t, content.ModerationPublished)
	ctx := context.Background()

	env.content.AddRevision(&content.Revision{
		EntityType: "node", EntityID: 1, Major: 2, Minor: 0,
		Title: "Newer", Moderation: content.ModerationPublished, Default: true,
	})

	if _, err := env.engine.SynchronizeLanguage(ctx, req, "fr", "reviewer"); err != nil {
		t.Fatalf("synchronising: %v", err)
	}

	stored, err := env.content.LoadRevision(ctx, "node", 1, rev.ID)
	if err != nil {
		t.Fatalf("loading revision: %v", err)
	}
	if stored.Default {
		t.Error("old revision still default despite newer published revision")
	}
}

// Synchronising onto a validated version narrows a both-scopes mapping down
// to published only; synchronising onto a published version removes it.
func TestSynchronizeReconcilesMapping(t *testing.T) {
	t.Run("published removes mapping", func(t *testing.T) {
		env := newTestEnv(t)
		req, _ := env.seedRequest(t, content.ModerationPublished)
		ctx := context.Background()

		if err := env.queries.UpsertMapping(ctx, model.RevisionMapping{
			EntityType: "node", EntityID: 1, Langcode: "fr",
			RevisionID: sql.NullInt64{Int64: 99, Valid: true},
			Scope:      model.MappingScopePublished,
		}); err != nil {
			t.Fatalf("seeding mapping: %v", err)
		}

		if _, err := env.engine.SynchronizeLanguage(ctx, req, "fr", "reviewer"); err != nil {
			t.Fatalf("synchronising: %v", err)
		}

		m, err := env.queries.GetMapping(ctx, "node", 1, "fr")
		if err != nil {
			t.Fatalf("loading mapping: %v", err)
		}
		if m != nil {
			t.Errorf("mapping = %+v, want removed", m)
		}
	})

	t.Run("validated narrows scope", func(t *testing.T) {
		env := newTestEnv(t)
		req, _ := env.seedRequest(t, content.ModerationValidated)
		ctx := context.Background()

		if err := env.queries.UpsertMapping(ctx, model.RevisionMapping{
			EntityType: "node", EntityID: 1, Langcode: "fr",
			RevisionID: sql.NullInt64{Int64: 99, Valid: true},
			Scope:      model.MappingScopePublishedValidated,
		}); err != nil {
			t.Fatalf("seeding mapping: %v", err)
		}

		if _, err := env.engine.SynchronizeLanguage(ctx, req, "fr", "reviewer"); err != nil {
			t.Fatalf("synchronising: %v", err)
		}

		m, err := env.queries.GetMapping(ctx, "node", 1, "fr")
		if err != nil {
			t.Fatalf("loading mapping: %v", err)
		}
		if m == nil {
			t.Fatal("mapping gone, want narrowed")
		}
		if m.Scope != model.MappingScopePublished {
			t.Errorf("scope = %q, want published", m.Scope)
		}
	})
}

// Corporate-workflow content receives the translation on the newest revision
// of the version family the request was created against.
func TestSynchronizeCorporateFamily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.content.AddRevision(&content.Revision{
		EntityType: "node", EntityID: 1, Major: 1, Minor: 0,
		Title: "V1", Moderation: content.ModerationPublished,
		Workflow: content.WorkflowCorporate,
		Fields:   content.FieldSet{"title": "V1"},
	})
	newer := env.content.AddRevision(&content.Revision{
		EntityType: "node", EntityID: 1, Major: 1, Minor: 0,
		Title: "V1 fixed", Moderation: content.ModerationPublished,
		Workflow: content.WorkflowCorporate,
		Fields:   content.FieldSet{"title": "V1 fixed"},
	})

	err := env.queries.CreateRequest(ctx, store.CreateRequestParams{
		ID:             "req-corp",
		ProviderKind:   model.ProviderEPoetry,
		EntityType:     "node",
		EntityID:       1,
		RevisionID:     first.ID,
		SourceLanguage: "en",
		ProviderRef:    "DIGIT/2026/11112/0/0",
		EPoetry:        &model.EPoetryState{Code: "DIGIT", Year: 2026, Number: "11112"},
		Langcodes:      []string{"fr"},
	})
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	if err := env.queries.SetLanguagePayload(ctx, "req-corp", "fr", map[string]string{"title": "V1 corrige"}); err != nil {
		t.Fatalf("storing payload: %v", err)
	}
	if err := env.queries.UpdateLanguageStatus(ctx, "req-corp", "fr", model.LanguageStatusReview); err != nil {
		t.Fatalf("moving language to review: %v", err)
	}
	req, err := env.queries.GetRequest(ctx, "req-corp")
	if err != nil {
		t.Fatalf("loading request: %v", err)
	}

	result, err := env.engine.SynchronizeLanguage(ctx, req, "fr", "reviewer")
	if err != nil {
		t.Fatalf("synchronising: %v", err)
	}
	if result.RevisionID != newer.ID {
		t.Errorf("synchronised onto %d, want newest family revision %d", result.RevisionID, newer.ID)
	}

	stored, err := env.content.LoadRevision(ctx, "node", 1, newer.ID)
	if err != nil {
		t.Fatalf("loading revision: %v", err)
	}
	if !stored.HasTranslation("fr") {
		t.Error("newest family revision has no fr translation")
	}
}
