// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openeuropa/oe-translation-sub001/internal/allocator"
	"github.com/openeuropa/oe-translation-sub001/internal/cache"
	"github.com/openeuropa/oe-translation-sub001/internal/content"
	"github.com/openeuropa/oe-translation-sub001/internal/lifecycle"
	"github.com/openeuropa/oe-translation-sub001/internal/mapping"
	"github.com/openeuropa/oe-translation-sub001/internal/model"
	"github.com/openeuropa/oe-translation-sub001/internal/provider"
	"github.com/openeuropa/oe-translation-sub001/internal/synchronizer"
	"github.com/openeuropa/oe-translation-sub001/internal/testutil"
)

const testAPIKey = "test-callback-key"

type testApp struct {
	router  chi.Router
	content *content.MemoryStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db := testutil.TestDB(t)
	logger := testutil.TestLogger()
	cs := content.NewMemoryStore()

	registry := provider.NewRegistry(logger)
	client := provider.NewDryRunClient()
	require.NoError(t, registry.Register(provider.NewEPoetry(client)))
	require.NoError(t, registry.Register(provider.NewCDT(client)))

	shared := cache.NewSimpleMemoryCache(time.Minute)
	t.Cleanup(func() { _ = shared.Close() })

	h := New(Options{
		DB:        db,
		Lifecycle: lifecycle.New(db, registry, logger),
		Sync:      synchronizer.New(db, cs, registry, logger),
		Allocator: allocator.New(db, "DIGIT", "DGT_TOKEN", logger),
		Resolver:  mapping.New(db, cs, logger),
		Providers: registry,
		Refs:      cache.NewReferenceCache(shared, time.Minute),
		Content:   cs,
		Logger:    logger,
	})

	return &testApp{router: h.Routes(testAPIKey), content: cs}
}

func (app *testApp) seedRevision(t *testing.T) *content.Revision {
	t.Helper()
	return app.content.AddRevision(&content.Revision{
		EntityType: "node", EntityID: 1, Major: 1, Minor: 0,
		Title: "Hello", Moderation: content.ModerationPublished, Default: true,
		Fields: content.FieldSet{"title": "Hello"},
	})
}

func (app *testApp) do(t *testing.T, method, path string, body any, callback bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if callback {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) createRequest(t *testing.T, rev *content.Revision, langs ...string) *model.TranslationRequest {
	t.Helper()
	rec := app.do(t, http.MethodPost, "/api/v1/requests", createRequestDTO{
		Provider:        model.ProviderEPoetry,
		EntityType:      rev.EntityType,
		EntityID:        rev.EntityID,
		RevisionID:      rev.ID,
		SourceLanguage:  "en",
		TargetLanguages: langs,
	}, false)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var req model.TranslationRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &req))
	return &req
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := app.do(t, http.MethodGet, path, nil, false)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestCreateRequest(t *testing.T) {
	app := newTestApp(t)
	rev := app.seedRevision(t)

	req := app.createRequest(t, rev, "fr", "bg")
	assert.Equal(t, model.RequestStatusRequested, req.RequestStatus)
	assert.Len(t, req.Languages, 2)
	require.NotNil(t, req.EPoetry)
	// The dry-run provider grants a number on first submission.
	assert.NotEmpty(t, req.EPoetry.Number)
	assert.NotEmpty(t, req.EPoetry.ProviderRef)
	assert.Equal(t, "hello-en.html", req.EPoetry.FileReference)

	rec := app.do(t, http.MethodGet, "/api/v1/requests/"+req.ID, nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/requests/"+req.ID+"/log", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	var entries []model.LogEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.NotEmpty(t, entries)
}

func TestCreateRequestValidation(t *testing.T) {
	app := newTestApp(t)
	rev := app.seedRevision(t)

	tests := []struct {
		name string
		dto  createRequestDTO
		want int
	}{
		{
			"unknown provider",
			createRequestDTO{Provider: "dgt", EntityType: "node", EntityID: 1, RevisionID: rev.ID, SourceLanguage: "en", TargetLanguages: []string{"fr"}},
			http.StatusUnprocessableEntity,
		},
		{
			"source as target",
			createRequestDTO{Provider: model.ProviderEPoetry, EntityType: "node", EntityID: 1, RevisionID: rev.ID, SourceLanguage: "en", TargetLanguages: []string{"en"}},
			http.StatusUnprocessableEntity,
		},
		{
			"no targets",
			createRequestDTO{Provider: model.ProviderEPoetry, EntityType: "node", EntityID: 1, RevisionID: rev.ID, SourceLanguage: "en"},
			http.StatusUnprocessableEntity,
		},
		{
			"missing revision",
			createRequestDTO{Provider: model.ProviderEPoetry, EntityType: "node", EntityID: 1, RevisionID: 999, SourceLanguage: "en", TargetLanguages: []string{"fr"}},
			http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/api/v1/requests", tt.dto, false)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCallbackAuthentication(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/callback/epoetry/request-status", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/callback/epoetry/request-status", bytes.NewBufferString("{}"))
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallbackUnknownProviderAndRequest(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/callback/dgt/request-status",
		requestStatusCallback{Identifier: "x", Status: "Accepted"}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPost, "/callback/epoetry/request-status",
		requestStatusCallback{Identifier: "no-such-ref", Status: "Accepted"}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFullTranslationFlow(t *testing.T) {
	app := newTestApp(t)
	rev := app.seedRevision(t)
	req := app.createRequest(t, rev, "fr")
	ref := req.EPoetry.ProviderRef

	// Provider reports work in progress; the language stays requested.
	rec := app.do(t, http.MethodPost, "/callback/epoetry/language-status",
		languageStatusCallback{Identifier: ref, Langcode: "fr", Status: provider.EPoetryProductOngoing}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The provider delivers the translation.
	rec = app.do(t, http.MethodPost, "/callback/epoetry/translation",
		translationCallback{Identifier: ref, Langcode: "fr", Payload: map[string]string{"title": "Bonjour"}}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp callbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, req.ID, resp.RequestID)
	assert.Equal(t, model.RequestStatusTranslated, resp.RequestStatus)

	// Reviewer accepts and synchronizes.
	rec = app.do(t, http.MethodPost,
		fmt.Sprintf("/api/v1/requests/%s/languages/fr/accept", req.ID), nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost,
		fmt.Sprintf("/api/v1/requests/%s/languages/fr/synchronize", req.ID), nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result synchronizer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Synchronized)
	assert.Equal(t, rev.ID, result.RevisionID)

	stored, err := app.content.LoadRevision(context.Background(), "node", 1, rev.ID)
	require.NoError(t, err)
	translation, ok := stored.Translation("fr")
	require.True(t, ok)
	assert.Equal(t, "Bonjour", translation.Fields["title"])

	// Single-language request is finished after synchronization.
	rec = app.do(t, http.MethodGet, "/api/v1/requests/"+req.ID, nil, false)
	var final model.TranslationRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &final))
	assert.Equal(t, model.RequestStatusFinished, final.RequestStatus)
}

func TestRedeliveryAfterAcceptKeepsPayload(t *testing.T) {
	app := newTestApp(t)
	rev := app.seedRevision(t)
	req := app.createRequest(t, rev, "fr")
	ref := req.EPoetry.ProviderRef

	rec := app.do(t, http.MethodPost, "/callback/epoetry/translation",
		translationCallback{Identifier: ref, Langcode: "fr", Payload: map[string]string{"title": "Bonjour"}}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost,
		fmt.Sprintf("/api/v1/requests/%s/languages/fr/accept", req.ID), nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// A late redelivery must bounce without touching the accepted text.
	rec = app.do(t, http.MethodPost, "/callback/epoetry/translation",
		translationCallback{Identifier: ref, Langcode: "fr", Payload: map[string]string{"title": "Autre texte"}}, true)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost,
		fmt.Sprintf("/api/v1/requests/%s/languages/fr/synchronize", req.ID), nil, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := app.content.LoadRevision(context.Background(), "node", 1, rev.ID)
	require.NoError(t, err)
	translation, ok := stored.Translation("fr")
	require.True(t, ok)
	assert.Equal(t, "Bonjour", translation.Fields["title"])
}

func TestSynchronizeWithoutDelivery(t *testing.T) {
	app := newTestApp(t)
	rev := app.seedRevision(t)
	req := app.createRequest(t, rev, "fr")

	rec := app.do(t, http.MethodPost,
		fmt.Sprintf("/api/v1/requests/%s/languages/fr/synchronize", req.ID), nil, false)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFailAndCloseFlow(t *testing.T) {
	app := newTestApp(t)
	rev := app.seedRevision(t)
	req := app.createRequest(t, rev, "fr")
	ref := req.EPoetry.ProviderRef

	rec := app.do(t, http.MethodPost, "/callback/epoetry/request-status",
		requestStatusCallback{Identifier: ref, Status: provider.EPoetryRequestRejected}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp callbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RequestStatusFailed, resp.RequestStatus)

	rec = app.do(t, http.MethodPost, "/api/v1/requests/"+req.ID+"/close", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	// Further provider reports bounce off the terminal request.
	rec = app.do(t, http.MethodPost, "/callback/epoetry/request-status",
		requestStatusCallback{Identifier: ref, Status: provider.EPoetryRequestAccepted}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFieldUpdateCallback(t *testing.T) {
	app := newTestApp(t)
	rev := app.seedRevision(t)
	req := app.createRequest(t, rev, "fr")
	ref := req.EPoetry.ProviderRef

	rec := app.do(t, http.MethodPost, "/callback/epoetry/field",
		fieldUpdateCallback{Identifier: ref, Field: "deadline", Value: "2026-10-01T00:00:00Z"}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodPost, "/callback/epoetry/field",
		fieldUpdateCallback{Identifier: ref, Field: "nonsense", Value: "x"}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMappingEndpoints(t *testing.T) {
	app := newTestApp(t)
	old := app.seedRevision(t)
	old.SetTranslation(content.Translation{Langcode: "fr", Fields: content.FieldSet{"title": "Bonjour"}, SourceRevisionID: old.ID})
	require.NoError(t, app.content.SaveRevision(context.Background(), old))
	app.content.AddRevision(&content.Revision{
		EntityType: "node", EntityID: 1, Major: 2, Minor: 0,
		Title: "Newer", Moderation: content.ModerationDraft,
	})

	base := "/api/v1/content/node/1/mappings/fr"

	rec := app.do(t, http.MethodGet, base, nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(t, http.MethodPut, base, putMappingDTO{RevisionID: old.ID, Scope: model.MappingScopePublished}, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = app.do(t, http.MethodGet, base, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var m model.RevisionMapping
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	assert.Equal(t, old.ID, m.RevisionID.Int64)

	rec = app.do(t, http.MethodGet, base+"/options", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var options []mapping.VersionOption
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &options))
	assert.Len(t, options, 1)

	rec = app.do(t, http.MethodDelete, base, nil, false)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = app.do(t, http.MethodDelete, base, nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutMappingValidation(t *testing.T) {
	app := newTestApp(t)
	rev := app.seedRevision(t)

	base := "/api/v1/content/node/1/mappings/fr"

	// Mapping to the current latest revision is pointless.
	rec := app.do(t, http.MethodPut, base, putMappingDTO{RevisionID: rev.ID, Scope: model.MappingScopePublished}, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = app.do(t, http.MethodPut, base, putMappingDTO{RevisionID: rev.ID, Scope: "everything"}, false)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
