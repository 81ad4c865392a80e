// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"testing"
)

func validEPoetryRequest() *TranslationRequest {
	return &TranslationRequest{
		ID:             "req-1",
		ProviderKind:   ProviderEPoetry,
		ContentRef:     ContentRef{EntityType: "node", EntityID: 1, RevisionID: 10},
		SourceLanguage: "en",
		RequestStatus:  RequestStatusRequested,
		Languages: []LanguageJob{
			{RequestID: "req-1", Langcode: "fr", Status: LanguageStatusRequested},
			{RequestID: "req-1", Langcode: "bg", Status: LanguageStatusRequested},
		},
		EPoetry: &EPoetryState{Code: "DIGIT", Year: 2026, Number: "11111", Part: 0, Version: 0},
	}
}

func TestValidate(t *testing.T) {
	if err := validEPoetryRequest().Validate(); err != nil {
		t.Fatalf("valid request: unexpected error %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(r *TranslationRequest)
		wantErr error
	}{
		{"no targets", func(r *TranslationRequest) { r.Languages = nil }, ErrNoTargetLanguages},
		{"source as target", func(r *TranslationRequest) { r.Languages[0].Langcode = "en" }, ErrSourceIsTarget},
		{"duplicate target", func(r *TranslationRequest) { r.Languages[1].Langcode = "fr" }, ErrDuplicateTarget},
		{"wrong provider state", func(r *TranslationRequest) { r.CDT = &CDTState{} }, ErrProviderStateWrong},
		{"missing provider state", func(r *TranslationRequest) { r.EPoetry = nil }, ErrProviderStateWrong},
		{"unknown provider", func(r *TranslationRequest) { r.ProviderKind = "dgt"; r.EPoetry = nil }, ErrUnknownProviderKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validEPoetryRequest()
			tt.mutate(req)
			if err := req.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLanguageLookup(t *testing.T) {
	req := validEPoetryRequest()
	if lang := req.Language("bg"); lang == nil || lang.Langcode != "bg" {
		t.Errorf("Language(bg) = %v, want bg job", lang)
	}
	if lang := req.Language("de"); lang != nil {
		t.Errorf("Language(de) = %v, want nil", lang)
	}
}

func TestRequestIsTerminal(t *testing.T) {
	req := validEPoetryRequest()
	for status, want := range map[string]bool{
		RequestStatusRequested:      false,
		RequestStatusTranslated:     false,
		RequestStatusFailed:         false,
		RequestStatusFinished:       true,
		RequestStatusFailedFinished: true,
	} {
		req.RequestStatus = status
		if got := req.IsTerminal(); got != want {
			t.Errorf("IsTerminal() with %s = %v, want %v", status, got, want)
		}
	}
}

func TestProviderReference(t *testing.T) {
	req := validEPoetryRequest()
	req.EPoetry.ProviderRef = "DIGIT/2026/11111/0/0"
	if got := req.ProviderReference(); got != "DIGIT/2026/11111/0/0" {
		t.Errorf("ProviderReference() = %q, want dossier reference", got)
	}

	cdt := &TranslationRequest{ID: "req-2", ProviderKind: ProviderCDT, CDT: &CDTState{PermanentID: "CDT-42"}}
	if got := cdt.ProviderReference(); got != "CDT-42" {
		t.Errorf("ProviderReference() = %q, want CDT-42", got)
	}

	bare := &TranslationRequest{ID: "req-3", ProviderKind: ProviderCDT, CDT: &CDTState{}}
	if got := bare.ProviderReference(); got != "req-3" {
		t.Errorf("ProviderReference() = %q, want request ID fallback", got)
	}
}

func TestIdentifierString(t *testing.T) {
	numbered := Identifier{Code: "DIGIT", Year: 2026, Number: "11111", Part: 3, Version: 1}
	if got := numbered.String(); got != "DIGIT/2026/11111/1/3" {
		t.Errorf("String() = %q, want DIGIT/2026/11111/1/3", got)
	}

	sequenced := Identifier{Code: "DIGIT", Year: 2026, Sequence: "DGT_TOKEN"}
	if !sequenced.IsSequenced() {
		t.Error("IsSequenced() = false, want true")
	}
	if got := sequenced.String(); got != "DIGIT/2026/SEQ:DGT_TOKEN/0/0" {
		t.Errorf("String() = %q, want sequenced format", got)
	}
}
