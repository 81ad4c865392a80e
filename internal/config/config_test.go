// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"strings"
	"testing"
)

const testAPIKey = "0123456789abcdef0123456789abcdef"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("OETR_SEQUENCE_TOKEN", "DGT_TOKEN")
	t.Setenv("OETR_CALLBACK_API_KEY", testAPIKey)
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr() = %q, want localhost:8080", cfg.ServerAddr())
	}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true by default")
	}
	if cfg.UseRedisCache() {
		t.Error("UseRedisCache() = true without OETR_REDIS_URL")
	}
	if cfg.RequesterCode != "DIGIT" {
		t.Errorf("RequesterCode = %q, want DIGIT", cfg.RequesterCode)
	}
	if !cfg.ProviderDryRun {
		t.Error("ProviderDryRun = false, want true by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("OETR_SERVER_HOST", "0.0.0.0")
	t.Setenv("OETR_SERVER_PORT", "9000")
	t.Setenv("OETR_ENV", "production")
	t.Setenv("OETR_REQUESTER_CODE", " digit ")
	t.Setenv("OETR_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerAddr() != "0.0.0.0:9000" {
		t.Errorf("ServerAddr() = %q", cfg.ServerAddr())
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true for production")
	}
	if !cfg.UseRedisCache() {
		t.Error("UseRedisCache() = false with URL set")
	}
	// Requester codes are normalized to upper case.
	if cfg.RequesterCode != "DIGIT" {
		t.Errorf("RequesterCode = %q, want DIGIT", cfg.RequesterCode)
	}
}

func TestLoadRejectsMissingToken(t *testing.T) {
	t.Setenv("OETR_CALLBACK_API_KEY", testAPIKey)
	t.Setenv("OETR_SEQUENCE_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Error("Load without sequence token must fail")
	}
}

func TestLoadRejectsShortAPIKey(t *testing.T) {
	t.Setenv("OETR_SEQUENCE_TOKEN", "DGT_TOKEN")
	t.Setenv("OETR_CALLBACK_API_KEY", "short")

	_, err := Load()
	if err == nil {
		t.Fatal("Load with short API key must fail")
	}
	if !strings.Contains(err.Error(), "OETR_CALLBACK_API_KEY") {
		t.Errorf("error %q does not name the offending variable", err)
	}
}
