// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package version exposes build version information.
package version

// Version is the current application version.
// Overridden at build time via -ldflags "-X .../internal/version.Version=x.y.z".
var Version = "0.1.0-dev"

// Get returns the current version string.
func Get() string {
	return Version
}
