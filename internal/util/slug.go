// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util contains small shared helpers.
package util

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	slugInvalidChars = regexp.MustCompile(`[^a-z0-9-]+`)
	multipleHyphens  = regexp.MustCompile(`-+`)
)

// Slugify converts an arbitrary title into a lowercase ASCII slug suitable
// for provider file references. Non-ASCII characters are transliterated
// rather than dropped so that Cyrillic or Greek titles stay readable.
func Slugify(s string) string {
	s = unidecode.Unidecode(s)
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugInvalidChars.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// IsValidSlug reports whether s is a well-formed slug: lowercase ASCII
// letters, digits and single hyphens, neither leading nor trailing.
func IsValidSlug(s string) bool {
	if s == "" {
		return false
	}
	if strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return false
	}
	if strings.Contains(s, "--") {
		return false
	}
	return !slugInvalidChars.MatchString(s)
}
