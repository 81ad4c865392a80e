// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"strings"

	"golang.org/x/text/language"
)

// NormalizeLangcode canonicalizes a language code to its lowercase BCP 47
// form ("PT-pt" becomes "pt-pt"). Returns the empty string when the code
// cannot be parsed at all.
func NormalizeLangcode(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return ""
	}
	return strings.ToLower(tag.String())
}

// IsValidLangcode reports whether code parses as a BCP 47 language tag.
func IsValidLangcode(code string) bool {
	return NormalizeLangcode(code) != ""
}
