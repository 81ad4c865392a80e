// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package mapping

import (
	"context"
	"fmt"
)

// VersionOption is one revision a user may map a language to. CarriedOver
// distinguishes a revision that merely inherits an older translation through
// the revision chain from one whose translation was freshly requested against
// it.
type VersionOption struct {
	RevisionID  int64  `json:"revision_id"`
	Major       int    `json:"major"`
	Minor       int    `json:"minor"`
	Moderation  string `json:"moderation"`
	CarriedOver bool   `json:"carried_over"`
	Label       string `json:"label"`
}

// VersionOptions lists the revisions a language can be mapped to. The current
// latest revision is excluded (mapping to itself is meaningless), as is any
// revision without a translation for the language.
func (r *Resolver) VersionOptions(ctx context.Context, entityType string, entityID int64, langcode string) ([]VersionOption, error) {
	revs, err := r.content.ListRevisions(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}
	latest, err := r.content.LatestRevisionID(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("loading latest revision: %w", err)
	}

	var options []VersionOption
	for _, rev := range revs {
		if rev.ID == latest {
			continue
		}
		translation, ok := rev.Translation(langcode)
		if !ok {
			continue
		}
		opt := VersionOption{
			RevisionID:  rev.ID,
			Major:       rev.Major,
			Minor:       rev.Minor,
			Moderation:  rev.Moderation,
			CarriedOver: translation.SourceRevisionID != rev.ID,
		}
		if opt.CarriedOver {
			opt.Label = fmt.Sprintf("Version %d.%d (%s), carried-over translation", rev.Major, rev.Minor, rev.Moderation)
		} else {
			opt.Label = fmt.Sprintf("Version %d.%d (%s), own translation", rev.Major, rev.Minor, rev.Moderation)
		}
		options = append(options, opt)
	}
	return options, nil
}
