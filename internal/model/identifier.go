// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"fmt"
	"time"
)

// MaxDossierPart is the highest part a dossier number can carry. When the
// parts under a number are used up, allocation falls back to requesting a
// brand-new number via the sequence token.
const MaxDossierPart = 99

// Identifier is the composite dossier key an ePoetry request is filed under.
// Either Number or Sequence is set: a non-empty Sequence asks the provider to
// grant a fresh number.
type Identifier struct {
	Code     string `json:"code"`
	Year     int    `json:"year"`
	Number   string `json:"number"`
	Part     int    `json:"part"`
	Version  int    `json:"version"`
	Sequence string `json:"sequence,omitempty"`
}

// IsSequenced reports whether this allocation asks the provider for a new
// dossier number instead of reusing an existing one.
func (id Identifier) IsSequenced() bool {
	return id.Sequence != ""
}

// String formats the identifier the way it appears in provider correspondence:
// CODE/YEAR/NUMBER/VERSION/PART or CODE/YEAR/SEQ:token/0/0 for sequenced
// allocations.
func (id Identifier) String() string {
	if id.IsSequenced() {
		return fmt.Sprintf("%s/%d/SEQ:%s/%d/%d", id.Code, id.Year, id.Sequence, id.Version, id.Part)
	}
	return fmt.Sprintf("%s/%d/%s/%d/%d", id.Code, id.Year, id.Number, id.Version, id.Part)
}

// DossierJob is the historical record of one identifier ever sent to the
// provider for a content item. Jobs are the allocator's system of record: a
// granted global number is only trustworthy while a job explaining its
// provenance still exists.
type DossierJob struct {
	ID         int64     `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Code       string    `json:"code"`
	Year       int       `json:"year"`
	Number     string    `json:"number"`
	Part       int       `json:"part"`
	Version    int       `json:"version"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Dossier job statuses. A job is recorded as pending when the request is
// sent and finished once the provider acknowledges the dossier.
const (
	DossierJobPending  = "pending"
	DossierJobFinished = "finished"
)

// Identifier returns the job's dossier key.
func (j DossierJob) Identifier() Identifier {
	return Identifier{
		Code:    j.Code,
		Year:    j.Year,
		Number:  j.Number,
		Part:    j.Part,
		Version: j.Version,
	}
}
