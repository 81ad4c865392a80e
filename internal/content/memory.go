// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is a thread-safe in-memory Store implementation. It backs the
// test suite and the development server; production deployments plug in the
// real CMS storage.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	revs   map[string][]*Revision // keyed by entityType:entityID

	// rejectSaves makes every SaveRevision fail; tests use it to exercise
	// external-write-failure paths.
	rejectSaves bool
}

// NewMemoryStore creates an empty in-memory content store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		revs:   make(map[string][]*Revision),
	}
}

func entityKey(entityType string, entityID int64) string {
	return fmt.Sprintf("%s:%d", entityType, entityID)
}

// AddRevision appends a revision to an entity's chain and assigns its ID.
// Returns the stored copy.
func (s *MemoryStore) AddRevision(rev *Revision) *Revision {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneRevision(rev)
	stored.ID = s.nextID
	s.nextID++

	key := entityKey(stored.EntityType, stored.EntityID)
	s.revs[key] = append(s.revs[key], stored)
	return cloneRevision(stored)
}

// RejectSaves toggles save failures for testing.
func (s *MemoryStore) RejectSaves(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectSaves = reject
}

// LoadRevision implements Store.
func (s *MemoryStore) LoadRevision(_ context.Context, entityType string, entityID, revisionID int64) (*Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rev := range s.revs[entityKey(entityType, entityID)] {
		if rev.ID == revisionID {
			return cloneRevision(rev), nil
		}
	}
	return nil, fmt.Errorf("%s:%d revision %d: %w", entityType, entityID, revisionID, ErrRevisionNotFound)
}

// LatestRevisionID implements Store.
func (s *MemoryStore) LatestRevisionID(_ context.Context, entityType string, entityID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.revs[entityKey(entityType, entityID)]
	if len(chain) == 0 {
		return 0, fmt.Errorf("%s:%d: %w", entityType, entityID, ErrEntityNotFound)
	}
	latest := chain[0].ID
	for _, rev := range chain {
		if rev.ID > latest {
			latest = rev.ID
		}
	}
	return latest, nil
}

// SaveRevision implements Store.
func (s *MemoryStore) SaveRevision(_ context.Context, rev *Revision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rejectSaves {
		return ErrSaveRejected
	}

	chain := s.revs[entityKey(rev.EntityType, rev.EntityID)]
	for i, stored := range chain {
		if stored.ID == rev.ID {
			chain[i] = cloneRevision(rev)
			return nil
		}
	}
	return fmt.Errorf("%s:%d revision %d: %w", rev.EntityType, rev.EntityID, rev.ID, ErrRevisionNotFound)
}

// ListRevisions implements Store.
func (s *MemoryStore) ListRevisions(_ context.Context, entityType string, entityID int64) ([]*Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.revs[entityKey(entityType, entityID)]
	if len(chain) == 0 {
		return nil, fmt.Errorf("%s:%d: %w", entityType, entityID, ErrEntityNotFound)
	}
	out := make([]*Revision, 0, len(chain))
	for _, rev := range chain {
		out = append(out, cloneRevision(rev))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RevisionsInVersionFamily implements Store.
func (s *MemoryStore) RevisionsInVersionFamily(_ context.Context, entityType string, entityID int64, major, minor int) ([]*Revision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Revision
	for _, rev := range s.revs[entityKey(entityType, entityID)] {
		if rev.Major == major && rev.Minor == minor {
			out = append(out, cloneRevision(rev))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneRevision(rev *Revision) *Revision {
	out := *rev
	out.Fields = rev.Fields.Clone()
	if rev.Translations != nil {
		out.Translations = make(map[string]Translation, len(rev.Translations))
		for lang, t := range rev.Translations {
			t.Fields = t.Fields.Clone()
			out.Translations[lang] = t
		}
	}
	return &out
}
