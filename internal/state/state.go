// Package state tracks which messages earlier runs have already
// delivered, so a re-run never writes the same message twice.
package state

import "context"

// Store durably records delivered message identifiers.  Stores are
// append-only: identifiers are never removed.
type Store interface {
	// Load returns every identifier recorded by previous runs, in
	// the order they were recorded.  A store that has never been
	// written to is empty, not an error.
	Load(ctx context.Context) ([]string, error)

	// Record durably appends ids, preserving their order.  When
	// Record fails the caller may assume nothing about which of
	// the ids were recorded.
	Record(ctx context.Context, ids []string) error
}

// Set is the in-memory identity index for one run.
type Set struct {
	ids map[string]struct{}
}

// NewSet builds a set holding ids.
func NewSet(ids []string) *Set {
	s := &Set{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s *Set) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Add inserts id into the set.
func (s *Set) Add(id string) {
	s.ids[id] = struct{}{}
}

// Len returns the number of ids in the set.
func (s *Set) Len() int {
	return len(s.ids)
}
