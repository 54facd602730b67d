// Package mock provides an in-memory mock implementation of
// [archive.Store] for use in unit tests.
//
// The mock records every WriteShow call and assigns sequential IDs. Set
// WriteError or RecentError to force failures.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/improvlive/improvd/internal/archive"
)

// Compile-time check that *Store satisfies [archive.Store].
var _ archive.Store = (*Store)(nil)

// Store is an in-memory [archive.Store].
type Store struct {
	mu sync.Mutex

	// WriteError is returned by WriteShow when non-nil.
	WriteError error

	// RecentError is returned by RecentShows when non-nil.
	RecentError error

	// Shows holds every archived show in write order.
	Shows []archive.Show

	// CallCountClose records how many times Close was called.
	CallCountClose int

	nextID int64
}

// WriteShow implements [archive.Store].
func (s *Store) WriteShow(_ context.Context, show *archive.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteError != nil {
		return s.WriteError
	}
	s.nextID++
	show.ID = s.nextID
	s.Shows = append(s.Shows, *show)
	return nil
}

// RecentShows implements [archive.Store]. Shows are returned most recently
// written first.
func (s *Store) RecentShows(_ context.Context, limit int) ([]archive.Show, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RecentError != nil {
		return nil, s.RecentError
	}
	out := slices.Clone(s.Shows)
	slices.Reverse(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements [archive.Store].
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
}
