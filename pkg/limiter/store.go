package limiter

import (
	"sort"
	"sync"
	"time"
)

// Store holds per-client limiter state in memory. Update gives linearizable
// read-modify-write per key; different keys proceed under the same lock but
// every critical section is a handful of map operations, so contention stays
// negligible at this scale.
type Store struct {
	mu      sync.RWMutex
	entries map[string]ClientState
}

// NewStore creates an empty state store.
func NewStore() *Store {
	return &Store{entries: make(map[string]ClientState)}
}

// Get returns the state for a client, if present.
func (s *Store) Get(clientID string) (ClientState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.entries[clientID]
	return state, ok
}

// Update applies fn atomically to the client's state. fn receives nil when
// no state exists yet and returns the state to store. Concurrent updates for
// the same key serialize here, so counts are never lost.
func (s *Store) Update(clientID string, fn func(prev *ClientState) ClientState) ClientState {
	s.mu.Lock()
	defer s.mu.Unlock()
	var next ClientState
	if cur, ok := s.entries[clientID]; ok {
		next = fn(&cur)
	} else {
		next = fn(nil)
	}
	s.entries[clientID] = next
	return next
}

// Upsert stores the state wholesale, replacing any existing record.
func (s *Store) Upsert(state ClientState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[state.ClientID] = state
}

// List returns all client states ordered by most recent activity first.
func (s *Store) List() []ClientState {
	s.mu.RLock()
	states := make([]ClientState, 0, len(s.entries))
	for _, state := range s.entries {
		states = append(states, state)
	}
	s.mu.RUnlock()

	sort.Slice(states, func(i, j int) bool {
		return states[i].LastRequest.After(states[j].LastRequest)
	})
	return states
}

// Delete removes a single client's state.
func (s *Store) Delete(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, clientID)
}

// Clear drops every entry. Called when the active policy is replaced.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]ClientState)
}

// Len reports current table occupancy; the activeClients stat is this value.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// CleanupExpired removes entries whose window or bucket has already expired
// and returns how many were removed.
func (s *Store) CleanupExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for clientID, state := range s.entries {
		if state.ResetTime.Before(now) {
			delete(s.entries, clientID)
			removed++
		}
	}
	return removed
}
