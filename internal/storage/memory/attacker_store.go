package memory

import (
	"context"
	"sort"
	"sync"

	"solana-sandwich-watch/internal/storage"
)

// AttackerStore is an in-memory implementation of storage.AttackerStore.
type AttackerStore struct {
	mu   sync.RWMutex
	data map[string]struct{}
}

// NewAttackerStore creates a new in-memory attacker store, optionally
// seeded with addresses (the configured known-attacker set).
func NewAttackerStore(seed ...string) *AttackerStore {
	s := &AttackerStore{data: make(map[string]struct{}, len(seed))}
	for _, addr := range seed {
		if addr != "" {
			s.data[addr] = struct{}{}
		}
	}
	return s
}

// Compile-time interface check.
var _ storage.AttackerStore = (*AttackerStore)(nil)

// Add registers an attacker address.
func (s *AttackerStore) Add(_ context.Context, address string) error {
	if address == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[address] = struct{}{}
	return nil
}

// Remove unregisters an attacker address.
func (s *AttackerStore) Remove(_ context.Context, address string) error {
	if address == "" {
		return storage.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, address)
	return nil
}

// Contains reports whether the address is in the set.
func (s *AttackerStore) Contains(_ context.Context, address string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[address]
	return ok, nil
}

// List returns all registered addresses, sorted for determinism.
func (s *AttackerStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0, len(s.data))
	for addr := range s.data {
		result = append(result, addr)
	}
	sort.Strings(result)
	return result, nil
}
