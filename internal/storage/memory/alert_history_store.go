package memory

import (
	"context"
	"sort"
	"sync"

	"solana-sandwich-watch/internal/domain"
	"solana-sandwich-watch/internal/storage"
)

// AlertHistoryStore is an in-memory implementation of
// storage.AlertHistoryStore.
type AlertHistoryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AlertRecord // keyed by alert ID
}

// NewAlertHistoryStore creates a new in-memory alert history store.
func NewAlertHistoryStore() *AlertHistoryStore {
	return &AlertHistoryStore{data: make(map[string]*domain.AlertRecord)}
}

// Compile-time interface check.
var _ storage.AlertHistoryStore = (*AlertHistoryStore)(nil)

// Insert archives an alert. Returns ErrDuplicateKey if the ID exists.
func (s *AlertHistoryStore) Insert(_ context.Context, a *domain.AlertRecord) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ID]; exists {
		return storage.ErrDuplicateKey
	}
	c := *a
	c.RelatedTransactions = append([]string(nil), a.RelatedTransactions...)
	s.data[a.ID] = &c
	return nil
}

// Recent returns up to limit alerts, newest first.
func (s *AlertHistoryStore) Recent(_ context.Context, limit int) ([]*domain.AlertRecord, error) {
	if limit <= 0 {
		return []*domain.AlertRecord{}, nil
	}

	s.mu.RLock()
	all := s.snapshotLocked()
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].DetectedAt != all[j].DetectedAt {
			return all[i].DetectedAt > all[j].DetectedAt
		}
		return all[i].ID < all[j].ID
	})

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetSince returns all alerts detected at or after since, oldest first.
func (s *AlertHistoryStore) GetSince(_ context.Context, since int64) ([]*domain.AlertRecord, error) {
	s.mu.RLock()
	all := s.snapshotLocked()
	s.mu.RUnlock()

	result := make([]*domain.AlertRecord, 0, len(all))
	for _, a := range all {
		if a.DetectedAt >= since {
			result = append(result, a)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DetectedAt != result[j].DetectedAt {
			return result[i].DetectedAt < result[j].DetectedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// snapshotLocked copies all records. Caller must hold at least a read lock.
func (s *AlertHistoryStore) snapshotLocked() []*domain.AlertRecord {
	all := make([]*domain.AlertRecord, 0, len(s.data))
	for _, a := range s.data {
		c := *a
		c.RelatedTransactions = append([]string(nil), a.RelatedTransactions...)
		all = append(all, &c)
	}
	return all
}
