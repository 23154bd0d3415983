package memory

import (
	"context"
	"sync"

	"solana-sandwich-watch/internal/domain"
	"solana-sandwich-watch/internal/storage"
)

// DetectionRecordStore is an in-memory implementation of
// storage.DetectionRecordStore.
type DetectionRecordStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.DetectionRecord // keyed by transaction id
	order []string                           // insertion order of transaction ids
}

// NewDetectionRecordStore creates a new in-memory detection record store.
func NewDetectionRecordStore() *DetectionRecordStore {
	return &DetectionRecordStore{
		data: make(map[string]*domain.DetectionRecord),
	}
}

// Compile-time interface check.
var _ storage.DetectionRecordStore = (*DetectionRecordStore)(nil)

// Upsert inserts the record or replaces an existing one with the same
// TransactionID. Insertion order is preserved from the first upsert.
func (s *DetectionRecordStore) Upsert(_ context.Context, r *domain.DetectionRecord) error {
	if r == nil || r.TransactionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.TransactionID]; !exists {
		s.order = append(s.order, r.TransactionID)
	}
	s.data[r.TransactionID] = r.Clone()
	return nil
}

// GetByTransactionID retrieves a record. Returns ErrNotFound if absent.
func (s *DetectionRecordStore) GetByTransactionID(_ context.Context, transactionID string) (*domain.DetectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[transactionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return r.Clone(), nil
}

// GetByWalletAddress retrieves all records for a wallet in insertion order.
func (s *DetectionRecordStore) GetByWalletAddress(_ context.Context, walletAddress string) ([]*domain.DetectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DetectionRecord, 0)
	for _, id := range s.order {
		r := s.data[id]
		if r.WalletAddress != nil && *r.WalletAddress == walletAddress {
			result = append(result, r.Clone())
		}
	}
	return result, nil
}
