package storage

import (
	"context"

	"solana-sandwich-watch/internal/domain"
)

// DetectionRecordStore provides access to detection_records storage.
// Records are keyed by transaction id with upsert semantics: a second
// detection for the same transaction replaces the first.
type DetectionRecordStore interface {
	// Upsert inserts the record or replaces an existing one with the same
	// TransactionID.
	Upsert(ctx context.Context, r *domain.DetectionRecord) error

	// GetByTransactionID retrieves a record. Returns ErrNotFound if absent.
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.DetectionRecord, error)

	// GetByWalletAddress retrieves all records for a wallet in insertion
	// order. Returns an empty slice when none exist.
	GetByWalletAddress(ctx context.Context, walletAddress string) ([]*domain.DetectionRecord, error)
}

// AttackerStore holds the known-attacker address set. It is mutated only
// through the administrative Add/Remove operations, never by detection
// logic.
type AttackerStore interface {
	// Add registers an attacker address. Adding an existing address is a
	// no-op.
	Add(ctx context.Context, address string) error

	// Remove unregisters an attacker address. Removing an unknown address
	// is a no-op.
	Remove(ctx context.Context, address string) error

	// Contains reports whether the address is in the set.
	Contains(ctx context.Context, address string) (bool, error)

	// List returns all registered addresses.
	List(ctx context.Context) ([]string, error)
}

// AlertHistoryStore archives emitted patterns for dashboard aggregation.
// Append-only; the same pattern re-emitted across correlator passes is
// deduplicated by its deterministic ID.
type AlertHistoryStore interface {
	// Insert archives an alert. Returns ErrDuplicateKey if the ID exists.
	Insert(ctx context.Context, a *domain.AlertRecord) error

	// Recent returns up to limit alerts, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.AlertRecord, error)

	// GetSince returns all alerts detected at or after the given Unix ms
	// timestamp, ordered by DetectedAt ASC.
	GetSince(ctx context.Context, since int64) ([]*domain.AlertRecord, error)
}
