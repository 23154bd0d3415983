package postgres

import (
	"context"
	"fmt"

	"solana-sandwich-watch/internal/storage"
)

// AttackerStore implements storage.AttackerStore using PostgreSQL.
type AttackerStore struct {
	pool *Pool
}

// NewAttackerStore creates a new AttackerStore.
func NewAttackerStore(pool *Pool) *AttackerStore {
	return &AttackerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AttackerStore = (*AttackerStore)(nil)

// Add registers an attacker address. Adding an existing address is a no-op.
func (s *AttackerStore) Add(ctx context.Context, address string) error {
	if address == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO known_attackers (address) VALUES ($1) ON CONFLICT (address) DO NOTHING`
	if _, err := s.pool.Exec(ctx, query, address); err != nil {
		return fmt.Errorf("add attacker: %w", err)
	}
	return nil
}

// Remove unregisters an attacker address.
func (s *AttackerStore) Remove(ctx context.Context, address string) error {
	if address == "" {
		return storage.ErrInvalidInput
	}

	query := `DELETE FROM known_attackers WHERE address = $1`
	if _, err := s.pool.Exec(ctx, query, address); err != nil {
		return fmt.Errorf("remove attacker: %w", err)
	}
	return nil
}

// Contains reports whether the address is in the set.
func (s *AttackerStore) Contains(ctx context.Context, address string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM known_attackers WHERE address = $1)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, address).Scan(&exists); err != nil {
		return false, fmt.Errorf("check attacker: %w", err)
	}
	return exists, nil
}

// List returns all registered addresses.
func (s *AttackerStore) List(ctx context.Context) ([]string, error) {
	query := `SELECT address FROM known_attackers ORDER BY address ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list attackers: %w", err)
	}
	defer rows.Close()

	result := make([]string, 0)
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan attacker: %w", err)
		}
		result = append(result, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attackers: %w", err)
	}
	return result, nil
}
