package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-sandwich-watch/internal/domain"
	"solana-sandwich-watch/internal/storage"
)

// DetectionRecordStore implements storage.DetectionRecordStore using
// PostgreSQL. Upserts are expressed as INSERT ... ON CONFLICT so the
// transaction_id uniqueness invariant is enforced by the database.
type DetectionRecordStore struct {
	pool *Pool
}

// NewDetectionRecordStore creates a new DetectionRecordStore.
func NewDetectionRecordStore(pool *Pool) *DetectionRecordStore {
	return &DetectionRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DetectionRecordStore = (*DetectionRecordStore)(nil)

// Upsert inserts the record or replaces an existing one with the same
// TransactionID. The seq column keeps insertion order stable across
// replacements.
func (s *DetectionRecordStore) Upsert(ctx context.Context, r *domain.DetectionRecord) error {
	if r == nil || r.TransactionID == "" {
		return storage.ErrInvalidInput
	}

	// A nil slice would encode as NULL and violate the NOT NULL column.
	recommendations := r.Recommendations
	if recommendations == nil {
		recommendations = []string{}
	}

	query := `
		INSERT INTO detection_records (
			transaction_id, wallet_address, is_sandwich, confidence,
			front_tx, target_tx, back_tx,
			value_impact_sol, value_impact_usd, price_impact, time_frame, pool,
			attacker_profit_sol, attacker_profit_usd, recommendations, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (transaction_id) DO UPDATE SET
			wallet_address = EXCLUDED.wallet_address,
			is_sandwich = EXCLUDED.is_sandwich,
			confidence = EXCLUDED.confidence,
			front_tx = EXCLUDED.front_tx,
			target_tx = EXCLUDED.target_tx,
			back_tx = EXCLUDED.back_tx,
			value_impact_sol = EXCLUDED.value_impact_sol,
			value_impact_usd = EXCLUDED.value_impact_usd,
			price_impact = EXCLUDED.price_impact,
			time_frame = EXCLUDED.time_frame,
			pool = EXCLUDED.pool,
			attacker_profit_sol = EXCLUDED.attacker_profit_sol,
			attacker_profit_usd = EXCLUDED.attacker_profit_usd,
			recommendations = EXCLUDED.recommendations,
			created_at = EXCLUDED.created_at
	`

	_, err := s.pool.Exec(ctx, query,
		r.TransactionID,
		r.WalletAddress,
		r.IsSandwich,
		r.Confidence,
		r.FrontTx,
		r.TargetTx,
		r.BackTx,
		r.ValueImpactSol,
		r.ValueImpactUsd,
		r.PriceImpact,
		r.TimeFrame,
		r.Pool,
		r.AttackerProfitSol,
		r.AttackerProfitUsd,
		recommendations,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert detection record: %w", err)
	}
	return nil
}

// GetByTransactionID retrieves a record. Returns ErrNotFound if absent.
func (s *DetectionRecordStore) GetByTransactionID(ctx context.Context, transactionID string) (*domain.DetectionRecord, error) {
	query := selectColumns + ` WHERE transaction_id = $1`

	row := s.pool.QueryRow(ctx, query, transactionID)
	r, err := scanRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get detection record by id: %w", err)
	}
	return r, nil
}

// GetByWalletAddress retrieves all records for a wallet in insertion order.
func (s *DetectionRecordStore) GetByWalletAddress(ctx context.Context, walletAddress string) ([]*domain.DetectionRecord, error) {
	query := selectColumns + ` WHERE wallet_address = $1 ORDER BY seq ASC`

	rows, err := s.pool.Query(ctx, query, walletAddress)
	if err != nil {
		return nil, fmt.Errorf("get detection records by wallet: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.DetectionRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan detection record: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detection records: %w", err)
	}
	return result, nil
}

const selectColumns = `
	SELECT transaction_id, wallet_address, is_sandwich, confidence,
		front_tx, target_tx, back_tx,
		value_impact_sol, value_impact_usd, price_impact, time_frame, pool,
		attacker_profit_sol, attacker_profit_usd, recommendations, created_at
	FROM detection_records
`

// scanRecord scans a single row into a DetectionRecord.
func scanRecord(row pgx.Row) (*domain.DetectionRecord, error) {
	var r domain.DetectionRecord
	err := row.Scan(
		&r.TransactionID,
		&r.WalletAddress,
		&r.IsSandwich,
		&r.Confidence,
		&r.FrontTx,
		&r.TargetTx,
		&r.BackTx,
		&r.ValueImpactSol,
		&r.ValueImpactUsd,
		&r.PriceImpact,
		&r.TimeFrame,
		&r.Pool,
		&r.AttackerProfitSol,
		&r.AttackerProfitUsd,
		&r.Recommendations,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
