package clickhouse

import (
	"context"
	"fmt"

	"solana-sandwich-watch/internal/domain"
	"solana-sandwich-watch/internal/storage"
)

// AlertHistoryStore implements storage.AlertHistoryStore using ClickHouse.
// The alert_history table is append-only; rows are never updated. MergeTree
// does not enforce uniqueness at insert time, so duplicates are rejected by
// an explicit existence check first.
type AlertHistoryStore struct {
	conn *Conn
}

// NewAlertHistoryStore creates a new AlertHistoryStore.
func NewAlertHistoryStore(conn *Conn) *AlertHistoryStore {
	return &AlertHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AlertHistoryStore = (*AlertHistoryStore)(nil)

// Insert archives an alert. Returns ErrDuplicateKey if the ID exists.
func (s *AlertHistoryStore) Insert(ctx context.Context, a *domain.AlertRecord) error {
	if a == nil || a.ID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `
		INSERT INTO alert_history (
			id, kind, confidence, related_transactions, potential_target,
			attacker, pool, impact_usd, impact_pct, detected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err = s.conn.Exec(ctx, query,
		a.ID,
		string(a.Kind),
		a.Confidence,
		a.RelatedTransactions,
		a.PotentialTarget,
		a.Attacker,
		a.Pool,
		a.ImpactUsd,
		a.ImpactPct,
		uint64(a.DetectedAt),
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Recent returns up to limit alerts, newest first.
func (s *AlertHistoryStore) Recent(ctx context.Context, limit int) ([]*domain.AlertRecord, error) {
	if limit <= 0 {
		return []*domain.AlertRecord{}, nil
	}

	query := selectColumns + ` ORDER BY detected_at DESC, id ASC LIMIT ?`
	rows, err := s.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent alerts: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

// GetSince returns all alerts detected at or after since, oldest first.
func (s *AlertHistoryStore) GetSince(ctx context.Context, since int64) ([]*domain.AlertRecord, error) {
	query := selectColumns + ` WHERE detected_at >= ? ORDER BY detected_at ASC, id ASC`
	rows, err := s.conn.Query(ctx, query, uint64(since))
	if err != nil {
		return nil, fmt.Errorf("query alerts since: %w", err)
	}
	defer rows.Close()

	return scanAlerts(rows)
}

const selectColumns = `
	SELECT id, kind, confidence, related_transactions, potential_target,
		attacker, pool, impact_usd, impact_pct, detected_at
	FROM alert_history
`

// exists checks whether an alert with the given ID is already stored.
func (s *AlertHistoryStore) exists(ctx context.Context, id string) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count() FROM alert_history WHERE id = ?`, id)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// rowScanner abstracts driver.Rows for scanning.
type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAlerts(rows rowScanner) ([]*domain.AlertRecord, error) {
	result := make([]*domain.AlertRecord, 0)
	for rows.Next() {
		var (
			a          domain.AlertRecord
			kind       string
			detectedAt uint64
		)
		err := rows.Scan(
			&a.ID,
			&kind,
			&a.Confidence,
			&a.RelatedTransactions,
			&a.PotentialTarget,
			&a.Attacker,
			&a.Pool,
			&a.ImpactUsd,
			&a.ImpactPct,
			&detectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Kind = domain.PatternKind(kind)
		a.DetectedAt = int64(detectedAt)
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alerts: %w", err)
	}
	return result, nil
}
