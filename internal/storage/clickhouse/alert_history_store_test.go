package clickhouse_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"solana-sandwich-watch/internal/domain"
	"solana-sandwich-watch/internal/storage"
	chstore "solana-sandwich-watch/internal/storage/clickhouse"
)

func sampleAlert(id string, detectedAt int64) *domain.AlertRecord {
	return &domain.AlertRecord{
		ID:                  id,
		Kind:                domain.PatternPotentialSandwich,
		Confidence:          0.7,
		RelatedTransactions: []string{"target-" + id, "front-" + id, "back-" + id},
		PotentialTarget:     "target-" + id,
		Attacker:            "attacker-" + id,
		Pool:                "SOL/USDC",
		ImpactUsd:           17.5,
		ImpactPct:           1.3,
		DetectedAt:          detectedAt,
	}
}

func TestAlertHistoryStore_InsertAndRecent(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewAlertHistoryStore(conn)
	ctx := context.Background()

	base := int64(1_748_779_200_000)
	for i := 0; i < 5; i++ {
		a := sampleAlert(fmt.Sprintf("alert-%d", i), base+int64(i)*1000)
		require.NoError(t, store.Insert(ctx, a))
	}

	got, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "alert-4", got[0].ID)
	require.Equal(t, "alert-3", got[1].ID)
	require.Equal(t, "alert-2", got[2].ID)

	// Full round trip of every column.
	first := got[0]
	require.Equal(t, domain.PatternPotentialSandwich, first.Kind)
	require.InDelta(t, 0.7, first.Confidence, 1e-9)
	require.Equal(t, []string{"target-alert-4", "front-alert-4", "back-alert-4"}, first.RelatedTransactions)
	require.Equal(t, "target-alert-4", first.PotentialTarget)
	require.Equal(t, "attacker-alert-4", first.Attacker)
	require.Equal(t, "SOL/USDC", first.Pool)
	require.InDelta(t, 17.5, first.ImpactUsd, 1e-9)
	require.InDelta(t, 1.3, first.ImpactPct, 1e-9)
	require.Equal(t, base+4000, first.DetectedAt)
}

func TestAlertHistoryStore_DuplicateID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewAlertHistoryStore(conn)
	ctx := context.Background()

	a := sampleAlert("dup", 1_748_779_200_000)
	require.NoError(t, store.Insert(ctx, a))
	require.ErrorIs(t, store.Insert(ctx, a), storage.ErrDuplicateKey)

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestAlertHistoryStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewAlertHistoryStore(conn)
	ctx := context.Background()

	require.ErrorIs(t, store.Insert(ctx, nil), storage.ErrInvalidInput)
	require.ErrorIs(t, store.Insert(ctx, &domain.AlertRecord{}), storage.ErrInvalidInput)
}

func TestAlertHistoryStore_GetSince(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewAlertHistoryStore(conn)
	ctx := context.Background()

	base := int64(1_748_779_200_000)
	for i := 0; i < 4; i++ {
		a := sampleAlert(fmt.Sprintf("since-%d", i), base+int64(i)*60_000)
		require.NoError(t, store.Insert(ctx, a))
	}

	// The cutoff is inclusive.
	got, err := store.GetSince(ctx, base+120_000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "since-2", got[0].ID)
	require.Equal(t, "since-3", got[1].ID)
}

func TestAlertHistoryStore_RecentZeroLimit(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewAlertHistoryStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleAlert("zero", 1_748_779_200_000)))

	got, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}
