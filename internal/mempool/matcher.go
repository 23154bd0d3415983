package mempool

import (
	"context"
	"fmt"
	"time"

	"solana-sandwich-watch/internal/domain"
	"solana-sandwich-watch/internal/storage"
)

// KnownAttackerConfidence is assigned to every known-actor match.
const KnownAttackerConfidence = 0.95

// KnownActorMatcher flags transactions from previously confirmed attacker
// addresses, independent of any windowing. The attacker set is owned by
// the AttackerStore and is mutated only through its administrative
// operations, never by detection logic.
type KnownActorMatcher struct {
	attackers storage.AttackerStore
}

// NewKnownActorMatcher creates a matcher over the given attacker set.
func NewKnownActorMatcher(attackers storage.AttackerStore) *KnownActorMatcher {
	return &KnownActorMatcher{attackers: attackers}
}

// Check returns a KNOWN_ATTACKER pattern when the event's sender is in the
// attacker set, nil otherwise.
func (m *KnownActorMatcher) Check(ctx context.Context, event *domain.TransactionEvent) (*domain.SuspiciousPattern, error) {
	known, err := m.attackers.Contains(ctx, event.Sender)
	if err != nil {
		return nil, fmt.Errorf("check attacker set: %w", err)
	}
	if !known {
		return nil, nil
	}

	return &domain.SuspiciousPattern{
		Kind:                domain.PatternKnownAttacker,
		Confidence:          KnownAttackerConfidence,
		RelatedTransactions: []string{event.Signature},
		Description:         "transaction from known sandwich attacker address",
		DetectedAt:          time.Now().UnixMilli(),
	}, nil
}
