package detect

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"solana-sandwich-watch/internal/domain"
	"solana-sandwich-watch/internal/mempool"
	"solana-sandwich-watch/internal/storage"
	"solana-sandwich-watch/internal/storage/memory"
)

const testProgram = "DexProgramAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

type responderFixture struct {
	responder *Responder
	monitor   *mempool.Monitor
	records   *memory.DetectionRecordStore
	alerts    *memory.AlertHistoryStore
	attackers *memory.AttackerStore
	base      time.Time
}

func newResponderFixture(t *testing.T, attackerSeed ...string) *responderFixture {
	t.Helper()

	records := memory.NewDetectionRecordStore()
	alerts := memory.NewAlertHistoryStore()
	attackers := memory.NewAttackerStore(attackerSeed...)

	cfg := mempool.DefaultConfig([]string{testProgram})
	cfg.ProgramLabels = map[string]string{testProgram: "TEST/SOL"}

	monitor, err := mempool.NewMonitor(mempool.MonitorOptions{
		Config:    cfg,
		Attackers: attackers,
		Records:   records,
		Alerts:    alerts,
	})
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}

	responder := NewResponder(ResponderOptions{
		Monitor: monitor,
		Records: records,
		Alerts:  alerts,
	})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	responder.now = func() time.Time { return base }

	return &responderFixture{
		responder: responder,
		monitor:   monitor,
		records:   records,
		alerts:    alerts,
		attackers: attackers,
		base:      base,
	}
}

func (f *responderFixture) ingest(t *testing.T, sig, sender string, offset time.Duration) {
	t.Helper()
	err := f.monitor.Buffer().Ingest(&domain.TransactionEvent{
		Signature:  sig,
		Slot:       100,
		ObservedAt: f.base.Add(offset).UnixMilli(),
		Sender:     sender,
		ProgramIDs: []string{testProgram},
	})
	if err != nil {
		t.Fatalf("ingest %s: %v", sig, err)
	}
}

func TestDetectRejectsInvalidRequest(t *testing.T) {
	f := newResponderFixture(t)

	_, err := f.responder.Detect(context.Background(), &domain.DetectionRequest{
		TransactionIDOrWallet: "tx-x",
		TimeWindow:            4,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if _, ok := domain.AsValidationError(err); !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if _, err := f.records.GetByTransactionID(context.Background(), "tx-x"); !errors.Is(err, storage.ErrNotFound) {
		t.Error("invalid request must not persist a record")
	}
}

func TestDetectCleanTransactionPersistsNegative(t *testing.T) {
	f := newResponderFixture(t)

	resp, err := f.responder.Detect(context.Background(), &domain.DetectionRequest{
		TransactionIDOrWallet: "tx-unseen",
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if resp.Result.IsSandwich {
		t.Error("empty buffer must yield a negative verdict")
	}
	if resp.Result.TargetTx != "tx-unseen" {
		t.Errorf("targetTx = %q", resp.Result.TargetTx)
	}
	if len(resp.Recommendations) == 0 {
		t.Error("expected baseline recommendations")
	}

	rec, err := f.records.GetByTransactionID(context.Background(), "tx-unseen")
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if rec.IsSandwich || rec.Confidence != 0 {
		t.Errorf("unexpected record: sandwich=%v confidence=%d", rec.IsSandwich, rec.Confidence)
	}
}

func TestDetectFlagsSandwichWithFrontAndBack(t *testing.T) {
	f := newResponderFixture(t)
	f.ingest(t, "tx-front", "sender-attacker", -time.Second)
	f.ingest(t, "tx-target", "sender-victim", 0)
	f.ingest(t, "tx-back", "sender-attacker2", time.Second)

	resp, err := f.responder.Detect(context.Background(), &domain.DetectionRequest{
		TransactionIDOrWallet: "tx-target",
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	res := resp.Result
	if !res.IsSandwich {
		t.Fatal("expected sandwich verdict")
	}
	if res.Confidence != 0.7 {
		t.Errorf("confidence = %v, want 0.7", res.Confidence)
	}
	if res.FrontTx == nil || *res.FrontTx != "tx-front" {
		t.Errorf("frontTx = %v, want tx-front", res.FrontTx)
	}
	if res.BackTx == nil || *res.BackTx != "tx-back" {
		t.Errorf("backTx = %v, want tx-back", res.BackTx)
	}
	if res.Pool != "TEST/SOL" {
		t.Errorf("pool = %q", res.Pool)
	}
	if res.TimeFrame != 2.0 {
		t.Errorf("timeFrame = %v, want 2.0", res.TimeFrame)
	}

	rec, err := f.records.GetByTransactionID(context.Background(), "tx-target")
	if err != nil {
		t.Fatalf("record not persisted: %v", err)
	}
	if rec.Confidence != 70 || !rec.IsSandwich {
		t.Errorf("record confidence=%d sandwich=%v", rec.Confidence, rec.IsSandwich)
	}
	if rec.WalletAddress == nil || *rec.WalletAddress != "sender-victim" {
		t.Errorf("walletAddress = %v", rec.WalletAddress)
	}
}

func TestDetectTogglesSuppressFrontAndBack(t *testing.T) {
	f := newResponderFixture(t)
	f.ingest(t, "tx-front", "sender-a", -time.Second)
	f.ingest(t, "tx-target", "sender-b", 0)
	f.ingest(t, "tx-back", "sender-c", time.Second)

	off := false
	resp, err := f.responder.Detect(context.Background(), &domain.DetectionRequest{
		TransactionIDOrWallet: "tx-target",
		FrontRunningDetection: &off,
		BackRunningDetection:  &off,
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if resp.Result.FrontTx != nil || resp.Result.BackTx != nil {
		t.Errorf("toggles off: frontTx=%v backTx=%v", resp.Result.FrontTx, resp.Result.BackTx)
	}
	if !resp.Result.IsSandwich {
		t.Error("verdict itself must survive the display toggles")
	}
}

func TestDetectKnownAttackerLiftsConfidence(t *testing.T) {
	f := newResponderFixture(t, "sender-known-attacker")
	f.ingest(t, "tx-target", "sender-known-attacker", 0)

	resp, err := f.responder.Detect(context.Background(), &domain.DetectionRequest{
		TransactionIDOrWallet: "tx-target",
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if resp.Result.Confidence != mempool.KnownAttackerConfidence {
		t.Errorf("confidence = %v, want %v", resp.Result.Confidence, mempool.KnownAttackerConfidence)
	}
	found := false
	for _, r := range resp.Recommendations {
		if strings.Contains(r, "known sandwich operator") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing known-operator recommendation: %v", resp.Recommendations)
	}
}

func TestDetectRapidTradesArchivesAlert(t *testing.T) {
	f := newResponderFixture(t)
	f.ingest(t, "tx-1", "sender-bot", -3*time.Second)
	f.ingest(t, "tx-2", "sender-bot", -time.Second)
	f.ingest(t, "tx-3", "sender-bot", 0)

	resp, err := f.responder.Detect(context.Background(), &domain.DetectionRequest{
		TransactionIDOrWallet: "tx-3",
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if resp.Result.IsSandwich {
		t.Error("same-sender burst is not a sandwich")
	}

	found := false
	for _, r := range resp.Recommendations {
		if strings.Contains(r, "Rapid trade bursts") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing rapid-trades recommendation: %v", resp.Recommendations)
	}

	alerts, err := f.alerts.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Kind != domain.PatternRapidTrades {
		t.Fatalf("expected one rapid_trades alert, got %+v", alerts)
	}
}

func TestDetectRapidTradesToggleOff(t *testing.T) {
	f := newResponderFixture(t)
	f.ingest(t, "tx-1", "sender-bot", -2*time.Second)
	f.ingest(t, "tx-2", "sender-bot", -time.Second)
	f.ingest(t, "tx-3", "sender-bot", 0)

	off := false
	resp, err := f.responder.Detect(context.Background(), &domain.DetectionRequest{
		TransactionIDOrWallet:        "tx-3",
		RapidTradePatternRecognition: &off,
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	for _, r := range resp.Recommendations {
		if strings.Contains(r, "Rapid trade bursts") {
			t.Errorf("toggle off must suppress rapid-trades analysis: %v", resp.Recommendations)
		}
	}
	alerts, _ := f.alerts.Recent(context.Background(), 10)
	if len(alerts) != 0 {
		t.Errorf("no alert expected with toggle off, got %d", len(alerts))
	}
}

func TestDetectWalletInputResolvesLatestTransaction(t *testing.T) {
	f := newResponderFixture(t)
	wallet := strings.Repeat("w", 40)
	f.ingest(t, "tx-old", wallet, -5*time.Second)
	f.ingest(t, "tx-new", wallet, -time.Second)

	resp, err := f.responder.Detect(context.Background(), &domain.DetectionRequest{
		TransactionIDOrWallet: wallet,
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if resp.Result.TargetTx != "tx-new" {
		t.Errorf("targetTx = %q, want latest observed tx-new", resp.Result.TargetTx)
	}

	records, err := f.records.GetByWalletAddress(context.Background(), wallet)
	if err != nil {
		t.Fatalf("GetByWalletAddress: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
}

func TestDetectWalletInputWithoutActivityUsesStableID(t *testing.T) {
	f := newResponderFixture(t)
	wallet := strings.Repeat("q", 40)

	first, err := f.responder.Detect(context.Background(), &domain.DetectionRequest{TransactionIDOrWallet: wallet})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	second, err := f.responder.Detect(context.Background(), &domain.DetectionRequest{TransactionIDOrWallet: wallet})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !strings.HasPrefix(first.Result.TargetTx, "wallet:") {
		t.Errorf("expected generated wallet record id, got %q", first.Result.TargetTx)
	}
	if first.Result.TargetTx != second.Result.TargetTx {
		t.Errorf("generated id must be stable within the day: %q vs %q", first.Result.TargetTx, second.Result.TargetTx)
	}

	records, err := f.records.GetByWalletAddress(context.Background(), wallet)
	if err != nil {
		t.Fatalf("GetByWalletAddress: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("repeated analyses must upsert one record, got %d", len(records))
	}
}

// flakyRecordStore fails the first Upsert with a transient error, then
// delegates.
type flakyRecordStore struct {
	storage.DetectionRecordStore
	failed bool
}

func (s *flakyRecordStore) Upsert(ctx context.Context, r *domain.DetectionRecord) error {
	if !s.failed {
		s.failed = true
		return errors.New("connection reset")
	}
	return s.DetectionRecordStore.Upsert(ctx, r)
}

func TestDetectRetriesPersistenceOnce(t *testing.T) {
	f := newResponderFixture(t)
	flaky := &flakyRecordStore{DetectionRecordStore: f.records}
	f.responder.records = flaky

	_, err := f.responder.Detect(context.Background(), &domain.DetectionRequest{
		TransactionIDOrWallet: "tx-retry",
	})
	if err != nil {
		t.Fatalf("Detect should succeed via retry: %v", err)
	}
	if _, err := f.records.GetByTransactionID(context.Background(), "tx-retry"); err != nil {
		t.Errorf("record missing after retry: %v", err)
	}
}
