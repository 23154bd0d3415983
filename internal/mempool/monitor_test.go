package mempool

import (
	"context"
	"sync"
	"testing"
	"time"

	"solana-sandwich-watch/internal/domain"
	"solana-sandwich-watch/internal/storage/memory"
)

// captureBroadcaster records everything published to it.
type captureBroadcaster struct {
	mu           sync.Mutex
	transactions []*domain.TransactionEvent
	alerts       []*domain.SuspiciousPattern
	wallets      []string
}

func (c *captureBroadcaster) PublishTransaction(e *domain.TransactionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactions = append(c.transactions, e)
}

func (c *captureBroadcaster) PublishAlert(p *domain.SuspiciousPattern) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = append(c.alerts, p)
}

func (c *captureBroadcaster) PublishWalletActivity(wallet string, _ any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wallets = append(c.wallets, wallet)
}

func (c *captureBroadcaster) alertCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.alerts)
}

type monitorFixture struct {
	monitor     *Monitor
	records     *memory.DetectionRecordStore
	alerts      *memory.AlertHistoryStore
	broadcaster *captureBroadcaster
}

func newMonitorFixture(t *testing.T, attackerSeed ...string) *monitorFixture {
	t.Helper()

	records := memory.NewDetectionRecordStore()
	alerts := memory.NewAlertHistoryStore()
	broadcaster := &captureBroadcaster{}

	cfg := DefaultConfig([]string{testProgram})
	cfg.ProgramLabels = map[string]string{testProgram: "TEST/SOL"}

	m, err := NewMonitor(MonitorOptions{
		Config:      cfg,
		Attackers:   memory.NewAttackerStore(attackerSeed...),
		Records:     records,
		Alerts:      alerts,
		Broadcaster: broadcaster,
	})
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	return &monitorFixture{monitor: m, records: records, alerts: alerts, broadcaster: broadcaster}
}

func TestMonitorConfigValidation(t *testing.T) {
	cfg := DefaultConfig([]string{testProgram})
	cfg.Correlator.WindowDelta = cfg.RetentionHorizon * 2

	_, err := NewMonitor(MonitorOptions{Config: cfg, Attackers: memory.NewAttackerStore()})
	if err == nil {
		t.Fatal("window delta wider than the horizon must be rejected")
	}
}

func TestProcessEventBroadcastsAndBuffers(t *testing.T) {
	f := newMonitorFixture(t)

	err := f.monitor.ProcessEvent(context.Background(), event("tx-1", "sender-a", 1_000, testProgram))
	if err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}

	if f.monitor.Buffer().Get("tx-1") == nil {
		t.Error("event not buffered")
	}
	if len(f.broadcaster.transactions) != 1 {
		t.Errorf("transactions broadcast = %d, want 1", len(f.broadcaster.transactions))
	}
	if len(f.broadcaster.wallets) != 1 || f.broadcaster.wallets[0] != "sender-a" {
		t.Errorf("wallet activity = %v", f.broadcaster.wallets)
	}
	if f.broadcaster.alertCount() != 0 {
		t.Error("a single clean event must not alert")
	}
}

func TestProcessEventRejectsInvalid(t *testing.T) {
	f := newMonitorFixture(t)

	err := f.monitor.ProcessEvent(context.Background(), event("", "sender-a", 1_000))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(f.broadcaster.transactions) != 0 {
		t.Error("rejected event must not broadcast")
	}
}

func TestProcessEventKnownAttackerEmitsAlert(t *testing.T) {
	f := newMonitorFixture(t, "attacker-addr")

	err := f.monitor.ProcessEvent(context.Background(), event("tx-1", "attacker-addr", 1_000, testProgram))
	if err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}

	if f.broadcaster.alertCount() != 1 {
		t.Fatalf("alerts = %d, want 1", f.broadcaster.alertCount())
	}
	archived, err := f.alerts.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(archived) != 1 || archived[0].Kind != domain.PatternKnownAttacker {
		t.Errorf("archived = %+v", archived)
	}
	if archived[0].Attacker != "attacker-addr" {
		t.Errorf("attacker = %q", archived[0].Attacker)
	}
}

func TestCorrelationPassPersistsSandwichRecord(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	base := time.Now().UnixMilli()

	f.monitor.ProcessEvent(ctx, event("tx-front", "sender-a", base-1_000, testProgram))
	f.monitor.ProcessEvent(ctx, event("tx-target", "sender-b", base, testProgram))
	f.monitor.ProcessEvent(ctx, event("tx-back", "sender-c", base+1_000, testProgram))

	patterns := f.monitor.RunCorrelationPass(ctx)
	if len(patterns) != 3 {
		t.Fatalf("patterns = %d, want 3", len(patterns))
	}

	// Each centered event gets its own persisted record.
	for _, sig := range []string{"tx-front", "tx-target", "tx-back"} {
		record, err := f.records.GetByTransactionID(ctx, sig)
		if err != nil {
			t.Fatalf("record for %s: %v", sig, err)
		}
		if !record.IsSandwich || record.Confidence != 70 {
			t.Errorf("%s: sandwich=%v confidence=%d", sig, record.IsSandwich, record.Confidence)
		}
		if record.Pool != "TEST/SOL" {
			t.Errorf("%s: pool = %q", sig, record.Pool)
		}
	}

	record, _ := f.records.GetByTransactionID(ctx, "tx-target")
	if record.FrontTx == nil || *record.FrontTx != "tx-front" {
		t.Errorf("frontTx = %v", record.FrontTx)
	}
	if record.BackTx == nil || *record.BackTx != "tx-back" {
		t.Errorf("backTx = %v", record.BackTx)
	}
}

func TestCorrelationPassDedupesArchiveNotBroadcast(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	base := time.Now().UnixMilli()

	f.monitor.ProcessEvent(ctx, event("tx-front", "sender-a", base-1_000, testProgram))
	f.monitor.ProcessEvent(ctx, event("tx-target", "sender-b", base, testProgram))
	f.monitor.ProcessEvent(ctx, event("tx-back", "sender-c", base+1_000, testProgram))

	f.monitor.RunCorrelationPass(ctx)
	f.monitor.RunCorrelationPass(ctx)

	// The archive keeps one row per deterministic alert id.
	archived, err := f.alerts.Recent(ctx, 100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(archived) != 3 {
		t.Errorf("archived = %d, want 3", len(archived))
	}

	// Broadcast is per emission, not deduplicated.
	if f.broadcaster.alertCount() != 6 {
		t.Errorf("broadcast alerts = %d, want 6", f.broadcaster.alertCount())
	}
}

func TestEvictionPassRemovesStaleEvents(t *testing.T) {
	f := newMonitorFixture(t)
	ctx := context.Background()
	base := int64(100_000)

	f.monitor.ProcessEvent(ctx, event("tx-stale", "sender-a", base-30_000, testProgram))
	f.monitor.ProcessEvent(ctx, event("tx-fresh", "sender-b", base-1_000, testProgram))

	removed := f.monitor.RunEvictionPass(base)
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if f.monitor.Buffer().Get("tx-stale") != nil {
		t.Error("stale event survived eviction")
	}
	if f.monitor.Buffer().Get("tx-fresh") == nil {
		t.Error("fresh event evicted")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := newMonitorFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.monitor.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
