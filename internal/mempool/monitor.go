package mempool

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-sandwich-watch/internal/domain"
	"solana-sandwich-watch/internal/idhash"
	"solana-sandwich-watch/internal/observability"
	"solana-sandwich-watch/internal/storage"
)

// Default monitor scheduling parameters.
const (
	DefaultRetentionHorizon    = 10 * time.Second
	DefaultCorrelationInterval = 5 * time.Second
	DefaultCleanupInterval     = 30 * time.Second
)

// Broadcaster fans out monitoring output to subscribed observers.
// Delivery is best-effort, at most once per observer per call.
type Broadcaster interface {
	PublishTransaction(event *domain.TransactionEvent)
	PublishAlert(pattern *domain.SuspiciousPattern)
	PublishWalletActivity(wallet string, activity any)
}

// Config holds the monitor's scheduling and detection parameters.
type Config struct {
	RetentionHorizon    time.Duration
	CorrelationInterval time.Duration
	CleanupInterval     time.Duration

	Correlator CorrelatorConfig

	// ProgramLabels maps tracked program ids to human-readable pool
	// labels for alerts and records.
	ProgramLabels map[string]string

	// SolPriceUsd converts SOL impact estimates to USD.
	SolPriceUsd float64
}

// DefaultConfig returns the production defaults for the given tracked
// programs.
func DefaultConfig(programs []string) Config {
	return Config{
		RetentionHorizon:    DefaultRetentionHorizon,
		CorrelationInterval: DefaultCorrelationInterval,
		CleanupInterval:     DefaultCleanupInterval,
		Correlator:          DefaultCorrelatorConfig(programs),
		SolPriceUsd:         DefaultSolPriceUsd,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.RetentionHorizon <= 0 {
		return fmt.Errorf("retention horizon must be positive")
	}
	if c.CorrelationInterval <= 0 {
		return fmt.Errorf("correlation interval must be positive")
	}
	// Evicting at least every horizon/2 keeps peak memory near twice
	// steady state.
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be positive")
	}
	if c.Correlator.WindowDelta <= 0 {
		return fmt.Errorf("window delta must be positive")
	}
	if c.Correlator.WindowDelta > c.RetentionHorizon {
		return fmt.Errorf("window delta %v exceeds retention horizon %v", c.Correlator.WindowDelta, c.RetentionHorizon)
	}
	return nil
}

// Monitor wires the ingest buffer, correlator and known-actor matcher into
// one component. Each ingested event is checked against the attacker set
// synchronously; the correlator and the retention manager run on their own
// tickers over buffer snapshots.
type Monitor struct {
	config     Config
	buffer     *EventBuffer
	correlator *Correlator
	matcher    *KnownActorMatcher

	records     storage.DetectionRecordStore
	alerts      storage.AlertHistoryStore
	broadcaster Broadcaster
	metrics     *observability.Metrics
	logger      *log.Logger
}

// MonitorOptions contains dependencies for creating a Monitor.
type MonitorOptions struct {
	Config      Config
	Attackers   storage.AttackerStore
	Records     storage.DetectionRecordStore
	Alerts      storage.AlertHistoryStore
	Broadcaster Broadcaster
	Metrics     *observability.Metrics
	Logger      *log.Logger
}

// NewMonitor creates a monitor with the provided dependencies.
func NewMonitor(opts MonitorOptions) (*Monitor, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("monitor config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Monitor{
		config:      opts.Config,
		buffer:      NewEventBuffer(),
		correlator:  NewCorrelator(opts.Config.Correlator),
		matcher:     NewKnownActorMatcher(opts.Attackers),
		records:     opts.Records,
		alerts:      opts.Alerts,
		broadcaster: opts.Broadcaster,
		metrics:     opts.Metrics,
		logger:      logger,
	}, nil
}

// ProcessEvent ingests one observed transaction: validates and buffers it,
// runs the known-actor check, and fans out to observers. A matcher or
// persistence failure does not reject the event itself.
func (m *Monitor) ProcessEvent(ctx context.Context, event *domain.TransactionEvent) error {
	if err := m.buffer.Ingest(event); err != nil {
		if m.metrics != nil {
			m.metrics.EventsRejected.Inc()
		}
		return err
	}
	if m.metrics != nil {
		m.metrics.EventsIngested.Inc()
		m.metrics.BufferSize.Set(float64(m.buffer.Len()))
		m.metrics.HighestSlotSeen.Set(float64(event.Slot))
	}

	pattern, err := m.matcher.Check(ctx, event)
	if err != nil {
		m.logger.Printf("known-actor check failed for %s: %v", shorten(event.Signature), err)
	} else if pattern != nil {
		m.emit(ctx, pattern, event.Sender)
	}

	if m.broadcaster != nil {
		m.broadcaster.PublishTransaction(event)
		m.broadcaster.PublishWalletActivity(event.Sender, map[string]any{
			"type":       "transaction",
			"signature":  event.Signature,
			"programIds": event.ProgramIDs,
		})
	}
	return nil
}

// Run drives the correlation and eviction tickers until ctx is cancelled.
// The pass in progress finishes before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	correlate := time.NewTicker(m.config.CorrelationInterval)
	defer correlate.Stop()
	cleanup := time.NewTicker(m.config.CleanupInterval)
	defer cleanup.Stop()

	m.logger.Printf("mempool monitoring started (horizon=%v correlate=%v cleanup=%v programs=%d)",
		m.config.RetentionHorizon, m.config.CorrelationInterval, m.config.CleanupInterval,
		len(m.config.Correlator.TrackedPrograms))

	for {
		select {
		case <-ctx.Done():
			m.logger.Printf("mempool monitoring stopped")
			return ctx.Err()
		case <-correlate.C:
			m.RunCorrelationPass(ctx)
		case <-cleanup.C:
			m.RunEvictionPass(time.Now().UnixMilli())
		}
	}
}

// RunCorrelationPass takes a snapshot, evaluates it, and emits every
// pattern found. A failure archiving or persisting one pattern is logged
// and does not abort the rest of the pass.
func (m *Monitor) RunCorrelationPass(ctx context.Context) []*domain.SuspiciousPattern {
	start := time.Now()
	snapshot := m.buffer.Snapshot()
	patterns := m.correlator.Pass(snapshot)

	for _, p := range patterns {
		wallet := ""
		if target := findEvent(snapshot, p.PotentialTarget); target != nil {
			wallet = target.Sender
		}
		m.emit(ctx, p, wallet)
	}

	if m.metrics != nil {
		m.metrics.CorrelationPasses.Inc()
		m.metrics.CorrelationLatency.Observe(time.Since(start).Seconds())
	}
	return patterns
}

// RunEvictionPass removes events beyond the retention horizon and returns
// the count removed.
func (m *Monitor) RunEvictionPass(now int64) int {
	removed := m.buffer.Evict(now, m.config.RetentionHorizon.Milliseconds())
	if removed > 0 {
		m.logger.Printf("evicted %d events beyond retention horizon", removed)
	}
	if m.metrics != nil {
		m.metrics.EventsEvicted.Add(float64(removed))
		m.metrics.BufferSize.Set(float64(m.buffer.Len()))
	}
	return removed
}

// emit archives a pattern, persists a detection record for sandwiches,
// and broadcasts the alert. Broadcast always happens, even when archival
// dedupes a re-emission; persistence of the record and the broadcast are
// deliberately separate, non-atomic steps.
func (m *Monitor) emit(ctx context.Context, p *domain.SuspiciousPattern, wallet string) {
	if m.metrics != nil {
		m.metrics.PatternsEmitted.WithLabelValues(p.Kind.String()).Inc()
	}

	if m.alerts != nil {
		if err := m.archiveAlert(ctx, p, wallet); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			m.logger.Printf("archive alert failed: %v", err)
		}
	}

	if p.Kind == domain.PatternPotentialSandwich && m.records != nil {
		if err := m.persistSandwichRecord(ctx, p, wallet); err != nil {
			m.logger.Printf("persist detection record failed: %v", err)
		}
	}

	if m.broadcaster != nil {
		m.broadcaster.PublishAlert(p)
	}
}

// archiveAlert stores the pattern in the alert history under its
// deterministic id.
func (m *Monitor) archiveAlert(ctx context.Context, p *domain.SuspiciousPattern, wallet string) error {
	estimate := EstimateImpact(m.relatedEvents(p), m.config.SolPriceUsd)

	attacker := ""
	if p.Kind == domain.PatternKnownAttacker {
		attacker = wallet
	}

	return m.alerts.Insert(ctx, &domain.AlertRecord{
		ID:                  idhash.ComputeAlertID(p.Kind.String(), p.PotentialTarget, p.RelatedTransactions),
		Kind:                p.Kind,
		Confidence:          p.Confidence,
		RelatedTransactions: p.RelatedTransactions,
		PotentialTarget:     p.PotentialTarget,
		Attacker:            attacker,
		Pool:                m.poolLabel(p),
		ImpactUsd:           estimate.ValueUsd,
		ImpactPct:           estimate.PriceImpactPct,
		DetectedAt:          p.DetectedAt,
	})
}

// persistSandwichRecord upserts the detection record derived from a
// sandwich pattern, retrying once on a transient failure.
func (m *Monitor) persistSandwichRecord(ctx context.Context, p *domain.SuspiciousPattern, wallet string) error {
	record := m.recordFromPattern(p, wallet)

	err := m.records.Upsert(ctx, record)
	if err != nil {
		if m.metrics != nil {
			m.metrics.PersistRetries.Inc()
		}
		err = m.records.Upsert(ctx, record)
	}
	if err != nil {
		return err
	}
	if m.metrics != nil {
		m.metrics.RecordsUpserted.Inc()
	}
	return nil
}

// recordFromPattern builds the persisted analysis for a sandwich pattern.
// The earliest neighbor before the target becomes the front-run, the
// latest after it the back-run; either side may be absent.
func (m *Monitor) recordFromPattern(p *domain.SuspiciousPattern, wallet string) *domain.DetectionRecord {
	related := m.relatedEvents(p)
	estimate := EstimateImpact(related, m.config.SolPriceUsd)

	var target *domain.TransactionEvent
	for _, e := range related {
		if e.Signature == p.PotentialTarget {
			target = e
			break
		}
	}

	var frontTx, backTx *string
	if target != nil {
		var front, back *domain.TransactionEvent
		for _, e := range related {
			if e.Signature == target.Signature {
				continue
			}
			if e.ObservedAt <= target.ObservedAt {
				if front == nil || e.ObservedAt < front.ObservedAt {
					front = e
				}
			} else {
				if back == nil || e.ObservedAt > back.ObservedAt {
					back = e
				}
			}
		}
		if front != nil {
			f := front.Signature
			frontTx = &f
		}
		if back != nil {
			b := back.Signature
			backTx = &b
		}
	}

	var walletAddr *string
	if wallet != "" {
		walletAddr = &wallet
	}

	return &domain.DetectionRecord{
		TransactionID:     p.PotentialTarget,
		WalletAddress:     walletAddr,
		IsSandwich:        true,
		Confidence:        int(p.Confidence*100 + 0.5),
		FrontTx:           frontTx,
		TargetTx:          p.PotentialTarget,
		BackTx:            backTx,
		ValueImpactSol:    int64(estimate.ValueSol * 1_000_000_000),
		ValueImpactUsd:    int64(estimate.ValueUsd * 100),
		PriceImpact:       int64(estimate.PriceImpactPct * 100),
		TimeFrame:         estimate.TimeFrame.Milliseconds(),
		Pool:              m.poolLabel(p),
		AttackerProfitSol: int64(estimate.ProfitSol * 1_000_000_000),
		AttackerProfitUsd: int64(estimate.ProfitUsd * 100),
		Recommendations:   nil,
		CreatedAt:         time.Now().UnixMilli(),
	}
}

// relatedEvents resolves a pattern's signatures against the buffer. Events
// already evicted resolve to nothing and are skipped.
func (m *Monitor) relatedEvents(p *domain.SuspiciousPattern) []*domain.TransactionEvent {
	events := make([]*domain.TransactionEvent, 0, len(p.RelatedTransactions))
	for _, sig := range p.RelatedTransactions {
		if e := m.buffer.Get(sig); e != nil {
			events = append(events, e)
		}
	}
	return events
}

// poolLabel maps the pattern's program to a configured pool label.
func (m *Monitor) poolLabel(p *domain.SuspiciousPattern) string {
	target := findEventSignature(p)
	if target == "" {
		return "unknown"
	}
	e := m.buffer.Get(target)
	if e == nil {
		return "unknown"
	}
	for _, id := range e.ProgramIDs {
		if label, ok := m.config.ProgramLabels[id]; ok {
			return label
		}
	}
	return "unknown"
}

// findEventSignature picks the signature identifying a pattern: the target
// when present, else the first related transaction.
func findEventSignature(p *domain.SuspiciousPattern) string {
	if p.PotentialTarget != "" {
		return p.PotentialTarget
	}
	if len(p.RelatedTransactions) > 0 {
		return p.RelatedTransactions[0]
	}
	return ""
}

// findEvent locates a signature in a snapshot.
func findEvent(events []*domain.TransactionEvent, signature string) *domain.TransactionEvent {
	for _, e := range events {
		if e.Signature == signature {
			return e
		}
	}
	return nil
}

// Buffer exposes the underlying event buffer for the detection path and
// the stream snapshot.
func (m *Monitor) Buffer() *EventBuffer {
	return m.buffer
}

// Correlator exposes the correlator for the synchronous detection path.
func (m *Monitor) Correlator() *Correlator {
	return m.correlator
}

// Matcher exposes the known-actor matcher for the synchronous detection
// path.
func (m *Monitor) Matcher() *KnownActorMatcher {
	return m.matcher
}

// Config returns the monitor configuration.
func (m *Monitor) ConfigSnapshot() Config {
	return m.config
}
