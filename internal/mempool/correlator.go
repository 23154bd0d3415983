package mempool

import (
	"fmt"
	"time"

	"solana-sandwich-watch/internal/domain"
)

// Default correlation parameters, matching the monitor's production
// configuration.
const (
	DefaultWindowDelta        = 2 * time.Second
	DefaultSandwichConfidence = 0.7
)

// CorrelatorConfig holds the windowed pattern-detection parameters.
type CorrelatorConfig struct {
	// TrackedPrograms are the swap program ids evaluated independently;
	// an event may appear in patterns under more than one program.
	TrackedPrograms []string
	// WindowDelta is the half-width of the symmetric scan window around
	// each evaluated event.
	WindowDelta time.Duration
	// SandwichConfidence is assigned to every emitted sandwich pattern.
	// Deriving it from price-impact magnitude is a known simplification
	// of this heuristic.
	SandwichConfidence float64
}

// DefaultCorrelatorConfig returns the default configuration for the given
// tracked programs.
func DefaultCorrelatorConfig(programs []string) CorrelatorConfig {
	return CorrelatorConfig{
		TrackedPrograms:    programs,
		WindowDelta:        DefaultWindowDelta,
		SandwichConfidence: DefaultSandwichConfidence,
	}
}

// Correlator scans event snapshots for sandwich-shaped groupings: an
// evaluated event plus at least two counter-transactions from different
// senders touching the same tracked program inside ±WindowDelta.
//
// Emissions are not deduplicated across passes. A triple that stays in the
// retention window is reported again on the next pass; consumers that need
// exactly-once semantics dedupe by the pattern's deterministic alert id.
type Correlator struct {
	config CorrelatorConfig
}

// NewCorrelator creates a correlator for the given configuration.
func NewCorrelator(config CorrelatorConfig) *Correlator {
	if config.WindowDelta <= 0 {
		config.WindowDelta = DefaultWindowDelta
	}
	if config.SandwichConfidence <= 0 {
		config.SandwichConfidence = DefaultSandwichConfidence
	}
	return &Correlator{config: config}
}

// Pass evaluates a full snapshot and returns every pattern found. Events
// must be the consistent snapshot of one correlation pass; the slice is
// not mutated.
func (c *Correlator) Pass(events []*domain.TransactionEvent) []*domain.SuspiciousPattern {
	var patterns []*domain.SuspiciousPattern
	for _, program := range c.config.TrackedPrograms {
		for _, e := range events {
			if !e.HasProgram(program) {
				continue
			}
			if p := c.analyze(events, e, program); p != nil {
				patterns = append(patterns, p)
			}
		}
	}
	return patterns
}

// AnalyzeEvent evaluates a single event against the snapshot under every
// tracked program, returning the first pattern found. Used by the
// synchronous detection path to reuse the correlator's accumulated state.
func (c *Correlator) AnalyzeEvent(events []*domain.TransactionEvent, e *domain.TransactionEvent) *domain.SuspiciousPattern {
	for _, program := range c.config.TrackedPrograms {
		if !e.HasProgram(program) {
			continue
		}
		if p := c.analyze(events, e, program); p != nil {
			return p
		}
	}
	return nil
}

// analyze applies the windowed neighbor rule around one event for one
// tracked program.
func (c *Correlator) analyze(events []*domain.TransactionEvent, e *domain.TransactionEvent, program string) *domain.SuspiciousPattern {
	deltaMs := c.config.WindowDelta.Milliseconds()
	windowStart := e.ObservedAt - deltaMs
	windowEnd := e.ObservedAt + deltaMs

	var neighbors []*domain.TransactionEvent
	for _, n := range events {
		if n.Signature == e.Signature {
			continue
		}
		if n.ObservedAt < windowStart || n.ObservedAt > windowEnd {
			continue
		}
		if n.Sender == e.Sender {
			continue
		}
		if !n.HasProgram(program) {
			continue
		}
		neighbors = append(neighbors, n)
	}

	if len(neighbors) < 2 {
		return nil
	}

	related := make([]string, 0, len(neighbors)+1)
	related = append(related, e.Signature)
	for _, n := range neighbors {
		related = append(related, n.Signature)
	}

	return &domain.SuspiciousPattern{
		Kind:                domain.PatternPotentialSandwich,
		Confidence:          c.config.SandwichConfidence,
		RelatedTransactions: related,
		PotentialTarget:     e.Signature,
		Description:         fmt.Sprintf("potential sandwich attack pattern around %s", shorten(e.Signature)),
		DetectedAt:          time.Now().UnixMilli(),
	}
}

// shorten abbreviates a signature for human-readable descriptions.
func shorten(sig string) string {
	if len(sig) <= 12 {
		return sig
	}
	return sig[:6] + "..." + sig[len(sig)-4:]
}
