// Package detect implements the synchronous detection path: it answers
// "analyze this transaction id or wallet" by consulting the mempool
// monitor's accumulated state and persisting the outcome.
package detect

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-sandwich-watch/internal/domain"
	"solana-sandwich-watch/internal/idhash"
	"solana-sandwich-watch/internal/mempool"
	"solana-sandwich-watch/internal/observability"
	"solana-sandwich-watch/internal/solident"
	"solana-sandwich-watch/internal/storage"
)

// Responder answers detection requests against the monitor's live state.
type Responder struct {
	monitor *mempool.Monitor
	records storage.DetectionRecordStore
	alerts  storage.AlertHistoryStore
	metrics *observability.Metrics
	logger  *log.Logger

	now func() time.Time // injectable clock for tests
}

// ResponderOptions contains dependencies for creating a Responder.
type ResponderOptions struct {
	Monitor *mempool.Monitor
	Records storage.DetectionRecordStore
	Alerts  storage.AlertHistoryStore
	Metrics *observability.Metrics
	Logger  *log.Logger
}

// NewResponder creates a detection responder.
func NewResponder(opts ResponderOptions) *Responder {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Responder{
		monitor: opts.Monitor,
		records: opts.Records,
		alerts:  opts.Alerts,
		metrics: opts.Metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Detect validates the request, resolves the identifier, analyzes the
// monitor's accumulated evidence, persists a DetectionRecord keyed by the
// resolved transaction id, and returns the structured response.
// Validation fails before any computation or persistence.
func (r *Responder) Detect(ctx context.Context, req *domain.DetectionRequest) (*domain.DetectionResponse, error) {
	start := r.now()
	req.ApplyDefaults()
	if err := ValidateRequest(req); err != nil {
		if r.metrics != nil {
			r.metrics.DetectRequests.WithLabelValues("invalid").Inc()
		}
		return nil, err
	}

	resolved := r.resolve(req.TransactionIDOrWallet)
	analysis := r.analyze(ctx, req, resolved)

	record := r.buildRecord(resolved, analysis)
	if err := r.persist(ctx, record); err != nil {
		if r.metrics != nil {
			r.metrics.DetectRequests.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("persist detection record: %w", err)
	}

	if r.metrics != nil {
		r.metrics.DetectRequests.WithLabelValues("ok").Inc()
		r.metrics.DetectLatency.Observe(time.Since(start).Seconds())
	}

	return &domain.DetectionResponse{
		Result:          analysis.result,
		Recommendations: analysis.recommendations,
	}, nil
}

// resolvedInput is the outcome of classifying the request identifier.
type resolvedInput struct {
	kind          solident.IdentifierKind
	transactionID string
	wallet        string
}

// resolve classifies the identifier and determines the record key. A
// wallet input with no concrete transaction falls back to a deterministic
// generated id so repeated wallet analyses upsert the same row for the
// day.
func (r *Responder) resolve(input string) resolvedInput {
	kind := solident.Classify(input)
	switch kind {
	case solident.KindTransaction:
		res := resolvedInput{kind: kind, transactionID: input}
		if e := r.monitor.Buffer().Get(input); e != nil {
			res.wallet = e.Sender
		}
		return res
	case solident.KindWallet:
		res := resolvedInput{kind: kind, wallet: input}
		// Latest observed transaction from this wallet, if any.
		for _, e := range r.monitor.Buffer().Recent(r.monitor.Buffer().Len()) {
			if e.Sender == input {
				res.transactionID = e.Signature
				break
			}
		}
		if res.transactionID == "" {
			res.transactionID = idhash.ComputeWalletRecordID(input, dayStart(r.now))
		}
		return res
	default:
		// Unknown shapes are treated as opaque transaction ids.
		return resolvedInput{kind: solident.KindTransaction, transactionID: input}
	}
}

// analysisOutcome bundles the computed verdict with its evidence.
type analysisOutcome struct {
	result          domain.TransactionResult
	recommendations []string
	rapidTrades     bool
}

// analyze consults the correlator and matcher for the resolved identifier
// instead of fabricating a result. With no buffered evidence the verdict
// is a clean negative.
func (r *Responder) analyze(ctx context.Context, req *domain.DetectionRequest, resolved resolvedInput) analysisOutcome {
	out := analysisOutcome{
		result: domain.TransactionResult{
			TargetTx: resolved.transactionID,
			Pool:     "unknown",
		},
	}

	target := r.monitor.Buffer().Get(resolved.transactionID)
	if target == nil {
		out.recommendations = recommendations(&out, req)
		return out
	}

	snapshot := r.monitor.Buffer().Snapshot()
	pattern := r.monitor.Correlator().AnalyzeEvent(snapshot, target)

	knownAttacker := false
	if match, err := r.monitor.Matcher().Check(ctx, target); err != nil {
		r.logger.Printf("known-actor check failed during detect: %v", err)
	} else if match != nil {
		knownAttacker = true
	}

	if *req.RapidTradePatternRecognition {
		out.rapidTrades = r.checkRapidTrades(ctx, snapshot, target, req.TimeWindow)
	}

	if pattern == nil {
		if knownAttacker {
			out.result.Confidence = mempool.KnownAttackerConfidence
		}
		out.recommendations = recommendations(&out, req)
		return out
	}

	related := make([]*domain.TransactionEvent, 0, len(pattern.RelatedTransactions))
	for _, sig := range pattern.RelatedTransactions {
		if e := findBySignature(snapshot, sig); e != nil {
			related = append(related, e)
		}
	}
	estimate := mempool.EstimateImpact(related, r.monitor.ConfigSnapshot().SolPriceUsd)

	confidence := pattern.Confidence
	if extra := len(pattern.RelatedTransactions) - 3; extra > 0 {
		confidence += 0.05 * float64(min(extra, 4))
	}
	if confidence > 0.9 {
		confidence = 0.9
	}
	if knownAttacker {
		confidence = mempool.KnownAttackerConfidence
	}
	if *req.PriceImpactAnalysis && estimate.PriceImpactPct < thresholdPercent(req) {
		// Impact below the requested sensitivity weakens the verdict.
		confidence -= 0.1
		if confidence < 0.5 {
			confidence = 0.5
		}
	}

	out.result = domain.TransactionResult{
		IsSandwich: true,
		Confidence: confidence,
		TargetTx:   resolved.transactionID,
		ValueImpact: domain.ValueAmount{
			Sol: estimate.ValueSol,
			Usd: estimate.ValueUsd,
		},
		PriceImpact: estimate.PriceImpactPct,
		TimeFrame:   estimate.TimeFrame.Seconds(),
		Pool:        r.poolLabel(target),
		AttackerEstimatedProfit: domain.ValueAmount{
			Sol: estimate.ProfitSol,
			Usd: estimate.ProfitUsd,
		},
	}

	front, back := frontAndBack(related, target)
	if *req.FrontRunningDetection && front != nil {
		f := front.Signature
		out.result.FrontTx = &f
	}
	if *req.BackRunningDetection && back != nil {
		b := back.Signature
		out.result.BackTx = &b
	}

	out.recommendations = recommendations(&out, req)
	return out
}

// checkRapidTrades looks for at least three transactions from the target's
// sender within the request's analysis window. A positive finding is
// archived as a RAPID_TRADES alert.
func (r *Responder) checkRapidTrades(ctx context.Context, snapshot []*domain.TransactionEvent, target *domain.TransactionEvent, timeWindowSec int) bool {
	halfWindowMs := int64(timeWindowSec) * 1000 / 2

	var sigs []string
	for _, e := range snapshot {
		if e.Sender != target.Sender {
			continue
		}
		if e.ObservedAt < target.ObservedAt-halfWindowMs || e.ObservedAt > target.ObservedAt+halfWindowMs {
			continue
		}
		sigs = append(sigs, e.Signature)
	}
	if len(sigs) < 3 {
		return false
	}

	if r.alerts != nil {
		alert := &domain.AlertRecord{
			ID:                  idhash.ComputeAlertID(domain.PatternRapidTrades.String(), target.Signature, sigs),
			Kind:                domain.PatternRapidTrades,
			Confidence:          0.6,
			RelatedTransactions: sigs,
			PotentialTarget:     target.Signature,
			Attacker:            target.Sender,
			Pool:                r.poolLabel(target),
			DetectedAt:          r.now().UnixMilli(),
		}
		if err := r.alerts.Insert(ctx, alert); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			r.logger.Printf("archive rapid-trades alert failed: %v", err)
		}
	}
	return true
}

// buildRecord converts the analysis to the persisted integer encodings
// (lamports, cents, basis points, milliseconds).
func (r *Responder) buildRecord(resolved resolvedInput, analysis analysisOutcome) *domain.DetectionRecord {
	res := analysis.result

	var walletAddr *string
	if resolved.wallet != "" {
		w := resolved.wallet
		walletAddr = &w
	}

	return &domain.DetectionRecord{
		TransactionID:     resolved.transactionID,
		WalletAddress:     walletAddr,
		IsSandwich:        res.IsSandwich,
		Confidence:        int(res.Confidence*100 + 0.5),
		FrontTx:           res.FrontTx,
		TargetTx:          res.TargetTx,
		BackTx:            res.BackTx,
		ValueImpactSol:    int64(res.ValueImpact.Sol * 1_000_000_000),
		ValueImpactUsd:    int64(res.ValueImpact.Usd * 100),
		PriceImpact:       int64(res.PriceImpact * 100),
		TimeFrame:         int64(res.TimeFrame * 1000),
		Pool:              res.Pool,
		AttackerProfitSol: int64(res.AttackerEstimatedProfit.Sol * 1_000_000_000),
		AttackerProfitUsd: int64(res.AttackerEstimatedProfit.Usd * 100),
		Recommendations:   analysis.recommendations,
		CreatedAt:         r.now().UnixMilli(),
	}
}

// persist upserts the record, retrying once on a transient failure with
// no backoff.
func (r *Responder) persist(ctx context.Context, record *domain.DetectionRecord) error {
	err := r.records.Upsert(ctx, record)
	if err != nil {
		if r.metrics != nil {
			r.metrics.PersistRetries.Inc()
		}
		err = r.records.Upsert(ctx, record)
	}
	if err == nil && r.metrics != nil {
		r.metrics.RecordsUpserted.Inc()
	}
	return err
}

// poolLabel maps an event's programs to a configured pool label.
func (r *Responder) poolLabel(e *domain.TransactionEvent) string {
	labels := r.monitor.ConfigSnapshot().ProgramLabels
	for _, id := range e.ProgramIDs {
		if label, ok := labels[id]; ok {
			return label
		}
	}
	return "unknown"
}

// frontAndBack picks the earliest neighbor at or before the target and
// the latest after it.
func frontAndBack(related []*domain.TransactionEvent, target *domain.TransactionEvent) (front, back *domain.TransactionEvent) {
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
	return front, back
}

func findBySignature(events []*domain.TransactionEvent, sig string) *domain.TransactionEvent {
	for _, e := range events {
		if e.Signature == sig {
			return e
		}
	}
	return nil
}

// dayStart truncates a time to the start of its UTC day, in Unix ms.
func dayStart(now func() time.Time) int64 {
	t := now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).UnixMilli()
}
