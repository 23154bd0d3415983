package mempool

import (
	"time"

	"solana-sandwich-watch/internal/domain"
)

// DefaultSolPriceUsd is the conversion rate used when no price feed is
// configured.
const DefaultSolPriceUsd = 85.0

// ImpactEstimate carries heuristic impact numbers derived from correlated
// evidence. All values are in display units (SOL, USD, percent).
type ImpactEstimate struct {
	ValueSol       float64
	ValueUsd       float64
	PriceImpactPct float64
	ProfitSol      float64
	ProfitUsd      float64
	TimeFrame      time.Duration // span between first and last related event
}

// EstimateImpact derives impact figures from the events backing a pattern.
// The heuristic scales with neighbor count and tightens with the time
// span: more counter-transactions packed into a shorter window suggest a
// larger squeeze. Real impact would come from pool reserve deltas, which
// are outside this system's inputs.
func EstimateImpact(related []*domain.TransactionEvent, solPriceUsd float64) ImpactEstimate {
	if solPriceUsd <= 0 {
		solPriceUsd = DefaultSolPriceUsd
	}
	if len(related) == 0 {
		return ImpactEstimate{}
	}

	first, last := related[0].ObservedAt, related[0].ObservedAt
	for _, e := range related[1:] {
		if e.ObservedAt < first {
			first = e.ObservedAt
		}
		if e.ObservedAt > last {
			last = e.ObservedAt
		}
	}
	spanMs := last - first

	neighbors := len(related) - 1
	if neighbors < 0 {
		neighbors = 0
	}

	tightness := 0.0
	if spanMs < 2000 {
		tightness = float64(2000-spanMs) / 2000.0
	}

	valueSol := 0.05 * float64(neighbors)
	priceImpact := 0.4*float64(neighbors) + 0.5*tightness

	return ImpactEstimate{
		ValueSol:       valueSol,
		ValueUsd:       valueSol * solPriceUsd,
		PriceImpactPct: priceImpact,
		ProfitSol:      valueSol * 0.6,
		ProfitUsd:      valueSol * 0.6 * solPriceUsd,
		TimeFrame:      time.Duration(spanMs) * time.Millisecond,
	}
}
