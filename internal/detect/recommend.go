package detect

import (
	"fmt"

	"solana-sandwich-watch/internal/domain"
)

// recommendations derives user-facing guidance from the analysis outcome.
// The list is ordered most actionable first.
func recommendations(out *analysisOutcome, req *domain.DetectionRequest) []string {
	if !out.result.IsSandwich && out.result.Confidence == 0 && !out.rapidTrades {
		return []string{
			"No sandwich pattern detected in the analyzed window.",
			"Re-run the analysis while the transaction is still in the retention window for best accuracy.",
		}
	}

	var recs []string
	if out.result.IsSandwich {
		recs = append(recs,
			"Tighten slippage tolerance before retrying this trade.",
			"Route the transaction through a private relay to keep it out of the public mempool.",
		)
		if out.result.PriceImpact >= thresholdPercent(req) {
			recs = append(recs, fmt.Sprintf(
				"Estimated price impact %.2f%% exceeds the configured threshold; consider splitting the trade into smaller parts.",
				out.result.PriceImpact))
		}
		if out.result.Pool != "unknown" {
			recs = append(recs, fmt.Sprintf(
				"Activity concentrated on %s; a deeper pool for the same pair would reduce impact.",
				out.result.Pool))
		}
	}
	if out.result.Confidence >= 0.95 {
		recs = append(recs, "A known sandwich operator is involved; avoid trading against this counterparty.")
	}
	if out.rapidTrades {
		recs = append(recs, "Rapid trade bursts from the same sender observed in the analysis window; monitor this wallet for bot activity.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Suspicious correlation observed but below reporting confidence; no action required.")
	}
	return recs
}
