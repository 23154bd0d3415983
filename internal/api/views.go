package api

import "solana-sandwich-watch/internal/domain"

// RecordView is the JSON shape of a stored detection record. Integer
// encodings (lamports, cents, basis points, milliseconds) convert back to
// display units at the boundary.
type RecordView struct {
	TransactionID string  `json:"transactionId"`
	WalletAddress *string `json:"walletAddress,omitempty"`
	IsSandwich    bool    `json:"isSandwich"`
	Confidence    float64 `json:"confidence"` // [0,1]
	FrontTx       *string `json:"frontTx"`
	TargetTx      string  `json:"targetTx"`
	BackTx        *string `json:"backTx"`

	ValueImpact             Amount  `json:"valueImpact"`
	PriceImpact             float64 `json:"priceImpact"` // percent
	TimeFrame               float64 `json:"timeFrame"`   // seconds
	Pool                    string  `json:"pool"`
	AttackerEstimatedProfit Amount  `json:"attackerEstimatedProfit"`

	Recommendations []string `json:"recommendations"`
	CreatedAt       int64    `json:"createdAt"` // Unix ms
}

// Amount is a SOL/USD value pair in display units.
type Amount struct {
	Sol float64 `json:"sol"`
	Usd float64 `json:"usd"`
}

func recordView(r *domain.DetectionRecord) *RecordView {
	return &RecordView{
		TransactionID: r.TransactionID,
		WalletAddress: r.WalletAddress,
		IsSandwich:    r.IsSandwich,
		Confidence:    float64(r.Confidence) / 100,
		FrontTx:       r.FrontTx,
		TargetTx:      r.TargetTx,
		BackTx:        r.BackTx,
		ValueImpact: Amount{
			Sol: float64(r.ValueImpactSol) / 1e9,
			Usd: float64(r.ValueImpactUsd) / 100,
		},
		PriceImpact: float64(r.PriceImpact) / 100,
		TimeFrame:   float64(r.TimeFrame) / 1000,
		Pool:        r.Pool,
		AttackerEstimatedProfit: Amount{
			Sol: float64(r.AttackerProfitSol) / 1e9,
			Usd: float64(r.AttackerProfitUsd) / 100,
		},
		Recommendations: r.Recommendations,
		CreatedAt:       r.CreatedAt,
	}
}

// AlertView is the JSON shape of an archived alert.
type AlertView struct {
	ID                  string   `json:"id"`
	Type                string   `json:"type"`
	Confidence          float64  `json:"confidence"`
	RelatedTransactions []string `json:"relatedTransactions"`
	PotentialTarget     string   `json:"potentialTarget,omitempty"`
	Attacker            string   `json:"attacker,omitempty"`
	Pool                string   `json:"pool"`
	ImpactUsd           float64  `json:"impactUsd"`
	ImpactPct           float64  `json:"impactPct"`
	DetectedAt          int64    `json:"detectedAt"`
}

func alertView(a *domain.AlertRecord) *AlertView {
	return &AlertView{
		ID:                  a.ID,
		Type:                a.Kind.String(),
		Confidence:          a.Confidence,
		RelatedTransactions: a.RelatedTransactions,
		PotentialTarget:     a.PotentialTarget,
		Attacker:            a.Attacker,
		Pool:                a.Pool,
		ImpactUsd:           a.ImpactUsd,
		ImpactPct:           a.ImpactPct,
		DetectedAt:          a.DetectedAt,
	}
}
