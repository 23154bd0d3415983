package domain

// DetectionRecord is the persisted outcome of a detection, from either the
// synchronous request path or an asynchronous correlation.
// Corresponds to detection_records table in PostgreSQL.
type DetectionRecord struct {
	TransactionID string  // unique key, upsert semantics
	WalletAddress *string // nullable; wallet the analysis was requested for
	IsSandwich    bool
	Confidence    int     // 0-100 percentage
	FrontTx       *string // nullable
	TargetTx      string
	BackTx        *string // nullable

	ValueImpactSol int64 // lamports
	ValueImpactUsd int64 // cents
	PriceImpact    int64 // basis points
	TimeFrame      int64 // milliseconds between front and back
	Pool           string

	AttackerProfitSol int64 // lamports
	AttackerProfitUsd int64 // cents

	Recommendations []string
	CreatedAt       int64 // Unix ms
}

// Clone returns a deep copy of the record.
func (r *DetectionRecord) Clone() *DetectionRecord {
	c := *r
	if r.WalletAddress != nil {
		w := *r.WalletAddress
		c.WalletAddress = &w
	}
	if r.FrontTx != nil {
		f := *r.FrontTx
		c.FrontTx = &f
	}
	if r.BackTx != nil {
		b := *r.BackTx
		c.BackTx = &b
	}
	c.Recommendations = append([]string(nil), r.Recommendations...)
	return &c
}
