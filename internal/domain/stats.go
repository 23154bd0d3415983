package domain

// MempoolStats summarizes recent monitoring activity for the dashboard.
type MempoolStats struct {
	TotalAlertsToday  int              `json:"totalAlertsToday"`
	ActiveAttackers   int              `json:"activeAttackers"`
	MostImpactedPools []PoolAlertCount `json:"mostImpactedPools"`
	RecentImpactUsd   float64          `json:"recentImpactUsd"`
}

// PoolAlertCount is an alert tally for one pool.
type PoolAlertCount struct {
	Name       string `json:"name"`
	AlertCount int    `json:"alertCount"`
}

// TokenMetrics aggregates attacks per token pair.
type TokenMetrics struct {
	Symbol                  string   `json:"symbol"`
	AttackCount             int      `json:"attackCount"`
	Attackers               []string `json:"attackers"`
	TotalImpactUsd          float64  `json:"totalImpactUsd"`
	AverageImpactPercentage float64  `json:"averageImpactPercentage"`
}

// TimeSeriesPoint is one bucket of the attack-frequency chart.
type TimeSeriesPoint struct {
	Timestamp int64 `json:"timestamp"` // bucket start, Unix ms
	Value     int   `json:"value"`
}

// AlertRecord is an archived pattern emission, the unit of the alert
// history used for dashboard aggregation.
type AlertRecord struct {
	ID                  string // deterministic hash of kind, target and related set
	Kind                PatternKind
	Confidence          float64
	RelatedTransactions []string
	PotentialTarget     string // empty when no victim identified
	Attacker            string // sender flagged by the matcher, if any
	Pool                string
	ImpactUsd           float64
	ImpactPct           float64 // estimated price impact, percent
	DetectedAt          int64   // Unix ms
}
