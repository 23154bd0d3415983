package domain

// PatternKind classifies a detected suspicious correlation.
type PatternKind string

const (
	PatternPotentialSandwich PatternKind = "potential_sandwich"
	PatternKnownAttacker     PatternKind = "known_attacker"
	PatternRapidTrades       PatternKind = "rapid_trades"
	PatternPriceManipulation PatternKind = "price_manipulation"
)

// String returns the string representation of PatternKind.
func (k PatternKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a known value.
func (k PatternKind) IsValid() bool {
	switch k {
	case PatternPotentialSandwich, PatternKnownAttacker, PatternRapidTrades, PatternPriceManipulation:
		return true
	}
	return false
}

// SuspiciousPattern is a detected correlation emitted by the correlator or
// the known-actor matcher. Patterns are immutable once created; a
// re-detection produces a new pattern rather than updating an old one.
type SuspiciousPattern struct {
	Kind       PatternKind `json:"type"`
	Confidence float64     `json:"confidence"` // heuristic certainty in [0,1]
	// RelatedTransactions holds signatures in detection order, front-run
	// first when known. At least one element; for sandwiches the target
	// plus at least two neighbors.
	RelatedTransactions []string `json:"relatedTransactions"`
	PotentialTarget     string   `json:"potentialTarget,omitempty"` // victim signature, when identified
	Description         string   `json:"description"`
	DetectedAt          int64    `json:"detectedAt"` // Unix ms
}
