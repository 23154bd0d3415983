package domain

// ImpactThreshold selects the price-impact sensitivity for a detection run.
type ImpactThreshold string

const (
	ThresholdLow    ImpactThreshold = "low"
	ThresholdMedium ImpactThreshold = "medium"
	ThresholdHigh   ImpactThreshold = "high"
	ThresholdCustom ImpactThreshold = "custom"
)

// IsValid checks if the threshold is a known value.
func (t ImpactThreshold) IsValid() bool {
	switch t {
	case ThresholdLow, ThresholdMedium, ThresholdHigh, ThresholdCustom:
		return true
	}
	return false
}

// Detection request bounds and defaults.
const (
	TimeWindowMin     = 5  // seconds
	TimeWindowMax     = 60 // seconds
	TimeWindowDefault = 15 // seconds
)

// DetectionRequest is the body of a synchronous detection call.
// Nil toggles mean "not set"; ApplyDefaults resolves them to true.
type DetectionRequest struct {
	TransactionIDOrWallet string `json:"transactionIdOrWallet"`

	FrontRunningDetection        *bool `json:"frontRunningDetection,omitempty"`
	BackRunningDetection         *bool `json:"backRunningDetection,omitempty"`
	PriceImpactAnalysis          *bool `json:"priceImpactAnalysis,omitempty"`
	RapidTradePatternRecognition *bool `json:"rapidTradePatternRecognition,omitempty"`

	TimeWindow                 int             `json:"timeWindow,omitempty"`           // seconds, [5,60]
	PriceImpactThreshold       ImpactThreshold `json:"priceImpactThreshold,omitempty"` // low|medium|high|custom
	CustomPriceImpactThreshold *float64        `json:"customPriceImpactThreshold,omitempty"`
}

// ApplyDefaults fills unset fields with their documented defaults.
func (r *DetectionRequest) ApplyDefaults() {
	if r.FrontRunningDetection == nil {
		r.FrontRunningDetection = boolPtr(true)
	}
	if r.BackRunningDetection == nil {
		r.BackRunningDetection = boolPtr(true)
	}
	if r.PriceImpactAnalysis == nil {
		r.PriceImpactAnalysis = boolPtr(true)
	}
	if r.RapidTradePatternRecognition == nil {
		r.RapidTradePatternRecognition = boolPtr(true)
	}
	if r.TimeWindow == 0 {
		r.TimeWindow = TimeWindowDefault
	}
	if r.PriceImpactThreshold == "" {
		r.PriceImpactThreshold = ThresholdMedium
	}
}

func boolPtr(b bool) *bool { return &b }

// ValueAmount is a SOL/USD pair in display units.
type ValueAmount struct {
	Sol float64 `json:"sol"`
	Usd float64 `json:"usd"`
}

// TransactionResult carries the verdict for one analyzed transaction.
type TransactionResult struct {
	IsSandwich              bool        `json:"isSandwich"`
	Confidence              float64     `json:"confidence"` // [0,1]
	FrontTx                 *string     `json:"frontTx"`
	TargetTx                string      `json:"targetTx"`
	BackTx                  *string     `json:"backTx"`
	ValueImpact             ValueAmount `json:"valueImpact"`
	PriceImpact             float64     `json:"priceImpact"` // percent
	TimeFrame               float64     `json:"timeFrame"`   // seconds between front and back
	Pool                    string      `json:"pool"`
	AttackerEstimatedProfit ValueAmount `json:"attackerEstimatedProfit"`
}

// DetectionResponse is the reply to a DetectionRequest.
type DetectionResponse struct {
	Result          TransactionResult `json:"result"`
	Recommendations []string          `json:"recommendations"`
}
