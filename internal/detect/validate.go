package detect

import (
	"fmt"

	"solana-sandwich-watch/internal/domain"
)

// ValidateRequest checks a detection request after defaults have been
// applied. It returns a *domain.ValidationError carrying every failed
// field, or nil. No side effects occur before validation passes.
func ValidateRequest(r *domain.DetectionRequest) error {
	verr := &domain.ValidationError{}

	if r.TransactionIDOrWallet == "" {
		verr.Add("transactionIdOrWallet", "transaction ID or wallet address is required")
	}

	if r.TimeWindow < domain.TimeWindowMin || r.TimeWindow > domain.TimeWindowMax {
		verr.Add("timeWindow", fmt.Sprintf("must be between %d and %d seconds", domain.TimeWindowMin, domain.TimeWindowMax))
	}

	if !r.PriceImpactThreshold.IsValid() {
		verr.Add("priceImpactThreshold", "must be one of low, medium, high, custom")
	} else if r.PriceImpactThreshold == domain.ThresholdCustom && r.CustomPriceImpactThreshold == nil {
		verr.Add("customPriceImpactThreshold", "required when priceImpactThreshold is custom")
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// thresholdPercent resolves the configured threshold to a minimum price
// impact in percent.
func thresholdPercent(r *domain.DetectionRequest) float64 {
	switch r.PriceImpactThreshold {
	case domain.ThresholdLow:
		return 0.1
	case domain.ThresholdMedium:
		return 0.5
	case domain.ThresholdHigh:
		return 1.0
	case domain.ThresholdCustom:
		if r.CustomPriceImpactThreshold != nil {
			return *r.CustomPriceImpactThreshold
		}
	}
	return 0.5
}
