// Package model contains the core domain entities for the margin optimizer.
package model

import "fmt"

// GMStatus classifies a gross margin into the three business tiers.
type GMStatus string

const (
	GMStatusSuccess GMStatus = "success" // >= 50%
	GMStatusWarning GMStatus = "warning" // >= 40%, < 50%
	GMStatusDanger  GMStatus = "danger"  // < 40%
)

// QuoteSource identifies where a vendor quote was sourced from.
type QuoteSource string

const (
	SourceAssociated QuoteSource = "associated"
	SourceNearby     QuoteSource = "nearby"
	SourcePriceList  QuoteSource = "price_list"
)

// RecommendationType classifies a strategy recommendation.
type RecommendationType string

const (
	RecommendationNegotiate          RecommendationType = "negotiate"
	RecommendationPriceListLeverage  RecommendationType = "price_list_leverage"
	RecommendationCompetitorLeverage RecommendationType = "competitor_leverage"
	RecommendationMaintain           RecommendationType = "maintain"
)

// Strength expresses how strong a negotiation argument is.
type Strength string

const (
	StrengthVeryHigh Strength = "very_high"
	StrengthHigh     Strength = "high"
	StrengthMedium   Strength = "medium"
	StrengthLow      Strength = "low"
)

// Confidence labels how well-supported a blended recommendation is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Currency is an ISO-4217 currency code.
type Currency string

const CurrencyUSD Currency = "USD"

// FormatBandwidth renders a bits-per-second value for humans, e.g. "100 Mbps".
// A nil bandwidth renders as "N/A".
func FormatBandwidth(bps *int64) string {
	if bps == nil || *bps <= 0 {
		return "N/A"
	}
	v := *bps
	switch {
	case v >= 1_000_000_000 && v%1_000_000_000 == 0:
		return fmt.Sprintf("%d Gbps", v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("%d Mbps", v/1_000_000)
	default:
		return fmt.Sprintf("%d Kbps", v/1_000)
	}
}
