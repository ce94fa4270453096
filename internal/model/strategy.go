package model

// ServiceInfo is the service summary included in a strategy response.
type ServiceInfo struct {
	ServiceID        string   `json:"service_id"`
	Customer         string   `json:"customer"`
	BandwidthDisplay string   `json:"bandwidth_display"`
	ClientMRC        float64  `json:"client_mrc"`
	Currency         Currency `json:"currency"`
	Address          string   `json:"address,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
}

// VendorQuoteInfo is the current-state summary of one vendor's quote.
type VendorQuoteInfo struct {
	VendorName   string   `json:"vendor_name"`
	RecordID     int64    `json:"record_id,omitempty"`
	CurrentMRC   float64  `json:"current_mrc"`
	MRCCurrency  Currency `json:"mrc_currency"`
	CurrentGM    float64  `json:"current_gm"`
	GMStatus     GMStatus `json:"gm_status"`
	LeadTimeDays *int     `json:"lead_time_days,omitempty"`
	Status       string   `json:"status,omitempty"`
	Bandwidth    string   `json:"bandwidth,omitempty"`
}

// NegotiationHistory is the response-facing view of NegotiationStats with the
// conservative (average-discount) projection applied.
type NegotiationHistory struct {
	TotalNegotiations      int      `json:"total_negotiations"`
	SuccessfulNegotiations int      `json:"successful_negotiations"`
	SuccessRate            float64  `json:"success_rate"`
	AvgDiscount            float64  `json:"avg_discount"`
	BestDiscount           float64  `json:"best_discount,omitempty"`
	ProjectedMRC           float64  `json:"projected_mrc,omitempty"`
	ProjectedGM            float64  `json:"projected_gm,omitempty"`
	ProjectedGMStatus      GMStatus `json:"projected_gm_status,omitempty"`
	// Best-case projection, present only when best > avg discount.
	BestCaseMRC float64 `json:"best_case_mrc,omitempty"`
	BestCaseGM  float64 `json:"best_case_gm,omitempty"`
}

// RenewalSummary is the response-facing view of RenewalStats.
type RenewalSummary struct {
	TotalRenewals      int     `json:"total_renewals"`
	SuccessfulRenewals int     `json:"successful_renewals"`
	SuccessRate        float64 `json:"success_rate"`
	AvgDiscount        float64 `json:"avg_discount"`
}

// TargetBand is the price and required discount for one target margin band.
type TargetBand struct {
	TargetMRC      float64 `json:"target_mrc"`
	DiscountNeeded float64 `json:"discount_needed"`
}

// TargetMargins carries both fixed recommendation bands (40% and 50% GM).
type TargetMargins struct {
	GM40 TargetBand `json:"gm_40"`
	GM50 TargetBand `json:"gm_50"`
}

// VPLOption is a published price-list entry for the same vendor.
type VPLOption struct {
	MRC            float64  `json:"mrc"`
	MRCCurrency    Currency `json:"mrc_currency"`
	NRC            float64  `json:"nrc"`
	NRCCurrency    Currency `json:"nrc_currency"`
	GM             float64  `json:"gm"`
	GMStatus       GMStatus `json:"gm_status"`
	Bandwidth      string   `json:"bandwidth"`
	ServiceType    string   `json:"service_type"`
	Savings        float64  `json:"savings"`
	SavingsPercent float64  `json:"savings_percent"`
}

// Alternative is a competing quote from a different vendor.
type Alternative struct {
	VendorName  string   `json:"vendor_name"`
	MRC         float64  `json:"mrc"`
	MRCCurrency Currency `json:"mrc_currency"`
	GM          float64  `json:"gm"`
	GMStatus    GMStatus `json:"gm_status"`
	Bandwidth   string   `json:"bandwidth"`
	ServiceType string   `json:"service_type"`
}

// RecommendationAction is a single ordered action item within a recommendation.
type RecommendationAction struct {
	Text  string   `json:"text"`
	Value *float64 `json:"value,omitempty"`
}

// Recommendation is one ranked negotiation recommendation. Built fresh per
// vendor per request and never mutated after construction.
type Recommendation struct {
	Priority int                    `json:"priority"`
	Title    string                 `json:"title"`
	Type     RecommendationType     `json:"type"`
	Strength Strength               `json:"strength"`
	Actions  []RecommendationAction `json:"actions"`
}

// VendorStrategy bundles everything computed for one vendor.
type VendorStrategy struct {
	VendorName         string              `json:"vendor_name"`
	VendorQuote        VendorQuoteInfo     `json:"vendor_quote"`
	NegotiationHistory *NegotiationHistory `json:"negotiation_history,omitempty"`
	RenewalStats       *RenewalSummary     `json:"renewal_stats,omitempty"`
	DeliveredServices  *DeliveredServices  `json:"delivered_services,omitempty"`
	Targets            TargetMargins       `json:"targets"`
	VendorVPL          []VPLOption         `json:"vendor_vpl"`
	Alternatives       []Alternative       `json:"alternatives"`
	Recommendations    []Recommendation    `json:"recommendations"`
}

// StrategyResponse is the top-level hand-off contract to presentation layers.
type StrategyResponse struct {
	ServiceID        string           `json:"service_id"`
	Service          ServiceInfo      `json:"service"`
	VendorStrategies []VendorStrategy `json:"vendor_strategies"`
	TotalVendors     int              `json:"total_vendors"`
}

// NearbyEvidence is a cheaper same-vendor quote near the service location,
// used as evidence in renewal analyses.
type NearbyEvidence struct {
	ServiceID         string  `json:"service_id,omitempty"`
	DistanceKm        float64 `json:"distance_km"`
	MRC               float64 `json:"mrc"`
	GM                float64 `json:"gm"`
	DiscountVsCurrent float64 `json:"discount_vs_current"`
}

// OverallRecommendation blends all available discount evidence for a renewal
// decision into one recommended ask.
type OverallRecommendation struct {
	RecommendedDiscount float64    `json:"recommended_discount"`
	MaxDiscount         float64    `json:"max_discount"`
	RecommendedMRC      float64    `json:"recommended_mrc"`
	ProjectedGM         float64    `json:"projected_gm"`
	GMStatus            GMStatus   `json:"gm_status"`
	DataSources         int        `json:"data_sources"`
	Confidence          Confidence `json:"confidence"`
}

// RenewalAnalysis is the renewal-mode analysis for one vendor.
type RenewalAnalysis struct {
	VendorName            string                 `json:"vendor_name"`
	CurrentMRC            float64                `json:"current_mrc"`
	CurrentGM             float64                `json:"current_gm"`
	GMStatus              GMStatus               `json:"gm_status"`
	Targets               TargetMargins          `json:"targets"`
	NearbyQuotes          []NearbyEvidence       `json:"nearby_quotes"`
	NegotiationHistory    *NegotiationHistory    `json:"negotiation_history,omitempty"`
	RenewalStats          *RenewalSummary        `json:"renewal_stats,omitempty"`
	Recommendations       []Recommendation       `json:"recommendations"`
	OverallRecommendation *OverallRecommendation `json:"overall_recommendation,omitempty"`
}

// RenewalResponse is the top-level renewal-mode response.
type RenewalResponse struct {
	ServiceID    string            `json:"service_id"`
	Service      ServiceInfo       `json:"service"`
	Analyses     []RenewalAnalysis `json:"vendor_analyses"`
	TotalVendors int               `json:"total_vendors"`
}
