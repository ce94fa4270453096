package model

// NegotiationStats aggregates a vendor's new-contract negotiation history.
// Discounts are percentages (0-100), normalized at the records-store boundary.
// HasData distinguishes "vendor has no history" from a zero-valued record.
type NegotiationStats struct {
	VendorName   string  `json:"vendor_name"`
	Total        int     `json:"total_negotiations"`
	Successful   int     `json:"successful_negotiations"`
	SuccessRate  float64 `json:"success_rate"`
	AvgDiscount  float64 `json:"avg_discount"`
	BestDiscount float64 `json:"best_discount"`
	HasData      bool    `json:"has_data"`
}

// RenewalStats aggregates a vendor's contract-renewal negotiation history.
type RenewalStats struct {
	VendorName  string  `json:"vendor_name"`
	Total       int     `json:"total_renewals"`
	Successful  int     `json:"successful_renewals"`
	SuccessRate float64 `json:"success_rate"`
	AvgDiscount float64 `json:"avg_discount"`
	HasData     bool    `json:"has_data"`
}

// DeliveredServices summarizes total delivered business with a vendor, used as
// relationship-size context in strategies.
type DeliveredServices struct {
	TotalMRCUSD    float64 `json:"total_mrc_usd"`
	DeliveredCount int     `json:"delivered_count"`
	HasData        bool    `json:"-"`
}
