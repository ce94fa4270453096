package model

import (
	"time"

	"github.com/google/uuid"
)

// VendorQuote is a candidate vendor offer for a service. Quotes are read-only
// value objects sourced from the graph store or the price-list API; the core
// never persists them.
type VendorQuote struct {
	ID           uuid.UUID `json:"id"`
	RecordID     int64     `json:"record_id,omitempty"`
	VendorName   string    `json:"vendor_name"`
	MRC          float64   `json:"mrc"`
	NRC          float64   `json:"nrc"`
	Currency     Currency  `json:"currency"`
	BandwidthBps *int64    `json:"bandwidth_bps,omitempty"`
	ServiceType  string    `json:"service_type,omitempty"`
	Status       string    `json:"status,omitempty"`
	LeadTimeDays *int      `json:"lead_time_days,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	// DistanceMeters is set only for nearby-sourced quotes.
	DistanceMeters float64     `json:"distance_meters,omitempty"`
	Source         QuoteSource `json:"source"`
	QuotedAt       time.Time   `json:"quoted_at,omitempty"`
}

// Vendor returns the normalized vendor identifier for join comparisons.
func (q *VendorQuote) Vendor() VendorID {
	return NormalizeVendor(q.VendorName)
}
