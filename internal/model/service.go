package model

// ServiceContext is the immutable snapshot of a client service for one
// analysis request. It is created once per request and never mutated.
type ServiceContext struct {
	ServiceID    string   `json:"service_id"`
	Customer     string   `json:"customer"`
	ClientMRC    float64  `json:"client_mrc"`
	Currency     Currency `json:"currency"`
	BandwidthBps *int64   `json:"bandwidth_bps,omitempty"`
	Address      string   `json:"address,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// HasLocation reports whether the service carries usable coordinates.
func (s *ServiceContext) HasLocation() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// BandwidthDisplay renders the service bandwidth for humans.
func (s *ServiceContext) BandwidthDisplay() string {
	return FormatBandwidth(s.BandwidthBps)
}
