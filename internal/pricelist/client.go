// Package pricelist provides the client for the vendor price-list (VPL)
// catalog API, which publishes vendors' list prices per location and
// bandwidth tier.
package pricelist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/marginmind/backend/internal/config"
	"github.com/marginmind/backend/internal/model"
)

// Option is one published price-list entry, with amounts already converted
// to USD.
type Option struct {
	VendorName   string
	MRCUSD       float64
	NRCUSD       float64
	BandwidthBps *int64
	ServiceType  string
	Region       string
}

// Vendor returns the normalized vendor identity for cross-source joins.
func (o Option) Vendor() model.VendorID {
	return model.NormalizeVendor(o.VendorName)
}

// Client talks to the price-list catalog API.
type Client struct {
	cfg        config.PriceListConfig
	httpClient *http.Client
	logger     *slog.Logger
	tolerance  float64
}

// NewClient creates a price-list client. tolerance is the fractional
// bandwidth window accepted around the service's bandwidth.
func NewClient(cfg config.PriceListConfig, tolerance float64, logger *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		tolerance:  tolerance,
	}
}

// entry is the raw catalog record. Prices are published in the vendor's
// local currency together with the exchange rate the catalog applied, so
// dividing by that rate recovers the USD amount.
type entry struct {
	Vendor        string   `json:"vendor"`
	MRC           float64  `json:"mrc"`
	NRC           float64  `json:"nrc"`
	Currency      string   `json:"currency"`
	ExchangeRate  float64  `json:"exchange_rate"`
	BandwidthMbps *float64 `json:"bandwidth_mbps"`
	ServiceType   string   `json:"service_type"`
	Region        string   `json:"region"`
}

// Options fetches the published price-list entries near a location, filtered
// to bandwidths within the configured window of the service's bandwidth.
// A nil bandwidth disables the bandwidth filter.
func (c *Client) Options(ctx context.Context, lat, lon float64, bandwidthBps *int64) ([]Option, error) {
	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.6f", lat))
	q.Set("longitude", fmt.Sprintf("%.6f", lon))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/v1/prices?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price list query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("price list returned status %d", resp.StatusCode)
	}

	var payload struct {
		Results []entry `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode price list response: %w", err)
	}

	options := make([]Option, 0, len(payload.Results))
	for _, e := range payload.Results {
		if e.MRC <= 0 {
			continue
		}
		opt := Option{
			VendorName:  e.Vendor,
			MRCUSD:      toUSD(e.MRC, e.ExchangeRate),
			NRCUSD:      toUSD(e.NRC, e.ExchangeRate),
			ServiceType: e.ServiceType,
			Region:      e.Region,
		}
		if e.BandwidthMbps != nil {
			bps := int64(*e.BandwidthMbps * 1_000_000)
			opt.BandwidthBps = &bps
		}
		if !c.bandwidthInWindow(bandwidthBps, opt.BandwidthBps) {
			continue
		}
		options = append(options, opt)
	}
	return options, nil
}

// toUSD divides a local-currency amount by the catalog's own exchange rate.
// This is the inverse of market-rate conversion, which multiplies USD amounts
// into the local currency.
func toUSD(amount, exchangeRate float64) float64 {
	if exchangeRate <= 0 {
		return amount
	}
	return amount / exchangeRate
}

func (c *Client) bandwidthInWindow(target, candidate *int64) bool {
	if target == nil {
		return true
	}
	if candidate == nil {
		return false
	}
	lo := float64(*target) * (1 - c.tolerance)
	hi := float64(*target) * (1 + c.tolerance)
	v := float64(*candidate)
	return v >= lo && v <= hi
}
