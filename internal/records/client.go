// Package records provides the client for the tabular business-records store
// holding negotiation history, renewals, and contracted service pricing. The
// store keys record fields by numeric field IDs; everything is mapped into
// typed DTOs here so the core never sees untyped maps.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/marginmind/backend/internal/config"
	"github.com/marginmind/backend/internal/model"
)

// Contracts table field IDs.
const (
	fldContractRecordID     = 3
	fldContractMRC          = 6
	fldContractServiceType  = 74
	fldContractMRCUSD       = 135
	fldContractNRCUSD       = 136
	fldContractServiceID    = 234
	fldContractVendor       = 245
	fldContractStatus       = 254
	fldContractSupportLevel = 273
	fldContractQuoteMRC     = 431
	fldContractDeltaMRC     = 466
)

// Renewals table field IDs.
const (
	fldRenewalVendor   = 14
	fldRenewalDiscount = 47
	fldRenewalCreated  = 72
)

// Services table field IDs.
const (
	fldServiceID       = 7
	fldServiceMRCUSD   = 329
	fldServiceCurrency = 702
)

// In-scope service types for negotiation statistics. The store holds
// inconsistent casing, so the filter enumerates known variants.
var statsServiceTypes = []string{
	"bia", "BIA",
	"bia 3g/4g", "BIA 3g/4g",
	"clear channel / iplc", "Clear Channel / IPLC",
	"dia", "DIA",
	"ethernet", "Ethernet", "ETHERNET",
	"ipvpn", "IPVPN", "IP VPN",
}

// Client talks to the records-store query API.
type Client struct {
	cfg        config.RecordsConfig
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a records-store client.
func NewClient(cfg config.RecordsConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		baseURL:    "https://api." + cfg.Realm + "/v1",
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// NewClientWithBaseURL creates a client against an explicit endpoint. Used in tests.
func NewClientWithBaseURL(cfg config.RecordsConfig, baseURL string, logger *slog.Logger) *Client {
	c := NewClient(cfg, logger)
	c.baseURL = baseURL
	return c
}

type queryRequest struct {
	From    string       `json:"from"`
	Select  []int        `json:"select"`
	Where   string       `json:"where,omitempty"`
	Options queryOptions `json:"options"`
}

type queryOptions struct {
	Skip int `json:"skip"`
	Top  int `json:"top"`
}

type fieldValue struct {
	Value json.RawMessage `json:"value"`
}

// record is one raw row keyed by stringified field ID.
type record map[string]fieldValue

func (r record) float(fieldID int) (float64, bool) {
	fv, ok := r[fmt.Sprintf("%d", fieldID)]
	if !ok || len(fv.Value) == 0 {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(fv.Value, &f); err != nil {
		return 0, false
	}
	return f, true
}

func (r record) decimal(fieldID int) (decimal.Decimal, bool) {
	fv, ok := r[fmt.Sprintf("%d", fieldID)]
	if !ok || len(fv.Value) == 0 {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.Trim(string(fv.Value), `"`))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func (r record) str(fieldID int) (string, bool) {
	fv, ok := r[fmt.Sprintf("%d", fieldID)]
	if !ok || len(fv.Value) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(fv.Value, &s); err != nil {
		return "", false
	}
	return s, true
}

func (c *Client) query(ctx context.Context, req queryRequest) ([]record, error) {
	body, _ := json.Marshal(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/records/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("QB-Realm-Hostname", c.cfg.Realm)
	httpReq.Header.Set("Authorization", "QB-USER-TOKEN "+c.cfg.Token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("records query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("records store returned status %d", resp.StatusCode)
	}

	var payload struct {
		Data []record `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode records response: %w", err)
	}
	return payload.Data, nil
}

// normalizeDiscount converts a raw fractional delta into a percentage.
// Deltas >= 1.0 represent missing source data (an apparent 100% discount means
// the contract MRC was never recorded), so they are rejected as a data-quality
// filter, not a business rule.
func normalizeDiscount(raw float64) (float64, bool) {
	if raw <= 0 || raw >= 1.0 {
		return 0, false
	}
	return raw * 100, true
}

// VendorNegotiationStats aggregates new-contract negotiation history for a
// vendor. Total counts every in-scope contract line; successful counts only
// lines with a valid positive discount and both sides of the price recorded.
func (c *Client) VendorNegotiationStats(ctx context.Context, vendorName string) (*model.NegotiationStats, error) {
	typeFilters := make([]string, len(statsServiceTypes))
	for i, st := range statsServiceTypes {
		typeFilters[i] = fmt.Sprintf("{%d.EX.'%s'}", fldContractServiceType, st)
	}
	where := fmt.Sprintf("{%d.CT.'%s'}AND((%s)AND({%d.XCT.'NTL.'}AND{%d.XCT.'IGN.'})AND({%d.EX.'A'}OR{%d.EX.'B'}OR{%d.EX.'D'}))",
		fldContractVendor, vendorName,
		strings.Join(typeFilters, "OR"),
		fldContractServiceID, fldContractServiceID,
		fldContractSupportLevel, fldContractSupportLevel, fldContractSupportLevel,
	)

	recs, err := c.query(ctx, queryRequest{
		From: c.cfg.ContractsTable,
		Select: []int{fldContractRecordID, fldContractVendor, fldContractStatus,
			fldContractMRC, fldContractQuoteMRC, fldContractDeltaMRC,
			fldContractServiceType, fldContractServiceID, fldContractSupportLevel},
		Where:   where,
		Options: queryOptions{Top: 200},
	})
	if err != nil {
		return nil, err
	}

	stats := &model.NegotiationStats{VendorName: vendorName}
	if len(recs) == 0 {
		return stats, nil
	}

	stats.Total = len(recs)
	stats.HasData = true

	var discounts []float64
	for _, r := range recs {
		delta, ok := r.float(fldContractDeltaMRC)
		if !ok {
			continue
		}
		if _, hasContract := r.float(fldContractMRC); !hasContract {
			continue
		}
		if _, hasQuote := r.float(fldContractQuoteMRC); !hasQuote {
			continue
		}
		if pct, valid := normalizeDiscount(delta); valid {
			discounts = append(discounts, pct)
		}
	}

	stats.Successful = len(discounts)
	stats.SuccessRate = float64(stats.Successful) / float64(stats.Total) * 100
	for _, d := range discounts {
		stats.AvgDiscount += d
		if d > stats.BestDiscount {
			stats.BestDiscount = d
		}
	}
	if len(discounts) > 0 {
		stats.AvgDiscount /= float64(len(discounts))
	}
	return stats, nil
}

// VendorRenewalStats aggregates contract-renewal history for a vendor. The
// store records renewal discounts as 0-1 fractions; they are normalized to
// percentages here and capped by the same data-quality filter.
func (c *Client) VendorRenewalStats(ctx context.Context, vendorName string) (*model.RenewalStats, error) {
	recs, err := c.query(ctx, queryRequest{
		From:    c.cfg.RenewalsTable,
		Select:  []int{fldRenewalVendor, fldRenewalDiscount, fldRenewalCreated},
		Where:   fmt.Sprintf("{%d.EX.'%s'}", fldRenewalVendor, vendorName),
		Options: queryOptions{Top: 1000},
	})
	if err != nil {
		return nil, err
	}

	stats := &model.RenewalStats{VendorName: vendorName}
	if len(recs) == 0 {
		return stats, nil
	}

	stats.Total = len(recs)
	stats.HasData = true

	var sum float64
	for _, r := range recs {
		raw, ok := r.float(fldRenewalDiscount)
		if !ok {
			continue
		}
		if pct, valid := normalizeDiscount(raw); valid {
			stats.Successful++
			sum += pct
		}
	}
	stats.SuccessRate = float64(stats.Successful) / float64(stats.Total) * 100
	if stats.Successful > 0 {
		stats.AvgDiscount = sum / float64(stats.Successful)
	}
	return stats, nil
}

// VendorDeliveredTotal sums the monthly recurring revenue of all delivered
// contract lines with a vendor. Summation uses decimal arithmetic so large
// portfolios do not accumulate float error.
func (c *Client) VendorDeliveredTotal(ctx context.Context, vendorName string) (*model.DeliveredServices, error) {
	recs, err := c.query(ctx, queryRequest{
		From:   c.cfg.ContractsTable,
		Select: []int{fldContractVendor, fldContractMRCUSD, fldContractStatus},
		Where: fmt.Sprintf("{%d.EX.'%s'}AND{%d.EX.'Delivered'}",
			fldContractVendor, vendorName, fldContractStatus),
		Options: queryOptions{Top: 1000},
	})
	if err != nil {
		return nil, err
	}

	out := &model.DeliveredServices{}
	if len(recs) == 0 {
		return out, nil
	}

	total := decimal.Zero
	for _, r := range recs {
		if mrc, ok := r.decimal(fldContractMRCUSD); ok {
			total = total.Add(mrc)
		}
	}
	out.HasData = true
	out.DeliveredCount = len(recs)
	out.TotalMRCUSD = total.InexactFloat64()
	return out, nil
}

// ServiceMRC looks up the authoritative contracted client MRC and currency for
// a service. found is false when the service has no row in the store.
func (c *Client) ServiceMRC(ctx context.Context, serviceID string) (mrc float64, currency model.Currency, found bool, err error) {
	recs, err := c.query(ctx, queryRequest{
		From:    c.cfg.ServicesTable,
		Select:  []int{fldServiceID, fldServiceMRCUSD, fldServiceCurrency},
		Where:   fmt.Sprintf("{%d.EX.'%s'}", fldServiceID, serviceID),
		Options: queryOptions{Top: 1},
	})
	if err != nil {
		return 0, "", false, err
	}
	if len(recs) == 0 {
		return 0, "", false, nil
	}

	d, ok := recs[0].decimal(fldServiceMRCUSD)
	if !ok {
		return 0, "", false, nil
	}
	currency = model.CurrencyUSD
	if code, ok := recs[0].str(fldServiceCurrency); ok && code != "" {
		currency = model.Currency(code)
	}
	return d.InexactFloat64(), currency, true, nil
}
