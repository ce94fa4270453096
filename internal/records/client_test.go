package records

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marginmind/backend/internal/config"
)

func testConfig() config.RecordsConfig {
	return config.RecordsConfig{
		Realm:          "example.test",
		Token:          "secret-token",
		Timeout:        time.Second,
		ContractsTable: "contracts-tbl",
		RenewalsTable:  "renewals-tbl",
		ServicesTable:  "services-tbl",
	}
}

// recordsServer answers /records/query with canned rows per table.
func recordsServer(t *testing.T, rows map[string][]map[string]any) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/records/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "QB-USER-TOKEN secret-token" {
			t.Errorf("bad auth header %q", got)
		}
		var req struct {
			From string `json:"from"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"data": rows[req.From]})
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return srv, NewClientWithBaseURL(testConfig(), srv.URL, logger)
}

func field(v any) map[string]any {
	return map[string]any{"value": v}
}

func TestNormalizeDiscount(t *testing.T) {
	cases := []struct {
		raw   float64
		want  float64
		valid bool
	}{
		{0.25, 25, true},
		{0.999, 99.9, true},
		{0, 0, false},
		{-0.1, 0, false},
		{1.0, 0, false}, // apparent 100% discount means the contract price was never recorded
		{1.5, 0, false},
	}
	for _, tc := range cases {
		got, valid := normalizeDiscount(tc.raw)
		if valid != tc.valid || math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("normalizeDiscount(%v) = (%v, %v), want (%v, %v)", tc.raw, got, valid, tc.want, tc.valid)
		}
	}
}

func TestVendorNegotiationStats(t *testing.T) {
	_, c := recordsServer(t, map[string][]map[string]any{
		"contracts-tbl": {
			{"466": field(0.20), "6": field(1000.0), "431": field(1250.0)},
			{"466": field(1.0), "6": field(1000.0), "431": field(1000.0)},
			{"466": field(0.0), "6": field(1000.0), "431": field(1000.0)},
			{"466": field(0.30), "431": field(900.0)}, // contract MRC never recorded
		},
	})

	stats, err := c.VendorNegotiationStats(context.Background(), "Acme Telecom")
	if err != nil {
		t.Fatalf("VendorNegotiationStats: %v", err)
	}
	if !stats.HasData {
		t.Fatal("expected has_data")
	}
	if stats.Total != 4 || stats.Successful != 1 {
		t.Fatalf("counts = %d/%d, want 4/1", stats.Total, stats.Successful)
	}
	if stats.SuccessRate != 25 {
		t.Fatalf("success rate = %v, want 25", stats.SuccessRate)
	}
	if math.Abs(stats.AvgDiscount-20) > 1e-9 || math.Abs(stats.BestDiscount-20) > 1e-9 {
		t.Fatalf("discounts = %v/%v, want 20/20", stats.AvgDiscount, stats.BestDiscount)
	}
}

func TestVendorNegotiationStatsNoRecords(t *testing.T) {
	_, c := recordsServer(t, nil)
	stats, err := c.VendorNegotiationStats(context.Background(), "Unknown Vendor")
	if err != nil {
		t.Fatalf("VendorNegotiationStats: %v", err)
	}
	if stats.HasData || stats.Total != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
}

func TestVendorRenewalStats(t *testing.T) {
	_, c := recordsServer(t, map[string][]map[string]any{
		"renewals-tbl": {
			{"47": field(0.10)},
			{"47": field(0.18)},
			{"47": field(1.2)},
			{"47": field(0.0)},
		},
	})

	stats, err := c.VendorRenewalStats(context.Background(), "Acme Telecom")
	if err != nil {
		t.Fatalf("VendorRenewalStats: %v", err)
	}
	if stats.Total != 4 || stats.Successful != 2 {
		t.Fatalf("counts = %d/%d, want 4/2", stats.Total, stats.Successful)
	}
	if math.Abs(stats.AvgDiscount-14) > 1e-9 {
		t.Fatalf("avg discount = %v, want 14", stats.AvgDiscount)
	}
}

func TestVendorDeliveredTotal(t *testing.T) {
	_, c := recordsServer(t, map[string][]map[string]any{
		"contracts-tbl": {
			{"135": field(100.10)},
			{"135": field(200.20)},
			{"135": field(0.1)},
		},
	})

	delivered, err := c.VendorDeliveredTotal(context.Background(), "Acme Telecom")
	if err != nil {
		t.Fatalf("VendorDeliveredTotal: %v", err)
	}
	if delivered.DeliveredCount != 3 {
		t.Fatalf("count = %d, want 3", delivered.DeliveredCount)
	}
	// decimal summation: no float drift on cents
	if delivered.TotalMRCUSD != 300.40 {
		t.Fatalf("total = %v, want 300.40", delivered.TotalMRCUSD)
	}
}

func TestServiceMRC(t *testing.T) {
	_, c := recordsServer(t, map[string][]map[string]any{
		"services-tbl": {
			{"329": field(1234.50), "702": field("BRL")},
		},
	})

	mrc, currency, found, err := c.ServiceMRC(context.Background(), "SVC-1")
	if err != nil {
		t.Fatalf("ServiceMRC: %v", err)
	}
	if !found || mrc != 1234.50 || currency != "BRL" {
		t.Fatalf("got (%v, %s, %v)", mrc, currency, found)
	}
}

func TestServiceMRCNotFound(t *testing.T) {
	_, c := recordsServer(t, nil)
	_, _, found, err := c.ServiceMRC(context.Background(), "SVC-404")
	if err != nil || found {
		t.Fatalf("got found=%v err=%v, want absent", found, err)
	}
}

func TestQueryErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewClientWithBaseURL(testConfig(), srv.URL, logger)
	if _, err := c.VendorNegotiationStats(context.Background(), "Acme"); err == nil {
		t.Fatal("expected error on upstream failure")
	}
}
