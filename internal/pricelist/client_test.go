package pricelist

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marginmind/backend/internal/config"
)

func testClient(t *testing.T, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer list-token" {
			t.Errorf("bad auth header %q", got)
		}
		if r.URL.Query().Get("latitude") == "" || r.URL.Query().Get("longitude") == "" {
			t.Error("missing coordinates")
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	cfg := config.PriceListConfig{BaseURL: srv.URL, Token: "list-token", Timeout: time.Second}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(cfg, 0.50, logger)
}

func TestOptionsConvertsWithEmbeddedRate(t *testing.T) {
	c := testClient(t, `{"results":[
		{"vendor":"Acme Telecom","mrc":5000,"nrc":1000,"currency":"BRL","exchange_rate":5.0,"bandwidth_mbps":100,"service_type":"DIA","region":"SP"}
	]}`)

	opts, err := c.Options(context.Background(), -23.55, -46.63, nil)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if len(opts) != 1 {
		t.Fatalf("got %d options", len(opts))
	}
	// local amounts divide by the record's own rate to reach USD
	if math.Abs(opts[0].MRCUSD-1000) > 1e-9 || math.Abs(opts[0].NRCUSD-200) > 1e-9 {
		t.Fatalf("converted = %v / %v, want 1000 / 200", opts[0].MRCUSD, opts[0].NRCUSD)
	}
	if opts[0].BandwidthBps == nil || *opts[0].BandwidthBps != 100_000_000 {
		t.Fatalf("bandwidth = %v", opts[0].BandwidthBps)
	}
}

func TestOptionsBandwidthWindow(t *testing.T) {
	c := testClient(t, `{"results":[
		{"vendor":"a","mrc":100,"exchange_rate":1,"bandwidth_mbps":50},
		{"vendor":"b","mrc":100,"exchange_rate":1,"bandwidth_mbps":150},
		{"vendor":"c","mrc":100,"exchange_rate":1,"bandwidth_mbps":49},
		{"vendor":"d","mrc":100,"exchange_rate":1,"bandwidth_mbps":151},
		{"vendor":"e","mrc":100,"exchange_rate":1}
	]}`)

	target := int64(100_000_000)
	opts, err := c.Options(context.Background(), 0, 0, &target)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if len(opts) != 2 {
		t.Fatalf("got %d options, want the two inside the window", len(opts))
	}
	if opts[0].VendorName != "a" || opts[1].VendorName != "b" {
		t.Fatalf("kept %s and %s", opts[0].VendorName, opts[1].VendorName)
	}
}

func TestOptionsSkipsUnpricedAndBadRate(t *testing.T) {
	c := testClient(t, `{"results":[
		{"vendor":"free","mrc":0,"exchange_rate":1},
		{"vendor":"norate","mrc":500,"exchange_rate":0}
	]}`)

	opts, err := c.Options(context.Background(), 0, 0, nil)
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if len(opts) != 1 || opts[0].VendorName != "norate" {
		t.Fatalf("got %+v", opts)
	}
	// a missing rate leaves the amount untouched rather than dividing by zero
	if opts[0].MRCUSD != 500 {
		t.Fatalf("mrc = %v", opts[0].MRCUSD)
	}
}

func TestOptionsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cfg := config.PriceListConfig{BaseURL: srv.URL, Token: "t", Timeout: time.Second}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewClient(cfg, 0.5, logger)
	if _, err := c.Options(context.Background(), 0, 0, nil); err == nil {
		t.Fatal("expected error")
	}
}
