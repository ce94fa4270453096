package fx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marginmind/backend/internal/model"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rateServer(t *testing.T, hits *atomic.Int64, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/v4/latest/USD" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRate(t *testing.T) {
	var hits atomic.Int64
	srv := rateServer(t, &hits, `{"base":"USD","rates":{"BRL":5.25,"EUR":0.9}}`, http.StatusOK)

	c := NewClient(srv.URL, time.Second)
	rate, err := c.Rate(context.Background(), "BRL")
	if err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if rate != 5.25 {
		t.Fatalf("rate = %v, want 5.25", rate)
	}

	if _, err := c.Rate(context.Background(), "XXX"); err == nil {
		t.Fatal("expected error for unpublished currency")
	}
}

func TestCachedProviderUSDIdentity(t *testing.T) {
	p := NewCachedProvider(nil, time.Hour, 5.40, discard())
	rate, err := p.Rate(context.Background(), model.CurrencyUSD)
	if err != nil || rate != 1.0 {
		t.Fatalf("USD rate = %v, %v", rate, err)
	}
}

func TestCachedProviderCachesWithinTTL(t *testing.T) {
	var hits atomic.Int64
	srv := rateServer(t, &hits, `{"base":"USD","rates":{"BRL":5.0}}`, http.StatusOK)

	p := NewCachedProvider(NewClient(srv.URL, time.Second), time.Hour, 5.40, discard())
	for i := 0; i < 3; i++ {
		rate, err := p.Rate(context.Background(), "BRL")
		if err != nil || rate != 5.0 {
			t.Fatalf("call %d: rate = %v, %v", i, rate, err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("upstream hit %d times, want 1", hits.Load())
	}
}

func TestCachedProviderFallbackWhenUnreachable(t *testing.T) {
	p := NewCachedProvider(NewClient("http://127.0.0.1:1", 50*time.Millisecond), time.Hour, 5.40, discard())
	rate, err := p.Rate(context.Background(), "BRL")
	if err != nil {
		t.Fatalf("cache layer must not surface errors, got %v", err)
	}
	if rate != 5.40 {
		t.Fatalf("rate = %v, want fallback 5.40", rate)
	}
}

func TestCachedProviderStaleRateOnRefreshFailure(t *testing.T) {
	var hits atomic.Int64
	srv := rateServer(t, &hits, `{"base":"USD","rates":{"BRL":5.0}}`, http.StatusOK)

	p := NewCachedProvider(NewClient(srv.URL, time.Second), time.Nanosecond, 5.40, discard())
	if err := p.Refresh(context.Background(), "BRL"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	srv.Close()

	// TTL expired and upstream gone: last-known-good wins over the fallback.
	rate, err := p.Rate(context.Background(), "BRL")
	if err != nil || rate != 5.0 {
		t.Fatalf("stale rate = %v, %v, want 5.0", rate, err)
	}
}

func TestToServiceCurrency(t *testing.T) {
	var hits atomic.Int64
	srv := rateServer(t, &hits, `{"base":"USD","rates":{"BRL":5.0}}`, http.StatusOK)
	p := NewCachedProvider(NewClient(srv.URL, time.Second), time.Hour, 5.40, discard())

	if got := ToServiceCurrency(context.Background(), 100, model.CurrencyUSD, p); got != 100 {
		t.Fatalf("USD identity: got %v", got)
	}
	if got := ToServiceCurrency(context.Background(), 100, "BRL", p); got != 500 {
		t.Fatalf("BRL conversion: got %v, want 500", got)
	}
}

func TestRoundTripConversion(t *testing.T) {
	const rate = 5.1234
	local := 1234.56 * rate
	back := local / rate
	if diff := (back - 1234.56) / 1234.56; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("round trip drifted by %v", diff)
	}
}
