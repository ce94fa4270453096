package strategy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/marginmind/backend/internal/config"
	"github.com/marginmind/backend/internal/graphstore"
	"github.com/marginmind/backend/internal/model"
	"github.com/marginmind/backend/internal/pricelist"
)

type fakeGraph struct {
	svc    *model.ServiceContext
	svcErr error
	quotes []model.VendorQuote
	nearby []model.VendorQuote
}

func (g *fakeGraph) GetService(ctx context.Context, serviceID string) (*model.ServiceContext, error) {
	if g.svcErr != nil {
		return nil, g.svcErr
	}
	svc := *g.svc
	return &svc, nil
}

func (g *fakeGraph) GetAssociatedQuotes(ctx context.Context, serviceID string) ([]model.VendorQuote, error) {
	return g.quotes, nil
}

func (g *fakeGraph) GetNearbyQuotes(ctx context.Context, lat, lon, radiusMeters float64, since time.Time, excludeServiceID string) ([]model.VendorQuote, error) {
	return g.nearby, nil
}

type fakeRecords struct {
	neg       map[string]*model.NegotiationStats
	ren       map[string]*model.RenewalStats
	delivered map[string]*model.DeliveredServices
}

func (r *fakeRecords) ServiceMRC(ctx context.Context, serviceID string) (float64, model.Currency, bool, error) {
	return 0, "", false, nil
}

func (r *fakeRecords) VendorNegotiationStats(ctx context.Context, vendorName string) (*model.NegotiationStats, error) {
	if s, ok := r.neg[vendorName]; ok {
		return s, nil
	}
	return &model.NegotiationStats{VendorName: vendorName}, nil
}

func (r *fakeRecords) VendorRenewalStats(ctx context.Context, vendorName string) (*model.RenewalStats, error) {
	if s, ok := r.ren[vendorName]; ok {
		return s, nil
	}
	return &model.RenewalStats{VendorName: vendorName}, nil
}

func (r *fakeRecords) VendorDeliveredTotal(ctx context.Context, vendorName string) (*model.DeliveredServices, error) {
	if d, ok := r.delivered[vendorName]; ok {
		return d, nil
	}
	return &model.DeliveredServices{}, nil
}

type fakePrices struct {
	opts []pricelist.Option
}

func (p *fakePrices) Options(ctx context.Context, lat, lon float64, bandwidthBps *int64) ([]pricelist.Option, error) {
	return p.opts, nil
}

type identityRates struct{}

func (identityRates) Rate(ctx context.Context, currency model.Currency) (float64, error) {
	return 1.0, nil
}

func floatp(v float64) *float64 { return &v }

func int64p(v int64) *int64 { return &v }

func testService(t *testing.T, graph *fakeGraph, records *fakeRecords, prices *fakePrices) *Service {
	t.Helper()
	if records == nil {
		records = &fakeRecords{}
	}
	if prices == nil {
		prices = &fakePrices{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.BusinessConfig{
		TargetGM:            0.55,
		MinAcceptableGM:     0.50,
		NearbyRadiusMeters:  1000,
		QuoteLookbackMonths: 12,
		BandwidthTolerance:  0.50,
	}
	return New(graph, records, prices, identityRates{}, cfg, logger)
}

func locatedService(clientMRC float64) *model.ServiceContext {
	return &model.ServiceContext{
		ServiceID: "SVC-1",
		Customer:  "Globex",
		ClientMRC: clientMRC,
		Currency:  model.CurrencyUSD,
		Latitude:  floatp(-23.55),
		Longitude: floatp(-46.63),
	}
}

func TestBuildStrategiesServiceNotFound(t *testing.T) {
	svc := testService(t, &fakeGraph{svcErr: graphstore.ErrServiceNotFound}, nil, nil)
	_, err := svc.BuildStrategies(context.Background(), "SVC-404")
	if !errors.Is(err, graphstore.ErrServiceNotFound) {
		t.Fatalf("err = %v, want ErrServiceNotFound", err)
	}
}

func TestBuildStrategiesNoQuotes(t *testing.T) {
	svc := testService(t, &fakeGraph{svc: locatedService(10000)}, nil, nil)
	_, err := svc.BuildStrategies(context.Background(), "SVC-1")
	if !errors.Is(err, ErrNoVendorQuotes) {
		t.Fatalf("err = %v, want ErrNoVendorQuotes", err)
	}
}

func TestWarningMarginNoEvidence(t *testing.T) {
	graph := &fakeGraph{
		svc:    locatedService(10000),
		quotes: []model.VendorQuote{{VendorName: "Acme Telecom", MRC: 6000, Currency: model.CurrencyUSD}},
	}
	svc := testService(t, graph, nil, nil)

	resp, err := svc.BuildStrategies(context.Background(), "SVC-1")
	if err != nil {
		t.Fatalf("BuildStrategies: %v", err)
	}
	if resp.TotalVendors != 1 {
		t.Fatalf("total vendors = %d", resp.TotalVendors)
	}

	vs := resp.VendorStrategies[0]
	if vs.VendorQuote.GMStatus != model.GMStatusWarning {
		t.Fatalf("status = %s, want warning", vs.VendorQuote.GMStatus)
	}
	if len(vs.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want exactly one", len(vs.Recommendations))
	}
	rec := vs.Recommendations[0]
	if rec.Type != model.RecommendationNegotiate || rec.Strength != model.StrengthMedium {
		t.Fatalf("rec = %s/%s, want negotiate/medium", rec.Type, rec.Strength)
	}
	if len(rec.Actions) != 2 {
		t.Fatalf("got %d actions, want the two margin targets", len(rec.Actions))
	}
}

func TestHealthyMarginWithCheaperPriceListOption(t *testing.T) {
	graph := &fakeGraph{
		svc:    locatedService(10000),
		quotes: []model.VendorQuote{{VendorName: "Acme Telecom", MRC: 4000, Currency: model.CurrencyUSD}},
	}
	prices := &fakePrices{opts: []pricelist.Option{
		{VendorName: "Acme Telecom", MRCUSD: 3500, ServiceType: "DIA"},
	}}
	svc := testService(t, graph, nil, prices)

	resp, err := svc.BuildStrategies(context.Background(), "SVC-1")
	if err != nil {
		t.Fatalf("BuildStrategies: %v", err)
	}

	vs := resp.VendorStrategies[0]
	if len(vs.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(vs.Recommendations))
	}
	rec := vs.Recommendations[0]
	if rec.Type != model.RecommendationMaintain || rec.Strength != model.StrengthLow {
		t.Fatalf("rec = %s/%s, want maintain/low", rec.Type, rec.Strength)
	}
	if len(rec.Actions) != 1 || rec.Actions[0].Value == nil || *rec.Actions[0].Value != 500 {
		t.Fatalf("savings advisory = %+v, want value 500", rec.Actions)
	}
}

func TestLowMarginAllBranches(t *testing.T) {
	graph := &fakeGraph{
		svc: locatedService(10000),
		quotes: []model.VendorQuote{
			{VendorName: "Acme Telecom", MRC: 7000, Currency: model.CurrencyUSD},
			{VendorName: "Rival Networks", MRC: 5000, Currency: model.CurrencyUSD},
		},
	}
	records := &fakeRecords{
		neg: map[string]*model.NegotiationStats{
			"Acme Telecom": {
				VendorName: "Acme Telecom", Total: 10, Successful: 6,
				SuccessRate: 60, AvgDiscount: 10, BestDiscount: 20, HasData: true,
			},
		},
		delivered: map[string]*model.DeliveredServices{
			"Acme Telecom": {TotalMRCUSD: 120000, DeliveredCount: 40, HasData: true},
		},
	}
	prices := &fakePrices{opts: []pricelist.Option{
		{VendorName: "Acme Telecom", MRCUSD: 6000},
		{VendorName: "Acme Telecom", MRCUSD: 6500},
		{VendorName: "Someone Else", MRCUSD: 100},
	}}
	svc := testService(t, graph, records, prices)

	resp, err := svc.BuildStrategies(context.Background(), "SVC-1")
	if err != nil {
		t.Fatalf("BuildStrategies: %v", err)
	}
	if resp.TotalVendors != 2 {
		t.Fatalf("total vendors = %d, want 2", resp.TotalVendors)
	}

	var acme *model.VendorStrategy
	for i := range resp.VendorStrategies {
		if resp.VendorStrategies[i].VendorName == "Acme Telecom" {
			acme = &resp.VendorStrategies[i]
		}
	}
	if acme == nil {
		t.Fatal("Acme strategy missing")
	}

	if len(acme.VendorVPL) != 2 {
		t.Fatalf("vendor VPL = %d entries, want 2 (other vendors excluded)", len(acme.VendorVPL))
	}
	if acme.VendorVPL[0].MRC != 6000 {
		t.Fatalf("cheapest option first, got %v", acme.VendorVPL[0].MRC)
	}
	// competitor pool mixes other vendors' quotes with their catalog entries
	if len(acme.Alternatives) != 2 || acme.Alternatives[0].VendorName != "Someone Else" || acme.Alternatives[1].VendorName != "Rival Networks" {
		t.Fatalf("alternatives = %+v", acme.Alternatives)
	}

	h := acme.NegotiationHistory
	if h == nil || h.ProjectedMRC != 6300 || h.BestCaseMRC != 5600 {
		t.Fatalf("history projections = %+v", h)
	}
	if acme.DeliveredServices == nil || acme.DeliveredServices.DeliveredCount != 40 {
		t.Fatalf("delivered = %+v", acme.DeliveredServices)
	}

	recs := acme.Recommendations
	if len(recs) != 3 {
		t.Fatalf("got %d recommendations, want 3", len(recs))
	}
	wantTypes := []model.RecommendationType{
		model.RecommendationNegotiate,
		model.RecommendationPriceListLeverage,
		model.RecommendationCompetitorLeverage,
	}
	wantStrengths := []model.Strength{model.StrengthHigh, model.StrengthVeryHigh, model.StrengthMedium}
	for i, rec := range recs {
		if rec.Priority != i+1 {
			t.Errorf("rec %d priority = %d", i, rec.Priority)
		}
		if rec.Type != wantTypes[i] || rec.Strength != wantStrengths[i] {
			t.Errorf("rec %d = %s/%s, want %s/%s", i, rec.Type, rec.Strength, wantTypes[i], wantStrengths[i])
		}
	}
	// negotiate carries the history summary plus both targets
	if len(recs[0].Actions) != 3 {
		t.Fatalf("negotiate actions = %d, want 3", len(recs[0].Actions))
	}
}

func TestCompetitorLeverageKeepsFixedPriority(t *testing.T) {
	graph := &fakeGraph{
		svc: locatedService(10000),
		quotes: []model.VendorQuote{
			{VendorName: "Acme Telecom", MRC: 7000, Currency: model.CurrencyUSD},
			{VendorName: "Rival Networks", MRC: 5000, Currency: model.CurrencyUSD},
		},
	}
	svc := testService(t, graph, nil, nil)

	resp, err := svc.BuildStrategies(context.Background(), "SVC-1")
	if err != nil {
		t.Fatalf("BuildStrategies: %v", err)
	}
	var acme *model.VendorStrategy
	for i := range resp.VendorStrategies {
		if resp.VendorStrategies[i].VendorName == "Acme Telecom" {
			acme = &resp.VendorStrategies[i]
		}
	}
	if acme == nil {
		t.Fatal("Acme strategy missing")
	}

	// no price-list branch, so the competitor branch is second in the list
	// but keeps its fixed rank
	recs := acme.Recommendations
	if len(recs) != 2 {
		t.Fatalf("got %d recommendations: %+v", len(recs), recs)
	}
	if recs[0].Type != model.RecommendationNegotiate || recs[0].Priority != 1 {
		t.Fatalf("first rec = %s priority %d", recs[0].Type, recs[0].Priority)
	}
	if recs[1].Type != model.RecommendationCompetitorLeverage || recs[1].Priority != 3 {
		t.Fatalf("competitor rec = %s priority %d, want competitor_leverage/3", recs[1].Type, recs[1].Priority)
	}
}

func TestOtherVendorCatalogFeedsAlternatives(t *testing.T) {
	graph := &fakeGraph{
		svc:    locatedService(10000),
		quotes: []model.VendorQuote{{VendorName: "Acme Telecom", MRC: 7000, Currency: model.CurrencyUSD}},
	}
	prices := &fakePrices{opts: []pricelist.Option{
		{VendorName: "Rival Networks", MRCUSD: 5500, ServiceType: "DIA"},
	}}
	svc := testService(t, graph, nil, prices)

	resp, err := svc.BuildStrategies(context.Background(), "SVC-1")
	if err != nil {
		t.Fatalf("BuildStrategies: %v", err)
	}
	vs := resp.VendorStrategies[0]
	if len(vs.Alternatives) != 1 || vs.Alternatives[0].VendorName != "Rival Networks" {
		t.Fatalf("alternatives = %+v, want the catalog competitor", vs.Alternatives)
	}
	if vs.Alternatives[0].MRC != 5500 {
		t.Fatalf("alternative MRC = %v", vs.Alternatives[0].MRC)
	}

	recs := vs.Recommendations
	if len(recs) != 2 || recs[1].Type != model.RecommendationCompetitorLeverage {
		t.Fatalf("recommendations = %+v, want a competitor branch from catalog data", recs)
	}
}

func TestCatalogBandwidthSelection(t *testing.T) {
	svc100M := locatedService(10000)
	svc100M.BandwidthBps = int64p(100_000_000)
	graph := &fakeGraph{
		svc:    svc100M,
		quotes: []model.VendorQuote{{VendorName: "Acme Telecom", MRC: 7000, Currency: model.CurrencyUSD}},
	}
	prices := &fakePrices{opts: []pricelist.Option{
		{VendorName: "Rival Networks", MRCUSD: 4000, BandwidthBps: int64p(50_000_000)},
		{VendorName: "Rival Networks", MRCUSD: 5000, BandwidthBps: int64p(100_000_000)},
		{VendorName: "Rival Networks", MRCUSD: 6000, BandwidthBps: int64p(200_000_000)},
	}}
	svc := testService(t, graph, nil, prices)

	resp, err := svc.BuildStrategies(context.Background(), "SVC-1")
	if err != nil {
		t.Fatalf("BuildStrategies: %v", err)
	}
	vs := resp.VendorStrategies[0]
	// only the exact bandwidth match competes; cheaper off-bandwidth entries
	// are not comparable offers
	if len(vs.Alternatives) != 1 || vs.Alternatives[0].MRC != 5000 {
		t.Fatalf("alternatives = %+v, want only the 100M entry", vs.Alternatives)
	}
}

func TestZeroClientPriceStillProducesStrategy(t *testing.T) {
	graph := &fakeGraph{
		svc:    &model.ServiceContext{ServiceID: "SVC-1", ClientMRC: 0, Currency: model.CurrencyUSD},
		quotes: []model.VendorQuote{{VendorName: "Acme Telecom", MRC: 6000, Currency: model.CurrencyUSD}},
	}
	svc := testService(t, graph, nil, nil)

	resp, err := svc.BuildStrategies(context.Background(), "SVC-1")
	if err != nil {
		t.Fatalf("BuildStrategies: %v", err)
	}
	vs := resp.VendorStrategies[0]
	if vs.VendorQuote.CurrentGM != 0 || vs.VendorQuote.GMStatus != model.GMStatusDanger {
		t.Fatalf("degenerate margin = %+v", vs.VendorQuote)
	}
	if len(vs.Recommendations) == 0 || vs.Recommendations[0].Type != model.RecommendationNegotiate {
		t.Fatalf("recommendations = %+v", vs.Recommendations)
	}
}

func TestDedupeByVendor(t *testing.T) {
	graph := &fakeGraph{
		svc: locatedService(10000),
		quotes: []model.VendorQuote{
			{VendorName: "Acme  Telecom", MRC: 6000, Currency: model.CurrencyUSD},
			{VendorName: "acme telecom", MRC: 6500, Currency: model.CurrencyUSD},
		},
	}
	svc := testService(t, graph, nil, nil)

	resp, err := svc.BuildStrategies(context.Background(), "SVC-1")
	if err != nil {
		t.Fatalf("BuildStrategies: %v", err)
	}
	if resp.TotalVendors != 1 {
		t.Fatalf("total vendors = %d, want dedupe to 1", resp.TotalVendors)
	}
	// first (newest) quote wins
	if resp.VendorStrategies[0].VendorQuote.CurrentMRC != 6000 {
		t.Fatalf("kept MRC = %v", resp.VendorStrategies[0].VendorQuote.CurrentMRC)
	}
}
