// Package strategy composes per-vendor negotiation strategies from quotes,
// price-list options, and historical negotiation evidence.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/marginmind/backend/internal/config"
	"github.com/marginmind/backend/internal/fx"
	"github.com/marginmind/backend/internal/history"
	"github.com/marginmind/backend/internal/margin"
	"github.com/marginmind/backend/internal/model"
	"github.com/marginmind/backend/internal/pricelist"
	"github.com/marginmind/backend/internal/ranking"
)

// ErrNoVendorQuotes is returned when a known service has no live quotes to
// analyze. Distinct from an unknown service, which surfaces the graph store's
// not-found error.
var ErrNoVendorQuotes = errors.New("no vendor quotes for service")

// GraphStore is the quote-graph read interface consumed by the composer.
type GraphStore interface {
	GetService(ctx context.Context, serviceID string) (*model.ServiceContext, error)
	GetAssociatedQuotes(ctx context.Context, serviceID string) ([]model.VendorQuote, error)
	GetNearbyQuotes(ctx context.Context, lat, lon, radiusMeters float64, since time.Time, excludeServiceID string) ([]model.VendorQuote, error)
}

// RecordsStore is the business-records interface consumed by the composer.
type RecordsStore interface {
	ServiceMRC(ctx context.Context, serviceID string) (float64, model.Currency, bool, error)
	VendorNegotiationStats(ctx context.Context, vendorName string) (*model.NegotiationStats, error)
	VendorRenewalStats(ctx context.Context, vendorName string) (*model.RenewalStats, error)
	VendorDeliveredTotal(ctx context.Context, vendorName string) (*model.DeliveredServices, error)
}

// PriceList is the published-price catalog interface consumed by the composer.
type PriceList interface {
	Options(ctx context.Context, lat, lon float64, bandwidthBps *int64) ([]pricelist.Option, error)
}

// Service orchestrates one strategy computation per request. All state is
// request-scoped; nothing here survives past a call.
type Service struct {
	graph   GraphStore
	records RecordsStore
	prices  PriceList
	rates   fx.Provider
	cfg     config.BusinessConfig
	logger  *slog.Logger
}

// New creates the strategy service.
func New(graph GraphStore, records RecordsStore, prices PriceList, rates fx.Provider, cfg config.BusinessConfig, logger *slog.Logger) *Service {
	return &Service{graph: graph, records: records, prices: prices, rates: rates, cfg: cfg, logger: logger}
}

// loadService resolves the service snapshot. The records store is the
// authority on the contracted client MRC; the graph value is only a fallback.
func (s *Service) loadService(ctx context.Context, serviceID string) (*model.ServiceContext, error) {
	svc, err := s.graph.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	mrc, currency, found, err := s.records.ServiceMRC(ctx, serviceID)
	if err != nil {
		s.logger.Warn("records store unavailable for service MRC, using graph value",
			"service_id", serviceID, "error", err)
	} else if found && mrc > 0 {
		svc.ClientMRC = mrc
		svc.Currency = currency
	}
	return svc, nil
}

// BuildStrategies computes the full negotiation strategy for a service, one
// VendorStrategy per quoting vendor. Vendors whose strategy cannot be built
// are dropped; the rest still get a response.
func (s *Service) BuildStrategies(ctx context.Context, serviceID string) (*model.StrategyResponse, error) {
	svc, err := s.loadService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	quotes, err := s.graph.GetAssociatedQuotes(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("load quotes for %s: %w", serviceID, err)
	}
	if len(quotes) == 0 {
		return nil, ErrNoVendorQuotes
	}

	catalog := s.catalogQuotes(ctx, svc)

	resp := &model.StrategyResponse{
		ServiceID: serviceID,
		Service:   serviceInfo(svc),
	}
	for _, q := range dedupeByVendor(quotes) {
		vs, err := s.buildVendorStrategy(ctx, svc, q, quotes, catalog)
		if err != nil {
			s.logger.Error("dropping vendor from strategy response",
				"service_id", serviceID, "vendor", q.VendorName, "error", err)
			continue
		}
		resp.VendorStrategies = append(resp.VendorStrategies, *vs)
	}
	resp.TotalVendors = len(resp.VendorStrategies)
	return resp, nil
}

// catalogQuotes fetches price-list entries for the service location and
// converts them into quotes in the service currency. The catalog is evidence,
// not a requirement, so failures degrade to none.
func (s *Service) catalogQuotes(ctx context.Context, svc *model.ServiceContext) []model.VendorQuote {
	if s.prices == nil || !svc.HasLocation() {
		return nil
	}
	options, err := s.prices.Options(ctx, *svc.Latitude, *svc.Longitude, svc.BandwidthBps)
	if err != nil {
		s.logger.Warn("price list unavailable", "service_id", svc.ServiceID, "error", err)
		return nil
	}
	quotes := make([]model.VendorQuote, 0, len(options))
	for _, opt := range options {
		quotes = append(quotes, model.VendorQuote{
			VendorName:   opt.VendorName,
			MRC:          fx.ToServiceCurrency(ctx, opt.MRCUSD, svc.Currency, s.rates),
			NRC:          fx.ToServiceCurrency(ctx, opt.NRCUSD, svc.Currency, s.rates),
			Currency:     svc.Currency,
			BandwidthBps: opt.BandwidthBps,
			ServiceType:  opt.ServiceType,
			Source:       model.SourcePriceList,
		})
	}
	return quotes
}

// dedupeByVendor keeps the first quote per normalized vendor. Quotes arrive
// newest first, so the kept quote is the vendor's latest.
func dedupeByVendor(quotes []model.VendorQuote) []model.VendorQuote {
	seen := make(map[model.VendorID]bool, len(quotes))
	out := make([]model.VendorQuote, 0, len(quotes))
	for _, q := range quotes {
		id := q.Vendor()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, q)
	}
	return out
}

func (s *Service) buildVendorStrategy(ctx context.Context, svc *model.ServiceContext, q model.VendorQuote, allQuotes []model.VendorQuote, catalog []model.VendorQuote) (vs *model.VendorStrategy, err error) {
	// A malformed record from one collaborator must not take down the whole
	// response; the vendor is dropped instead.
	defer func() {
		if r := recover(); r != nil {
			vs, err = nil, fmt.Errorf("vendor strategy panicked: %v", r)
		}
	}()

	cur := margin.Compute(svc.ClientMRC, q.MRC)
	negStats := s.negotiationStats(ctx, q.VendorName)
	renStats := s.renewalStats(ctx, q.VendorName)
	proj := history.ProjectStats(q.MRC, svc.ClientMRC, negStats)

	sameCatalog, otherCatalog := ranking.PartitionByVendor(catalog, q.VendorName)
	vplOptions := vendorPriceListOptions(svc.ClientMRC, q, sameCatalog)
	_, others := ranking.PartitionByVendor(allQuotes, q.VendorName)
	others = append(others, comparableCatalog(svc, otherCatalog)...)

	vs = &model.VendorStrategy{
		VendorName:         q.VendorName,
		VendorQuote:        quoteInfo(q, cur),
		NegotiationHistory: negotiationSummary(negStats, proj),
		RenewalStats:       renewalSummary(renStats),
		DeliveredServices:  s.deliveredServices(ctx, q.VendorName),
		Targets:            targetsFor(svc.ClientMRC, q.MRC),
		VendorVPL:          vplOptions,
		Alternatives:       alternatives(svc.ClientMRC, others),
		Recommendations:    s.buildRecommendations(svc, q, cur, negStats, proj, vplOptions, others),
	}
	return vs, nil
}

func (s *Service) negotiationStats(ctx context.Context, vendorName string) *model.NegotiationStats {
	stats, err := s.records.VendorNegotiationStats(ctx, vendorName)
	if err != nil {
		s.logger.Warn("negotiation history unavailable", "vendor", vendorName, "error", err)
		return nil
	}
	return stats
}

func (s *Service) renewalStats(ctx context.Context, vendorName string) *model.RenewalStats {
	stats, err := s.records.VendorRenewalStats(ctx, vendorName)
	if err != nil {
		s.logger.Warn("renewal history unavailable", "vendor", vendorName, "error", err)
		return nil
	}
	return stats
}

func (s *Service) deliveredServices(ctx context.Context, vendorName string) *model.DeliveredServices {
	delivered, err := s.records.VendorDeliveredTotal(ctx, vendorName)
	if err != nil {
		s.logger.Warn("delivered-services total unavailable", "vendor", vendorName, "error", err)
		return nil
	}
	if delivered == nil || !delivered.HasData {
		return nil
	}
	delivered.TotalMRCUSD = margin.Round2(delivered.TotalMRCUSD)
	return delivered
}

// vendorPriceListOptions maps the incumbent vendor's catalog quotes into
// response options: margins and savings are computed against the current
// quote and the cheapest few are kept.
func vendorPriceListOptions(clientMRC float64, q model.VendorQuote, sameCatalog []model.VendorQuote) []model.VPLOption {
	quotes := ranking.TopN(ranking.ByPrice(sameCatalog), ranking.MaxPriceListOptions)

	out := make([]model.VPLOption, 0, len(quotes))
	for _, pq := range quotes {
		gm := margin.Compute(clientMRC, pq.MRC)
		savings := q.MRC - pq.MRC
		var savingsPct float64
		if q.MRC > 0 {
			savingsPct = savings / q.MRC * 100
		}
		out = append(out, model.VPLOption{
			MRC:            margin.Round2(pq.MRC),
			MRCCurrency:    pq.Currency,
			NRC:            margin.Round2(pq.NRC),
			NRCCurrency:    pq.Currency,
			GM:             margin.Round1(gm.MarginPct),
			GMStatus:       gm.Status,
			Bandwidth:      model.FormatBandwidth(pq.BandwidthBps),
			ServiceType:    pq.ServiceType,
			Savings:        margin.Round2(savings),
			SavingsPercent: margin.Round1(savingsPct),
		})
	}
	return out
}

// comparableCatalog narrows other vendors' catalog entries to the ones
// comparable with the service: per vendor, the bandwidth-matched group, or
// the single best-margin entry when the service bandwidth is unknown. The
// survivors join the competitor pool alongside other vendors' quotes.
func comparableCatalog(svc *model.ServiceContext, otherCatalog []model.VendorQuote) []model.VendorQuote {
	byVendor := make(map[model.VendorID][]model.VendorQuote)
	var order []model.VendorID
	for _, q := range otherCatalog {
		id := q.Vendor()
		if _, ok := byVendor[id]; !ok {
			order = append(order, id)
		}
		byVendor[id] = append(byVendor[id], q)
	}

	var out []model.VendorQuote
	for _, id := range order {
		out = append(out, ranking.BandwidthMatch(byVendor[id], svc.BandwidthBps, svc.ClientMRC)...)
	}
	return out
}

func alternatives(clientMRC float64, others []model.VendorQuote) []model.Alternative {
	top := ranking.TopN(ranking.ByMargin(others, clientMRC), ranking.MaxAlternatives)
	out := make([]model.Alternative, 0, len(top))
	for _, q := range top {
		gm := margin.Compute(clientMRC, q.MRC)
		out = append(out, model.Alternative{
			VendorName:  q.VendorName,
			MRC:         margin.Round2(q.MRC),
			MRCCurrency: q.Currency,
			GM:          margin.Round1(gm.MarginPct),
			GMStatus:    gm.Status,
			Bandwidth:   model.FormatBandwidth(q.BandwidthBps),
			ServiceType: q.ServiceType,
		})
	}
	return out
}

// buildRecommendations runs the per-vendor branch rules. Above 50% margin the
// single Maintain branch is terminal; below it up to three ordered branches
// fire, each gated only on whether its supporting evidence exists.
func (s *Service) buildRecommendations(svc *model.ServiceContext, q model.VendorQuote, cur margin.Result, negStats *model.NegotiationStats, proj *history.Pair, vplOptions []model.VPLOption, others []model.VendorQuote) []model.Recommendation {
	if cur.MarginPct >= margin.Band50*100 {
		return []model.Recommendation{maintainRecommendation(q, vplOptions)}
	}

	recs := []model.Recommendation{negotiateRecommendation(svc, q, negStats, proj)}
	if len(vplOptions) > 0 {
		recs = append(recs, priceListRecommendation(q, vplOptions))
	}
	if len(others) > 0 {
		best := ranking.ByMargin(others, svc.ClientMRC)[0]
		recs = append(recs, competitorRecommendation(svc.ClientMRC, q, best))
	}
	return recs
}

func maintainRecommendation(q model.VendorQuote, vplOptions []model.VPLOption) model.Recommendation {
	rec := model.Recommendation{
		Priority: 1,
		Title:    "Maintain current pricing",
		Type:     model.RecommendationMaintain,
		Strength: model.StrengthLow,
	}
	// vplOptions is price-ascending, so the first cheaper entry is the best
	// advisory candidate.
	for _, opt := range vplOptions {
		if opt.MRC < q.MRC {
			savings := opt.MRC - q.MRC
			rec.Actions = append(rec.Actions, model.RecommendationAction{
				Text: fmt.Sprintf("Margin is on target, but %s's published price list shows %s at %.2f, %.2f/mo below the current quote. Worth citing at the next review.",
					q.VendorName, opt.Bandwidth, opt.MRC, -savings),
				Value: floatPtr(margin.Round2(-savings)),
			})
			return rec
		}
	}
	rec.Actions = append(rec.Actions, model.RecommendationAction{
		Text: "Margin is on target. Monitor the market and revisit at the next renewal.",
	})
	return rec
}

func negotiateRecommendation(svc *model.ServiceContext, q model.VendorQuote, negStats *model.NegotiationStats, proj *history.Pair) model.Recommendation {
	rec := model.Recommendation{
		Priority: 1,
		Title:    fmt.Sprintf("Negotiate with %s", q.VendorName),
		Type:     model.RecommendationNegotiate,
		Strength: model.StrengthMedium,
	}
	if negStats != nil && negStats.HasData {
		rec.Strength = model.StrengthHigh
	}

	if proj != nil {
		rec.Actions = append(rec.Actions, model.RecommendationAction{
			Text: fmt.Sprintf("%s has historically conceded %.1f%% on average (%d of %d negotiations). At that discount the quote drops to %.2f/mo.",
				q.VendorName, negStats.AvgDiscount, negStats.Successful, negStats.Total, proj.Avg.Price),
			Value: floatPtr(margin.Round1(negStats.AvgDiscount)),
		})
	}

	t40 := margin.ComputeTarget(svc.ClientMRC, q.MRC, margin.Band40)
	t50 := margin.ComputeTarget(svc.ClientMRC, q.MRC, margin.Band50)
	rec.Actions = append(rec.Actions,
		model.RecommendationAction{
			Text: fmt.Sprintf("Request %.2f/mo to reach a 40%% margin (%.1f%% discount from the current quote).",
				t40.TargetPrice, t40.DiscountNeeded),
			Value: floatPtr(margin.Round1(t40.DiscountNeeded)),
		},
		model.RecommendationAction{
			Text: fmt.Sprintf("Push for %.2f/mo to reach a 50%% margin (%.1f%% discount from the current quote).",
				t50.TargetPrice, t50.DiscountNeeded),
			Value: floatPtr(margin.Round1(t50.DiscountNeeded)),
		},
	)
	return rec
}

func priceListRecommendation(q model.VendorQuote, vplOptions []model.VPLOption) model.Recommendation {
	// Lowest published price is the strongest lever; options arrive
	// price-ascending. The branch keeps its fixed rank even when earlier
	// branches are absent.
	best := vplOptions[0]
	return model.Recommendation{
		Priority: 2,
		Title:    "Leverage the vendor's own price list",
		Type:     model.RecommendationPriceListLeverage,
		Strength: model.StrengthVeryHigh,
		Actions: []model.RecommendationAction{
			{
				Text: fmt.Sprintf("%s publishes %s at %.2f/mo (%.1f%% margin at that price).",
					q.VendorName, best.Bandwidth, best.MRC, best.GM),
				Value: floatPtr(best.MRC),
			},
			{
				Text: fmt.Sprintf("That is %.2f/mo (%.1f%%) below the current quote of %.2f.",
					best.Savings, best.SavingsPercent, margin.Round2(q.MRC)),
				Value: floatPtr(best.Savings),
			},
			{
				Text: "Talking point: \"Your published price list offers this service for less than your quote. Can you match your own list price?\"",
			},
		},
	}
}

func competitorRecommendation(clientMRC float64, q model.VendorQuote, best model.VendorQuote) model.Recommendation {
	gm := margin.Compute(clientMRC, best.MRC)
	actions := []model.RecommendationAction{
		{
			Text: fmt.Sprintf("%s quoted %.2f/mo for comparable service (%.1f%% margin).",
				best.VendorName, margin.Round2(best.MRC), margin.Round1(gm.MarginPct)),
			Value: floatPtr(margin.Round2(best.MRC)),
		},
		{
			Text: fmt.Sprintf("Talking point: \"We have a competitive offer at %.2f/mo. Can %s improve on the current quote?\"",
				margin.Round2(best.MRC), q.VendorName),
		},
		{
			Text: "Weigh implementation lead time and SLA risk before committing to a switch.",
		},
	}
	return model.Recommendation{
		Priority: 3,
		Title:    fmt.Sprintf("Use %s as leverage", best.VendorName),
		Type:     model.RecommendationCompetitorLeverage,
		Strength: model.StrengthMedium,
		Actions:  actions,
	}
}

func negotiationSummary(stats *model.NegotiationStats, proj *history.Pair) *model.NegotiationHistory {
	if stats == nil || !stats.HasData {
		return nil
	}
	h := &model.NegotiationHistory{
		TotalNegotiations:      stats.Total,
		SuccessfulNegotiations: stats.Successful,
		SuccessRate:            margin.Round1(stats.SuccessRate),
		AvgDiscount:            margin.Round1(stats.AvgDiscount),
		BestDiscount:           margin.Round1(stats.BestDiscount),
	}
	if proj != nil {
		h.ProjectedMRC = margin.Round2(proj.Avg.Price)
		h.ProjectedGM = margin.Round1(proj.Avg.Margin.MarginPct)
		h.ProjectedGMStatus = proj.Avg.Margin.Status
		if proj.Best != nil {
			h.BestCaseMRC = margin.Round2(proj.Best.Price)
			h.BestCaseGM = margin.Round1(proj.Best.Margin.MarginPct)
		}
	}
	return h
}

func renewalSummary(stats *model.RenewalStats) *model.RenewalSummary {
	if stats == nil || !stats.HasData {
		return nil
	}
	return &model.RenewalSummary{
		TotalRenewals:      stats.Total,
		SuccessfulRenewals: stats.Successful,
		SuccessRate:        margin.Round1(stats.SuccessRate),
		AvgDiscount:        margin.Round1(stats.AvgDiscount),
	}
}

func targetsFor(clientMRC, currentMRC float64) model.TargetMargins {
	t40 := margin.ComputeTarget(clientMRC, currentMRC, margin.Band40)
	t50 := margin.ComputeTarget(clientMRC, currentMRC, margin.Band50)
	return model.TargetMargins{
		GM40: model.TargetBand{TargetMRC: margin.Round2(t40.TargetPrice), DiscountNeeded: margin.Round1(t40.DiscountNeeded)},
		GM50: model.TargetBand{TargetMRC: margin.Round2(t50.TargetPrice), DiscountNeeded: margin.Round1(t50.DiscountNeeded)},
	}
}

func serviceInfo(svc *model.ServiceContext) model.ServiceInfo {
	return model.ServiceInfo{
		ServiceID:        svc.ServiceID,
		Customer:         svc.Customer,
		BandwidthDisplay: svc.BandwidthDisplay(),
		ClientMRC:        margin.Round2(svc.ClientMRC),
		Currency:         svc.Currency,
		Address:          svc.Address,
		Latitude:         svc.Latitude,
		Longitude:        svc.Longitude,
	}
}

func quoteInfo(q model.VendorQuote, cur margin.Result) model.VendorQuoteInfo {
	return model.VendorQuoteInfo{
		VendorName:   q.VendorName,
		RecordID:     q.RecordID,
		CurrentMRC:   margin.Round2(q.MRC),
		MRCCurrency:  q.Currency,
		CurrentGM:    margin.Round1(cur.MarginPct),
		GMStatus:     cur.Status,
		LeadTimeDays: q.LeadTimeDays,
		Status:       q.Status,
		Bandwidth:    model.FormatBandwidth(q.BandwidthBps),
	}
}

func floatPtr(v float64) *float64 { return &v }
