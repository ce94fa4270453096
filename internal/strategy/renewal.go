package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/marginmind/backend/internal/history"
	"github.com/marginmind/backend/internal/margin"
	"github.com/marginmind/backend/internal/model"
	"github.com/marginmind/backend/internal/ranking"
)

// BuildRenewal computes the renewal-mode analysis for a service: renew vs.
// switch, with nearby same-vendor pricing folded in as evidence and all
// discount sources blended into one overall recommendation per vendor.
func (s *Service) BuildRenewal(ctx context.Context, serviceID string) (*model.RenewalResponse, error) {
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

	nearby := s.nearbyQuotes(ctx, svc)

	resp := &model.RenewalResponse{
		ServiceID: serviceID,
		Service:   serviceInfo(svc),
	}
	for _, q := range dedupeByVendor(quotes) {
		analysis, err := s.buildRenewalAnalysis(ctx, svc, q, nearby)
		if err != nil {
			s.logger.Error("dropping vendor from renewal response",
				"service_id", serviceID, "vendor", q.VendorName, "error", err)
			continue
		}
		resp.Analyses = append(resp.Analyses, *analysis)
	}
	resp.TotalVendors = len(resp.Analyses)
	return resp, nil
}

func (s *Service) nearbyQuotes(ctx context.Context, svc *model.ServiceContext) []model.VendorQuote {
	if !svc.HasLocation() {
		return nil
	}
	since := time.Now().AddDate(0, -s.cfg.QuoteLookbackMonths, 0)
	quotes, err := s.graph.GetNearbyQuotes(ctx, *svc.Latitude, *svc.Longitude,
		s.cfg.NearbyRadiusMeters, since, svc.ServiceID)
	if err != nil {
		s.logger.Warn("nearby quote search unavailable", "service_id", svc.ServiceID, "error", err)
		return nil
	}
	return quotes
}

func (s *Service) buildRenewalAnalysis(ctx context.Context, svc *model.ServiceContext, q model.VendorQuote, nearby []model.VendorQuote) (analysis *model.RenewalAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			analysis, err = nil, fmt.Errorf("renewal analysis panicked: %v", r)
		}
	}()

	cur := margin.Compute(svc.ClientMRC, q.MRC)
	negStats := s.negotiationStats(ctx, q.VendorName)
	renStats := s.renewalStats(ctx, q.VendorName)
	proj := history.ProjectStats(q.MRC, svc.ClientMRC, negStats)
	cheaper := cheaperNearby(q, nearby)
	evidence := nearbyEvidence(svc.ClientMRC, q, cheaper)

	analysis = &model.RenewalAnalysis{
		VendorName:            q.VendorName,
		CurrentMRC:            margin.Round2(q.MRC),
		CurrentGM:             margin.Round1(cur.MarginPct),
		GMStatus:              cur.Status,
		Targets:               targetsFor(svc.ClientMRC, q.MRC),
		NearbyQuotes:          evidence,
		NegotiationHistory:    negotiationSummary(negStats, proj),
		RenewalStats:          renewalSummary(renStats),
		Recommendations:       s.renewalRecommendations(svc, q, cur, negStats, renStats, proj, evidence),
		OverallRecommendation: blendDiscounts(svc.ClientMRC, q.MRC, negStats, renStats, nearbyDiscounts(q, cheaper)),
	}
	return analysis, nil
}

// cheaperNearby keeps only the incumbent vendor's own cheaper quotes near the
// service location, price ascending. They double as display evidence and as
// blend inputs.
func cheaperNearby(q model.VendorQuote, nearby []model.VendorQuote) []model.VendorQuote {
	same, _ := ranking.PartitionByVendor(nearby, q.VendorName)

	var cheaper []model.VendorQuote
	for _, n := range same {
		if n.MRC > 0 && n.MRC < q.MRC {
			cheaper = append(cheaper, n)
		}
	}
	return ranking.ByPrice(cheaper)
}

func nearbyEvidence(clientMRC float64, q model.VendorQuote, cheaper []model.VendorQuote) []model.NearbyEvidence {
	top := ranking.TopN(cheaper, ranking.MaxAlternatives)

	out := make([]model.NearbyEvidence, 0, len(top))
	for _, n := range top {
		gm := margin.Compute(clientMRC, n.MRC)
		out = append(out, model.NearbyEvidence{
			DistanceKm:        margin.Round2(n.DistanceMeters / 1000),
			MRC:               margin.Round2(n.MRC),
			GM:                margin.Round1(gm.MarginPct),
			DiscountVsCurrent: margin.Round1((q.MRC - n.MRC) / q.MRC * 100),
		})
	}
	return out
}

// nearbyDiscounts converts cheaper nearby quotes into raw discount
// percentages vs. the current quote. Unrounded: rounding happens only when
// the blend result reaches the response.
func nearbyDiscounts(q model.VendorQuote, cheaper []model.VendorQuote) []float64 {
	out := make([]float64, 0, len(cheaper))
	for _, n := range cheaper {
		out = append(out, (q.MRC-n.MRC)/q.MRC*100)
	}
	return out
}

// blendDiscounts combines every available discount signal into one ask: the
// unweighted mean of all sources, with the maximum reported alongside. Each
// history aggregate counts once; every cheaper nearby quote counts as its own
// source.
func blendDiscounts(clientMRC, currentMRC float64, negStats *model.NegotiationStats, renStats *model.RenewalStats, nearby []float64) *model.OverallRecommendation {
	var sources []float64
	if negStats != nil && negStats.HasData && negStats.AvgDiscount > 0 {
		sources = append(sources, negStats.AvgDiscount)
	}
	if renStats != nil && renStats.HasData && renStats.AvgDiscount > 0 {
		sources = append(sources, renStats.AvgDiscount)
	}
	for _, d := range nearby {
		if d > 0 {
			sources = append(sources, d)
		}
	}
	if len(sources) == 0 {
		return nil
	}

	var sum, max float64
	for _, d := range sources {
		sum += d
		if d > max {
			max = d
		}
	}
	mean := sum / float64(len(sources))

	proj := history.Project(currentMRC, clientMRC, mean)
	confidence := model.ConfidenceLow
	switch {
	case len(sources) >= 3:
		confidence = model.ConfidenceHigh
	case len(sources) == 2:
		confidence = model.ConfidenceMedium
	}
	return &model.OverallRecommendation{
		RecommendedDiscount: margin.Round1(mean),
		MaxDiscount:         margin.Round1(max),
		RecommendedMRC:      margin.Round2(proj.Price),
		ProjectedGM:         margin.Round1(proj.Margin.MarginPct),
		GMStatus:            proj.Margin.Status,
		DataSources:         len(sources),
		Confidence:          confidence,
	}
}

func (s *Service) renewalRecommendations(svc *model.ServiceContext, q model.VendorQuote, cur margin.Result, negStats *model.NegotiationStats, renStats *model.RenewalStats, proj *history.Pair, evidence []model.NearbyEvidence) []model.Recommendation {
	if cur.MarginPct >= margin.Band50*100 {
		return []model.Recommendation{maintainRecommendation(q, nil)}
	}

	recs := []model.Recommendation{negotiateRecommendation(svc, q, negStats, proj)}

	if len(evidence) > 0 {
		// evidence is price-ascending, so the first entry is the cheapest.
		best := evidence[0]
		recs = append(recs, model.Recommendation{
			Priority: 2,
			Title:    "Cite the vendor's own nearby pricing",
			Type:     model.RecommendationPriceListLeverage,
			Strength: model.StrengthHigh,
			Actions: []model.RecommendationAction{
				{
					Text: fmt.Sprintf("%s prices a comparable service %.2f km away at %.2f/mo, %.1f%% below the current quote.",
						q.VendorName, best.DistanceKm, best.MRC, best.DiscountVsCurrent),
					Value: floatPtr(best.MRC),
				},
				{
					Text: fmt.Sprintf("Talking point: \"You already serve this area at %.2f/mo. We expect the renewal to reflect that.\"", best.MRC),
				},
			},
		})
	}

	noEvidence := len(evidence) == 0 &&
		(negStats == nil || !negStats.HasData) &&
		(renStats == nil || !renStats.HasData)
	if cur.Status == model.GMStatusDanger && noEvidence {
		recs = append(recs, model.Recommendation{
			Priority: 3,
			Title:    "Re-procure before renewing",
			Type:     model.RecommendationNegotiate,
			Strength: model.StrengthMedium,
			Actions: []model.RecommendationAction{
				{Text: "Margin is below 40% with no negotiation evidence on file. Take the service to market before accepting renewal terms."},
			},
		})
	}
	return recs
}
