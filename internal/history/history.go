// Package history projects historical negotiation discounts onto current prices.
package history

import (
	"github.com/marginmind/backend/internal/margin"
	"github.com/marginmind/backend/internal/model"
)

// Projection is a projected price/margin pair after applying a discount.
type Projection struct {
	Price  float64
	Margin margin.Result
}

// Project applies discountPct (0-100) to currentPrice and recomputes the
// margin against clientPrice. Callers must check the stats HasData gate and
// only invoke with a positive discount.
func Project(currentPrice, clientPrice, discountPct float64) Projection {
	price := currentPrice * (1 - discountPct/100)
	return Projection{Price: price, Margin: margin.Compute(clientPrice, price)}
}

// Pair holds the conservative (average-discount) and optimistic
// (best-discount) projections for a vendor. Best is present only when the
// vendor's best discount exceeds its average; the two cases are always exposed
// separately, never collapsed.
type Pair struct {
	Avg  Projection
	Best *Projection
}

// ProjectStats builds both projections from a vendor's negotiation history.
// Returns nil when there is no history or no positive average discount.
func ProjectStats(currentPrice, clientPrice float64, stats *model.NegotiationStats) *Pair {
	if stats == nil || !stats.HasData || stats.AvgDiscount <= 0 {
		return nil
	}
	p := &Pair{Avg: Project(currentPrice, clientPrice, stats.AvgDiscount)}
	if stats.BestDiscount > stats.AvgDiscount {
		best := Project(currentPrice, clientPrice, stats.BestDiscount)
		p.Best = &best
	}
	return p
}
