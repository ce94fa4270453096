// Package ranking orders and filters collections of vendor quotes.
package ranking

import (
	"sort"

	"github.com/marginmind/backend/internal/margin"
	"github.com/marginmind/backend/internal/model"
)

// Fixed selection sizes. Never request-configurable.
const (
	MaxPriceListOptions = 3
	MaxAlternatives     = 5
)

// ByMargin returns a copy of quotes sorted by gross margin against clientPrice,
// best first. The sort is stable: ties keep input order, which decides the
// "best" quote when margins tie.
func ByMargin(quotes []model.VendorQuote, clientPrice float64) []model.VendorQuote {
	out := make([]model.VendorQuote, len(quotes))
	copy(out, quotes)
	sort.SliceStable(out, func(i, j int) bool {
		return margin.Compute(clientPrice, out[i].MRC).MarginPct >
			margin.Compute(clientPrice, out[j].MRC).MarginPct
	})
	return out
}

// ByPrice returns a copy of quotes sorted by MRC ascending, stable.
func ByPrice(quotes []model.VendorQuote) []model.VendorQuote {
	out := make([]model.VendorQuote, len(quotes))
	copy(out, quotes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MRC < out[j].MRC })
	return out
}

// TopN truncates an already-sorted slice to at most n entries.
func TopN(quotes []model.VendorQuote, n int) []model.VendorQuote {
	if len(quotes) <= n {
		return quotes
	}
	return quotes[:n]
}

// PartitionByVendor splits quotes into the incumbent vendor's own entries and
// everyone else's, using normalized vendor-name comparison.
func PartitionByVendor(quotes []model.VendorQuote, vendorName string) (same, others []model.VendorQuote) {
	id := model.NormalizeVendor(vendorName)
	for _, q := range quotes {
		if q.Vendor() == id {
			same = append(same, q)
		} else {
			others = append(others, q)
		}
	}
	return same, others
}

// BandwidthMatch selects the quotes whose bandwidth best matches targetBps:
// exact matches win; otherwise the smallest bandwidth strictly above target;
// otherwise the largest strictly below. A nil target returns the single
// best-margin quote across all bandwidths. Empty input yields empty output.
func BandwidthMatch(quotes []model.VendorQuote, targetBps *int64, clientPrice float64) []model.VendorQuote {
	if len(quotes) == 0 {
		return nil
	}
	if targetBps == nil {
		return ByMargin(quotes, clientPrice)[:1]
	}
	target := *targetBps

	var exact []model.VendorQuote
	var aboveBps, belowBps int64
	for _, q := range quotes {
		if q.BandwidthBps == nil {
			continue
		}
		bps := *q.BandwidthBps
		switch {
		case bps == target:
			exact = append(exact, q)
		case bps > target && (aboveBps == 0 || bps < aboveBps):
			aboveBps = bps
		case bps < target && bps > belowBps:
			belowBps = bps
		}
	}
	if len(exact) > 0 {
		return ByMargin(exact, clientPrice)
	}

	pick := aboveBps
	if pick == 0 {
		pick = belowBps
	}
	if pick == 0 {
		return nil
	}
	var group []model.VendorQuote
	for _, q := range quotes {
		if q.BandwidthBps != nil && *q.BandwidthBps == pick {
			group = append(group, q)
		}
	}
	return ByMargin(group, clientPrice)
}
