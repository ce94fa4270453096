// Package margin implements the gross-margin calculator and target pricer.
// All functions are pure; rounding happens only at the presentation boundary.
package margin

import (
	"math"

	"github.com/marginmind/backend/internal/model"
)

// Result is a computed gross margin with its three-tier classification.
// Derived, never stored.
type Result struct {
	MarginPct float64
	Status    model.GMStatus
}

// TargetSet is the price and discount required to reach one target margin.
type TargetSet struct {
	TargetPrice    float64
	DiscountNeeded float64
}

// Fixed recommendation bands shown to users (distinct from the configurable
// TARGET_GM business constant, see config).
const (
	Band40 = 0.40
	Band50 = 0.50
)

// Compute returns the gross margin of clientPrice vs vendorPrice, both in the
// same currency. A non-positive client price degrades to {0, danger} rather
// than failing.
func Compute(clientPrice, vendorPrice float64) Result {
	if clientPrice <= 0 {
		return Result{MarginPct: 0, Status: model.GMStatusDanger}
	}
	pct := (clientPrice - vendorPrice) / clientPrice * 100
	return Result{MarginPct: pct, Status: Classify(pct)}
}

// Classify maps a margin percentage onto the three-tier status scale.
// Boundaries are half-open: exactly 50 is success, exactly 40 is warning.
func Classify(marginPct float64) model.GMStatus {
	switch {
	case marginPct >= 50:
		return model.GMStatusSuccess
	case marginPct >= 40:
		return model.GMStatusWarning
	default:
		return model.GMStatusDanger
	}
}

// ComputeTarget returns the maximum vendor price that achieves the target
// margin fraction and the discount from currentPrice needed to reach it.
func ComputeTarget(clientPrice, currentPrice, targetFraction float64) TargetSet {
	target := clientPrice * (1 - targetFraction)
	var discount float64
	if currentPrice > 0 {
		discount = (currentPrice - target) / currentPrice * 100
	}
	return TargetSet{TargetPrice: target, DiscountNeeded: discount}
}

// Round1 rounds a percentage to one decimal for presentation.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round2 rounds a monetary amount to two decimals for presentation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
