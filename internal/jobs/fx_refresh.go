package jobs

import (
	"context"

	"github.com/marginmind/backend/internal/fx"
	"github.com/marginmind/backend/internal/model"
)

// FXRefreshName is the registered name of the exchange-rate refresh job.
const FXRefreshName = "fx-refresh"

// FXRefresh returns a job that keeps the exchange-rate cache warm for the
// given currency, so requests rarely pay for a synchronous fetch.
func FXRefresh(rates *fx.CachedProvider, currency model.Currency) JobFunc {
	return func(ctx context.Context) error {
		return rates.Refresh(ctx, currency)
	}
}
