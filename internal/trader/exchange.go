package trader

import (
	"context"

	"AutoTrader/internal/model"
)

// Exchange is the subset of the exchange gateway the trader needs.
type Exchange interface {
	Ticker(ctx context.Context, market string) (float64, error)
	Balances(ctx context.Context) ([]model.Balance, error)
	PlaceOrder(ctx context.Context, order model.Order) (model.OrderResult, error)
}
