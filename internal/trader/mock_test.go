package trader

import (
	"context"

	"AutoTrader/internal/model"

	"github.com/stretchr/testify/mock"
)

type ExchangeMock struct {
	mock.Mock
}

func (m *ExchangeMock) Ticker(ctx context.Context, market string) (float64, error) {
	args := m.Called(ctx, market)
	return args.Get(0).(float64), args.Error(1)
}

func (m *ExchangeMock) Balances(ctx context.Context) ([]model.Balance, error) {
	args := m.Called(ctx)
	balances, _ := args.Get(0).([]model.Balance)
	return balances, args.Error(1)
}

func (m *ExchangeMock) PlaceOrder(ctx context.Context, order model.Order) (model.OrderResult, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(model.OrderResult), args.Error(1)
}
