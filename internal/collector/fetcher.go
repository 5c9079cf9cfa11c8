package collector

import (
	"context"
	"time"

	"AutoTrader/internal/model"
)

// Gateway supplies recent candle series per market.
type Gateway interface {
	// RecentSeries returns up to count daily candles, oldest first.
	RecentSeries(ctx context.Context, market string, count int) ([]model.OHLCV, error)
	// LatestStoredTimestamp reports the freshest stored candle, if any.
	LatestStoredTimestamp(ctx context.Context, market string) (time.Time, bool, error)
	Name() string
}

// CandleSource fetches daily candles from the exchange.
type CandleSource interface {
	Candles(ctx context.Context, market string, count int, to time.Time) ([]model.OHLCV, error)
}
