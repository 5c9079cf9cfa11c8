package recorder

import (
	"time"

	"AutoTrader/internal/model"
)

// OrderEvent records one order attempt, successful or not.
type OrderEvent struct {
	Market  string
	Signal  model.Signal
	Side    model.Side
	Type    model.OrderType
	Price   string // empty for market orders
	Volume  string
	OrderID string
	State   string
	Error   string
}

// LiquidationEvent records one holding handled by an end-of-session sweep.
type LiquidationEvent struct {
	Currency string
	Volume   float64
	OrderID  string
	Result   string // "SUBMITTED", "FAILED" or "EXCLUDED"
	Note     string
}

// Recorder persists the trading journal for later analysis.
type Recorder interface {
	RecordOrder(evt *OrderEvent) error
	RecordSession(evt *model.SessionEvent) error
	RecordLiquidation(evt *LiquidationEvent) error
	Close() error
}

// CandleStore persists daily candles per market.
type CandleStore interface {
	SaveCandles(market string, bars []model.OHLCV) error
	// QueryCandles returns candles with from <= time <= to, oldest first.
	QueryCandles(market string, from, to time.Time) ([]model.OHLCV, error)
	LatestCandleTime(market string) (time.Time, bool, error)
}
