package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"AutoTrader/internal/model"
	"AutoTrader/internal/recorder"

	"github.com/rs/zerolog"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	mu     sync.Mutex
	Series map[string][]model.OHLCV
	Calls  map[string]int
}

// NewMockFetcher creates a MockFetcher serving series keyed by market.
func NewMockFetcher(series map[string][]model.OHLCV) *MockFetcher {
	return &MockFetcher{Series: series, Calls: make(map[string]int)}
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) RecentSeries(_ context.Context, market string, count int) ([]model.OHLCV, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls[market]++
	bars := m.Series[market]
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

func (m *MockFetcher) LatestStoredTimestamp(_ context.Context, market string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bars := m.Series[market]
	if len(bars) == 0 {
		return time.Time{}, false, nil
	}
	return bars[len(bars)-1].Time, true, nil
}

// Candles lets MockFetcher stand in as a CandleSource.
func (m *MockFetcher) Candles(ctx context.Context, market string, count int, _ time.Time) ([]model.OHLCV, error) {
	return m.RecentSeries(ctx, market, count)
}

// ExchangeCollector reads candles straight from the exchange; it stores nothing.
type ExchangeCollector struct {
	Source CandleSource
}

// NewExchangeCollector creates a collector without local storage.
func NewExchangeCollector(source CandleSource) *ExchangeCollector {
	return &ExchangeCollector{Source: source}
}

func (c *ExchangeCollector) Name() string { return "exchange" }

func (c *ExchangeCollector) RecentSeries(ctx context.Context, market string, count int) ([]model.OHLCV, error) {
	bars, err := c.Source.Candles(ctx, market, count, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("fetch candles: %w", err)
	}
	return bars, nil
}

func (c *ExchangeCollector) LatestStoredTimestamp(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

// StoreCollector serves series from the candle store and refreshes a market
// from the exchange whenever its newest stored candle predates today's (KST) candle.
type StoreCollector struct {
	Source CandleSource
	Store  recorder.CandleStore
	log    zerolog.Logger
	now    func() time.Time
}

// NewStoreCollector creates a store-backed collector.
func NewStoreCollector(source CandleSource, store recorder.CandleStore, log zerolog.Logger) *StoreCollector {
	return &StoreCollector{Source: source, Store: store, log: log, now: time.Now}
}

func (c *StoreCollector) Name() string { return "sqlite" }

func (c *StoreCollector) LatestStoredTimestamp(_ context.Context, market string) (time.Time, bool, error) {
	return c.Store.LatestCandleTime(market)
}

// RecentSeries refreshes market if stale and returns the newest count stored candles.
func (c *StoreCollector) RecentSeries(ctx context.Context, market string, count int) ([]model.OHLCV, error) {
	if count <= 0 {
		return nil, nil
	}
	if err := c.refresh(ctx, market, count); err != nil {
		return nil, err
	}

	today := dayStart(c.now())
	from := today.AddDate(0, 0, 1-count)
	bars, err := c.Store.QueryCandles(market, from, today.Add(24*time.Hour-time.Second))
	if err != nil {
		return nil, fmt.Errorf("query stored candles: %w", err)
	}
	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

// Refresh brings every market's stored candles up to date, continuing past failures.
func (c *StoreCollector) Refresh(ctx context.Context, markets []string, count int) error {
	var failed int
	for _, market := range markets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.refresh(ctx, market, count); err != nil {
			failed++
			c.log.Warn().Err(err).Str("market", market).Msg("candle refresh failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("candle refresh: %d of %d markets failed", failed, len(markets))
	}
	return nil
}

func (c *StoreCollector) refresh(ctx context.Context, market string, count int) error {
	latest, ok, err := c.Store.LatestCandleTime(market)
	if err != nil {
		return fmt.Errorf("latest stored candle: %w", err)
	}

	// today's candle keeps changing until the day closes, so it is always re-fetched
	today := dayStart(c.now())
	fetch := count
	if ok && !latest.Before(today.AddDate(0, 0, 1-count)) {
		missing := int(today.Sub(dayStart(latest)).Hours()/24) + 1
		if missing < fetch {
			fetch = missing
		}
	}

	bars, err := c.Source.Candles(ctx, market, fetch, time.Time{})
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if err := c.Store.SaveCandles(market, bars); err != nil {
		return fmt.Errorf("store candles: %w", err)
	}
	c.log.Debug().Str("market", market).Int("fetched", len(bars)).Msg("candles refreshed")
	return nil
}

// dayStart returns 09:00 KST of t's trading day, the open time of the daily candle.
func dayStart(t time.Time) time.Time {
	k := t.In(model.KST())
	start := time.Date(k.Year(), k.Month(), k.Day(), 9, 0, 0, 0, model.KST())
	if k.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}
