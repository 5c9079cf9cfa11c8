package exchange

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"AutoTrader/internal/model"
)

// maxCandleCount is the largest page the candle endpoint serves.
const maxCandleCount = 200

type marketInfo struct {
	Market        string `json:"market"`
	KoreanName    string `json:"korean_name"`
	EnglishName   string `json:"english_name"`
	MarketWarning string `json:"market_warning"`
}

type dayCandle struct {
	Market               string  `json:"market"`
	CandleDateTimeKST    string  `json:"candle_date_time_kst"`
	OpeningPrice         float64 `json:"opening_price"`
	HighPrice            float64 `json:"high_price"`
	LowPrice             float64 `json:"low_price"`
	TradePrice           float64 `json:"trade_price"`
	Timestamp            int64   `json:"timestamp"`
	CandleAccTradeVolume float64 `json:"candle_acc_trade_volume"`
}

type tickerInfo struct {
	Market     string  `json:"market"`
	TradePrice float64 `json:"trade_price"`
	Timestamp  int64   `json:"timestamp"`
}

// ListInstruments returns every market the exchange lists, in exchange order.
func (c *Client) ListInstruments(ctx context.Context) ([]model.Instrument, error) {
	var markets []marketInfo
	if err := c.get(ctx, "/v1/market/all", url.Values{"isDetails": {"true"}}, false, &markets); err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	out := make([]model.Instrument, 0, len(markets))
	for _, m := range markets {
		out = append(out, model.Instrument{
			Market:      m.Market,
			KoreanName:  m.KoreanName,
			EnglishName: m.EnglishName,
			Warning:     m.MarketWarning == "CAUTION",
		})
	}
	return out, nil
}

// Candles returns up to count daily candles ending before `to` (now when zero), oldest first.
func (c *Client) Candles(ctx context.Context, market string, count int, to time.Time) ([]model.OHLCV, error) {
	if count <= 0 {
		return nil, nil
	}
	if count > maxCandleCount {
		count = maxCandleCount
	}
	query := url.Values{
		"market": {market},
		"count":  {strconv.Itoa(count)},
	}
	if !to.IsZero() {
		query.Set("to", to.UTC().Format("2006-01-02T15:04:05Z"))
	}
	var candles []dayCandle
	if err := c.get(ctx, "/v1/candles/days", query, false, &candles); err != nil {
		return nil, fmt.Errorf("candles %s: %w", market, err)
	}
	bars := make([]model.OHLCV, 0, len(candles))
	for _, cd := range candles {
		ts, err := time.ParseInLocation("2006-01-02T15:04:05", cd.CandleDateTimeKST, model.KST())
		if err != nil {
			return nil, fmt.Errorf("candles %s: parse time %q: %w", market, cd.CandleDateTimeKST, err)
		}
		bars = append(bars, model.OHLCV{
			Time:   ts,
			Open:   cd.OpeningPrice,
			High:   cd.HighPrice,
			Low:    cd.LowPrice,
			Close:  cd.TradePrice,
			Volume: cd.CandleAccTradeVolume,
		})
	}
	// the endpoint returns newest first
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// Ticker returns the last trade price for market.
func (c *Client) Ticker(ctx context.Context, market string) (float64, error) {
	var tickers []tickerInfo
	if err := c.get(ctx, "/v1/ticker", url.Values{"markets": {market}}, false, &tickers); err != nil {
		return 0, fmt.Errorf("ticker %s: %w", market, err)
	}
	for _, t := range tickers {
		if t.Market == market {
			return t.TradePrice, nil
		}
	}
	return 0, fmt.Errorf("ticker %s: not found in response", market)
}
