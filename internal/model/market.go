package model

import (
	"strings"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Instrument is a tradable market such as "KRW-BTC".
type Instrument struct {
	Market      string
	KoreanName  string
	EnglishName string
	Warning     bool
}

// Currency returns the traded asset code, e.g. "BTC" for "KRW-BTC".
func (i Instrument) Currency() string {
	return CurrencyOf(i.Market)
}

// CurrencyOf extracts the asset code from a quote-prefixed market identifier.
func CurrencyOf(market string) string {
	if idx := strings.IndexByte(market, '-'); idx >= 0 {
		return market[idx+1:]
	}
	return market
}

// MarketOf builds the market identifier for currency quoted in quote.
func MarketOf(quote, currency string) string {
	return quote + "-" + currency
}

// Closes extracts closing prices, oldest first.
func Closes(bars []OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Volumes extracts accumulated trade volumes, oldest first.
func Volumes(bars []OHLCV) []float64 {
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		volumes[i] = b.Volume
	}
	return volumes
}

var kst = loadKST()

func loadKST() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

// KST returns the exchange-local time zone candles are stamped in.
func KST() *time.Location { return kst }
