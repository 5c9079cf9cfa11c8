package trader

import "github.com/shopspring/decimal"

// volumePrecision is the number of decimal places the exchange accepts for volumes.
const volumePrecision = 8

// DefaultMinOrderValue is the smallest order notional the KRW market accepts.
const DefaultMinOrderValue = 5000

// Sizer computes limit prices and quantities for signals.
type Sizer struct {
	AllocationFraction float64 // share of free quote balance committed per buy
	PriceOffset        float64 // buy below / sell above the ticker by this fraction
	MinOrderValue      float64 // orders below this notional are not placed
}

// SizeBuy prices a bid PriceOffset below ticker and sizes it against
// AllocationFraction of freeQuote net of fee. ok is false when no order should be placed.
//
// The quantity is bounded by AllocationFraction*freeQuote/price where price is the
// returned tick-rounded bid, not the ticker: with a fee below PriceOffset it can
// slightly exceed AllocationFraction*freeQuote/ticker.
func (s Sizer) SizeBuy(ticker, freeQuote, feeRate float64) (price, qty decimal.Decimal, ok bool) {
	if ticker <= 0 || freeQuote <= 0 || s.AllocationFraction <= 0 {
		return decimal.Zero, decimal.Zero, false
	}
	one := decimal.NewFromInt(1)
	raw := decimal.NewFromFloat(ticker).Mul(one.Sub(decimal.NewFromFloat(s.PriceOffset)))
	price = RoundToTick(raw, false)
	if !price.IsPositive() {
		return decimal.Zero, decimal.Zero, false
	}
	allocated := decimal.NewFromFloat(freeQuote).Mul(decimal.NewFromFloat(s.AllocationFraction))
	qty = allocated.Div(price).Mul(one.Sub(decimal.NewFromFloat(feeRate))).Truncate(volumePrecision)
	if !s.placeable(price, qty) {
		return decimal.Zero, decimal.Zero, false
	}
	return price, qty, true
}

// SizeSell prices an ask PriceOffset above ticker for the whole free holding net of fee.
func (s Sizer) SizeSell(ticker, freeHolding, feeRate float64) (price, qty decimal.Decimal, ok bool) {
	if ticker <= 0 || freeHolding <= 0 {
		return decimal.Zero, decimal.Zero, false
	}
	one := decimal.NewFromInt(1)
	raw := decimal.NewFromFloat(ticker).Mul(one.Add(decimal.NewFromFloat(s.PriceOffset)))
	price = RoundToTick(raw, true)
	qty = decimal.NewFromFloat(freeHolding).Mul(one.Sub(decimal.NewFromFloat(feeRate))).Truncate(volumePrecision)
	if !s.placeable(price, qty) {
		return decimal.Zero, decimal.Zero, false
	}
	return price, qty, true
}

func (s Sizer) placeable(price, qty decimal.Decimal) bool {
	if !qty.IsPositive() {
		return false
	}
	return price.Mul(qty).GreaterThanOrEqual(decimal.NewFromFloat(s.MinOrderValue))
}

var tickTable = []struct {
	min  decimal.Decimal
	tick decimal.Decimal
}{
	{decimal.NewFromInt(2000000), decimal.NewFromInt(1000)},
	{decimal.NewFromInt(1000000), decimal.NewFromInt(500)},
	{decimal.NewFromInt(500000), decimal.NewFromInt(100)},
	{decimal.NewFromInt(100000), decimal.NewFromInt(50)},
	{decimal.NewFromInt(10000), decimal.NewFromInt(10)},
	{decimal.NewFromInt(1000), decimal.NewFromInt(1)},
	{decimal.NewFromInt(100), decimal.New(1, -1)},
	{decimal.NewFromInt(10), decimal.New(1, -2)},
	{decimal.NewFromInt(1), decimal.New(1, -3)},
	{decimal.New(1, -1), decimal.New(1, -4)},
	{decimal.New(1, -2), decimal.New(1, -5)},
	{decimal.New(1, -3), decimal.New(1, -6)},
	{decimal.New(1, -4), decimal.New(1, -7)},
}

// TickSize returns the KRW market price unit for price.
func TickSize(price decimal.Decimal) decimal.Decimal {
	for _, t := range tickTable {
		if price.GreaterThanOrEqual(t.min) {
			return t.tick
		}
	}
	return decimal.New(1, -8)
}

// RoundToTick snaps price to the tick grid, rounding up or down.
func RoundToTick(price decimal.Decimal, up bool) decimal.Decimal {
	tick := TickSize(price)
	steps := price.Div(tick)
	if up {
		steps = steps.Ceil()
	} else {
		steps = steps.Floor()
	}
	return steps.Mul(tick)
}
