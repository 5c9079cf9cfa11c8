package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the order direction in exchange terms.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// OrderType is the exchange order type.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market" // market sell by volume
	OrderTypePrice  OrderType = "price"  // market buy by total price
)

// Order is a single order request. Price is nil for market sells.
type Order struct {
	Market string
	Side   Side
	Type   OrderType
	Volume decimal.Decimal
	Price  *decimal.Decimal
}

// OrderResult is what the exchange reports back for a submitted order.
type OrderResult struct {
	UUID            string
	Market          string
	Side            Side
	Type            OrderType
	State           string
	Price           decimal.Decimal
	Volume          decimal.Decimal
	RemainingVolume decimal.Decimal
	ExecutedVolume  decimal.Decimal
	PaidFee         decimal.Decimal
	CreatedAt       time.Time
}
