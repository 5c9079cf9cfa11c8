package exchange

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"AutoTrader/internal/model"

	"github.com/shopspring/decimal"
)

type accountInfo struct {
	Currency     string `json:"currency"`
	Balance      string `json:"balance"`
	Locked       string `json:"locked"`
	AvgBuyPrice  string `json:"avg_buy_price"`
	UnitCurrency string `json:"unit_currency"`
}

type orderInfo struct {
	UUID            string          `json:"uuid"`
	Side            string          `json:"side"`
	OrdType         string          `json:"ord_type"`
	Price           decimal.Decimal `json:"price"`
	State           string          `json:"state"`
	Market          string          `json:"market"`
	CreatedAt       string          `json:"created_at"`
	Volume          decimal.Decimal `json:"volume"`
	RemainingVolume decimal.Decimal `json:"remaining_volume"`
	PaidFee         decimal.Decimal `json:"paid_fee"`
	ExecutedVolume  decimal.Decimal `json:"executed_volume"`
}

// Balances returns every currency row of the account. Never cached.
func (c *Client) Balances(ctx context.Context) ([]model.Balance, error) {
	var accounts []accountInfo
	if err := c.get(ctx, "/v1/accounts", nil, true, &accounts); err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}
	out := make([]model.Balance, 0, len(accounts))
	for _, a := range accounts {
		free, err := parseAmount(a.Balance)
		if err != nil {
			return nil, fmt.Errorf("balances: %s balance: %w", a.Currency, err)
		}
		locked, err := parseAmount(a.Locked)
		if err != nil {
			return nil, fmt.Errorf("balances: %s locked: %w", a.Currency, err)
		}
		avg, err := parseAmount(a.AvgBuyPrice)
		if err != nil {
			return nil, fmt.Errorf("balances: %s avg_buy_price: %w", a.Currency, err)
		}
		out = append(out, model.Balance{Currency: a.Currency, Free: free, Locked: locked, AvgBuyPrice: avg})
	}
	return out, nil
}

// PlaceOrder submits order once. The caller decides whether to retry.
func (c *Client) PlaceOrder(ctx context.Context, order model.Order) (model.OrderResult, error) {
	params := url.Values{
		"market":   {order.Market},
		"side":     {string(order.Side)},
		"ord_type": {string(order.Type)},
	}
	if order.Type != model.OrderTypePrice {
		params.Set("volume", order.Volume.String())
	}
	if order.Price != nil {
		params.Set("price", order.Price.String())
	}
	var info orderInfo
	if err := c.post(ctx, "/v1/orders", params, &info); err != nil {
		return model.OrderResult{}, fmt.Errorf("place order %s %s: %w", order.Side, order.Market, err)
	}
	return info.toResult(), nil
}

// Order looks up a previously submitted order by its uuid.
func (c *Client) Order(ctx context.Context, id string) (model.OrderResult, error) {
	var info orderInfo
	if err := c.get(ctx, "/v1/order", url.Values{"uuid": {id}}, true, &info); err != nil {
		return model.OrderResult{}, fmt.Errorf("order %s: %w", id, err)
	}
	return info.toResult(), nil
}

func (o orderInfo) toResult() model.OrderResult {
	created, _ := time.Parse(time.RFC3339, o.CreatedAt)
	return model.OrderResult{
		UUID:            o.UUID,
		Market:          o.Market,
		Side:            model.Side(o.Side),
		Type:            model.OrderType(o.OrdType),
		State:           o.State,
		Price:           o.Price,
		Volume:          o.Volume,
		RemainingVolume: o.RemainingVolume,
		ExecutedVolume:  o.ExecutedVolume,
		PaidFee:         o.PaidFee,
		CreatedAt:       created,
	}
}

func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
