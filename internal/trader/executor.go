package trader

import (
	"context"
	"fmt"

	"AutoTrader/internal/metrics"
	"AutoTrader/internal/model"
	"AutoTrader/internal/recorder"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Outcome describes what Execute did for one instrument.
type Outcome struct {
	Submitted bool
	Order     model.Order
	Result    model.OrderResult
	Reason    string // why nothing was submitted
}

// Executor turns a signal into at most one submitted limit order.
type Executor struct {
	Exchange      Exchange
	Sizer         Sizer
	QuoteCurrency string
	FeeRate       float64
	Recorder      recorder.Recorder
	log           zerolog.Logger
}

// NewExecutor creates an Executor. rec may be nil.
func NewExecutor(ex Exchange, sizer Sizer, quote string, feeRate float64, rec recorder.Recorder, log zerolog.Logger) *Executor {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Executor{
		Exchange:      ex,
		Sizer:         sizer,
		QuoteCurrency: quote,
		FeeRate:       feeRate,
		Recorder:      rec,
		log:           log,
	}
}

// Execute fetches fresh price and balance state, sizes the order and submits it once.
// Failed submissions are logged and returned, never retried.
func (e *Executor) Execute(ctx context.Context, inst model.Instrument, signal model.Signal) (Outcome, error) {
	log := e.log.With().Str("market", inst.Market).Str("signal", signal.String()).Logger()

	var side model.Side
	switch signal {
	case model.SignalBuy:
		side = model.SideBid
	case model.SignalSell:
		side = model.SideAsk
	default:
		return Outcome{Reason: "no signal"}, nil
	}

	ticker, err := e.Exchange.Ticker(ctx, inst.Market)
	if err != nil {
		log.Warn().Err(err).Msg("ticker fetch failed")
		return Outcome{}, fmt.Errorf("ticker: %w", err)
	}
	balances, err := e.Exchange.Balances(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("balance fetch failed")
		return Outcome{}, fmt.Errorf("balances: %w", err)
	}

	var price, qty decimal.Decimal
	var ok bool
	var free float64
	if side == model.SideBid {
		free = model.FindBalance(balances, e.QuoteCurrency).Free
		price, qty, ok = e.Sizer.SizeBuy(ticker, free, e.FeeRate)
	} else {
		free = model.FindBalance(balances, inst.Currency()).Free
		price, qty, ok = e.Sizer.SizeSell(ticker, free, e.FeeRate)
	}
	if !ok {
		reason := "order below minimum size"
		if free <= 0 {
			reason = "no free balance"
		}
		log.Info().Float64("ticker", ticker).Float64("free", free).Str("reason", reason).Msg("skip order")
		metrics.OrdersTotal.WithLabelValues(string(side), "skipped").Inc()
		return Outcome{Reason: reason}, nil
	}

	order := model.Order{
		Market: inst.Market,
		Side:   side,
		Type:   model.OrderTypeLimit,
		Volume: qty,
		Price:  &price,
	}
	evt := &recorder.OrderEvent{
		Market: inst.Market,
		Signal: signal,
		Side:   side,
		Type:   order.Type,
		Price:  price.String(),
		Volume: qty.String(),
	}

	result, err := e.Exchange.PlaceOrder(ctx, order)
	if err != nil {
		log.Error().Err(err).Str("price", price.String()).Str("volume", qty.String()).Msg("order failed")
		metrics.OrdersTotal.WithLabelValues(string(side), "failed").Inc()
		evt.Error = err.Error()
		e.record(evt)
		return Outcome{Order: order}, fmt.Errorf("place order: %w", err)
	}

	log.Info().
		Str("order_id", result.UUID).
		Str("price", price.String()).
		Str("volume", qty.String()).
		Str("state", result.State).
		Msg("order submitted")
	metrics.OrdersTotal.WithLabelValues(string(side), "submitted").Inc()
	evt.OrderID = result.UUID
	evt.State = result.State
	e.record(evt)
	return Outcome{Submitted: true, Order: order, Result: result}, nil
}

func (e *Executor) record(evt *recorder.OrderEvent) {
	if err := e.Recorder.RecordOrder(evt); err != nil {
		e.log.Error().Err(err).Str("market", evt.Market).Msg("record order")
	}
}
