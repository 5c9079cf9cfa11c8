package trader

import (
	"context"
	"fmt"
	"time"

	"AutoTrader/internal/metrics"
	"AutoTrader/internal/model"
	"AutoTrader/internal/recorder"
	"AutoTrader/internal/util"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultLiquidationDelay spaces consecutive sell submissions.
const DefaultLiquidationDelay = 500 * time.Millisecond

// Report summarises one liquidation sweep.
type Report struct {
	Submitted []model.OrderResult
	Failed    []string
	Excluded  []model.Balance // excluded holdings still carrying a balance
}

// Sweeper market-sells every holding except the quote currency and the exclusion set.
type Sweeper struct {
	Exchange      Exchange
	QuoteCurrency string
	Exclude       map[string]struct{}
	Delay         time.Duration
	Recorder      recorder.Recorder
	log           zerolog.Logger
}

// NewSweeper creates a Sweeper. rec may be nil.
func NewSweeper(ex Exchange, quote string, exclude []string, delay time.Duration, rec recorder.Recorder, log zerolog.Logger) *Sweeper {
	set := make(map[string]struct{}, len(exclude))
	for _, c := range exclude {
		set[c] = struct{}{}
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Sweeper{
		Exchange:      ex,
		QuoteCurrency: quote,
		Exclude:       set,
		Delay:         delay,
		Recorder:      rec,
		log:           log,
	}
}

// LiquidateAll submits one market sell per eligible holding. A failure on one
// holding does not stop the sweep. The error is non-nil only when balances
// could not be fetched.
func (s *Sweeper) LiquidateAll(ctx context.Context) (Report, error) {
	var report Report

	balances, err := s.Exchange.Balances(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("liquidation: balance fetch failed")
		metrics.LiquidationsTotal.WithLabelValues("balance_error").Inc()
		return report, fmt.Errorf("liquidation balances: %w", err)
	}

	var targets []model.Balance
	for _, b := range balances {
		if b.Currency == s.QuoteCurrency {
			continue
		}
		if _, excluded := s.Exclude[b.Currency]; excluded {
			if b.Free+b.Locked > 0 {
				report.Excluded = append(report.Excluded, b)
			}
			continue
		}
		if b.Free > 0 {
			targets = append(targets, b)
		}
	}

	if len(targets) == 0 {
		s.log.Info().Msg("nothing to liquidate")
	}

	for i, b := range targets {
		if i > 0 {
			// the sweep must finish even if the caller's context is done
			_ = util.Sleep(context.WithoutCancel(ctx), s.Delay)
		}
		s.sell(ctx, b, &report)
	}

	for _, b := range report.Excluded {
		s.log.Info().
			Str("currency", b.Currency).
			Float64("free", b.Free).
			Float64("locked", b.Locked).
			Msg("excluded holding left in account")
		s.record(&recorder.LiquidationEvent{Currency: b.Currency, Volume: b.Free + b.Locked, Result: "EXCLUDED"})
	}

	s.log.Info().
		Int("submitted", len(report.Submitted)).
		Int("failed", len(report.Failed)).
		Int("excluded", len(report.Excluded)).
		Msg("liquidation finished")
	return report, nil
}

func (s *Sweeper) sell(ctx context.Context, b model.Balance, report *Report) {
	market := model.MarketOf(s.QuoteCurrency, b.Currency)
	volume := decimal.NewFromFloat(b.Free).Truncate(volumePrecision)
	order := model.Order{
		Market: market,
		Side:   model.SideAsk,
		Type:   model.OrderTypeMarket,
		Volume: volume,
	}

	result, err := s.Exchange.PlaceOrder(ctx, order)
	if err != nil {
		s.log.Error().Err(err).Str("market", market).Str("volume", volume.String()).Msg("liquidation sell failed")
		metrics.LiquidationsTotal.WithLabelValues("failed").Inc()
		report.Failed = append(report.Failed, b.Currency)
		s.record(&recorder.LiquidationEvent{Currency: b.Currency, Volume: b.Free, Result: "FAILED", Note: err.Error()})
		return
	}

	s.log.Info().Str("market", market).Str("volume", volume.String()).Str("order_id", result.UUID).Msg("liquidation sell submitted")
	metrics.LiquidationsTotal.WithLabelValues("submitted").Inc()
	report.Submitted = append(report.Submitted, result)
	s.record(&recorder.LiquidationEvent{Currency: b.Currency, Volume: b.Free, OrderID: result.UUID, Result: "SUBMITTED"})
}

func (s *Sweeper) record(evt *recorder.LiquidationEvent) {
	if err := s.Recorder.RecordLiquidation(evt); err != nil {
		s.log.Error().Err(err).Str("currency", evt.Currency).Msg("record liquidation")
	}
}
