package strategy

import (
	"errors"
	"fmt"

	"AutoTrader/internal/calculator"
	"AutoTrader/internal/model"
)

// Config holds the indicator windows and thresholds used by the engine.
type Config struct {
	MinSamples       int
	MAKind           calculator.MAKind
	ShortWindow      int
	LongWindow       int
	RSIPeriod        int
	BuyRSIMin        float64 // buy requires BuyRSIMin < RSI <= BuyRSIMax
	BuyRSIMax        float64
	SellRSIMax       float64 // sell requires RSI <= SellRSIMax or RSI >= SellRSIExtreme
	SellRSIExtreme   float64
	VolumeWindow     int
	VolumeMultiplier float64
	BollingerPeriod  int
	BollingerK       float64 // 0 disables the band filter
}

// DefaultConfig returns the EMA 9/20 + RSI 14 + volume surge configuration.
func DefaultConfig() Config {
	return Config{
		MinSamples:       20,
		MAKind:           calculator.MAKindEMA,
		ShortWindow:      9,
		LongWindow:       20,
		RSIPeriod:        14,
		BuyRSIMin:        50,
		BuyRSIMax:        100,
		SellRSIMax:       50,
		SellRSIExtreme:   80,
		VolumeWindow:     5,
		VolumeMultiplier: 1.5,
		BollingerPeriod:  20,
		BollingerK:       0,
	}
}

// Validate checks the configuration is internally consistent.
func (c Config) Validate() error {
	if c.ShortWindow <= 0 || c.LongWindow <= 0 {
		return errors.New("moving average windows must be positive")
	}
	if c.ShortWindow >= c.LongWindow {
		return errors.New("short window must be smaller than long window")
	}
	if c.RSIPeriod <= 0 {
		return errors.New("rsi period must be positive")
	}
	if c.VolumeWindow <= 0 {
		return errors.New("volume window must be positive")
	}
	if c.VolumeMultiplier <= 0 {
		return errors.New("volume multiplier must be positive")
	}
	if c.MAKind != calculator.MAKindEMA && c.MAKind != calculator.MAKindSMA {
		return fmt.Errorf("unknown ma kind %q", c.MAKind)
	}
	if c.BollingerK < 0 {
		return errors.New("bollinger k must be >= 0")
	}
	if c.BollingerK > 0 && c.BollingerPeriod <= 1 {
		return errors.New("bollinger period must be > 1")
	}
	if c.MinSamples < c.required() {
		return fmt.Errorf("min samples must be at least %d for the configured windows", c.required())
	}
	return nil
}

// required is the smallest series length every indicator can be computed on.
func (c Config) required() int {
	n := c.LongWindow
	if c.RSIPeriod+1 > n {
		n = c.RSIPeriod + 1
	}
	if c.VolumeWindow+1 > n {
		n = c.VolumeWindow + 1
	}
	if c.BollingerK > 0 && c.BollingerPeriod > n {
		n = c.BollingerPeriod
	}
	return n
}

// ErrInsufficientData is returned by Evaluate when the series is shorter than MinSamples.
var ErrInsufficientData = errors.New("insufficient samples")

// Decision is the full result of evaluating one series.
type Decision struct {
	Signal     model.Signal
	Indicators model.Indicators
	Conditions []model.Condition
}

// Engine derives trade signals from candle series. It holds no state between calls.
type Engine struct {
	cfg Config
}

// NewEngine validates cfg and builds an Engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("signal config: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// Analyze returns the signal for series, or SignalNone when there is not enough data
// or no rule matches.
func (e *Engine) Analyze(series []model.OHLCV) model.Signal {
	d, err := e.Evaluate(series)
	if err != nil {
		return model.SignalNone
	}
	return d.Signal
}

// Evaluate computes all indicators and conditions for series (oldest first).
func (e *Engine) Evaluate(series []model.OHLCV) (Decision, error) {
	if len(series) < e.cfg.MinSamples || len(series) < e.cfg.required() {
		return Decision{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(series), e.cfg.MinSamples)
	}

	ind, err := e.indicators(series)
	if err != nil {
		return Decision{}, err
	}

	conditions := []model.Condition{
		trendCondition(ind),
		momentumCondition(ind, e.cfg),
		volumeCondition(ind, e.cfg),
	}
	if e.cfg.BollingerK > 0 {
		conditions = append(conditions, bandCondition(ind))
	}

	buy, sell := true, true
	for _, c := range conditions {
		buy = buy && c.Buy
		sell = sell && c.Sell
	}

	d := Decision{Indicators: ind, Conditions: conditions}
	switch {
	case buy:
		d.Signal = model.SignalBuy
	case sell:
		d.Signal = model.SignalSell
	}
	return d, nil
}

func (e *Engine) indicators(series []model.OHLCV) (model.Indicators, error) {
	closes := model.Closes(series)
	volumes := model.Volumes(series)

	ind := model.Indicators{
		Close:  closes[len(closes)-1],
		Volume: volumes[len(volumes)-1],
	}
	var err error
	if ind.ShortMA, err = calculator.CalculateMA(e.cfg.MAKind, closes, e.cfg.ShortWindow); err != nil {
		return ind, fmt.Errorf("short ma: %w", err)
	}
	if ind.LongMA, err = calculator.CalculateMA(e.cfg.MAKind, closes, e.cfg.LongWindow); err != nil {
		return ind, fmt.Errorf("long ma: %w", err)
	}
	if ind.RSI, err = calculator.CalculateRSI(closes, e.cfg.RSIPeriod); err != nil {
		return ind, fmt.Errorf("rsi: %w", err)
	}
	if ind.AvgVolume, err = calculator.AverageVolume(volumes, e.cfg.VolumeWindow); err != nil {
		return ind, fmt.Errorf("volume average: %w", err)
	}
	if e.cfg.BollingerK > 0 {
		if _, ind.UpperBand, ind.LowerBand, err = calculator.CalculateBollinger(closes, e.cfg.BollingerPeriod, e.cfg.BollingerK); err != nil {
			return ind, fmt.Errorf("bollinger: %w", err)
		}
	}
	return ind, nil
}
