package strategy

import (
	"errors"
	"testing"
	"time"

	"AutoTrader/internal/calculator"
	"AutoTrader/internal/model"
)

// buildSeries creates n daily bars whose closes follow priceAt and whose
// volume is flat except for the last bar.
func buildSeries(n int, priceAt func(i int) float64, lastVolume float64) []model.OHLCV {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := 0; i < n; i++ {
		p := priceAt(i)
		bars[i] = model.OHLCV{
			Time:   start.AddDate(0, 0, i),
			Open:   p,
			High:   p * 1.01,
			Low:    p * 0.99,
			Close:  p,
			Volume: 100,
		}
	}
	bars[n-1].Volume = lastVolume
	return bars
}

func rising(i int) float64  { return 1000 + float64(i)*10 }
func falling(i int) float64 { return 2000 - float64(i)*10 }

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestAnalyze_InsufficientSamples(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	for _, n := range []int{0, 1, 3, 19} {
		var series []model.OHLCV
		if n > 0 {
			series = buildSeries(n, rising, 1000)
		}
		if sig := e.Analyze(series); sig != model.SignalNone {
			t.Errorf("n=%d: expected no signal, got %s", n, sig)
		}
	}

	_, err := e.Evaluate(buildSeries(3, rising, 1000))
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestAnalyze_RisingWithVolumeSurgeBuys(t *testing.T) {
	for _, kind := range []calculator.MAKind{calculator.MAKindEMA, calculator.MAKindSMA} {
		cfg := DefaultConfig()
		cfg.MAKind = kind
		e := newEngine(t, cfg)
		if sig := e.Analyze(buildSeries(30, rising, 200)); sig != model.SignalBuy {
			t.Errorf("%s: expected BUY, got %s", kind, sig)
		}
	}
}

func TestAnalyze_FallingWithVolumeSurgeSells(t *testing.T) {
	for _, kind := range []calculator.MAKind{calculator.MAKindEMA, calculator.MAKindSMA} {
		cfg := DefaultConfig()
		cfg.MAKind = kind
		e := newEngine(t, cfg)
		if sig := e.Analyze(buildSeries(30, falling, 200)); sig != model.SignalSell {
			t.Errorf("%s: expected SELL, got %s", kind, sig)
		}
	}
}

func TestAnalyze_NoVolumeSurgeHolds(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	// 1.5x exactly is not a surge
	if sig := e.Analyze(buildSeries(30, rising, 150)); sig != model.SignalNone {
		t.Errorf("expected no signal without surge, got %s", sig)
	}
	if sig := e.Analyze(buildSeries(30, falling, 100)); sig != model.SignalNone {
		t.Errorf("expected no signal without surge, got %s", sig)
	}
}

func TestAnalyze_FlatMarketHolds(t *testing.T) {
	e := newEngine(t, DefaultConfig())
	flat := func(int) float64 { return 500 }
	if sig := e.Analyze(buildSeries(30, flat, 1000)); sig != model.SignalNone {
		t.Errorf("expected no signal for flat prices, got %s", sig)
	}
}

func TestAnalyze_OverboughtCapBlocksBuy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BuyRSIMax = 70
	e := newEngine(t, cfg)
	d, err := e.Evaluate(buildSeries(30, rising, 200))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if d.Signal != model.SignalNone {
		t.Errorf("expected no signal with RSI=%.1f above cap, got %s", d.Indicators.RSI, d.Signal)
	}
	if len(d.Conditions) != 3 {
		t.Fatalf("expected 3 conditions, got %d", len(d.Conditions))
	}
	for _, c := range d.Conditions {
		if c.Name == "momentum" && c.Buy {
			t.Error("momentum condition should reject buy")
		}
	}
}

func TestEvaluate_BollingerFilter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BollingerK = 2
	e := newEngine(t, cfg)
	d, err := e.Evaluate(buildSeries(30, rising, 200))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(d.Conditions) != 4 {
		t.Fatalf("expected band condition to be added, got %d conditions", len(d.Conditions))
	}
	if d.Indicators.UpperBand <= d.Indicators.LowerBand {
		t.Errorf("upper band %.2f should exceed lower band %.2f", d.Indicators.UpperBand, d.Indicators.LowerBand)
	}
	// a linear series stays inside its 2-sigma band
	if d.Signal != model.SignalBuy {
		t.Errorf("expected BUY, got %s", d.Signal)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"short >= long", func(c *Config) { c.ShortWindow = 20 }},
		{"min samples too small", func(c *Config) { c.MinSamples = 10 }},
		{"bad ma kind", func(c *Config) { c.MAKind = "wma" }},
		{"zero multiplier", func(c *Config) { c.VolumeMultiplier = 0 }},
		{"negative band k", func(c *Config) { c.BollingerK = -1 }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}
