package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envVars = []string{
	"UPBIT_ACCESS_KEY", "UPBIT_SECRET_KEY", "UPBIT_BASE_URL",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "SQLITE_PATH", "HTTPS_PROXY",
	"ALLOCATION_FRACTION", "MAX_DURATION", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_YAMLAndDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
exchange:
  access_key: ak
  secret_key: sk
trading:
  allocation_fraction: 0.25
  tick_interval: 5s
  liquidation_exclude: [VTHO]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Trading.TickInterval != 5*time.Second {
		t.Errorf("expected tick 5s, got %v", cfg.Trading.TickInterval)
	}
	if len(cfg.Trading.LiquidationExclude) != 1 || cfg.Trading.LiquidationExclude[0] != "VTHO" {
		t.Errorf("unexpected exclude list %v", cfg.Trading.LiquidationExclude)
	}
	if cfg.Exchange.QuoteCurrency != "KRW" {
		t.Errorf("expected KRW default, got %q", cfg.Exchange.QuoteCurrency)
	}
	if cfg.Signal.ShortWindow != 9 || cfg.Signal.LongWindow != 20 || cfg.Signal.RSIPeriod != 14 {
		t.Errorf("unexpected signal defaults %+v", cfg.Signal)
	}
	if cfg.Trading.MaxDuration != 4*time.Hour {
		t.Errorf("expected 4h default, got %v", cfg.Trading.MaxDuration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPBIT_ACCESS_KEY", "env-ak")
	t.Setenv("UPBIT_SECRET_KEY", "env-sk")
	t.Setenv("ALLOCATION_FRACTION", "0.5")
	t.Setenv("MAX_DURATION", "90m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "exchange:\n  access_key: file-ak\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange.AccessKey != "env-ak" || cfg.Exchange.SecretKey != "env-sk" {
		t.Errorf("env credentials not applied: %q %q", cfg.Exchange.AccessKey, cfg.Exchange.SecretKey)
	}
	if cfg.Trading.AllocationFraction != 0.5 {
		t.Errorf("expected fraction 0.5, got %v", cfg.Trading.AllocationFraction)
	}
	if cfg.Trading.MaxDuration != 90*time.Minute {
		t.Errorf("expected 90m, got %v", cfg.Trading.MaxDuration)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug, got %q", cfg.Log.Level)
	}
}

func TestLoad_BadEnvValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_DURATION", "forever")
	if _, err := Load(writeConfig(t, "")); err == nil {
		t.Error("expected error for unparsable MAX_DURATION")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange.BaseURL != "https://api.upbit.com" {
		t.Errorf("unexpected base url %q", cfg.Exchange.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"missing credentials", func(c *Config) { c.Exchange.SecretKey = "" }, false},
		{"fraction unset", func(c *Config) { c.Trading.AllocationFraction = 0 }, false},
		{"fraction above one", func(c *Config) { c.Trading.AllocationFraction = 1.2 }, false},
		{"fraction of one", func(c *Config) { c.Trading.AllocationFraction = 1 }, true},
		{"unknown source", func(c *Config) { c.MarketData.Source = "csv" }, false},
		{"too few candles", func(c *Config) { c.Signal.CandleCount = 10 }, false},
		{"bad windows", func(c *Config) { c.Signal.ShortWindow = 30 }, false},
		{"unknown ma kind", func(c *Config) { c.Signal.MAKind = "wma" }, false},
		{"negative fee", func(c *Config) { c.Exchange.FeeRate = -0.1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, "exchange:\n  access_key: a\n  secret_key: s\ntrading:\n  allocation_fraction: 0.3\n"))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDerivedConfigs(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, "trading:\n  allocation_fraction: 0.4\n  price_offset: 0.002\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sizer := cfg.Sizer()
	if sizer.AllocationFraction != 0.4 || sizer.PriceOffset != 0.002 || sizer.MinOrderValue != 5000 {
		t.Errorf("unexpected sizer %+v", sizer)
	}
	sc := cfg.SessionConfig()
	if sc.QuoteCurrency != "KRW" || sc.SeriesLength != 200 {
		t.Errorf("unexpected session config %+v", sc)
	}
	if sc.InstrumentDelay != 150*time.Millisecond {
		t.Errorf("unexpected instrument delay %v", sc.InstrumentDelay)
	}
}

func TestLoad_ExplicitZeroKept(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeConfig(t, `
exchange:
  access_key: a
  secret_key: s
  fee_rate: 0
trading:
  allocation_fraction: 0.2
  price_offset: 0
  instrument_delay: 0s
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Exchange.FeeRate != 0 {
		t.Errorf("expected explicit fee_rate 0 to be kept, got %v", cfg.Exchange.FeeRate)
	}
	if cfg.Trading.PriceOffset != 0 {
		t.Errorf("expected explicit price_offset 0 to be kept, got %v", cfg.Trading.PriceOffset)
	}
	if cfg.Trading.InstrumentDelay != 0 {
		t.Errorf("expected explicit instrument_delay 0 to be kept, got %v", cfg.Trading.InstrumentDelay)
	}
	if cfg.Trading.MinOrderValue != 5000 {
		t.Errorf("expected default min_order_value, got %v", cfg.Trading.MinOrderValue)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
