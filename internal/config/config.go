package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"AutoTrader/internal/calculator"
	"AutoTrader/internal/session"
	"AutoTrader/internal/strategy"
	"AutoTrader/internal/trader"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Exchange struct {
		BaseURL        string        `yaml:"base_url"`
		AccessKey      string        `yaml:"access_key"`
		SecretKey      string        `yaml:"secret_key"`
		QuoteCurrency  string        `yaml:"quote_currency"`
		FeeRate        float64       `yaml:"fee_rate"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"exchange"`
	Trading struct {
		TickInterval       time.Duration `yaml:"tick_interval"`
		MaxDuration        time.Duration `yaml:"max_duration"`
		InstrumentDelay    time.Duration `yaml:"instrument_delay"`
		AllocationFraction float64       `yaml:"allocation_fraction"`
		PriceOffset        float64       `yaml:"price_offset"`
		MinOrderValue      float64       `yaml:"min_order_value"`
		LiquidationDelay   time.Duration `yaml:"liquidation_delay"`
		LiquidationExclude []string      `yaml:"liquidation_exclude"`
		SkipWarning        bool          `yaml:"skip_warning"`
	} `yaml:"trading"`
	Signal struct {
		CandleCount      int     `yaml:"candle_count"`
		MinSamples       int     `yaml:"min_samples"`
		MAKind           string  `yaml:"ma_kind"`
		ShortWindow      int     `yaml:"short_window"`
		LongWindow       int     `yaml:"long_window"`
		RSIPeriod        int     `yaml:"rsi_period"`
		BuyRSIMin        float64 `yaml:"buy_rsi_min"`
		BuyRSIMax        float64 `yaml:"buy_rsi_max"`
		SellRSIMax       float64 `yaml:"sell_rsi_max"`
		SellRSIExtreme   float64 `yaml:"sell_rsi_extreme"`
		VolumeWindow     int     `yaml:"volume_window"`
		VolumeMultiplier float64 `yaml:"volume_multiplier"`
		BollingerPeriod  int     `yaml:"bollinger_period"`
		BollingerK       float64 `yaml:"bollinger_k"`
	} `yaml:"signal"`
	MarketData struct {
		Source string `yaml:"source"` // "exchange" or "sqlite"
	} `yaml:"market_data"`
	Schedule struct {
		SessionCron string `yaml:"session_cron"`
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Log struct {
		Level   string `yaml:"level"`
		Console bool   `yaml:"console"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load starts from defaults, reads the YAML file over them, then .env, then
// applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("UPBIT_ACCESS_KEY"); v != "" {
		c.Exchange.AccessKey = v
	}
	if v := os.Getenv("UPBIT_SECRET_KEY"); v != "" {
		c.Exchange.SecretKey = v
	}
	if v := os.Getenv("UPBIT_BASE_URL"); v != "" {
		c.Exchange.BaseURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ALLOCATION_FRACTION"); v != "" {
		var fraction float64
		if _, err := fmt.Sscanf(v, "%f", &fraction); err != nil {
			return fmt.Errorf("ALLOCATION_FRACTION: %w", err)
		}
		c.Trading.AllocationFraction = fraction
	}
	if v := os.Getenv("MAX_DURATION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MAX_DURATION: %w", err)
		}
		c.Trading.MaxDuration = d
	}
	return nil
}

// defaults returns the configuration used for every key the file and
// environment leave out. Explicit zero values in the file are kept.
func defaults() *Config {
	c := &Config{}
	c.Exchange.BaseURL = "https://api.upbit.com"
	c.Exchange.QuoteCurrency = "KRW"
	c.Exchange.FeeRate = 0.0005
	c.Exchange.RequestTimeout = 10 * time.Second

	c.Trading.TickInterval = 10 * time.Second
	c.Trading.MaxDuration = 4 * time.Hour
	c.Trading.InstrumentDelay = 150 * time.Millisecond
	c.Trading.PriceOffset = 0.001
	c.Trading.MinOrderValue = trader.DefaultMinOrderValue
	c.Trading.LiquidationDelay = trader.DefaultLiquidationDelay

	def := strategy.DefaultConfig()
	c.Signal.CandleCount = 200
	c.Signal.MinSamples = def.MinSamples
	c.Signal.MAKind = string(def.MAKind)
	c.Signal.ShortWindow = def.ShortWindow
	c.Signal.LongWindow = def.LongWindow
	c.Signal.RSIPeriod = def.RSIPeriod
	c.Signal.BuyRSIMin = def.BuyRSIMin
	c.Signal.BuyRSIMax = def.BuyRSIMax
	c.Signal.SellRSIMax = def.SellRSIMax
	c.Signal.SellRSIExtreme = def.SellRSIExtreme
	c.Signal.VolumeWindow = def.VolumeWindow
	c.Signal.VolumeMultiplier = def.VolumeMultiplier
	c.Signal.BollingerPeriod = def.BollingerPeriod
	c.Signal.BollingerK = def.BollingerK

	c.MarketData.Source = "exchange"
	// shortly after the 09:00 KST daily candle rollover
	c.Schedule.RefreshCron = "0 5 9 * * *"
	c.Database.SQLitePath = "data/autotrader.db"
	c.Log.Level = "info"
	c.Log.Console = true
	return c
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Exchange.AccessKey == "" || c.Exchange.SecretKey == "" {
		return errors.New("exchange access_key and secret_key are required")
	}
	if c.Trading.AllocationFraction <= 0 || c.Trading.AllocationFraction > 1 {
		return fmt.Errorf("trading.allocation_fraction must be in (0, 1], got %v", c.Trading.AllocationFraction)
	}
	if c.Exchange.FeeRate < 0 || c.Exchange.FeeRate >= 1 {
		return fmt.Errorf("exchange.fee_rate must be in [0, 1), got %v", c.Exchange.FeeRate)
	}
	if c.Trading.PriceOffset < 0 || c.Trading.PriceOffset >= 1 {
		return fmt.Errorf("trading.price_offset must be in [0, 1), got %v", c.Trading.PriceOffset)
	}
	if c.MarketData.Source != "exchange" && c.MarketData.Source != "sqlite" {
		return fmt.Errorf("market_data.source must be exchange or sqlite, got %q", c.MarketData.Source)
	}
	if c.Signal.CandleCount < c.Signal.MinSamples {
		return fmt.Errorf("signal.candle_count (%d) must cover signal.min_samples (%d)", c.Signal.CandleCount, c.Signal.MinSamples)
	}
	if err := c.StrategyConfig().Validate(); err != nil {
		return fmt.Errorf("signal: %w", err)
	}
	if err := c.SessionConfig().Validate(); err != nil {
		return fmt.Errorf("trading: %w", err)
	}
	return nil
}

// StrategyConfig maps the signal section onto the engine configuration.
func (c *Config) StrategyConfig() strategy.Config {
	s := c.Signal
	return strategy.Config{
		MinSamples:       s.MinSamples,
		MAKind:           calculator.MAKind(s.MAKind),
		ShortWindow:      s.ShortWindow,
		LongWindow:       s.LongWindow,
		RSIPeriod:        s.RSIPeriod,
		BuyRSIMin:        s.BuyRSIMin,
		BuyRSIMax:        s.BuyRSIMax,
		SellRSIMax:       s.SellRSIMax,
		SellRSIExtreme:   s.SellRSIExtreme,
		VolumeWindow:     s.VolumeWindow,
		VolumeMultiplier: s.VolumeMultiplier,
		BollingerPeriod:  s.BollingerPeriod,
		BollingerK:       s.BollingerK,
	}
}

// SessionConfig maps the trading section onto the session configuration.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		QuoteCurrency:   c.Exchange.QuoteCurrency,
		TickInterval:    c.Trading.TickInterval,
		MaxDuration:     c.Trading.MaxDuration,
		SeriesLength:    c.Signal.CandleCount,
		InstrumentDelay: c.Trading.InstrumentDelay,
		SkipWarning:     c.Trading.SkipWarning,
	}
}

// Sizer builds the order sizer from the trading section.
func (c *Config) Sizer() trader.Sizer {
	return trader.Sizer{
		AllocationFraction: c.Trading.AllocationFraction,
		PriceOffset:        c.Trading.PriceOffset,
		MinOrderValue:      c.Trading.MinOrderValue,
	}
}
