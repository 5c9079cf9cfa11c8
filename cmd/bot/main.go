package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"AutoTrader/internal/collector"
	"AutoTrader/internal/config"
	"AutoTrader/internal/credentials"
	"AutoTrader/internal/exchange"
	"AutoTrader/internal/metrics"
	"AutoTrader/internal/notifier"
	"AutoTrader/internal/recorder"
	"AutoTrader/internal/scheduler"
	"AutoTrader/internal/session"
	"AutoTrader/internal/strategy"
	"AutoTrader/internal/trader"
	"AutoTrader/internal/util"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLog := util.NewLogger("info", true)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.Log.Level, cfg.Log.Console)
	log.Info().Str("config", cfgPath).Msg("AutoTrader starting...")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	// Exchange client
	creds := credentials.Chain{
		credentials.DefaultEnv(),
		credentials.Static{AccessKey: cfg.Exchange.AccessKey, SecretKey: cfg.Exchange.SecretKey},
	}
	client := exchange.NewClient(cfg.Exchange.BaseURL, exchange.NewJWTAuthorizer(creds), cfg.Exchange.RequestTimeout, cfg.Proxy)

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	var store *recorder.SQLiteRecorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec, store = sr, sr
			defer sr.Close()
		}
	}

	// Market data
	var series collector.Gateway = collector.NewExchangeCollector(client)
	var refresher scheduler.Refresher
	if cfg.MarketData.Source == "sqlite" {
		if store == nil {
			log.Fatal().Msg("market_data.source=sqlite requires a working database")
		}
		sc := collector.NewStoreCollector(client, store, log)
		series, refresher = sc, sc
	}
	log.Info().Str("source", series.Name()).Msg("market data")

	engine, err := strategy.NewEngine(cfg.StrategyConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("init signal engine")
	}
	executor := trader.NewExecutor(client, cfg.Sizer(), cfg.Exchange.QuoteCurrency, cfg.Exchange.FeeRate, rec, log)
	sweeper := trader.NewSweeper(client, cfg.Exchange.QuoteCurrency, cfg.Trading.LiquidationExclude, cfg.Trading.LiquidationDelay, rec, log)

	ctrl, err := session.New(cfg.SessionConfig(), session.Deps{
		Instruments: client,
		Series:      series,
		Analyzer:    engine,
		Executor:    executor,
		Sweeper:     sweeper,
		Credentials: creds,
		Recorder:    rec,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init session controller")
	}

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
	ctrl.Subscribe(tn)

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr, log)
		defer srv.Close()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, ctrl, client, refresher, tn, scheduler.Options{
		QuoteCurrency: cfg.Exchange.QuoteCurrency,
		MaxDuration:   cfg.Trading.MaxDuration,
		CandleCount:   cfg.Signal.CandleCount,
	}, log)
	if err := sched.RegisterAll(cfg.Schedule.SessionCron, cfg.Schedule.RefreshCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, starting session now")
		if err := ctrl.Toggle(ctx); err != nil {
			log.Error().Err(err).Msg("start session")
		}
	}

	log.Info().Msg("AutoTrader is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	if ctrl.IsRunning() {
		if err := ctrl.Toggle(ctx); err != nil {
			log.Warn().Err(err).Msg("stop session")
		}
	}
	ctrl.Wait()
	cancel()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer flushCancel()
	if err := tn.Close(flushCtx); err != nil {
		log.Warn().Err(err).Msg("pending notifications not delivered")
	}
	log.Info().Msg("AutoTrader stopped")
}
