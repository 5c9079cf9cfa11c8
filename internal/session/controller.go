// Package session runs bounded trading sessions: a cancellable tick loop
// over the quote market followed by exactly one liquidation sweep.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"AutoTrader/internal/collector"
	"AutoTrader/internal/credentials"
	"AutoTrader/internal/metrics"
	"AutoTrader/internal/model"
	"AutoTrader/internal/recorder"
	"AutoTrader/internal/strategy"
	"AutoTrader/internal/trader"
	"AutoTrader/internal/util"

	"github.com/rs/zerolog"
)

var (
	// ErrStopping is returned by Toggle while a stop or liquidation is in progress.
	ErrStopping = errors.New("session is stopping")
	// ErrActive is returned by Start when a session is already running or stopping.
	ErrActive = errors.New("session already active")
)

// InstrumentLister lists tradable instruments.
type InstrumentLister interface {
	ListInstruments(ctx context.Context) ([]model.Instrument, error)
}

// Analyzer evaluates a candle series into a signal with its indicator snapshot.
type Analyzer interface {
	Evaluate(series []model.OHLCV) (strategy.Decision, error)
}

// Executor acts on a signal for one instrument.
type Executor interface {
	Execute(ctx context.Context, inst model.Instrument, signal model.Signal) (trader.Outcome, error)
}

// Sweeper liquidates holdings at session end.
type Sweeper interface {
	LiquidateAll(ctx context.Context) (trader.Report, error)
}

// Observer receives every session transition.
type Observer interface {
	OnSessionEvent(evt model.SessionEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(evt model.SessionEvent)

func (f ObserverFunc) OnSessionEvent(evt model.SessionEvent) { f(evt) }

// Config controls session cadence and scope.
type Config struct {
	QuoteCurrency   string
	TickInterval    time.Duration
	MaxDuration     time.Duration
	SeriesLength    int           // candles requested per instrument
	InstrumentDelay time.Duration // pause between instruments within a tick
	SkipWarning     bool          // ignore markets under exchange investment warning
}

// Validate checks the configuration before a controller is built.
func (c Config) Validate() error {
	if c.QuoteCurrency == "" {
		return errors.New("quote currency is required")
	}
	if c.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}
	if c.MaxDuration <= 0 {
		return errors.New("max duration must be positive")
	}
	if c.SeriesLength <= 0 {
		return errors.New("series length must be positive")
	}
	if c.InstrumentDelay < 0 {
		return errors.New("instrument delay must not be negative")
	}
	return nil
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Instruments InstrumentLister
	Series      collector.Gateway
	Analyzer    Analyzer
	Executor    Executor
	Sweeper     Sweeper
	Credentials credentials.Provider // checked on every start; nil skips the check
	Recorder    recorder.Recorder    // nil records nothing
}

// Controller owns the Idle/Running/Stopping state machine.
// At most one tick loop exists at a time.
type Controller struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger
	now  func() time.Time

	state     atomic.Int32
	startedAt atomic.Pointer[time.Time]

	mu     sync.Mutex // serialises Toggle and guards cancel/done
	cancel context.CancelFunc
	done   chan struct{}

	obsMu     sync.RWMutex
	observers []Observer
}

// New creates an idle Controller.
func New(cfg Config, deps Deps, log zerolog.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("session config: %w", err)
	}
	if deps.Instruments == nil || deps.Series == nil || deps.Analyzer == nil || deps.Executor == nil || deps.Sweeper == nil {
		return nil, errors.New("session: missing dependency")
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	return &Controller{cfg: cfg, deps: deps, log: log, now: time.Now}, nil
}

// Subscribe registers o for all subsequent transitions.
func (c *Controller) Subscribe(o Observer) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, o)
}

// State returns a snapshot of the current state.
func (c *Controller) State() model.SessionState {
	return model.SessionState(c.state.Load())
}

// IsRunning reports whether the tick loop is active.
func (c *Controller) IsRunning() bool {
	return c.State() == model.SessionRunning
}

// StartedAt returns the start time of the current or last session.
func (c *Controller) StartedAt() time.Time {
	if t := c.startedAt.Load(); t != nil {
		return *t
	}
	return time.Time{}
}

// Toggle starts a session when Idle and stops it when Running.
// While Stopping it returns ErrStopping and changes nothing.
// ctx only scopes the start-up checks; the session outlives it.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case model.SessionIdle:
		return c.start(ctx)
	case model.SessionRunning:
		c.stop()
		return nil
	default:
		return ErrStopping
	}
}

// Start starts a session only when Idle; otherwise it returns ErrActive
// and leaves the running session alone.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != model.SessionIdle {
		return ErrActive
	}
	return c.start(ctx)
}

// Wait blocks until the current session, if any, has returned to Idle.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (c *Controller) start(ctx context.Context) error {
	if c.deps.Credentials != nil {
		if _, err := c.deps.Credentials.Credentials(); err != nil {
			c.log.Error().Err(err).Msg("session not started")
			return fmt.Errorf("start session: %w", err)
		}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	started := c.now()
	done := make(chan struct{})

	c.startedAt.Store(&started)
	c.cancel = cancel
	c.done = done
	c.state.Store(int32(model.SessionRunning))
	metrics.SessionRunning.Set(1)

	c.log.Info().
		Dur("max_duration", c.cfg.MaxDuration).
		Dur("tick_interval", c.cfg.TickInterval).
		Msg("session started")
	c.emit(model.EventStarted, "")

	go c.run(runCtx, started, done)
	return nil
}

func (c *Controller) stop() {
	if !c.state.CompareAndSwap(int32(model.SessionRunning), int32(model.SessionStopping)) {
		return
	}
	c.log.Info().Msg("session stop requested")
	c.emit(model.EventStopping, "manual stop")
	c.cancel()
}

func (c *Controller) run(ctx context.Context, started time.Time, done chan struct{}) {
	defer close(done)

	c.loop(ctx, started)

	reason := "manual stop"
	if c.state.CompareAndSwap(int32(model.SessionRunning), int32(model.SessionStopping)) {
		reason = "max duration reached"
		c.log.Info().Dur("elapsed", c.now().Sub(started)).Msg("session timed out")
		c.emit(model.EventTimedOut, reason)
	}

	if _, err := c.deps.Sweeper.LiquidateAll(context.WithoutCancel(ctx)); err != nil {
		c.log.Error().Err(err).Msg("liquidation failed")
	}

	c.state.Store(int32(model.SessionIdle))
	metrics.SessionRunning.Set(0)
	c.log.Info().Str("reason", reason).Msg("session stopped")
	c.emit(model.EventStopped, reason)
}

// loop runs ticks until ctx is cancelled or MaxDuration has elapsed.
func (c *Controller) loop(ctx context.Context, started time.Time) {
	for {
		if ctx.Err() != nil {
			return
		}
		if c.now().Sub(started) >= c.cfg.MaxDuration {
			return
		}

		c.tick(ctx)

		remaining := c.cfg.MaxDuration - c.now().Sub(started)
		if remaining <= 0 {
			return
		}
		if err := util.Sleep(ctx, min(c.cfg.TickInterval, remaining)); err != nil {
			return
		}
	}
}

// tick processes every quote-market instrument once, in listing order.
// A stop takes effect between instruments.
func (c *Controller) tick(ctx context.Context) {
	defer metrics.TicksTotal.Inc()

	instruments, err := c.deps.Instruments.ListInstruments(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("instrument list failed")
		return
	}

	prefix := c.cfg.QuoteCurrency + "-"
	processed := 0
	for _, inst := range instruments {
		if !strings.HasPrefix(inst.Market, prefix) {
			continue
		}
		if c.cfg.SkipWarning && inst.Warning {
			continue
		}
		if ctx.Err() != nil {
			c.log.Info().Int("processed", processed).Msg("tick interrupted by stop")
			return
		}
		if processed > 0 && c.cfg.InstrumentDelay > 0 {
			if err := util.Sleep(ctx, c.cfg.InstrumentDelay); err != nil {
				return
			}
		}
		// the current instrument runs to completion even if a stop arrives
		c.process(context.WithoutCancel(ctx), inst)
		processed++
	}
	c.log.Debug().Int("processed", processed).Msg("tick complete")
}

func (c *Controller) process(ctx context.Context, inst model.Instrument) {
	log := c.log.With().Str("market", inst.Market).Logger()

	series, err := c.deps.Series.RecentSeries(ctx, inst.Market, c.cfg.SeriesLength)
	if err != nil {
		log.Warn().Err(err).Msg("series fetch failed")
		return
	}

	decision, err := c.deps.Analyzer.Evaluate(series)
	if errors.Is(err, strategy.ErrInsufficientData) {
		log.Debug().Int("samples", len(series)).Msg("not enough samples")
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("signal evaluation failed")
		return
	}

	signal := decision.Signal
	ind := decision.Indicators
	if signal == model.SignalNone {
		log.Debug().Float64("close", ind.Close).Float64("rsi", ind.RSI).Msg("no signal")
		return
	}

	volumeRatio := 0.0
	if ind.AvgVolume > 0 {
		volumeRatio = ind.Volume / ind.AvgVolume
	}
	notes := make([]string, 0, len(decision.Conditions))
	for _, cond := range decision.Conditions {
		notes = append(notes, cond.Name+": "+cond.Commentary)
	}
	metrics.SignalsTotal.WithLabelValues(signal.String()).Inc()
	log.Info().
		Str("signal", signal.String()).
		Float64("close", ind.Close).
		Float64("short_ma", ind.ShortMA).
		Float64("long_ma", ind.LongMA).
		Float64("rsi", ind.RSI).
		Float64("volume_ratio", volumeRatio).
		Strs("conditions", notes).
		Msg("signal")

	if _, err := c.deps.Executor.Execute(ctx, inst, signal); err != nil {
		log.Warn().Err(err).Msg("execution failed")
	}
}

func (c *Controller) emit(kind model.SessionEventKind, reason string) {
	evt := model.SessionEvent{
		Kind:      kind,
		State:     c.State(),
		StartedAt: c.StartedAt(),
		At:        c.now(),
		Reason:    reason,
	}
	if err := c.deps.Recorder.RecordSession(&evt); err != nil {
		c.log.Error().Err(err).Msg("record session")
	}

	c.obsMu.RLock()
	observers := append([]Observer(nil), c.observers...)
	c.obsMu.RUnlock()
	for _, o := range observers {
		o.OnSessionEvent(evt)
	}
}
