package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"AutoTrader/internal/model"
	"AutoTrader/internal/notifier"
	"AutoTrader/internal/session"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Session is the part of the session controller driven by cron and chat commands.
type Session interface {
	Start(ctx context.Context) error
	Toggle(ctx context.Context) error
	State() model.SessionState
	StartedAt() time.Time
}

// Account lists tradable instruments and balances and looks up orders.
type Account interface {
	ListInstruments(ctx context.Context) ([]model.Instrument, error)
	Balances(ctx context.Context) ([]model.Balance, error)
	Order(ctx context.Context, id string) (model.OrderResult, error)
}

// Refresher brings stored candles up to date.
type Refresher interface {
	Refresh(ctx context.Context, markets []string, count int) error
}

// Sender delivers chat messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Options configures the scheduled jobs.
type Options struct {
	QuoteCurrency string
	MaxDuration   time.Duration
	CandleCount   int
}

// Scheduler manages all cron tasks and chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Session   Session
	Account   Account
	Refresher Refresher // nil when candles are not stored locally
	Notifier  Sender
	Opts      Options
	Ctx       context.Context
	log       zerolog.Logger
	now       func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, sess Session, acct Account, ref Refresher, tn Sender, opts Options, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds(), cron.WithLocation(model.KST())),
		Session:   sess,
		Account:   acct,
		Refresher: ref,
		Notifier:  tn,
		Opts:      opts,
		Ctx:       ctx,
		log:       log,
		now:       time.Now,
	}
}

// RegisterAll registers the session start and candle refresh tasks. Empty specs are skipped.
func (s *Scheduler) RegisterAll(sessionCron, refreshCron string) error {
	if sessionCron != "" {
		if _, err := s.Cron.AddFunc(sessionCron, s.sessionTask); err != nil {
			return fmt.Errorf("register session task: %w", err)
		}
	}
	if refreshCron != "" && s.Refresher != nil {
		if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
			return fmt.Errorf("register refresh task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// sessionTask starts a session only when none is active.
func (s *Scheduler) sessionTask() {
	err := s.Session.Start(s.Ctx)
	if errors.Is(err, session.ErrActive) {
		s.log.Info().Str("state", s.Session.State().String()).Msg("scheduled start skipped")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled session start")
		s.trySend(fmt.Sprintf("❌ Scheduled session start failed: %v", err))
	}
}

// RefreshNow runs the candle refresh immediately.
func (s *Scheduler) RefreshNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	if s.Refresher == nil {
		return
	}
	instruments, err := s.Account.ListInstruments(s.Ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("refresh: instrument list")
		return
	}
	prefix := s.Opts.QuoteCurrency + "-"
	var markets []string
	for _, inst := range instruments {
		if strings.HasPrefix(inst.Market, prefix) {
			markets = append(markets, inst.Market)
		}
	}
	started := s.now()
	if err := s.Refresher.Refresh(s.Ctx, markets, s.Opts.CandleCount); err != nil {
		s.log.Warn().Err(err).Msg("candle refresh incomplete")
		return
	}
	s.log.Info().Int("markets", len(markets)).Dur("took", s.now().Sub(started)).Msg("candles refreshed")
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	var name string
	if len(fields) > 0 {
		name = strings.ToLower(fields[0])
	}
	switch name {
	case "/toggle":
		return s.toggle()
	case "/status":
		return notifier.FormatStatus(s.Session.State(), s.Session.StartedAt(), s.Opts.MaxDuration, s.now())
	case "/balances":
		balances, err := s.Account.Balances(s.Ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("balances command")
			return fmt.Sprintf("❌ Balance lookup failed: %v", err)
		}
		return notifier.FormatBalances(balances, s.Opts.QuoteCurrency)
	case "/order":
		if len(fields) < 2 {
			return "Usage: /order <uuid>"
		}
		result, err := s.Account.Order(s.Ctx, fields[1])
		if err != nil {
			s.log.Warn().Err(err).Str("order_id", fields[1]).Msg("order command")
			return fmt.Sprintf("❌ Order lookup failed: %v", err)
		}
		return notifier.FormatOrder(result)
	default:
		return notifier.FormatHelp()
	}
}

// toggle replies only on failure; transitions are announced by the session observer.
func (s *Scheduler) toggle() string {
	err := s.Session.Toggle(s.Ctx)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrStopping):
		return "⏳ Session is stopping, try again once it is idle"
	default:
		return fmt.Sprintf("❌ Toggle failed: %v", err)
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
