package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "autotrader_ticks_total", Help: "Completed trading ticks"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "autotrader_signals_total", Help: "Signals produced by the engine"},
		[]string{"side"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "autotrader_orders_total", Help: "Order attempts by outcome"},
		[]string{"side", "result"},
	)
	LiquidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "autotrader_liquidations_total", Help: "Liquidation sweep outcomes per holding"},
		[]string{"result"},
	)
	SessionRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "autotrader_session_running", Help: "1 while a trading session is running"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, SignalsTotal, OrdersTotal, LiquidationsTotal, SessionRunning)
}

// Serve exposes /metrics on addr in the background. A failed bind is logged.
func Serve(addr string, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	return srv
}
