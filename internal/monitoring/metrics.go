package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Signal and trade metrics
	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_agent_signals_total",
			Help: "Total number of entry signals generated",
		},
		[]string{"strategy", "side"},
	)

	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_agent_trades_total",
			Help: "Total number of completed trades",
		},
		[]string{"strategy", "outcome"},
	)

	tradePnL = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trading_agent_trade_pnl",
			Help:    "Distribution of realized P&L per trade in dollars",
			Buckets: []float64{-2000, -1000, -500, -100, 0, 100, 500, 1000, 2000},
		},
		[]string{"strategy"},
	)

	// Validation funnel metrics
	validationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_agent_validation_failures_total",
			Help: "Signals rejected by the trade validator, by failure code",
		},
		[]string{"code"},
	)

	// Risk metrics
	circuitBreakerActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trading_agent_circuit_breaker_active",
			Help: "1 when the circuit breaker has halted trading",
		},
	)

	dailyPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trading_agent_daily_pnl",
			Help: "Realized P&L for the current trading day in dollars",
		},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trading_agent_open_positions",
			Help: "Number of currently open positions",
		},
	)

	strategyActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "trading_agent_strategy_active",
			Help: "1 when the strategy is enabled",
		},
		[]string{"strategy"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_agent_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(signalsTotal)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradePnL)
	prometheus.MustRegister(validationFailures)
	prometheus.MustRegister(circuitBreakerActive)
	prometheus.MustRegister(dailyPnL)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(strategyActive)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// RecordSignal records a generated entry signal
func RecordSignal(strategy, side string) {
	signalsTotal.WithLabelValues(strategy, side).Inc()
}

// RecordTrade records a completed trade and its realized P&L
func RecordTrade(strategy string, pnl float64) {
	outcome := "win"
	if pnl < 0 {
		outcome = "loss"
	}
	tradesTotal.WithLabelValues(strategy, outcome).Inc()
	tradePnL.WithLabelValues(strategy).Observe(pnl)
}

// RecordValidationFailure records a signal rejection by failure code
func RecordValidationFailure(code string) {
	validationFailures.WithLabelValues(code).Inc()
}

// SetCircuitBreakerActive updates the halt gauge
func SetCircuitBreakerActive(active bool) {
	if active {
		circuitBreakerActive.Set(1)
		return
	}
	circuitBreakerActive.Set(0)
}

// SetDailyPnL updates the daily P&L gauge
func SetDailyPnL(pnl float64) {
	dailyPnL.Set(pnl)
}

// SetOpenPositions updates the open position count gauge
func SetOpenPositions(n int) {
	openPositions.Set(float64(n))
}

// SetStrategyActive updates a strategy's lifecycle gauge
func SetStrategyActive(strategy string, active bool) {
	if active {
		strategyActive.WithLabelValues(strategy).Set(1)
		return
	}
	strategyActive.WithLabelValues(strategy).Set(0)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
