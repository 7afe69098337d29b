package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Trigger reasons recorded by the circuit breaker. These are stable codes:
// the daily reset only clears daily-scoped reasons, so renaming one changes
// halt-recovery semantics.
const (
	ReasonDailyLoss       = "daily_loss"
	ReasonWeeklyLoss      = "weekly_loss"
	ReasonMonthlyDrawdown = "monthly_drawdown"
	ReasonMaxTrades       = "max_trades"
)

// CircuitBreakerConfig holds the loss limits, expressed as percentages of
// the account capital.
type CircuitBreakerConfig struct {
	Capital               decimal.Decimal
	MaxDailyLossPct       float64
	MaxWeeklyLossPct      float64
	MaxMonthlyDrawdownPct float64
	MaxTradesPerDay       int
}

// BreakerState is a snapshot of the circuit breaker. Invariant: Triggered
// is true exactly when TriggerReason is non-empty.
type BreakerState struct {
	Triggered     bool
	TriggerReason string
	TriggeredAt   time.Time
	DailyPnL      decimal.Decimal
	WeeklyPnL     decimal.Decimal
	MonthlyPnL    decimal.Decimal
	TradesToday   int
}

// DailyStats is the compact daily view used by reporting.
type DailyStats struct {
	DailyPnL      decimal.Decimal
	TradesToday   int
	MaxTrades     int
	Triggered     bool
	TriggerReason string
}

// CircuitBreaker halts trading when rolling loss limits are exceeded. It
// tracks daily, weekly, and monthly P&L independently, plus a per-strategy
// consecutive-loss counter. It is the one core object mutated from both the
// evaluation loop and trade-completion callbacks, so every entry point
// takes the mutex.
type CircuitBreaker struct {
	cfg       CircuitBreakerConfig
	log       *zap.Logger
	loc       *time.Location
	onTrigger func(reason string)
	now       func() time.Time

	mu           sync.Mutex
	state        BreakerState
	lastResetDay time.Time
	weekStart    time.Time
	monthStart   time.Time
	consecLosses map[string]int
}

// NewCircuitBreaker creates a circuit breaker. Invalid limits fail here,
// never at record time.
func NewCircuitBreaker(cfg CircuitBreakerConfig, loc *time.Location, log *zap.Logger) (*CircuitBreaker, error) {
	if cfg.Capital.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("circuit breaker capital must be positive, got %s", cfg.Capital)
	}
	for name, pct := range map[string]float64{
		"daily loss":       cfg.MaxDailyLossPct,
		"weekly loss":      cfg.MaxWeeklyLossPct,
		"monthly drawdown": cfg.MaxMonthlyDrawdownPct,
	} {
		if pct <= 0 || pct > 100 {
			return nil, fmt.Errorf("%s limit must be in (0, 100], got %.2f", name, pct)
		}
	}
	if cfg.MaxTradesPerDay < 1 {
		return nil, fmt.Errorf("max trades per day must be at least 1, got %d", cfg.MaxTradesPerDay)
	}
	if loc == nil {
		return nil, fmt.Errorf("circuit breaker requires an exchange timezone")
	}

	cb := &CircuitBreaker{
		cfg:          cfg,
		log:          log,
		loc:          loc,
		consecLosses: make(map[string]int),
	}
	cb.now = func() time.Time { return time.Now().In(loc) }

	log.Info("circuit breaker initialized",
		zap.Float64("daily_limit_pct", cfg.MaxDailyLossPct),
		zap.Float64("weekly_limit_pct", cfg.MaxWeeklyLossPct),
		zap.Float64("monthly_limit_pct", cfg.MaxMonthlyDrawdownPct),
		zap.Int("max_trades_per_day", cfg.MaxTradesPerDay))

	return cb, nil
}

// SetTriggerCallback registers a callback fired synchronously with the
// trigger detail whenever the breaker trips.
func (cb *CircuitBreaker) SetTriggerCallback(fn func(reason string)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onTrigger = fn
}

// limitFor converts a percentage limit into a dollar amount.
func (cb *CircuitBreaker) limitFor(pct float64) decimal.Decimal {
	return cb.cfg.Capital.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100))
}

// RecordTrade applies a completed trade's P&L to all three period
// accumulators, updates the strategy's consecutive-loss counter, and
// evaluates limits in priority order: daily, weekly, monthly, trade count.
func (cb *CircuitBreaker) RecordTrade(pnl decimal.Decimal, strategyName string) {
	cb.mu.Lock()

	cb.applyPeriodResets()

	cb.state.DailyPnL = cb.state.DailyPnL.Add(pnl)
	cb.state.WeeklyPnL = cb.state.WeeklyPnL.Add(pnl)
	cb.state.MonthlyPnL = cb.state.MonthlyPnL.Add(pnl)
	cb.state.TradesToday++

	if pnl.IsNegative() {
		cb.consecLosses[strategyName]++
	} else {
		cb.consecLosses[strategyName] = 0
	}

	cb.log.Debug("trade recorded",
		zap.String("strategy", strategyName),
		zap.String("pnl", pnl.StringFixed(2)),
		zap.String("daily_pnl", cb.state.DailyPnL.StringFixed(2)),
		zap.Int("trades_today", cb.state.TradesToday))

	detail := cb.checkLimits()
	onTrigger := cb.onTrigger
	cb.mu.Unlock()

	if detail != "" && onTrigger != nil {
		onTrigger(detail)
	}
}

// checkLimits evaluates limits in fixed priority order and trips the
// breaker on the first breach. Returns the trigger detail, or empty if
// nothing tripped. Caller holds the mutex.
func (cb *CircuitBreaker) checkLimits() string {
	if cb.state.Triggered {
		return ""
	}

	dailyLimit := cb.limitFor(cb.cfg.MaxDailyLossPct)
	if cb.state.DailyPnL.LessThanOrEqual(dailyLimit.Neg()) {
		return cb.trigger(ReasonDailyLoss, fmt.Sprintf(
			"Daily loss limit hit: $%s (limit: $%s)",
			cb.state.DailyPnL.Abs().StringFixed(2), dailyLimit.StringFixed(2)))
	}

	weeklyLimit := cb.limitFor(cb.cfg.MaxWeeklyLossPct)
	if cb.state.WeeklyPnL.LessThanOrEqual(weeklyLimit.Neg()) {
		return cb.trigger(ReasonWeeklyLoss, fmt.Sprintf(
			"Weekly loss limit hit: $%s (limit: $%s)",
			cb.state.WeeklyPnL.Abs().StringFixed(2), weeklyLimit.StringFixed(2)))
	}

	monthlyLimit := cb.limitFor(cb.cfg.MaxMonthlyDrawdownPct)
	if cb.state.MonthlyPnL.LessThanOrEqual(monthlyLimit.Neg()) {
		return cb.trigger(ReasonMonthlyDrawdown, fmt.Sprintf(
			"Monthly drawdown limit hit: $%s (limit: $%s). Requires human review",
			cb.state.MonthlyPnL.Abs().StringFixed(2), monthlyLimit.StringFixed(2)))
	}

	if cb.state.TradesToday >= cb.cfg.MaxTradesPerDay {
		return cb.trigger(ReasonMaxTrades, fmt.Sprintf(
			"Max trades per day reached: %d", cb.state.TradesToday))
	}

	return ""
}

// trigger trips the breaker with a stable reason code. Caller holds the
// mutex. Returns the detail for the on-trigger callback.
func (cb *CircuitBreaker) trigger(reason, detail string) string {
	cb.state.Triggered = true
	cb.state.TriggerReason = reason
	cb.state.TriggeredAt = cb.now()

	cb.log.Warn("CIRCUIT BREAKER TRIGGERED",
		zap.String("reason", reason),
		zap.String("detail", detail))

	return detail
}

// CanTrade reports whether trading is currently allowed. Pending period
// resets are applied first so the answer never reflects a stale period.
func (cb *CircuitBreaker) CanTrade() (bool, string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.applyPeriodResets()

	if cb.state.Triggered {
		return false, fmt.Sprintf("Circuit breaker active: %s", cb.state.TriggerReason)
	}
	if cb.state.TradesToday >= cb.cfg.MaxTradesPerDay {
		return false, fmt.Sprintf("Max trades per day (%d) reached", cb.cfg.MaxTradesPerDay)
	}
	return true, "Trading allowed"
}

// CheckStrategyLosses reports whether a strategy has reached the
// consecutive-loss threshold and should be disabled by the orchestrator.
// Reporting only: this never disables anything itself.
func (cb *CircuitBreaker) CheckStrategyLosses(strategyName string, maxConsecutive int) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	losses := cb.consecLosses[strategyName]
	if losses >= maxConsecutive {
		cb.log.Warn("strategy hit consecutive loss limit",
			zap.String("strategy", strategyName),
			zap.Int("losses", losses))
		return true
	}
	return false
}

// ResetStrategyLosses clears the consecutive-loss counter for a strategy,
// typically after a manual re-enable.
func (cb *CircuitBreaker) ResetStrategyLosses(strategyName string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecLosses[strategyName] = 0
}

// ManualReset clears all breaker state unconditionally. This bypasses the
// period-scoped recovery rules, so use it only with human sign-off.
func (cb *CircuitBreaker) ManualReset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.log.Warn("circuit breaker manually reset")
	cb.state = BreakerState{}
	cb.consecLosses = make(map[string]int)
}

// GetState returns a snapshot of the breaker state, applying any pending
// period resets first.
func (cb *CircuitBreaker) GetState() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.applyPeriodResets()
	return cb.state
}

// GetDailyStats returns the daily view used by reporting.
func (cb *CircuitBreaker) GetDailyStats() DailyStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.applyPeriodResets()
	return DailyStats{
		DailyPnL:      cb.state.DailyPnL,
		TradesToday:   cb.state.TradesToday,
		MaxTrades:     cb.cfg.MaxTradesPerDay,
		Triggered:     cb.state.Triggered,
		TriggerReason: cb.state.TriggerReason,
	}
}

// applyPeriodResets rolls each accumulator forward independently when its
// calendar boundary has passed. A rollover clears only its own period's
// trigger: a daily reset resumes after a daily-loss (or trade-count) halt,
// but a weekly or monthly halt stays in force until that period turns.
// Caller holds the mutex.
func (cb *CircuitBreaker) applyPeriodResets() {
	now := cb.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, cb.loc)

	if !cb.lastResetDay.Equal(today) {
		cb.state.DailyPnL = decimal.Zero
		cb.state.TradesToday = 0
		cb.lastResetDay = today

		if cb.state.Triggered &&
			(cb.state.TriggerReason == ReasonDailyLoss || cb.state.TriggerReason == ReasonMaxTrades) {
			cb.clearTrigger("new trading day")
		}
	}

	// ISO week starts Monday
	offset := (int(now.Weekday()) + 6) % 7
	weekStart := today.AddDate(0, 0, -offset)
	if !cb.weekStart.Equal(weekStart) {
		cb.state.WeeklyPnL = decimal.Zero
		cb.weekStart = weekStart

		if cb.state.Triggered && cb.state.TriggerReason == ReasonWeeklyLoss {
			cb.clearTrigger("new week")
		}
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, cb.loc)
	if !cb.monthStart.Equal(monthStart) {
		cb.state.MonthlyPnL = decimal.Zero
		cb.monthStart = monthStart

		if cb.state.Triggered && cb.state.TriggerReason == ReasonMonthlyDrawdown {
			cb.clearTrigger("new month")
		}
	}
}

// clearTrigger resumes trading after a period rollover. Caller holds the
// mutex.
func (cb *CircuitBreaker) clearTrigger(why string) {
	reason := cb.state.TriggerReason
	cb.state.Triggered = false
	cb.state.TriggerReason = ""
	cb.state.TriggeredAt = time.Time{}

	cb.log.Info("circuit breaker reset",
		zap.String("cleared_reason", reason),
		zap.String("cause", why))
}
