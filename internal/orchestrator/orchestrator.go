// Package orchestrator wires the strategies, risk controls, broker, and
// reporting into the evaluation cycle that runs on every market update.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/equity-trading-agent/internal/broker"
	"github.com/ducminhle1904/equity-trading-agent/internal/config"
	agenterr "github.com/ducminhle1904/equity-trading-agent/internal/errors"
	"github.com/ducminhle1904/equity-trading-agent/internal/market"
	"github.com/ducminhle1904/equity-trading-agent/internal/monitoring"
	"github.com/ducminhle1904/equity-trading-agent/internal/notifications"
	"github.com/ducminhle1904/equity-trading-agent/internal/reporting"
	"github.com/ducminhle1904/equity-trading-agent/internal/risk"
	"github.com/ducminhle1904/equity-trading-agent/internal/strategy"
)

// priceSink is implemented by brokers that need the latest market price to
// value fills, like the paper broker.
type priceSink interface {
	SetPrice(symbol string, price decimal.Decimal)
}

// openTrade tracks which strategy owns an open position and where it
// entered, for exit checks and journaling.
type openTrade struct {
	strat      strategy.Strategy
	side       market.OrderSide
	entryPrice decimal.Decimal
	shares     int64
	openedAt   time.Time
}

// Orchestrator runs the decision cycle. One instance per trading session.
type Orchestrator struct {
	cfg *config.Config
	log *zap.Logger
	loc *time.Location

	broker     broker.Broker
	breaker    *risk.CircuitBreaker
	validator  *risk.TradeValidator
	sizer      *risk.PositionSizer
	strategies []strategy.Strategy

	journal  *reporting.Journal
	console  *reporting.ConsoleReporter
	excel    *reporting.ExcelReporter
	notifier notifications.Notifier
	health   *monitoring.HealthChecker

	cron *cron.Cron
	now  func() time.Time

	mu     sync.Mutex
	open   map[string]*openTrade
	atrSum map[string]float64
	atrN   map[string]int
}

// New assembles the orchestrator from its collaborators.
func New(
	cfg *config.Config,
	bk broker.Broker,
	breaker *risk.CircuitBreaker,
	validator *risk.TradeValidator,
	sizer *risk.PositionSizer,
	strategies []strategy.Strategy,
	notifier notifications.Notifier,
	health *monitoring.HealthChecker,
	log *zap.Logger,
) *Orchestrator {
	loc := cfg.Location()
	o := &Orchestrator{
		cfg:        cfg,
		log:        log,
		loc:        loc,
		broker:     bk,
		breaker:    breaker,
		validator:  validator,
		sizer:      sizer,
		strategies: strategies,
		journal:    reporting.NewJournal(),
		console:    reporting.NewConsoleReporter(),
		excel:      reporting.NewExcelReporter(),
		notifier:   notifier,
		health:     health,
		cron:       cron.New(cron.WithLocation(loc)),
		open:       make(map[string]*openTrade),
		atrSum:     make(map[string]float64),
		atrN:       make(map[string]int),
	}
	o.now = func() time.Time { return time.Now().In(loc) }

	breaker.SetTriggerCallback(o.onBreakerTrigger)

	for _, s := range strategies {
		monitoring.SetStrategyActive(s.Name(), s.IsActive())
	}

	return o
}

// Start schedules the daily reset and end-of-day report jobs.
func (o *Orchestrator) Start() error {
	// Pre-market reset on weekdays, well before the open
	if _, err := o.cron.AddFunc("0 8 * * 1-5", o.DailyReset); err != nil {
		return fmt.Errorf("failed to schedule daily reset: %w", err)
	}
	// End-of-day report shortly after the close
	if _, err := o.cron.AddFunc("10 16 * * 1-5", o.WriteDailyReport); err != nil {
		return fmt.Errorf("failed to schedule daily report: %w", err)
	}

	o.cron.Start()
	o.log.Info("orchestrator started",
		zap.Int("strategies", len(o.strategies)),
		zap.String("broker", o.broker.GetName()))
	return nil
}

// Stop halts scheduled jobs and writes a final report.
func (o *Orchestrator) Stop() {
	ctx := o.cron.Stop()
	<-ctx.Done()
	o.WriteDailyReport()
	o.log.Info("orchestrator stopped")
}

// OnMarketUpdate runs one evaluation cycle for a symbol snapshot: exits
// first, then entries gated by the circuit breaker and validator.
func (o *Orchestrator) OnMarketUpdate(ctx context.Context, mctx *market.Context) {
	o.health.MarkCycle()

	if sink, ok := o.broker.(priceSink); ok {
		sink.SetPrice(mctx.Symbol, mctx.CurrentPrice)
	}

	o.trackATR(mctx)
	o.checkExits(ctx, mctx)
	o.checkEntries(ctx, mctx)
	o.publishGauges()
}

// trackATR maintains a running per-symbol ATR mean for volatility sizing.
func (o *Orchestrator) trackATR(mctx *market.Context) {
	if mctx.ATR == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.atrSum[mctx.Symbol] += *mctx.ATR
	o.atrN[mctx.Symbol]++
}

func (o *Orchestrator) avgATR(symbol string) float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := o.atrN[symbol]
	if n == 0 {
		return 0
	}
	return o.atrSum[symbol] / float64(n)
}

// checkExits asks the owning strategy whether its position should close.
func (o *Orchestrator) checkExits(ctx context.Context, mctx *market.Context) {
	o.mu.Lock()
	trade, ok := o.open[mctx.Symbol]
	o.mu.Unlock()
	if !ok {
		return
	}

	exit, reason := trade.strat.ShouldExit(mctx, trade.entryPrice, trade.side)
	if !exit {
		return
	}

	res := o.validator.ValidateExit(mctx.Symbol, mctx.CurrentPrice, trade.entryPrice, trade.side)
	for _, w := range res.Warnings {
		o.log.Warn("exit warning", zap.String("symbol", mctx.Symbol), zap.String("warning", w))
	}

	o.closeTrade(ctx, mctx.Symbol, reason)
}

// closeTrade flattens a symbol, records the realized P&L with the breaker
// and journal, and auto-disables a strategy on a loss streak.
func (o *Orchestrator) closeTrade(ctx context.Context, symbol, reason string) {
	o.mu.Lock()
	trade, ok := o.open[symbol]
	if !ok {
		o.mu.Unlock()
		return
	}
	delete(o.open, symbol)
	o.mu.Unlock()

	fill, err := o.broker.ClosePosition(ctx, symbol)
	if err != nil {
		o.log.Error("failed to close position",
			zap.String("symbol", symbol), zap.Error(err))
		o.health.RecordError(fmt.Sprintf("close %s: %v", symbol, err))
		monitoring.RecordError(string(agenterr.CategoryOf(err)))
		return
	}

	diff := fill.Price.Sub(trade.entryPrice)
	if trade.side == market.SideSell {
		diff = diff.Neg()
	}
	pnl := diff.Mul(decimal.NewFromInt(trade.shares))

	name := trade.strat.Name()
	trade.strat.RemovePosition(symbol)
	o.breaker.RecordTrade(pnl, name)
	monitoring.RecordTrade(name, pnl.InexactFloat64())

	o.journal.Record(reporting.TradeRecord{
		Symbol:     symbol,
		Strategy:   name,
		Side:       string(trade.side),
		Shares:     trade.shares,
		EntryPrice: trade.entryPrice,
		ExitPrice:  fill.Price,
		PnL:        pnl,
		ExitReason: reason,
		OpenedAt:   trade.openedAt,
		ClosedAt:   fill.FilledAt,
	})

	o.log.Info("trade closed",
		zap.String("symbol", symbol),
		zap.String("strategy", name),
		zap.String("pnl", pnl.StringFixed(2)),
		zap.String("reason", reason))

	if o.breaker.CheckStrategyLosses(name, o.cfg.Risk.MaxConsecutiveLosses) && trade.strat.IsActive() {
		detail := fmt.Sprintf("%d consecutive losses", o.cfg.Risk.MaxConsecutiveLosses)
		trade.strat.Disable(detail)
		monitoring.SetStrategyActive(name, false)
		o.alert("warning", fmt.Sprintf("Strategy %s disabled: %s", name, detail))
	}
}

// checkEntries polls every active strategy for a signal and runs the full
// risk gate before submitting an order.
func (o *Orchestrator) checkEntries(ctx context.Context, mctx *market.Context) {
	if allowed, reason := o.breaker.CanTrade(); !allowed {
		o.log.Debug("entries blocked", zap.String("reason", reason))
		return
	}
	if allowed, reason := o.validator.CanTradeSymbol(mctx.Symbol); !allowed {
		o.log.Debug("symbol blocked", zap.String("reason", reason))
		return
	}

	o.mu.Lock()
	_, alreadyOpen := o.open[mctx.Symbol]
	o.mu.Unlock()
	if alreadyOpen {
		return
	}

	for _, s := range o.strategies {
		sig := s.ShouldEnter(mctx)
		if sig == nil {
			continue
		}
		monitoring.RecordSignal(s.Name(), string(sig.Side))

		if o.tryEnter(ctx, s, sig, mctx) {
			return
		}
	}
}

// tryEnter sizes and validates one signal. Returns true when an order was
// submitted, so lower-priority strategies do not stack onto the symbol.
func (o *Orchestrator) tryEnter(ctx context.Context, s strategy.Strategy, sig *strategy.Signal, mctx *market.Context) bool {
	acct, err := o.broker.GetAccount(ctx)
	if err != nil {
		o.log.Error("failed to fetch account", zap.Error(err))
		o.health.RecordError(fmt.Sprintf("account: %v", err))
		monitoring.RecordError(string(agenterr.CategoryOf(err)))
		return false
	}
	positions, err := o.broker.GetPositions(ctx)
	if err != nil {
		o.log.Error("failed to fetch positions", zap.Error(err))
		monitoring.RecordError(string(agenterr.CategoryOf(err)))
		return false
	}

	openValue := decimal.Zero
	for _, p := range positions {
		openValue = openValue.Add(p.MarketValue(p.EntryPrice))
	}

	res := o.validator.ValidateSignal(sig, risk.Account{
		Value:                 acct.Value,
		BuyingPower:           acct.BuyingPower,
		OpenPositions:         len(positions),
		OpenPositionsValue:    openValue,
		DaytradingBuyingPower: acct.DaytradingBuyingPower,
		IsPatternDayTrader:    acct.IsPatternDayTrader,
	})
	for _, w := range res.Warnings {
		o.log.Warn("signal warning", zap.String("symbol", sig.Symbol), zap.String("warning", w))
	}
	if !res.Valid {
		o.log.Info("signal rejected",
			zap.String("symbol", sig.Symbol),
			zap.String("strategy", s.Name()),
			zap.String("code", res.FailureCode),
			zap.String("reason", res.Reason))
		monitoring.RecordValidationFailure(res.FailureCode)
		return false
	}

	size := o.sizer.CalculateRiskBased(acct.Value, sig.EntryPrice, sig.StopLoss, sig.Side)
	if !size.Valid {
		o.log.Info("position sizing rejected",
			zap.String("symbol", sig.Symbol),
			zap.String("reason", size.RejectionReason))
		return false
	}

	if mctx.ATR != nil {
		if avg := o.avgATR(sig.Symbol); avg > 0 {
			size = o.sizer.AdjustForVolatility(size, *mctx.ATR, avg)
			if !size.Valid {
				o.log.Info("position sizing rejected",
					zap.String("symbol", sig.Symbol),
					zap.String("reason", size.RejectionReason))
				return false
			}
		}
	}

	if ok, reason := o.sizer.ValidatePosition(size, acct.Value, openValue); !ok {
		o.log.Info("position rejected",
			zap.String("symbol", sig.Symbol),
			zap.String("reason", reason))
		return false
	}

	fill, err := o.broker.SubmitOrder(ctx, broker.Order{
		Symbol:   sig.Symbol,
		Side:     sig.Side,
		Shares:   size.Shares,
		Strategy: s.Name(),
	})
	if err != nil {
		o.log.Error("order rejected by broker",
			zap.String("symbol", sig.Symbol), zap.Error(err))
		monitoring.RecordError(string(agenterr.CategoryOf(err)))
		return false
	}

	s.AddPosition(sig.Symbol)
	o.mu.Lock()
	o.open[sig.Symbol] = &openTrade{
		strat:      s,
		side:       sig.Side,
		entryPrice: fill.Price,
		shares:     fill.Shares,
		openedAt:   fill.FilledAt,
	}
	o.mu.Unlock()

	o.log.Info("trade opened",
		zap.String("symbol", sig.Symbol),
		zap.String("strategy", s.Name()),
		zap.String("side", string(sig.Side)),
		zap.Int64("shares", fill.Shares),
		zap.String("entry", fill.Price.String()),
		zap.String("reasoning", sig.Reasoning))

	return true
}

// publishGauges refreshes the slow-moving metrics after a cycle.
func (o *Orchestrator) publishGauges() {
	stats := o.breaker.GetDailyStats()
	monitoring.SetDailyPnL(stats.DailyPnL.InexactFloat64())
	monitoring.SetCircuitBreakerActive(stats.Triggered)
	o.health.SetBreakerActive(stats.Triggered)

	o.mu.Lock()
	monitoring.SetOpenPositions(len(o.open))
	o.mu.Unlock()
}

// onBreakerTrigger fans a circuit breaker halt out to alerts and metrics.
func (o *Orchestrator) onBreakerTrigger(detail string) {
	monitoring.SetCircuitBreakerActive(true)
	o.health.SetBreakerActive(true)
	o.alert("error", fmt.Sprintf("TRADING HALTED: %s", detail))
}

// DailyReset prepares strategies and health state for a new session. The
// circuit breaker rolls its own periods; re-enabling after a loss-streak
// disable stays manual.
func (o *Orchestrator) DailyReset() {
	for _, s := range o.strategies {
		s.ResetDaily()
	}
	o.health.ClearErrors()

	o.mu.Lock()
	o.atrSum = make(map[string]float64)
	o.atrN = make(map[string]int)
	o.mu.Unlock()

	o.log.Info("daily reset complete")
}

// FlattenAll force-closes every open position, used at shutdown and by the
// end-of-session flatten.
func (o *Orchestrator) FlattenAll(ctx context.Context) {
	o.mu.Lock()
	symbols := make([]string, 0, len(o.open))
	for sym := range o.open {
		symbols = append(symbols, sym)
	}
	o.mu.Unlock()

	for _, sym := range symbols {
		o.closeTrade(ctx, sym, "Session flatten")
	}
}

// WriteDailyReport renders the console summary and writes the spreadsheet
// journal, then clears the journal for the next session.
func (o *Orchestrator) WriteDailyReport() {
	sum := o.journal.Summarize()
	o.console.PrintDailySummary(sum)

	if sum.TotalTrades > 0 && o.cfg.ReportDir != "" {
		path := fmt.Sprintf("%s/journal_%s.xlsx", o.cfg.ReportDir, o.now().Format("2006-01-02"))
		if err := o.excel.WriteJournal(o.journal.Trades(), sum, path); err != nil {
			o.log.Error("failed to write trade journal", zap.Error(err))
			monitoring.RecordError(string(agenterr.CategoryData))
		} else {
			o.log.Info("trade journal written", zap.String("path", path))
		}
	}

	o.journal.Reset()
}

func (o *Orchestrator) alert(level, message string) {
	if err := o.notifier.SendAlert(level, message); err != nil {
		o.log.Warn("failed to send alert", zap.Error(err))
		monitoring.RecordError(string(agenterr.CategoryNotify))
	}
}
