package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

// Tier1Symbols are the high-liquidity index ETFs used by the range and
// reversal engines.
var Tier1Symbols = []string{"SPY", "QQQ", "IWM"}

// Tier2Symbols are the large-cap names used by the reversion and gap
// engines.
var Tier2Symbols = []string{"AAPL", "MSFT", "NVDA", "TSLA", "GOOGL", "AMZN", "META"}

// ORBConfig holds the opening range breakout parameters
type ORBConfig struct {
	RangeMinutes         int      `json:"range_minutes"`          // Opening range duration after 9:30
	BreakoutThresholdPct float64  `json:"breakout_threshold_pct"` // Break distance beyond the range edge
	StopLossPct          float64  `json:"stop_loss_pct"`
	TakeProfitPct        float64  `json:"take_profit_pct"`
	PositionSizePct      float64  `json:"position_size_pct"`
	MaxPositions         int      `json:"max_positions"`
	AllowedSymbols       []string `json:"allowed_symbols"`
	MinVolume            int64    `json:"min_volume"`
	ExitHour             int      `json:"exit_hour"` // Force-flat time
	ExitMinute           int      `json:"exit_minute"`
}

// DefaultORBConfig returns the standard ORB parameters.
func DefaultORBConfig() ORBConfig {
	return ORBConfig{
		RangeMinutes:         15,
		BreakoutThresholdPct: 0.1,
		StopLossPct:          1.0,
		TakeProfitPct:        2.0,
		PositionSizePct:      10.0,
		MaxPositions:         3,
		AllowedSymbols:       Tier1Symbols,
		MinVolume:            5_000_000,
		ExitHour:             15,
		ExitMinute:           45,
	}
}

// OpeningRange is the high/low established during the first minutes of the
// session for one symbol.
type OpeningRange struct {
	Symbol        string
	High          decimal.Decimal
	Low           decimal.Decimal
	EstablishedAt time.Time
}

// ORB trades breakouts from the first minutes' range on high-liquidity
// ETFs. Working memory is the per-symbol opening range, cleared only by
// ResetDaily.
type ORB struct {
	tracker
	cfg    ORBConfig
	loc    *time.Location
	now    func() time.Time
	ranges map[string]*OpeningRange
}

// NewORB creates the opening range breakout engine.
func NewORB(cfg ORBConfig, loc *time.Location, log *zap.Logger) *ORB {
	s := &ORB{
		tracker: newTracker("Opening Range Breakout", 5.0, cfg.MinVolume, log),
		cfg:     cfg,
		loc:     loc,
		ranges:  make(map[string]*OpeningRange),
	}
	s.now = func() time.Time { return time.Now().In(loc) }
	return s
}

// minuteOfDay returns the exchange-local minute of day for now.
func (s *ORB) minuteOfDay() int {
	now := s.now().In(s.loc)
	return now.Hour()*60 + now.Minute()
}

func (s *ORB) inRangePeriod() bool {
	return s.minuteOfDay() < 9*60+30+s.cfg.RangeMinutes
}

func (s *ORB) inTradingPeriod() bool {
	m := s.minuteOfDay()
	return m >= 9*60+30+s.cfg.RangeMinutes && m < s.cfg.ExitHour*60+s.cfg.ExitMinute
}

func (s *ORB) shouldForceExit() bool {
	return s.minuteOfDay() >= s.cfg.ExitHour*60+s.cfg.ExitMinute
}

// UpdateOpeningRange widens the tracked range with a new bar's high/low.
// Updates outside the range period are ignored.
func (s *ORB) UpdateOpeningRange(symbol string, high, low decimal.Decimal) {
	if !s.inRangePeriod() {
		return
	}

	if existing, ok := s.ranges[symbol]; ok {
		existing.High = decimal.Max(existing.High, high)
		existing.Low = decimal.Min(existing.Low, low)
		existing.EstablishedAt = s.now()
		return
	}
	s.ranges[symbol] = &OpeningRange{
		Symbol:        symbol,
		High:          high,
		Low:           low,
		EstablishedAt: s.now(),
	}
}

// GetOpeningRange returns the established range for a symbol, nil if none.
func (s *ORB) GetOpeningRange(symbol string) *OpeningRange {
	return s.ranges[symbol]
}

// ShouldEnter checks for a breakout beyond the opening range.
func (s *ORB) ShouldEnter(ctx *market.Context) *Signal {
	symbol := ctx.Symbol

	if ok, _ := s.validateEntry(ctx); !ok {
		return nil
	}
	if !contains(s.cfg.AllowedSymbols, symbol) {
		return nil
	}
	if !s.inTradingPeriod() {
		return nil
	}
	if s.HasPosition(symbol) {
		return nil
	}
	if s.OpenPositionCount() >= s.cfg.MaxPositions {
		return nil
	}

	rng := s.ranges[symbol]
	if rng == nil {
		return nil
	}

	price := ctx.CurrentPrice
	indicators := map[string]any{
		"opening_range_high": rng.High.String(),
		"opening_range_low":  rng.Low.String(),
		"current_price":      price.String(),
		"volume":             ctx.Volume,
	}
	if ctx.VWAP != nil {
		indicators["vwap"] = ctx.VWAP.String()
	}

	// Breakout above the range high
	if price.GreaterThanOrEqual(pctOf(rng.High, s.cfg.BreakoutThresholdPct, true)) {
		stop := stopLossFor(price, s.cfg.StopLossPct, market.SideBuy)
		target := takeProfitFor(price, s.cfg.TakeProfitPct, market.SideBuy)

		s.log.Info("ORB breakout signal",
			zap.String("symbol", symbol), zap.String("price", price.String()))

		return &Signal{
			Symbol:          symbol,
			Side:            market.SideBuy,
			EntryPrice:      price,
			StopLoss:        stop,
			TakeProfit:      target,
			PositionSizePct: s.cfg.PositionSizePct,
			Confidence:      0.7,
			Reasoning: fmt.Sprintf(
				"ORB LONG: %s broke above opening range high ($%s) at $%s. Volume: %d. Target: $%s, Stop: $%s",
				symbol, rng.High, price, ctx.Volume, target, stop),
			Indicators:  indicators,
			GeneratedAt: s.now(),
		}
	}

	// Breakdown below the range low
	if price.LessThanOrEqual(pctOf(rng.Low, s.cfg.BreakoutThresholdPct, false)) {
		stop := stopLossFor(price, s.cfg.StopLossPct, market.SideSell)
		target := takeProfitFor(price, s.cfg.TakeProfitPct, market.SideSell)

		s.log.Info("ORB breakdown signal",
			zap.String("symbol", symbol), zap.String("price", price.String()))

		return &Signal{
			Symbol:          symbol,
			Side:            market.SideSell,
			EntryPrice:      price,
			StopLoss:        stop,
			TakeProfit:      target,
			PositionSizePct: s.cfg.PositionSizePct,
			Confidence:      0.7,
			Reasoning: fmt.Sprintf(
				"ORB SHORT: %s broke below opening range low ($%s) at $%s. Volume: %d. Target: $%s, Stop: $%s",
				symbol, rng.Low, price, ctx.Volume, target, stop),
			Indicators:  indicators,
			GeneratedAt: s.now(),
		}
	}

	return nil
}

// ShouldExit closes on stop, target, or the force-flat time.
func (s *ORB) ShouldExit(ctx *market.Context, entryPrice decimal.Decimal, side market.OrderSide) (bool, string) {
	price := ctx.CurrentPrice

	if s.shouldForceExit() {
		return true, fmt.Sprintf("Forced exit at %d:%02d ET", s.cfg.ExitHour, s.cfg.ExitMinute)
	}

	stop := stopLossFor(entryPrice, s.cfg.StopLossPct, side)
	if side == market.SideBuy && price.LessThanOrEqual(stop) {
		return true, fmt.Sprintf("Stop loss hit at $%s (stop: $%s)", price, stop)
	}
	if side == market.SideSell && price.GreaterThanOrEqual(stop) {
		return true, fmt.Sprintf("Stop loss hit at $%s (stop: $%s)", price, stop)
	}

	target := takeProfitFor(entryPrice, s.cfg.TakeProfitPct, side)
	if side == market.SideBuy && price.GreaterThanOrEqual(target) {
		return true, fmt.Sprintf("Take profit hit at $%s (target: $%s)", price, target)
	}
	if side == market.SideSell && price.LessThanOrEqual(target) {
		return true, fmt.Sprintf("Take profit hit at $%s (target: $%s)", price, target)
	}

	return false, ""
}

// CalculatePositionSize returns the dollar amount for this engine's
// configured percentage.
func (s *ORB) CalculatePositionSize(_ *market.Context, accountValue decimal.Decimal) decimal.Decimal {
	return sizeFromPct(accountValue, s.cfg.PositionSizePct)
}

// ResetDaily clears ranges and the open-position set for a new session.
func (s *ORB) ResetDaily() {
	s.ranges = make(map[string]*OpeningRange)
	s.positions = make(map[string]struct{})
	s.log.Info("daily state reset")
}
