package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

// EODReversalConfig holds the end-of-day reversal parameters
type EODReversalConfig struct {
	StartHour        int      `json:"start_hour"` // Entries allowed from this hour
	RSIOversold      float64  `json:"rsi_oversold"`
	RSIOverbought    float64  `json:"rsi_overbought"`
	VWAPDeviationPct float64  `json:"vwap_deviation_pct"` // Minimum stretch confirming the move
	StopLossPct      float64  `json:"stop_loss_pct"`
	TakeProfitPct    float64  `json:"take_profit_pct"`
	ExitMinute       int      `json:"exit_minute"` // Flat at 15:<ExitMinute>, before the close
	PositionSizePct  float64  `json:"position_size_pct"`
	MaxPositions     int      `json:"max_positions"`
	AllowedSymbols   []string `json:"allowed_symbols"`
	MinVolume        int64    `json:"min_volume"`
}

// DefaultEODReversalConfig returns the standard reversal parameters.
func DefaultEODReversalConfig() EODReversalConfig {
	return EODReversalConfig{
		StartHour:        15,
		RSIOversold:      25.0,
		RSIOverbought:    75.0,
		VWAPDeviationPct: 2.0,
		StopLossPct:      1.0,
		TakeProfitPct:    1.5,
		ExitMinute:       55,
		PositionSizePct:  10.0,
		MaxPositions:     2,
		AllowedSymbols:   Tier1Symbols,
		MinVolume:        10_000_000,
	}
}

// EODReversal fades exhausted intraday trends in the final hour, closing
// everything before the bell. It keeps no per-symbol working memory beyond
// the shared position set.
type EODReversal struct {
	tracker
	cfg EODReversalConfig
	loc *time.Location
	now func() time.Time
}

// NewEODReversal creates the end-of-day reversal engine.
func NewEODReversal(cfg EODReversalConfig, loc *time.Location, log *zap.Logger) *EODReversal {
	s := &EODReversal{
		tracker: newTracker("EOD Reversal", 5.0, cfg.MinVolume, log),
		cfg:     cfg,
		loc:     loc,
	}
	s.now = func() time.Time { return time.Now().In(loc) }
	return s
}

func (s *EODReversal) minuteOfDay() int {
	now := s.now().In(s.loc)
	return now.Hour()*60 + now.Minute()
}

func (s *EODReversal) inTradingPeriod() bool {
	m := s.minuteOfDay()
	return m >= s.cfg.StartHour*60 && m < 15*60+s.cfg.ExitMinute
}

func (s *EODReversal) shouldForceExit() bool {
	return s.minuteOfDay() >= 15*60+s.cfg.ExitMinute
}

// intradayTrend classifies the day's move from the VWAP stretch.
func (s *EODReversal) intradayTrend(ctx *market.Context) string {
	if ctx.VWAP == nil {
		return "sideways"
	}
	deviation := vwapDeviation(ctx.CurrentPrice, *ctx.VWAP)
	switch {
	case deviation > 1.0:
		return "up"
	case deviation < -1.0:
		return "down"
	default:
		return "sideways"
	}
}

// ShouldEnter fades an extreme RSI print when price is stretched from VWAP
// in the same direction as the intraday trend. Requires RSI and VWAP.
func (s *EODReversal) ShouldEnter(ctx *market.Context) *Signal {
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
	if ctx.RSI == nil || ctx.VWAP == nil {
		return nil
	}

	price := ctx.CurrentPrice
	rsi := *ctx.RSI
	vwap := *ctx.VWAP
	deviation := vwapDeviation(price, vwap)
	trend := s.intradayTrend(ctx)

	indicators := map[string]any{
		"rsi":                rsi,
		"vwap":               vwap.String(),
		"vwap_deviation_pct": deviation,
		"intraday_trend":     trend,
		"current_price":      price.String(),
		"volume":             ctx.Volume,
	}

	switch {
	case rsi > s.cfg.RSIOverbought && deviation > s.cfg.VWAPDeviationPct && trend == "up":
		stop := stopLossFor(price, s.cfg.StopLossPct, market.SideSell)
		target := takeProfitFor(price, s.cfg.TakeProfitPct, market.SideSell)

		s.log.Info("EOD reversal signal",
			zap.String("symbol", symbol), zap.String("side", "sell"), zap.Float64("rsi", rsi))

		return &Signal{
			Symbol:          symbol,
			Side:            market.SideSell,
			EntryPrice:      price,
			StopLoss:        stop,
			TakeProfit:      target,
			PositionSizePct: s.cfg.PositionSizePct,
			Confidence:      0.6,
			Reasoning: fmt.Sprintf(
				"EOD REVERSAL SHORT: %s overbought at RSI %.1f, %.2f%% above VWAP after uptrend. Target: $%s, Stop: $%s",
				symbol, rsi, deviation, target, stop),
			Indicators:  indicators,
			GeneratedAt: s.now(),
		}

	case rsi < s.cfg.RSIOversold && deviation < -s.cfg.VWAPDeviationPct && trend == "down":
		stop := stopLossFor(price, s.cfg.StopLossPct, market.SideBuy)
		target := takeProfitFor(price, s.cfg.TakeProfitPct, market.SideBuy)

		s.log.Info("EOD reversal signal",
			zap.String("symbol", symbol), zap.String("side", "buy"), zap.Float64("rsi", rsi))

		return &Signal{
			Symbol:          symbol,
			Side:            market.SideBuy,
			EntryPrice:      price,
			StopLoss:        stop,
			TakeProfit:      target,
			PositionSizePct: s.cfg.PositionSizePct,
			Confidence:      0.6,
			Reasoning: fmt.Sprintf(
				"EOD REVERSAL LONG: %s oversold at RSI %.1f, %.2f%% below VWAP after downtrend. Target: $%s, Stop: $%s",
				symbol, rsi, deviation, target, stop),
			Indicators:  indicators,
			GeneratedAt: s.now(),
		}
	}

	return nil
}

// ShouldExit closes on stop, target, or the pre-close flat time.
func (s *EODReversal) ShouldExit(ctx *market.Context, entryPrice decimal.Decimal, side market.OrderSide) (bool, string) {
	price := ctx.CurrentPrice

	if s.shouldForceExit() {
		return true, fmt.Sprintf("Forced exit at 15:%02d ET before market close", s.cfg.ExitMinute)
	}

	stop := stopLossFor(entryPrice, s.cfg.StopLossPct, side)
	if side == market.SideBuy && price.LessThanOrEqual(stop) {
		return true, fmt.Sprintf("Stop loss hit at $%s", price)
	}
	if side == market.SideSell && price.GreaterThanOrEqual(stop) {
		return true, fmt.Sprintf("Stop loss hit at $%s", price)
	}

	target := takeProfitFor(entryPrice, s.cfg.TakeProfitPct, side)
	if side == market.SideBuy && price.GreaterThanOrEqual(target) {
		return true, fmt.Sprintf("Take profit hit at $%s", price)
	}
	if side == market.SideSell && price.LessThanOrEqual(target) {
		return true, fmt.Sprintf("Take profit hit at $%s", price)
	}

	return false, ""
}

// CalculatePositionSize returns the dollar amount for this engine's
// configured percentage.
func (s *EODReversal) CalculatePositionSize(_ *market.Context, accountValue decimal.Decimal) decimal.Decimal {
	return sizeFromPct(accountValue, s.cfg.PositionSizePct)
}

// ResetDaily clears the open-position set for a new session.
func (s *EODReversal) ResetDaily() {
	s.positions = make(map[string]struct{})
	s.log.Info("daily state reset")
}
