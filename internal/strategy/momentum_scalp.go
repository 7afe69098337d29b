package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

// MomentumScalpConfig holds the momentum crossover parameters
type MomentumScalpConfig struct {
	RSIMin          float64 `json:"rsi_min"` // RSI must sit in [RSIMin, RSIMax]
	RSIMax          float64 `json:"rsi_max"`
	TakeProfitPct   float64 `json:"take_profit_pct"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	PositionSizePct float64 `json:"position_size_pct"`
	MaxPositions    int     `json:"max_positions"`
	MinVolume       int64   `json:"min_volume"`
	MinPrice        float64 `json:"min_price"`
}

// DefaultMomentumScalpConfig returns the standard scalping parameters.
func DefaultMomentumScalpConfig() MomentumScalpConfig {
	return MomentumScalpConfig{
		RSIMin:          40.0,
		RSIMax:          60.0,
		TakeProfitPct:   1.5,
		StopLossPct:     0.6,
		PositionSizePct: 5.0,
		MaxPositions:    5,
		MinVolume:       5_000_000,
		MinPrice:        10.0,
	}
}

// MomentumScalp rides MACD/signal crossovers confirmed by a neutral RSI
// and the 50-period MA. Working memory is the last observed side of the
// MACD line per symbol, needed to detect the actual cross.
type MomentumScalp struct {
	tracker
	cfg          MomentumScalpConfig
	now          func() time.Time
	lastMACDSide map[string]string // "above" or "below"
}

// NewMomentumScalp creates the momentum scalping engine.
func NewMomentumScalp(cfg MomentumScalpConfig, loc *time.Location, log *zap.Logger) *MomentumScalp {
	s := &MomentumScalp{
		tracker:      newTracker("Momentum Scalp", cfg.MinPrice, cfg.MinVolume, log),
		cfg:          cfg,
		lastMACDSide: make(map[string]string),
	}
	s.now = func() time.Time { return time.Now().In(loc) }
	return s
}

// detectCrossover updates the per-symbol MACD side and reports "bullish"
// or "bearish" when the line crossed since the last observation. The first
// observation for a symbol never reports a cross.
func (s *MomentumScalp) detectCrossover(symbol string, macd, macdSignal float64) string {
	side := "below"
	if macd > macdSignal {
		side = "above"
	}

	last, seen := s.lastMACDSide[symbol]
	s.lastMACDSide[symbol] = side

	if !seen || last == side {
		return ""
	}
	if side == "above" {
		return "bullish"
	}
	return "bearish"
}

// ShouldEnter requires MACD, its signal line, RSI, and the 50-period MA;
// any missing indicator produces no signal.
func (s *MomentumScalp) ShouldEnter(ctx *market.Context) *Signal {
	symbol := ctx.Symbol

	if ok, _ := s.validateEntry(ctx); !ok {
		return nil
	}
	if s.HasPosition(symbol) {
		return nil
	}
	if s.OpenPositionCount() >= s.cfg.MaxPositions {
		return nil
	}
	if ctx.MACD == nil || ctx.MACDSignal == nil || ctx.RSI == nil || ctx.MA50 == nil {
		return nil
	}

	price := ctx.CurrentPrice
	macd, macdSignal := *ctx.MACD, *ctx.MACDSignal
	rsi := *ctx.RSI
	ma50 := *ctx.MA50

	if rsi < s.cfg.RSIMin || rsi > s.cfg.RSIMax {
		return nil
	}

	crossover := s.detectCrossover(symbol, macd, macdSignal)
	if crossover == "" {
		return nil
	}

	indicators := map[string]any{
		"macd":          macd,
		"macd_signal":   macdSignal,
		"rsi":           rsi,
		"ma_50":         ma50.String(),
		"current_price": price.String(),
		"volume":        ctx.Volume,
		"crossover":     crossover,
	}

	if crossover == "bullish" && price.GreaterThan(ma50) {
		stop := stopLossFor(price, s.cfg.StopLossPct, market.SideBuy)
		target := takeProfitFor(price, s.cfg.TakeProfitPct, market.SideBuy)

		s.log.Info("momentum crossover signal",
			zap.String("symbol", symbol), zap.String("direction", "bullish"))

		return &Signal{
			Symbol:          symbol,
			Side:            market.SideBuy,
			EntryPrice:      price,
			StopLoss:        stop,
			TakeProfit:      target,
			PositionSizePct: s.cfg.PositionSizePct,
			Confidence:      0.6,
			Reasoning: fmt.Sprintf(
				"MOMENTUM LONG: %s bullish MACD crossover (%.4f > %.4f). RSI neutral at %.1f. Price above MA50 ($%s). Target: $%s, Stop: $%s",
				symbol, macd, macdSignal, rsi, ma50, target, stop),
			Indicators:  indicators,
			GeneratedAt: s.now(),
		}
	}

	if crossover == "bearish" && price.LessThan(ma50) {
		stop := stopLossFor(price, s.cfg.StopLossPct, market.SideSell)
		target := takeProfitFor(price, s.cfg.TakeProfitPct, market.SideSell)

		s.log.Info("momentum crossover signal",
			zap.String("symbol", symbol), zap.String("direction", "bearish"))

		return &Signal{
			Symbol:          symbol,
			Side:            market.SideSell,
			EntryPrice:      price,
			StopLoss:        stop,
			TakeProfit:      target,
			PositionSizePct: s.cfg.PositionSizePct,
			Confidence:      0.6,
			Reasoning: fmt.Sprintf(
				"MOMENTUM SHORT: %s bearish MACD crossover (%.4f < %.4f). RSI neutral at %.1f. Price below MA50 ($%s). Target: $%s, Stop: $%s",
				symbol, macd, macdSignal, rsi, ma50, target, stop),
			Indicators:  indicators,
			GeneratedAt: s.now(),
		}
	}

	return nil
}

// ShouldExit closes on stop, target, or when MACD crosses back against the
// position.
func (s *MomentumScalp) ShouldExit(ctx *market.Context, entryPrice decimal.Decimal, side market.OrderSide) (bool, string) {
	price := ctx.CurrentPrice

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

	if ctx.MACD != nil && ctx.MACDSignal != nil {
		if side == market.SideBuy && *ctx.MACD < *ctx.MACDSignal {
			return true, "MACD crossed back below signal - momentum lost"
		}
		if side == market.SideSell && *ctx.MACD > *ctx.MACDSignal {
			return true, "MACD crossed back above signal - momentum lost"
		}
	}

	return false, ""
}

// CalculatePositionSize returns the dollar amount for this engine's
// configured percentage.
func (s *MomentumScalp) CalculatePositionSize(_ *market.Context, accountValue decimal.Decimal) decimal.Decimal {
	return sizeFromPct(accountValue, s.cfg.PositionSizePct)
}

// ResetDaily clears positions and the crossover memory for a new session.
func (s *MomentumScalp) ResetDaily() {
	s.positions = make(map[string]struct{})
	s.lastMACDSide = make(map[string]string)
	s.log.Info("daily state reset")
}
