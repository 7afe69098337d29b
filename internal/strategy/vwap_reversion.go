package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

// VWAPReversionConfig holds the mean-reversion parameters
type VWAPReversionConfig struct {
	DeviationThresholdPct float64  `json:"deviation_threshold_pct"` // Minimum stretch from VWAP
	RSIOversold           float64  `json:"rsi_oversold"`
	RSIOverbought         float64  `json:"rsi_overbought"`
	TargetPct             float64  `json:"target_pct"` // Buffer short of VWAP for the target
	StopLossPct           float64  `json:"stop_loss_pct"`
	MaxHoldMinutes        int      `json:"max_hold_minutes"`
	PositionSizePct       float64  `json:"position_size_pct"`
	MaxPositions          int      `json:"max_positions"`
	AllowedSymbols        []string `json:"allowed_symbols"`
	MinVolume             int64    `json:"min_volume"`
}

// DefaultVWAPReversionConfig returns the standard reversion parameters.
func DefaultVWAPReversionConfig() VWAPReversionConfig {
	return VWAPReversionConfig{
		DeviationThresholdPct: 1.5,
		RSIOversold:           30.0,
		RSIOverbought:         70.0,
		TargetPct:             0.2,
		StopLossPct:           0.8,
		MaxHoldMinutes:        60,
		PositionSizePct:       8.0,
		MaxPositions:          4,
		AllowedSymbols:        Tier2Symbols,
		MinVolume:             1_000,
	}
}

// vwapEntry records when and where a reversion position was opened, for
// the max-hold-time exit.
type vwapEntry struct {
	at    time.Time
	price decimal.Decimal
	vwap  decimal.Decimal
}

// VWAPReversion fades extreme deviations from VWAP on large-cap names,
// confirmed by RSI.
type VWAPReversion struct {
	tracker
	cfg     VWAPReversionConfig
	now     func() time.Time
	entries map[string]vwapEntry
}

// NewVWAPReversion creates the VWAP mean-reversion engine.
func NewVWAPReversion(cfg VWAPReversionConfig, loc *time.Location, log *zap.Logger) *VWAPReversion {
	s := &VWAPReversion{
		tracker: newTracker("VWAP Mean Reversion", 5.0, cfg.MinVolume, log),
		cfg:     cfg,
		entries: make(map[string]vwapEntry),
	}
	s.now = func() time.Time { return time.Now().In(loc) }
	return s
}

// vwapDeviation returns price's percentage distance from vwap, signed.
func vwapDeviation(price, vwap decimal.Decimal) float64 {
	return price.Sub(vwap).Div(vwap).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// ShouldEnter fades a stretch beyond the deviation threshold when RSI
// confirms. Requires VWAP and RSI; absence of either produces no signal.
func (s *VWAPReversion) ShouldEnter(ctx *market.Context) *Signal {
	symbol := ctx.Symbol

	if ok, _ := s.validateEntry(ctx); !ok {
		return nil
	}
	if !contains(s.cfg.AllowedSymbols, symbol) {
		return nil
	}
	if s.HasPosition(symbol) {
		return nil
	}
	if s.OpenPositionCount() >= s.cfg.MaxPositions {
		return nil
	}
	if ctx.VWAP == nil || ctx.RSI == nil {
		return nil
	}

	price := ctx.CurrentPrice
	vwap := *ctx.VWAP
	rsi := *ctx.RSI
	deviation := vwapDeviation(price, vwap)

	indicators := map[string]any{
		"vwap":          vwap.String(),
		"deviation_pct": deviation,
		"rsi":           rsi,
		"current_price": price.String(),
		"volume":        ctx.Volume,
	}

	var signal *Signal

	switch {
	case deviation < -s.cfg.DeviationThresholdPct && rsi < s.cfg.RSIOversold:
		stop := stopLossFor(price, s.cfg.StopLossPct, market.SideBuy)
		target := pctOf(vwap, s.cfg.TargetPct, false)

		signal = &Signal{
			Symbol:          symbol,
			Side:            market.SideBuy,
			EntryPrice:      price,
			StopLoss:        stop,
			TakeProfit:      target,
			PositionSizePct: s.cfg.PositionSizePct,
			Confidence:      0.65 + absFloat(deviation)/100,
			Reasoning: fmt.Sprintf(
				"VWAP LONG: %s is %.2f%% below VWAP ($%s). RSI oversold at %.1f. Target: $%s, Stop: $%s",
				symbol, deviation, vwap, rsi, target, stop),
			Indicators:  indicators,
			GeneratedAt: s.now(),
		}

	case deviation > s.cfg.DeviationThresholdPct && rsi > s.cfg.RSIOverbought:
		stop := stopLossFor(price, s.cfg.StopLossPct, market.SideSell)
		target := pctOf(vwap, s.cfg.TargetPct, true)

		signal = &Signal{
			Symbol:          symbol,
			Side:            market.SideSell,
			EntryPrice:      price,
			StopLoss:        stop,
			TakeProfit:      target,
			PositionSizePct: s.cfg.PositionSizePct,
			Confidence:      0.65 + absFloat(deviation)/100,
			Reasoning: fmt.Sprintf(
				"VWAP SHORT: %s is %.2f%% above VWAP ($%s). RSI overbought at %.1f. Target: $%s, Stop: $%s",
				symbol, deviation, vwap, rsi, target, stop),
			Indicators:  indicators,
			GeneratedAt: s.now(),
		}
	}

	if signal != nil {
		s.entries[symbol] = vwapEntry{at: s.now(), price: price, vwap: vwap}
		s.log.Info("VWAP reversion signal",
			zap.String("symbol", symbol),
			zap.String("side", string(signal.Side)),
			zap.Float64("deviation_pct", deviation),
			zap.Float64("rsi", rsi))
	}

	return signal
}

// ShouldExit closes on stop, reversion to VWAP, or max holding time.
func (s *VWAPReversion) ShouldExit(ctx *market.Context, entryPrice decimal.Decimal, side market.OrderSide) (bool, string) {
	symbol := ctx.Symbol
	price := ctx.CurrentPrice

	if entry, ok := s.entries[symbol]; ok {
		held := s.now().Sub(entry.at)
		if held >= time.Duration(s.cfg.MaxHoldMinutes)*time.Minute {
			return true, fmt.Sprintf("Max holding time (%d min) exceeded", s.cfg.MaxHoldMinutes)
		}
	}

	stop := stopLossFor(entryPrice, s.cfg.StopLossPct, side)
	if side == market.SideBuy && price.LessThanOrEqual(stop) {
		return true, fmt.Sprintf("Stop loss hit at $%s", price)
	}
	if side == market.SideSell && price.GreaterThanOrEqual(stop) {
		return true, fmt.Sprintf("Stop loss hit at $%s", price)
	}

	if ctx.VWAP != nil {
		deviation := absFloat(vwapDeviation(price, *ctx.VWAP))
		if deviation <= s.cfg.TargetPct {
			return true, fmt.Sprintf("Price reverted to VWAP (deviation: %.2f%%)", deviation)
		}
	}

	return false, ""
}

// CalculatePositionSize returns the dollar amount for this engine's
// configured percentage.
func (s *VWAPReversion) CalculatePositionSize(_ *market.Context, accountValue decimal.Decimal) decimal.Decimal {
	return sizeFromPct(accountValue, s.cfg.PositionSizePct)
}

// RemovePosition also drops the hold-time entry record.
func (s *VWAPReversion) RemovePosition(symbol string) {
	s.tracker.RemovePosition(symbol)
	delete(s.entries, symbol)
}

// ResetDaily clears positions and entry records for a new session.
func (s *VWAPReversion) ResetDaily() {
	s.positions = make(map[string]struct{})
	s.entries = make(map[string]vwapEntry)
	s.log.Info("daily state reset")
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
