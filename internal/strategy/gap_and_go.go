package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

// GapAndGoConfig holds the overnight-gap parameters
type GapAndGoConfig struct {
	MinGapPct          float64 `json:"min_gap_pct"`          // Minimum overnight gap to register
	EntryDelayMinutes  int     `json:"entry_delay_minutes"`  // Wait after the open before entering
	PullbackPct        float64 `json:"pullback_pct"`         // Retrace from the day extreme that triggers entry
	MinPremarketVolume int64   `json:"min_premarket_volume"` // Pre-market volume floor to register a gap
	StopLossPct        float64 `json:"stop_loss_pct"`
	TakeProfitPct      float64 `json:"take_profit_pct"` // Max profit cap; gap fill may trigger first
	PositionSizePct    float64 `json:"position_size_pct"`
	MaxPositions       int     `json:"max_positions"`
	ExitHour           int     `json:"exit_hour"` // Flat before mid-day chop
	ExitMinute         int     `json:"exit_minute"`
	MinPrice           float64 `json:"min_price"`
	MinVolume          int64   `json:"min_volume"`
}

// DefaultGapAndGoConfig returns the standard gap-trading parameters.
func DefaultGapAndGoConfig() GapAndGoConfig {
	return GapAndGoConfig{
		MinGapPct:          3.0,
		EntryDelayMinutes:  5,
		PullbackPct:        0.5,
		MinPremarketVolume: 200_000,
		StopLossPct:        2.0,
		TakeProfitPct:      5.0,
		PositionSizePct:    15.0,
		MaxPositions:       2,
		ExitHour:           10,
		ExitMinute:         30,
		MinPrice:           10.0,
		MinVolume:          200_000,
	}
}

// Gap records an overnight gap discovered during pre-market scanning.
type Gap struct {
	Symbol          string
	PreviousClose   decimal.Decimal
	PremarketPrice  decimal.Decimal
	GapPercent      float64
	Direction       string // "up" or "down"
	PremarketVolume int64
	DetectedAt      time.Time
}

// dayRange tracks the post-open high/low used to detect the pullback.
type dayRange struct {
	high decimal.Decimal
	low  decimal.Decimal
}

// GapAndGo trades significant overnight gaps on the first pullback after
// the open. Working memory is the registered gap set and the post-open
// price action per symbol.
type GapAndGo struct {
	tracker
	cfg    GapAndGoConfig
	loc    *time.Location
	now    func() time.Time
	gaps   map[string]*Gap
	ranges map[string]*dayRange
}

// NewGapAndGo creates the gap trading engine.
func NewGapAndGo(cfg GapAndGoConfig, loc *time.Location, log *zap.Logger) *GapAndGo {
	s := &GapAndGo{
		tracker: newTracker("Gap and Go", cfg.MinPrice, cfg.MinVolume, log),
		cfg:     cfg,
		loc:     loc,
		gaps:    make(map[string]*Gap),
		ranges:  make(map[string]*dayRange),
	}
	s.now = func() time.Time { return time.Now().In(loc) }
	return s
}

func (s *GapAndGo) minuteOfDay() int {
	now := s.now().In(s.loc)
	return now.Hour()*60 + now.Minute()
}

func (s *GapAndGo) inTradingPeriod() bool {
	m := s.minuteOfDay()
	return m >= 9*60+30+s.cfg.EntryDelayMinutes && m < s.cfg.ExitHour*60+s.cfg.ExitMinute
}

func (s *GapAndGo) shouldForceExit() bool {
	return s.minuteOfDay() >= s.cfg.ExitHour*60+s.cfg.ExitMinute
}

// RegisterGap records a pre-market gap if it clears the size and volume
// floors. Returns the registered gap, nil when rejected.
func (s *GapAndGo) RegisterGap(symbol string, previousClose, premarketPrice decimal.Decimal, premarketVolume int64) *Gap {
	gapPct := premarketPrice.Sub(previousClose).Div(previousClose).Mul(decimal.NewFromInt(100)).InexactFloat64()

	if absFloat(gapPct) < s.cfg.MinGapPct {
		return nil
	}
	if premarketVolume < s.cfg.MinPremarketVolume {
		return nil
	}

	direction := "up"
	if gapPct < 0 {
		direction = "down"
	}

	gap := &Gap{
		Symbol:          symbol,
		PreviousClose:   previousClose,
		PremarketPrice:  premarketPrice,
		GapPercent:      gapPct,
		Direction:       direction,
		PremarketVolume: premarketVolume,
		DetectedAt:      s.now(),
	}
	s.gaps[symbol] = gap

	s.log.Info("gap registered",
		zap.String("symbol", symbol),
		zap.String("direction", direction),
		zap.Float64("gap_pct", gapPct))

	return gap
}

// GetGap returns the registered gap for a symbol, nil if none.
func (s *GapAndGo) GetGap(symbol string) *Gap {
	return s.gaps[symbol]
}

// UpdatePriceAction widens the tracked post-open high/low for a symbol.
func (s *GapAndGo) UpdatePriceAction(symbol string, high, low decimal.Decimal) {
	if r, ok := s.ranges[symbol]; ok {
		r.high = decimal.Max(r.high, high)
		r.low = decimal.Min(r.low, low)
		return
	}
	s.ranges[symbol] = &dayRange{high: high, low: low}
}

// ShouldEnter looks for the first pullback from the day extreme in the
// gap direction.
func (s *GapAndGo) ShouldEnter(ctx *market.Context) *Signal {
	symbol := ctx.Symbol

	if ok, _ := s.validateEntry(ctx); !ok {
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

	gap := s.gaps[symbol]
	if gap == nil {
		return nil
	}
	action := s.ranges[symbol]
	if action == nil {
		return nil
	}

	price := ctx.CurrentPrice
	indicators := map[string]any{
		"gap_percent":     gap.GapPercent,
		"gap_direction":   gap.Direction,
		"previous_close":  gap.PreviousClose.String(),
		"premarket_price": gap.PremarketPrice.String(),
		"current_price":   price.String(),
		"day_high":        action.high.String(),
		"day_low":         action.low.String(),
		"volume":          ctx.Volume,
	}

	if gap.Direction == "up" {
		pullbackLevel := pctOf(action.high, s.cfg.PullbackPct, false)
		if price.GreaterThanOrEqual(pullbackLevel) && price.LessThan(action.high) {
			stop := stopLossFor(price, s.cfg.StopLossPct, market.SideBuy)
			// Target the gap fill unless the profit cap comes first
			target := decimal.Min(gap.PremarketPrice, takeProfitFor(price, s.cfg.TakeProfitPct, market.SideBuy))

			s.log.Info("gap pullback signal",
				zap.String("symbol", symbol), zap.String("direction", "up"))

			return &Signal{
				Symbol:          symbol,
				Side:            market.SideBuy,
				EntryPrice:      price,
				StopLoss:        stop,
				TakeProfit:      target,
				PositionSizePct: s.cfg.PositionSizePct,
				Confidence:      0.65,
				Reasoning: fmt.Sprintf(
					"GAP UP LONG: %s gapped up %.2f%%. Pulled back %.1f%% from high of $%s. Entry: $%s. Target: $%s, Stop: $%s",
					symbol, gap.GapPercent, s.cfg.PullbackPct, action.high, price, target, stop),
				Indicators:  indicators,
				GeneratedAt: s.now(),
			}
		}
		return nil
	}

	pullbackLevel := pctOf(action.low, s.cfg.PullbackPct, true)
	if price.GreaterThan(action.low) && price.LessThanOrEqual(pullbackLevel) {
		stop := stopLossFor(price, s.cfg.StopLossPct, market.SideSell)
		target := decimal.Max(gap.PremarketPrice, takeProfitFor(price, s.cfg.TakeProfitPct, market.SideSell))

		s.log.Info("gap pullback signal",
			zap.String("symbol", symbol), zap.String("direction", "down"))

		return &Signal{
			Symbol:          symbol,
			Side:            market.SideSell,
			EntryPrice:      price,
			StopLoss:        stop,
			TakeProfit:      target,
			PositionSizePct: s.cfg.PositionSizePct,
			Confidence:      0.65,
			Reasoning: fmt.Sprintf(
				"GAP DOWN SHORT: %s gapped down %.2f%%. Pulled back %.1f%% from low of $%s. Entry: $%s. Target: $%s, Stop: $%s",
				symbol, gap.GapPercent, s.cfg.PullbackPct, action.low, price, target, stop),
			Indicators:  indicators,
			GeneratedAt: s.now(),
		}
	}

	return nil
}

// ShouldExit closes on stop, target, or the window-end flat time.
func (s *GapAndGo) ShouldExit(ctx *market.Context, entryPrice decimal.Decimal, side market.OrderSide) (bool, string) {
	price := ctx.CurrentPrice

	if s.shouldForceExit() {
		return true, fmt.Sprintf("Forced exit at %d:%02d ET", s.cfg.ExitHour, s.cfg.ExitMinute)
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
func (s *GapAndGo) CalculatePositionSize(_ *market.Context, accountValue decimal.Decimal) decimal.Decimal {
	return sizeFromPct(accountValue, s.cfg.PositionSizePct)
}

// ResetDaily clears gaps, price action, and positions for a new session.
func (s *GapAndGo) ResetDaily() {
	s.positions = make(map[string]struct{})
	s.gaps = make(map[string]*Gap)
	s.ranges = make(map[string]*dayRange)
	s.log.Info("daily state reset")
}
