package strategy

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

// Signal is a proposed trade produced by a strategy. It is immutable after
// creation and consumed exactly once by the trade validator.
type Signal struct {
	Symbol          string
	Side            market.OrderSide
	EntryPrice      decimal.Decimal
	StopLoss        decimal.Decimal
	TakeProfit      decimal.Decimal
	PositionSizePct float64
	Confidence      float64
	Reasoning       string
	Indicators      map[string]any
	GeneratedAt     time.Time
}

// RiskRewardRatio returns reward per unit of risk based on the signal's
// entry, stop, and target. Zero when the stop distance is zero.
func (s *Signal) RiskRewardRatio() float64 {
	risk := s.EntryPrice.Sub(s.StopLoss).Abs()
	if risk.IsZero() {
		return 0
	}
	reward := s.TakeProfit.Sub(s.EntryPrice).Abs()
	return reward.Div(risk).InexactFloat64()
}
