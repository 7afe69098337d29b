package risk

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

// PositionSize is the sizer's output. Shares is always a whole number;
// fractional shares are never requested.
type PositionSize struct {
	Shares          int64
	DollarAmount    decimal.Decimal
	RiskAmount      decimal.Decimal
	PositionPct     float64
	Valid           bool
	RejectionReason string
}

// SizerConfig holds the sizing limits.
type SizerConfig struct {
	MaxPositionSizePct float64
	RiskPerTradePct    float64
}

// PositionSizer converts a validated signal into a whole-share order
// quantity. Share counts round down, never up.
type PositionSizer struct {
	cfg SizerConfig
	log *zap.Logger
}

// NewPositionSizer creates a sizer. Limits are validated here.
func NewPositionSizer(cfg SizerConfig, log *zap.Logger) (*PositionSizer, error) {
	if cfg.MaxPositionSizePct <= 0 || cfg.MaxPositionSizePct > 100 {
		return nil, fmt.Errorf("max position size must be in (0, 100], got %.2f", cfg.MaxPositionSizePct)
	}
	if cfg.RiskPerTradePct <= 0 || cfg.RiskPerTradePct > 100 {
		return nil, fmt.Errorf("risk per trade must be in (0, 100], got %.2f", cfg.RiskPerTradePct)
	}
	return &PositionSizer{cfg: cfg, log: log}, nil
}

func rejected(reason string) PositionSize {
	return PositionSize{
		DollarAmount:    decimal.Zero,
		RiskAmount:      decimal.Zero,
		Valid:           false,
		RejectionReason: reason,
	}
}

// CalculateFixedPercentage sizes a position as a fixed fraction of account
// value, capped at the configured maximum.
func (s *PositionSizer) CalculateFixedPercentage(accountValue, price decimal.Decimal, positionPct float64) PositionSize {
	if price.LessThanOrEqual(decimal.Zero) {
		return rejected(fmt.Sprintf("Invalid price: $%s", price))
	}
	if positionPct <= 0 {
		return rejected(fmt.Sprintf("Invalid position percentage: %.2f", positionPct))
	}

	pct := positionPct
	if pct > s.cfg.MaxPositionSizePct {
		s.log.Debug("position pct capped",
			zap.Float64("requested", positionPct),
			zap.Float64("cap", s.cfg.MaxPositionSizePct))
		pct = s.cfg.MaxPositionSizePct
	}

	target := accountValue.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100))
	shares := target.Div(price).Floor().IntPart()
	if shares < 1 {
		return rejected(fmt.Sprintf(
			"Position too small: $%s buys 0 shares at $%s", target.StringFixed(2), price))
	}

	dollarAmount := price.Mul(decimal.NewFromInt(shares))
	return PositionSize{
		Shares:       shares,
		DollarAmount: dollarAmount,
		RiskAmount:   decimal.Zero,
		PositionPct:  dollarAmount.Div(accountValue).Mul(decimal.NewFromInt(100)).InexactFloat64(),
		Valid:        true,
	}
}

// CalculateRiskBased sizes a position so that hitting the stop loses at
// most RiskPerTradePct of account value, or the per-call override when
// one is given. The fixed-percentage cap still dominates: a wide stop
// shrinks the position, a tight stop cannot grow it past the cap.
func (s *PositionSizer) CalculateRiskBased(accountValue, entryPrice, stopLoss decimal.Decimal, side market.OrderSide, riskPctOverride ...float64) PositionSize {
	if entryPrice.LessThanOrEqual(decimal.Zero) {
		return rejected(fmt.Sprintf("Invalid entry price: $%s", entryPrice))
	}

	riskPct := s.cfg.RiskPerTradePct
	if len(riskPctOverride) > 0 && riskPctOverride[0] > 0 {
		riskPct = riskPctOverride[0]
	}

	var riskPerShare decimal.Decimal
	if side == market.SideBuy {
		riskPerShare = entryPrice.Sub(stopLoss)
	} else {
		riskPerShare = stopLoss.Sub(entryPrice)
	}
	if riskPerShare.LessThanOrEqual(decimal.Zero) {
		return rejected(fmt.Sprintf(
			"Stop loss $%s on wrong side of entry $%s for %s", stopLoss, entryPrice, side))
	}

	riskBudget := accountValue.Mul(decimal.NewFromFloat(riskPct)).Div(decimal.NewFromInt(100))
	shares := riskBudget.Div(riskPerShare).Floor().IntPart()

	maxValue := accountValue.Mul(decimal.NewFromFloat(s.cfg.MaxPositionSizePct)).Div(decimal.NewFromInt(100))
	maxShares := maxValue.Div(entryPrice).Floor().IntPart()
	if shares > maxShares {
		shares = maxShares
	}

	if shares < 1 {
		return rejected(fmt.Sprintf(
			"Risk budget $%s buys 0 shares with $%s risk per share",
			riskBudget.StringFixed(2), riskPerShare.StringFixed(2)))
	}

	dollarAmount := entryPrice.Mul(decimal.NewFromInt(shares))
	return PositionSize{
		Shares:       shares,
		DollarAmount: dollarAmount,
		RiskAmount:   riskPerShare.Mul(decimal.NewFromInt(shares)),
		PositionPct:  dollarAmount.Div(accountValue).Mul(decimal.NewFromInt(100)).InexactFloat64(),
		Valid:        true,
	}
}

// ValidatePosition re-checks a sized position against the per-position cap
// and the deployed-capital ceiling before it goes to the order path. This
// runs independently of the pre-trade validator on purpose.
func (s *PositionSizer) ValidatePosition(size PositionSize, accountValue, currentPositionsValue decimal.Decimal) (bool, string) {
	if !size.Valid {
		return false, size.RejectionReason
	}

	if size.PositionPct > s.cfg.MaxPositionSizePct {
		return false, fmt.Sprintf("Position %.1f%% exceeds limit %.1f%%",
			size.PositionPct, s.cfg.MaxPositionSizePct)
	}

	newTotal := currentPositionsValue.Add(size.DollarAmount)
	newDeployedPct := newTotal.Div(accountValue).Mul(decimal.NewFromInt(100))
	if newDeployedPct.GreaterThan(decimal.NewFromInt(maxExposurePct)) {
		return false, fmt.Sprintf("Total exposure %s%% would exceed limit %d%%",
			newDeployedPct.StringFixed(1), maxExposurePct)
	}

	return true, "Position size OK"
}

// AdjustForVolatility rescales a sized position by how the symbol's
// current ATR compares to its recent average. High volatility shrinks the
// position, low volatility grows it, bounded to [0.5x, 1.5x]. An
// adjustment that rounds to zero shares invalidates the position.
func (s *PositionSizer) AdjustForVolatility(base PositionSize, atr, avgATR float64) PositionSize {
	if !base.Valid || base.Shares < 1 || atr <= 0 || avgATR <= 0 {
		return base
	}

	factor := avgATR / atr
	if factor < 0.5 {
		factor = 0.5
	}
	if factor > 1.5 {
		factor = 1.5
	}

	adjusted := decimal.NewFromInt(base.Shares).Mul(decimal.NewFromFloat(factor)).RoundBank(0).IntPart()
	if adjusted < 1 {
		return rejected("Volatility adjustment resulted in zero shares")
	}
	if adjusted == base.Shares {
		return base
	}

	s.log.Debug("volatility-adjusted position",
		zap.Int64("original_shares", base.Shares),
		zap.Int64("adjusted_shares", adjusted),
		zap.Float64("factor", factor))

	ratio := decimal.NewFromInt(adjusted).Div(decimal.NewFromInt(base.Shares))
	return PositionSize{
		Shares:       adjusted,
		DollarAmount: base.DollarAmount.Mul(ratio),
		RiskAmount:   base.RiskAmount.Mul(ratio),
		PositionPct:  base.PositionPct * ratio.InexactFloat64(),
		Valid:        true,
	}
}
