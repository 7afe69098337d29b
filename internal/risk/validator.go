package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/equity-trading-agent/internal/market"
	"github.com/ducminhle1904/equity-trading-agent/internal/strategy"
)

// Validation failure codes. These feed funnel counters downstream and must
// stay stable across versions.
const (
	CodeMarketHours           = "market_hours"
	CodeNoStopLoss            = "no_stop_loss"
	CodeInvalidStopLoss       = "invalid_stop_loss"
	CodePositionSize          = "position_size"
	CodeBuyingPower           = "buying_power"
	CodeDaytradingBuyingPower = "daytrading_buying_power"
	CodeMaxPositions          = "max_positions"
	CodeMaxExposure           = "max_exposure"
	CodeMinPrice              = "min_price"
)

// maxExposurePct is the deployed-capital ceiling across all positions.
// Fixed by the risk mandate, deliberately not configurable.
const maxExposurePct = 60

// minStockPrice is the absolute floor for a tradeable instrument.
var minStockPrice = decimal.NewFromInt(5)

// symbolBlacklist lists leveraged/inverse instruments that are never
// traded regardless of signal quality.
var symbolBlacklist = map[string]struct{}{
	"TQQQ": {},
	"SQQQ": {},
	"UVXY": {},
	"SVXY": {},
}

// ValidationResult is the trade gate's verdict. FailureCode is set only
// when Valid is false.
type ValidationResult struct {
	Valid       bool
	Reason      string
	Warnings    []string
	FailureCode string
}

// Account is the broker snapshot the validator checks a signal against.
// DaytradingBuyingPower is nil when the broker does not report one.
type Account struct {
	Value                 decimal.Decimal
	BuyingPower           decimal.Decimal
	OpenPositions         int
	OpenPositionsValue    decimal.Decimal
	DaytradingBuyingPower *decimal.Decimal
	IsPatternDayTrader    bool
}

// ValidatorConfig holds the configurable limits of the trade gate.
type ValidatorConfig struct {
	MaxPositionSizePct     float64
	MaxConcurrentPositions int
	Hours                  MarketHours
}

// TradeValidator is the stateless pre-trade compliance gate. Checks run in
// a fixed order and short-circuit on the first failure; warnings accumulate
// across checks that pass.
type TradeValidator struct {
	cfg ValidatorConfig
	log *zap.Logger
	now func() time.Time
}

// NewTradeValidator creates the gate. Limits are validated here.
func NewTradeValidator(cfg ValidatorConfig, log *zap.Logger) (*TradeValidator, error) {
	if cfg.MaxPositionSizePct <= 0 || cfg.MaxPositionSizePct > 100 {
		return nil, fmt.Errorf("max position size must be in (0, 100], got %.2f", cfg.MaxPositionSizePct)
	}
	if cfg.MaxConcurrentPositions < 1 {
		return nil, fmt.Errorf("max concurrent positions must be at least 1, got %d", cfg.MaxConcurrentPositions)
	}
	if cfg.Hours.Location == nil {
		return nil, fmt.Errorf("validator requires market hours with a timezone")
	}

	v := &TradeValidator{cfg: cfg, log: log}
	v.now = func() time.Time { return time.Now().In(cfg.Hours.Location) }
	return v, nil
}

func reject(code, reason string, warnings []string) ValidationResult {
	return ValidationResult{Valid: false, Reason: reason, Warnings: warnings, FailureCode: code}
}

// ValidateSignal runs the full pre-trade check sequence against a signal
// and the current account snapshot.
func (v *TradeValidator) ValidateSignal(sig *strategy.Signal, acct Account) ValidationResult {
	var warnings []string

	// 1. Market hours
	if inHours, reason := v.cfg.Hours.InSession(v.now()); !inHours {
		return reject(CodeMarketHours, reason, warnings)
	}

	// 2. Stop loss present
	if sig.StopLoss.LessThanOrEqual(decimal.Zero) {
		return reject(CodeNoStopLoss,
			"Stop loss not set - all trades MUST have a stop loss", warnings)
	}

	// 3. Stop loss on the correct side of entry
	var stopDistancePct float64
	if sig.Side == market.SideBuy {
		if sig.StopLoss.GreaterThanOrEqual(sig.EntryPrice) {
			return reject(CodeInvalidStopLoss, fmt.Sprintf(
				"Invalid stop loss $%s >= entry $%s for BUY", sig.StopLoss, sig.EntryPrice), warnings)
		}
		stopDistancePct = sig.EntryPrice.Sub(sig.StopLoss).Div(sig.EntryPrice).Mul(decimal.NewFromInt(100)).InexactFloat64()
	} else {
		if sig.StopLoss.LessThanOrEqual(sig.EntryPrice) {
			return reject(CodeInvalidStopLoss, fmt.Sprintf(
				"Invalid stop loss $%s <= entry $%s for SELL", sig.StopLoss, sig.EntryPrice), warnings)
		}
		stopDistancePct = sig.StopLoss.Sub(sig.EntryPrice).Div(sig.EntryPrice).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	if stopDistancePct < 0.3 {
		warnings = append(warnings, fmt.Sprintf(
			"Stop loss very tight (%.2f%%) - may trigger on noise", stopDistancePct))
	}
	if stopDistancePct > 5.0 {
		warnings = append(warnings, fmt.Sprintf(
			"Stop loss very wide (%.2f%%) - large potential loss", stopDistancePct))
	}

	// 4. Position size cap
	positionValue := acct.Value.Mul(decimal.NewFromFloat(sig.PositionSizePct)).Div(decimal.NewFromInt(100))
	maxPositionValue := acct.Value.Mul(decimal.NewFromFloat(v.cfg.MaxPositionSizePct)).Div(decimal.NewFromInt(100))
	if positionValue.GreaterThan(maxPositionValue) {
		return reject(CodePositionSize, fmt.Sprintf(
			"Position $%s exceeds max $%s",
			positionValue.StringFixed(2), maxPositionValue.StringFixed(2)), warnings)
	}

	// 5. Buying power. PDT accounts get intraday leverage that does not
	// carry overnight, so they must be checked against the day-trading
	// figure specifically.
	if acct.IsPatternDayTrader && acct.DaytradingBuyingPower != nil {
		if positionValue.GreaterThan(*acct.DaytradingBuyingPower) {
			v.log.Warn("day-trading buying power exceeded",
				zap.String("position_value", positionValue.StringFixed(2)),
				zap.String("daytrading_buying_power", acct.DaytradingBuyingPower.StringFixed(2)),
				zap.String("regt_buying_power", acct.BuyingPower.StringFixed(2)))
			return reject(CodeDaytradingBuyingPower, fmt.Sprintf(
				"Insufficient day trading buying power (need $%s, have $%s DT BP, $%s RegT BP)",
				positionValue.StringFixed(2), acct.DaytradingBuyingPower.StringFixed(2),
				acct.BuyingPower.StringFixed(2)), warnings)
		}
	} else if positionValue.GreaterThan(acct.BuyingPower) {
		return reject(CodeBuyingPower, fmt.Sprintf(
			"Insufficient buying power (need $%s, have $%s)",
			positionValue.StringFixed(2), acct.BuyingPower.StringFixed(2)), warnings)
	}

	// 6. Concurrent position cap
	if acct.OpenPositions >= v.cfg.MaxConcurrentPositions {
		return reject(CodeMaxPositions, fmt.Sprintf(
			"Max concurrent positions (%d) reached", v.cfg.MaxConcurrentPositions), warnings)
	}

	// 7. Total deployed exposure
	newExposure := acct.OpenPositionsValue.Add(positionValue)
	maxExposure := acct.Value.Mul(decimal.NewFromInt(maxExposurePct)).Div(decimal.NewFromInt(100))
	if newExposure.GreaterThan(maxExposure) {
		return reject(CodeMaxExposure, fmt.Sprintf(
			"Would exceed max exposure (new total $%s > max $%s)",
			newExposure.StringFixed(2), maxExposure.StringFixed(2)), warnings)
	}

	// 8. Minimum tradeable price
	if sig.EntryPrice.LessThan(minStockPrice) {
		return reject(CodeMinPrice, fmt.Sprintf(
			"Price $%s below minimum $%s", sig.EntryPrice, minStockPrice), warnings)
	}

	// 9. Non-fatal quality checks
	if rr := sig.RiskRewardRatio(); rr < 1.0 {
		warnings = append(warnings, fmt.Sprintf(
			"Risk/reward ratio %.2f < 1.0 - consider better entry", rr))
	}
	if sig.Confidence < 0.5 {
		warnings = append(warnings, fmt.Sprintf("Low confidence signal (%.2f)", sig.Confidence))
	}

	v.log.Debug("signal validated",
		zap.String("symbol", sig.Symbol),
		zap.String("side", string(sig.Side)),
		zap.String("entry", sig.EntryPrice.String()),
		zap.String("stop", sig.StopLoss.String()),
		zap.Float64("position_pct", sig.PositionSizePct))

	return ValidationResult{Valid: true, Reason: "All validation checks passed", Warnings: warnings}
}

// ValidateExit never blocks an exit; leaving a position must always be
// possible. It only annotates warnings for large losses or for exiting
// outside normal hours.
func (v *TradeValidator) ValidateExit(symbol string, currentPrice, entryPrice decimal.Decimal, side market.OrderSide) ValidationResult {
	var warnings []string

	var pnlPct float64
	if side == market.SideBuy {
		pnlPct = currentPrice.Sub(entryPrice).Div(entryPrice).Mul(decimal.NewFromInt(100)).InexactFloat64()
	} else {
		pnlPct = entryPrice.Sub(currentPrice).Div(entryPrice).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}
	if pnlPct < -2.0 {
		warnings = append(warnings, fmt.Sprintf("Large loss on exit: %.2f%%", pnlPct))
	}

	if inHours, reason := v.cfg.Hours.InSession(v.now()); !inHours {
		// Emergency exits outside hours are legitimate
		warnings = append(warnings, fmt.Sprintf("Exiting outside normal hours: %s", reason))
	}

	return ValidationResult{Valid: true, Reason: "Exit validated", Warnings: warnings}
}

// CanTradeSymbol rejects instruments on the static blacklist, independent
// of the main validation pipeline.
func (v *TradeValidator) CanTradeSymbol(symbol string) (bool, string) {
	if _, banned := symbolBlacklist[strings.ToUpper(symbol)]; banned {
		return false, fmt.Sprintf("%s is on the blacklist (leveraged/inverse ETF)", symbol)
	}
	return true, "Symbol allowed"
}
