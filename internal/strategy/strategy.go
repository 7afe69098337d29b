// Package strategy defines the shared contract the five rule engines
// implement, plus the engines themselves. Strategies own their per-symbol
// working memory and their enabled/disabled lifecycle; the orchestrator
// owns everything else.
package strategy

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

// Strategy is the contract every rule engine satisfies. ShouldEnter
// returns nil when no entry is warranted, including whenever a required
// indicator is missing from the context; it never returns an error.
type Strategy interface {
	Name() string

	ShouldEnter(ctx *market.Context) *Signal
	ShouldExit(ctx *market.Context, entryPrice decimal.Decimal, side market.OrderSide) (bool, string)
	CalculatePositionSize(ctx *market.Context, accountValue decimal.Decimal) decimal.Decimal

	// ResetDaily clears per-symbol working memory at the trading-day
	// boundary. It is the only operation that clears working memory;
	// Disable never does.
	ResetDaily()

	Enable()
	Disable(reason string)
	IsActive() bool

	HasPosition(symbol string) bool
	AddPosition(symbol string)
	RemovePosition(symbol string)
	OpenPositionCount() int
}

// tracker carries the bookkeeping shared by all engines: lifecycle flag,
// open-position set, and the basic entry gate. Engines embed it rather
// than inherit behavior from a base type.
type tracker struct {
	name      string
	active    bool
	reason    string
	downSince time.Time

	minPrice  decimal.Decimal
	minVolume int64

	positions map[string]struct{}
	log       *zap.Logger
}

func newTracker(name string, minPrice float64, minVolume int64, log *zap.Logger) tracker {
	return tracker{
		name:      name,
		active:    true,
		minPrice:  decimal.NewFromFloat(minPrice),
		minVolume: minVolume,
		positions: make(map[string]struct{}),
		log:       log.With(zap.String("strategy", name)),
	}
}

func (t *tracker) Name() string { return t.name }

func (t *tracker) Enable() {
	t.active = true
	t.reason = ""
	t.downSince = time.Time{}
	t.log.Info("strategy enabled")
}

// Disable turns the engine off without touching its working memory, so a
// re-enabled strategy keeps mid-day context it already accumulated.
func (t *tracker) Disable(reason string) {
	t.active = false
	t.reason = reason
	t.downSince = time.Now()
	t.log.Warn("strategy disabled", zap.String("reason", reason))
}

func (t *tracker) IsActive() bool { return t.active }

// DisableReason returns why the strategy was disabled, empty when active.
func (t *tracker) DisableReason() string { return t.reason }

func (t *tracker) HasPosition(symbol string) bool {
	_, ok := t.positions[symbol]
	return ok
}

func (t *tracker) AddPosition(symbol string)    { t.positions[symbol] = struct{}{} }
func (t *tracker) RemovePosition(symbol string) { delete(t.positions, symbol) }
func (t *tracker) OpenPositionCount() int       { return len(t.positions) }

// validateEntry is the gate every engine runs before its own rules:
// strategy must be active, price above the engine's minimum, volume above
// the engine's minimum.
func (t *tracker) validateEntry(ctx *market.Context) (bool, string) {
	if !t.active {
		return false, fmt.Sprintf("strategy disabled: %s", t.reason)
	}
	if ctx.CurrentPrice.LessThan(t.minPrice) {
		return false, fmt.Sprintf("price $%s below minimum $%s", ctx.CurrentPrice, t.minPrice)
	}
	if ctx.Volume < t.minVolume {
		return false, fmt.Sprintf("volume %d below minimum %d", ctx.Volume, t.minVolume)
	}
	return true, ""
}

// pctOf returns price scaled by (1 + pct/100) when up is true, else
// (1 - pct/100). Decimal throughout; no float money math.
func pctOf(price decimal.Decimal, pct float64, up bool) decimal.Decimal {
	f := decimal.NewFromFloat(pct).Div(decimal.NewFromInt(100))
	if up {
		return price.Mul(decimal.NewFromInt(1).Add(f))
	}
	return price.Mul(decimal.NewFromInt(1).Sub(f))
}

// stopLossFor places the stop on the losing side of entry for the side.
func stopLossFor(entry decimal.Decimal, pct float64, side market.OrderSide) decimal.Decimal {
	return pctOf(entry, pct, side == market.SideSell)
}

// takeProfitFor places the target on the winning side of entry.
func takeProfitFor(entry decimal.Decimal, pct float64, side market.OrderSide) decimal.Decimal {
	return pctOf(entry, pct, side == market.SideBuy)
}

// sizeFromPct converts a percentage of account value into dollars.
func sizeFromPct(accountValue decimal.Decimal, pct float64) decimal.Decimal {
	return accountValue.Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100))
}

// contains reports whether symbol is in the allowed set.
func contains(symbols []string, symbol string) bool {
	for _, s := range symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
