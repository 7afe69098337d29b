package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

// Interface compliance for all five engines.
var (
	_ Strategy = (*ORB)(nil)
	_ Strategy = (*VWAPReversion)(nil)
	_ Strategy = (*MomentumScalp)(nil)
	_ Strategy = (*GapAndGo)(nil)
	_ Strategy = (*EODReversal)(nil)
)

func easternTZ(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

// etClock returns a frozen clock at the given ET wall time on a fixed
// weekday (Tuesday 2025-06-10).
func etClock(loc *time.Location, hour, minute int) func() time.Time {
	at := time.Date(2025, 6, 10, hour, minute, 0, 0, loc)
	return func() time.Time { return at }
}

// newCtx builds a market context with the shared test defaults.
func newCtx(symbol string, price string, volume int64) *market.Context {
	p := decimal.RequireFromString(price)
	return &market.Context{
		Symbol:       symbol,
		CurrentPrice: p,
		OpenPrice:    p,
		HighPrice:    p,
		LowPrice:     p,
		Volume:       volume,
		Timestamp:    time.Date(2025, 6, 10, 11, 0, 0, 0, time.UTC),
	}
}

func TestTrackerLifecycle(t *testing.T) {
	tr := newTracker("test", 5.0, 1000, zap.NewNop())

	assert.True(t, tr.IsActive())
	assert.Empty(t, tr.DisableReason())

	tr.Disable("3 consecutive losses")
	assert.False(t, tr.IsActive())
	assert.Equal(t, "3 consecutive losses", tr.DisableReason())

	tr.Enable()
	assert.True(t, tr.IsActive())
	assert.Empty(t, tr.DisableReason())
}

func TestTrackerPositions(t *testing.T) {
	tr := newTracker("test", 5.0, 1000, zap.NewNop())

	assert.False(t, tr.HasPosition("SPY"))
	assert.Equal(t, 0, tr.OpenPositionCount())

	tr.AddPosition("SPY")
	tr.AddPosition("QQQ")
	tr.AddPosition("SPY") // idempotent
	assert.True(t, tr.HasPosition("SPY"))
	assert.Equal(t, 2, tr.OpenPositionCount())

	tr.RemovePosition("SPY")
	assert.False(t, tr.HasPosition("SPY"))
	assert.Equal(t, 1, tr.OpenPositionCount())

	// Removing an unknown symbol is a no-op.
	tr.RemovePosition("IWM")
	assert.Equal(t, 1, tr.OpenPositionCount())
}

func TestValidateEntryGate(t *testing.T) {
	tr := newTracker("test", 5.0, 1000, zap.NewNop())

	ok, _ := tr.validateEntry(newCtx("SPY", "450", 5000))
	assert.True(t, ok)

	ok, reason := tr.validateEntry(newCtx("PENNY", "4.99", 5000))
	assert.False(t, ok)
	assert.Contains(t, reason, "below minimum")

	ok, reason = tr.validateEntry(newCtx("SPY", "450", 999))
	assert.False(t, ok)
	assert.Contains(t, reason, "volume")

	tr.Disable("maintenance")
	ok, reason = tr.validateEntry(newCtx("SPY", "450", 5000))
	assert.False(t, ok)
	assert.Contains(t, reason, "disabled")
}

func TestPriceHelpers(t *testing.T) {
	entry := decimal.NewFromInt(100)

	assert.True(t, pctOf(entry, 2.0, true).Equal(decimal.NewFromInt(102)))
	assert.True(t, pctOf(entry, 2.0, false).Equal(decimal.NewFromInt(98)))

	assert.True(t, stopLossFor(entry, 1.0, market.SideBuy).Equal(decimal.NewFromInt(99)))
	assert.True(t, stopLossFor(entry, 1.0, market.SideSell).Equal(decimal.NewFromInt(101)))
	assert.True(t, takeProfitFor(entry, 2.0, market.SideBuy).Equal(decimal.NewFromInt(102)))
	assert.True(t, takeProfitFor(entry, 2.0, market.SideSell).Equal(decimal.NewFromInt(98)))

	assert.True(t, sizeFromPct(decimal.NewFromInt(100000), 10.0).Equal(decimal.NewFromInt(10000)))
}

func TestSignalRiskRewardRatio(t *testing.T) {
	sig := &Signal{
		Side:       market.SideBuy,
		EntryPrice: decimal.NewFromInt(100),
		StopLoss:   decimal.NewFromInt(98),
		TakeProfit: decimal.NewFromInt(104),
	}
	assert.InDelta(t, 2.0, sig.RiskRewardRatio(), 0.0001)

	short := &Signal{
		Side:       market.SideSell,
		EntryPrice: decimal.NewFromInt(100),
		StopLoss:   decimal.NewFromInt(102),
		TakeProfit: decimal.NewFromInt(97),
	}
	assert.InDelta(t, 1.5, short.RiskRewardRatio(), 0.0001)
}
