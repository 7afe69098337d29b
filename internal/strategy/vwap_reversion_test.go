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

func newTestVWAP(t *testing.T) *VWAPReversion {
	t.Helper()
	loc := easternTZ(t)
	s := NewVWAPReversion(DefaultVWAPReversionConfig(), loc, zap.NewNop())
	s.now = etClock(loc, 11, 0)
	return s
}

// stretchedCtx is an AAPL context 2% below a $200 VWAP with oversold RSI.
func stretchedCtx() *market.Context {
	ctx := newCtx("AAPL", "196", 2_000_000)
	ctx.VWAP = market.Dec("200")
	ctx.RSI = market.Float(25)
	return ctx
}

func TestVWAPReversionLong(t *testing.T) {
	s := newTestVWAP(t)

	sig := s.ShouldEnter(stretchedCtx())
	require.NotNil(t, sig)
	assert.Equal(t, market.SideBuy, sig.Side)
	// Target sits TargetPct short of VWAP: 200 * 0.998.
	assert.True(t, sig.TakeProfit.Equal(decimal.RequireFromString("199.6")))
	assert.True(t, sig.StopLoss.LessThan(sig.EntryPrice))
	assert.InDelta(t, 0.67, sig.Confidence, 0.001, "confidence scales with the stretch")
	assert.False(t, s.HasPosition("AAPL"), "signal alone does not open a position")
}

func TestVWAPReversionShort(t *testing.T) {
	s := newTestVWAP(t)

	ctx := newCtx("AAPL", "204", 2_000_000)
	ctx.VWAP = market.Dec("200")
	ctx.RSI = market.Float(75)

	sig := s.ShouldEnter(ctx)
	require.NotNil(t, sig)
	assert.Equal(t, market.SideSell, sig.Side)
	assert.True(t, sig.TakeProfit.Equal(decimal.RequireFromString("200.4")))
	assert.True(t, sig.StopLoss.GreaterThan(sig.EntryPrice))
}

func TestVWAPReversionRequiresIndicators(t *testing.T) {
	s := newTestVWAP(t)

	noVWAP := stretchedCtx()
	noVWAP.VWAP = nil
	assert.Nil(t, s.ShouldEnter(noVWAP))

	noRSI := stretchedCtx()
	noRSI.RSI = nil
	assert.Nil(t, s.ShouldEnter(noRSI))
}

func TestVWAPReversionRequiresBothConditions(t *testing.T) {
	s := newTestVWAP(t)

	// Stretched but RSI not oversold.
	ctx := stretchedCtx()
	ctx.RSI = market.Float(45)
	assert.Nil(t, s.ShouldEnter(ctx))

	// Oversold but inside the deviation threshold.
	ctx = newCtx("AAPL", "199", 2_000_000)
	ctx.VWAP = market.Dec("200")
	ctx.RSI = market.Float(25)
	assert.Nil(t, s.ShouldEnter(ctx))
}

func TestVWAPReversionSymbolUniverse(t *testing.T) {
	s := newTestVWAP(t)

	ctx := stretchedCtx()
	ctx.Symbol = "SPY"
	assert.Nil(t, s.ShouldEnter(ctx), "index ETFs are not in the reversion universe")
}

func TestVWAPReversionMaxHoldExit(t *testing.T) {
	s := newTestVWAP(t)

	sig := s.ShouldEnter(stretchedCtx())
	require.NotNil(t, sig)
	s.AddPosition("AAPL")

	// Still stretched 45 minutes in: hold.
	loc := easternTZ(t)
	s.now = func() time.Time { return time.Date(2025, 6, 10, 11, 45, 0, 0, loc) }
	ctx := newCtx("AAPL", "196.50", 2_000_000)
	ctx.VWAP = market.Dec("200")
	exit, _ := s.ShouldExit(ctx, sig.EntryPrice, market.SideBuy)
	assert.False(t, exit)

	// Past the 60-minute cap: out regardless of price.
	s.now = func() time.Time { return time.Date(2025, 6, 10, 12, 1, 0, 0, loc) }
	exit, reason := s.ShouldExit(ctx, sig.EntryPrice, market.SideBuy)
	assert.True(t, exit)
	assert.Contains(t, reason, "holding time")
}

func TestVWAPReversionTargetExit(t *testing.T) {
	s := newTestVWAP(t)
	entry := decimal.NewFromInt(196)

	// Price back within TargetPct of VWAP.
	ctx := newCtx("AAPL", "199.80", 2_000_000)
	ctx.VWAP = market.Dec("200")
	exit, reason := s.ShouldExit(ctx, entry, market.SideBuy)
	assert.True(t, exit)
	assert.Contains(t, reason, "reverted to VWAP")

	// Stop hit: 196 * 0.992 = 194.432.
	ctx = newCtx("AAPL", "194.40", 2_000_000)
	ctx.VWAP = market.Dec("200")
	exit, reason = s.ShouldExit(ctx, entry, market.SideBuy)
	assert.True(t, exit)
	assert.Contains(t, reason, "Stop loss")
}

func TestVWAPReversionRemovePositionClearsEntry(t *testing.T) {
	s := newTestVWAP(t)

	sig := s.ShouldEnter(stretchedCtx())
	require.NotNil(t, sig)
	s.AddPosition("AAPL")
	require.Contains(t, s.entries, "AAPL")

	s.RemovePosition("AAPL")
	assert.NotContains(t, s.entries, "AAPL")
	assert.False(t, s.HasPosition("AAPL"))
}

func TestVWAPReversionResetDaily(t *testing.T) {
	s := newTestVWAP(t)
	require.NotNil(t, s.ShouldEnter(stretchedCtx()))
	s.AddPosition("AAPL")

	s.ResetDaily()
	assert.Empty(t, s.entries)
	assert.Equal(t, 0, s.OpenPositionCount())
}
