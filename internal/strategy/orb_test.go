package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

func newTestORB(t *testing.T) *ORB {
	t.Helper()
	loc := easternTZ(t)
	s := NewORB(DefaultORBConfig(), loc, zap.NewNop())
	s.now = etClock(loc, 10, 0)
	return s
}

// rangedORB is a trading-period ORB with a 449-451 range on SPY.
func rangedORB(t *testing.T) *ORB {
	t.Helper()
	loc := easternTZ(t)
	s := NewORB(DefaultORBConfig(), loc, zap.NewNop())
	s.now = etClock(loc, 9, 40)
	s.UpdateOpeningRange("SPY", decimal.NewFromInt(451), decimal.NewFromInt(449))
	s.now = etClock(loc, 10, 0)
	return s
}

func TestORBOpeningRangeTracking(t *testing.T) {
	loc := easternTZ(t)
	s := NewORB(DefaultORBConfig(), loc, zap.NewNop())

	s.now = etClock(loc, 9, 35)
	s.UpdateOpeningRange("SPY", decimal.NewFromInt(450), decimal.RequireFromString("449.50"))
	s.UpdateOpeningRange("SPY", decimal.NewFromInt(451), decimal.NewFromInt(450))
	s.UpdateOpeningRange("SPY", decimal.RequireFromString("450.50"), decimal.NewFromInt(449))

	rng := s.GetOpeningRange("SPY")
	require.NotNil(t, rng)
	assert.True(t, rng.High.Equal(decimal.NewFromInt(451)))
	assert.True(t, rng.Low.Equal(decimal.NewFromInt(449)))

	// Updates after the range period are ignored.
	s.now = etClock(loc, 10, 0)
	s.UpdateOpeningRange("SPY", decimal.NewFromInt(460), decimal.NewFromInt(440))
	rng = s.GetOpeningRange("SPY")
	assert.True(t, rng.High.Equal(decimal.NewFromInt(451)))
	assert.True(t, rng.Low.Equal(decimal.NewFromInt(449)))

	assert.Nil(t, s.GetOpeningRange("QQQ"))
}

func TestORBBreakoutLong(t *testing.T) {
	s := rangedORB(t)

	// 451 * 1.001 = 451.451; just above qualifies.
	sig := s.ShouldEnter(newCtx("SPY", "451.46", 10_000_000))
	require.NotNil(t, sig)
	assert.Equal(t, market.SideBuy, sig.Side)
	assert.Equal(t, "SPY", sig.Symbol)
	assert.True(t, sig.StopLoss.LessThan(sig.EntryPrice))
	assert.True(t, sig.TakeProfit.GreaterThan(sig.EntryPrice))
	assert.InDelta(t, 0.7, sig.Confidence, 0.0001)
	assert.Equal(t, 10.0, sig.PositionSizePct)

	// Inside the threshold band there is no signal.
	assert.Nil(t, rangedORB(t).ShouldEnter(newCtx("SPY", "451.20", 10_000_000)))
}

func TestORBBreakdownShort(t *testing.T) {
	s := rangedORB(t)

	// 449 * 0.999 = 448.551; just below qualifies.
	sig := s.ShouldEnter(newCtx("SPY", "448.50", 10_000_000))
	require.NotNil(t, sig)
	assert.Equal(t, market.SideSell, sig.Side)
	assert.True(t, sig.StopLoss.GreaterThan(sig.EntryPrice))
	assert.True(t, sig.TakeProfit.LessThan(sig.EntryPrice))
}

func TestORBEntryFilters(t *testing.T) {
	t.Run("no range established", func(t *testing.T) {
		s := newTestORB(t)
		assert.Nil(t, s.ShouldEnter(newCtx("SPY", "460", 10_000_000)))
	})

	t.Run("symbol not allowed", func(t *testing.T) {
		s := rangedORB(t)
		assert.Nil(t, s.ShouldEnter(newCtx("AAPL", "460", 10_000_000)))
	})

	t.Run("during range period", func(t *testing.T) {
		s := rangedORB(t)
		s.now = etClock(s.loc, 9, 40)
		assert.Nil(t, s.ShouldEnter(newCtx("SPY", "452", 10_000_000)))
	})

	t.Run("after exit time", func(t *testing.T) {
		s := rangedORB(t)
		s.now = etClock(s.loc, 15, 50)
		assert.Nil(t, s.ShouldEnter(newCtx("SPY", "452", 10_000_000)))
	})

	t.Run("already in position", func(t *testing.T) {
		s := rangedORB(t)
		s.AddPosition("SPY")
		assert.Nil(t, s.ShouldEnter(newCtx("SPY", "452", 10_000_000)))
	})

	t.Run("max positions", func(t *testing.T) {
		s := rangedORB(t)
		s.AddPosition("QQQ")
		s.AddPosition("IWM")
		s.AddPosition("DIA")
		assert.Nil(t, s.ShouldEnter(newCtx("SPY", "452", 10_000_000)))
	})

	t.Run("volume too low", func(t *testing.T) {
		s := rangedORB(t)
		assert.Nil(t, s.ShouldEnter(newCtx("SPY", "452", 1_000_000)))
	})

	t.Run("disabled", func(t *testing.T) {
		s := rangedORB(t)
		s.Disable("testing")
		assert.Nil(t, s.ShouldEnter(newCtx("SPY", "452", 10_000_000)))
	})
}

func TestORBExits(t *testing.T) {
	s := newTestORB(t)
	entry := decimal.NewFromInt(450)

	exit, _ := s.ShouldExit(newCtx("SPY", "450.50", 10_000_000), entry, market.SideBuy)
	assert.False(t, exit)

	// Stop at 1% below entry.
	exit, reason := s.ShouldExit(newCtx("SPY", "445.50", 10_000_000), entry, market.SideBuy)
	assert.True(t, exit)
	assert.Contains(t, reason, "Stop loss")

	// Target at 2% above entry.
	exit, reason = s.ShouldExit(newCtx("SPY", "459", 10_000_000), entry, market.SideBuy)
	assert.True(t, exit)
	assert.Contains(t, reason, "Take profit")

	// Short side mirrors.
	exit, reason = s.ShouldExit(newCtx("SPY", "454.50", 10_000_000), entry, market.SideSell)
	assert.True(t, exit)
	assert.Contains(t, reason, "Stop loss")

	// Force flat at 15:45.
	s.now = etClock(s.loc, 15, 45)
	exit, reason = s.ShouldExit(newCtx("SPY", "450.10", 10_000_000), entry, market.SideBuy)
	assert.True(t, exit)
	assert.Contains(t, reason, "Forced exit")
}

func TestORBDisablePreservesRange(t *testing.T) {
	s := rangedORB(t)
	require.NotNil(t, s.GetOpeningRange("SPY"))

	s.Disable("consecutive losses")
	assert.Nil(t, s.ShouldEnter(newCtx("SPY", "452", 10_000_000)))
	assert.NotNil(t, s.GetOpeningRange("SPY"), "disable must not clear working memory")

	s.Enable()
	sig := s.ShouldEnter(newCtx("SPY", "452", 10_000_000))
	assert.NotNil(t, sig, "re-enabled strategy trades on the preserved range")
}

func TestORBResetDaily(t *testing.T) {
	s := rangedORB(t)
	s.AddPosition("SPY")

	s.ResetDaily()
	assert.Nil(t, s.GetOpeningRange("SPY"))
	assert.Equal(t, 0, s.OpenPositionCount())
	assert.True(t, s.IsActive(), "reset does not change the lifecycle flag")
}

func TestORBPositionSize(t *testing.T) {
	s := newTestORB(t)
	size := s.CalculatePositionSize(newCtx("SPY", "450", 10_000_000), decimal.NewFromInt(100000))
	assert.True(t, size.Equal(decimal.NewFromInt(10000)))
}
