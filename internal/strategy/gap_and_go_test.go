package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

func newTestGap(t *testing.T) *GapAndGo {
	t.Helper()
	loc := easternTZ(t)
	s := NewGapAndGo(DefaultGapAndGoConfig(), loc, zap.NewNop())
	s.now = etClock(loc, 9, 45)
	return s
}

// gappedUp is a TSLA gap-up engine: closed 200, pre-market 210 (+5%),
// traded 205-208 after the open.
func gappedUp(t *testing.T) *GapAndGo {
	t.Helper()
	s := newTestGap(t)
	require.NotNil(t, s.RegisterGap("TSLA",
		decimal.NewFromInt(200), decimal.NewFromInt(210), 500_000))
	s.UpdatePriceAction("TSLA", decimal.NewFromInt(208), decimal.NewFromInt(205))
	return s
}

func TestGapRegistration(t *testing.T) {
	s := newTestGap(t)

	gap := s.RegisterGap("TSLA", decimal.NewFromInt(200), decimal.NewFromInt(210), 500_000)
	require.NotNil(t, gap)
	assert.Equal(t, "up", gap.Direction)
	assert.InDelta(t, 5.0, gap.GapPercent, 0.0001)
	assert.Same(t, gap, s.GetGap("TSLA"))

	down := s.RegisterGap("META", decimal.NewFromInt(500), decimal.NewFromInt(480), 500_000)
	require.NotNil(t, down)
	assert.Equal(t, "down", down.Direction)
	assert.InDelta(t, -4.0, down.GapPercent, 0.0001)
}

func TestGapRegistrationFloors(t *testing.T) {
	s := newTestGap(t)

	// 2% gap is below the 3% floor.
	assert.Nil(t, s.RegisterGap("AAPL", decimal.NewFromInt(200), decimal.NewFromInt(204), 500_000))
	assert.Nil(t, s.GetGap("AAPL"))

	// Big enough gap, thin pre-market volume.
	assert.Nil(t, s.RegisterGap("AAPL", decimal.NewFromInt(200), decimal.NewFromInt(210), 100_000))
}

func TestGapPullbackLong(t *testing.T) {
	s := gappedUp(t)

	// Pullback zone: [208 * 0.995, 208) = [206.96, 208).
	sig := s.ShouldEnter(newCtx("TSLA", "207", 1_000_000))
	require.NotNil(t, sig)
	assert.Equal(t, market.SideBuy, sig.Side)
	// Pre-market level (210) is closer than the 5% profit cap.
	assert.True(t, sig.TakeProfit.Equal(decimal.NewFromInt(210)))
	assert.InDelta(t, 0.65, sig.Confidence, 0.0001)

	// Still at the high: no pullback yet.
	assert.Nil(t, gappedUp(t).ShouldEnter(newCtx("TSLA", "208", 1_000_000)))

	// Pulled back too far.
	assert.Nil(t, gappedUp(t).ShouldEnter(newCtx("TSLA", "206", 1_000_000)))
}

func TestGapPullbackShort(t *testing.T) {
	s := newTestGap(t)
	require.NotNil(t, s.RegisterGap("META",
		decimal.NewFromInt(500), decimal.NewFromInt(480), 500_000))
	s.UpdatePriceAction("META", decimal.NewFromInt(490), decimal.NewFromInt(483))

	// Bounce zone: (483, 483 * 1.005] = (483, 485.415].
	sig := s.ShouldEnter(newCtx("META", "485", 1_000_000))
	require.NotNil(t, sig)
	assert.Equal(t, market.SideSell, sig.Side)
	assert.True(t, sig.TakeProfit.Equal(decimal.NewFromInt(480)),
		"pre-market level dominates the wider profit cap on the short side")
}

func TestGapEntryWindow(t *testing.T) {
	s := gappedUp(t)

	// Before the entry delay runs out.
	s.now = etClock(s.loc, 9, 33)
	assert.Nil(t, s.ShouldEnter(newCtx("TSLA", "207", 1_000_000)))

	// After the 10:30 cutoff.
	s.now = etClock(s.loc, 10, 31)
	assert.Nil(t, s.ShouldEnter(newCtx("TSLA", "207", 1_000_000)))
}

func TestGapEntryRequiresRegistration(t *testing.T) {
	s := newTestGap(t)
	s.UpdatePriceAction("TSLA", decimal.NewFromInt(208), decimal.NewFromInt(205))
	assert.Nil(t, s.ShouldEnter(newCtx("TSLA", "207", 1_000_000)),
		"no registered gap, no trade")

	s2 := newTestGap(t)
	require.NotNil(t, s2.RegisterGap("TSLA",
		decimal.NewFromInt(200), decimal.NewFromInt(210), 500_000))
	assert.Nil(t, s2.ShouldEnter(newCtx("TSLA", "207", 1_000_000)),
		"no post-open price action, no trade")
}

func TestGapPriceActionTracking(t *testing.T) {
	s := newTestGap(t)
	s.UpdatePriceAction("TSLA", decimal.NewFromInt(212), decimal.NewFromInt(210))
	s.UpdatePriceAction("TSLA", decimal.NewFromInt(215), decimal.NewFromInt(211))
	s.UpdatePriceAction("TSLA", decimal.NewFromInt(214), decimal.NewFromInt(209))

	r := s.ranges["TSLA"]
	require.NotNil(t, r)
	assert.True(t, r.high.Equal(decimal.NewFromInt(215)))
	assert.True(t, r.low.Equal(decimal.NewFromInt(209)))
}

func TestGapExits(t *testing.T) {
	s := newTestGap(t)
	entry := decimal.NewFromInt(214)

	exit, _ := s.ShouldExit(newCtx("TSLA", "214.50", 1_000_000), entry, market.SideBuy)
	assert.False(t, exit)

	// Stop at 2% below: 209.72.
	exit, reason := s.ShouldExit(newCtx("TSLA", "209.72", 1_000_000), entry, market.SideBuy)
	assert.True(t, exit)
	assert.Contains(t, reason, "Stop loss")

	// Flat at 10:30 regardless of price.
	s.now = etClock(s.loc, 10, 30)
	exit, reason = s.ShouldExit(newCtx("TSLA", "214.50", 1_000_000), entry, market.SideBuy)
	assert.True(t, exit)
	assert.Contains(t, reason, "Forced exit")
}

func TestGapResetDaily(t *testing.T) {
	s := gappedUp(t)
	s.AddPosition("TSLA")

	s.ResetDaily()
	assert.Nil(t, s.GetGap("TSLA"))
	assert.Empty(t, s.ranges)
	assert.Equal(t, 0, s.OpenPositionCount())
}
