package indicators

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/equity-trading-agent/internal/feed"
	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

const (
	rsiPeriod    = 14
	macdFast     = 12
	macdSlow     = 26
	macdSmooth   = 9
	maPeriod     = 50
	atrPeriod    = 14
	historyLimit = 200
)

// symbolHistory is the rolling per-symbol window plus the session VWAP
// accumulators, which reset at the calendar-day boundary.
type symbolHistory struct {
	highs  []float64
	lows   []float64
	closes []float64

	vwapDay time.Time
	cumPV   decimal.Decimal
	cumVol  decimal.Decimal
}

// Enricher fills indicator fields a feed left empty, computing them from
// the bars it has seen so far. Fields the feed already carries win.
type Enricher struct {
	history map[string]*symbolHistory
}

func NewEnricher() *Enricher {
	return &Enricher{history: make(map[string]*symbolHistory)}
}

// Enrich folds the bar into the symbol's window and returns a market
// context with every computable indicator populated. Indicators whose
// window is not yet full stay nil.
func (e *Enricher) Enrich(bar feed.Bar) *market.Context {
	h := e.history[bar.Symbol]
	if h == nil {
		h = &symbolHistory{}
		e.history[bar.Symbol] = h
	}
	h.observe(bar)

	ctx := bar.Context()

	if ctx.VWAP == nil && h.cumVol.IsPositive() {
		vwap := h.cumPV.Div(h.cumVol)
		ctx.VWAP = &vwap
	}
	if ctx.RSI == nil {
		if v, err := RSI(h.closes, rsiPeriod); err == nil {
			ctx.RSI = &v
		}
	}
	if ctx.MACD == nil || ctx.MACDSignal == nil {
		if m, s, err := MACD(h.closes, macdFast, macdSlow, macdSmooth); err == nil {
			ctx.MACD = &m
			ctx.MACDSignal = &s
		}
	}
	if ctx.MA50 == nil {
		if v, err := SMA(h.closes, maPeriod); err == nil {
			ma := decimal.NewFromFloat(v)
			ctx.MA50 = &ma
		}
	}
	if ctx.ATR == nil {
		if v, err := ATR(h.highs, h.lows, h.closes, atrPeriod); err == nil {
			ctx.ATR = &v
		}
	}

	return ctx
}

// Reset drops all accumulated history, for the daily boundary.
func (e *Enricher) Reset() {
	e.history = make(map[string]*symbolHistory)
}

func (h *symbolHistory) observe(bar feed.Bar) {
	h.highs = append(h.highs, bar.High.InexactFloat64())
	h.lows = append(h.lows, bar.Low.InexactFloat64())
	h.closes = append(h.closes, bar.Close.InexactFloat64())
	if len(h.closes) > historyLimit {
		h.highs = h.highs[1:]
		h.lows = h.lows[1:]
		h.closes = h.closes[1:]
	}

	day := bar.Timestamp.Truncate(24 * time.Hour)
	if !day.Equal(h.vwapDay) {
		h.vwapDay = day
		h.cumPV = decimal.Zero
		h.cumVol = decimal.Zero
	}
	vol := decimal.NewFromInt(bar.Volume)
	h.cumPV = h.cumPV.Add(bar.Close.Mul(vol))
	h.cumVol = h.cumVol.Add(vol)
}
