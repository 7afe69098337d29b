package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide represents the direction of a trade
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// Opposite returns the closing side for a position opened on this side.
func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Context is the per-symbol snapshot handed to strategies on every market
// update. Indicator fields are pointers because the indicator collaborator
// may not have enough bars yet; strategies must treat a nil field as
// "insufficient data" and produce no signal, never an error.
type Context struct {
	Symbol       string
	CurrentPrice decimal.Decimal
	OpenPrice    decimal.Decimal
	HighPrice    decimal.Decimal
	LowPrice     decimal.Decimal
	Volume       int64

	VWAP       *decimal.Decimal
	RSI        *float64
	MACD       *float64
	MACDSignal *float64
	MA50       *decimal.Decimal
	ATR        *float64

	Timestamp time.Time
}

// Dec is a convenience constructor for decimal pointers in context literals.
func Dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

// Float returns a pointer to v for optional indicator fields.
func Float(v float64) *float64 {
	return &v
}
