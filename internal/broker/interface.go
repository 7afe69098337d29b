// Package broker abstracts the execution venue. The agent only consumes
// this interface; order routing, fills, and account keeping live behind it.
package broker

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

// AccountSnapshot is the broker-reported account state used by the
// validator and sizer. DaytradingBuyingPower is nil when the broker does
// not report one.
type AccountSnapshot struct {
	Value                 decimal.Decimal
	Cash                  decimal.Decimal
	BuyingPower           decimal.Decimal
	DaytradingBuyingPower *decimal.Decimal
	IsPatternDayTrader    bool
}

// Position is an open position at the venue.
type Position struct {
	Symbol     string
	Side       market.OrderSide
	Shares     int64
	EntryPrice decimal.Decimal
	Strategy   string
	OpenedAt   time.Time
}

// MarketValue returns the position's value at the given price.
func (p Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(p.Shares))
}

// UnrealizedPnL returns the open P&L at the given price, signed for the
// position side.
func (p Position) UnrealizedPnL(price decimal.Decimal) decimal.Decimal {
	diff := price.Sub(p.EntryPrice)
	if p.Side == market.SideSell {
		diff = diff.Neg()
	}
	return diff.Mul(decimal.NewFromInt(p.Shares))
}

// Order is a request submitted to the venue.
type Order struct {
	Symbol   string
	Side     market.OrderSide
	Shares   int64
	Strategy string
}

// Fill is the venue's execution report for an order.
type Fill struct {
	Symbol   string
	Side     market.OrderSide
	Shares   int64
	Price    decimal.Decimal
	Strategy string
	FilledAt time.Time
}

// Broker is the execution venue contract.
type Broker interface {
	GetName() string

	GetAccount(ctx context.Context) (AccountSnapshot, error)
	GetPositions(ctx context.Context) ([]Position, error)
	GetPosition(ctx context.Context, symbol string) (*Position, error)

	SubmitOrder(ctx context.Context, order Order) (*Fill, error)
	ClosePosition(ctx context.Context, symbol string) (*Fill, error)
}
