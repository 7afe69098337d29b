package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	agenterr "github.com/ducminhle1904/equity-trading-agent/internal/errors"
	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

// PaperBroker simulates a cash account in memory. Orders fill immediately
// at the last price the feed reported for the symbol.
type PaperBroker struct {
	log *zap.Logger
	now func() time.Time

	mu        sync.Mutex
	cash      decimal.Decimal
	positions map[string]*Position
	prices    map[string]decimal.Decimal
	realized  decimal.Decimal
}

// NewPaperBroker creates a simulated account with the given starting cash.
func NewPaperBroker(startingCash decimal.Decimal, log *zap.Logger) *PaperBroker {
	b := &PaperBroker{
		log:       log,
		cash:      startingCash,
		positions: make(map[string]*Position),
		prices:    make(map[string]decimal.Decimal),
	}
	b.now = time.Now
	return b
}

func (b *PaperBroker) GetName() string { return "paper" }

// SetPrice updates the last known price for a symbol. The feed calls this
// on every bar so fills and valuations track the market.
func (b *PaperBroker) SetPrice(symbol string, price decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[symbol] = price
}

// GetAccount values open positions at last prices. The paper account never
// reports a pattern day trader flag.
func (b *PaperBroker) GetAccount(_ context.Context) (AccountSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Account value is cash plus each position's entry value adjusted by
	// its open P&L. Entry value was debited from cash at fill time.
	value := b.cash
	for sym, pos := range b.positions {
		price, ok := b.prices[sym]
		if !ok {
			price = pos.EntryPrice
		}
		entryValue := pos.EntryPrice.Mul(decimal.NewFromInt(pos.Shares))
		value = value.Add(entryValue).Add(pos.UnrealizedPnL(price))
	}

	return AccountSnapshot{
		Value:       value,
		Cash:        b.cash,
		BuyingPower: b.cash,
	}, nil
}

func (b *PaperBroker) GetPositions(_ context.Context) ([]Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, *pos)
	}
	return out, nil
}

func (b *PaperBroker) GetPosition(_ context.Context, symbol string) (*Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[symbol]
	if !ok {
		return nil, nil
	}
	p := *pos
	return &p, nil
}

// SubmitOrder fills immediately at the last known price. One position per
// symbol; adding to an open position is rejected.
func (b *PaperBroker) SubmitOrder(_ context.Context, order Order) (*Fill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if order.Shares < 1 {
		return nil, agenterr.New(agenterr.CategoryOrder, "paper", "submit",
			fmt.Sprintf("order for %s has no shares", order.Symbol))
	}
	if _, open := b.positions[order.Symbol]; open {
		return nil, agenterr.New(agenterr.CategoryOrder, "paper", "submit",
			fmt.Sprintf("position already open for %s", order.Symbol))
	}

	price, ok := b.prices[order.Symbol]
	if !ok {
		return nil, agenterr.New(agenterr.CategoryData, "paper", "submit",
			fmt.Sprintf("no market price for %s", order.Symbol))
	}

	cost := price.Mul(decimal.NewFromInt(order.Shares))
	if order.Side == market.SideBuy && cost.GreaterThan(b.cash) {
		return nil, agenterr.New(agenterr.CategoryOrder, "paper", "submit",
			fmt.Sprintf("insufficient cash for %s: need %s, have %s",
				order.Symbol, cost.StringFixed(2), b.cash.StringFixed(2)))
	}

	b.cash = b.cash.Sub(cost)
	b.positions[order.Symbol] = &Position{
		Symbol:     order.Symbol,
		Side:       order.Side,
		Shares:     order.Shares,
		EntryPrice: price,
		Strategy:   order.Strategy,
		OpenedAt:   b.now(),
	}

	b.log.Info("paper fill",
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.Int64("shares", order.Shares),
		zap.String("price", price.String()))

	return &Fill{
		Symbol:   order.Symbol,
		Side:     order.Side,
		Shares:   order.Shares,
		Price:    price,
		Strategy: order.Strategy,
		FilledAt: b.now(),
	}, nil
}

// ClosePosition flattens a symbol at the last known price and realizes
// its P&L.
func (b *PaperBroker) ClosePosition(_ context.Context, symbol string) (*Fill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[symbol]
	if !ok {
		return nil, agenterr.New(agenterr.CategoryPosition, "paper", "close",
			fmt.Sprintf("no open position for %s", symbol))
	}

	price, priced := b.prices[symbol]
	if !priced {
		price = pos.EntryPrice
	}

	pnl := pos.UnrealizedPnL(price)
	b.cash = b.cash.Add(pos.EntryPrice.Mul(decimal.NewFromInt(pos.Shares))).Add(pnl)
	b.realized = b.realized.Add(pnl)
	delete(b.positions, symbol)

	b.log.Info("paper close",
		zap.String("symbol", symbol),
		zap.String("price", price.String()),
		zap.String("pnl", pnl.StringFixed(2)))

	return &Fill{
		Symbol:   symbol,
		Side:     pos.Side.Opposite(),
		Shares:   pos.Shares,
		Price:    price,
		Strategy: pos.Strategy,
		FilledAt: b.now(),
	}, nil
}

// RealizedPnL returns the total realized P&L since the account opened.
func (b *PaperBroker) RealizedPnL() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.realized
}
