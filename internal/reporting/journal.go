// Package reporting collects completed trades and renders the daily
// summary to the console and a spreadsheet journal.
package reporting

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one completed round trip.
type TradeRecord struct {
	Symbol     string
	Strategy   string
	Side       string
	Shares     int64
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	PnL        decimal.Decimal
	ExitReason string
	OpenedAt   time.Time
	ClosedAt   time.Time
}

// Journal accumulates the day's completed trades.
type Journal struct {
	mu     sync.Mutex
	trades []TradeRecord
}

func NewJournal() *Journal {
	return &Journal{}
}

// Record appends a completed trade.
func (j *Journal) Record(tr TradeRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, tr)
}

// Trades returns a copy of the recorded trades.
func (j *Journal) Trades() []TradeRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]TradeRecord, len(j.trades))
	copy(out, j.trades)
	return out
}

// Reset clears the journal for a new trading day.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = nil
}

// Summary is the aggregate view of a day's trading.
type Summary struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	TotalPnL      decimal.Decimal
	BestTrade     decimal.Decimal
	WorstTrade    decimal.Decimal
	ByStrategy    map[string]StrategySummary
}

// StrategySummary aggregates one strategy's trades.
type StrategySummary struct {
	Trades int
	Wins   int
	PnL    decimal.Decimal
}

// WinRate returns the percentage of winning trades, zero when no trades.
func (s Summary) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.WinningTrades) / float64(s.TotalTrades) * 100
}

// Summarize aggregates the recorded trades.
func (j *Journal) Summarize() Summary {
	j.mu.Lock()
	defer j.mu.Unlock()

	sum := Summary{
		TotalPnL:   decimal.Zero,
		ByStrategy: make(map[string]StrategySummary),
	}

	for i, tr := range j.trades {
		sum.TotalTrades++
		sum.TotalPnL = sum.TotalPnL.Add(tr.PnL)

		if tr.PnL.IsNegative() {
			sum.LosingTrades++
		} else {
			sum.WinningTrades++
		}

		if i == 0 {
			sum.BestTrade = tr.PnL
			sum.WorstTrade = tr.PnL
		} else {
			sum.BestTrade = decimal.Max(sum.BestTrade, tr.PnL)
			sum.WorstTrade = decimal.Min(sum.WorstTrade, tr.PnL)
		}

		ss := sum.ByStrategy[tr.Strategy]
		ss.Trades++
		if !tr.PnL.IsNegative() {
			ss.Wins++
		}
		ss.PnL = ss.PnL.Add(tr.PnL)
		sum.ByStrategy[tr.Strategy] = ss
	}

	return sum
}
