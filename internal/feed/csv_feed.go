// Package feed supplies per-symbol market snapshots to the orchestrator.
// The CSV feed replays recorded intraday bars, mainly for paper sessions
// and rehearsals.
package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	agenterr "github.com/ducminhle1904/equity-trading-agent/internal/errors"
	"github.com/ducminhle1904/equity-trading-agent/internal/market"
)

// Bar is one recorded intraday bar with its precomputed indicators.
// Indicator columns may be empty early in the session.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64

	VWAP       *decimal.Decimal
	RSI        *float64
	MACD       *float64
	MACDSignal *float64
	MA50       *decimal.Decimal
	ATR        *float64
}

// Context converts the bar into the snapshot strategies consume.
func (b Bar) Context() *market.Context {
	return &market.Context{
		Symbol:       b.Symbol,
		CurrentPrice: b.Close,
		OpenPrice:    b.Open,
		HighPrice:    b.High,
		LowPrice:     b.Low,
		Volume:       b.Volume,
		VWAP:         b.VWAP,
		RSI:          b.RSI,
		MACD:         b.MACD,
		MACDSignal:   b.MACDSignal,
		MA50:         b.MA50,
		ATR:          b.ATR,
		Timestamp:    b.Timestamp,
	}
}

// CSVFeed loads recorded bars from a CSV file. Expected header:
// symbol,timestamp,open,high,low,close,volume,vwap,rsi,macd,macd_signal,ma50,atr
// with RFC 3339 timestamps. Indicator columns may be empty.
type CSVFeed struct {
	log *zap.Logger
}

func NewCSVFeed(log *zap.Logger) *CSVFeed {
	return &CSVFeed{log: log}
}

func (f *CSVFeed) GetName() string { return "CSV Feed" }

const minColumns = 7

// Load reads all bars from the file in recorded order. Malformed rows are
// skipped with a warning, not fatal.
func (f *CSVFeed) Load(path string) ([]Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, agenterr.Wrap(agenterr.CategoryData, "csv_feed", "load",
			"failed to open bar file", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Indicator columns may be absent entirely on some rows
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, agenterr.Wrap(agenterr.CategoryData, "csv_feed", "load",
			"failed to read header", err)
	}

	var bars []Bar
	line := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, agenterr.Wrap(agenterr.CategoryData, "csv_feed", "load",
				fmt.Sprintf("error reading CSV at line %d", line), err)
		}
		line++

		bar, err := f.parseRecord(record)
		if err != nil {
			f.log.Warn("skipping malformed bar",
				zap.Int("line", line), zap.Error(err))
			continue
		}
		bars = append(bars, bar)
	}

	f.log.Info("bars loaded", zap.String("path", path), zap.Int("count", len(bars)))
	return bars, nil
}

func (f *CSVFeed) parseRecord(record []string) (Bar, error) {
	if len(record) < minColumns {
		return Bar{}, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(record))
	}

	timestamp, err := time.Parse(time.RFC3339, record[1])
	if err != nil {
		return Bar{}, fmt.Errorf("invalid timestamp %q: %w", record[1], err)
	}

	prices := make([]decimal.Decimal, 4)
	for i, col := range []int{2, 3, 4, 5} {
		prices[i], err = decimal.NewFromString(record[col])
		if err != nil {
			return Bar{}, fmt.Errorf("invalid price %q: %w", record[col], err)
		}
	}

	volume, err := strconv.ParseInt(record[6], 10, 64)
	if err != nil {
		return Bar{}, fmt.Errorf("invalid volume %q: %w", record[6], err)
	}

	bar := Bar{
		Symbol:    record[0],
		Timestamp: timestamp,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    volume,
	}

	// Optional indicator columns
	bar.VWAP = optionalDecimal(record, 7)
	bar.RSI = optionalFloat(record, 8)
	bar.MACD = optionalFloat(record, 9)
	bar.MACDSignal = optionalFloat(record, 10)
	bar.MA50 = optionalDecimal(record, 11)
	bar.ATR = optionalFloat(record, 12)

	return bar, nil
}

func optionalDecimal(record []string, col int) *decimal.Decimal {
	if col >= len(record) || record[col] == "" {
		return nil
	}
	d, err := decimal.NewFromString(record[col])
	if err != nil {
		return nil
	}
	return &d
}

func optionalFloat(record []string, col int) *float64 {
	if col >= len(record) || record[col] == "" {
		return nil
	}
	v, err := strconv.ParseFloat(record[col], 64)
	if err != nil {
		return nil
	}
	return &v
}
