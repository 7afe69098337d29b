// Package indicators computes the technical values the strategies read
// from the market context, for data feeds that do not carry them
// precomputed.
package indicators

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned when a window does not yet span the
// indicator's required period.
var ErrInsufficientData = errors.New("insufficient data for indicator calculation")

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period < 1 || len(values) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}

// RSI returns the Relative Strength Index over the last period changes.
// A window with no losses reads 100, no gains reads 0.
func RSI(prices []float64, period int) (float64, error) {
	if period < 1 || len(prices) < period+1 {
		return 0, ErrInsufficientData
	}

	changes := prices[len(prices)-period-1:]
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i < len(changes); i++ {
		delta := changes[i] - changes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss += math.Abs(delta)
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), nil
}

// emaSeries returns the EMA of values at every index from period-1 on,
// seeded with the SMA of the first period values.
func emaSeries(values []float64, period int) []float64 {
	if len(values) < period {
		return nil
	}

	alpha := 2.0 / float64(period+1)
	out := make([]float64, 0, len(values)-period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	ema := seed / float64(period)
	out = append(out, ema)

	for _, v := range values[period:] {
		ema = (v-ema)*alpha + ema
		out = append(out, ema)
	}
	return out
}

// MACD returns the MACD line and its signal line for the standard
// fast/slow/signal periods.
func MACD(prices []float64, fast, slow, signalPeriod int) (macd, signal float64, err error) {
	if len(prices) < slow+signalPeriod {
		return 0, 0, ErrInsufficientData
	}

	fastEMA := emaSeries(prices, fast)
	slowEMA := emaSeries(prices, slow)

	// Align the two series on their tails and build the MACD history the
	// signal line smooths over.
	n := len(slowEMA)
	macdHist := make([]float64, n)
	offset := len(fastEMA) - n
	for i := 0; i < n; i++ {
		macdHist[i] = fastEMA[offset+i] - slowEMA[i]
	}

	signalSeries := emaSeries(macdHist, signalPeriod)
	if len(signalSeries) == 0 {
		return 0, 0, ErrInsufficientData
	}

	return macdHist[n-1], signalSeries[len(signalSeries)-1], nil
}

// ATR returns the simple average true range over the last period bars.
// The slices must be equal length and ordered oldest first.
func ATR(highs, lows, closes []float64, period int) (float64, error) {
	if period < 1 || len(highs) < period+1 ||
		len(lows) != len(highs) || len(closes) != len(highs) {
		return 0, ErrInsufficientData
	}

	start := len(highs) - period
	sum := 0.0
	for i := start; i < len(highs); i++ {
		tr := highs[i] - lows[i]
		tr = math.Max(tr, math.Abs(highs[i]-closes[i-1]))
		tr = math.Max(tr, math.Abs(lows[i]-closes[i-1]))
		sum += tr
	}
	return sum / float64(period), nil
}
