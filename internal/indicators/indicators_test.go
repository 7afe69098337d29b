package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	v, err := SMA(values, 5)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-9)

	v, err = SMA(values, 2)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, v, 1e-9)

	_, err = SMA(values, 6)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = SMA(values, 0)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRSI(t *testing.T) {
	t.Run("all gains reads 100", func(t *testing.T) {
		prices := make([]float64, 15)
		for i := range prices {
			prices[i] = 100 + float64(i)
		}
		v, err := RSI(prices, 14)
		require.NoError(t, err)
		assert.InDelta(t, 100.0, v, 1e-9)
	})

	t.Run("all losses reads 0", func(t *testing.T) {
		prices := make([]float64, 15)
		for i := range prices {
			prices[i] = 100 - float64(i)
		}
		v, err := RSI(prices, 14)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, v, 1e-9)
	})

	t.Run("balanced gains and losses read 50", func(t *testing.T) {
		// Alternating +1/-1 over the window
		prices := make([]float64, 15)
		prices[0] = 100
		for i := 1; i < len(prices); i++ {
			if i%2 == 0 {
				prices[i] = prices[i-1] - 1
			} else {
				prices[i] = prices[i-1] + 1
			}
		}
		v, err := RSI(prices, 14)
		require.NoError(t, err)
		assert.InDelta(t, 50.0, v, 1e-9)
	})

	t.Run("insufficient data", func(t *testing.T) {
		_, err := RSI([]float64{1, 2, 3}, 14)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestMACD(t *testing.T) {
	t.Run("uptrend reads positive", func(t *testing.T) {
		prices := make([]float64, 60)
		for i := range prices {
			prices[i] = 100 + float64(i)*0.5
		}
		macd, signal, err := MACD(prices, 12, 26, 9)
		require.NoError(t, err)
		assert.Greater(t, macd, 0.0)
		assert.Greater(t, signal, 0.0)
	})

	t.Run("downtrend reads negative", func(t *testing.T) {
		prices := make([]float64, 60)
		for i := range prices {
			prices[i] = 200 - float64(i)*0.5
		}
		macd, signal, err := MACD(prices, 12, 26, 9)
		require.NoError(t, err)
		assert.Less(t, macd, 0.0)
		assert.Less(t, signal, 0.0)
	})

	t.Run("flat series reads zero", func(t *testing.T) {
		prices := make([]float64, 60)
		for i := range prices {
			prices[i] = 150
		}
		macd, signal, err := MACD(prices, 12, 26, 9)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, macd, 1e-9)
		assert.InDelta(t, 0.0, signal, 1e-9)
	})

	t.Run("insufficient data", func(t *testing.T) {
		prices := make([]float64, 30)
		_, _, err := MACD(prices, 12, 26, 9)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestATR(t *testing.T) {
	t.Run("constant two point range", func(t *testing.T) {
		n := 15
		highs := make([]float64, n)
		lows := make([]float64, n)
		closes := make([]float64, n)
		for i := 0; i < n; i++ {
			highs[i] = 101
			lows[i] = 99
			closes[i] = 100
		}
		v, err := ATR(highs, lows, closes, 14)
		require.NoError(t, err)
		assert.InDelta(t, 2.0, v, 1e-9)
	})

	t.Run("gap widens true range", func(t *testing.T) {
		// Prior close 100, next bar gaps to 110-112
		highs := []float64{101, 112}
		lows := []float64{99, 110}
		closes := []float64{100, 111}
		v, err := ATR(highs, lows, closes, 1)
		require.NoError(t, err)
		// True range is high minus prior close, 112-100
		assert.InDelta(t, 12.0, v, 1e-9)
	})

	t.Run("mismatched slice lengths", func(t *testing.T) {
		_, err := ATR([]float64{1, 2}, []float64{1}, []float64{1, 2}, 1)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}
