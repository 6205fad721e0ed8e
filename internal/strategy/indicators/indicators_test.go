package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalpBot/internal/domain"
)

func klinesFromOHLCV(bars [][5]float64) []*domain.Kline {
	out := make([]*domain.Kline, len(bars))
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	for i, b := range bars {
		out[i] = &domain.Kline{
			OpenTime:  base.Add(time.Duration(i) * time.Minute),
			CloseTime: base.Add(time.Duration(i+1) * time.Minute),
			Symbol:    "ETHUSDT",
			Interval:  "1m",
			Open:      b[0],
			High:      b[1],
			Low:       b[2],
			Close:     b[3],
			Volume:    b[4],
			IsFinal:   true,
		}
	}
	return out
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	sma, err := SMA(values, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, sma, 1e-9)

	sma, err = SMA(values, 5)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, sma, 1e-9)

	_, err = SMA(values, 6)
	assert.Error(t, err)

	_, err = SMA(values, 0)
	assert.Error(t, err)
}

func TestEMASeries(t *testing.T) {
	values := []float64{10, 11, 12, 13}

	ema, err := EMASeries(values, 3)
	require.NoError(t, err)
	require.Len(t, ema, 4)

	// Seeded with the first value, multiplier 0.5.
	assert.InDelta(t, 10.0, ema[0], 1e-9)
	assert.InDelta(t, 10.5, ema[1], 1e-9)
	assert.InDelta(t, 11.25, ema[2], 1e-9)
	assert.InDelta(t, 12.125, ema[3], 1e-9)

	_, err = EMASeries(nil, 3)
	assert.Error(t, err)
}

func TestEMASeriesConstantInput(t *testing.T) {
	values := []float64{5, 5, 5, 5, 5}
	ema, err := EMASeries(values, 4)
	require.NoError(t, err)
	for _, v := range ema {
		assert.InDelta(t, 5.0, v, 1e-9)
	}
}

func TestTrueRanges(t *testing.T) {
	klines := klinesFromOHLCV([][5]float64{
		{100, 102, 99, 101, 10},
		{101, 105, 100, 104, 12}, // gap up: TR = 105-100 = 5
		{104, 104, 95, 96, 15},   // TR = max(9, 0, 9) = 9
	})

	trs := TrueRanges(klines)
	require.Len(t, trs, 3)
	assert.InDelta(t, 3.0, trs[0], 1e-9)
	assert.InDelta(t, 5.0, trs[1], 1e-9)
	assert.InDelta(t, 9.0, trs[2], 1e-9)
}

func TestATR(t *testing.T) {
	klines := klinesFromOHLCV([][5]float64{
		{100, 102, 99, 101, 10},
		{101, 105, 100, 104, 12},
		{104, 104, 95, 96, 15},
	})

	atr, err := ATR(klines, 2)
	require.NoError(t, err)
	// Mean of the last two true ranges (5 and 9).
	assert.InDelta(t, 7.0, atr, 1e-9)

	_, err = ATR(klines, 3)
	assert.Error(t, err)
}

func TestRSI(t *testing.T) {
	t.Run("all gains pins at 100", func(t *testing.T) {
		closes := []float64{1, 2, 3, 4, 5, 6, 7}
		rsi, err := RSI(closes, 5)
		require.NoError(t, err)
		assert.InDelta(t, 100.0, rsi, 1e-9)
	})

	t.Run("all losses pins at 0", func(t *testing.T) {
		closes := []float64{7, 6, 5, 4, 3, 2, 1}
		rsi, err := RSI(closes, 5)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, rsi, 1e-9)
	})

	t.Run("balanced moves stay near the middle", func(t *testing.T) {
		closes := []float64{10, 11, 10, 11, 10, 11, 10, 11, 10, 11}
		rsi, err := RSI(closes, 4)
		require.NoError(t, err)
		assert.Greater(t, rsi, 30.0)
		assert.Less(t, rsi, 70.0)
	})

	t.Run("not enough data", func(t *testing.T) {
		_, err := RSI([]float64{1, 2, 3}, 5)
		assert.Error(t, err)
	})
}

func TestVWAP(t *testing.T) {
	klines := klinesFromOHLCV([][5]float64{
		{100, 102, 98, 100, 10},  // typical 100
		{100, 104, 100, 102, 20}, // typical 102
	})

	vwap, err := VWAP(klines)
	require.NoError(t, err)
	// (100*10 + 102*20) / 30
	assert.InDelta(t, 101.3333, vwap, 1e-3)

	t.Run("zero volume falls back to last close", func(t *testing.T) {
		flat := klinesFromOHLCV([][5]float64{{100, 101, 99, 100.5, 0}})
		vwap, err := VWAP(flat)
		require.NoError(t, err)
		assert.InDelta(t, 100.5, vwap, 1e-9)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := VWAP(nil)
		assert.Error(t, err)
	})
}

func TestStdDev(t *testing.T) {
	assert.InDelta(t, 0, StdDev(nil), 1e-9)
	assert.InDelta(t, 0, StdDev([]float64{3}), 1e-9)
	// Sample stddev of {2, 4, 4, 4, 5, 5, 7, 9} is ~2.138.
	assert.InDelta(t, 2.138, StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-3)
	assert.InDelta(t, 0, StdDev([]float64{5, 5, 5}), 1e-9)
}

func TestCloses(t *testing.T) {
	klines := klinesFromOHLCV([][5]float64{
		{100, 102, 98, 101, 10},
		{101, 103, 100, 102.5, 12},
	})
	assert.Equal(t, []float64{101, 102.5}, Closes(klines))
}
