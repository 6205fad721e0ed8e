package indicators

import (
	"fmt"
	"math"

	"scalpBot/internal/domain"
)

// SMA computes a simple moving average over the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("SMA period must be positive, got %d", period)
	}
	if len(values) < period {
		return 0, fmt.Errorf("not enough data (%d) to calculate SMA for period %d", len(values), period)
	}

	total := 0.0
	for i := len(values) - period; i < len(values); i++ {
		total += values[i]
	}
	return total / float64(period), nil
}

// EMASeries computes the exponential moving average for every element of the
// input. The series is seeded with the first value rather than an initial
// SMA, so it is defined from the first bar onward.
func EMASeries(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("EMA period must be positive, got %d", period)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no data to calculate EMA")
	}

	multiplier := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*multiplier + out[i-1]
	}
	return out, nil
}

// TrueRanges returns the true range of every kline. The first bar's true
// range is its high-low span since there is no previous close.
func TrueRanges(klines []*domain.Kline) []float64 {
	trs := make([]float64, len(klines))
	for i := range klines {
		if i == 0 {
			trs[0] = klines[0].High - klines[0].Low
			continue
		}
		high := klines[i].High
		low := klines[i].Low
		prevClose := klines[i-1].Close

		tr := high - low
		if v := math.Abs(high - prevClose); v > tr {
			tr = v
		}
		if v := math.Abs(low - prevClose); v > tr {
			tr = v
		}
		trs[i] = tr
	}
	return trs
}

// ATR computes the average true range as the simple mean of the last period
// true ranges.
func ATR(klines []*domain.Kline, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("ATR period must be positive, got %d", period)
	}
	if len(klines) < period+1 {
		return 0, fmt.Errorf("not enough data points for ATR calculation: need %d, got %d", period+1, len(klines))
	}
	return SMA(TrueRanges(klines), period)
}

// RSI computes the Relative Strength Index of the closes using Wilder's
// smoothing (alpha = 1/period).
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("RSI period must be positive, got %d", period)
	}
	if len(closes) <= period {
		return 0, fmt.Errorf("not enough data (%d) to calculate RSI for period %d", len(closes), period)
	}

	changes := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		changes = append(changes, closes[i]-closes[i-1])
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		if changes[i] > 0 {
			avgGain += changes[i]
		} else {
			avgLoss -= changes[i]
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period; i < len(changes); i++ {
		gain, loss := 0.0, 0.0
		if changes[i] > 0 {
			gain = changes[i]
		} else {
			loss = -changes[i]
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

// VWAP computes the volume weighted average price over all klines, using the
// typical price (high+low+close)/3 per bar. Falls back to the last close when
// the total volume is zero.
func VWAP(klines []*domain.Kline) (float64, error) {
	if len(klines) == 0 {
		return 0, fmt.Errorf("no data to calculate VWAP")
	}

	var cumPV, cumVol float64
	for _, k := range klines {
		typical := (k.High + k.Low + k.Close) / 3
		cumPV += typical * k.Volume
		cumVol += k.Volume
	}
	if cumVol == 0 {
		return klines[len(klines)-1].Close, nil
	}
	return cumPV / cumVol, nil
}

// StdDev computes the sample standard deviation of the values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

// Closes extracts the close price series from klines.
func Closes(klines []*domain.Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close
	}
	return out
}
