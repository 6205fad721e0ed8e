package domain

import "time"

// Trend is a coarse classification of a timeframe's direction.
type Trend string

const (
	TrendBullish  Trend = "BULLISH"
	TrendBearish  Trend = "BEARISH"
	TrendSideways Trend = "SIDEWAYS"
	TrendUnknown  Trend = "UNKNOWN"
)

// CandleSnapshot is a single bar summary with its fast EMA value.
type CandleSnapshot struct {
	Open    float64
	High    float64
	Low     float64
	Close   float64
	EMAFast float64
}

// MarketSnapshot is the read-only market view consumed by the strategy and the
// pre-trade limit checks. RSI is nil when not enough history was available.
type MarketSnapshot struct {
	Symbol          string
	Price           float64
	Trend5m         Trend
	Trend15m        Trend
	EMAFast         float64
	EMASlow         float64
	ATR             float64
	VWAP            float64
	VWAPDistancePct float64 // signed percent distance of price from VWAP
	Volatility      float64 // stddev of 1m close-to-close returns
	RSI             *float64
	CurrentCandle   CandleSnapshot
	PreviousCandle  *CandleSnapshot
	Timestamp       time.Time
}
