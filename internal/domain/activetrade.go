package domain

import "time"

// ActiveTrade is the single currently open position. At most one exists at a
// time; ownership is exclusive to the order executor. It is created on a
// successful order submission or recovered from the venue's live position
// query at startup, and destroyed only once the position is confirmed flat.
type ActiveTrade struct {
	Symbol          string
	Side            TradeSide
	Quantity        float64
	EntryPrice      float64
	StopLoss        float64
	TakeProfit      float64
	OpenedAt        time.Time
	EntryOrderID    int64
	TimeStopMinutes int       // <= 0 disables the time stop
	EntryExecTime   time.Time // fill time of the entry order
	LastExecTime    time.Time // watermark: newest fill already attributed to this trade
}

// IsTimeStopReached reports whether the holding-time budget is exhausted.
func (t *ActiveTrade) IsTimeStopReached(now time.Time) bool {
	if t.TimeStopMinutes <= 0 {
		return false
	}
	limit := t.OpenedAt.Add(time.Duration(t.TimeStopMinutes) * time.Minute)
	return !now.Before(limit)
}
