package domain

import "time"

// TradeResult is the immutable realized outcome of a single closed trade, fed
// into the account state machine.
type TradeResult struct {
	PnL       float64
	Fees      float64
	Timestamp time.Time
}

// NetPnL is the realized profit after fees.
func (r TradeResult) NetPnL() float64 {
	return r.PnL - r.Fees
}

// IsLoss reports whether the trade lost money after fees.
func (r TradeResult) IsLoss() bool {
	return r.NetPnL() < 0
}

// Trade is a finalized trade record handed to reporting.
type Trade struct {
	ID          int64       // Unique identifier (assigned by the repository)
	Symbol      string      // Trading symbol (e.g., "BTCUSDT")
	Side        TradeSide   // Direction the position was opened in
	Quantity    float64     // Size of the position
	EntryPrice  float64     // Observed entry fill price
	ExitPrice   float64     // Observed (or synthetic fallback) exit price
	StopLoss    float64     // Protective stop level attached at entry
	TakeProfit  float64     // Protective target level attached at entry
	PNL         float64     // Realized profit and loss
	Fees        float64     // Fees paid, if known
	RMultiple   float64     // PNL expressed in units of the risked amount
	Mode        Mode        // Protection mode active when the trade closed
	EntryTime   time.Time   // When the position was opened
	ExitTime    time.Time   // When the position was closed
	CloseReason CloseReason // Why the position was closed
}
