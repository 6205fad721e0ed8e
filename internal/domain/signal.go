package domain

// TradeSignal is the trade intent produced by the strategy layer. A zero Side
// means no trade; Reason then carries the code explaining why.
type TradeSignal struct {
	Side            TradeSide
	EntryPrice      float64
	StopLoss        float64
	TakeProfit      float64
	TimeStopMinutes int
	Reason          string
}

// IsNoTrade reports whether the signal declines to trade.
func (s TradeSignal) IsNoTrade() bool {
	return s.Side != Long && s.Side != Short
}

// NoTradeSignal builds a declining signal with a reason code.
func NoTradeSignal(price float64, reason string) TradeSignal {
	return TradeSignal{EntryPrice: price, StopLoss: price, TakeProfit: price, Reason: reason}
}
