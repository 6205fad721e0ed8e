package domain

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// TradeSide is the direction of a position (LONG or SHORT).
type TradeSide string

const (
	Long  TradeSide = "LONG"
	Short TradeSide = "SHORT"
)

// OpenOrderSide returns the order side that opens a position in this direction.
func (s TradeSide) OpenOrderSide() OrderSide {
	if s == Short {
		return Sell
	}
	return Buy
}

// CloseOrderSide returns the order side that closes a position opened in this direction.
func (s TradeSide) CloseOrderSide() OrderSide {
	if s == Short {
		return Buy
	}
	return Sell
}

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonProtective CloseReason = "SL/TP"     // stop-loss or take-profit fill on the venue
	CloseReasonTimeStop   CloseReason = "TIME_STOP" // holding-time budget exhausted
	CloseReasonManual     CloseReason = "MANUAL"
	CloseReasonUnknown    CloseReason = "UNKNOWN"
)

// BlockReason identifies which pre-trade guard refused to open a new position.
type BlockReason string

const (
	BlockNone             BlockReason = ""
	BlockCooldown         BlockReason = "COOLDOWN"
	BlockHalt             BlockReason = "HALT"
	BlockDailyLossLimit   BlockReason = "DAILY_LOSS_LIMIT"
	BlockDailyTradeLimit  BlockReason = "DAILY_TRADE_LIMIT"
	BlockMarketTooDead    BlockReason = "MARKET_TOO_DEAD"
	BlockExtendedFromVWAP BlockReason = "EXTENDED_FROM_VWAP"
)
