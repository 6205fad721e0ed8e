package ports

import (
	"context"
	"time"

	"scalpBot/internal/domain"
)

// OrderRequest describes an immediate-execution market order with optional
// attached protective levels.
type OrderRequest struct {
	Symbol        string
	Side          domain.OrderSide
	Quantity      float64
	StopLoss      float64 // 0 means no stop attached
	TakeProfit    float64 // 0 means no target attached
	ReduceOnly    bool    // close-only order, never increases exposure
	ClientOrderID string  // generated by the adapter when empty
}

// OrderAck is the venue acknowledgement for a submitted order. AvgPrice may be
// zero until fills are reported; callers discover the real fill via ListFills.
type OrderAck struct {
	OrderID       int64
	ClientOrderID string
	AvgPrice      float64
	Status        string
	Timestamp     time.Time
}

// OpenPosition is the venue's authoritative view of a live position.
type OpenPosition struct {
	Symbol     string
	Side       domain.TradeSide
	Size       float64
	EntryPrice float64
	StopLoss   float64 // 0 when no protective stop is attached
	TakeProfit float64 // 0 when no protective target is attached
}

// Fill is a single execution reported by the venue.
type Fill struct {
	OrderID  int64
	Side     domain.OrderSide
	Price    float64
	Quantity float64
	Time     time.Time
}

// ExchangeClient defines the venue capability surface consumed by the core.
// This abstraction decouples the trading logic from any specific exchange;
// adapters own REST signing, retries and error translation.
type ExchangeClient interface {
	// SetServerTime synchronizes the client's clock with the venue.
	SetServerTime(ctx context.Context) error

	// Ping checks connectivity to the venue API.
	Ping(ctx context.Context) error

	// GetTickerPrice retrieves the last traded price for a symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// SetLeverage sets the leverage for a symbol.
	SetLeverage(ctx context.Context, symbol string, leverage int) error

	// SubmitMarketOrder submits a market order, attaching the requested
	// protective levels in the same operation when the venue supports it.
	SubmitMarketOrder(ctx context.Context, req OrderRequest) (*OrderAck, error)

	// GetOpenPosition retrieves the live position for a symbol.
	// Returns nil, nil when the position is flat.
	GetOpenPosition(ctx context.Context, symbol string) (*OpenPosition, error)

	// ListFills retrieves recent executions for a symbol, oldest first.
	// A zero since time means "as far back as the venue reports".
	ListFills(ctx context.Context, symbol string, since time.Time, limit int) ([]Fill, error)

	// GetKlines retrieves historical klines for a symbol, oldest first.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error)
}
