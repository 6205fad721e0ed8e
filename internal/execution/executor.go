package execution

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"scalpBot/internal/domain"
	"scalpBot/internal/ports"
)

const (
	defaultFillPollAttempts = 5
	defaultFillPollDelay    = time.Second
)

// Config wires the executor to its venue client.
type Config struct {
	Client ports.ExchangeClient
	Logger ports.Logger
	Symbol string

	// FillPollAttempts bounds the entry fill fetch loop; FillPollDelay is the
	// pause before each attempt. Zero values take the defaults.
	FillPollAttempts int
	FillPollDelay    time.Duration

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// OpenRequest describes one sized entry.
type OpenRequest struct {
	Side            domain.TradeSide
	Qty             float64
	EntryPrice      float64
	StopLoss        float64
	TakeProfit      float64
	TimeStopMinutes int
}

// Executor owns the single active trade slot and reconciles its lifecycle
// against the venue. At most one trade exists at a time; OpenTrade while the
// slot is occupied is an error. The slot is cleared only once the venue
// confirms the position is flat, so a trade is never silently lost to a
// transient transport failure.
//
// Exit attribution uses an execution-time watermark: a venue fill counts as
// this trade's exit only if its timestamp is strictly after the last
// execution event already attributed to the trade.
type Executor struct {
	client   ports.ExchangeClient
	logger   ports.Logger
	symbol   string
	attempts int
	delay    time.Duration
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	active *domain.ActiveTrade
}

// New creates an executor with an empty trade slot.
func New(cfg Config) (*Executor, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("execution: exchange client is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("execution: logger is required")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("execution: symbol is required")
	}
	if cfg.FillPollAttempts <= 0 {
		cfg.FillPollAttempts = defaultFillPollAttempts
	}
	if cfg.FillPollDelay <= 0 {
		cfg.FillPollDelay = defaultFillPollDelay
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Sleep == nil {
		cfg.Sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	return &Executor{
		client:   cfg.Client,
		logger:   cfg.Logger,
		symbol:   cfg.Symbol,
		attempts: cfg.FillPollAttempts,
		delay:    cfg.FillPollDelay,
		now:      cfg.Now,
		sleep:    cfg.Sleep,
	}, nil
}

// ActiveTrade returns the current trade or nil when the slot is empty.
func (e *Executor) ActiveTrade() *domain.ActiveTrade {
	return e.active
}

// RecoverOpenTrade queries the venue for a position left open by a previous
// run and adopts it into the slot. The original open time is unknown, so the
// adopted trade gets a synthetic one and its time stop restarts from now.
func (e *Executor) RecoverOpenTrade(ctx context.Context, timeStopMinutes int) (*domain.ActiveTrade, error) {
	if e.active != nil {
		return e.active, nil
	}
	pos, err := e.client.GetOpenPosition(ctx, e.symbol)
	if err != nil {
		return nil, fmt.Errorf("recover open trade: %w", err)
	}
	if pos == nil {
		return nil, nil
	}

	now := e.now()
	e.active = &domain.ActiveTrade{
		Symbol:          pos.Symbol,
		Side:            pos.Side,
		Quantity:        pos.Size,
		EntryPrice:      pos.EntryPrice,
		StopLoss:        pos.StopLoss,
		TakeProfit:      pos.TakeProfit,
		OpenedAt:        now,
		TimeStopMinutes: timeStopMinutes,
		LastExecTime:    now,
	}
	e.logger.Warn(ctx, "Adopted open position from previous run",
		map[string]interface{}{
			"symbol":     pos.Symbol,
			"side":       pos.Side,
			"size":       pos.Size,
			"entryPrice": pos.EntryPrice,
		})
	return e.active, nil
}

// OpenTrade submits a market entry with the protective stop and target
// attached, then fetches the actual fill to pin the trade's entry price and
// execution watermark. If no fill surfaces within the polling budget the
// requested price stands in and the watermark falls back to now.
func (e *Executor) OpenTrade(ctx context.Context, req OpenRequest) (*domain.ActiveTrade, error) {
	if e.active != nil {
		return nil, fmt.Errorf("open trade: %w", ports.ErrPositionAlreadyExists)
	}
	if req.Qty <= 0 {
		return nil, fmt.Errorf("open trade: quantity must be positive")
	}

	ack, err := e.client.SubmitMarketOrder(ctx, ports.OrderRequest{
		Symbol:        e.symbol,
		Side:          req.Side.OpenOrderSide(),
		Quantity:      req.Qty,
		StopLoss:      req.StopLoss,
		TakeProfit:    req.TakeProfit,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("open trade: %w", err)
	}

	now := e.now()
	trade := &domain.ActiveTrade{
		Symbol:          e.symbol,
		Side:            req.Side,
		Quantity:        req.Qty,
		EntryPrice:      req.EntryPrice,
		StopLoss:        req.StopLoss,
		TakeProfit:      req.TakeProfit,
		OpenedAt:        now,
		EntryOrderID:    ack.OrderID,
		TimeStopMinutes: req.TimeStopMinutes,
		LastExecTime:    now,
	}

	fill, err := e.fetchEntryFill(ctx, ack.OrderID)
	if err != nil {
		e.logger.Warn(ctx, "Entry fill not found, using requested price",
			map[string]interface{}{
				"orderID":        ack.OrderID,
				"requestedPrice": req.EntryPrice,
			})
	} else {
		trade.EntryPrice = fill.Price
		trade.EntryExecTime = fill.Time
		trade.LastExecTime = fill.Time
	}

	e.active = trade
	e.logger.Info(ctx, "Trade opened",
		map[string]interface{}{
			"symbol":     trade.Symbol,
			"side":       trade.Side,
			"qty":        trade.Quantity,
			"entryPrice": trade.EntryPrice,
			"stopLoss":   trade.StopLoss,
			"takeProfit": trade.TakeProfit,
		})
	return trade, nil
}

// PollTradeClose checks whether the venue closed the active trade via its
// attached stop or target. Returns (nil, nil) while the position is still
// open. Once the venue confirms the position flat the slot is cleared and the
// exit price comes from the matching fill; ErrExitFillNotFound signals a
// confirmed close whose fill could not be attributed, leaving the caller to
// synthesize a price. A transport error keeps the slot intact.
func (e *Executor) PollTradeClose(ctx context.Context) (*float64, error) {
	if e.active == nil {
		return nil, fmt.Errorf("poll trade close: %w", ports.ErrPositionNotFound)
	}

	pos, err := e.client.GetOpenPosition(ctx, e.symbol)
	if err != nil {
		return nil, fmt.Errorf("poll trade close: %w", err)
	}
	if pos != nil {
		return nil, nil
	}

	fills, err := e.client.ListFills(ctx, e.symbol, e.active.LastExecTime, 50)
	if err != nil {
		// The position looked flat but the close is unconfirmed without the
		// fill history. Keep the slot; the next poll retries.
		return nil, fmt.Errorf("poll trade close: list fills: %w", err)
	}

	trade := e.active
	e.active = nil

	fill := e.findExitFill(trade, fills)
	if fill == nil {
		return nil, fmt.Errorf("poll trade close: order %d: %w", trade.EntryOrderID, ports.ErrExitFillNotFound)
	}
	price := fill.Price
	return &price, nil
}

// CloseTrade force-closes the active trade with an inverse reduce-only market
// order, used for the time stop and for shutdown. On submit failure the slot
// is kept so the close can be retried. After a successful submit the exit
// fill is fetched like an entry fill; (nil, nil) means the close went through
// but no fill surfaced and the caller must synthesize the exit price.
func (e *Executor) CloseTrade(ctx context.Context, reason domain.CloseReason) (*float64, error) {
	if e.active == nil {
		return nil, fmt.Errorf("close trade: %w", ports.ErrPositionNotFound)
	}
	trade := e.active

	ack, err := e.client.SubmitMarketOrder(ctx, ports.OrderRequest{
		Symbol:        e.symbol,
		Side:          trade.Side.CloseOrderSide(),
		Quantity:      trade.Quantity,
		ReduceOnly:    true,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		return nil, fmt.Errorf("close trade: %w", err)
	}

	e.active = nil
	e.logger.Info(ctx, "Trade closed by request",
		map[string]interface{}{
			"symbol":  trade.Symbol,
			"reason":  reason,
			"orderID": ack.OrderID,
		})

	fill, err := e.fetchEntryFill(ctx, ack.OrderID)
	if err != nil {
		e.logger.Warn(ctx, "Close fill not found",
			map[string]interface{}{"orderID": ack.OrderID, "reason": reason})
		return nil, nil
	}
	price := fill.Price
	return &price, nil
}

// fetchEntryFill polls the fill history for an execution belonging to the
// given order. The venue needs a beat to surface fills, so each attempt
// sleeps first.
func (e *Executor) fetchEntryFill(ctx context.Context, orderID int64) (*ports.Fill, error) {
	var lastErr error
	for i := 0; i < e.attempts; i++ {
		if err := e.sleep(ctx, e.delay); err != nil {
			return nil, err
		}
		fills, err := e.client.ListFills(ctx, e.symbol, e.now().Add(-5*time.Minute), 50)
		if err != nil {
			lastErr = err
			continue
		}
		for i := range fills {
			if fills[i].OrderID == orderID {
				return &fills[i], nil
			}
		}
		lastErr = ports.ErrEntryFillNotFound
	}
	return nil, fmt.Errorf("fetch fill for order %d: %w", orderID, lastErr)
}

// findExitFill picks the earliest fill that can be attributed to the trade's
// exit: closing side, timestamp strictly after the watermark.
func (e *Executor) findExitFill(trade *domain.ActiveTrade, fills []ports.Fill) *ports.Fill {
	sort.Slice(fills, func(i, j int) bool { return fills[i].Time.Before(fills[j].Time) })
	closeSide := trade.Side.CloseOrderSide()
	for i := range fills {
		if !fills[i].Time.After(trade.LastExecTime) {
			continue
		}
		if fills[i].Side != closeSide {
			continue
		}
		return &fills[i]
	}
	return nil
}
