package risk

import (
	"errors"
	"fmt"
	"math"

	"scalpBot/internal/domain"
)

var (
	// ErrInvalidStopDistance is returned when entry and stop loss coincide or
	// the inputs are not positive prices.
	ErrInvalidStopDistance = errors.New("stop distance must be positive")
	// ErrBelowMinQty is returned when the risk-derived quantity floors below
	// the venue minimum.
	ErrBelowMinQty = errors.New("position size below venue minimum")
)

// Config holds the position sizing parameters. ReferenceBalance is the fixed
// baseline used for all risk math; the venue balance is never consulted.
type Config struct {
	ReferenceBalance float64
	RiskPerTradePct  float64
}

// Result is a fully sized order proposal.
type Result struct {
	Qty        float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	RiskAmount float64
}

// Manager converts a strategy's entry/stop/target prices into an order
// quantity such that a stop-out loses a fixed fraction of the reference
// balance.
type Manager struct {
	config Config
	symbol domain.SymbolInfo
}

// NewManager creates a position sizer for one symbol.
func NewManager(config Config, symbol domain.SymbolInfo) (*Manager, error) {
	if config.ReferenceBalance <= 0 {
		return nil, fmt.Errorf("risk: reference balance must be positive")
	}
	if config.RiskPerTradePct <= 0 {
		return nil, fmt.Errorf("risk: risk per trade must be positive")
	}
	if symbol.QtyStep <= 0 || symbol.MinQty <= 0 {
		return nil, fmt.Errorf("risk: symbol %s has invalid quantity constraints", symbol.Symbol)
	}
	return &Manager{config: config, symbol: symbol}, nil
}

// RiskAmount is the fixed dollar amount a single stop-out may lose.
func (m *Manager) RiskAmount() float64 {
	return m.config.ReferenceBalance * m.config.RiskPerTradePct
}

// Evaluate sizes a position for the given entry, stop loss and take profit.
// Quantity is riskAmount / stopDistance floored to the symbol's quantity
// step. Entry, stop and target pass through unchanged.
func (m *Manager) Evaluate(entryPrice, stopLoss, takeProfit float64) (Result, error) {
	if entryPrice <= 0 || stopLoss <= 0 {
		return Result{}, fmt.Errorf("risk: entry %.8f / stop %.8f: %w", entryPrice, stopLoss, ErrInvalidStopDistance)
	}
	stopDistance := math.Abs(entryPrice - stopLoss)
	if stopDistance <= 0 {
		return Result{}, fmt.Errorf("risk: entry %.8f equals stop: %w", entryPrice, ErrInvalidStopDistance)
	}

	riskAmount := m.RiskAmount()
	qty := m.floorToStep(riskAmount / stopDistance)
	if qty < m.symbol.MinQty {
		return Result{}, fmt.Errorf("risk: qty %.8f below min %.8f for %s: %w",
			qty, m.symbol.MinQty, m.symbol.Symbol, ErrBelowMinQty)
	}

	return Result{
		Qty:        qty,
		EntryPrice: entryPrice,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		RiskAmount: riskAmount,
	}, nil
}

// floorToStep rounds qty down to a multiple of the symbol's quantity step.
// The step is inverted to an integer scale first so that quantities landing
// exactly on a step are not nudged below it by float representation.
func (m *Manager) floorToStep(qty float64) float64 {
	scale := math.Round(1 / m.symbol.QtyStep)
	return math.Floor(qty*scale) / scale
}
