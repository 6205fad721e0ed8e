package ports

import (
	"context"

	"scalpBot/internal/domain"
)

// TradeRepository defines the interface for storing and retrieving completed trades.
type TradeRepository interface {
	// CreateTrade saves a new trade record and returns its assigned ID.
	CreateTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// FindBySymbol retrieves the most recent trades for a given symbol, up to a limit.
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error)
	// FindAll retrieves all trades, ordered by exit time ascending.
	FindAll(ctx context.Context) ([]*domain.Trade, error)
	// CountTodayBySymbol counts the trades closed on the current UTC day.
	CountTodayBySymbol(ctx context.Context, symbol string) (int, error)
	// GetTotalProfit calculates the sum of PNL over all recorded trades.
	GetTotalProfit(ctx context.Context) (float64, error)
}

// StateRepository persists the account-protection state snapshot. Saving is
// at-least-periodic, so a crash may lose up to one persistence interval of
// protective-mode bookkeeping; the venue stays the source of truth for
// position existence.
type StateRepository interface {
	// SaveState stores the snapshot, replacing any previous one.
	SaveState(ctx context.Context, snap domain.StateSnapshot) error
	// LoadState retrieves the last saved snapshot.
	// Returns nil, nil when no snapshot has been saved yet.
	LoadState(ctx context.Context) (*domain.StateSnapshot, error)
}
