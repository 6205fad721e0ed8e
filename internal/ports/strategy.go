package ports

import (
	"context"

	"scalpBot/internal/domain"
)

// MarketDataProvider produces read-only market snapshots for decisioning.
type MarketDataProvider interface {
	// RefreshSnapshot fetches fresh candles and recomputes the indicator view.
	RefreshSnapshot(ctx context.Context) (*domain.MarketSnapshot, error)
}

// Strategy turns a market snapshot into a trade intent.
type Strategy interface {
	// GenerateSignal returns either a directional intent with entry/stop/target
	// and a time-stop budget, or a no-trade signal with a reason code.
	GenerateSignal(ctx context.Context, snapshot *domain.MarketSnapshot) domain.TradeSignal
}
