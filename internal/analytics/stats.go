package analytics

import (
	"context"
	"fmt"

	"scalpBot/internal/ports"
)

// Summary aggregates performance over the persisted trade history.
type Summary struct {
	TotalTrades    int
	WinRate        float64
	AverageR       float64
	NetPnL         float64
	MaxDrawdownPct float64
	PnLByDay       map[string]float64
}

// StatsEngine computes lightweight analytics from the trade repository.
type StatsEngine struct {
	trades ports.TradeRepository
}

// NewStatsEngine creates a stats engine over the given repository.
func NewStatsEngine(trades ports.TradeRepository) *StatsEngine {
	return &StatsEngine{trades: trades}
}

// Compute reads the full trade history and derives the summary. Drawdown is
// measured on the cumulative profit curve, so it only registers once the
// curve has been in profit.
func (e *StatsEngine) Compute(ctx context.Context) (Summary, error) {
	trades, err := e.trades.FindAll(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("compute stats: %w", err)
	}
	if len(trades) == 0 {
		return Summary{PnLByDay: map[string]float64{}}, nil
	}

	summary := Summary{
		TotalTrades: len(trades),
		PnLByDay:    make(map[string]float64),
	}

	winners := 0
	var rSum float64
	profitCurve := 0.0
	peak := 0.0
	for _, trade := range trades {
		if trade.PNL > 0 {
			winners++
		}
		rSum += trade.RMultiple
		summary.NetPnL += trade.PNL
		summary.PnLByDay[trade.ExitTime.UTC().Format("2006-01-02")] += trade.PNL

		profitCurve += trade.PNL
		if profitCurve > peak {
			peak = profitCurve
		}
		if peak > 0 {
			dd := (peak - profitCurve) / peak
			if dd > summary.MaxDrawdownPct {
				summary.MaxDrawdownPct = dd
			}
		}
	}

	summary.WinRate = float64(winners) / float64(len(trades))
	summary.AverageR = rSum / float64(len(trades))
	return summary, nil
}
