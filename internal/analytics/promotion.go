package analytics

import (
	"context"
	"fmt"
)

const (
	scaleUpMinWinRate  = 0.55
	scaleUpMinAverageR = 1.0
)

// PromotionRules are the thresholds a demo run must clear before its risk
// settings may be promoted.
type PromotionRules struct {
	MinTrades      int
	MinNetProfit   float64
	MaxDrawdownPct float64
}

// PromotionStatus is the evaluation outcome.
type PromotionStatus struct {
	LiveReady    bool
	ScaleUpReady bool
	Details      string
}

// PromotionChecker evaluates whether recorded performance clears the
// promotion rules.
type PromotionChecker struct {
	rules PromotionRules
	stats *StatsEngine
}

// NewPromotionChecker creates a checker bound to a stats engine.
func NewPromotionChecker(rules PromotionRules, stats *StatsEngine) *PromotionChecker {
	return &PromotionChecker{rules: rules, stats: stats}
}

// Evaluate recomputes the stats and applies the rules. Scale-up additionally
// demands a healthy win rate and average R multiple.
func (c *PromotionChecker) Evaluate(ctx context.Context) (PromotionStatus, error) {
	stats, err := c.stats.Compute(ctx)
	if err != nil {
		return PromotionStatus{}, err
	}

	liveReady := stats.TotalTrades >= c.rules.MinTrades &&
		stats.NetPnL >= c.rules.MinNetProfit &&
		stats.MaxDrawdownPct <= c.rules.MaxDrawdownPct
	scaleUp := liveReady &&
		stats.WinRate >= scaleUpMinWinRate &&
		stats.AverageR >= scaleUpMinAverageR

	return PromotionStatus{
		LiveReady:    liveReady,
		ScaleUpReady: scaleUp,
		Details: fmt.Sprintf("Trades=%d, Winrate=%.2f%%, NetPnL=%.2f, MaxDD=%.2f%%",
			stats.TotalTrades, stats.WinRate*100, stats.NetPnL, stats.MaxDrawdownPct*100),
	}, nil
}
