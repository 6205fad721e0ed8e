package risk

import (
	"math"

	"scalpBot/internal/domain"
)

// maxVWAPDistancePct blocks entries stretched too far from the session VWAP.
// Fixed rather than configured; entries this extended mean the pullback
// already ran.
const maxVWAPDistancePct = 1.5

// AccountState is the view of the account state machine the pre-trade gate
// needs.
type AccountState interface {
	CanTradeNow() (bool, domain.BlockReason)
	CurrentMode() domain.Mode
	SessionStats() domain.SessionStats
}

// LimitsConfig holds the pre-trade gate thresholds.
type LimitsConfig struct {
	ReferenceBalance float64
	MaxDailyLossPct  float64
	MaxDailyTrades   int
	MinATR           float64
}

// LimitCheckResult is the outcome of one pre-trade evaluation. Reason is set
// only when AllowTrade is false.
type LimitCheckResult struct {
	AllowTrade bool
	Reason     domain.BlockReason
}

// LimitsChecker is the stateless pre-trade gate. Every prospective entry runs
// through it after a signal fires and before sizing.
type LimitsChecker struct {
	config LimitsConfig
	state  AccountState
}

// NewLimitsChecker creates a pre-trade gate bound to an account state machine.
func NewLimitsChecker(config LimitsConfig, state AccountState) *LimitsChecker {
	return &LimitsChecker{config: config, state: state}
}

// Evaluate runs the gate checks in order and returns the first block hit:
// account state, daily loss, daily trade count, market liveness, VWAP
// extension.
func (c *LimitsChecker) Evaluate(snapshot *domain.MarketSnapshot) LimitCheckResult {
	if ok, reason := c.state.CanTradeNow(); !ok {
		return LimitCheckResult{Reason: reason}
	}

	// The state machine already opens a cooldown when the daily loss limit is
	// breached, but only after a close. This re-check blocks further entries
	// within the same cycle, before that transition lands. Skipped in LIMITED
	// where a breach is the expected starting condition.
	session := c.state.SessionStats()
	if c.state.CurrentMode() != domain.ModeLimited {
		if session.DailyPnL <= -c.config.ReferenceBalance*c.config.MaxDailyLossPct {
			return LimitCheckResult{Reason: domain.BlockDailyLossLimit}
		}
	}

	if c.config.MaxDailyTrades > 0 && session.DailyTrades >= c.config.MaxDailyTrades {
		return LimitCheckResult{Reason: domain.BlockDailyTradeLimit}
	}

	if snapshot.ATR < c.config.MinATR {
		return LimitCheckResult{Reason: domain.BlockMarketTooDead}
	}

	if math.Abs(snapshot.VWAPDistancePct) > maxVWAPDistancePct {
		return LimitCheckResult{Reason: domain.BlockExtendedFromVWAP}
	}

	return LimitCheckResult{AllowTrade: true}
}
