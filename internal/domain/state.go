package domain

import "time"

// Mode is one of the coarse account-protection states. Exactly one mode is
// active at any instant. Severity ordering: NORMAL < COOLDOWN/LIMITED < HALT;
// HALT is terminal until an external reset.
type Mode string

const (
	ModeNormal   Mode = "NORMAL"
	ModeCooldown Mode = "COOLDOWN"
	ModeLimited  Mode = "LIMITED"
	ModeHalt     Mode = "HALT"
)

// IsValid reports whether m is one of the known protection modes.
func (m Mode) IsValid() bool {
	switch m {
	case ModeNormal, ModeCooldown, ModeLimited, ModeHalt:
		return true
	}
	return false
}

// SessionStats holds the per-trading-day counters. The counters reset whenever
// a trade's timestamp falls on a new UTC calendar day.
type SessionStats struct {
	TradingDay        string  `json:"trading_day"` // UTC date key, e.g. "2025-11-03"
	DailyPnL          float64 `json:"daily_pnl"`
	DailyTrades       int     `json:"daily_trades"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
}

// EquityStats holds the account-lifetime counters. PeakEquity and
// MaxDrawdownPct are monotonically non-decreasing.
type EquityStats struct {
	CumulativePnL  float64 `json:"cumulative_pnl"`
	PeakEquity     float64 `json:"peak_equity"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
}

// CooldownCounters counts how often each cooldown trigger fired over the life
// of the account.
type CooldownCounters struct {
	Short int `json:"short"`
	Long  int `json:"long"`
}

// StateSnapshot is the flat serializable form of the account-protection state.
// Exporting and re-importing a snapshot reproduces identical transition
// behavior for the same subsequent inputs.
type StateSnapshot struct {
	Mode                  Mode             `json:"mode"`
	SessionStats          SessionStats     `json:"session_stats"`
	EquityStats           EquityStats      `json:"equity_stats"`
	CooldownUntil         *time.Time       `json:"cooldown_until"`
	NextModeAfterCooldown Mode             `json:"next_mode_after_cooldown"`
	LimitedUntil          *time.Time       `json:"limited_until"`
	LimitedExitEquity     *float64         `json:"limited_exit_equity"`
	CooldownCounters      CooldownCounters `json:"cooldown_counters"`
}
