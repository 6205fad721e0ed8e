package state

import (
	"fmt"
	"time"

	"scalpBot/internal/domain"
)

// CooldownKind labels which cooldown trigger produced the current cooldown.
type CooldownKind string

const (
	CooldownShort CooldownKind = "SHORT" // consecutive-loss trigger, exits to NORMAL
	CooldownLong  CooldownKind = "LONG"  // daily-loss trigger, exits to LIMITED
)

// Config holds the protection thresholds for the account state machine.
// ReferenceBalance is the configured baseline account size used as the
// denominator for every percentage-based calculation, independent of the
// venue-reported balance.
type Config struct {
	ReferenceBalance       float64
	MaxDailyLossPct        float64 // daily loss fraction of reference that triggers the long cooldown
	MaxConsecutiveLosses   int     // losing streak length that triggers the short cooldown
	GlobalDrawdownPct      float64 // lifetime max drawdown fraction that forces HALT
	LimitedModeRecoveryPct float64 // equity gain fraction of reference that exits LIMITED early
	LimitedModeDuration    time.Duration
	CooldownShort          time.Duration
	CooldownLong           time.Duration

	// Now supplies the current time; defaults to UTC wall clock. Injected so
	// timer transitions are testable.
	Now func() time.Time
}

// Manager tracks live performance and enforces the tiered account-protection
// states. It owns SessionStats and EquityStats exclusively; both are mutated
// only through OnTradeClosed. None of its logic performs I/O, so no operation
// can fail once the manager is constructed.
//
// Timer evaluation is lazy and pull-based: every public accessor first
// advances expired timers, so callers never observe a stale COOLDOWN or
// LIMITED mode. The manager is not safe for concurrent mutation; a
// multi-worker deployment must serialize access per account.
type Manager struct {
	cfg Config
	now func() time.Time

	session domain.SessionStats
	equity  domain.EquityStats

	mode                  domain.Mode
	cooldownUntil         *time.Time
	nextModeAfterCooldown domain.Mode
	limitedUntil          *time.Time
	limitedExitEquity     *float64
	counters              domain.CooldownCounters
}

// NewManager creates a state machine in NORMAL mode with peak equity seeded at
// the reference balance.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.ReferenceBalance <= 0 {
		return nil, fmt.Errorf("state: reference balance must be positive")
	}
	if cfg.MaxDailyLossPct <= 0 || cfg.GlobalDrawdownPct <= 0 {
		return nil, fmt.Errorf("state: loss and drawdown thresholds must be positive")
	}
	if cfg.MaxConsecutiveLosses <= 0 {
		return nil, fmt.Errorf("state: max consecutive losses must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	m := &Manager{
		cfg:                   cfg,
		now:                   cfg.Now,
		mode:                  domain.ModeNormal,
		nextModeAfterCooldown: domain.ModeNormal,
		equity: domain.EquityStats{
			PeakEquity: cfg.ReferenceBalance,
		},
	}
	m.session = domain.SessionStats{TradingDay: m.dayKey(m.now())}
	return m, nil
}

// OnTradeClosed updates the stats and runs the state transitions for one
// closed trade. Transition checks run in a fixed order: the daily-loss
// cooldown wins over the consecutive-loss cooldown, the global drawdown check
// always runs afterwards and can override both with HALT, and the LIMITED
// recovery exit is evaluated last.
func (m *Manager) OnTradeClosed(result domain.TradeResult) {
	m.evaluateTimers()
	m.maybeRollTradingDay(result.Timestamp)

	pnl := result.NetPnL()
	m.session.DailyPnL += pnl
	m.session.DailyTrades++
	if result.IsLoss() {
		m.session.ConsecutiveLosses++
	} else {
		m.session.ConsecutiveLosses = 0
	}

	m.equity.CumulativePnL += pnl
	m.updateDrawdown()

	if m.session.DailyPnL <= -m.maxDailyLossAbs() {
		m.counters.Long++
		m.enterCooldown(m.cfg.CooldownLong, domain.ModeLimited)
	} else if m.session.ConsecutiveLosses >= m.cfg.MaxConsecutiveLosses {
		m.counters.Short++
		m.enterCooldown(m.cfg.CooldownShort, domain.ModeNormal)
	}

	if m.equity.MaxDrawdownPct >= m.cfg.GlobalDrawdownPct {
		m.mode = domain.ModeHalt
	}

	m.evaluateLimitedExit()
}

// ReconcileDailyTrades raises the daily trade count to the given value. The
// persisted trade log is authoritative at startup: a crash between snapshot
// saves can leave the restored count behind the trades actually recorded for
// the current UTC day. The count never decreases here.
func (m *Manager) ReconcileDailyTrades(count int) {
	m.evaluateTimers()
	m.maybeRollTradingDay(m.now())
	if count > m.session.DailyTrades {
		m.session.DailyTrades = count
	}
}

// CanTradeNow reports whether the current mode allows opening a new position:
// true for NORMAL and LIMITED, false for COOLDOWN and HALT.
func (m *Manager) CanTradeNow() (bool, domain.BlockReason) {
	m.evaluateTimers()
	switch m.mode {
	case domain.ModeHalt:
		return false, domain.BlockHalt
	case domain.ModeCooldown:
		return false, domain.BlockCooldown
	}
	return true, domain.BlockNone
}

// CurrentMode returns the active protection mode after advancing expired timers.
func (m *Manager) CurrentMode() domain.Mode {
	m.evaluateTimers()
	return m.mode
}

// SessionStats returns a copy of the per-day counters.
func (m *Manager) SessionStats() domain.SessionStats {
	return m.session
}

// EquityStats returns a copy of the lifetime counters.
func (m *Manager) EquityStats() domain.EquityStats {
	return m.equity
}

// CooldownCounters returns how often each cooldown trigger has fired.
func (m *Manager) CooldownCounters() domain.CooldownCounters {
	return m.counters
}

// CurrentEquity is reference balance plus cumulative realized pnl.
func (m *Manager) CurrentEquity() float64 {
	return m.cfg.ReferenceBalance + m.equity.CumulativePnL
}

// CurrentCooldownCountdown returns the kind of the active cooldown and the
// time remaining until it elapses. The kind is empty outside COOLDOWN.
func (m *Manager) CurrentCooldownCountdown() (CooldownKind, time.Duration) {
	m.evaluateTimers()
	if m.mode != domain.ModeCooldown || m.cooldownUntil == nil {
		return "", 0
	}
	remaining := m.cooldownUntil.Sub(m.now())
	if remaining < 0 {
		remaining = 0
	}
	if m.nextModeAfterCooldown == domain.ModeLimited {
		return CooldownLong, remaining
	}
	return CooldownShort, remaining
}

// ExportState returns the flat serializable snapshot of the machine.
func (m *Manager) ExportState() domain.StateSnapshot {
	m.evaluateTimers()
	snap := domain.StateSnapshot{
		Mode:                  m.mode,
		SessionStats:          m.session,
		EquityStats:           m.equity,
		NextModeAfterCooldown: m.nextModeAfterCooldown,
		CooldownCounters:      m.counters,
	}
	if m.cooldownUntil != nil {
		t := *m.cooldownUntil
		snap.CooldownUntil = &t
	}
	if m.limitedUntil != nil {
		t := *m.limitedUntil
		snap.LimitedUntil = &t
	}
	if m.limitedExitEquity != nil {
		v := *m.limitedExitEquity
		snap.LimitedExitEquity = &v
	}
	return snap
}

// ImportState restores the machine from a previously exported snapshot.
// Subsequent transitions behave exactly as they would have on the exporting
// instance.
func (m *Manager) ImportState(snap domain.StateSnapshot) error {
	if !snap.Mode.IsValid() {
		return fmt.Errorf("state: unknown mode %q in snapshot", snap.Mode)
	}
	nextMode := snap.NextModeAfterCooldown
	if nextMode == "" {
		nextMode = domain.ModeNormal
	}
	if !nextMode.IsValid() {
		return fmt.Errorf("state: unknown next mode %q in snapshot", snap.NextModeAfterCooldown)
	}

	m.mode = snap.Mode
	m.session = snap.SessionStats
	m.equity = snap.EquityStats
	m.nextModeAfterCooldown = nextMode
	m.counters = snap.CooldownCounters
	m.cooldownUntil = nil
	if snap.CooldownUntil != nil {
		t := snap.CooldownUntil.UTC()
		m.cooldownUntil = &t
	}
	m.limitedUntil = nil
	if snap.LimitedUntil != nil {
		t := snap.LimitedUntil.UTC()
		m.limitedUntil = &t
	}
	m.limitedExitEquity = nil
	if snap.LimitedExitEquity != nil {
		v := *snap.LimitedExitEquity
		m.limitedExitEquity = &v
	}
	return nil
}

// enterCooldown moves the machine into COOLDOWN for the given duration. A
// non-positive duration transitions straight to nextMode with no COOLDOWN
// interstitial. Entering the long cooldown also arms the LIMITED window: its
// deadline starts when the cooldown ends, and its early-exit threshold is the
// equity at trigger time plus the configured recovery amount.
func (m *Manager) enterCooldown(d time.Duration, nextMode domain.Mode) {
	if d <= 0 {
		m.mode = nextMode
		return
	}
	until := m.now().Add(d)
	m.mode = domain.ModeCooldown
	m.cooldownUntil = &until
	m.nextModeAfterCooldown = nextMode

	if nextMode == domain.ModeLimited {
		limitedUntil := until.Add(m.cfg.LimitedModeDuration)
		m.limitedUntil = &limitedUntil
		threshold := m.CurrentEquity() + m.cfg.ReferenceBalance*m.cfg.LimitedModeRecoveryPct
		m.limitedExitEquity = &threshold
	}
}

// evaluateTimers advances expired timed transitions: COOLDOWN ends into its
// recorded next mode, LIMITED expires into NORMAL. HALT has no timer and never
// auto-exits.
func (m *Manager) evaluateTimers() {
	now := m.now()
	if m.mode == domain.ModeCooldown && m.cooldownUntil != nil && !now.Before(*m.cooldownUntil) {
		m.mode = m.nextModeAfterCooldown
		m.cooldownUntil = nil
	}
	if m.mode == domain.ModeLimited && m.limitedUntil != nil && !now.Before(*m.limitedUntil) {
		m.mode = domain.ModeNormal
		m.limitedUntil = nil
		m.limitedExitEquity = nil
	}
}

// evaluateLimitedExit leaves LIMITED as soon as equity reaches the recovery
// threshold, clearing the window.
func (m *Manager) evaluateLimitedExit() {
	if m.mode != domain.ModeLimited || m.limitedExitEquity == nil {
		return
	}
	if m.CurrentEquity() >= *m.limitedExitEquity {
		m.mode = domain.ModeNormal
		m.limitedUntil = nil
		m.limitedExitEquity = nil
	}
}

// updateDrawdown recomputes peak equity and the running maximum drawdown.
// Both values only ever increase.
func (m *Manager) updateDrawdown() {
	current := m.CurrentEquity()
	if current > m.equity.PeakEquity {
		m.equity.PeakEquity = current
	}
	if m.equity.PeakEquity <= 0 {
		return
	}
	drawdown := (m.equity.PeakEquity - current) / m.equity.PeakEquity
	if drawdown > m.equity.MaxDrawdownPct {
		m.equity.MaxDrawdownPct = drawdown
	}
}

// maybeRollTradingDay resets the session counters when the trade's timestamp
// falls on a new UTC calendar day. Daily counters never carry over.
func (m *Manager) maybeRollTradingDay(ts time.Time) {
	day := m.dayKey(ts)
	if day != m.session.TradingDay {
		m.session = domain.SessionStats{TradingDay: day}
	}
}

func (m *Manager) maxDailyLossAbs() float64 {
	return m.cfg.ReferenceBalance * m.cfg.MaxDailyLossPct
}

func (m *Manager) dayKey(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}
