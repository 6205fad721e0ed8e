package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scalpBot/internal/domain"
)

type stubAccountState struct {
	ok      bool
	reason  domain.BlockReason
	mode    domain.Mode
	session domain.SessionStats
}

func (s *stubAccountState) CanTradeNow() (bool, domain.BlockReason) { return s.ok, s.reason }
func (s *stubAccountState) CurrentMode() domain.Mode                { return s.mode }
func (s *stubAccountState) SessionStats() domain.SessionStats       { return s.session }

func quietSnapshot() *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		Symbol:          "ETHUSDT",
		Price:           2500,
		ATR:             3.0,
		VWAP:            2498,
		VWAPDistancePct: 0.08,
	}
}

func TestLimitsChecker_Evaluate(t *testing.T) {
	config := LimitsConfig{
		ReferenceBalance: 1000,
		MaxDailyLossPct:  0.05,
		MaxDailyTrades:   10,
		MinATR:           1.0,
	}

	tests := []struct {
		name       string
		state      *stubAccountState
		snapshot   *domain.MarketSnapshot
		wantAllow  bool
		wantReason domain.BlockReason
	}{
		{
			name:      "all clear",
			state:     &stubAccountState{ok: true, mode: domain.ModeNormal},
			snapshot:  quietSnapshot(),
			wantAllow: true,
		},
		{
			name:       "state machine blocks first",
			state:      &stubAccountState{ok: false, reason: domain.BlockHalt, mode: domain.ModeHalt},
			snapshot:   quietSnapshot(),
			wantReason: domain.BlockHalt,
		},
		{
			name: "daily loss breached",
			state: &stubAccountState{
				ok:      true,
				mode:    domain.ModeNormal,
				session: domain.SessionStats{DailyPnL: -50},
			},
			snapshot:   quietSnapshot(),
			wantReason: domain.BlockDailyLossLimit,
		},
		{
			name: "daily loss check skipped in limited mode",
			state: &stubAccountState{
				ok:      true,
				mode:    domain.ModeLimited,
				session: domain.SessionStats{DailyPnL: -60},
			},
			snapshot:  quietSnapshot(),
			wantAllow: true,
		},
		{
			name: "daily trade count reached",
			state: &stubAccountState{
				ok:      true,
				mode:    domain.ModeNormal,
				session: domain.SessionStats{DailyTrades: 10},
			},
			snapshot:   quietSnapshot(),
			wantReason: domain.BlockDailyTradeLimit,
		},
		{
			name:  "market too dead",
			state: &stubAccountState{ok: true, mode: domain.ModeNormal},
			snapshot: func() *domain.MarketSnapshot {
				s := quietSnapshot()
				s.ATR = 0.5
				return s
			}(),
			wantReason: domain.BlockMarketTooDead,
		},
		{
			name:  "extended above vwap",
			state: &stubAccountState{ok: true, mode: domain.ModeNormal},
			snapshot: func() *domain.MarketSnapshot {
				s := quietSnapshot()
				s.VWAPDistancePct = 1.6
				return s
			}(),
			wantReason: domain.BlockExtendedFromVWAP,
		},
		{
			name:  "extended below vwap",
			state: &stubAccountState{ok: true, mode: domain.ModeNormal},
			snapshot: func() *domain.MarketSnapshot {
				s := quietSnapshot()
				s.VWAPDistancePct = -1.6
				return s
			}(),
			wantReason: domain.BlockExtendedFromVWAP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := NewLimitsChecker(config, tt.state)
			result := checker.Evaluate(tt.snapshot)
			assert.Equal(t, tt.wantAllow, result.AllowTrade)
			assert.Equal(t, tt.wantReason, result.Reason)
		})
	}
}

func TestLimitsChecker_UnlimitedDailyTrades(t *testing.T) {
	config := LimitsConfig{
		ReferenceBalance: 1000,
		MaxDailyLossPct:  0.05,
		MaxDailyTrades:   0,
		MinATR:           1.0,
	}
	state := &stubAccountState{
		ok:      true,
		mode:    domain.ModeNormal,
		session: domain.SessionStats{DailyTrades: 500},
	}

	result := NewLimitsChecker(config, state).Evaluate(quietSnapshot())
	assert.True(t, result.AllowTrade)
}
