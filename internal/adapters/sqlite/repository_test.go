package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scalpBot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "scalp-bot-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func sampleTrade(exitTime time.Time, pnl float64) *domain.Trade {
	return &domain.Trade{
		Symbol:      "ETHUSDT",
		Side:        domain.Long,
		Quantity:    0.5,
		EntryPrice:  2500,
		ExitPrice:   2500 + pnl/0.5,
		StopLoss:    2480,
		TakeProfit:  2560,
		PNL:         pnl,
		Fees:        0.4,
		RMultiple:   pnl / 10,
		Mode:        domain.ModeNormal,
		CloseReason: domain.CloseReasonProtective,
		EntryTime:   exitTime.Add(-20 * time.Minute),
		ExitTime:    exitTime,
	}
}

func TestRepository_CreateAndFindTrades(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now().UTC()
	first := sampleTrade(now.Add(-2*time.Hour), 12.5)
	second := sampleTrade(now.Add(-1*time.Hour), -10)
	second.Side = domain.Short
	second.CloseReason = domain.CloseReasonTimeStop
	second.Mode = domain.ModeLimited

	id1, err := repo.CreateTrade(ctx, first)
	require.NoError(t, err)
	assert.Greater(t, id1, int64(0))
	assert.Equal(t, id1, first.ID)

	id2, err := repo.CreateTrade(ctx, second)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	t.Run("FindBySymbol newest first", func(t *testing.T) {
		trades, err := repo.FindBySymbol(ctx, "ETHUSDT", 10)
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Equal(t, id2, trades[0].ID)
		assert.Equal(t, domain.Short, trades[0].Side)
		assert.Equal(t, domain.CloseReasonTimeStop, trades[0].CloseReason)
		assert.Equal(t, domain.ModeLimited, trades[0].Mode)
		assert.InDelta(t, -10, trades[0].PNL, 1e-9)
	})

	t.Run("FindBySymbol respects limit", func(t *testing.T) {
		trades, err := repo.FindBySymbol(ctx, "ETHUSDT", 1)
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, id2, trades[0].ID)
	})

	t.Run("FindBySymbol unknown symbol", func(t *testing.T) {
		trades, err := repo.FindBySymbol(ctx, "BTCUSDT", 10)
		require.NoError(t, err)
		assert.Empty(t, trades)
	})

	t.Run("FindAll oldest first", func(t *testing.T) {
		trades, err := repo.FindAll(ctx)
		require.NoError(t, err)
		require.Len(t, trades, 2)
		assert.Equal(t, id1, trades[0].ID)
		assert.Equal(t, id2, trades[1].ID)
	})

	t.Run("GetTotalProfit", func(t *testing.T) {
		total, err := repo.GetTotalProfit(ctx)
		require.NoError(t, err)
		assert.InDelta(t, 2.5, total, 1e-9)
	})

	t.Run("CountTodayBySymbol", func(t *testing.T) {
		count, err := repo.CountTodayBySymbol(ctx, "ETHUSDT")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = repo.CountTodayBySymbol(ctx, "BTCUSDT")
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestRepository_CountTodayIgnoresOldTrades(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	old := sampleTrade(time.Now().UTC().AddDate(0, 0, -3), 5)
	_, err := repo.CreateTrade(ctx, old)
	require.NoError(t, err)

	count, err := repo.CountTodayBySymbol(ctx, "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRepository_StateRoundTrip(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("empty database returns nil", func(t *testing.T) {
		snap, err := repo.LoadState(ctx)
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	cooldownUntil := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	limitedUntil := cooldownUntil.Add(24 * time.Hour)
	exitEquity := 970.0
	snapshot := domain.StateSnapshot{
		Mode: domain.ModeCooldown,
		SessionStats: domain.SessionStats{
			TradingDay:        "2025-03-10",
			DailyPnL:          -52.5,
			DailyTrades:       4,
			ConsecutiveLosses: 2,
		},
		EquityStats: domain.EquityStats{
			CumulativePnL:  -50,
			PeakEquity:     1020,
			MaxDrawdownPct: 0.0686,
		},
		CooldownUntil:         &cooldownUntil,
		NextModeAfterCooldown: domain.ModeLimited,
		LimitedUntil:          &limitedUntil,
		LimitedExitEquity:     &exitEquity,
		CooldownCounters:      domain.CooldownCounters{Short: 1, Long: 2},
	}

	t.Run("save and load", func(t *testing.T) {
		require.NoError(t, repo.SaveState(ctx, snapshot))
		loaded, err := repo.LoadState(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, snapshot, *loaded)
	})

	t.Run("save overwrites previous snapshot", func(t *testing.T) {
		updated := snapshot
		updated.Mode = domain.ModeNormal
		updated.CooldownUntil = nil
		updated.LimitedUntil = nil
		updated.LimitedExitEquity = nil
		require.NoError(t, repo.SaveState(ctx, updated))

		loaded, err := repo.LoadState(ctx)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, domain.ModeNormal, loaded.Mode)
		assert.Nil(t, loaded.CooldownUntil)
	})
}
