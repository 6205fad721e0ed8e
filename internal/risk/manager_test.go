package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalpBot/internal/domain"
)

func testSymbol() domain.SymbolInfo {
	return domain.SymbolInfo{
		Symbol:   "ETHUSDT",
		MinQty:   0.001,
		QtyStep:  0.001,
		TickSize: 0.01,
	}
}

func TestNewManager(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		symbol  domain.SymbolInfo
		wantErr bool
	}{
		{
			name:   "valid",
			config: Config{ReferenceBalance: 1000, RiskPerTradePct: 0.01},
			symbol: testSymbol(),
		},
		{
			name:    "zero reference balance",
			config:  Config{ReferenceBalance: 0, RiskPerTradePct: 0.01},
			symbol:  testSymbol(),
			wantErr: true,
		},
		{
			name:    "zero risk per trade",
			config:  Config{ReferenceBalance: 1000},
			symbol:  testSymbol(),
			wantErr: true,
		},
		{
			name:    "invalid symbol step",
			config:  Config{ReferenceBalance: 1000, RiskPerTradePct: 0.01},
			symbol:  domain.SymbolInfo{Symbol: "XXXUSDT", MinQty: 0.001},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(tt.config, tt.symbol)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	m, err := NewManager(Config{ReferenceBalance: 1000, RiskPerTradePct: 0.01}, testSymbol())
	require.NoError(t, err)

	t.Run("sizes from stop distance", func(t *testing.T) {
		// Risk 10 over a 1.00 stop distance is exactly 10 units.
		result, err := m.Evaluate(100, 99, 103)
		require.NoError(t, err)
		assert.Equal(t, 10.0, result.Qty)
		assert.Equal(t, 100.0, result.EntryPrice)
		assert.Equal(t, 99.0, result.StopLoss)
		assert.Equal(t, 103.0, result.TakeProfit)
		assert.Equal(t, 10.0, result.RiskAmount)
	})

	t.Run("short side uses absolute distance", func(t *testing.T) {
		result, err := m.Evaluate(100, 101, 97)
		require.NoError(t, err)
		assert.Equal(t, 10.0, result.Qty)
	})

	t.Run("floors to quantity step", func(t *testing.T) {
		// 10 / 3 = 3.3333... floors to 3.333 on a 0.001 step.
		result, err := m.Evaluate(100, 97, 109)
		require.NoError(t, err)
		assert.Equal(t, 3.333, result.Qty)
	})

	t.Run("zero stop distance", func(t *testing.T) {
		_, err := m.Evaluate(100, 100, 103)
		assert.ErrorIs(t, err, ErrInvalidStopDistance)
	})

	t.Run("non positive prices", func(t *testing.T) {
		_, err := m.Evaluate(0, 99, 103)
		assert.ErrorIs(t, err, ErrInvalidStopDistance)
	})

	t.Run("below minimum quantity", func(t *testing.T) {
		wide, err := NewManager(
			Config{ReferenceBalance: 1000, RiskPerTradePct: 0.01},
			domain.SymbolInfo{Symbol: "BIGUSDT", MinQty: 1, QtyStep: 1},
		)
		require.NoError(t, err)

		// Risk 10 over a 20.00 stop distance floors to 0 whole units.
		_, err = wide.Evaluate(50000, 49980, 50100)
		assert.ErrorIs(t, err, ErrBelowMinQty)
	})
}

func TestEvaluate_QtyScalesLinearlyWithRiskPct(t *testing.T) {
	low, err := NewManager(Config{ReferenceBalance: 1000, RiskPerTradePct: 0.01}, testSymbol())
	require.NoError(t, err)
	high, err := NewManager(Config{ReferenceBalance: 1000, RiskPerTradePct: 0.02}, testSymbol())
	require.NoError(t, err)

	// Same entry and stop, doubled risk budget: exactly double the size.
	lowResult, err := low.Evaluate(100, 99, 103)
	require.NoError(t, err)
	highResult, err := high.Evaluate(100, 99, 103)
	require.NoError(t, err)

	assert.Equal(t, 2*lowResult.Qty, highResult.Qty)
	assert.Equal(t, 2*lowResult.RiskAmount, highResult.RiskAmount)
}

func TestEvaluate_LossAtStopMatchesRiskAmount(t *testing.T) {
	m, err := NewManager(Config{ReferenceBalance: 5000, RiskPerTradePct: 0.02}, testSymbol())
	require.NoError(t, err)

	result, err := m.Evaluate(2500, 2480, 2560)
	require.NoError(t, err)

	lossAtStop := result.Qty * (result.EntryPrice - result.StopLoss)
	assert.InDelta(t, 100.0, lossAtStop, 0.5)
	assert.LessOrEqual(t, lossAtStop, result.RiskAmount)
}
