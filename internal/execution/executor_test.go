package execution

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scalpBot/internal/domain"
	"scalpBot/internal/ports"
)

type noopLogger struct{}

func (noopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (noopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (noopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockExchange struct {
	submitAcks []*ports.OrderAck
	submitErrs []error
	submitted  []ports.OrderRequest

	positions    []*ports.OpenPosition
	positionErrs []error

	fills     [][]ports.Fill
	fillErrs  []error
	fillSince []time.Time
}

func (m *mockExchange) SubmitMarketOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderAck, error) {
	m.submitted = append(m.submitted, req)
	i := len(m.submitted) - 1
	var err error
	if i < len(m.submitErrs) {
		err = m.submitErrs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(m.submitAcks) {
		return m.submitAcks[i], nil
	}
	return &ports.OrderAck{OrderID: 1}, nil
}

func (m *mockExchange) GetOpenPosition(ctx context.Context, symbol string) (*ports.OpenPosition, error) {
	var pos *ports.OpenPosition
	var err error
	if len(m.positions) > 0 {
		pos = m.positions[0]
		m.positions = m.positions[1:]
	}
	if len(m.positionErrs) > 0 {
		err = m.positionErrs[0]
		m.positionErrs = m.positionErrs[1:]
	}
	return pos, err
}

func (m *mockExchange) ListFills(ctx context.Context, symbol string, since time.Time, limit int) ([]ports.Fill, error) {
	m.fillSince = append(m.fillSince, since)
	var fills []ports.Fill
	var err error
	if len(m.fills) > 0 {
		fills = m.fills[0]
		m.fills = m.fills[1:]
	}
	if len(m.fillErrs) > 0 {
		err = m.fillErrs[0]
		m.fillErrs = m.fillErrs[1:]
	}
	return fills, err
}

func (m *mockExchange) SetServerTime(ctx context.Context) error { return nil }
func (m *mockExchange) Ping(ctx context.Context) error          { return nil }
func (m *mockExchange) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, nil
}
func (m *mockExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return nil
}
func (m *mockExchange) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	return nil, nil
}

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestExecutor(t *testing.T, client *mockExchange) *Executor {
	t.Helper()
	e, err := New(Config{
		Client:           client,
		Logger:           noopLogger{},
		Symbol:           "ETHUSDT",
		FillPollAttempts: 2,
		FillPollDelay:    time.Millisecond,
		Now:              func() time.Time { return baseTime },
		Sleep:            func(ctx context.Context, d time.Duration) error { return nil },
	})
	require.NoError(t, err)
	return e
}

func openRequest() OpenRequest {
	return OpenRequest{
		Side:            domain.Long,
		Qty:             0.5,
		EntryPrice:      2500,
		StopLoss:        2480,
		TakeProfit:      2560,
		TimeStopMinutes: 45,
	}
}

func TestOpenTrade(t *testing.T) {
	t.Run("uses actual fill price and watermark", func(t *testing.T) {
		fillTime := baseTime.Add(200 * time.Millisecond)
		client := &mockExchange{
			submitAcks: []*ports.OrderAck{{OrderID: 42}},
			fills: [][]ports.Fill{{
				{OrderID: 42, Side: domain.Buy, Price: 2500.35, Quantity: 0.5, Time: fillTime},
			}},
		}
		e := newTestExecutor(t, client)

		trade, err := e.OpenTrade(context.Background(), openRequest())
		require.NoError(t, err)
		assert.Equal(t, 2500.35, trade.EntryPrice)
		assert.Equal(t, fillTime, trade.LastExecTime)
		assert.Equal(t, int64(42), trade.EntryOrderID)
		assert.Same(t, trade, e.ActiveTrade())

		// Entry order carries the protective prices.
		require.Len(t, client.submitted, 1)
		assert.Equal(t, domain.Buy, client.submitted[0].Side)
		assert.Equal(t, 2480.0, client.submitted[0].StopLoss)
		assert.Equal(t, 2560.0, client.submitted[0].TakeProfit)
		assert.NotEmpty(t, client.submitted[0].ClientOrderID)
	})

	t.Run("falls back to requested price when fill never surfaces", func(t *testing.T) {
		client := &mockExchange{
			submitAcks: []*ports.OrderAck{{OrderID: 42}},
			fills:      [][]ports.Fill{{}, {}},
		}
		e := newTestExecutor(t, client)

		trade, err := e.OpenTrade(context.Background(), openRequest())
		require.NoError(t, err)
		assert.Equal(t, 2500.0, trade.EntryPrice)
		assert.Equal(t, baseTime, trade.LastExecTime)
		assert.NotNil(t, e.ActiveTrade())
	})

	t.Run("rejects second trade while slot occupied", func(t *testing.T) {
		client := &mockExchange{
			submitAcks: []*ports.OrderAck{{OrderID: 42}},
			fills:      [][]ports.Fill{{}, {}},
		}
		e := newTestExecutor(t, client)
		_, err := e.OpenTrade(context.Background(), openRequest())
		require.NoError(t, err)

		_, err = e.OpenTrade(context.Background(), openRequest())
		assert.ErrorIs(t, err, ports.ErrPositionAlreadyExists)
	})

	t.Run("submit failure leaves slot empty", func(t *testing.T) {
		client := &mockExchange{submitErrs: []error{ports.ErrOrderPlacementFailed}}
		e := newTestExecutor(t, client)

		_, err := e.OpenTrade(context.Background(), openRequest())
		assert.ErrorIs(t, err, ports.ErrOrderPlacementFailed)
		assert.Nil(t, e.ActiveTrade())
	})
}

func openTestTrade(t *testing.T, e *Executor, client *mockExchange) *domain.ActiveTrade {
	t.Helper()
	client.submitAcks = append(client.submitAcks, &ports.OrderAck{OrderID: 42})
	client.fills = append(client.fills, []ports.Fill{
		{OrderID: 42, Side: domain.Buy, Price: 2500, Quantity: 0.5, Time: baseTime},
	})
	trade, err := e.OpenTrade(context.Background(), openRequest())
	require.NoError(t, err)
	return trade
}

func TestPollTradeClose(t *testing.T) {
	t.Run("position still open", func(t *testing.T) {
		client := &mockExchange{}
		e := newTestExecutor(t, client)
		openTestTrade(t, e, client)

		client.positions = []*ports.OpenPosition{{Symbol: "ETHUSDT", Side: domain.Long, Size: 0.5}}
		price, err := e.PollTradeClose(context.Background())
		require.NoError(t, err)
		assert.Nil(t, price)
		assert.NotNil(t, e.ActiveTrade())
	})

	t.Run("flat with matching exit fill", func(t *testing.T) {
		client := &mockExchange{}
		e := newTestExecutor(t, client)
		openTestTrade(t, e, client)

		client.positions = []*ports.OpenPosition{nil}
		client.fills = [][]ports.Fill{{
			// Entry fill at the watermark is skipped, later sell is the exit.
			{OrderID: 42, Side: domain.Buy, Price: 2500, Time: baseTime},
			{OrderID: 43, Side: domain.Sell, Price: 2561.2, Time: baseTime.Add(3 * time.Minute)},
		}}

		price, err := e.PollTradeClose(context.Background())
		require.NoError(t, err)
		require.NotNil(t, price)
		assert.Equal(t, 2561.2, *price)
		assert.Nil(t, e.ActiveTrade())
	})

	t.Run("picks earliest matching fill", func(t *testing.T) {
		client := &mockExchange{}
		e := newTestExecutor(t, client)
		openTestTrade(t, e, client)

		client.positions = []*ports.OpenPosition{nil}
		client.fills = [][]ports.Fill{{
			{OrderID: 44, Side: domain.Sell, Price: 2555, Time: baseTime.Add(5 * time.Minute)},
			{OrderID: 43, Side: domain.Sell, Price: 2561.2, Time: baseTime.Add(3 * time.Minute)},
		}}

		price, err := e.PollTradeClose(context.Background())
		require.NoError(t, err)
		require.NotNil(t, price)
		assert.Equal(t, 2561.2, *price)
	})

	t.Run("flat but fill lookup fails keeps slot", func(t *testing.T) {
		client := &mockExchange{}
		e := newTestExecutor(t, client)
		openTestTrade(t, e, client)

		client.positions = []*ports.OpenPosition{nil}
		client.fillErrs = []error{ports.ErrExchangeUnavailable}

		_, err := e.PollTradeClose(context.Background())
		assert.ErrorIs(t, err, ports.ErrExchangeUnavailable)
		assert.NotNil(t, e.ActiveTrade())
	})

	t.Run("flat with no attributable fill clears slot", func(t *testing.T) {
		client := &mockExchange{}
		e := newTestExecutor(t, client)
		openTestTrade(t, e, client)

		client.positions = []*ports.OpenPosition{nil}
		client.fills = [][]ports.Fill{{
			// Same-side and at-watermark fills never attribute as the exit.
			{OrderID: 42, Side: domain.Buy, Price: 2500, Time: baseTime},
			{OrderID: 45, Side: domain.Sell, Price: 2400, Time: baseTime.Add(-time.Hour)},
		}}

		price, err := e.PollTradeClose(context.Background())
		assert.ErrorIs(t, err, ports.ErrExitFillNotFound)
		assert.Nil(t, price)
		assert.Nil(t, e.ActiveTrade())
	})

	t.Run("transport error on position check keeps slot", func(t *testing.T) {
		client := &mockExchange{}
		e := newTestExecutor(t, client)
		openTestTrade(t, e, client)

		client.positionErrs = []error{ports.ErrConnectionFailed}
		_, err := e.PollTradeClose(context.Background())
		assert.ErrorIs(t, err, ports.ErrConnectionFailed)
		assert.NotNil(t, e.ActiveTrade())
	})

	t.Run("empty slot", func(t *testing.T) {
		e := newTestExecutor(t, &mockExchange{})
		_, err := e.PollTradeClose(context.Background())
		assert.ErrorIs(t, err, ports.ErrPositionNotFound)
	})
}

func TestCloseTrade(t *testing.T) {
	t.Run("submits inverse reduce-only and clears slot", func(t *testing.T) {
		client := &mockExchange{}
		e := newTestExecutor(t, client)
		openTestTrade(t, e, client)

		client.submitAcks = append(client.submitAcks, &ports.OrderAck{OrderID: 50})
		client.submitErrs = []error{nil, nil}
		client.fills = [][]ports.Fill{{
			{OrderID: 50, Side: domain.Sell, Price: 2498.8, Time: baseTime.Add(45 * time.Minute)},
		}}

		price, err := e.CloseTrade(context.Background(), domain.CloseReasonTimeStop)
		require.NoError(t, err)
		require.NotNil(t, price)
		assert.Equal(t, 2498.8, *price)
		assert.Nil(t, e.ActiveTrade())

		closeOrder := client.submitted[len(client.submitted)-1]
		assert.Equal(t, domain.Sell, closeOrder.Side)
		assert.True(t, closeOrder.ReduceOnly)
		assert.Equal(t, 0.5, closeOrder.Quantity)
	})

	t.Run("submit failure keeps slot", func(t *testing.T) {
		client := &mockExchange{}
		e := newTestExecutor(t, client)
		openTestTrade(t, e, client)

		client.submitErrs = []error{nil, ports.ErrOrderPlacementFailed}
		_, err := e.CloseTrade(context.Background(), domain.CloseReasonTimeStop)
		assert.ErrorIs(t, err, ports.ErrOrderPlacementFailed)
		assert.NotNil(t, e.ActiveTrade())
	})

	t.Run("missing close fill returns nil price", func(t *testing.T) {
		client := &mockExchange{}
		e := newTestExecutor(t, client)
		openTestTrade(t, e, client)

		client.submitAcks = append(client.submitAcks, &ports.OrderAck{OrderID: 50})
		client.submitErrs = []error{nil, nil}
		client.fills = [][]ports.Fill{{}, {}}

		price, err := e.CloseTrade(context.Background(), domain.CloseReasonManual)
		require.NoError(t, err)
		assert.Nil(t, price)
		assert.Nil(t, e.ActiveTrade())
	})
}

func TestRecoverOpenTrade(t *testing.T) {
	t.Run("adopts venue position", func(t *testing.T) {
		client := &mockExchange{
			positions: []*ports.OpenPosition{{
				Symbol:     "ETHUSDT",
				Side:       domain.Short,
				Size:       0.8,
				EntryPrice: 2510,
				StopLoss:   2530,
				TakeProfit: 2470,
			}},
		}
		e := newTestExecutor(t, client)

		trade, err := e.RecoverOpenTrade(context.Background(), 45)
		require.NoError(t, err)
		require.NotNil(t, trade)
		assert.Equal(t, domain.Short, trade.Side)
		assert.Equal(t, 0.8, trade.Quantity)
		assert.Equal(t, baseTime, trade.OpenedAt)
		assert.Equal(t, baseTime, trade.LastExecTime)
		assert.Equal(t, 45, trade.TimeStopMinutes)
		assert.Same(t, trade, e.ActiveTrade())
	})

	t.Run("no position to recover", func(t *testing.T) {
		e := newTestExecutor(t, &mockExchange{})
		trade, err := e.RecoverOpenTrade(context.Background(), 45)
		require.NoError(t, err)
		assert.Nil(t, trade)
	})

	t.Run("venue error propagates", func(t *testing.T) {
		client := &mockExchange{positionErrs: []error{ports.ErrExchangeUnavailable}}
		e := newTestExecutor(t, client)
		_, err := e.RecoverOpenTrade(context.Background(), 45)
		assert.ErrorIs(t, err, ports.ErrExchangeUnavailable)
	})
}
