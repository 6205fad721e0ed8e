package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"scalpBot/internal/domain"
	"scalpBot/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Client implements the ports.ExchangeClient interface using the go-binance library.
type Client struct {
	futuresClient *futures.Client
	logger        ports.Logger
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Client will only work for public endpoints.")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	return &Client{futuresClient: client, logger: cfg.Logger}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Signature for this request is not valid
			mappedErr = ports.ErrAuthenticationFailed
		case -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130:
			mappedErr = ports.ErrInvalidRequest
		case -2010, -2022: // New order rejected / ReduceOnly order rejected
			mappedErr = ports.ErrOrderPlacementFailed
		case -2013: // Order does not exist
			mappedErr = ports.ErrOrderNotFound
		case -2014, -2015: // API-key format invalid / invalid key, IP, or permissions
			mappedErr = ports.ErrAuthenticationFailed
		case -2019, -3005, -3041: // Margin or balance insufficient
			mappedErr = ports.ErrInsufficientFunds
		case -4003, -4014, -4015: // Qty / price / leverage out of range
			mappedErr = ports.ErrInvalidRequest
		case -4044: // Position not found
			mappedErr = ports.ErrPositionNotFound
		default:
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// SetServerTime synchronizes the client's time with the server's time.
func (c *Client) SetServerTime(ctx context.Context) error {
	op := "SetServerTime"
	_, err := c.futuresClient.NewSetServerTimeService().Do(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	err := c.futuresClient.NewPingService().Do(ctx)
	if err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetTickerPrice retrieves the last ticker price for a given symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetTickerPrice"
	tickers, err := c.futuresClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	if len(tickers) == 0 {
		err := fmt.Errorf("no ticker data returned for symbol %s", symbol)
		return 0, c.handleError(ctx, err, op)
	}

	price, err := strconv.ParseFloat(tickers[0].LastPrice, 64)
	if err != nil {
		parseErr := fmt.Errorf("could not parse price '%s': %w", tickers[0].LastPrice, err)
		return 0, c.handleError(ctx, parseErr, op)
	}
	return price, nil
}

// SetLeverage sets the leverage for a specific symbol.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	op := "SetLeverage"
	_, err := c.futuresClient.NewChangeLeverageService().
		Symbol(symbol).
		Leverage(leverage).
		Do(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "leverage": leverage})
	return nil
}

// SubmitMarketOrder places a market order. When the request carries stop-loss
// or take-profit prices, matching close-position protective orders go in
// right after the entry; if a protective order is rejected the freshly opened
// position is emergency-closed so it never runs unprotected.
func (c *Client) SubmitMarketOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderAck, error) {
	op := "SubmitMarketOrder"
	qty := formatFloat(req.Quantity)

	svc := c.futuresClient.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderTypeMarket).
		Quantity(qty).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT)
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}
	if req.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}

	order, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	ack := translateOrderAck(order)
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":   req.Symbol,
		"side":     req.Side,
		"quantity": qty,
		"orderID":  ack.OrderID,
		"avgPrice": ack.AvgPrice,
	})

	protectSide := inverseSide(req.Side)
	if req.StopLoss > 0 {
		if err := c.placeProtectiveOrder(ctx, req.Symbol, protectSide, futures.OrderTypeStopMarket, req.StopLoss); err != nil {
			c.emergencyClose(ctx, req.Symbol, protectSide, qty)
			return nil, fmt.Errorf("%s: stop loss placement: %w", op, err)
		}
	}
	if req.TakeProfit > 0 {
		if err := c.placeProtectiveOrder(ctx, req.Symbol, protectSide, futures.OrderTypeTakeProfitMarket, req.TakeProfit); err != nil {
			c.emergencyClose(ctx, req.Symbol, protectSide, qty)
			return nil, fmt.Errorf("%s: take profit placement: %w", op, err)
		}
	}

	return ack, nil
}

// placeProtectiveOrder submits a close-position stop or take-profit trigger.
func (c *Client) placeProtectiveOrder(ctx context.Context, symbol string, side domain.OrderSide, orderType futures.OrderType, stopPrice float64) error {
	op := "PlaceProtectiveOrder"
	order, err := c.futuresClient.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(orderType).
		StopPrice(formatFloat(stopPrice)).
		ClosePosition(true).
		Do(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":    symbol,
		"type":      orderType,
		"stopPrice": stopPrice,
		"orderID":   order.OrderID,
	})
	return nil
}

// emergencyClose flattens a position whose protective orders could not be
// placed. A failure here is only logged; the caller already returns an error.
func (c *Client) emergencyClose(ctx context.Context, symbol string, side domain.OrderSide, qty string) {
	_, err := c.futuresClient.NewCreateOrderService().
		Symbol(symbol).
		Side(futures.SideType(side)).
		Type(futures.OrderTypeMarket).
		Quantity(qty).
		ReduceOnly(true).
		Do(ctx)
	if err != nil {
		c.logger.Error(ctx, err, "Emergency close after protective order failure did not go through",
			map[string]interface{}{"symbol": symbol, "quantity": qty})
		return
	}
	c.logger.Warn(ctx, "Position emergency-closed after protective order failure",
		map[string]interface{}{"symbol": symbol, "quantity": qty})
}

// GetOpenPosition retrieves the open position for the symbol, or (nil, nil)
// when flat. Stop-loss and take-profit prices are reconstructed best-effort
// from the open protective orders.
func (c *Client) GetOpenPosition(ctx context.Context, symbol string) (*ports.OpenPosition, error) {
	op := "GetOpenPosition"
	positions, err := c.futuresClient.NewGetPositionRiskService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if len(positions) == 0 {
		return nil, nil
	}

	// One-way position mode: a single entry per symbol.
	binancePos := positions[0]
	amt, _ := strconv.ParseFloat(binancePos.PositionAmt, 64)
	if amt == 0 {
		return nil, nil
	}

	pos := &ports.OpenPosition{Symbol: binancePos.Symbol}
	if amt > 0 {
		pos.Side = domain.Long
		pos.Size = amt
	} else {
		pos.Side = domain.Short
		pos.Size = -amt
	}
	pos.EntryPrice, _ = strconv.ParseFloat(binancePos.EntryPrice, 64)

	openOrders, err := c.futuresClient.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		c.logger.Warn(ctx, op+": could not list open orders for protective prices",
			map[string]interface{}{"symbol": symbol, "error": err.Error()})
		return pos, nil
	}
	for _, order := range openOrders {
		stopPrice, parseErr := strconv.ParseFloat(order.StopPrice, 64)
		if parseErr != nil || stopPrice == 0 {
			continue
		}
		switch order.Type {
		case futures.OrderTypeStopMarket:
			pos.StopLoss = stopPrice
		case futures.OrderTypeTakeProfitMarket:
			pos.TakeProfit = stopPrice
		}
	}
	return pos, nil
}

// ListFills returns the account's executions for the symbol since the given
// time, oldest first.
func (c *Client) ListFills(ctx context.Context, symbol string, since time.Time, limit int) ([]ports.Fill, error) {
	op := "ListFills"
	svc := c.futuresClient.NewListAccountTradeService().Symbol(symbol).Limit(limit)
	if !since.IsZero() {
		svc = svc.StartTime(since.UnixMilli())
	}
	trades, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	fills := make([]ports.Fill, 0, len(trades))
	for _, tr := range trades {
		price, err := strconv.ParseFloat(tr.Price, 64)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("could not parse fill price '%s': %w", tr.Price, err), op)
		}
		qty, err := strconv.ParseFloat(tr.Quantity, 64)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("could not parse fill quantity '%s': %w", tr.Quantity, err), op)
		}
		fills = append(fills, ports.Fill{
			OrderID:  tr.OrderID,
			Side:     domain.OrderSide(tr.Side),
			Price:    price,
			Quantity: qty,
			Time:     time.UnixMilli(tr.Time),
		})
	}
	return fills, nil
}

// GetKlines retrieves historical klines/candlestick data for the given symbol.
func (c *Client) GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error) {
	op := "GetKlines"
	binanceKlines, err := c.futuresClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	domainKlines := make([]*domain.Kline, 0, len(binanceKlines))
	for _, bk := range binanceKlines {
		dk, err := translateBinanceKline(bk, symbol, interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline: %w", err), op)
		}
		domainKlines = append(domainKlines, dk)
	}

	return domainKlines, nil
}

// --- Translation Helpers ---

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func inverseSide(side domain.OrderSide) domain.OrderSide {
	if side == domain.Buy {
		return domain.Sell
	}
	return domain.Buy
}

func translateOrderAck(order *futures.CreateOrderResponse) *ports.OrderAck {
	if order == nil {
		return nil
	}
	avgPrice, _ := strconv.ParseFloat(order.AvgPrice, 64)

	return &ports.OrderAck{
		OrderID:       order.OrderID,
		ClientOrderID: order.ClientOrderID,
		AvgPrice:      avgPrice,
		Status:        string(order.Status),
		Timestamp:     time.UnixMilli(order.UpdateTime),
	}
}

func translateBinanceKline(bk *futures.Kline, symbol, interval string) (*domain.Kline, error) {
	if bk == nil {
		return nil, errors.New("received nil historical kline")
	}
	open, err := strconv.ParseFloat(bk.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := strconv.ParseFloat(bk.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := strconv.ParseFloat(bk.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := strconv.ParseFloat(bk.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := strconv.ParseFloat(bk.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	return &domain.Kline{
		OpenTime:  time.UnixMilli(bk.OpenTime),
		CloseTime: time.UnixMilli(bk.CloseTime),
		Symbol:    symbol,
		Interval:  interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
		IsFinal:   true, // Historical klines are always final
	}, nil
}
