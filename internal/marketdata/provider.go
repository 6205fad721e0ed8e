package marketdata

import (
	"context"
	"fmt"

	"scalpBot/internal/domain"
	"scalpBot/internal/ports"
	"scalpBot/internal/strategy/indicators"
)

const volatilityWindow = 30

// Config holds the indicator parameters for snapshot building.
type Config struct {
	Symbol        string
	EMAFastPeriod int
	EMASlowPeriod int
	ATRPeriod     int
	RSIPeriod     int
	// KlineLimit is the number of bars fetched per timeframe. Defaults to 200.
	KlineLimit int
}

// Provider builds MarketSnapshots from venue klines across the 1m, 5m and
// 15m timeframes. Implements ports.MarketDataProvider.
type Provider struct {
	client ports.ExchangeClient
	logger ports.Logger
	cfg    Config

	latest *domain.MarketSnapshot
}

// New creates a market data provider.
func New(client ports.ExchangeClient, logger ports.Logger, cfg Config) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("marketdata: exchange client is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("marketdata: logger is required")
	}
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("marketdata: symbol is required")
	}
	if cfg.EMAFastPeriod <= 0 || cfg.EMASlowPeriod <= 0 || cfg.ATRPeriod <= 0 || cfg.RSIPeriod <= 0 {
		return nil, fmt.Errorf("marketdata: indicator periods must be positive")
	}
	if cfg.KlineLimit <= 0 {
		cfg.KlineLimit = 200
	}
	return &Provider{client: client, logger: logger, cfg: cfg}, nil
}

// RefreshSnapshot fetches fresh candles for every timeframe and recomputes
// the indicator snapshot.
func (p *Provider) RefreshSnapshot(ctx context.Context) (*domain.MarketSnapshot, error) {
	oneMin, err := p.fetch(ctx, "1m")
	if err != nil {
		return nil, err
	}
	fiveMin, err := p.fetch(ctx, "5m")
	if err != nil {
		return nil, err
	}
	fifteenMin, err := p.fetch(ctx, "15m")
	if err != nil {
		return nil, err
	}

	snapshot, err := p.buildSnapshot(oneMin, fiveMin, fifteenMin)
	if err != nil {
		return nil, err
	}
	p.latest = snapshot
	return snapshot, nil
}

// LatestSnapshot returns the last built snapshot, refreshing once if none
// exists yet.
func (p *Provider) LatestSnapshot(ctx context.Context) (*domain.MarketSnapshot, error) {
	if p.latest == nil {
		return p.RefreshSnapshot(ctx)
	}
	return p.latest, nil
}

func (p *Provider) fetch(ctx context.Context, interval string) ([]*domain.Kline, error) {
	klines, err := p.client.GetKlines(ctx, p.cfg.Symbol, interval, p.cfg.KlineLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s klines for %s: %w", interval, p.cfg.Symbol, err)
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("fetch %s klines for %s: empty response", interval, p.cfg.Symbol)
	}
	return klines, nil
}

func (p *Provider) buildSnapshot(oneMin, fiveMin, fifteenMin []*domain.Kline) (*domain.MarketSnapshot, error) {
	closes := indicators.Closes(oneMin)

	emaFast, err := indicators.EMASeries(closes, p.cfg.EMAFastPeriod)
	if err != nil {
		return nil, fmt.Errorf("ema fast: %w", err)
	}
	emaSlow, err := indicators.EMASeries(closes, p.cfg.EMASlowPeriod)
	if err != nil {
		return nil, fmt.Errorf("ema slow: %w", err)
	}
	atr, err := indicators.ATR(oneMin, p.cfg.ATRPeriod)
	if err != nil {
		return nil, fmt.Errorf("atr: %w", err)
	}
	vwap, err := indicators.VWAP(oneMin)
	if err != nil {
		return nil, fmt.Errorf("vwap: %w", err)
	}

	last := len(oneMin) - 1
	price := oneMin[last].Close

	vwapDistancePct := 0.0
	if vwap != 0 {
		vwapDistancePct = (price - vwap) / vwap * 100
	}

	var rsi *float64
	if rsiVal, err := indicators.RSI(closes, p.cfg.RSIPeriod); err == nil {
		rsi = &rsiVal
	}

	current := domain.CandleSnapshot{
		Open:    oneMin[last].Open,
		High:    oneMin[last].High,
		Low:     oneMin[last].Low,
		Close:   price,
		EMAFast: emaFast[last],
	}
	var previous *domain.CandleSnapshot
	if last > 0 {
		previous = &domain.CandleSnapshot{
			Open:    oneMin[last-1].Open,
			High:    oneMin[last-1].High,
			Low:     oneMin[last-1].Low,
			Close:   oneMin[last-1].Close,
			EMAFast: emaFast[last-1],
		}
	}

	return &domain.MarketSnapshot{
		Symbol:          p.cfg.Symbol,
		Price:           price,
		Trend5m:         p.assessTrend(fiveMin),
		Trend15m:        p.assessTrend(fifteenMin),
		EMAFast:         emaFast[last],
		EMASlow:         emaSlow[last],
		ATR:             atr,
		VWAP:            vwap,
		VWAPDistancePct: vwapDistancePct,
		Volatility:      volatility(closes),
		RSI:             rsi,
		CurrentCandle:   current,
		PreviousCandle:  previous,
		Timestamp:       oneMin[last].OpenTime,
	}, nil
}

// assessTrend classifies a timeframe by the EMA relationship and the fast
// EMA's recent slope.
func (p *Provider) assessTrend(klines []*domain.Kline) domain.Trend {
	if len(klines) == 0 {
		return domain.TrendUnknown
	}
	closes := indicators.Closes(klines)
	emaFast, err := indicators.EMASeries(closes, p.cfg.EMAFastPeriod)
	if err != nil {
		return domain.TrendUnknown
	}
	emaSlow, err := indicators.EMASeries(closes, p.cfg.EMASlowPeriod)
	if err != nil {
		return domain.TrendUnknown
	}

	last := len(emaFast) - 1
	slope := 0.0
	if len(emaFast) > 5 {
		slope = emaFast[last] - emaFast[last-4]
	}
	switch {
	case emaFast[last] > emaSlow[last] && slope > 0:
		return domain.TrendBullish
	case emaFast[last] < emaSlow[last] && slope < 0:
		return domain.TrendBearish
	default:
		return domain.TrendSideways
	}
}

// volatility is the sample standard deviation of the last 30 one-minute
// percentage changes. Zero until enough bars exist.
func volatility(closes []float64) float64 {
	if len(closes) < volatilityWindow+1 {
		return 0
	}
	changes := make([]float64, 0, volatilityWindow)
	for i := len(closes) - volatilityWindow; i < len(closes); i++ {
		if closes[i-1] == 0 {
			return 0
		}
		changes = append(changes, closes[i]/closes[i-1]-1)
	}
	return indicators.StdDev(changes)
}
