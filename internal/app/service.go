package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scalpBot/config"
	"scalpBot/internal/analytics"
	"scalpBot/internal/domain"
	"scalpBot/internal/execution"
	"scalpBot/internal/ports"
	"scalpBot/internal/risk"
	"scalpBot/internal/state"
)

const (
	statsReportEveryCycles = 60
	shutdownCloseTimeout   = 10 * time.Second
)

// metricsRecorder is the subset of the metrics adapter the service drives.
type metricsRecorder interface {
	SetMode(mode domain.Mode)
	ObserveEquity(equity, dailyPnL float64)
	ObserveTradeClosed(netPnL float64)
	ObserveBlock(reason domain.BlockReason)
	ObserveCooldown(kind string)
}

// Deps carries everything the trading service needs. All fields are required
// except Metrics, which may be nil to disable instrumentation.
type Deps struct {
	Cfg       *config.Config
	Logger    ports.Logger
	Exchange  ports.ExchangeClient
	TradeRepo ports.TradeRepository
	StateRepo ports.StateRepository
	State     *state.Manager
	Limits    *risk.LimitsChecker
	Risk      *risk.Manager
	Executor  *execution.Executor
	Market    ports.MarketDataProvider
	Strategy  ports.Strategy
	Metrics   metricsRecorder
	Stats     *analytics.StatsEngine
	Promotion *analytics.PromotionChecker
}

// TradingService orchestrates one full trading cycle at a time: refresh market
// data, ask the strategy for an intent, run the pre-trade gates, size the
// position, open it and then monitor it until the venue confirms it flat.
// A position is never left unmonitored while the service runs.
type TradingService struct {
	cfg       *config.Config
	logger    ports.Logger
	exchange  ports.ExchangeClient
	tradeRepo ports.TradeRepository
	stateRepo ports.StateRepository
	state     *state.Manager
	limits    *risk.LimitsChecker
	risk      *risk.Manager
	executor  *execution.Executor
	market    ports.MarketDataProvider
	strategy  ports.Strategy
	metrics   metricsRecorder
	stats     *analytics.StatsEngine
	promotion *analytics.PromotionChecker

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	cycles int
}

// NewTradingService creates a new application service instance.
func NewTradingService(deps Deps) (*TradingService, error) {
	if deps.Cfg == nil || deps.Logger == nil || deps.Exchange == nil ||
		deps.TradeRepo == nil || deps.StateRepo == nil || deps.State == nil ||
		deps.Limits == nil || deps.Risk == nil || deps.Executor == nil ||
		deps.Market == nil || deps.Strategy == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}

	return &TradingService{
		cfg:       deps.Cfg,
		logger:    deps.Logger,
		exchange:  deps.Exchange,
		tradeRepo: deps.TradeRepo,
		stateRepo: deps.StateRepo,
		state:     deps.State,
		limits:    deps.Limits,
		risk:      deps.Risk,
		executor:  deps.Executor,
		market:    deps.Market,
		strategy:  deps.Strategy,
		metrics:   deps.Metrics,
		stats:     deps.Stats,
		promotion: deps.Promotion,
		now:       func() time.Time { return time.Now().UTC() },
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}, nil
}

// Start begins the trading bot's main loop. It blocks until the context is
// canceled or a shutdown signal arrives.
func (s *TradingService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Trading Service...")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	// Clock skew breaks request signing, so this one is fatal.
	if err := s.exchange.SetServerTime(ctx); err != nil {
		s.logger.Error(ctx, err, "Failed to synchronize server time")
		return fmt.Errorf("failed to set server time: %w", err)
	}
	s.logger.Info(ctx, "Server time synchronized")

	if err := s.exchange.SetLeverage(ctx, s.cfg.Symbol, s.cfg.Leverage); err != nil {
		// The venue keeps the previously configured leverage; sizing is
		// risk-based so this is not fatal.
		s.logger.Warn(ctx, "Failed to set leverage, continuing with venue setting", map[string]interface{}{
			"symbol":   s.cfg.Symbol,
			"leverage": s.cfg.Leverage,
			"error":    err.Error(),
		})
	} else {
		s.logger.Info(ctx, "Leverage set", map[string]interface{}{"symbol": s.cfg.Symbol, "leverage": s.cfg.Leverage})
	}

	// State snapshots are saved only periodically, so the restored daily trade
	// count can trail the trades actually recorded. The trade log is
	// authoritative for the current UTC day; the limit gate must see it.
	tradesToday, err := s.tradeRepo.CountTodayBySymbol(ctx, s.cfg.Symbol)
	if err != nil {
		// The daily trade ceiling cannot be enforced without it.
		s.logger.Error(ctx, err, "Failed to count trades for today")
		return fmt.Errorf("failed to count today's trades: %w", err)
	}
	s.state.ReconcileDailyTrades(tradesToday)
	s.logger.Info(ctx, "Initial state synchronized", map[string]interface{}{
		"tradesToday": tradesToday,
		"dailyTrades": s.state.SessionStats().DailyTrades,
	})

	s.publishAccountMetrics()

	// Adopt any position left open by a previous run before trading again.
	recovered, err := s.executor.RecoverOpenTrade(ctx, s.cfg.TimeStopMinutes)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to query venue for an open position")
		return fmt.Errorf("failed to recover open position: %w", err)
	}
	if recovered != nil {
		s.monitorTrade(ctx, recovered, s.risk.RiskAmount())
	}

	for {
		select {
		case <-ctx.Done():
			s.persistState(context.Background())
			s.logger.Info(ctx, "Trading Service stopped.")
			return nil
		default:
		}

		s.runCycle(ctx)
		s.cycles++

		if s.cycles%s.cfg.StatePersistEveryCycles == 0 {
			s.persistState(ctx)
		}
		if s.cycles%statsReportEveryCycles == 0 {
			s.reportStats(ctx)
		}

		if err := s.sleep(ctx, s.cfg.CycleInterval); err != nil {
			continue // context canceled, loop exits on the next select
		}
	}
}

// runCycle performs a single decision pass: snapshot, signal, gates, sizing,
// entry. When an entry goes through the cycle blocks inside monitorTrade until
// the trade is confirmed closed.
func (s *TradingService) runCycle(ctx context.Context) {
	snapshot, err := s.market.RefreshSnapshot(ctx)
	if err != nil {
		s.logger.Warn(ctx, "Failed to refresh market snapshot, skipping cycle", map[string]interface{}{"error": err.Error()})
		return
	}

	intent := s.strategy.GenerateSignal(ctx, snapshot)
	if intent.IsNoTrade() {
		s.logger.Debug(ctx, "No trade this cycle", map[string]interface{}{"reason": intent.Reason, "price": snapshot.Price})
		return
	}

	check := s.limits.Evaluate(snapshot)
	if !check.AllowTrade {
		fields := map[string]interface{}{"reason": check.Reason, "mode": s.state.CurrentMode()}
		if kind, remaining := s.state.CurrentCooldownCountdown(); kind != "" {
			fields["cooldownKind"] = kind
			fields["cooldownRemaining"] = remaining.String()
		}
		s.logger.Info(ctx, "Signal blocked by pre-trade limits", fields)
		if s.metrics != nil {
			s.metrics.ObserveBlock(check.Reason)
		}
		return
	}

	sized, err := s.risk.Evaluate(intent.EntryPrice, intent.StopLoss, intent.TakeProfit)
	if err != nil {
		if errors.Is(err, risk.ErrInvalidStopDistance) || errors.Is(err, risk.ErrBelowMinQty) {
			// Expected outcome for tight stops on a small account, not a fault.
			s.logger.Info(ctx, "Signal rejected by position sizing", map[string]interface{}{
				"error":      err.Error(),
				"entryPrice": intent.EntryPrice,
				"stopLoss":   intent.StopLoss,
			})
		} else {
			s.logger.Error(ctx, err, "Position sizing failed")
		}
		return
	}

	trade, err := s.executor.OpenTrade(ctx, execution.OpenRequest{
		Side:            intent.Side,
		Qty:             sized.Qty,
		EntryPrice:      intent.EntryPrice,
		StopLoss:        intent.StopLoss,
		TakeProfit:      intent.TakeProfit,
		TimeStopMinutes: intent.TimeStopMinutes,
	})
	if err != nil {
		s.logger.Error(ctx, err, "Failed to open trade", map[string]interface{}{"side": intent.Side, "qty": sized.Qty})
		return
	}

	s.monitorTrade(ctx, trade, sized.RiskAmount)
}

// monitorTrade polls the venue until the active trade is confirmed closed,
// enforcing the time stop along the way. It returns only once the trade has
// been finalized or the context is canceled.
func (s *TradingService) monitorTrade(ctx context.Context, trade *domain.ActiveTrade, riskAmount float64) {
	s.logger.Info(ctx, "Monitoring open trade", map[string]interface{}{
		"symbol":     trade.Symbol,
		"side":       trade.Side,
		"entryPrice": trade.EntryPrice,
		"stopLoss":   trade.StopLoss,
		"takeProfit": trade.TakeProfit,
	})

	for {
		select {
		case <-ctx.Done():
			s.closeOnShutdown(trade, riskAmount)
			return
		default:
		}

		exitPrice, err := s.executor.PollTradeClose(ctx)
		switch {
		case err != nil && errors.Is(err, ports.ErrExitFillNotFound):
			// The venue confirms flat but no fill could be attributed.
			// Synthesize the exit price from the ticker.
			price := s.syntheticExitPrice(ctx, trade)
			s.finalizeTrade(ctx, trade, price, domain.CloseReasonUnknown, riskAmount)
			return
		case err != nil:
			s.logger.Warn(ctx, "Close poll failed, retrying", map[string]interface{}{"error": err.Error()})
		case exitPrice != nil:
			s.finalizeTrade(ctx, trade, *exitPrice, domain.CloseReasonProtective, riskAmount)
			return
		}

		if trade.IsTimeStopReached(s.now()) {
			price, err := s.executor.CloseTrade(ctx, domain.CloseReasonTimeStop)
			if err != nil {
				// The position is still open on the venue; retry next poll.
				s.logger.Warn(ctx, "Time-stop close failed, retrying", map[string]interface{}{"error": err.Error()})
			} else {
				exit := 0.0
				if price != nil {
					exit = *price
				} else {
					exit = s.syntheticExitPrice(ctx, trade)
				}
				s.finalizeTrade(ctx, trade, exit, domain.CloseReasonTimeStop, riskAmount)
				return
			}
		}

		if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
			s.closeOnShutdown(trade, riskAmount)
			return
		}
	}
}

// closeOnShutdown flattens the position before exiting so no unattended trade
// outlives the process. It uses a fresh bounded context because the service
// context is already canceled.
func (s *TradingService) closeOnShutdown(trade *domain.ActiveTrade, riskAmount float64) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownCloseTimeout)
	defer cancel()

	if s.executor.ActiveTrade() == nil {
		return
	}
	s.logger.Warn(ctx, "Shutting down with an open trade, closing it", map[string]interface{}{"symbol": trade.Symbol})
	price, err := s.executor.CloseTrade(ctx, domain.CloseReasonManual)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to close trade during shutdown, venue stop/target orders remain active")
		return
	}
	exit := 0.0
	if price != nil {
		exit = *price
	} else {
		exit = s.syntheticExitPrice(ctx, trade)
	}
	s.finalizeTrade(ctx, trade, exit, domain.CloseReasonManual, riskAmount)
}

// finalizeTrade computes the realized outcome, records it, feeds the account
// state machine and persists the updated protection state.
func (s *TradingService) finalizeTrade(ctx context.Context, trade *domain.ActiveTrade, exitPrice float64, reason domain.CloseReason, riskAmount float64) {
	pnl := (exitPrice - trade.EntryPrice) * trade.Quantity
	if trade.Side == domain.Short {
		pnl = -pnl
	}
	rMultiple := 0.0
	if riskAmount > 0 {
		rMultiple = pnl / riskAmount
	}

	closedAt := s.now()
	modeAtClose := s.state.CurrentMode()

	record := &domain.Trade{
		Symbol:      trade.Symbol,
		Side:        trade.Side,
		Quantity:    trade.Quantity,
		EntryPrice:  trade.EntryPrice,
		ExitPrice:   exitPrice,
		StopLoss:    trade.StopLoss,
		TakeProfit:  trade.TakeProfit,
		PNL:         pnl,
		RMultiple:   rMultiple,
		Mode:        modeAtClose,
		EntryTime:   trade.OpenedAt,
		ExitTime:    closedAt,
		CloseReason: reason,
	}
	if _, err := s.tradeRepo.CreateTrade(ctx, record); err != nil {
		// The in-memory state machine still gets the result; reporting just
		// loses one row.
		s.logger.Error(ctx, err, "Failed to persist closed trade", map[string]interface{}{"symbol": trade.Symbol, "pnl": pnl})
	}

	s.state.OnTradeClosed(domain.TradeResult{PnL: pnl, Timestamp: closedAt})

	newMode := s.state.CurrentMode()
	if newMode != modeAtClose {
		s.logger.Warn(ctx, "Protection mode changed", map[string]interface{}{
			"from":     modeAtClose,
			"to":       newMode,
			"dailyPnL": s.state.SessionStats().DailyPnL,
			"equity":   s.state.CurrentEquity(),
		})
		if s.metrics != nil && newMode == domain.ModeCooldown {
			if kind, _ := s.state.CurrentCooldownCountdown(); kind != "" {
				s.metrics.ObserveCooldown(string(kind))
			}
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveTradeClosed(pnl)
	}
	s.publishAccountMetrics()
	s.persistState(ctx)

	s.logger.Info(ctx, "Trade finalized", map[string]interface{}{
		"symbol":    trade.Symbol,
		"side":      trade.Side,
		"exitPrice": exitPrice,
		"pnl":       pnl,
		"rMultiple": rMultiple,
		"reason":    reason,
		"mode":      newMode,
	})
}

// syntheticExitPrice stands in when the venue reports a flat position but no
// attributable fill. The last traded price is the closest observable proxy.
func (s *TradingService) syntheticExitPrice(ctx context.Context, trade *domain.ActiveTrade) float64 {
	price, err := s.exchange.GetTickerPrice(ctx, trade.Symbol)
	if err != nil || price <= 0 {
		s.logger.Warn(ctx, "Ticker unavailable for synthetic exit price, using entry price", map[string]interface{}{"symbol": trade.Symbol})
		return trade.EntryPrice
	}
	return price
}

func (s *TradingService) publishAccountMetrics() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetMode(s.state.CurrentMode())
	s.metrics.ObserveEquity(s.state.CurrentEquity(), s.state.SessionStats().DailyPnL)
}

func (s *TradingService) persistState(ctx context.Context) {
	if err := s.stateRepo.SaveState(ctx, s.state.ExportState()); err != nil {
		s.logger.Error(ctx, err, "Failed to persist account state snapshot")
	}
}

// reportStats logs the aggregate performance summary and where the track
// record stands against the promotion rules.
func (s *TradingService) reportStats(ctx context.Context) {
	if s.stats == nil {
		return
	}
	summary, err := s.stats.Compute(ctx)
	if err != nil {
		s.logger.Warn(ctx, "Failed to compute performance summary", map[string]interface{}{"error": err.Error()})
		return
	}
	fields := map[string]interface{}{
		"totalTrades":    summary.TotalTrades,
		"winRate":        summary.WinRate,
		"averageR":       summary.AverageR,
		"netPnL":         summary.NetPnL,
		"maxDrawdownPct": summary.MaxDrawdownPct,
	}
	if s.promotion != nil {
		status, err := s.promotion.Evaluate(ctx)
		if err == nil {
			fields["liveReady"] = status.LiveReady
			fields["scaleUpReady"] = status.ScaleUpReady
		}
	}
	s.logger.Info(ctx, "Performance summary", fields)
}
