package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"scalpBot/config"
	"scalpBot/internal/adapters/binanceclient"
	"scalpBot/internal/adapters/logger"
	"scalpBot/internal/adapters/metrics"
	"scalpBot/internal/adapters/sqlite"
	"scalpBot/internal/analytics"
	"scalpBot/internal/app"
	"scalpBot/internal/domain"
	"scalpBot/internal/execution"
	"scalpBot/internal/marketdata"
	"scalpBot/internal/risk"
	"scalpBot/internal/state"
	"scalpBot/internal/strategy"
)

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewZapLogger(cfg.LogLevel)
	defer appLogger.Sync()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()
	appLogger.Info(ctx, "Database repository initialized")

	// 4. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(ctx, "Binance client initialized", map[string]interface{}{"testnet": cfg.IsTestnet})

	// 5. Initialize Metrics
	appMetrics := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := appMetrics.Serve(cfg.MetricsAddr); err != nil {
				appLogger.Error(ctx, err, "Metrics endpoint stopped")
			}
		}()
		appLogger.Info(ctx, "Metrics endpoint listening", map[string]interface{}{"addr": cfg.MetricsAddr})
	}

	// 6. Initialize Account State Machine, restoring the last snapshot if any
	stateMgr, err := state.NewManager(state.Config{
		ReferenceBalance:       cfg.ReferenceBalance,
		MaxDailyLossPct:        cfg.MaxDailyLossPct,
		MaxConsecutiveLosses:   cfg.MaxConsecutiveLosses,
		GlobalDrawdownPct:      cfg.GlobalDrawdownPct,
		LimitedModeRecoveryPct: cfg.LimitedModeRecoveryPct,
		LimitedModeDuration:    cfg.LimitedModeDuration,
		CooldownShort:          cfg.CooldownShort,
		CooldownLong:           cfg.CooldownLong,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize account state machine")
		log.Fatalf("FATAL: Failed to initialize account state machine: %v", err)
	}
	snapshot, err := repo.LoadState(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load account state snapshot")
		log.Fatalf("FATAL: Failed to load account state snapshot: %v", err)
	}
	if snapshot != nil {
		if err := stateMgr.ImportState(*snapshot); err != nil {
			appLogger.Error(ctx, err, "FATAL: Persisted account state snapshot is invalid")
			log.Fatalf("FATAL: Persisted account state snapshot is invalid: %v", err)
		}
		appLogger.Info(ctx, "Account state restored", map[string]interface{}{"mode": stateMgr.CurrentMode()})
	}

	// 7. Initialize Risk Sizing and Pre-Trade Limits
	symbolInfo, err := domain.GetSymbolInfo(cfg.Symbol)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Unknown trading symbol")
		log.Fatalf("FATAL: Unknown trading symbol: %v", err)
	}
	riskMgr, err := risk.NewManager(risk.Config{
		ReferenceBalance: cfg.ReferenceBalance,
		RiskPerTradePct:  cfg.RiskPerTradePct,
	}, symbolInfo)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize risk manager")
		log.Fatalf("FATAL: Failed to initialize risk manager: %v", err)
	}
	limits := risk.NewLimitsChecker(risk.LimitsConfig{
		ReferenceBalance: cfg.ReferenceBalance,
		MaxDailyLossPct:  cfg.MaxDailyLossPct,
		MaxDailyTrades:   cfg.MaxDailyTrades,
		MinATR:           cfg.MinATR,
	}, stateMgr)

	// 8. Initialize Order Executor
	executor, err := execution.New(execution.Config{
		Client:           binanceClient,
		Logger:           appLogger,
		Symbol:           cfg.Symbol,
		FillPollAttempts: cfg.FillPollAttempts,
		FillPollDelay:    cfg.FillPollDelay,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize order executor")
		log.Fatalf("FATAL: Failed to initialize order executor: %v", err)
	}

	// 9. Initialize Market Data Provider
	market, err := marketdata.New(binanceClient, appLogger, marketdata.Config{
		Symbol:        cfg.Symbol,
		EMAFastPeriod: cfg.EMAFastPeriod,
		EMASlowPeriod: cfg.EMASlowPeriod,
		ATRPeriod:     cfg.ATRPeriod,
		RSIPeriod:     cfg.RSIPeriod,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize market data provider")
		log.Fatalf("FATAL: Failed to initialize market data provider: %v", err)
	}

	// 10. Initialize Strategy
	strat, err := strategy.New(strategy.Config{
		MinATR:                     cfg.MinATR,
		MaxVWAPDistancePct:         cfg.MaxVWAPDistancePct,
		MaxPriceEMADistancePct:     cfg.MaxPriceEMADistancePct,
		PullbackTolerancePct:       cfg.PullbackTolerancePct,
		MinVolatility:              cfg.MinVolatility,
		ATRMultiplierSL:            cfg.ATRMultiplierSL,
		ATRMultiplierTP:            cfg.ATRMultiplierTP,
		TimeStopMinutes:            cfg.TimeStopMinutes,
		RSILongMin:                 cfg.RSILongMin,
		RSILongMax:                 cfg.RSILongMax,
		RSIShortMin:                cfg.RSIShortMin,
		RSIShortMax:                cfg.RSIShortMax,
		Sessions:                   cfg.Sessions,
		AllowOffsessionHighQuality: cfg.AllowOffsessionHighQuality,
	}, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trading strategy")
		log.Fatalf("FATAL: Failed to initialize trading strategy: %v", err)
	}
	appLogger.Info(ctx, "Trading strategy initialized")

	// 11. Initialize Analytics
	statsEngine := analytics.NewStatsEngine(repo)
	promotion := analytics.NewPromotionChecker(analytics.PromotionRules{
		MinTrades:      cfg.PromotionMinTrades,
		MinNetProfit:   cfg.PromotionMinNetProfit,
		MaxDrawdownPct: cfg.PromotionMaxDrawdownPct,
	}, statsEngine)

	// 12. Initialize Application Service
	tradingService, err := app.NewTradingService(app.Deps{
		Cfg:       cfg,
		Logger:    appLogger,
		Exchange:  binanceClient,
		TradeRepo: repo,
		StateRepo: repo,
		State:     stateMgr,
		Limits:    limits,
		Risk:      riskMgr,
		Executor:  executor,
		Market:    market,
		Strategy:  strat,
		Metrics:   appMetrics,
		Stats:     statsEngine,
		Promotion: promotion,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}
	appLogger.Info(ctx, "Trading service initialized")

	// 13. Start the Service
	if err := tradingService.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "Trading service exited with error")
		log.Fatalf("FATAL: Trading service exited with error: %v", err)
	}

	appLogger.Info(ctx, "Application finished gracefully.")
}
