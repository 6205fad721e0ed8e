package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"scalpBot/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading Parameters
	Symbol   string
	Leverage int

	// Risk Parameters. Percentages are fractions of the reference balance
	// (e.g. 0.01 for 1%).
	ReferenceBalance     float64
	RiskPerTradePct      float64
	MaxDailyLossPct      float64
	MaxDailyTrades       int
	MaxConsecutiveLosses int
	GlobalDrawdownPct    float64

	// Account protection timers
	LimitedModeRecoveryPct float64
	LimitedModeDuration    time.Duration
	CooldownShort          time.Duration
	CooldownLong           time.Duration

	// Strategy Parameters
	MinATR                     float64
	EMAFastPeriod              int
	EMASlowPeriod              int
	ATRPeriod                  int
	ATRMultiplierSL            float64
	ATRMultiplierTP            float64
	RSIPeriod                  int
	RSILongMin                 float64
	RSILongMax                 float64
	RSIShortMin                float64
	RSIShortMax                float64
	MinVolatility              float64
	MaxPriceEMADistancePct     float64
	MaxVWAPDistancePct         float64
	PullbackTolerancePct       float64
	TimeStopMinutes            int
	Sessions                   []string // UTC windows "HH:MM-HH:MM"
	AllowOffsessionHighQuality bool

	// Execution
	CycleInterval    time.Duration // pause between trading cycles
	PollInterval     time.Duration // pause between close polls while a trade is open
	FillPollAttempts int
	FillPollDelay    time.Duration

	// Persistence
	DBPath                  string
	StatePersistEveryCycles int

	// Promotion rules
	PromotionMinTrades      int
	PromotionMinNetProfit   float64
	PromotionMaxDrawdownPct float64

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter

	// Metrics
	MetricsAddr string // empty disables the metrics endpoint
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	if cfg.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}

	// Trading Parameters
	cfg.Symbol = getEnv("SYMBOL", "ETHUSDT")
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}

	cfg.Leverage, err = getEnvAsIntRequired("LEVERAGE", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid LEVERAGE: %v", err))
	} else if cfg.Leverage <= 0 {
		errs = append(errs, "LEVERAGE must be positive")
	}

	// Risk Parameters
	cfg.ReferenceBalance, err = getEnvAsFloatRequired("REFERENCE_BALANCE", 1000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid REFERENCE_BALANCE: %v", err))
	} else if cfg.ReferenceBalance <= 0 {
		errs = append(errs, "REFERENCE_BALANCE must be positive")
	}

	cfg.RiskPerTradePct, err = getEnvAsFloatRequired("RISK_PER_TRADE_PCT", 0.01)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid RISK_PER_TRADE_PCT: %v", err))
	} else if cfg.RiskPerTradePct <= 0 || cfg.RiskPerTradePct >= 1.0 {
		errs = append(errs, "RISK_PER_TRADE_PCT must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.MaxDailyLossPct, err = getEnvAsFloatRequired("MAX_DAILY_LOSS_PCT", 0.05)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DAILY_LOSS_PCT: %v", err))
	} else if cfg.MaxDailyLossPct <= 0 || cfg.MaxDailyLossPct >= 1.0 {
		errs = append(errs, "MAX_DAILY_LOSS_PCT must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.MaxDailyTrades = getEnvAsInt("MAX_DAILY_TRADES", 10)
	if cfg.MaxDailyTrades < 0 {
		errs = append(errs, "MAX_DAILY_TRADES cannot be negative")
	}

	cfg.MaxConsecutiveLosses = getEnvAsInt("MAX_CONSECUTIVE_LOSSES", 5)
	if cfg.MaxConsecutiveLosses <= 0 {
		errs = append(errs, "MAX_CONSECUTIVE_LOSSES must be positive")
	}

	cfg.GlobalDrawdownPct, err = getEnvAsFloatRequired("GLOBAL_DRAWDOWN_PCT", 0.20)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid GLOBAL_DRAWDOWN_PCT: %v", err))
	} else if cfg.GlobalDrawdownPct <= 0 || cfg.GlobalDrawdownPct >= 1.0 {
		errs = append(errs, "GLOBAL_DRAWDOWN_PCT must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.LimitedModeRecoveryPct = getEnvAsFloat("LIMITED_MODE_RECOVERY_PCT", 0.02)
	if cfg.LimitedModeRecoveryPct < 0 {
		errs = append(errs, "LIMITED_MODE_RECOVERY_PCT cannot be negative")
	}

	cfg.LimitedModeDuration = time.Duration(getEnvAsInt("LIMITED_MODE_DURATION_MINUTES", 1440)) * time.Minute
	cfg.CooldownShort = time.Duration(getEnvAsInt("COOLDOWN_SHORT_MINUTES", 30)) * time.Minute
	cfg.CooldownLong = time.Duration(getEnvAsInt("COOLDOWN_LONG_MINUTES", 240)) * time.Minute
	if cfg.LimitedModeDuration < 0 || cfg.CooldownShort < 0 || cfg.CooldownLong < 0 {
		errs = append(errs, "cooldown and limited-mode durations cannot be negative")
	}

	// Strategy Parameters (using defaults if not set)
	cfg.MinATR = getEnvAsFloat("MIN_ATR", 1.0)
	cfg.EMAFastPeriod = getEnvAsInt("EMA_FAST_PERIOD", 9)
	cfg.EMASlowPeriod = getEnvAsInt("EMA_SLOW_PERIOD", 21)
	cfg.ATRPeriod = getEnvAsInt("ATR_PERIOD", 14)
	cfg.ATRMultiplierSL = getEnvAsFloat("ATR_MULTIPLIER_SL", 1.2)
	cfg.ATRMultiplierTP = getEnvAsFloat("ATR_MULTIPLIER_TP", 2.0)
	cfg.RSIPeriod = getEnvAsInt("RSI_PERIOD", 14)
	cfg.RSILongMin = getEnvAsFloat("RSI_LONG_MIN", 45.0)
	cfg.RSILongMax = getEnvAsFloat("RSI_LONG_MAX", 70.0)
	cfg.RSIShortMin = getEnvAsFloat("RSI_SHORT_MIN", 30.0)
	cfg.RSIShortMax = getEnvAsFloat("RSI_SHORT_MAX", 55.0)
	cfg.MinVolatility = getEnvAsFloat("MIN_VOLATILITY", 0.0001)
	cfg.MaxPriceEMADistancePct = getEnvAsFloat("MAX_PRICE_EMA_DISTANCE_PCT", 0.5)
	cfg.MaxVWAPDistancePct = getEnvAsFloat("MAX_VWAP_DISTANCE_PCT", 1.0)
	cfg.PullbackTolerancePct = getEnvAsFloat("PULLBACK_TOLERANCE_PCT", 0.4)
	cfg.TimeStopMinutes = getEnvAsInt("TIME_STOP_MINUTES", 45)
	cfg.AllowOffsessionHighQuality = getEnvAsBool("ALLOW_OFFSESSION_HIGH_QUALITY", false)

	if sessions := getEnv("SESSIONS", "07:00-11:00,13:00-17:00"); sessions != "" {
		for _, window := range strings.Split(sessions, ",") {
			cfg.Sessions = append(cfg.Sessions, strings.TrimSpace(window))
		}
	}

	if cfg.EMAFastPeriod <= 0 || cfg.EMASlowPeriod <= 0 || cfg.ATRPeriod <= 0 || cfg.RSIPeriod <= 0 {
		errs = append(errs, "strategy periods (EMA, ATR, RSI) must be positive")
	}
	if cfg.EMAFastPeriod >= cfg.EMASlowPeriod {
		errs = append(errs, "EMA_FAST_PERIOD must be less than EMA_SLOW_PERIOD")
	}
	if cfg.ATRMultiplierSL <= 0 || cfg.ATRMultiplierTP <= 0 {
		errs = append(errs, "ATR multipliers must be positive")
	}
	if cfg.RSILongMin >= cfg.RSILongMax || cfg.RSIShortMin >= cfg.RSIShortMax ||
		cfg.RSILongMax > 100 || cfg.RSIShortMin < 0 {
		errs = append(errs, "invalid RSI bounds (min must be < max, within 0-100)")
	}
	if cfg.TimeStopMinutes < 0 {
		errs = append(errs, "TIME_STOP_MINUTES cannot be negative")
	}

	// Execution
	cfg.CycleInterval = time.Duration(getEnvAsInt("CYCLE_INTERVAL_SECONDS", 30)) * time.Second
	if cfg.CycleInterval <= 0 {
		errs = append(errs, "CYCLE_INTERVAL_SECONDS must be positive")
	}
	cfg.PollInterval = time.Duration(getEnvAsInt("POLL_INTERVAL_SECONDS", 10)) * time.Second
	if cfg.PollInterval <= 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be positive")
	}
	cfg.FillPollAttempts = getEnvAsInt("FILL_POLL_ATTEMPTS", 5)
	if cfg.FillPollAttempts <= 0 {
		errs = append(errs, "FILL_POLL_ATTEMPTS must be positive")
	}
	cfg.FillPollDelay = time.Duration(getEnvAsInt("FILL_POLL_DELAY_MS", 1000)) * time.Millisecond
	if cfg.FillPollDelay <= 0 {
		errs = append(errs, "FILL_POLL_DELAY_MS must be positive")
	}

	// Persistence
	cfg.DBPath = getEnv("DB_PATH", "./data/scalp_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}
	cfg.StatePersistEveryCycles = getEnvAsInt("STATE_PERSIST_EVERY_CYCLES", 5)
	if cfg.StatePersistEveryCycles <= 0 {
		errs = append(errs, "STATE_PERSIST_EVERY_CYCLES must be positive")
	}

	// Promotion rules
	cfg.PromotionMinTrades = getEnvAsInt("PROMOTION_MIN_TRADES", 200)
	cfg.PromotionMinNetProfit = getEnvAsFloat("PROMOTION_MIN_NET_PROFIT", 0.0)
	cfg.PromotionMaxDrawdownPct = getEnvAsFloat("PROMOTION_MAX_DRAWDOWN_PCT", 0.20)

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Metrics
	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Log warning? For non-required fields, default is often acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
