package strategy

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"scalpBot/internal/domain"
	"scalpBot/internal/ports"
)

// Signal rejection reasons, surfaced on domain.TradeSignal.Reason.
const (
	ReasonATRTooLow            = "ATR_TOO_LOW"
	ReasonOutOfSession         = "OUT_OF_SESSION"
	ReasonOffsessionLowQuality = "OFFSESSION_LOW_QUALITY"
	ReasonDistantFromVWAP      = "DISTANT_FROM_VWAP"
	ReasonFarFromEMA           = "FAR_FROM_EMA"
	ReasonVolatilityTooLow     = "VOLATILITY_TOO_LOW"
	ReasonNoSetup              = "NO_SETUP"
)

// sessionWindow is a UTC intraday window. Start after end means the window
// wraps across midnight.
type sessionWindow struct {
	start time.Duration // offset from midnight UTC
	end   time.Duration
}

func (w sessionWindow) contains(t time.Time) bool {
	utc := t.UTC()
	offset := time.Duration(utc.Hour())*time.Hour + time.Duration(utc.Minute())*time.Minute
	if w.start <= w.end {
		return offset >= w.start && offset <= w.end
	}
	return offset >= w.start || offset <= w.end
}

// Config holds the pullback strategy thresholds.
type Config struct {
	MinATR                 float64
	MaxVWAPDistancePct     float64
	MaxPriceEMADistancePct float64
	PullbackTolerancePct   float64
	MinVolatility          float64
	ATRMultiplierSL        float64
	ATRMultiplierTP        float64
	TimeStopMinutes        int

	RSILongMin  float64
	RSILongMax  float64
	RSIShortMin float64
	RSIShortMax float64

	// Sessions are preferred UTC trading windows as "HH:MM-HH:MM" strings.
	// Empty means always in session.
	Sessions []string
	// AllowOffsessionHighQuality lets exceptionally clean setups trade
	// outside the preferred windows.
	AllowOffsessionHighQuality bool
}

// PullbackStrategy trades pullbacks to the fast EMA in the direction of the
// EMA/VWAP trend context. Implements ports.Strategy. Pure signal generation;
// sizing and gating live elsewhere.
type PullbackStrategy struct {
	cfg      Config
	logger   ports.Logger
	sessions []sessionWindow
}

// New creates a pullback strategy, parsing the configured session windows.
func New(cfg Config, logger ports.Logger) (*PullbackStrategy, error) {
	if logger == nil {
		return nil, fmt.Errorf("strategy: logger is required")
	}
	if cfg.ATRMultiplierSL <= 0 || cfg.ATRMultiplierTP <= 0 {
		return nil, fmt.Errorf("strategy: ATR multipliers must be positive")
	}

	sessions := make([]sessionWindow, 0, len(cfg.Sessions))
	for _, raw := range cfg.Sessions {
		window, err := parseSessionWindow(raw)
		if err != nil {
			return nil, fmt.Errorf("strategy: session %q: %w", raw, err)
		}
		sessions = append(sessions, window)
	}
	return &PullbackStrategy{cfg: cfg, logger: logger, sessions: sessions}, nil
}

func parseSessionWindow(raw string) (sessionWindow, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return sessionWindow{}, fmt.Errorf("expected HH:MM-HH:MM")
	}
	start, err := parseClock(parts[0])
	if err != nil {
		return sessionWindow{}, err
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return sessionWindow{}, err
	}
	return sessionWindow{start: start, end: end}, nil
}

func parseClock(raw string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", raw, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// GenerateSignal evaluates the snapshot through the entry filters and the
// pullback pattern, returning either a sized-level signal or a no-trade with
// the first failed filter as its reason.
func (s *PullbackStrategy) GenerateSignal(ctx context.Context, snapshot *domain.MarketSnapshot) domain.TradeSignal {
	if snapshot.ATR < s.cfg.MinATR {
		s.logger.Debug(ctx, "No trade: ATR too low",
			map[string]interface{}{"atr": snapshot.ATR, "minATR": s.cfg.MinATR})
		return domain.NoTradeSignal(snapshot.Price, ReasonATRTooLow)
	}

	if !s.inSession(snapshot.Timestamp) {
		if !s.cfg.AllowOffsessionHighQuality {
			s.logger.Debug(ctx, "No trade: outside preferred sessions")
			return domain.NoTradeSignal(snapshot.Price, ReasonOutOfSession)
		}
		if !s.isHighQualityOffsession(snapshot) {
			s.logger.Debug(ctx, "No trade: offsession without high-quality conditions")
			return domain.NoTradeSignal(snapshot.Price, ReasonOffsessionLowQuality)
		}
	}

	if math.Abs(snapshot.VWAPDistancePct) > s.cfg.MaxVWAPDistancePct {
		s.logger.Debug(ctx, "No trade: price too far from VWAP",
			map[string]interface{}{"vwapDistancePct": snapshot.VWAPDistancePct})
		return domain.NoTradeSignal(snapshot.Price, ReasonDistantFromVWAP)
	}

	emaDistancePct := math.Abs(snapshot.Price-snapshot.EMAFast) / snapshot.Price * 100
	if emaDistancePct > s.cfg.MaxPriceEMADistancePct {
		s.logger.Debug(ctx, "No trade: price too far from fast EMA",
			map[string]interface{}{"emaDistancePct": emaDistancePct})
		return domain.NoTradeSignal(snapshot.Price, ReasonFarFromEMA)
	}

	if snapshot.Volatility < s.cfg.MinVolatility {
		s.logger.Debug(ctx, "No trade: volatility too low",
			map[string]interface{}{"volatility": snapshot.Volatility, "minVolatility": s.cfg.MinVolatility})
		return domain.NoTradeSignal(snapshot.Price, ReasonVolatilityTooLow)
	}

	side, ok := s.detectSetup(ctx, snapshot)
	if !ok {
		return domain.NoTradeSignal(snapshot.Price, ReasonNoSetup)
	}

	entry := snapshot.Price
	sl, tp := s.buildLevels(side, entry, snapshot.ATR)
	return domain.TradeSignal{
		Side:            side,
		EntryPrice:      entry,
		StopLoss:        sl,
		TakeProfit:      tp,
		TimeStopMinutes: s.cfg.TimeStopMinutes,
	}
}

func (s *PullbackStrategy) detectSetup(ctx context.Context, snapshot *domain.MarketSnapshot) (domain.TradeSide, bool) {
	current := &snapshot.CurrentCandle
	prev := snapshot.PreviousCandle
	if prev == nil {
		s.logger.Debug(ctx, "No trade: no previous candle to confirm pullback")
		return "", false
	}

	if snapshot.EMAFast > snapshot.EMASlow && snapshot.Price > snapshot.VWAP {
		if !s.rsiAllowsLong(snapshot.RSI) {
			s.logger.Debug(ctx, "No trade: RSI out of range for longs")
			return "", false
		}
		if s.pullbackLong(prev, current) {
			return domain.Long, true
		}
		s.logger.Debug(ctx, "No trade: long pullback pattern not confirmed")
		return "", false
	}

	if snapshot.EMAFast < snapshot.EMASlow && snapshot.Price < snapshot.VWAP {
		if !s.rsiAllowsShort(snapshot.RSI) {
			s.logger.Debug(ctx, "No trade: RSI out of range for shorts")
			return "", false
		}
		if s.pullbackShort(prev, current) {
			return domain.Short, true
		}
		s.logger.Debug(ctx, "No trade: short pullback pattern not confirmed")
		return "", false
	}

	s.logger.Debug(ctx, "No trade: trend context not valid for pullback")
	return "", false
}

func (s *PullbackStrategy) buildLevels(side domain.TradeSide, entry, atr float64) (sl, tp float64) {
	slDistance := atr * s.cfg.ATRMultiplierSL
	tpDistance := atr * s.cfg.ATRMultiplierTP
	if side == domain.Long {
		return entry - slDistance, entry + tpDistance
	}
	return entry + slDistance, entry - tpDistance
}

func (s *PullbackStrategy) inSession(ts time.Time) bool {
	if len(s.sessions) == 0 {
		return true
	}
	for _, window := range s.sessions {
		if window.contains(ts) {
			return true
		}
	}
	return false
}

// isHighQualityOffsession demands elevated range, a price hugging VWAP and an
// RSI extreme before allowing an entry outside the preferred windows.
func (s *PullbackStrategy) isHighQualityOffsession(snapshot *domain.MarketSnapshot) bool {
	atrCondition := snapshot.ATR >= s.cfg.MinATR*1.5
	vwapCondition := math.Abs(snapshot.VWAPDistancePct) <= s.cfg.MaxVWAPDistancePct/2
	rsiCondition := snapshot.RSI != nil &&
		(*snapshot.RSI <= s.cfg.RSIShortMin || *snapshot.RSI >= s.cfg.RSILongMax)
	return atrCondition && vwapCondition && rsiCondition
}

// pullbackLong: the previous candle is a red bar dipping into the fast EMA,
// the current one is a green reclaim closing above the previous high and the
// EMA, still within tolerance of the EMA.
func (s *PullbackStrategy) pullbackLong(prev, current *domain.CandleSnapshot) bool {
	tolerance := s.cfg.PullbackTolerancePct / 100
	if prev.Low > prev.EMAFast {
		return false
	}
	if prev.Close >= prev.Open {
		return false
	}
	if current.Close <= current.Open {
		return false
	}
	if current.Close <= prev.High {
		return false
	}
	if current.Close <= current.EMAFast {
		return false
	}
	if math.Abs(current.Close-current.EMAFast) > current.Close*tolerance {
		return false
	}
	return true
}

func (s *PullbackStrategy) pullbackShort(prev, current *domain.CandleSnapshot) bool {
	tolerance := s.cfg.PullbackTolerancePct / 100
	if prev.High < prev.EMAFast {
		return false
	}
	if prev.Close <= prev.Open {
		return false
	}
	if current.Close >= current.Open {
		return false
	}
	if current.Close >= prev.Low {
		return false
	}
	if current.Close >= current.EMAFast {
		return false
	}
	if math.Abs(current.Close-current.EMAFast) > current.Close*tolerance {
		return false
	}
	return true
}

func (s *PullbackStrategy) rsiAllowsLong(value *float64) bool {
	if value == nil {
		return true
	}
	return *value >= s.cfg.RSILongMin && *value <= s.cfg.RSILongMax
}

func (s *PullbackStrategy) rsiAllowsShort(value *float64) bool {
	if value == nil {
		return true
	}
	return *value >= s.cfg.RSIShortMin && *value <= s.cfg.RSIShortMax
}
