package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scalpBot/internal/domain"
)

// Metrics exposes the bot's operational gauges and counters on a dedicated
// registry so the default registry's process collectors are not dragged in.
type Metrics struct {
	registry *prometheus.Registry

	mode     *prometheus.GaugeVec
	equity   prometheus.Gauge
	dailyPnL prometheus.Gauge

	trades    *prometheus.CounterVec
	blocks    *prometheus.CounterVec
	cooldowns *prometheus.CounterVec
}

// New creates and registers the metric set.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		mode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bot_mode",
			Help: "Active account protection mode (1 for the current mode, 0 otherwise).",
		}, []string{"mode"}),
		equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_equity_usdt",
			Help: "Reference balance plus cumulative realized pnl.",
		}),
		dailyPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_daily_pnl_usdt",
			Help: "Net realized pnl for the current UTC trading day.",
		}),
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_trades_total",
			Help: "Closed trades by result.",
		}, []string{"result"}),
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_trade_blocks_total",
			Help: "Entries refused by the pre-trade gate, by reason.",
		}, []string{"reason"}),
		cooldowns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_cooldowns_total",
			Help: "Cooldown activations by kind.",
		}, []string{"kind"}),
	}
	m.registry.MustRegister(m.mode, m.equity, m.dailyPnL, m.trades, m.blocks, m.cooldowns)
	return m
}

// Handler returns the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve blocks serving /metrics on addr.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

// SetMode flags the active mode gauge and zeroes the rest.
func (m *Metrics) SetMode(mode domain.Mode) {
	for _, known := range []domain.Mode{domain.ModeNormal, domain.ModeCooldown, domain.ModeLimited, domain.ModeHalt} {
		value := 0.0
		if known == mode {
			value = 1.0
		}
		m.mode.WithLabelValues(string(known)).Set(value)
	}
}

// ObserveEquity updates the equity and daily pnl gauges.
func (m *Metrics) ObserveEquity(equity, dailyPnL float64) {
	m.equity.Set(equity)
	m.dailyPnL.Set(dailyPnL)
}

// ObserveTradeClosed counts one closed trade as a win or loss.
func (m *Metrics) ObserveTradeClosed(netPnL float64) {
	result := "win"
	if netPnL < 0 {
		result = "loss"
	}
	m.trades.WithLabelValues(result).Inc()
}

// ObserveBlock counts one refused entry.
func (m *Metrics) ObserveBlock(reason domain.BlockReason) {
	if reason == domain.BlockNone {
		return
	}
	m.blocks.WithLabelValues(string(reason)).Inc()
}

// ObserveCooldown counts one cooldown activation.
func (m *Metrics) ObserveCooldown(kind string) {
	m.cooldowns.WithLabelValues(kind).Inc()
}
