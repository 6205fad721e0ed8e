package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"scalpBot/config"
	"scalpBot/internal/adapters/binanceclient"
	"scalpBot/internal/adapters/logger"
	"scalpBot/internal/utils"
)

// Dumps recent klines to CSV for offline strategy tuning.
func main() {
	symbol := flag.String("symbol", "", "trading symbol (defaults to SYMBOL from the environment)")
	interval := flag.String("interval", "1m", "kline interval")
	limit := flag.Int("limit", 1000, "number of klines to fetch")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}
	if *symbol == "" {
		*symbol = cfg.Symbol
	}

	// 2. Initialize Logger
	appLogger := logger.NewZapLogger(cfg.LogLevel)
	defer appLogger.Sync()
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance client initialized")

	appLogger.Info(context.Background(), "Fetching klines", map[string]interface{}{
		"symbol":   *symbol,
		"interval": *interval,
		"limit":    *limit,
	})
	klines, err := binanceClient.GetKlines(context.Background(), *symbol, *interval, *limit)
	if err != nil {
		appLogger.Error(context.Background(), err, "Error fetching klines")
		log.Fatalf("Error fetching klines: %v", err)
	}
	appLogger.Info(context.Background(), "Fetched klines", map[string]interface{}{"count": len(klines)})

	filename := fmt.Sprintf("data/%s_%s_%s.csv", *symbol, *interval, time.Now().UTC().Format("20060102_150405"))
	if err := utils.WriteKlinesToCSV(klines, filename); err != nil {
		appLogger.Error(context.Background(), err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(context.Background(), "Saved to", map[string]interface{}{"filename": filename})
}
