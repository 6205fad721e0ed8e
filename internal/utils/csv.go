package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"scalpBot/internal/domain"
)

var klineCSVHeader = []string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"}

// WriteKlinesToCSV dumps candles to a CSV file for offline inspection.
// Timestamps are normalized to UTC so files from different hosts line up.
func WriteKlinesToCSV(klines []*domain.Kline, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create csv file %s: %w", filename, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(klineCSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, k := range klines {
		if err := writer.Write(klineRecord(k)); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv file %s: %w", filename, err)
	}
	return nil
}

func klineRecord(k *domain.Kline) []string {
	return []string{
		k.OpenTime.UTC().Format(time.RFC3339),
		k.CloseTime.UTC().Format(time.RFC3339),
		k.Symbol,
		k.Interval,
		formatPrice(k.Open),
		formatPrice(k.High),
		formatPrice(k.Low),
		formatPrice(k.Close),
		formatPrice(k.Volume),
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
