package domain

import (
	"fmt"
	"strings"
)

// SymbolInfo describes the exchange trading rules for an instrument. Position
// sizing floors quantities to QtyStep and rejects anything below MinQty.
type SymbolInfo struct {
	Symbol      string
	BaseAsset   string
	QuoteAsset  string
	MinQty      float64
	QtyStep     float64
	TickSize    float64
	MaxLeverage int
}

// Static metadata table. Extend with an exchange-info lookup when more symbols
// are needed.
var symbolTable = map[string]SymbolInfo{
	"BTCUSDT": {Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", MinQty: 0.001, QtyStep: 0.001, TickSize: 0.1, MaxLeverage: 5},
	"ETHUSDT": {Symbol: "ETHUSDT", BaseAsset: "ETH", QuoteAsset: "USDT", MinQty: 0.001, QtyStep: 0.001, TickSize: 0.01, MaxLeverage: 5},
	"SOLUSDT": {Symbol: "SOLUSDT", BaseAsset: "SOL", QuoteAsset: "USDT", MinQty: 0.1, QtyStep: 0.1, TickSize: 0.001, MaxLeverage: 3},
}

// GetSymbolInfo returns the trading rules for a symbol.
func GetSymbolInfo(symbol string) (SymbolInfo, error) {
	info, ok := symbolTable[strings.ToUpper(symbol)]
	if !ok {
		return SymbolInfo{}, fmt.Errorf("symbol metadata not found for %s", symbol)
	}
	return info, nil
}
