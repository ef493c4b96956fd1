package domain

import "time"

// Kline represents a single candlestick data point.
type Kline struct {
	OpenTime  time.Time // Start time of the interval
	CloseTime time.Time // End time of the interval
	Symbol    string    // Trading symbol
	Interval  string    // Kline interval (e.g., "1h", "4h")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Trading volume
	IsFinal   bool      // Whether this kline is the final one for the interval
}

// MarketType tells which Binance market a kline window was fetched from.
// It is carried through analyses as provenance only.
type MarketType string

const (
	MarketSpot    MarketType = "spot"
	MarketFutures MarketType = "futures"
)

// ParseMarketType converts a config or query string into a MarketType.
func ParseMarketType(s string) (MarketType, bool) {
	switch MarketType(s) {
	case MarketSpot:
		return MarketSpot, true
	case MarketFutures:
		return MarketFutures, true
	default:
		return "", false
	}
}
