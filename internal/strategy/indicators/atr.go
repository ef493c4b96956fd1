package indicators

import (
	"context"
	"fmt"
	"slices"

	"github.com/markcheno/go-talib"

	"zoneSignalBot/internal/domain"
)

// DefaultATRPeriod is the number of true ranges averaged.
const DefaultATRPeriod = 14

// Range-based estimate used when the window is too short for Period true ranges.
const (
	atrFallbackWindow  = 20
	atrFallbackDivisor = 10.0
)

// ATRConfig holds configuration for the Average True Range indicator
type ATRConfig struct {
	IndicatorConfig
}

// ATR implements the Average True Range as the simple mean of the last
// Period true ranges.
type ATR struct {
	BaseIndicator
}

// NewATR creates a new Average True Range indicator instance.
// A non-positive period falls back to DefaultATRPeriod.
func NewATR(config ATRConfig) *ATR {
	if config.Period <= 0 {
		config.Period = DefaultATRPeriod
	}
	return &ATR{BaseIndicator: BaseIndicator{Config: config.IndicatorConfig}}
}

// Name returns the name of the indicator
func (a *ATR) Name() string {
	return "ATR"
}

// Calculate computes the ATR value for the given klines
func (a *ATR) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	s := SeriesFromKlines(klines)
	return a.FromSeries(s.Highs, s.Lows, s.Closes)
}

// FromSeries computes the ATR from parallel high/low/close arrays.
//
// With fewer than Period+1 candles there are not enough true ranges, so the
// estimate falls back to (max(high) - min(low)) / 10 over the last 20 candles.
func (a *ATR) FromSeries(highs, lows, closes []float64) (float64, error) {
	n := len(closes)
	if n == 0 || len(highs) != n || len(lows) != n {
		return 0, fmt.Errorf("ATR needs equal, non-empty high/low/close arrays: got %d/%d/%d", len(highs), len(lows), n)
	}

	period := a.Config.Period
	if n < period+1 {
		from := max(0, n-atrFallbackWindow)
		return (slices.Max(highs[from:]) - slices.Min(lows[from:])) / atrFallbackDivisor, nil
	}

	// TRange leaves index 0 at zero (no previous close); the last period
	// entries are all real true ranges because n >= period+1.
	trueRanges := talib.TRange(highs, lows, closes)
	atr := talib.Sma(trueRanges[n-period:], period)
	return atr[period-1], nil
}
