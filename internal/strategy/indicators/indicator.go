package indicators

import (
	"context"

	"zoneSignalBot/internal/domain"
)

// Indicator represents a technical indicator that can be calculated from price data
type Indicator interface {
	// Calculate computes the latest indicator value for the given klines
	Calculate(ctx context.Context, klines []*domain.Kline) (float64, error)

	// RequiredDataPoints returns the minimum number of klines needed for calculation
	RequiredDataPoints() int

	// Name returns the name of the indicator
	Name() string
}

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period int
}

// BaseIndicator provides common functionality for indicators
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum number of klines needed for calculation
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}

// Series holds the parallel OHLCV arrays of a kline window.
type Series struct {
	Opens   []float64
	Highs   []float64
	Lows    []float64
	Closes  []float64
	Volumes []float64
}

// Len returns the number of candles in the series.
func (s Series) Len() int {
	return len(s.Closes)
}

// SeriesFromKlines unpacks klines into parallel arrays without validation.
func SeriesFromKlines(klines []*domain.Kline) Series {
	s := Series{
		Opens:   make([]float64, len(klines)),
		Highs:   make([]float64, len(klines)),
		Lows:    make([]float64, len(klines)),
		Closes:  make([]float64, len(klines)),
		Volumes: make([]float64, len(klines)),
	}
	for i, k := range klines {
		s.Opens[i] = k.Open
		s.Highs[i] = k.High
		s.Lows[i] = k.Low
		s.Closes[i] = k.Close
		s.Volumes[i] = k.Volume
	}
	return s
}
