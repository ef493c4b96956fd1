package indicators

import (
	"context"
	"fmt"

	"github.com/markcheno/go-talib"

	"zoneSignalBot/internal/domain"
)

// PriceSource selects which kline field a moving average is computed over.
type PriceSource string

const (
	SourceClose  PriceSource = "close"
	SourceVolume PriceSource = "volume"
)

// MovingAverageConfig holds configuration for moving average indicators
type MovingAverageConfig struct {
	IndicatorConfig
	Source PriceSource
}

// MovingAverage is a simple moving average over closes or volumes.
type MovingAverage struct {
	BaseIndicator
	config MovingAverageConfig
}

// NewMovingAverage creates a new moving average indicator instance.
// An empty source defaults to closes.
func NewMovingAverage(config MovingAverageConfig) *MovingAverage {
	if config.Source == "" {
		config.Source = SourceClose
	}
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (m *MovingAverage) Name() string {
	return fmt.Sprintf("SMA(%s,%d)", m.config.Source, m.Config.Period)
}

// Calculate computes the moving average of the configured source
func (m *MovingAverage) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	s := SeriesFromKlines(klines)
	switch m.config.Source {
	case SourceClose:
		return m.FromSeries(s.Closes)
	case SourceVolume:
		return m.FromSeries(s.Volumes)
	default:
		return 0, fmt.Errorf("unsupported moving average source: %s", m.config.Source)
	}
}

// FromSeries returns the mean of the last Period values.
func (m *MovingAverage) FromSeries(values []float64) (float64, error) {
	period := m.Config.Period
	if period <= 0 {
		return 0, fmt.Errorf("invalid SMA period %d", period)
	}
	if len(values) < period {
		return 0, fmt.Errorf("not enough data (%d) to calculate SMA for period %d", len(values), period)
	}
	sma := talib.Sma(values[len(values)-period:], period)
	return sma[period-1], nil
}
