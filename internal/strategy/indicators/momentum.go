package indicators

import (
	"context"
	"fmt"

	"github.com/markcheno/go-talib"

	"zoneSignalBot/internal/domain"
)

// Momentum is the rate of change of closes over Period candles, in percent.
// A period of 2 compares the last close with the close two candles earlier.
type Momentum struct {
	BaseIndicator
}

// NewMomentum creates a rate-of-change indicator.
func NewMomentum(config IndicatorConfig) *Momentum {
	return &Momentum{BaseIndicator: BaseIndicator{Config: config}}
}

// Name returns the name of the indicator
func (m *Momentum) Name() string {
	return "ROC"
}

// RequiredDataPoints needs Period+1 closes.
func (m *Momentum) RequiredDataPoints() int {
	return m.Config.Period + 1
}

// Calculate computes the latest rate of change for the given klines
func (m *Momentum) Calculate(ctx context.Context, klines []*domain.Kline) (float64, error) {
	return m.FromSeries(SeriesFromKlines(klines).Closes)
}

// FromSeries returns ((close[-1] / close[-1-Period]) - 1) * 100.
// A zero reference close yields 0.
func (m *Momentum) FromSeries(closes []float64) (float64, error) {
	period := m.Config.Period
	if period <= 0 {
		return 0, fmt.Errorf("invalid ROC period %d", period)
	}
	if len(closes) < period+1 {
		return 0, fmt.Errorf("not enough data (%d) to calculate ROC for period %d", len(closes), period)
	}
	roc := talib.Roc(closes[len(closes)-period-1:], period)
	return roc[period], nil
}
