package zones

import (
	"fmt"
	"math"

	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/ports"
	"zoneSignalBot/internal/strategy/indicators"
)

// MinCandles is the smallest window the engine will analyze.
const MinCandles = 50

// validateKlines checks every candle before any computation and unpacks the
// window into parallel arrays. The first violation fails the whole call.
func validateKlines(klines []*domain.Kline) (indicators.Series, error) {
	if len(klines) < MinCandles {
		return indicators.Series{}, fmt.Errorf("%w: got %d candles, need at least %d",
			ports.ErrInsufficientData, len(klines), MinCandles)
	}

	for i, k := range klines {
		if k == nil {
			return indicators.Series{}, fmt.Errorf("%w: candle %d is nil", ports.ErrMalformedCandle, i)
		}
		if !allFinite(k.Open, k.High, k.Low, k.Close, k.Volume) {
			return indicators.Series{}, fmt.Errorf("%w: candle %d has a non-finite value", ports.ErrMalformedCandle, i)
		}
		if k.Low > k.Open || k.Open > k.High || k.Low > k.Close || k.Close > k.High {
			return indicators.Series{}, fmt.Errorf("%w: candle %d violates low <= open,close <= high (o=%v h=%v l=%v c=%v)",
				ports.ErrMalformedCandle, i, k.Open, k.High, k.Low, k.Close)
		}
		if k.Volume < 0 {
			return indicators.Series{}, fmt.Errorf("%w: candle %d has negative volume %v", ports.ErrMalformedCandle, i, k.Volume)
		}
	}

	return indicators.SeriesFromKlines(klines), nil
}

func allFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
