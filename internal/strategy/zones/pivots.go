package zones

import (
	"slices"

	"zoneSignalBot/internal/strategy/indicators"
)

const (
	pivotWindow   = 3   // candles on each side that must be exceeded
	pivotLookback = 5   // candles before the pivot used to measure the move
	minMoveATR    = 0.3 // minimum qualifying move, in ATR units
)

// swingPoint is a confirmed local extreme. It only lives until zones are built.
type swingPoint struct {
	index    int
	price    float64 // high for swing highs, low for swing lows
	opposite float64 // the other extreme of the same candle
	volume   float64
	moveATR  float64
}

// findSwings returns swing highs (supply candidates) and swing lows (demand
// candidates) in index order. A non-positive ATR yields no swings.
func findSwings(s indicators.Series, atr float64) (highs, lows []swingPoint) {
	if atr <= 0 {
		return nil, nil
	}
	minMove := minMoveATR * atr
	n := s.Len()

	for i := pivotWindow; i < n-pivotWindow; i++ {
		from := max(0, i-pivotLookback)

		if isSwingHigh(s.Highs, i) {
			move := s.Highs[i] - slices.Min(s.Lows[from:i])
			if move >= minMove {
				highs = append(highs, swingPoint{
					index:    i,
					price:    s.Highs[i],
					opposite: s.Lows[i],
					volume:   s.Volumes[i],
					moveATR:  move / atr,
				})
			}
		}

		if isSwingLow(s.Lows, i) {
			move := slices.Max(s.Highs[from:i]) - s.Lows[i]
			if move >= minMove {
				lows = append(lows, swingPoint{
					index:    i,
					price:    s.Lows[i],
					opposite: s.Highs[i],
					volume:   s.Volumes[i],
					moveATR:  move / atr,
				})
			}
		}
	}
	return highs, lows
}

func isSwingHigh(highs []float64, i int) bool {
	for j := 1; j <= pivotWindow; j++ {
		if highs[i] <= highs[i-j] || highs[i] <= highs[i+j] {
			return false
		}
	}
	return true
}

func isSwingLow(lows []float64, i int) bool {
	for j := 1; j <= pivotWindow; j++ {
		if lows[i] >= lows[i-j] || lows[i] >= lows[i+j] {
			return false
		}
	}
	return true
}
