package zones

import (
	"math"

	"zoneSignalBot/internal/domain"
)

const (
	bandTolerance = 0.01 // price must be inside the zone band widened by 1%

	// Momentum thresholds are in percent over the last 3 closes.
	momentumDirectional = 0.1
	momentumWeak        = 2.0

	// MinSignalStrength is the lowest score at which a signal is emitted.
	MinSignalStrength = 70.0

	stopWidthFactor   = 0.5
	targetWidthFactor = 3.0
)

// evaluation stages, ordered by how far a zone got before being rejected.
// When no signal fires, the reason of the furthest-progressing zone is reported.
const (
	stageOutside = iota
	stageDegenerate
	stageMomentum
	stageStrength
)

var stageReason = map[int]domain.SignalReason{
	stageOutside:    domain.ReasonOutsideZone,
	stageDegenerate: domain.ReasonDegenerateZone,
	stageMomentum:   domain.ReasonMomentumAgainst,
	stageStrength:   domain.ReasonStrengthTooLow,
}

// generateSignal evaluates the active demand zone, then the active supply
// zone, and returns the first signal that fires. changePct is the 3-candle
// close-to-close move in percent.
func generateSignal(activeDemand, activeSupply *domain.Zone, price, changePct float64) domain.Signal {
	if activeDemand == nil && activeSupply == nil {
		return domain.Wait(domain.ReasonNoActiveZone)
	}

	furthest := -1
	for _, z := range []*domain.Zone{activeDemand, activeSupply} {
		if z == nil {
			continue
		}
		sig, stage, ok := evaluateZone(*z, price, changePct)
		if ok {
			return sig
		}
		furthest = max(furthest, stage)
	}
	return domain.Wait(stageReason[furthest])
}

// evaluateZone returns a signal for z, or the stage at which z was rejected.
func evaluateZone(z domain.Zone, price, changePct float64) (domain.Signal, int, bool) {
	if !z.Contains(price, bandTolerance) {
		return domain.Signal{}, stageOutside, false
	}
	width := z.Width()
	if width <= 0 {
		return domain.Signal{}, stageDegenerate, false
	}
	if !momentumAllows(z.Kind, changePct) {
		return domain.Signal{}, stageMomentum, false
	}

	strength := z.Strength*0.6 + (1-z.Distance(price))*20 + math.Min(math.Abs(changePct)*2, 20)
	if strength < MinSignalStrength {
		return domain.Signal{}, stageStrength, false
	}

	sig := domain.Signal{
		Direction: z.Kind.Direction(),
		Strength:  math.Min(strength, 100),
		Entry:     z.Entry,
		ZoneLow:   z.Low,
		ZoneHigh:  z.High,
	}
	switch z.Kind {
	case domain.ZoneDemand:
		sig.StopLoss = z.Low - stopWidthFactor*width
		sig.TakeProfit = price + targetWidthFactor*width
		sig.Reason = domain.ReasonDemandReaction
	case domain.ZoneSupply:
		sig.StopLoss = z.High + stopWidthFactor*width
		sig.TakeProfit = price - targetWidthFactor*width
		sig.Reason = domain.ReasonSupplyReaction
	}
	return sig, 0, true
}

// momentumAllows accepts momentum that agrees with the zone, or any move
// weaker than momentumWeak percent in either direction.
func momentumAllows(kind domain.ZoneKind, changePct float64) bool {
	if math.Abs(changePct) < momentumWeak {
		return true
	}
	switch kind {
	case domain.ZoneDemand:
		return changePct > momentumDirectional
	case domain.ZoneSupply:
		return changePct < -momentumDirectional
	default:
		return false
	}
}
