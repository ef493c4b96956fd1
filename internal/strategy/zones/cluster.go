package zones

import (
	"cmp"
	"math"
	"slices"

	"zoneSignalBot/internal/domain"
)

const (
	clusterRadiusATR   = 1.5 // swings within this distance of the seed join its cluster
	zonePaddingATR     = 0.3
	entryDepth         = 0.3 // entry sits this far into the zone from the shallow edge
	volumeConfirmRatio = 1.5

	// MaxZonesPerKind caps both the raw and the filtered zone lists.
	MaxZonesPerKind = 5

	strengthFloor   = 40.0
	strengthCeiling = 100.0
)

// zoneInputs is the per-call context shared by every zone built from one window.
type zoneInputs struct {
	atr        float64
	candles    int
	volumeBase float64 // mean volume of the last 20 candles
	price      float64 // current price, used for the one-shot validity check
}

// clusterSwings groups swings greedily in index order: each unclustered swing
// seeds a cluster and absorbs every later unclustered swing within
// clusterRadiusATR of the seed price.
func clusterSwings(swings []swingPoint, atr float64) [][]swingPoint {
	used := make([]bool, len(swings))
	radius := clusterRadiusATR * atr

	var clusters [][]swingPoint
	for i, seed := range swings {
		if used[i] {
			continue
		}
		used[i] = true
		cluster := []swingPoint{seed}

		for j := i + 1; j < len(swings); j++ {
			if used[j] {
				continue
			}
			if math.Abs(swings[j].price-seed.price) <= radius {
				used[j] = true
				cluster = append(cluster, swings[j])
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// buildZones turns swings of one kind into scored zones, strongest first,
// capped at MaxZonesPerKind.
func buildZones(kind domain.ZoneKind, swings []swingPoint, in zoneInputs) []domain.Zone {
	clusters := clusterSwings(swings, in.atr)
	zones := make([]domain.Zone, 0, len(clusters))
	for _, c := range clusters {
		zones = append(zones, newZone(kind, c, in))
	}
	sortByStrength(zones)
	if len(zones) > MaxZonesPerKind {
		zones = zones[:MaxZonesPerKind]
	}
	return zones
}

func newZone(kind domain.ZoneKind, cluster []swingPoint, in zoneInputs) domain.Zone {
	var (
		prices    = make([]float64, len(cluster))
		opposites = make([]float64, len(cluster))
		volSum    float64
		moveSum   float64
		latest    int
	)
	for i, p := range cluster {
		prices[i] = p.price
		opposites[i] = p.opposite
		volSum += p.volume
		moveSum += p.moveATR
		latest = max(latest, p.index)
	}
	touches := len(cluster)
	avgVolume := volSum / float64(touches)
	avgMove := moveSum / float64(touches)

	z := domain.Zone{
		Kind:           kind,
		FormationIndex: latest,
		TouchCount:     touches,
	}

	pad := zonePaddingATR * in.atr
	switch kind {
	case domain.ZoneDemand:
		z.Low = slices.Min(prices) - pad
		z.High = slices.Max(opposites)
		z.Entry = z.Low + entryDepth*z.Width()
	case domain.ZoneSupply:
		z.High = slices.Max(prices) + pad
		z.Low = slices.Min(opposites)
		z.Entry = z.High - entryDepth*z.Width()
	}

	volumeRatio := 0.0
	if in.volumeBase > 0 {
		volumeRatio = avgVolume / in.volumeBase
	}
	z.VolumeConfirmed = volumeRatio >= volumeConfirmRatio

	freshness := float64(latest) / float64(in.candles)
	volumeFactor := math.Min(volumeRatio, 2) / 2
	moveFactor := math.Min(avgMove/2, 1)
	strength := float64(touches)*15 + freshness*25 + volumeFactor*20 + moveFactor*20
	z.Strength = clamp(strength, strengthFloor, strengthCeiling)

	z.Valid = zoneValid(kind, z.Low, z.High, in.price)
	if !z.Valid {
		breach := in.price
		z.BreachPrice = &breach
	}
	return z
}

// sortByStrength orders zones strongest first. Ties keep the more recent zone first.
func sortByStrength(zones []domain.Zone) {
	slices.SortStableFunc(zones, func(a, b domain.Zone) int {
		if c := cmp.Compare(b.Strength, a.Strength); c != 0 {
			return c
		}
		return cmp.Compare(b.FormationIndex, a.FormationIndex)
	})
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
