package zones

import "zoneSignalBot/internal/domain"

// MinZoneStrength is the lowest strength a zone may have to be reported.
const MinZoneStrength = 45.0

// breachTolerance is how far price may trade through a zone's far edge
// before the zone is considered broken.
const breachTolerance = 0.005

// zoneValid reports whether price has not broken through the zone. A demand
// zone breaks when price falls more than 0.5% under its low; a supply zone
// when price rises more than 0.5% over its high.
func zoneValid(kind domain.ZoneKind, low, high, price float64) bool {
	switch kind {
	case domain.ZoneDemand:
		return price >= low*(1-breachTolerance)
	case domain.ZoneSupply:
		return price <= high*(1+breachTolerance)
	default:
		return false
	}
}

// filterZones keeps valid zones at or above MinZoneStrength, strongest first,
// capped at MaxZonesPerKind. The input is not modified.
func filterZones(zones []domain.Zone) []domain.Zone {
	kept := make([]domain.Zone, 0, len(zones))
	for _, z := range zones {
		if z.Valid && z.Strength >= MinZoneStrength {
			kept = append(kept, z)
		}
	}
	sortByStrength(kept)
	if len(kept) > MaxZonesPerKind {
		kept = kept[:MaxZonesPerKind]
	}
	return kept
}
