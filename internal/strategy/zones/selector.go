package zones

import (
	"cmp"
	"slices"

	"zoneSignalBot/internal/domain"
)

const (
	reachTolerance    = 0.01 // price may sit this far past the zone's far edge
	maxActiveDistance = 0.05
)

// selectActive picks the zone of the given kind most relevant to price:
// nearest first, then strongest. It returns nil when no zone is reachable.
func selectActive(kind domain.ZoneKind, zones []domain.Zone, price float64) *domain.Zone {
	var candidates []domain.Zone
	for _, z := range zones {
		if z.Kind != kind || !reachable(z, price) {
			continue
		}
		candidates = append(candidates, z)
	}
	if len(candidates) == 0 {
		return nil
	}

	slices.SortStableFunc(candidates, func(a, b domain.Zone) int {
		if c := cmp.Compare(a.Distance(price), b.Distance(price)); c != 0 {
			return c
		}
		return cmp.Compare(b.Strength, a.Strength)
	})
	active := candidates[0]
	return &active
}

func reachable(z domain.Zone, price float64) bool {
	if z.Distance(price) > maxActiveDistance {
		return false
	}
	switch z.Kind {
	case domain.ZoneDemand:
		return price >= z.Low*(1-reachTolerance)
	case domain.ZoneSupply:
		return price <= z.High*(1+reachTolerance)
	default:
		return false
	}
}
