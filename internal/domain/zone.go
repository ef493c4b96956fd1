package domain

import (
	"encoding/json"
	"fmt"
)

// ZoneKind is the closed set of zone variants. Code that depends on the kind
// switches over both values; there is no third case.
type ZoneKind uint8

const (
	ZoneDemand ZoneKind = iota + 1
	ZoneSupply
)

// String returns the wire name of the kind.
func (k ZoneKind) String() string {
	switch k {
	case ZoneDemand:
		return "DEMAND"
	case ZoneSupply:
		return "SUPPLY"
	default:
		return fmt.Sprintf("ZoneKind(%d)", uint8(k))
	}
}

// MarshalJSON encodes the kind by name.
func (k ZoneKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes "DEMAND" or "SUPPLY".
func (k *ZoneKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "DEMAND":
		*k = ZoneDemand
	case "SUPPLY":
		*k = ZoneSupply
	default:
		return fmt.Errorf("unknown zone kind %q", s)
	}
	return nil
}

// Direction is the trade direction implied by the zone.
func (k ZoneKind) Direction() Direction {
	switch k {
	case ZoneDemand:
		return BuyDemand
	case ZoneSupply:
		return SellSupply
	default:
		return DirectionNone
	}
}

// Zone is a demand or supply price band built from clustered swing points.
// All fields are fixed at construction, including validity, which is derived
// from the full candle window the zone was built from.
type Zone struct {
	Kind            ZoneKind `json:"kind"`
	High            float64  `json:"high"`
	Low             float64  `json:"low"`
	Strength        float64  `json:"strength"`
	FormationIndex  int      `json:"formation_index"`
	Entry           float64  `json:"entry"`
	TouchCount      int      `json:"touch_count"`
	Valid           bool     `json:"valid"`
	BreachPrice     *float64 `json:"breach_price,omitempty"`
	VolumeConfirmed bool     `json:"volume_confirmed"`
}

// Width returns High-Low.
func (z Zone) Width() float64 {
	return z.High - z.Low
}

// Contains reports whether price lies inside the band widened by tolerance
// on both sides (0.01 for 1%).
func (z Zone) Contains(price, tolerance float64) bool {
	return price >= z.Low*(1-tolerance) && price <= z.High*(1+tolerance)
}

// Distance is 0 inside [Low, High], otherwise the gap to the nearer boundary
// as a fraction of price.
func (z Zone) Distance(price float64) float64 {
	if price <= 0 {
		return 0
	}
	switch {
	case price < z.Low:
		return (z.Low - price) / price
	case price > z.High:
		return (price - z.High) / price
	default:
		return 0
	}
}
