package domain

// Signal is the trade setup derived from an active zone. A signal with
// Direction NONE carries only a Reason explaining the wait state.
type Signal struct {
	Direction  Direction    `json:"direction"`
	Strength   float64      `json:"strength"`
	Entry      float64      `json:"entry"`
	StopLoss   float64      `json:"stop_loss"`
	TakeProfit float64      `json:"take_profit"`
	Reason     SignalReason `json:"reason"`

	// Bounds of the zone that produced the signal. The zone itself is not owned.
	ZoneLow  float64 `json:"zone_low,omitempty"`
	ZoneHigh float64 `json:"zone_high,omitempty"`
}

// Actionable reports whether the signal carries a trade setup.
func (s Signal) Actionable() bool {
	return s.Direction == BuyDemand || s.Direction == SellSupply
}

// Wait builds a non-actionable signal with the given reason.
func Wait(reason SignalReason) Signal {
	return Signal{Direction: DirectionNone, Reason: reason}
}
