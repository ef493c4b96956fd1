package domain

// Direction is the side of a zone signal.
type Direction string

const (
	DirectionNone Direction = "NONE"
	BuyDemand     Direction = "BUY_DEMAND"
	SellSupply    Direction = "SELL_SUPPLY"
)

// SignalReason is a short machine-readable code attached to every signal,
// explaining either why it fired or why the engine is waiting.
type SignalReason string

const (
	ReasonDemandReaction  SignalReason = "demand_zone_reaction"
	ReasonSupplyReaction  SignalReason = "supply_zone_reaction"
	ReasonNoActiveZone    SignalReason = "no_active_zone"
	ReasonOutsideZone     SignalReason = "price_outside_zone"
	ReasonMomentumAgainst SignalReason = "momentum_against_zone"
	ReasonStrengthTooLow  SignalReason = "strength_below_threshold"
	ReasonDegenerateZone  SignalReason = "degenerate_zone"
)

// validityHorizon maps a timeframe key to the number of candles after which a
// zone set should be considered stale and re-scanned.
var validityHorizon = map[string]int{
	"15m": 192,
	"30m": 96,
	"1h":  48,
	"4h":  24,
	"1d":  10,
	"1w":  4,
}

// ValidityHorizon returns the staleness horizon (in candles) for a timeframe.
// ok is false for timeframes the engine does not support.
func ValidityHorizon(timeframe string) (candles int, ok bool) {
	candles, ok = validityHorizon[timeframe]
	return candles, ok
}

// SupportedTimeframes lists the timeframe keys with a validity horizon.
func SupportedTimeframes() []string {
	return []string{"15m", "30m", "1h", "4h", "1d", "1w"}
}
