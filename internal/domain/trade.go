package domain

import "time"

// TradeOutcome records how a replayed signal was resolved.
type TradeOutcome string

const (
	OutcomeTakeProfit TradeOutcome = "TP"
	OutcomeStopLoss   TradeOutcome = "SL"
	OutcomeExpired    TradeOutcome = "EXPIRED"
)

// Trade is a virtual trade opened from a signal during a walk-forward replay.
type Trade struct {
	Symbol     string       // Trading symbol (e.g., "ETHUSDT")
	Timeframe  string       // Timeframe the signal was produced on
	Direction  Direction    // BUY_DEMAND or SELL_SUPPLY
	EntryPrice float64      // Price at which the trade was opened (close of the signal candle)
	ExitPrice  float64      // Price at which the trade was resolved
	StopLoss   float64      // Signal stop-loss
	TakeProfit float64      // Signal take-profit
	Strength   float64      // Signal strength at entry
	EntryIndex int          // Candle index of the signal
	ExitIndex  int          // Candle index of the resolution
	EntryTime  time.Time    // Open time of the signal candle
	ExitTime   time.Time    // Open time of the resolving candle
	Outcome    TradeOutcome // TP, SL or EXPIRED
}

// Risk is the distance between entry and stop-loss.
func (t *Trade) Risk() float64 {
	r := t.EntryPrice - t.StopLoss
	if r < 0 {
		return -r
	}
	return r
}

// RMultiple is the trade result expressed in units of initial risk.
func (t *Trade) RMultiple() float64 {
	risk := t.Risk()
	if risk == 0 {
		return 0
	}
	switch t.Direction {
	case BuyDemand:
		return (t.ExitPrice - t.EntryPrice) / risk
	case SellSupply:
		return (t.EntryPrice - t.ExitPrice) / risk
	default:
		return 0
	}
}

// JournaledSignal is an emitted signal as stored by the scanner.
type JournaledSignal struct {
	ID        string    // UUID assigned at journaling time
	RunID     string    // Scan run that produced the signal
	Symbol    string    // Trading symbol
	Timeframe string    // Timeframe key
	Market    MarketType
	Signal    Signal
	Price     float64   // Current price at emission
	CreatedAt time.Time // Wall-clock time of journaling
}
