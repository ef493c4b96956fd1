package zones

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"zoneSignalBot/internal/domain"
)

// explain renders a human-readable summary of an analysis. The wording is
// presentational and may change freely.
func explain(a *domain.Analysis) string {
	places := pricePlaces(a.CurrentPrice)
	px := func(v float64) string { return decimal.NewFromFloat(v).Round(places).String() }

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s): price %s, ATR %s\n", a.Symbol, a.Timeframe, a.Market, px(a.CurrentPrice), px(a.ATR))
	fmt.Fprintf(&b, "Demand zones: %d (avg strength %s), supply zones: %d (avg strength %s)\n",
		a.Summary.DemandCount, round(a.Summary.AvgDemandStrength, 1),
		a.Summary.SupplyCount, round(a.Summary.AvgSupplyStrength, 1))

	for _, active := range []struct {
		kind domain.ZoneKind
		zone *domain.Zone
	}{
		{domain.ZoneDemand, a.ActiveDemand},
		{domain.ZoneSupply, a.ActiveSupply},
	} {
		name := strings.ToLower(active.kind.String())
		if active.zone == nil {
			fmt.Fprintf(&b, "Active %s: none\n", name)
			continue
		}
		z := active.zone
		fmt.Fprintf(&b, "Active %s: %s - %s, entry %s, strength %s, distance %s%%\n",
			name, px(z.Low), px(z.High), px(z.Entry), round(z.Strength, 1), round(z.Distance(a.CurrentPrice)*100, 2))
	}

	s := a.Signal
	if !s.Actionable() {
		fmt.Fprintf(&b, "No signal: %s", s.Reason)
		return b.String()
	}
	fmt.Fprintf(&b, "Signal %s (strength %s): entry %s, stop %s, target %s",
		s.Direction, round(s.Strength, 1), px(s.Entry), px(s.StopLoss), px(s.TakeProfit))
	return b.String()
}

// pricePlaces scales display precision to the price magnitude.
func pricePlaces(price float64) int32 {
	switch {
	case price >= 1000:
		return 2
	case price >= 1:
		return 4
	default:
		return 8
	}
}

func round(v float64, places int32) string {
	return decimal.NewFromFloat(v).Round(places).String()
}
