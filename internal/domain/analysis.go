package domain

// ZoneAnalysis summarises the filtered zone sets of one analysis.
type ZoneAnalysis struct {
	DemandCount           int      `json:"demand_count"`
	SupplyCount           int      `json:"supply_count"`
	AvgDemandStrength     float64  `json:"avg_demand_strength"`
	AvgSupplyStrength     float64  `json:"avg_supply_strength"`
	NearestDemandDistance *float64 `json:"nearest_demand_distance,omitempty"`
	NearestSupplyDistance *float64 `json:"nearest_supply_distance,omitempty"`
}

// Analysis is the result of one engine invocation over a candle window.
type Analysis struct {
	Symbol          string       `json:"symbol"`
	Timeframe       string       `json:"timeframe"`
	Market          MarketType   `json:"market"`
	CurrentPrice    float64      `json:"current_price"`
	ATR             float64      `json:"atr"`
	DemandZones     []Zone       `json:"demand_zones"`
	SupplyZones     []Zone       `json:"supply_zones"`
	ActiveDemand    *Zone        `json:"active_demand,omitempty"`
	ActiveSupply    *Zone        `json:"active_supply,omitempty"`
	Signal          Signal       `json:"signal"`
	Summary         ZoneAnalysis `json:"zone_analysis"`
	Explanation     string       `json:"explanation"`
	ValidityHorizon int          `json:"validity_horizon"`
}
