// Package zones detects supply and demand zones on a candle window and derives
// a trade signal when price has returned to one of them. Every call is
// self-contained: the Analyzer holds configuration only.
package zones

import (
	"context"
	"fmt"

	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/ports"
	"zoneSignalBot/internal/strategy/indicators"
)

const (
	volumeBaselinePeriod = 20
	momentumPeriod       = 2 // compares close[-1] with close[-3]
)

// Config holds the engine parameters that callers may tune.
type Config struct {
	ATRPeriod int // defaults to 14
}

// Analyzer implements ports.ZoneAnalyzer.
type Analyzer struct {
	cfg      Config
	atr      *indicators.ATR
	volume   *indicators.MovingAverage
	momentum *indicators.Momentum
	logger   ports.Logger
}

var _ ports.ZoneAnalyzer = (*Analyzer)(nil)

// New creates a zone Analyzer.
func New(cfg Config, logger ports.Logger) (*Analyzer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for zone analyzer")
	}
	if cfg.ATRPeriod < 0 {
		return nil, fmt.Errorf("ATR period must not be negative")
	}
	if cfg.ATRPeriod == 0 {
		cfg.ATRPeriod = indicators.DefaultATRPeriod
	}

	return &Analyzer{
		cfg: cfg,
		atr: indicators.NewATR(indicators.ATRConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: cfg.ATRPeriod},
		}),
		volume: indicators.NewMovingAverage(indicators.MovingAverageConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: volumeBaselinePeriod},
			Source:          indicators.SourceVolume,
		}),
		momentum: indicators.NewMomentum(indicators.IndicatorConfig{Period: momentumPeriod}),
		logger:   logger,
	}, nil
}

// RequiredDataPoints returns the minimum window length Analyze accepts.
func (a *Analyzer) RequiredDataPoints() int {
	return MinCandles
}

// Analyze runs the full pipeline over req.Klines. Input errors are returned
// before any computation; once validation passes the call cannot fail.
func (a *Analyzer) Analyze(ctx context.Context, req ports.AnalysisRequest) (*domain.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrContextCanceled, err)
	}

	horizon, ok := domain.ValidityHorizon(req.Timeframe)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrUnsupportedTimeframe, req.Timeframe)
	}
	market := req.Market
	if market == "" {
		market = domain.MarketSpot
	}
	if _, ok := domain.ParseMarketType(string(market)); !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrUnsupportedMarket, req.Market)
	}

	series, err := validateKlines(req.Klines)
	if err != nil {
		return nil, err
	}

	// Validation guarantees MinCandles >= every indicator's data requirement,
	// so the indicator errors below cannot occur.
	atr, err := a.atr.FromSeries(series.Highs, series.Lows, series.Closes)
	if err != nil {
		return nil, fmt.Errorf("calculate ATR: %w", err)
	}
	volumeBase, err := a.volume.FromSeries(series.Volumes)
	if err != nil {
		return nil, fmt.Errorf("calculate volume baseline: %w", err)
	}
	changePct, err := a.momentum.FromSeries(series.Closes)
	if err != nil {
		return nil, fmt.Errorf("calculate momentum: %w", err)
	}

	price := series.Closes[series.Len()-1]
	in := zoneInputs{atr: atr, candles: series.Len(), volumeBase: volumeBase, price: price}

	swingHighs, swingLows := findSwings(series, atr)
	rawDemand := buildZones(domain.ZoneDemand, swingLows, in)
	rawSupply := buildZones(domain.ZoneSupply, swingHighs, in)

	demand := filterZones(rawDemand)
	supply := filterZones(rawSupply)
	activeDemand := selectActive(domain.ZoneDemand, demand, price)
	activeSupply := selectActive(domain.ZoneSupply, supply, price)

	result := &domain.Analysis{
		Symbol:          req.Symbol,
		Timeframe:       req.Timeframe,
		Market:          market,
		CurrentPrice:    price,
		ATR:             atr,
		DemandZones:     demand,
		SupplyZones:     supply,
		ActiveDemand:    activeDemand,
		ActiveSupply:    activeSupply,
		Signal:          generateSignal(activeDemand, activeSupply, price, changePct),
		Summary:         summarize(demand, supply, price),
		ValidityHorizon: horizon,
	}
	result.Explanation = explain(result)

	a.logger.Debug(ctx, "Zone analysis complete", map[string]interface{}{
		"symbol":       req.Symbol,
		"timeframe":    req.Timeframe,
		"atr":          atr,
		"swing_highs":  len(swingHighs),
		"swing_lows":   len(swingLows),
		"demand_zones": len(demand),
		"supply_zones": len(supply),
		"direction":    result.Signal.Direction,
		"reason":       result.Signal.Reason,
	})
	return result, nil
}

func summarize(demand, supply []domain.Zone, price float64) domain.ZoneAnalysis {
	s := domain.ZoneAnalysis{DemandCount: len(demand), SupplyCount: len(supply)}
	s.AvgDemandStrength, s.NearestDemandDistance = zoneStats(demand, price)
	s.AvgSupplyStrength, s.NearestSupplyDistance = zoneStats(supply, price)
	return s
}

func zoneStats(zones []domain.Zone, price float64) (avgStrength float64, nearest *float64) {
	if len(zones) == 0 {
		return 0, nil
	}
	var total float64
	for i, z := range zones {
		total += z.Strength
		d := z.Distance(price)
		if i == 0 || d < *nearest {
			nearest = &d
		}
	}
	return total / float64(len(zones)), nearest
}
