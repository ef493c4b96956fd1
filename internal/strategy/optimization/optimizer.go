package optimization

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/ports"
	"zoneSignalBot/internal/strategy/analytics"
	"zoneSignalBot/internal/strategy/backtesting"
	"zoneSignalBot/internal/strategy/zones"
)

// Names of the parameters a sweep may vary.
const (
	ParamATRPeriod = "atr_period"
	ParamWindow    = "window"
	ParamHorizon   = "horizon"
)

// ParameterRange defines a range for a parameter to sweep. Values are rounded
// to whole candles.
type ParameterRange struct {
	Name string
	Min  float64
	Max  float64
	Step float64
}

// OptimizationResult holds the replay statistics of one parameter combination.
type OptimizationResult struct {
	Parameters map[string]float64
	Replay     *backtesting.ReplayResult
	Metrics    *analytics.PerformanceMetrics
	Score      float64
}

// AnalyzerFactory builds the analyzer for one combination.
type AnalyzerFactory func(atrPeriod int) (backtesting.Analyzer, error)

// OptimizerConfig holds configuration for the optimizer.
type OptimizerConfig struct {
	ParameterRanges []ParameterRange
	Symbol          string
	Timeframe       string
	ATRPeriod       int // used when no ATR range is given; 0 keeps the engine default
	Window          int // used when no window range is given
	Horizon         int // used when no horizon range is given
	Workers         int // concurrent replays; defaults to 4
	ScoreFunction   func(*analytics.PerformanceMetrics) float64
	NewAnalyzer     AnalyzerFactory // defaults to the zone engine
}

// Optimizer replays the same klines under every parameter combination.
type Optimizer struct {
	config OptimizerConfig
	logger ports.Logger
}

// NewOptimizer creates a new optimizer instance.
func NewOptimizer(config OptimizerConfig, logger ports.Logger) (*Optimizer, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for optimizer")
	}
	for _, r := range config.ParameterRanges {
		switch r.Name {
		case ParamATRPeriod, ParamWindow, ParamHorizon:
		default:
			return nil, fmt.Errorf("%w: unknown parameter %q", ports.ErrInvalidRequest, r.Name)
		}
		if r.Step <= 0 || r.Max < r.Min || r.Min <= 0 {
			return nil, fmt.Errorf("%w: parameter %q needs 0 < min <= max and a positive step",
				ports.ErrInvalidRequest, r.Name)
		}
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.ScoreFunction == nil {
		config.ScoreFunction = DefaultScoreFunction
	}
	if config.NewAnalyzer == nil {
		config.NewAnalyzer = func(atrPeriod int) (backtesting.Analyzer, error) {
			return zones.New(zones.Config{ATRPeriod: atrPeriod}, logger)
		}
	}
	return &Optimizer{config: config, logger: logger}, nil
}

// Optimize replays klines once per parameter combination and returns the
// results sorted by score, best first. Combinations the data cannot support
// (window below the analyzer minimum, too few candles) are logged and left
// out; any other failure aborts the sweep.
func (o *Optimizer) Optimize(ctx context.Context, klines []*domain.Kline) ([]OptimizationResult, error) {
	combinations := o.generateParameterCombinations()
	slots := make([]*OptimizationResult, len(combinations))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)

	for i, params := range combinations {
		g.Go(func() error {
			result, err := o.run(gctx, params, klines)
			if err != nil {
				if errors.Is(err, ports.ErrInvalidRequest) || errors.Is(err, ports.ErrInsufficientData) {
					o.logger.Warn(gctx, "Skipping parameter combination", map[string]interface{}{
						"params": params,
						"error":  err.Error(),
					})
					return nil
				}
				return err
			}
			mu.Lock()
			slots[i] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]OptimizationResult, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	sortResultsByScore(results)
	return results, nil
}

func (o *Optimizer) run(ctx context.Context, params map[string]float64, klines []*domain.Kline) (*OptimizationResult, error) {
	atrPeriod := o.config.ATRPeriod
	if v, ok := params[ParamATRPeriod]; ok {
		atrPeriod = int(v)
	}
	analyzer, err := o.config.NewAnalyzer(atrPeriod)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidRequest, err)
	}

	cfg := backtesting.ReplayConfig{
		Symbol:    o.config.Symbol,
		Timeframe: o.config.Timeframe,
		Window:    o.config.Window,
		Horizon:   o.config.Horizon,
	}
	if v, ok := params[ParamWindow]; ok {
		cfg.Window = int(v)
	}
	if v, ok := params[ParamHorizon]; ok {
		cfg.Horizon = int(v)
	}

	replay, err := backtesting.Replay(ctx, analyzer, klines, cfg)
	if err != nil {
		return nil, err
	}
	metrics := analytics.AnalyzePerformance(replay.Trades)
	return &OptimizationResult{
		Parameters: params,
		Replay:     replay,
		Metrics:    metrics,
		Score:      o.config.ScoreFunction(metrics),
	}, nil
}

// generateParameterCombinations generates all possible parameter combinations.
func (o *Optimizer) generateParameterCombinations() []map[string]float64 {
	var combinations []map[string]float64
	currentCombination := make(map[string]float64)

	var generate func(int)
	generate = func(paramIndex int) {
		if paramIndex == len(o.config.ParameterRanges) {
			combination := make(map[string]float64, len(currentCombination))
			for k, v := range currentCombination {
				combination[k] = v
			}
			combinations = append(combinations, combination)
			return
		}

		param := o.config.ParameterRanges[paramIndex]
		for value := param.Min; value <= param.Max+param.Step/2; value += param.Step {
			currentCombination[param.Name] = math.Round(value)
			generate(paramIndex + 1)
		}
	}

	generate(0)
	return combinations
}

// sortResultsByScore sorts results by score in descending order, keeping
// combination order among equal scores.
func sortResultsByScore(results []OptimizationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// DefaultScoreFunction weights expectancy first and penalizes drawdown.
func DefaultScoreFunction(metrics *analytics.PerformanceMetrics) float64 {
	score := 0.0
	score += metrics.Expectancy * 0.5
	score += metrics.WinRate * 0.3
	score += metrics.AverageR * 0.1
	score -= metrics.MaxDrawdownR * 0.1
	return score
}
