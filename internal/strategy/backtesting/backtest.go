package backtesting

import (
	"context"
	"fmt"

	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/ports"
)

// DefaultWindow is the number of candles fed to the analyzer at each step.
const DefaultWindow = 300

// Analyzer is a zone analyzer that reports its minimum window length.
type Analyzer interface {
	ports.ZoneAnalyzer
	RequiredDataPoints() int
}

// ReplayConfig holds configuration for a walk-forward replay.
type ReplayConfig struct {
	Symbol    string
	Timeframe string
	Market    domain.MarketType
	Window    int // trailing candles per analysis; 0 uses DefaultWindow
	Horizon   int // candles before an open trade expires; 0 uses the timeframe's validity horizon
}

// ReplayResult holds the outcome of a replay.
type ReplayResult struct {
	Steps     int             // analyzer invocations
	Signals   int             // actionable signals seen, including ones that opened no trade
	Skipped   int             // signals whose stop or target was on the wrong side of entry
	Trades    []*domain.Trade // resolved trades in entry order
	OpenTrade *domain.Trade   // trade still unresolved when data ran out
}

// Replay walks klines forward one candle at a time. At each step it analyzes
// the trailing window ending at that candle; when no trade is open and the
// signal is actionable, it opens a virtual trade at the candle close. Open
// trades are resolved on later candles by stop-loss or take-profit touch
// (stop-loss first when both are inside one candle) or expire after Horizon
// candles at that candle's close.
func Replay(ctx context.Context, analyzer Analyzer, klines []*domain.Kline, cfg ReplayConfig) (*ReplayResult, error) {
	warmup := analyzer.RequiredDataPoints()
	if len(klines) <= warmup {
		return nil, fmt.Errorf("%w: replay needs more than %d candles, got %d",
			ports.ErrInsufficientData, warmup, len(klines))
	}

	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	if window < warmup {
		return nil, fmt.Errorf("%w: window %d is below the analyzer minimum %d",
			ports.ErrInvalidRequest, window, warmup)
	}

	horizon := cfg.Horizon
	if horizon <= 0 {
		h, ok := domain.ValidityHorizon(cfg.Timeframe)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ports.ErrUnsupportedTimeframe, cfg.Timeframe)
		}
		horizon = h
	}

	result := &ReplayResult{}
	var open *domain.Trade

	for i := warmup - 1; i < len(klines); i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrContextCanceled, err)
		}
		current := klines[i]

		if open != nil {
			if !resolve(open, current, i, horizon) {
				continue
			}
			// The slot is free again; a new entry may open at this close.
			result.Trades = append(result.Trades, open)
			open = nil
		}

		start := max(0, i+1-window)
		analysis, err := analyzer.Analyze(ctx, ports.AnalysisRequest{
			Symbol:    cfg.Symbol,
			Timeframe: cfg.Timeframe,
			Market:    cfg.Market,
			Klines:    klines[start : i+1],
		})
		if err != nil {
			return nil, fmt.Errorf("analyze candle %d: %w", i, err)
		}
		result.Steps++

		sig := analysis.Signal
		if !sig.Actionable() {
			continue
		}
		result.Signals++
		if !levelsAroundEntry(sig, current.Close) {
			result.Skipped++
			continue
		}

		open = &domain.Trade{
			Symbol:     cfg.Symbol,
			Timeframe:  cfg.Timeframe,
			Direction:  sig.Direction,
			EntryPrice: current.Close,
			StopLoss:   sig.StopLoss,
			TakeProfit: sig.TakeProfit,
			Strength:   sig.Strength,
			EntryIndex: i,
			EntryTime:  current.OpenTime,
		}
	}

	result.OpenTrade = open
	return result, nil
}

// resolve checks candle k (at index i) against the open trade and closes it
// when a level is touched or the horizon has elapsed.
func resolve(t *domain.Trade, k *domain.Kline, i, horizon int) bool {
	var hitSL, hitTP bool
	switch t.Direction {
	case domain.BuyDemand:
		hitSL = k.Low <= t.StopLoss
		hitTP = k.High >= t.TakeProfit
	case domain.SellSupply:
		hitSL = k.High >= t.StopLoss
		hitTP = k.Low <= t.TakeProfit
	}

	switch {
	case hitSL:
		t.Outcome, t.ExitPrice = domain.OutcomeStopLoss, t.StopLoss
	case hitTP:
		t.Outcome, t.ExitPrice = domain.OutcomeTakeProfit, t.TakeProfit
	case i-t.EntryIndex >= horizon:
		t.Outcome, t.ExitPrice = domain.OutcomeExpired, k.Close
	default:
		return false
	}
	t.ExitIndex = i
	t.ExitTime = k.OpenTime
	return true
}

func levelsAroundEntry(sig domain.Signal, entry float64) bool {
	switch sig.Direction {
	case domain.BuyDemand:
		return sig.StopLoss < entry && sig.TakeProfit > entry
	case domain.SellSupply:
		return sig.StopLoss > entry && sig.TakeProfit < entry
	default:
		return false
	}
}
