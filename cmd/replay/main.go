// cmd/replay walks a kline CSV through the zone engine candle by candle and
// reports how the emitted signals would have played out.
//
// Usage:
//
//	go run ./cmd/replay --csv=data/ETHUSDT_1h_20250207_to_20250507.csv --tf=1h --db=data/zone_signals.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"

	"zoneSignalBot/internal/adapters/logger"
	"zoneSignalBot/internal/adapters/sqlite"
	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/strategy/analytics"
	"zoneSignalBot/internal/strategy/backtesting"
	"zoneSignalBot/internal/strategy/optimization"
	"zoneSignalBot/internal/strategy/zones"
	"zoneSignalBot/internal/utils"
)

func main() {
	csvPath := flag.String("csv", "", "Kline CSV written by fetch_klines (required)")
	symbol := flag.String("symbol", "ETHUSDT", "Symbol the CSV holds")
	timeframe := flag.String("tf", "1h", "Timeframe the CSV holds")
	window := flag.Int("window", backtesting.DefaultWindow, "Trailing candles per analysis")
	horizon := flag.Int("horizon", 0, "Candles before an open trade expires (0=timeframe validity)")
	atrPeriod := flag.Int("atr", 14, "ATR period")
	dbPath := flag.String("db", "", "SQLite database to store the replayed trades in (optional)")
	logLevel := flag.String("log-level", "info", "Log level")
	sweepATR := flag.String("sweep-atr", "", "Sweep ATR period as MIN:MAX:STEP")
	sweepWindow := flag.String("sweep-window", "", "Sweep window as MIN:MAX:STEP")
	sweepHorizon := flag.String("sweep-horizon", "", "Sweep horizon as MIN:MAX:STEP")
	top := flag.Int("top", 10, "Sweep results to print")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger := logger.New("replay", logger.ParseLevel(*logLevel), logger.FormatText)

	klines, err := utils.ReadKlinesFromCSV(*csvPath)
	if err != nil {
		log.Fatalf("FATAL: Failed to load klines: %v", err)
	}
	appLogger.Info(ctx, "Loaded klines", map[string]interface{}{"file": *csvPath, "count": len(klines)})

	ranges, err := parseRanges(map[string]string{
		optimization.ParamATRPeriod: *sweepATR,
		optimization.ParamWindow:    *sweepWindow,
		optimization.ParamHorizon:   *sweepHorizon,
	})
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	if len(ranges) > 0 {
		optimizer, err := optimization.NewOptimizer(optimization.OptimizerConfig{
			ParameterRanges: ranges,
			Symbol:          *symbol,
			Timeframe:       *timeframe,
			ATRPeriod:       *atrPeriod,
			Window:          *window,
			Horizon:         *horizon,
		}, appLogger)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize optimizer: %v", err)
		}
		results, err := optimizer.Optimize(ctx, klines)
		if err != nil {
			log.Fatalf("FATAL: Sweep failed: %v", err)
		}
		printSweep(results, *top)
		return
	}

	analyzer, err := zones.New(zones.Config{ATRPeriod: *atrPeriod}, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize zone analyzer: %v", err)
	}

	res, err := backtesting.Replay(ctx, analyzer, klines, backtesting.ReplayConfig{
		Symbol:    *symbol,
		Timeframe: *timeframe,
		Window:    *window,
		Horizon:   *horizon,
	})
	if err != nil {
		log.Fatalf("FATAL: Replay failed: %v", err)
	}

	perf := analytics.AnalyzePerformance(res.Trades)
	printReport(res, perf)

	if *dbPath == "" {
		return
	}
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: *dbPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to open database: %v", err)
	}
	defer repo.Close()

	runID := uuid.NewString()
	for _, trade := range res.Trades {
		if err := repo.SaveTrade(ctx, runID, trade); err != nil {
			appLogger.Error(ctx, err, "Failed to store replayed trade")
			return
		}
	}
	appLogger.Info(ctx, "Stored replayed trades", map[string]interface{}{
		"run_id": runID,
		"trades": len(res.Trades),
		"db":     *dbPath,
	})
}

func printReport(res *backtesting.ReplayResult, perf *analytics.PerformanceMetrics) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "## Replay")
	fmt.Fprintf(w, "Steps\t%d\n", res.Steps)
	fmt.Fprintf(w, "Signals\t%d\n", res.Signals)
	fmt.Fprintf(w, "Skipped\t%d\n", res.Skipped)
	fmt.Fprintf(w, "Trades\t%d\n", perf.TotalTrades)
	if res.OpenTrade != nil {
		fmt.Fprintf(w, "Open at end\t%s @ %.4f (candle %d)\n",
			res.OpenTrade.Direction, res.OpenTrade.EntryPrice, res.OpenTrade.EntryIndex)
	}

	fmt.Fprintln(w, "\n## Outcomes")
	fmt.Fprintf(w, "Take-profit\t%d\n", perf.WinningTrades)
	fmt.Fprintf(w, "Stop-loss\t%d\n", perf.LosingTrades)
	fmt.Fprintf(w, "Expired\t%d\n", perf.ExpiredTrades)
	fmt.Fprintf(w, "Win rate\t%.1f%%\n", perf.WinRate*100)
	fmt.Fprintf(w, "Total\t%.2fR\n", perf.TotalR)
	fmt.Fprintf(w, "Average\t%.2fR\n", perf.AverageR)
	fmt.Fprintf(w, "Expectancy\t%.2fR\n", perf.Expectancy)
	fmt.Fprintf(w, "Max drawdown\t%.2fR\n", perf.MaxDrawdownR)
	fmt.Fprintf(w, "Win / loss streak\t%d / %d\n", perf.MaxConsecutiveWins, perf.MaxConsecutiveLosses)
	fmt.Fprintf(w, "Average duration\t%s\n", perf.AverageTradeDuration)
	fmt.Fprintf(w, "Demand / supply\t%d / %d\n",
		perf.ByDirection[domain.BuyDemand], perf.ByDirection[domain.SellSupply])

	monthly := perf.GetMonthlyR()
	if len(monthly) == 0 {
		return
	}
	fmt.Fprintln(w, "\n## Monthly")
	for _, m := range monthly {
		fmt.Fprintf(w, "%s\t%.2fR\n", m.Month.Format("2006-01"), m.Return)
	}
}

// parseRanges turns MIN:MAX:STEP flag values into parameter ranges, in a
// fixed parameter order. Empty values are skipped.
func parseRanges(flags map[string]string) ([]optimization.ParameterRange, error) {
	var ranges []optimization.ParameterRange
	for _, name := range []string{optimization.ParamATRPeriod, optimization.ParamWindow, optimization.ParamHorizon} {
		raw := flags[name]
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("sweep %s: want MIN:MAX:STEP, got %q", name, raw)
		}
		var vals [3]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("sweep %s: %w", name, err)
			}
			vals[i] = v
		}
		ranges = append(ranges, optimization.ParameterRange{Name: name, Min: vals[0], Max: vals[1], Step: vals[2]})
	}
	return ranges, nil
}

func printSweep(results []optimization.OptimizationResult, top int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ATR\tWindow\tHorizon\tTrades\tWin rate\tTotal R\tExpectancy\tMax DD\tScore")
	for i, r := range results {
		if i == top {
			break
		}
		p, m := r.Parameters, r.Metrics
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.1f%%\t%.2f\t%.2f\t%.2f\t%.3f\n",
			param(p, optimization.ParamATRPeriod), param(p, optimization.ParamWindow), param(p, optimization.ParamHorizon),
			m.TotalTrades, m.WinRate*100, m.TotalR, m.Expectancy, m.MaxDrawdownR, r.Score)
	}
}

func param(p map[string]float64, name string) string {
	v, ok := p[name]
	if !ok {
		return "-"
	}
	return strconv.Itoa(int(v))
}
