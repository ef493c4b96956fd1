package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"zoneSignalBot/config"
	"zoneSignalBot/internal/adapters/logger"
	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/metrics"
	"zoneSignalBot/internal/ports"
	"zoneSignalBot/internal/utils"
)

// ScannerService runs the zone engine over the configured symbols and
// timeframes, journals actionable signals and serves on-demand analyses.
type ScannerService struct {
	cfg      *config.Config
	logger   ports.Logger
	provider ports.KlineProvider
	analyzer ports.ZoneAnalyzer
	signals  ports.SignalRepository
	cache    ports.AnalysisCache // optional
	metrics  *metrics.Metrics    // optional

	now   func() time.Time
	newID func() string
}

// PairResult is the outcome of scanning one symbol/timeframe pair.
type PairResult struct {
	Symbol    string
	Timeframe string
	Analysis  *domain.Analysis
	Journaled bool // a new signal was stored
	Duplicate bool // the signal repeated the latest journaled one
	Err       error
}

// ScanReport summarises one scan run.
type ScanReport struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Results  []PairResult // in config order: symbols outer, timeframes inner
}

// Counts returns the number of journaled signals, skipped duplicates and failed pairs.
func (r *ScanReport) Counts() (journaled, duplicates, failed int) {
	for _, res := range r.Results {
		switch {
		case res.Err != nil:
			failed++
		case res.Journaled:
			journaled++
		case res.Duplicate:
			duplicates++
		}
	}
	return journaled, duplicates, failed
}

// NewScannerService creates a new application service instance. cache and m may be nil.
func NewScannerService(
	cfg *config.Config,
	logger ports.Logger,
	provider ports.KlineProvider,
	analyzer ports.ZoneAnalyzer,
	signals ports.SignalRepository,
	cache ports.AnalysisCache,
	m *metrics.Metrics,
) (*ScannerService, error) {
	if cfg == nil || logger == nil || provider == nil || analyzer == nil || signals == nil {
		return nil, fmt.Errorf("missing required dependencies for ScannerService")
	}
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("configuration Symbols must not be empty")
	}
	if len(cfg.Timeframes) == 0 {
		return nil, fmt.Errorf("configuration Timeframes must not be empty")
	}
	if cfg.CandleLimit <= 0 {
		return nil, fmt.Errorf("configuration CandleLimit must be positive")
	}
	if cfg.ScanWorkers <= 0 {
		return nil, fmt.Errorf("configuration ScanWorkers must be positive")
	}

	return &ScannerService{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		analyzer: analyzer,
		signals:  signals,
		cache:    cache,
		metrics:  m,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// Start runs a scan immediately and then every cfg.ScanInterval until ctx is
// canceled or the process receives SIGINT/SIGTERM.
func (s *ScannerService) Start(ctx context.Context) error {
	if s.cfg.ScanInterval <= 0 {
		return fmt.Errorf("configuration ScanInterval must be positive")
	}
	s.logger.Info(ctx, "Starting Scanner Service...", map[string]interface{}{
		"symbols":    s.cfg.Symbols,
		"timeframes": s.cfg.Timeframes,
		"interval":   s.cfg.ScanInterval.String(),
		"workers":    s.cfg.ScanWorkers,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		if _, err := s.ScanOnce(ctx); err != nil && !errors.Is(err, ports.ErrContextCanceled) {
			s.logger.Error(ctx, err, "Scan run failed")
		}
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Scanner Service stopped.")
			return nil
		case <-ticker.C:
		}
	}
}

// ScanOnce analyzes every configured pair once. A failing pair is logged,
// counted and reported in its PairResult without aborting the others.
func (s *ScannerService) ScanOnce(ctx context.Context) (*ScanReport, error) {
	report := &ScanReport{RunID: s.newID(), Started: s.now()}
	ctx = logger.WithRunID(ctx, report.RunID)

	type pair struct{ symbol, timeframe string }
	pairs := make([]pair, 0, len(s.cfg.Symbols)*len(s.cfg.Timeframes))
	for _, sym := range s.cfg.Symbols {
		for _, tf := range s.cfg.Timeframes {
			pairs = append(pairs, pair{sym, tf})
		}
	}
	report.Results = make([]PairResult, len(pairs))

	var g errgroup.Group
	g.SetLimit(s.cfg.ScanWorkers)
	for i, p := range pairs {
		g.Go(func() error {
			report.Results[i] = s.scanPair(ctx, report.RunID, p.symbol, p.timeframe)
			return nil
		})
	}
	_ = g.Wait()

	report.Finished = s.now()
	s.metrics.ObserveScan(report.Started, report.Finished)

	journaled, duplicates, failed := report.Counts()
	s.logger.Info(ctx, "Scan completed", map[string]interface{}{
		"pairs":      len(pairs),
		"signals":    journaled,
		"duplicates": duplicates,
		"failed":     failed,
		"durationMs": report.Finished.Sub(report.Started).Milliseconds(),
	})

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("scan interrupted: %w: %v", ports.ErrContextCanceled, err)
	}
	return report, nil
}

func (s *ScannerService) scanPair(ctx context.Context, runID, symbol, timeframe string) PairResult {
	res := PairResult{Symbol: symbol, Timeframe: timeframe}

	a, err := s.AnalyzeSymbol(ctx, s.cfg.Market, symbol, timeframe, s.cfg.CandleLimit)
	if err != nil {
		res.Err = err
		s.logger.Warn(ctx, "Pair analysis failed", map[string]interface{}{
			"symbol": symbol, "timeframe": timeframe, "error": err.Error(),
		})
		return res
	}
	res.Analysis = a
	s.publishActiveZones(a)

	if !a.Signal.Actionable() {
		s.logger.Debug(ctx, "No signal", map[string]interface{}{
			"symbol": symbol, "timeframe": timeframe, "reason": a.Signal.Reason,
		})
		return res
	}

	res.Journaled, res.Duplicate, res.Err = s.journal(ctx, runID, a)
	if res.Err != nil {
		s.logger.Error(ctx, res.Err, "Failed to journal signal", map[string]interface{}{
			"symbol": symbol, "timeframe": timeframe,
		})
	}
	return res
}

// AnalyzeSymbol fetches the latest limit closed candles and runs the engine,
// serving repeated windows from the cache when one is configured.
func (s *ScannerService) AnalyzeSymbol(ctx context.Context, market domain.MarketType, symbol, timeframe string, limit int) (*domain.Analysis, error) {
	if _, ok := domain.ValidityHorizon(timeframe); !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrUnsupportedTimeframe, timeframe)
	}
	if market == "" {
		market = s.cfg.Market
	}
	if _, ok := domain.ParseMarketType(string(market)); !ok {
		return nil, fmt.Errorf("%w: %q", ports.ErrUnsupportedMarket, market)
	}

	klines, err := s.provider.GetKlines(ctx, market, symbol, timeframe, limit)
	if err != nil {
		s.metrics.IncError(metrics.StageFetch)
		return nil, fmt.Errorf("failed to fetch klines for %s %s: %w", symbol, timeframe, err)
	}

	windowKey := string(market) + "-" + strconv.FormatUint(utils.WindowHash(klines), 16)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, symbol, timeframe, windowKey)
		if err != nil {
			s.metrics.IncError(metrics.StageCache)
			s.logger.Warn(ctx, "Analysis cache read failed", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		} else if cached != nil {
			s.metrics.IncCache(true)
			return cached, nil
		} else {
			s.metrics.IncCache(false)
		}
	}

	started := time.Now()
	a, err := s.analyzer.Analyze(ctx, ports.AnalysisRequest{
		Symbol:    symbol,
		Timeframe: timeframe,
		Market:    market,
		Klines:    klines,
	})
	s.metrics.ObserveAnalysis(timeframe, time.Since(started))
	if err != nil {
		s.metrics.IncError(metrics.StageAnalyze)
		return nil, fmt.Errorf("zone analysis failed for %s %s: %w", symbol, timeframe, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, symbol, timeframe, windowKey, a); err != nil {
			s.metrics.IncError(metrics.StageCache)
			s.logger.Warn(ctx, "Analysis cache write failed", map[string]interface{}{"symbol": symbol, "error": err.Error()})
		}
	}
	return a, nil
}

// journal stores the analysis signal unless it repeats the latest one for the pair.
func (s *ScannerService) journal(ctx context.Context, runID string, a *domain.Analysis) (journaled, duplicate bool, err error) {
	latest, err := s.signals.FindLatest(ctx, a.Symbol, a.Timeframe)
	if err != nil {
		s.metrics.IncError(metrics.StageJournal)
		return false, false, fmt.Errorf("failed to load latest signal: %w", err)
	}
	if latest != nil && sameSetup(latest.Signal, a.Signal) {
		s.metrics.IncDuplicate()
		s.logger.Debug(ctx, "Skipping repeated signal", map[string]interface{}{
			"symbol": a.Symbol, "timeframe": a.Timeframe, "previousID": latest.ID,
		})
		return false, true, nil
	}

	js := &domain.JournaledSignal{
		ID:        s.newID(),
		RunID:     runID,
		Symbol:    a.Symbol,
		Timeframe: a.Timeframe,
		Market:    a.Market,
		Signal:    a.Signal,
		Price:     a.CurrentPrice,
		CreatedAt: s.now(),
	}
	if err := s.signals.Save(ctx, js); err != nil {
		s.metrics.IncError(metrics.StageJournal)
		return false, false, fmt.Errorf("failed to save signal: %w", err)
	}
	s.metrics.IncSignal(a.Timeframe, string(a.Signal.Direction))
	s.logger.Info(ctx, "Signal journaled", map[string]interface{}{
		"signalID":   js.ID,
		"symbol":     a.Symbol,
		"timeframe":  a.Timeframe,
		"direction":  a.Signal.Direction,
		"strength":   a.Signal.Strength,
		"entry":      a.Signal.Entry,
		"stopLoss":   a.Signal.StopLoss,
		"takeProfit": a.Signal.TakeProfit,
	})
	return true, false, nil
}

func (s *ScannerService) publishActiveZones(a *domain.Analysis) {
	demand, supply := 0.0, 0.0
	if a.ActiveDemand != nil {
		demand = a.ActiveDemand.Strength
	}
	if a.ActiveSupply != nil {
		supply = a.ActiveSupply.Strength
	}
	s.metrics.SetActiveZone(a.Symbol, a.Timeframe, domain.ZoneDemand.String(), demand)
	s.metrics.SetActiveZone(a.Symbol, a.Timeframe, domain.ZoneSupply.String(), supply)
}

// RecentSignals returns the latest journaled signals for a symbol.
func (s *ScannerService) RecentSignals(ctx context.Context, symbol string, limit int) ([]*domain.JournaledSignal, error) {
	return s.signals.FindBySymbol(ctx, symbol, limit)
}

// Health pings the kline provider and the journal.
func (s *ScannerService) Health(ctx context.Context) error {
	if err := s.provider.Ping(ctx); err != nil {
		return fmt.Errorf("provider unhealthy: %w", err)
	}
	if err := s.signals.Ping(ctx); err != nil {
		return fmt.Errorf("journal unhealthy: %w", err)
	}
	return nil
}

// sameSetup reports whether two signals describe the same trade.
func sameSetup(a, b domain.Signal) bool {
	if a.Direction != b.Direction {
		return false
	}
	scale := math.Max(math.Abs(a.Entry), math.Abs(b.Entry))
	return math.Abs(a.Entry-b.Entry) <= 1e-9*math.Max(scale, 1)
}
