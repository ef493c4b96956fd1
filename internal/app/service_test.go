package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zoneSignalBot/config"
	"zoneSignalBot/internal/adapters/logger"
	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/metrics"
	"zoneSignalBot/internal/ports"
)

// Mock implementations
type mockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
	runIDs    []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infoMsgs = append(m.infoMsgs, msg)
	m.runIDs = append(m.runIDs, logger.RunID(ctx))
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockProvider struct {
	mu      sync.Mutex
	calls   int
	errs    map[string]error // by symbol
	pingErr error
}

func (m *mockProvider) GetKlines(ctx context.Context, market domain.MarketType, symbol, interval string, limit int) ([]*domain.Kline, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if err := m.errs[symbol]; err != nil {
		return nil, err
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	klines := make([]*domain.Kline, limit)
	for i := range klines {
		price := 100 + float64(i%7)
		klines[i] = &domain.Kline{
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Symbol:   symbol, Interval: interval,
			Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 10,
			IsFinal: true,
		}
	}
	return klines, nil
}

func (m *mockProvider) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockAnalyzer emits a BUY_DEMAND signal for symbols in buy, waits otherwise.
type mockAnalyzer struct {
	mu    sync.Mutex
	calls int
	buy   map[string]float64 // symbol -> entry
	err   error
}

func (m *mockAnalyzer) Analyze(ctx context.Context, req ports.AnalysisRequest) (*domain.Analysis, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	a := &domain.Analysis{
		Symbol:       req.Symbol,
		Timeframe:    req.Timeframe,
		Market:       req.Market,
		CurrentPrice: req.Klines[len(req.Klines)-1].Close,
		Signal:       domain.Wait(domain.ReasonNoActiveZone),
	}
	if entry, ok := m.buy[req.Symbol]; ok {
		zone := domain.Zone{Kind: domain.ZoneDemand, Low: entry - 1, High: entry + 1, Entry: entry, Strength: 80, Valid: true}
		a.ActiveDemand = &zone
		a.Signal = domain.Signal{
			Direction: domain.BuyDemand, Strength: 82, Entry: entry,
			StopLoss: entry - 2, TakeProfit: entry + 6,
			Reason: domain.ReasonDemandReaction, ZoneLow: zone.Low, ZoneHigh: zone.High,
		}
	}
	return a, nil
}

func (m *mockAnalyzer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockSignalRepo struct {
	mu       sync.Mutex
	saved    []*domain.JournaledSignal
	saveErr  error
	findErr  error
	pingErr  error
	findHits int
}

func (m *mockSignalRepo) Save(ctx context.Context, sig *domain.JournaledSignal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, sig)
	return nil
}

func (m *mockSignalRepo) FindLatest(ctx context.Context, symbol, timeframe string) (*domain.JournaledSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findHits++
	if m.findErr != nil {
		return nil, m.findErr
	}
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Symbol == symbol && m.saved[i].Timeframe == timeframe {
			return m.saved[i], nil
		}
	}
	return nil, nil
}

func (m *mockSignalRepo) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.JournaledSignal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.JournaledSignal
	for i := len(m.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if m.saved[i].Symbol == symbol {
			out = append(out, m.saved[i])
		}
	}
	return out, nil
}

func (m *mockSignalRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	return len(m.saved), nil
}

func (m *mockSignalRepo) Ping(ctx context.Context) error { return m.pingErr }

func (m *mockSignalRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

type mockCache struct {
	mu     sync.Mutex
	items  map[string]*domain.Analysis
	getErr error
	setErr error
	sets   int
}

func newMockCache() *mockCache {
	return &mockCache{items: make(map[string]*domain.Analysis)}
}

func (m *mockCache) Get(ctx context.Context, symbol, timeframe, windowHash string) (*domain.Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.items[symbol+"|"+timeframe+"|"+windowHash], nil
}

func (m *mockCache) Set(ctx context.Context, symbol, timeframe, windowHash string, a *domain.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.items[symbol+"|"+timeframe+"|"+windowHash] = a
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Market:       domain.MarketFutures,
		Symbols:      []string{"BTCUSDT", "ETHUSDT"},
		Timeframes:   []string{"1h", "4h"},
		CandleLimit:  60,
		ScanInterval: 20 * time.Millisecond,
		ScanWorkers:  2,
	}
}

type fixture struct {
	svc      *ScannerService
	logger   *mockLogger
	provider *mockProvider
	analyzer *mockAnalyzer
	repo     *mockSignalRepo
	cache    *mockCache
	metrics  *metrics.Metrics
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	f := &fixture{
		logger:   &mockLogger{},
		provider: &mockProvider{errs: map[string]error{}},
		analyzer: &mockAnalyzer{buy: map[string]float64{"BTCUSDT": 42000}},
		repo:     &mockSignalRepo{},
		cache:    newMockCache(),
		metrics:  metrics.NewMetrics(prometheus.NewRegistry()),
	}
	svc, err := NewScannerService(cfg, f.logger, f.provider, f.analyzer, f.repo, f.cache, f.metrics)
	require.NoError(t, err)
	seq := 0
	var mu sync.Mutex
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("id-%d", seq)
	}
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	f.svc = svc
	return f
}

func TestNewScannerService(t *testing.T) {
	valid := testConfig()
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		nilDeps  bool
		wantErr  bool
		nilCache bool
	}{
		{name: "valid"},
		{name: "valid without cache", nilCache: true},
		{name: "missing dependencies", nilDeps: true, wantErr: true},
		{name: "no symbols", mutate: func(c *config.Config) { c.Symbols = nil }, wantErr: true},
		{name: "no timeframes", mutate: func(c *config.Config) { c.Timeframes = nil }, wantErr: true},
		{name: "zero limit", mutate: func(c *config.Config) { c.CandleLimit = 0 }, wantErr: true},
		{name: "zero workers", mutate: func(c *config.Config) { c.ScanWorkers = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *valid
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			var provider ports.KlineProvider = &mockProvider{}
			if tt.nilDeps {
				provider = nil
			}
			var cache ports.AnalysisCache = newMockCache()
			if tt.nilCache {
				cache = nil
			}
			svc, err := NewScannerService(&cfg, &mockLogger{}, provider, &mockAnalyzer{}, &mockSignalRepo{}, cache, nil)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestScanOnce_JournalsActionableSignals(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	report, err := f.svc.ScanOnce(ctx)
	require.NoError(t, err)
	require.Len(t, report.Results, 4)

	order := []string{"BTCUSDT/1h", "BTCUSDT/4h", "ETHUSDT/1h", "ETHUSDT/4h"}
	for i, res := range report.Results {
		assert.Equal(t, order[i], res.Symbol+"/"+res.Timeframe)
		assert.NoError(t, res.Err)
		require.NotNil(t, res.Analysis)
	}
	assert.True(t, report.Results[0].Journaled)
	assert.True(t, report.Results[1].Journaled)
	assert.False(t, report.Results[2].Journaled)

	journaled, duplicates, failed := report.Counts()
	assert.Equal(t, 2, journaled)
	assert.Equal(t, 0, duplicates)
	assert.Equal(t, 0, failed)

	require.Equal(t, 2, f.repo.count())
	for _, js := range f.repo.saved {
		assert.Equal(t, report.RunID, js.RunID)
		assert.NotEqual(t, report.RunID, js.ID)
		assert.Equal(t, domain.MarketFutures, js.Market)
		assert.Equal(t, 42000.0, js.Signal.Entry)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.SignalsTotal.WithLabelValues("1h", "BUY_DEMAND"))+
		testutil.ToFloat64(f.metrics.SignalsTotal.WithLabelValues("4h", "BUY_DEMAND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ScansTotal))
	assert.Equal(t, 80.0, testutil.ToFloat64(f.metrics.ActiveZoneGauge.WithLabelValues("BTCUSDT", "1h", "DEMAND")))
	assert.Contains(t, f.logger.infoMsgs, "Scan completed")
	assert.Contains(t, f.logger.runIDs, report.RunID)
}

func TestScanOnce_SkipsRepeatedSignals(t *testing.T) {
	cfg := testConfig()
	cfg.Symbols = []string{"BTCUSDT"}
	cfg.Timeframes = []string{"1h"}
	f := newFixture(t, cfg)
	ctx := context.Background()

	_, err := f.svc.ScanOnce(ctx)
	require.NoError(t, err)
	report, err := f.svc.ScanOnce(ctx)
	require.NoError(t, err)

	assert.True(t, report.Results[0].Duplicate)
	assert.False(t, report.Results[0].Journaled)
	assert.Equal(t, 1, f.repo.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DuplicateSkips))

	// A moved entry is a new setup.
	f.analyzer.buy["BTCUSDT"] = 41500
	f.cache.items = map[string]*domain.Analysis{}
	report, err = f.svc.ScanOnce(ctx)
	require.NoError(t, err)
	assert.True(t, report.Results[0].Journaled)
	assert.Equal(t, 2, f.repo.count())
}

func TestScanOnce_FailedPairDoesNotAbortOthers(t *testing.T) {
	cfg := testConfig()
	cfg.Symbols = []string{"BADUSDT", "BTCUSDT"}
	f := newFixture(t, cfg)
	f.provider.errs["BADUSDT"] = fmt.Errorf("fetch: %w", ports.ErrUnknownSymbol)

	report, err := f.svc.ScanOnce(context.Background())
	require.NoError(t, err)

	_, _, failed := report.Counts()
	assert.Equal(t, 2, failed)
	assert.ErrorIs(t, report.Results[0].Err, ports.ErrUnknownSymbol)
	assert.True(t, report.Results[2].Journaled)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.ErrorsTotal.WithLabelValues(metrics.StageFetch)))
	assert.Len(t, f.logger.warnMsgs, 2)
}

func TestScanOnce_JournalErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mockSignalRepo)
	}{
		{name: "find latest fails", setup: func(r *mockSignalRepo) { r.findErr = ports.ErrQueryFailed }},
		{name: "save fails", setup: func(r *mockSignalRepo) { r.saveErr = ports.ErrQueryFailed }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Symbols = []string{"BTCUSDT"}
			cfg.Timeframes = []string{"1h"}
			f := newFixture(t, cfg)
			tt.setup(f.repo)

			report, err := f.svc.ScanOnce(context.Background())
			require.NoError(t, err)
			assert.ErrorIs(t, report.Results[0].Err, ports.ErrQueryFailed)
			assert.NotNil(t, report.Results[0].Analysis)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ErrorsTotal.WithLabelValues(metrics.StageJournal)))
			assert.Contains(t, f.logger.errorMsgs, "Failed to journal signal")
		})
	}
}

func TestScanOnce_CanceledContext(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.svc.ScanOnce(ctx)
	assert.ErrorIs(t, err, ports.ErrContextCanceled)
	require.NotNil(t, report)
	assert.Len(t, report.Results, 4)
}

func TestAnalyzeSymbol(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported timeframe skips provider", func(t *testing.T) {
		f := newFixture(t, testConfig())
		_, err := f.svc.AnalyzeSymbol(ctx, domain.MarketSpot, "BTCUSDT", "2h", 100)
		assert.ErrorIs(t, err, ports.ErrUnsupportedTimeframe)
		assert.Equal(t, 0, f.provider.callCount())
	})

	t.Run("unsupported market", func(t *testing.T) {
		f := newFixture(t, testConfig())
		_, err := f.svc.AnalyzeSymbol(ctx, domain.MarketType("margin"), "BTCUSDT", "1h", 100)
		assert.ErrorIs(t, err, ports.ErrUnsupportedMarket)
	})

	t.Run("empty market uses configured market", func(t *testing.T) {
		f := newFixture(t, testConfig())
		a, err := f.svc.AnalyzeSymbol(ctx, "", "ETHUSDT", "1h", 100)
		require.NoError(t, err)
		assert.Equal(t, domain.MarketFutures, a.Market)
	})

	t.Run("provider error is wrapped", func(t *testing.T) {
		f := newFixture(t, testConfig())
		f.provider.errs["BTCUSDT"] = ports.ErrRateLimited
		_, err := f.svc.AnalyzeSymbol(ctx, domain.MarketSpot, "BTCUSDT", "1h", 100)
		assert.ErrorIs(t, err, ports.ErrRateLimited)
		assert.Equal(t, 0, f.analyzer.callCount())
	})

	t.Run("analyzer error is wrapped", func(t *testing.T) {
		f := newFixture(t, testConfig())
		f.analyzer.err = fmt.Errorf("%w: need 50", ports.ErrInsufficientData)
		_, err := f.svc.AnalyzeSymbol(ctx, domain.MarketSpot, "BTCUSDT", "1h", 100)
		assert.ErrorIs(t, err, ports.ErrInsufficientData)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ErrorsTotal.WithLabelValues(metrics.StageAnalyze)))
	})

	t.Run("repeated window is served from cache", func(t *testing.T) {
		f := newFixture(t, testConfig())
		first, err := f.svc.AnalyzeSymbol(ctx, domain.MarketSpot, "BTCUSDT", "1h", 100)
		require.NoError(t, err)
		second, err := f.svc.AnalyzeSymbol(ctx, domain.MarketSpot, "BTCUSDT", "1h", 100)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 1, f.analyzer.callCount())
		assert.Equal(t, 1, f.cache.sets)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheHits))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheMisses))

		// Same candles from the other market are a different window.
		_, err = f.svc.AnalyzeSymbol(ctx, domain.MarketFutures, "BTCUSDT", "1h", 100)
		require.NoError(t, err)
		assert.Equal(t, 2, f.analyzer.callCount())
	})

	t.Run("cache failures fall through", func(t *testing.T) {
		f := newFixture(t, testConfig())
		f.cache.getErr = ports.ErrCacheFailed
		f.cache.setErr = ports.ErrCacheFailed
		a, err := f.svc.AnalyzeSymbol(ctx, domain.MarketSpot, "BTCUSDT", "1h", 100)
		require.NoError(t, err)
		assert.NotNil(t, a)
		assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.ErrorsTotal.WithLabelValues(metrics.StageCache)))
		assert.Len(t, f.logger.warnMsgs, 2)
	})

	t.Run("works without cache", func(t *testing.T) {
		svc, err := NewScannerService(testConfig(), &mockLogger{}, &mockProvider{}, &mockAnalyzer{}, &mockSignalRepo{}, nil, nil)
		require.NoError(t, err)
		a, err := svc.AnalyzeSymbol(ctx, domain.MarketSpot, "BTCUSDT", "1h", 100)
		require.NoError(t, err)
		assert.Equal(t, domain.DirectionNone, a.Signal.Direction)
	})
}

func TestStart_StopsOnCancel(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.svc.Start(ctx) }()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(f.metrics.ScansTotal) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStart_RequiresInterval(t *testing.T) {
	cfg := testConfig()
	cfg.ScanInterval = 0
	f := newFixture(t, cfg)
	assert.Error(t, f.svc.Start(context.Background()))
}

func TestHealth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	assert.NoError(t, f.svc.Health(ctx))

	f.provider.pingErr = ports.ErrConnectionFailed
	assert.ErrorIs(t, f.svc.Health(ctx), ports.ErrConnectionFailed)

	f.provider.pingErr = nil
	f.repo.pingErr = ports.ErrDBConnection
	assert.ErrorIs(t, f.svc.Health(ctx), ports.ErrDBConnection)
}

func TestRecentSignals(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()
	_, err := f.svc.ScanOnce(ctx)
	require.NoError(t, err)

	sigs, err := f.svc.RecentSignals(ctx, "BTCUSDT", 1)
	require.NoError(t, err)
	assert.Len(t, sigs, 1)

	sigs, err = f.svc.RecentSignals(ctx, "ETHUSDT", 10)
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

func TestSameSetup(t *testing.T) {
	buy := domain.Signal{Direction: domain.BuyDemand, Entry: 100.25}
	tests := []struct {
		name string
		b    domain.Signal
		want bool
	}{
		{name: "identical", b: buy, want: true},
		{name: "float noise", b: domain.Signal{Direction: domain.BuyDemand, Entry: 100.25 + 1e-12}, want: true},
		{name: "other entry", b: domain.Signal{Direction: domain.BuyDemand, Entry: 100.5}, want: false},
		{name: "other direction", b: domain.Signal{Direction: domain.SellSupply, Entry: 100.25}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sameSetup(buy, tt.b))
		})
	}
}

