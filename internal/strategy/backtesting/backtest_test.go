package backtesting

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/ports"
	"zoneSignalBot/internal/strategy/zones"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// mockAnalyzer returns the signal scripted for the index of the window's last candle.
type mockAnalyzer struct {
	required int
	signals  map[int]domain.Signal
	err      error
	windows  []int
}

func (m *mockAnalyzer) RequiredDataPoints() int { return m.required }

func (m *mockAnalyzer) Analyze(ctx context.Context, req ports.AnalysisRequest) (*domain.Analysis, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.windows = append(m.windows, len(req.Klines))
	last := req.Klines[len(req.Klines)-1]
	idx := int(last.OpenTime.Sub(base) / time.Hour)
	sig, ok := m.signals[idx]
	if !ok {
		sig = domain.Wait(domain.ReasonNoActiveZone)
	}
	return &domain.Analysis{Symbol: req.Symbol, Timeframe: req.Timeframe, CurrentPrice: last.Close, Signal: sig}, nil
}

// flatKlines builds n hourly candles around 100 with a 1-point range.
func flatKlines(n int) []*domain.Kline {
	out := make([]*domain.Kline, n)
	for i := range out {
		out[i] = &domain.Kline{
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     100, High: 100.5, Low: 99.5, Close: 100, Volume: 10,
		}
	}
	return out
}

func buy(sl, tp float64) domain.Signal {
	return domain.Signal{Direction: domain.BuyDemand, Strength: 75, Entry: 100, StopLoss: sl, TakeProfit: tp, Reason: domain.ReasonDemandReaction}
}

func sell(sl, tp float64) domain.Signal {
	return domain.Signal{Direction: domain.SellSupply, Strength: 75, Entry: 100, StopLoss: sl, TakeProfit: tp, Reason: domain.ReasonSupplyReaction}
}

func TestReplay_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		signal      domain.Signal
		shape       func(k []*domain.Kline)
		wantOutcome domain.TradeOutcome
		wantExit    float64
		wantExitIdx int
		wantR       float64
	}{
		{
			name:        "buy reaches take-profit",
			signal:      buy(98, 103),
			shape:       func(k []*domain.Kline) { k[15].High = 103.5 },
			wantOutcome: domain.OutcomeTakeProfit,
			wantExit:    103,
			wantExitIdx: 15,
			wantR:       1.5,
		},
		{
			name:        "buy stopped out",
			signal:      buy(98, 103),
			shape:       func(k []*domain.Kline) { k[12].Low = 97.9 },
			wantOutcome: domain.OutcomeStopLoss,
			wantExit:    98,
			wantExitIdx: 12,
			wantR:       -1,
		},
		{
			name:   "stop-loss wins a same-candle tie",
			signal: buy(98, 103),
			shape: func(k []*domain.Kline) {
				k[13].Low = 97
				k[13].High = 104
			},
			wantOutcome: domain.OutcomeStopLoss,
			wantExit:    98,
			wantExitIdx: 13,
			wantR:       -1,
		},
		{
			name:        "sell reaches take-profit",
			signal:      sell(101, 96),
			shape:       func(k []*domain.Kline) { k[14].Low = 95.8 },
			wantOutcome: domain.OutcomeTakeProfit,
			wantExit:    96,
			wantExitIdx: 14,
			wantR:       4,
		},
		{
			name:        "sell stopped out",
			signal:      sell(101, 96),
			shape:       func(k []*domain.Kline) { k[11].High = 101.2 },
			wantOutcome: domain.OutcomeStopLoss,
			wantExit:    101,
			wantExitIdx: 11,
			wantR:       -1,
		},
		{
			name:   "expires after the horizon",
			signal: buy(98, 103),
			shape: func(k []*domain.Kline) {
				k[15].Close = 100.4
			},
			wantOutcome: domain.OutcomeExpired,
			wantExit:    100.4,
			wantExitIdx: 15,
			wantR:       0.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			klines := flatKlines(40)
			tt.shape(klines)
			a := &mockAnalyzer{required: 10, signals: map[int]domain.Signal{9: tt.signal}}

			res, err := Replay(context.Background(), a, klines, ReplayConfig{
				Symbol: "BTCUSDT", Timeframe: "1h", Horizon: 6,
			})
			require.NoError(t, err)
			require.Len(t, res.Trades, 1)
			assert.Nil(t, res.OpenTrade)
			assert.Equal(t, 1, res.Signals)

			tr := res.Trades[0]
			assert.Equal(t, 9, tr.EntryIndex)
			assert.Equal(t, 100.0, tr.EntryPrice)
			assert.Equal(t, tt.wantOutcome, tr.Outcome)
			assert.Equal(t, tt.wantExit, tr.ExitPrice)
			assert.Equal(t, tt.wantExitIdx, tr.ExitIndex)
			assert.Equal(t, klines[tt.wantExitIdx].OpenTime, tr.ExitTime)
			assert.InDelta(t, tt.wantR, tr.RMultiple(), 1e-9)
		})
	}
}

func TestReplay_OneTradeAtATime(t *testing.T) {
	klines := flatKlines(30)
	klines[14].High = 104
	signals := make(map[int]domain.Signal)
	for i := 0; i < 30; i++ {
		signals[i] = buy(98, 103)
	}
	a := &mockAnalyzer{required: 10, signals: signals}

	res, err := Replay(context.Background(), a, klines, ReplayConfig{Timeframe: "1h", Horizon: 100})
	require.NoError(t, err)

	require.Len(t, res.Trades, 1)
	assert.Equal(t, 9, res.Trades[0].EntryIndex)
	assert.Equal(t, 14, res.Trades[0].ExitIndex)

	// Re-entered at the close of the resolving candle, still open at the end.
	require.NotNil(t, res.OpenTrade)
	assert.Equal(t, 14, res.OpenTrade.EntryIndex)

	// Only candles 9 and 14 are analyzed; every other candle is spent holding a trade.
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, 2, res.Signals)
}

func TestReplay_SkipsInconsistentLevels(t *testing.T) {
	klines := flatKlines(20)
	a := &mockAnalyzer{required: 10, signals: map[int]domain.Signal{
		10: buy(100.5, 103),  // stop above entry
		12: sell(101, 100.2), // target above entry
	}}

	res, err := Replay(context.Background(), a, klines, ReplayConfig{Timeframe: "4h"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Signals)
	assert.Equal(t, 2, res.Skipped)
	assert.Empty(t, res.Trades)
	assert.Nil(t, res.OpenTrade)
}

func TestReplay_WindowIsTrailing(t *testing.T) {
	klines := flatKlines(40)
	a := &mockAnalyzer{required: 10}

	res, err := Replay(context.Background(), a, klines, ReplayConfig{Timeframe: "1h", Window: 15})
	require.NoError(t, err)
	assert.Equal(t, 31, res.Steps)
	require.Len(t, a.windows, 31)
	assert.Equal(t, 10, a.windows[0])
	assert.Equal(t, 15, a.windows[len(a.windows)-1])
	for _, w := range a.windows {
		assert.LessOrEqual(t, w, 15)
	}
}

func TestReplay_Errors(t *testing.T) {
	ctx := context.Background()
	analyzerErr := errors.New("boom")

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	tests := []struct {
		name     string
		ctx      context.Context
		analyzer *mockAnalyzer
		klines   []*domain.Kline
		cfg      ReplayConfig
		wantErr  error
	}{
		{
			name: "insufficient data", ctx: ctx,
			analyzer: &mockAnalyzer{required: 10}, klines: flatKlines(10),
			cfg: ReplayConfig{Timeframe: "1h"}, wantErr: ports.ErrInsufficientData,
		},
		{
			name: "window below minimum", ctx: ctx,
			analyzer: &mockAnalyzer{required: 10}, klines: flatKlines(20),
			cfg: ReplayConfig{Timeframe: "1h", Window: 5}, wantErr: ports.ErrInvalidRequest,
		},
		{
			name: "unsupported timeframe", ctx: ctx,
			analyzer: &mockAnalyzer{required: 10}, klines: flatKlines(20),
			cfg: ReplayConfig{Timeframe: "3h"}, wantErr: ports.ErrUnsupportedTimeframe,
		},
		{
			name: "canceled context", ctx: canceled,
			analyzer: &mockAnalyzer{required: 10}, klines: flatKlines(20),
			cfg: ReplayConfig{Timeframe: "1h"}, wantErr: ports.ErrContextCanceled,
		},
		{
			name: "analyzer failure", ctx: ctx,
			analyzer: &mockAnalyzer{required: 10, err: analyzerErr}, klines: flatKlines(20),
			cfg: ReplayConfig{Timeframe: "1h"}, wantErr: analyzerErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Replay(tt.ctx, tt.analyzer, tt.klines, tt.cfg)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, res)
		})
	}
}

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// oscillating builds a ranging market so the zone engine finds repeated
// swing highs and lows.
func oscillating(n int) []*domain.Kline {
	out := make([]*domain.Kline, n)
	for i := range out {
		mid := 100 + 6*math.Sin(float64(i)/5) + 0.8*math.Sin(float64(i)/1.7)
		out[i] = &domain.Kline{
			OpenTime: base.Add(time.Duration(i) * time.Hour),
			Open:     mid - 0.2,
			High:     mid + 0.9,
			Low:      mid - 0.9,
			Close:    mid + 0.2,
			Volume:   100 + 40*math.Abs(math.Cos(float64(i)/3)),
		}
	}
	return out
}

func TestReplay_WithZoneAnalyzer(t *testing.T) {
	analyzer, err := zones.New(zones.Config{}, nopLogger{})
	require.NoError(t, err)
	klines := oscillating(400)

	res, err := Replay(context.Background(), analyzer, klines, ReplayConfig{
		Symbol: "BTCUSDT", Timeframe: "1h", Window: 200,
	})
	require.NoError(t, err)
	assert.Greater(t, res.Steps, 0)
	assert.LessOrEqual(t, res.Skipped, res.Signals)

	prevExit := -1
	for _, tr := range res.Trades {
		assert.Greater(t, tr.ExitIndex, tr.EntryIndex)
		assert.GreaterOrEqual(t, tr.EntryIndex, prevExit, "trades never overlap")
		assert.LessOrEqual(t, tr.ExitIndex-tr.EntryIndex, 48)
		assert.Contains(t, []domain.TradeOutcome{domain.OutcomeTakeProfit, domain.OutcomeStopLoss, domain.OutcomeExpired}, tr.Outcome)
		prevExit = tr.ExitIndex
	}
}
