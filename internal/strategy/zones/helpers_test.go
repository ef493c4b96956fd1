package zones

import (
	"context"
	"math"
	"math/rand"
	"time"

	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/ports"
)

type mockLogger struct {
	debugMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// pathBuilder appends candles whose open is the previous close and whose
// high/low extend the body by a wick.
type pathBuilder struct {
	klines []*domain.Kline
}

func (p *pathBuilder) add(close, volume, wick float64) {
	open := close
	if n := len(p.klines); n > 0 {
		open = p.klines[n-1].Close
	}
	i := len(p.klines)
	p.klines = append(p.klines, &domain.Kline{
		OpenTime:  baseTime.Add(time.Duration(i) * time.Hour),
		CloseTime: baseTime.Add(time.Duration(i+1)*time.Hour - time.Millisecond),
		Symbol:    "TESTUSDT",
		Interval:  "1h",
		Open:      open,
		High:      math.Max(open, close) + wick,
		Low:       math.Min(open, close) - wick,
		Close:     close,
		Volume:    volume,
		IsFinal:   true,
	})
}

func (p *pathBuilder) addAll(volume, wick float64, closes ...float64) {
	for _, c := range closes {
		p.add(c, volume, wick)
	}
}

func (p *pathBuilder) repeat(n int, close, volume, wick float64) {
	for i := 0; i < n; i++ {
		p.add(close, volume, wick)
	}
}

// swingLowBreakout is a 100-candle series drifting down into a swing low of
// 100.0 at index 60, breaking out on 1.6x volume, then holding flat at 120.
func swingLowBreakout() []*domain.Kline {
	var p pathBuilder
	for i := 0; i < 60; i++ {
		p.add(115-float64(i)*0.24, 100, 0.2)
	}
	p.add(100.5, 160, 0.5) // low 100.0
	for k := 1; k <= 10; k++ {
		vol := 100.0
		if k <= 3 {
			vol = 160
		}
		p.add(100.5+float64(k)*1.95, vol, 0.2)
	}
	p.repeat(29, 120, 100, 0.3)
	return p.klines
}

// doubleBottomRetest builds two high-volume swing lows near 100.5 (indices 50
// and 70), a plateau at 108, then a sharp drop and rebound so the last close
// sits back inside the demand zone with bullish 3-candle momentum. The last
// candle has a fixed range so ATR does not depend on lastClose.
func doubleBottomRetest(lastClose float64) []*domain.Kline {
	var p pathBuilder
	p.repeat(44, 108, 100, 0.3)
	p.addAll(100, 0.3, 107, 106, 105, 104, 103, 102)
	p.add(101, 200, 0.6) // 50
	p.addAll(100, 0.3, 102.5, 104, 105.5, 107, 108, 108, 108)
	p.repeat(7, 108, 100, 0.3)
	p.addAll(100, 0.3, 106.8, 105.6, 104.4, 103.2, 102)
	p.add(101.2, 200, 0.6) // 70
	p.addAll(100, 0.3, 102.5, 104, 105.5, 107, 108, 108, 108)
	p.repeat(17, 108, 100, 0.3)
	p.addAll(100, 0.3, 105, 101.5, 98, 99.5)
	p.add(lastClose, 100, 0)

	last := p.klines[len(p.klines)-1]
	last.High, last.Low = 102.0, 99.2
	return p.klines
}

// mirror reflects every price around axis/2, turning demand into supply.
func mirror(klines []*domain.Kline, axis float64) []*domain.Kline {
	out := make([]*domain.Kline, len(klines))
	for i, k := range klines {
		m := *k
		m.Open = axis - k.Open
		m.Close = axis - k.Close
		m.High = axis - k.Low
		m.Low = axis - k.High
		out[i] = &m
	}
	return out
}

// randomWalk produces a valid OHLCV series from a seeded generator.
func randomWalk(seed int64, n int) []*domain.Kline {
	rng := rand.New(rand.NewSource(seed))
	klines := make([]*domain.Kline, n)
	price := 100 + rng.Float64()*900
	for i := 0; i < n; i++ {
		open := price
		price *= 1 + rng.NormFloat64()*0.012
		if price < 1 {
			price = 1
		}
		high := math.Max(open, price) * (1 + rng.Float64()*0.006)
		low := math.Min(open, price) * (1 - rng.Float64()*0.006)
		klines[i] = &domain.Kline{
			OpenTime: baseTime.Add(time.Duration(i) * time.Hour),
			Symbol:   "RNDUSDT",
			Interval: "1h",
			Open:     open,
			High:     high,
			Low:      low,
			Close:    price,
			Volume:   50 + rng.Float64()*300,
			IsFinal:  true,
		}
	}
	return klines
}

func request(klines []*domain.Kline) ports.AnalysisRequest {
	return ports.AnalysisRequest{Symbol: "TESTUSDT", Timeframe: "1h", Market: domain.MarketFutures, Klines: klines}
}
