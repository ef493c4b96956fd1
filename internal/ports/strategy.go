package ports

import (
	"context"

	"zoneSignalBot/internal/domain"
)

// AnalysisRequest is the input of one zone engine invocation.
type AnalysisRequest struct {
	Symbol    string
	Timeframe string
	Market    domain.MarketType // provenance only
	Klines    []*domain.Kline   // oldest first
}

// ZoneAnalyzer turns a candle window into zones and a signal.
type ZoneAnalyzer interface {
	// Analyze is pure given req: identical windows give identical results.
	Analyze(ctx context.Context, req AnalysisRequest) (*domain.Analysis, error)
}
