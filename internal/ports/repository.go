package ports

import (
	"context"
	"time"

	"zoneSignalBot/internal/domain"
)

// SignalRepository journals signals emitted by the scanner.
type SignalRepository interface {
	// Save stores a journaled signal. The ID must already be set.
	Save(ctx context.Context, sig *domain.JournaledSignal) error
	// FindLatest returns the most recent signal for symbol/timeframe.
	// Returns nil, nil if none exists.
	FindLatest(ctx context.Context, symbol, timeframe string) (*domain.JournaledSignal, error)
	// FindBySymbol returns the most recent signals for a symbol, newest first.
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.JournaledSignal, error)
	// CountSince counts signals journaled at or after since.
	CountSince(ctx context.Context, since time.Time) (int, error)
	// Ping checks database reachability.
	Ping(ctx context.Context) error
}

// AnalysisCache memoizes analyses by (symbol, timeframe, candle-window hash).
// A miss is reported as nil, nil.
type AnalysisCache interface {
	Get(ctx context.Context, symbol, timeframe, windowHash string) (*domain.Analysis, error)
	Set(ctx context.Context, symbol, timeframe, windowHash string, a *domain.Analysis) error
}

// TradeRepository stores the virtual trades of replay runs.
type TradeRepository interface {
	// SaveTrade stores one trade under the given replay run ID.
	SaveTrade(ctx context.Context, runID string, trade *domain.Trade) error
	// FindTradesByRun returns the trades of a run ordered by entry index.
	FindTradesByRun(ctx context.Context, runID string) ([]*domain.Trade, error)
}
