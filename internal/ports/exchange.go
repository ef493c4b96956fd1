package ports

import (
	"context"

	"zoneSignalBot/internal/domain"
)

// KlineProvider is the only data collaborator of the zone engine.
// Implementations own fetching, retries, fallback and rate limiting; the engine
// only ever sees the returned window.
type KlineProvider interface {
	// GetKlines returns up to limit closed klines for symbol/interval, oldest first.
	GetKlines(ctx context.Context, market domain.MarketType, symbol, interval string, limit int) ([]*domain.Kline, error)

	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error
}
