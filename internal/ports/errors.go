package ports

import "errors"

// Standard application-level errors.
// Adapters and the zone engine wrap their failures with these so callers can
// match them with errors.Is.
var (
	// Candle window errors, raised before any zone computation.
	ErrInsufficientData     = errors.New("insufficient candle data")
	ErrMalformedCandle      = errors.New("malformed candle")
	ErrUnsupportedTimeframe = errors.New("unsupported timeframe")
	ErrUnsupportedMarket    = errors.New("unsupported market type")

	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Kline provider errors
	ErrExchangeUnavailable  = errors.New("exchange API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the exchange")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("exchange authentication failed (check API keys)")
	ErrUnknownSymbol        = errors.New("symbol not listed on the exchange")

	// Storage errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrCacheFailed  = errors.New("analysis cache operation failed")
)
