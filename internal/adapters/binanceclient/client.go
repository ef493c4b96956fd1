package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"

	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/ports"
)

const (
	// Base URLs
	futuresURLProduction = "https://fapi.binance.com"
	futuresURLTestnet    = "https://testnet.binancefuture.com"
	spotURLProduction    = "https://api.binance.com"
	spotURLTestnet       = "https://testnet.binance.vision"

	maxRetryDelay = 30 * time.Second
)

// Client implements ports.KlineProvider over Binance spot and USDT-M futures REST.
type Client struct {
	spotClient           *binance.Client
	futuresClient        *futures.Client
	logger               ports.Logger
	reconnectDelay       time.Duration
	maxReconnectAttempts int
	ratePerSecond        float64
	now                  func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var _ ports.KlineProvider = (*Client)(nil)

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey               string
	SecretKey            string
	UseTestnet           bool
	Logger               ports.Logger
	ReconnectDelay       time.Duration // First retry delay; doubles up to 30s
	MaxReconnectAttempts int           // Retries after the first attempt
	RatePerSecond        float64       // Per-symbol request rate

	// Optional overrides of the REST endpoints.
	SpotBaseURL    string
	FuturesBaseURL string
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Debug(context.Background(), "APIKey or SecretKey is empty, using public endpoints only")
	}

	spotClient := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	futuresClient := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using the global UseTestnet flags
	if cfg.UseTestnet {
		spotClient.BaseURL = spotURLTestnet
		futuresClient.BaseURL = futuresURLTestnet
	} else {
		spotClient.BaseURL = spotURLProduction
		futuresClient.BaseURL = futuresURLProduction
	}
	if cfg.SpotBaseURL != "" {
		spotClient.BaseURL = cfg.SpotBaseURL
	}
	if cfg.FuturesBaseURL != "" {
		futuresClient.BaseURL = cfg.FuturesBaseURL
	}
	cfg.Logger.Info(context.Background(), "Binance kline provider configured", map[string]interface{}{
		"spotURL":    spotClient.BaseURL,
		"futuresURL": futuresClient.BaseURL,
		"testnet":    cfg.UseTestnet,
	})

	// Default reconnect settings if not provided
	reconnectDelay := cfg.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = 1 * time.Second
	}
	maxAttempts := cfg.MaxReconnectAttempts
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	ratePerSecond := cfg.RatePerSecond
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}

	return &Client{
		spotClient:           spotClient,
		futuresClient:        futuresClient,
		logger:               cfg.Logger,
		reconnectDelay:       reconnectDelay,
		maxReconnectAttempts: maxAttempts,
		ratePerSecond:        ratePerSecond,
		now:                  time.Now,
		limiters:             make(map[string]*rate.Limiter),
	}, nil
}

// limiter returns the request limiter of a symbol, creating it on first use.
func (c *Client) limiter(symbol string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[symbol]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.ratePerSecond), 1)
		c.limiters[symbol] = l
	}
	return l
}

// withRetry runs call until it succeeds, fails with a non-retryable error, or
// exhausts maxReconnectAttempts. Every attempt waits for the symbol limiter.
func (c *Client) withRetry(ctx context.Context, op, symbol string, call func(ctx context.Context) error) error {
	b := &backoff.Backoff{Min: c.reconnectDelay, Max: maxRetryDelay, Factor: 2, Jitter: true}
	limiter := c.limiter(symbol)

	for attempt := 0; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s rate limiter wait: %w: %w", op, ports.ErrContextCanceled, err)
		}

		err := call(ctx)
		if err == nil {
			return nil
		}
		mapped := c.handleError(ctx, err, op)
		if !retryable(mapped) || attempt >= c.maxReconnectAttempts || ctx.Err() != nil {
			return mapped
		}

		delay := b.Duration()
		c.logger.Warn(ctx, "Retrying Binance request", map[string]interface{}{
			"operation": op,
			"symbol":    symbol,
			"attempt":   attempt + 1,
			"delay":     delay.String(),
		})
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s operation canceled: %w: %w", op, ports.ErrContextCanceled, ctx.Err())
		case <-time.After(delay):
		}
	}
}

func retryable(err error) bool {
	return errors.Is(err, ports.ErrRateLimited) ||
		errors.Is(err, ports.ErrConnectionFailed) ||
		errors.Is(err, ports.ErrExchangeUnavailable)
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		// Map specific Binance error codes to custom errors
		var mappedErr error
		switch apiErr.Code {
		case 0, -1000, -1001, -1006, -1007, -1008: // Unknown/internal errors, disconnected, overloaded
			mappedErr = ports.ErrExchangeUnavailable
		case -1003, -1015: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022, -2014, -2015: // Signature or API-key invalid
			mappedErr = ports.ErrAuthenticationFailed
		case -1121: // Invalid symbol
			mappedErr = ports.ErrUnknownSymbol
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1125, -1127, -1128, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		default:
			// General classification for unmapped API errors
			mappedErr = ports.ErrUnknown
		}
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") ||
		strings.Contains(err.Error(), "EOF") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		// Default for other errors (e.g., parsing errors within the adapter)
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Ping checks the connectivity to both the spot and futures APIs.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	if err := c.spotClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("spot ping failed: %w", err), op)
	}
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("futures ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

func validateMarket(market domain.MarketType) error {
	if _, ok := domain.ParseMarketType(string(market)); !ok {
		return fmt.Errorf("%w: %q", ports.ErrUnsupportedMarket, market)
	}
	return nil
}
