package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"

	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/ports"
)

// Per-request kline caps of the Binance REST API.
const (
	maxSpotLimit    = 1000
	maxFuturesLimit = 1500
)

// rawKline is the common subset of binance.Kline and futures.Kline.
type rawKline struct {
	OpenTime  int64
	CloseTime int64
	Open      string
	High      string
	Low       string
	Close     string
	Volume    string
}

func maxLimit(market domain.MarketType) int {
	if market == domain.MarketSpot {
		return maxSpotLimit
	}
	return maxFuturesLimit
}

// GetKlines retrieves the last limit closed klines for symbol/interval, oldest
// first. The in-progress candle Binance returns last is dropped.
func (c *Client) GetKlines(ctx context.Context, market domain.MarketType, symbol, interval string, limit int) ([]*domain.Kline, error) {
	op := "GetKlines"
	if err := validateMarket(market); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%s: %w: limit must be positive", op, ports.ErrInvalidRequest)
	}
	// One extra candle makes up for the open one that is discarded
	request := min(limit+1, maxLimit(market))

	var raw []rawKline
	err := c.withRetry(ctx, op, symbol, func(ctx context.Context) error {
		var err error
		raw, err = c.fetch(ctx, market, symbol, interval, request, 0, 0)
		return err
	})
	if err != nil {
		return nil, err
	}

	klines, err := c.translate(raw, symbol, interval)
	if err != nil {
		return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline: %w", err), op)
	}
	klines = closedOnly(klines)
	if len(klines) > limit {
		klines = klines[len(klines)-limit:]
	}

	c.logger.Debug(ctx, "Fetched klines", map[string]interface{}{
		"market":   market,
		"symbol":   symbol,
		"interval": interval,
		"count":    len(klines),
	})
	return klines, nil
}

// GetKlinesRange fetches all closed klines for a symbol/interval between start and end time.
func (c *Client) GetKlinesRange(ctx context.Context, market domain.MarketType, symbol, interval string, start, end time.Time) ([]*domain.Kline, error) {
	op := "GetKlinesRange"
	if err := validateMarket(market); err != nil {
		return nil, err
	}
	pageSize := maxLimit(market)

	var allKlines []*domain.Kline
	from := start
	for {
		var page []rawKline
		err := c.withRetry(ctx, op, symbol, func(ctx context.Context) error {
			var err error
			page, err = c.fetch(ctx, market, symbol, interval, pageSize, from.UnixMilli(), end.UnixMilli())
			return err
		})
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		klines, err := c.translate(page, symbol, interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline range: %w", err), op)
		}
		allKlines = append(allKlines, klines...)

		last := page[len(page)-1]
		from = time.UnixMilli(last.CloseTime + 1)
		if from.After(end) || len(page) < pageSize {
			break
		}
	}

	return closedOnly(allKlines), nil
}

// fetch issues one klines request. Zero start/end leave the window open.
func (c *Client) fetch(ctx context.Context, market domain.MarketType, symbol, interval string, limit int, start, end int64) ([]rawKline, error) {
	switch market {
	case domain.MarketSpot:
		svc := c.spotClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
		if start > 0 {
			svc = svc.StartTime(start)
		}
		if end > 0 {
			svc = svc.EndTime(end)
		}
		res, err := svc.Do(ctx)
		if err != nil {
			return nil, err
		}
		return fromSpot(res), nil
	case domain.MarketFutures:
		svc := c.futuresClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
		if start > 0 {
			svc = svc.StartTime(start)
		}
		if end > 0 {
			svc = svc.EndTime(end)
		}
		res, err := svc.Do(ctx)
		if err != nil {
			return nil, err
		}
		return fromFutures(res), nil
	default:
		return nil, fmt.Errorf("%w: %q", ports.ErrUnsupportedMarket, market)
	}
}

func fromSpot(in []*binance.Kline) []rawKline {
	out := make([]rawKline, 0, len(in))
	for _, k := range in {
		if k == nil {
			continue
		}
		out = append(out, rawKline{k.OpenTime, k.CloseTime, k.Open, k.High, k.Low, k.Close, k.Volume})
	}
	return out
}

func fromFutures(in []*futures.Kline) []rawKline {
	out := make([]rawKline, 0, len(in))
	for _, k := range in {
		if k == nil {
			continue
		}
		out = append(out, rawKline{k.OpenTime, k.CloseTime, k.Open, k.High, k.Low, k.Close, k.Volume})
	}
	return out
}

func (c *Client) translate(raw []rawKline, symbol, interval string) ([]*domain.Kline, error) {
	now := c.now()
	out := make([]*domain.Kline, 0, len(raw))
	for i := range raw {
		dk, err := translateBinanceKline(&raw[i], symbol, interval, now)
		if err != nil {
			return nil, err
		}
		out = append(out, dk)
	}
	return out, nil
}

func closedOnly(klines []*domain.Kline) []*domain.Kline {
	out := klines[:0]
	for _, k := range klines {
		if k.IsFinal {
			out = append(out, k)
		}
	}
	return out
}

func translateBinanceKline(bk *rawKline, symbol, interval string, now time.Time) (*domain.Kline, error) {
	if bk == nil {
		return nil, errors.New("received nil historical kline")
	}
	open, err := strconv.ParseFloat(bk.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open price '%s': %w", bk.Open, err)
	}
	high, err := strconv.ParseFloat(bk.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high price '%s': %w", bk.High, err)
	}
	low, err := strconv.ParseFloat(bk.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low price '%s': %w", bk.Low, err)
	}
	cls, err := strconv.ParseFloat(bk.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close price '%s': %w", bk.Close, err)
	}
	vol, err := strconv.ParseFloat(bk.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", bk.Volume, err)
	}

	closeTime := time.UnixMilli(bk.CloseTime)
	return &domain.Kline{
		OpenTime:  time.UnixMilli(bk.OpenTime),
		CloseTime: closeTime,
		Symbol:    symbol,   // Use passed symbol as it's not in the kline payload
		Interval:  interval, // Use passed interval
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
		IsFinal:   !closeTime.After(now),
	}, nil
}
