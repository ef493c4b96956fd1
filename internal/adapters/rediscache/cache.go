// Package rediscache memoizes zone analyses in Redis, keyed by the hash of the
// candle window they were computed from.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/ports"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL       = time.Minute
	defaultNamespace = "zones"
)

// Config holds the connection settings for the analysis cache.
type Config struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	Namespace string
	Logger    ports.Logger
}

// Cache implements ports.AnalysisCache on top of a Redis client.
type Cache struct {
	rdb       *redis.Client
	ttl       time.Duration
	namespace string
	logger    ports.Logger
}

var _ ports.AnalysisCache = (*Cache)(nil)

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Cache, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for redis cache")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required: %w", ports.ErrConfigurationError)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		err = fmt.Errorf("redis connection to %s failed: %w: %v", cfg.Addr, ports.ErrCacheFailed, err)
		cfg.Logger.Error(ctx, err, "Redis cache initialization failed")
		return nil, err
	}
	cfg.Logger.Info(ctx, "Redis connection successful", map[string]interface{}{"address": cfg.Addr})
	return NewWithClient(rdb, cfg.TTL, cfg.Namespace, cfg.Logger), nil
}

// NewWithClient wraps an existing client. A non-positive ttl defaults to one
// minute and an empty namespace to "zones".
func NewWithClient(rdb *redis.Client, ttl time.Duration, namespace string, logger ports.Logger) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &Cache{rdb: rdb, ttl: ttl, namespace: namespace, logger: logger}
}

// Get returns the cached analysis, or nil, nil on a miss. Undecodable entries
// are deleted and reported as a miss.
func (c *Cache) Get(ctx context.Context, symbol, timeframe, windowHash string) (*domain.Analysis, error) {
	key := c.cacheKey(symbol, timeframe, windowHash)
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w: %v", key, ports.ErrCacheFailed, err)
	}

	var out domain.Analysis
	if err := json.Unmarshal(b, &out); err != nil {
		c.logger.Warn(ctx, "Dropping corrupted cache entry", map[string]interface{}{"key": key, "error": err.Error()})
		_ = c.rdb.Del(ctx, key).Err()
		return nil, nil
	}
	return &out, nil
}

// Set stores the analysis under its window key with the configured TTL.
func (c *Cache) Set(ctx context.Context, symbol, timeframe, windowHash string, a *domain.Analysis) error {
	if a == nil {
		return fmt.Errorf("nil analysis: %w", ports.ErrInvalidRequest)
	}
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	key := c.cacheKey(symbol, timeframe, windowHash)
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w: %v", key, ports.ErrCacheFailed, err)
	}
	return nil
}

// Invalidate removes every cached window of symbol/timeframe.
func (c *Cache) Invalidate(ctx context.Context, symbol, timeframe string) error {
	pattern := c.cacheKeyPrefix(symbol, timeframe) + "*"
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w: %v", pattern, ports.ErrCacheFailed, err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w: %v", ports.ErrCacheFailed, err)
			}
		}
		cursor = cur
		if cursor == 0 {
			return nil
		}
	}
}

// Ping checks Redis reachability.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w: %v", ports.ErrCacheFailed, err)
	}
	return nil
}

// Close releases the client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

func (c *Cache) cacheKey(symbol, timeframe, windowHash string) string {
	return c.cacheKeyPrefix(symbol, timeframe) + safe(windowHash)
}

func (c *Cache) cacheKeyPrefix(symbol, timeframe string) string {
	return fmt.Sprintf("%s:%s:%s:", c.namespace, safe(symbol), safe(timeframe))
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
