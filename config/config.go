package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"zoneSignalBot/internal/adapters/logger"
	"zoneSignalBot/internal/domain"
)

// Binance caps a single klines request at 1500 candles.
const maxCandleLimit = 1500

// Config holds all application configuration.
type Config struct {
	// Binance API. Keys are optional: klines are public endpoints.
	APIKey    string
	SecretKey string
	IsTestnet bool
	Market    domain.MarketType

	// Scan parameters
	Symbols      []string
	Timeframes   []string
	CandleLimit  int
	ScanInterval time.Duration
	ScanWorkers  int

	// Engine parameters
	ATRPeriod int

	// Database
	DBPath string

	// Redis cache. An empty address disables caching.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// HTTP API
	HTTPAddr string

	// Logging
	LogLevel  slog.Level
	LogFormat logger.Format

	// Provider connection settings
	ProviderRatePerSecond float64
	ReconnectDelay        time.Duration
	MaxReconnectAttempts  int
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)
	if (cfg.APIKey == "") != (cfg.SecretKey == "") {
		errs = append(errs, "BINANCE_API_KEY and BINANCE_API_SECRET must be set together")
	}

	marketStr := getEnv("MARKET", string(domain.MarketFutures))
	market, ok := domain.ParseMarketType(strings.ToLower(marketStr))
	if !ok {
		errs = append(errs, fmt.Sprintf("MARKET must be spot or futures, got %q", marketStr))
	}
	cfg.Market = market

	// Scan parameters
	cfg.Symbols = getEnvAsList("SYMBOLS", []string{"BTCUSDT", "ETHUSDT"})
	for i, s := range cfg.Symbols {
		cfg.Symbols[i] = strings.ToUpper(s)
	}
	if len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must list at least one symbol")
	}

	cfg.Timeframes = getEnvAsList("TIMEFRAMES", []string{"1h", "4h"})
	if len(cfg.Timeframes) == 0 {
		errs = append(errs, "TIMEFRAMES must list at least one timeframe")
	}
	for _, tf := range cfg.Timeframes {
		if _, ok := domain.ValidityHorizon(tf); !ok {
			errs = append(errs, fmt.Sprintf("unsupported timeframe %q (supported: %s)", tf, strings.Join(domain.SupportedTimeframes(), ", ")))
		}
	}

	cfg.CandleLimit, err = getEnvAsIntRequired("CANDLE_LIMIT", 300)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid CANDLE_LIMIT: %v", err))
	} else if cfg.CandleLimit < 50 || cfg.CandleLimit > maxCandleLimit {
		errs = append(errs, fmt.Sprintf("CANDLE_LIMIT must be between 50 and %d", maxCandleLimit))
	}

	scanIntervalSeconds, err := getEnvAsIntRequired("SCAN_INTERVAL_SECONDS", 300)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SCAN_INTERVAL_SECONDS: %v", err))
	} else if scanIntervalSeconds <= 0 {
		errs = append(errs, "SCAN_INTERVAL_SECONDS must be positive")
	}
	cfg.ScanInterval = time.Duration(scanIntervalSeconds) * time.Second

	cfg.ScanWorkers, err = getEnvAsIntRequired("SCAN_WORKERS", 4)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SCAN_WORKERS: %v", err))
	} else if cfg.ScanWorkers <= 0 {
		errs = append(errs, "SCAN_WORKERS must be positive")
	}

	// Engine parameters
	cfg.ATRPeriod = getEnvAsInt("ATR_PERIOD", 14)
	if cfg.ATRPeriod <= 0 {
		errs = append(errs, "ATR_PERIOD must be positive")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/zone_signals.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Redis cache
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvAsInt("REDIS_DB", 0)
	cacheTTLSeconds := getEnvAsInt("CACHE_TTL_SECONDS", 60)
	if cacheTTLSeconds < 0 {
		errs = append(errs, "CACHE_TTL_SECONDS cannot be negative")
	}
	cfg.CacheTTL = time.Duration(cacheTTLSeconds) * time.Second

	// HTTP API
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = logger.ParseFormat(getEnv("LOG_FORMAT", "json"))

	// Connection Settings
	cfg.ProviderRatePerSecond, err = getEnvAsFloatRequired("PROVIDER_RATE_PER_SECOND", 5.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PROVIDER_RATE_PER_SECOND: %v", err))
	} else if cfg.ProviderRatePerSecond <= 0 {
		errs = append(errs, "PROVIDER_RATE_PER_SECOND must be positive")
	}

	reconnectDelaySeconds := getEnvAsInt("RECONNECT_DELAY_SECONDS", 1)
	if reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	cfg.MaxReconnectAttempts = getEnvAsInt("MAX_RECONNECT_ATTEMPTS", 3)
	if cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping empty entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
