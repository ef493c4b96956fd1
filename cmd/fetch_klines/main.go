// cmd/fetch_klines downloads closed klines from Binance into a CSV file that
// cmd/replay can read.
//
// Usage:
//
//	go run ./cmd/fetch_klines --symbol=ETHUSDT --tf=1h --months=3
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"zoneSignalBot/config"
	"zoneSignalBot/internal/adapters/binanceclient"
	"zoneSignalBot/internal/adapters/logger"
	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/utils"
)

func main() {
	symbol := flag.String("symbol", "ETHUSDT", "Trading pair to fetch")
	interval := flag.String("tf", "1h", "Kline interval")
	months := flag.Int("months", 3, "How many months back to fetch")
	market := flag.String("market", "", "Market to fetch from: spot or futures (default: MARKET from config)")
	outDir := flag.String("out", "data", "Directory for the CSV file")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.New("fetch_klines", cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	mkt := cfg.Market
	if *market != "" {
		m, ok := domain.ParseMarketType(*market)
		if !ok {
			log.Fatalf("FATAL: unsupported market %q", *market)
		}
		mkt = m
	}
	if _, ok := domain.ValidityHorizon(*interval); !ok {
		log.Fatalf("FATAL: unsupported timeframe %q (supported: %v)", *interval, domain.SupportedTimeframes())
	}

	// 3. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		UseTestnet:           cfg.IsTestnet,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		RatePerSecond:        cfg.ProviderRatePerSecond,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	end := time.Now()
	start := end.AddDate(0, -*months, 0)

	appLogger.Info(ctx, "Fetching klines", map[string]interface{}{
		"symbol":   *symbol,
		"interval": *interval,
		"market":   string(mkt),
		"from":     start.Format(time.RFC3339),
		"to":       end.Format(time.RFC3339),
	})
	klines, err := binanceClient.GetKlinesRange(ctx, mkt, *symbol, *interval, start, end)
	if err != nil {
		appLogger.Error(ctx, err, "Error fetching klines")
		log.Fatalf("Error fetching klines: %v", err)
	}
	appLogger.Info(ctx, "Fetched klines", map[string]interface{}{"count": len(klines)})

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Error creating output directory: %v", err)
	}
	filename := filepath.Join(*outDir, fmt.Sprintf("%s_%s_%s_to_%s.csv",
		*symbol, *interval, start.Format("20060102"), end.Format("20060102")))
	if err := utils.WriteKlinesToCSV(klines, filename); err != nil {
		appLogger.Error(ctx, err, "Error writing CSV")
		log.Fatalf("Error writing CSV: %v", err)
	}
	appLogger.Info(ctx, "Saved to", map[string]interface{}{"filename": filename})
}
