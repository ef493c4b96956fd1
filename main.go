package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"zoneSignalBot/config"
	"zoneSignalBot/internal/adapters/binanceclient"
	"zoneSignalBot/internal/adapters/httpapi"
	"zoneSignalBot/internal/adapters/logger"
	"zoneSignalBot/internal/adapters/rediscache"
	"zoneSignalBot/internal/adapters/sqlite"
	"zoneSignalBot/internal/app"
	"zoneSignalBot/internal/metrics"
	"zoneSignalBot/internal/ports"
	"zoneSignalBot/internal/strategy/zones"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := logger.New("zoneSignalBot", cfg.LogLevel, cfg.LogFormat)
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(ctx, "Database repository initialized")

	// 4. Initialize Analysis Cache (optional)
	var cache ports.AnalysisCache
	if cfg.RedisAddr != "" {
		redisCache, err := rediscache.New(ctx, rediscache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
			Logger:   appLogger,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize redis cache: %v", err)
		}
		defer redisCache.Close()
		cache = redisCache
	} else {
		appLogger.Info(ctx, "Redis address not set, analysis cache disabled")
	}

	// 5. Initialize Exchange Client (Binance Adapter)
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
	appLogger.Info(ctx, "Binance client initialized")

	// 6. Initialize Zone Engine
	analyzer, err := zones.New(zones.Config{ATRPeriod: cfg.ATRPeriod}, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize zone analyzer: %v", err)
	}

	// 7. Initialize Application Service
	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
	scanner, err := app.NewScannerService(cfg, appLogger, binanceClient, analyzer, repo, cache, m)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize scanner service: %v", err)
	}
	appLogger.Info(ctx, "Scanner service initialized")

	// 8. Initialize HTTP API
	httpCfg := httpapi.Config{
		Addr:         cfg.HTTPAddr,
		DefaultLimit: cfg.CandleLimit,
		Logger:       appLogger,
		Metrics:      m,
	}
	server, err := httpapi.NewServer(httpCfg, httpapi.NewRouter(scanner, httpCfg))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize HTTP server: %v", err)
	}

	// 9. Run scanner and server until shutdown
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return scanner.Start(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return server.Run(gctx)
	})
	if err := g.Wait(); err != nil {
		appLogger.Error(context.Background(), err, "Application exited with error")
		log.Fatalf("FATAL: Application exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
