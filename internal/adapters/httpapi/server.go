// Package httpapi exposes the zone scanner over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zoneSignalBot/internal/metrics"
	"zoneSignalBot/internal/ports"
)

// Config holds the HTTP server settings.
type Config struct {
	Addr         string
	DefaultLimit int // candles per analysis when the query omits limit
	Logger       ports.Logger
	Metrics      *metrics.Metrics // optional
}

// Server wraps the gin engine and its http.Server.
type Server struct {
	srv    *http.Server
	logger ports.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(scanner Scanner, cfg Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestMetrics(cfg.Metrics))

	h := NewHandler(scanner, cfg.DefaultLimit, cfg.Logger)
	r.GET("/healthz", h.Health)
	r.HEAD("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.GET("/analyze/:symbol", h.Analyze)
	v1.GET("/signals/:symbol", h.Signals)
	return r
}

// NewServer creates the HTTP server for the given router.
func NewServer(cfg Config, router http.Handler) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for HTTP server")
	}
	if cfg.Addr == "" {
		return nil, fmt.Errorf("listen address is required: %w", ports.ErrConfigurationError)
	}
	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
		},
		logger: cfg.Logger,
	}, nil
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": s.srv.Addr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info(ctx, "HTTP server stopped")
	return nil
}

func requestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.IncHTTP(route, strconv.Itoa(c.Writer.Status()))
	}
}
