package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"zoneSignalBot/internal/domain"
	"zoneSignalBot/internal/ports"
)

const (
	minAnalyzeLimit    = 50
	maxAnalyzeLimit    = 1500
	defaultSignalLimit = 20
	maxSignalLimit     = 500
)

// Scanner is what the handlers need from the application service.
type Scanner interface {
	AnalyzeSymbol(ctx context.Context, market domain.MarketType, symbol, timeframe string, limit int) (*domain.Analysis, error)
	RecentSignals(ctx context.Context, symbol string, limit int) ([]*domain.JournaledSignal, error)
	Health(ctx context.Context) error
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SignalResponse is the wire form of a journaled signal.
type SignalResponse struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	Symbol    string        `json:"symbol"`
	Timeframe string        `json:"timeframe"`
	Market    string        `json:"market"`
	Price     float64       `json:"price"`
	CreatedAt string        `json:"created_at"`
	Signal    domain.Signal `json:"signal"`
}

// Handler serves the zone API.
type Handler struct {
	scanner      Scanner
	defaultLimit int
	logger       ports.Logger
}

// NewHandler creates a Handler. A non-positive defaultLimit uses 200.
func NewHandler(scanner Scanner, defaultLimit int, logger ports.Logger) *Handler {
	if defaultLimit <= 0 {
		defaultLimit = 200
	}
	return &Handler{scanner: scanner, defaultLimit: defaultLimit, logger: logger}
}

// Analyze runs the engine on the latest candles of a symbol.
//
// GET /api/v1/analyze/:symbol?timeframe=1h&market=futures&limit=200
func (h *Handler) Analyze(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	timeframe := c.DefaultQuery("timeframe", "1h")
	market := domain.MarketType(c.Query("market"))

	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minAnalyzeLimit || n > maxAnalyzeLimit {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be an integer between 50 and 1500"})
			return
		}
		limit = n
	}

	a, err := h.scanner.AnalyzeSymbol(c.Request.Context(), market, symbol, timeframe, limit)
	if err != nil {
		h.fail(c, err, "Analyze request failed", symbol)
		return
	}
	c.JSON(http.StatusOK, a)
}

// Signals lists recently journaled signals for a symbol, newest first.
//
// GET /api/v1/signals/:symbol?limit=20
func (h *Handler) Signals(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))

	limit := defaultSignalLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxSignalLimit {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be an integer between 1 and 500"})
			return
		}
		limit = n
	}

	signals, err := h.scanner.RecentSignals(c.Request.Context(), symbol, limit)
	if err != nil {
		h.fail(c, err, "Signals request failed", symbol)
		return
	}

	out := make([]SignalResponse, 0, len(signals))
	for _, s := range signals {
		out = append(out, SignalResponse{
			ID:        s.ID,
			RunID:     s.RunID,
			Symbol:    s.Symbol,
			Timeframe: s.Timeframe,
			Market:    string(s.Market),
			Price:     s.Price,
			CreatedAt: s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Signal:    s.Signal,
		})
	}
	c.JSON(http.StatusOK, out)
}

// Health reports provider and journal reachability.
func (h *Handler) Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	if err := h.scanner.Health(c.Request.Context()); err != nil {
		if c.Request.Method == http.MethodHead {
			c.Status(http.StatusServiceUnavailable)
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	if c.Request.Method == http.MethodHead {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) fail(c *gin.Context, err error, msg, symbol string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(c.Request.Context(), err, msg, map[string]interface{}{"symbol": symbol, "status": status})
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// statusFor maps sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrUnsupportedTimeframe),
		errors.Is(err, ports.ErrUnsupportedMarket),
		errors.Is(err, ports.ErrInsufficientData),
		errors.Is(err, ports.ErrMalformedCandle),
		errors.Is(err, ports.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ports.ErrUnknownSymbol), errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrTimeout), errors.Is(err, ports.ErrContextCanceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
