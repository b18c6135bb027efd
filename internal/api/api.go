package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Store is the query surface the handlers need. *DB satisfies it; tests
// substitute fakes. List methods return empty, non-nil slices when nothing
// matches so responses render as JSON arrays.
type Store interface {
	Counts(ctx context.Context) (market, historical int64, err error)
	Coins(ctx context.Context, p CoinsParams) ([]Coin, error)
	Coin(ctx context.Context, id string) (Coin, error)
	Historical(ctx context.Context, id string) (HistoricalEntry, error)
	TopMovers(ctx context.Context, gainers bool, limit int) ([]Coin, error)
	Stats(ctx context.Context) (Stats, error)
	Search(ctx context.Context, query string, limit int) ([]Coin, error)
}

// Handler wires the endpoints to a Store.
type Handler struct {
	store Store
	log   *zap.SugaredLogger
}

// NewHandler returns a Handler serving from store.
func NewHandler(store Store, log *zap.SugaredLogger) *Handler {
	return &Handler{store: store, log: log}
}

// Routes registers every endpoint on the engine.
func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/", h.root)
	r.GET("/health", h.health)

	v1 := r.Group("/v1")
	{
		v1.GET("/coins", h.listCoins)
		v1.GET("/coins/:coin_id", h.getCoin)
		v1.GET("/coins/:coin_id/historical", h.getHistorical)
		v1.GET("/top-gainers", h.topGainers)
		v1.GET("/top-losers", h.topLosers)
		v1.GET("/stats", h.stats)
		v1.GET("/search", h.search)
	}
}

// CORS allows any origin and answers preflight requests directly.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request with status and latency.
func RequestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start).Truncate(time.Microsecond),
		)
	}
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Crypto Market Data API",
		"version": "1.0.0",
		"status":  "operational",
	})
}

func (h *Handler) health(c *gin.Context) {
	market, historical, err := h.store.Counts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": "Database connection failed: " + err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":                  "healthy",
		"database":                "connected",
		"market_data_records":     market,
		"historical_data_records": historical,
		"timestamp":               time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) listCoins(c *gin.Context) {
	limit, ok := intParam(c, "limit", 100, 1, 1000)
	if !ok {
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		badRequest(c, "offset must be a non-negative integer")
		return
	}
	sortBy := c.DefaultQuery("sort_by", "market_cap_rank")
	if !slices.Contains(sortColumns, sortBy) {
		badRequest(c, "sort_by must be one of: "+strings.Join(sortColumns, ", "))
		return
	}
	order := c.DefaultQuery("order", "asc")
	if order != "asc" && order != "desc" {
		badRequest(c, "order must be 'asc' or 'desc'")
		return
	}

	coins, err := h.store.Coins(c.Request.Context(), CoinsParams{
		Limit:  limit,
		Offset: offset,
		SortBy: sortBy,
		Order:  order,
	})
	if err != nil {
		h.fail(c, "list coins", err)
		return
	}
	c.JSON(http.StatusOK, coins)
}

func (h *Handler) getCoin(c *gin.Context) {
	id := c.Param("coin_id")
	coin, err := h.store.Coin(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"detail": fmt.Sprintf("Cryptocurrency '%s' not found", id),
		})
		return
	}
	if err != nil {
		h.fail(c, "get coin", err)
		return
	}
	c.JSON(http.StatusOK, coin)
}

func (h *Handler) getHistorical(c *gin.Context) {
	id := c.Param("coin_id")
	entry, err := h.store.Historical(c.Request.Context(), id)
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"detail": fmt.Sprintf("Historical data for '%s' not found", id),
		})
		return
	}
	if err != nil {
		h.fail(c, "get historical", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) topGainers(c *gin.Context) { h.movers(c, true) }

func (h *Handler) topLosers(c *gin.Context) { h.movers(c, false) }

func (h *Handler) movers(c *gin.Context, gainers bool) {
	limit, ok := intParam(c, "limit", 10, 1, 50)
	if !ok {
		return
	}
	coins, err := h.store.TopMovers(c.Request.Context(), gainers, limit)
	if err != nil {
		h.fail(c, "top movers", err)
		return
	}
	c.JSON(http.StatusOK, coins)
}

func (h *Handler) stats(c *gin.Context) {
	s, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, "stats", err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		badRequest(c, "q is required")
		return
	}
	limit, ok := intParam(c, "limit", 10, 1, 50)
	if !ok {
		return
	}
	coins, err := h.store.Search(c.Request.Context(), q, limit)
	if err != nil {
		h.fail(c, "search", err)
		return
	}
	c.JSON(http.StatusOK, coins)
}

// fail logs the cause server-side and answers a bare 500. Error detail
// stays out of responses.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	h.log.Errorw(op+" failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal Server Error"})
}

// intParam parses a bounded integer query parameter, answering 400 and
// reporting ok=false when it is malformed or out of range.
func intParam(c *gin.Context, name string, def, lo, hi int) (int, bool) {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil || v < lo || v > hi {
		badRequest(c, fmt.Sprintf("%s must be an integer between %d and %d", name, lo, hi))
		return 0, false
	}
	return v, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"detail": msg})
}
