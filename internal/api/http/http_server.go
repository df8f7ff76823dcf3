package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/olyamironova/exchange-simulator/internal/api/dto"
	"github.com/olyamironova/exchange-simulator/internal/api/ws"
	"github.com/olyamironova/exchange-simulator/internal/core"
	"github.com/olyamironova/exchange-simulator/internal/domain"
	"github.com/olyamironova/exchange-simulator/internal/middleware"
	"github.com/olyamironova/exchange-simulator/internal/port"
)

// HTTPServer is the admin/observability surface: order book and depth
// reads, stats, a websocket datastream mirror, and a request path for
// tooling that prefers HTTP over the raw order channel.
type HTTPServer struct {
	exchange *core.Exchange
	cache    port.Cache
	hub      *ws.Hub
	log      *slog.Logger
}

func NewHTTPServer(exchange *core.Exchange, cache port.Cache, hub *ws.Hub, log *slog.Logger) *HTTPServer {
	if log == nil {
		log = slog.Default()
	}
	return &HTTPServer{exchange: exchange, cache: cache, hub: hub, log: log}
}

func (s *HTTPServer) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/orderbook", s.getOrderbook)
	r.GET("/depth", s.getDepth)
	r.GET("/stats", s.getStats)
	r.POST("/session", s.openSession)
	if s.hub != nil {
		r.GET("/ws", func(c *gin.Context) { s.hub.Serve(c.Writer, c.Request) })
	}

	rl := middleware.NewRateLimiter(100 * time.Millisecond)
	orders := r.Group("/orders", rl.Middleware())
	orders.POST("", s.submitOrder)
	orders.POST("/cancel", s.cancelOrder)

	return r
}

func (s *HTTPServer) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *HTTPServer) openSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"client_id": s.exchange.NextClientID()})
}

func (s *HTTPServer) submitOrder(c *gin.Context) {
	var req dto.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.exchange.OpenOrder(c.Request.Context(), req.OrderID, req.ClientID, domain.Side(req.Side), req.Price, req.Quantity)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": req.OrderID, "status": "open"})
}

func (s *HTTPServer) cancelOrder(c *gin.Context) {
	var req dto.CancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.exchange.CancelOrder(c.Request.Context(), req.ClientID, req.OrderID); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": req.OrderID, "cancelled": true})
}

// getOrderbook prefers the cache and falls back to a live snapshot.
func (s *HTTPServer) getOrderbook(c *gin.Context) {
	if s.cache != nil {
		if snap, err := s.cache.GetOrderbook(c.Request.Context()); err == nil && snap != nil {
			c.JSON(http.StatusOK, snap)
			return
		}
	}
	c.JSON(http.StatusOK, s.exchange.Snapshot())
}

func (s *HTTPServer) getDepth(c *gin.Context) {
	side := domain.Side(c.Query("side"))
	if !side.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be BUY or SELL"})
		return
	}
	price, err := decimal.NewFromString(c.Query("price"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
		return
	}
	c.JSON(http.StatusOK, dto.DepthResponse{
		Side:     string(side),
		Price:    price,
		Quantity: s.exchange.GetPriceQty(side, price),
	})
}

func (s *HTTPServer) getStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.exchange.SnapshotStats())
}
