package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter enforces a minimum interval between mutating requests per
// client. Callers identify themselves with the X-Client-ID header carrying
// the numeric id the exchange handed out at session open.
type RateLimiter struct {
	mu       sync.Mutex
	lastSeen map[int64]time.Time
	interval time.Duration
}

func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		lastSeen: make(map[int64]time.Time),
		interval: interval,
	}
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-Client-ID")
		if header == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Client-ID header required"})
			c.Abort()
			return
		}
		clientID, err := strconv.ParseInt(header, 10, 64)
		if err != nil || clientID < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-Client-ID must be an id issued by POST /session"})
			c.Abort()
			return
		}

		r.mu.Lock()
		last, seen := r.lastSeen[clientID]
		if seen && time.Since(last) < r.interval {
			r.mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		r.lastSeen[clientID] = time.Now()
		r.mu.Unlock()

		c.Next()
	}
}
