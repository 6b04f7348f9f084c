package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const userIDKey = "engine.user_id"

// Identity resolves the authenticated user from the X-User-ID header set by
// the auth gateway in front of this service and rejects requests without one.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				envelope{Success: false, Error: "missing or invalid user identity"})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// CallerID returns the user id stored by Identity. Zero means unauthenticated.
func CallerID(c *gin.Context) uint64 {
	v, ok := c.Get(userIDKey)
	if !ok {
		return 0
	}
	id, _ := v.(uint64)
	return id
}

// RequestLogger logs one line per request with latency and status.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"user_id", CallerID(c),
		)
	}
}

// userLimiters keeps one token bucket per authenticated user. Entries are
// never evicted; the map is bounded by the active user population.
type userLimiters struct {
	mu       sync.Mutex
	limiters map[uint64]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func (u *userLimiters) get(userID uint64) *rate.Limiter {
	u.mu.Lock()
	defer u.mu.Unlock()
	lim, ok := u.limiters[userID]
	if !ok {
		lim = rate.NewLimiter(u.rps, u.burst)
		u.limiters[userID] = lim
	}
	return lim
}

// RateLimit throttles API actions per user. Must run after Identity.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	ul := &userLimiters{
		limiters: make(map[uint64]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	return func(c *gin.Context) {
		if !ul.get(CallerID(c)).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				envelope{Success: false, Error: "too many actions, slow down"})
			return
		}
		c.Next()
	}
}
