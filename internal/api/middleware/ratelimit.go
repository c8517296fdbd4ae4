package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"realty/catalog/internal/api/apierr"
	"realty/catalog/internal/config"
	"realty/catalog/internal/logging"
)

// clientLimiter stores rate limiters for a specific client.
type clientLimiter struct {
	softLimiter *rate.Limiter // writes only
	hardLimiter *rate.Limiter // every request
	lastSeen    time.Time
}

// RateLimiterMiddleware manages per-client rate limiting.
type RateLimiterMiddleware struct {
	clients map[string]*clientLimiter
	mu      sync.Mutex
	cfg     *config.Config
	stop    chan struct{}
}

// NewRateLimiterMiddleware creates a new RateLimiterMiddleware and starts
// its cleanup loop. Call Close to stop it.
func NewRateLimiterMiddleware(cfg *config.Config) *RateLimiterMiddleware {
	rm := &RateLimiterMiddleware{
		clients: make(map[string]*clientLimiter),
		cfg:     cfg,
		stop:    make(chan struct{}),
	}
	go rm.cleanupClients(10*time.Minute, 30*time.Minute)
	return rm
}

// Close stops the cleanup loop.
func (rm *RateLimiterMiddleware) Close() {
	close(rm.stop)
}

// Clients reports how many clients are being tracked.
func (rm *RateLimiterMiddleware) Clients() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.clients)
}

// getClientLimiter retrieves or creates the rate limiters for a given client identifier.
func (rm *RateLimiterMiddleware) getClientLimiter(identifier string) *clientLimiter {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	limiter, exists := rm.clients[identifier]
	if !exists {
		limiter = &clientLimiter{
			softLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitSoftRefillRate), rm.cfg.RateLimitSoftBucketSize),
			hardLimiter: rate.NewLimiter(rate.Limit(rm.cfg.RateLimitHardRefillRate), rm.cfg.RateLimitHardBucketSize),
		}
		rm.clients[identifier] = limiter
	}
	limiter.lastSeen = time.Now()
	return limiter
}

func (rm *RateLimiterMiddleware) cleanupClients(every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rm.stop:
			return
		case <-ticker.C:
		}
		rm.mu.Lock()
		count := 0
		for id, client := range rm.clients {
			if time.Since(client.lastSeen) > maxIdle {
				delete(rm.clients, id)
				count++
			}
		}
		rm.mu.Unlock()
		if count > 0 {
			logging.L().Debug().Int("removed", count).Msg("rate limiter cleanup")
		}
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Limit creates the Gin middleware handler.
func (rm *RateLimiterMiddleware) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := c.ClientIP()
		limiter := rm.getClientLimiter(clientKey)

		if !limiter.hardLimiter.Allow() || (isWrite(c.Request.Method) && !limiter.softLimiter.Allow()) {
			logging.Ctx(c.Request.Context()).Warn().
				Str(logging.FieldClientIP, clientKey).
				Str(logging.FieldPath, c.FullPath()).
				Msg("rate limit exceeded")
			c.Header("Retry-After", "1")
			apierr.Abort(c, http.StatusTooManyRequests, apierr.CodeRateLimited, "Rate limit exceeded")
			return
		}

		c.Next()
	}
}
