package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"bakehouse-backend/pkg/utils"
)

// IPRateLimiter manages rate limiters per IP
type IPRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    b,
	}
}

// GetLimiter returns the rate limiter for an IP
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists := i.limiters[ip]
	if !exists {
		limiter = rate.NewLimiter(i.rate, i.burst)
		i.limiters[ip] = limiter
	}

	return limiter
}

var (
	loginLimiter    = NewIPRateLimiter(rate.Every(time.Minute), 5)
	registerLimiter = NewIPRateLimiter(rate.Every(5*time.Minute), 3)
	generalLimiter  = NewIPRateLimiter(rate.Every(time.Second), 30)
)

// LoginRateLimit throttles login attempts per IP
func LoginRateLimit() gin.HandlerFunc {
	return rateLimit(loginLimiter, "Too many login attempts. Please try again later.", time.Minute)
}

// RegisterRateLimit throttles registrations per IP
func RegisterRateLimit() gin.HandlerFunc {
	return rateLimit(registerLimiter, "Too many registration attempts. Please try again later.", 5*time.Minute)
}

// GeneralRateLimit throttles everything else, skipping health probes
func GeneralRateLimit() gin.HandlerFunc {
	limit := rateLimit(generalLimiter, "Too many requests. Please slow down.", time.Second)
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" || strings.HasSuffix(path, "/health") {
			c.Next()
			return
		}
		limit(c)
	}
}

func rateLimit(limiter *IPRateLimiter, message string, retryAfter time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := utils.GetClientIP(c)
		if !limiter.GetLimiter(ip).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       message,
				"retry_after": fmt.Sprintf("%.0f seconds", retryAfter.Seconds()),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
