package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/muni_commerce/internal/metrics"
	"github.com/GTDGit/muni_commerce/internal/service"
	"github.com/GTDGit/muni_commerce/internal/utils"
	"github.com/GTDGit/muni_commerce/internal/web"
)

// RateLimiter throttles attempts per (client IP, endpoint). It is the only
// place a 429 is produced.
type RateLimiter struct {
	limiter  *service.RateLimiter
	renderer *web.Renderer
	metrics  *metrics.Metrics
	window   time.Duration
}

// NewRateLimiter constructs the middleware factory.
func NewRateLimiter(limiter *service.RateLimiter, window time.Duration, renderer *web.Renderer, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{limiter: limiter, renderer: renderer, metrics: m, window: window}
}

// Limit returns a handler counting one attempt against endpoint.
func (r *RateLimiter) Limit(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		allowed, err := r.limiter.Allow(c.Request.Context(), ip, endpoint)
		if err != nil {
			log.Error().Err(err).Str("request_id", utils.GetRequestID(c)).Str("endpoint", endpoint).Msg("Rate limit check failed")
			r.renderer.Error(c, http.StatusInternalServerError, "Une erreur est survenue. Réessayez plus tard.")
			c.Abort()
			return
		}
		if !allowed {
			r.metrics.RecordRateLimitHit(endpoint)
			log.Warn().Str("ip", ip).Str("endpoint", endpoint).Msg("Rate limit exceeded")
			c.Header("Retry-After", strconv.Itoa(int(r.window.Seconds())))
			r.renderer.HTML(c, http.StatusTooManyRequests, "too_many_requests", gin.H{
				"Title":      "Trop de tentatives",
				"RetryAfter": r.window.String(),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
