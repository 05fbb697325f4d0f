package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haasonsaas/limitd/pkg/identity"
	"github.com/haasonsaas/limitd/pkg/limiter"
)

// rateLimitMiddleware enforces the engine's decision on protected routes:
// it resolves the client key, asks the service for a decision, translates it
// into the X-RateLimit response headers and a 429 on denial, and feeds the
// response latency stat. With no active policy the request passes through.
func rateLimitMiddleware(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		pol, ok := app.limits.Policy()
		if !ok || !pol.Active {
			c.Next()
			return
		}

		key := identity.Resolve(identity.FromRequest(c.Request), pol.ClientIDType)
		start := time.Now()

		decision, err := app.limits.CheckRateLimit(key, c.Request.URL.Path)
		if err != nil {
			if errors.Is(err, limiter.ErrNoActivePolicy) {
				c.Next()
				return
			}
			// A decision error is not a denial; surface it as such.
			logger := requestLogger(c, app.logger)
			logger.Error().Err(err).Str("client_key", key).Msg("Rate limit check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "rate limiter unavailable"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetTime, 10))

		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(decision.RetryAfter))
			app.limits.ObserveLatency(time.Since(start))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "rate limit exceeded",
				"retryAfter": decision.RetryAfter,
			})
			return
		}

		c.Next()
		app.limits.ObserveLatency(time.Since(start))
	}
}
