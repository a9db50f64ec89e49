package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"ajiri/internal/transport/http/response"
)

type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RateLimit rejects a client IP that exhausted its quota for the route. A nil limiter disables it.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(c.Request.Context(), c.ClientIP()+":"+c.FullPath()) {
			response.Abort(c, 429, "Too many requests")
			return
		}
		c.Next()
	}
}
