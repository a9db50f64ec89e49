package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"ajiri/internal/pkg/jwtutil"
	"ajiri/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

// AuthJWT requires a valid bearer token. A missing token is 401, a rejected one 403.
func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		const prefix = "Bearer "
		if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
			response.Abort(c, 401, "Access token required")
			return
		}
		token := strings.TrimSpace(authHeader[len(prefix):])
		if token == "" {
			response.Abort(c, 401, "Access token required")
			return
		}

		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Abort(c, 403, "Invalid or expired token")
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Next()
	}
}

// UserID returns the authenticated user id, if any.
func UserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
