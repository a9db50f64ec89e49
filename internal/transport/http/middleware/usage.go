package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ajiri/internal/model"
)

type UsageRecorder interface {
	Record(ctx context.Context, usage model.APIUsage) error
}

// Usage records one API usage row for every request under prefix, after the handler ran.
func Usage(recorder UsageRecorder, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if recorder == nil || !strings.HasPrefix(path, prefix) {
			return
		}
		usage := model.APIUsage{
			Endpoint:     path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: time.Since(start).Milliseconds(),
			RequestID:    RequestIDFromContext(c.Request.Context()),
			CreatedAt:    time.Now().UTC(),
		}
		if userID, ok := UserID(c); ok {
			usage.UserID = &userID
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 3*time.Second)
		defer cancel()
		if err := recorder.Record(ctx, usage); err != nil {
			slog.Warn("record api usage failed", "endpoint", path, "request_id", usage.RequestID, "error", err)
		}
	}
}
