package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ajiri/internal/bootstrap"
	"ajiri/internal/platform/rabbitmq"
)

type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

// Check pings the database and every enabled optional dependency.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	deps := gin.H{"database": h.checkDatabase(ctx)}
	allOK := deps["database"].(dependencyStatus).OK
	if h.app.Redis != nil {
		status := h.checkRedis(ctx)
		deps["redis"] = status
		allOK = allOK && status.OK
	}
	if h.app.MQConn != nil {
		status := statusOf(rabbitmq.Check(h.app.MQConn))
		deps["rabbitmq"] = status
		allOK = allOK && status.OK
	}
	if h.app.Store != nil {
		status := statusOf(h.app.Store.Check(ctx))
		deps["storage"] = status
		allOK = allOK && status.OK
	}

	statusCode := http.StatusOK
	status := "OK"
	if !allOK {
		statusCode = http.StatusServiceUnavailable
		status = "DEGRADED"
	}

	c.JSON(statusCode, gin.H{
		"status":       status,
		"app":          h.app.Config.App.Name,
		"env":          h.app.Config.App.Env,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"uptime_sec":   int(time.Since(h.app.StartedAt).Seconds()),
		"bedrock":      h.app.Config.Bedrock.Enabled,
		"dependencies": deps,
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) dependencyStatus {
	sqlDB, err := h.app.DB.DB()
	if err != nil {
		return statusOf(err)
	}
	return statusOf(sqlDB.PingContext(ctx))
}

func (h *HealthHandler) checkRedis(ctx context.Context) dependencyStatus {
	return statusOf(h.app.Redis.Ping(ctx).Err())
}

func statusOf(err error) dependencyStatus {
	if err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}
