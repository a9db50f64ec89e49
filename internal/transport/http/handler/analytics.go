package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ajiri/internal/app"
	"ajiri/internal/transport/http/response"
)

type AnalyticsHandler struct {
	analyticsService *app.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *app.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	dashboard, err := h.analyticsService.Dashboard(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Database error")
		return
	}
	response.OK(c, dashboard)
}

func (h *AnalyticsHandler) Trends(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	trends, err := h.analyticsService.Trends(c.Request.Context(), userID, queryInt(c, "days", app.DefaultTrendDays))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Database error")
		return
	}
	response.OK(c, gin.H{"trends": trends})
}
