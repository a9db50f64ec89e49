package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ajiri/internal/ai"
	"ajiri/internal/app"
	"ajiri/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type AskRequest struct {
	Question     string `json:"question"`
	Context      string `json:"context"`
	DocumentName string `json:"documentName" binding:"max=255"`
	SessionID    string `json:"sessionId" binding:"max=128"`
}

type QuickAskRequest struct {
	Type         string `json:"type" binding:"required"`
	Context      string `json:"context"`
	DocumentName string `json:"documentName" binding:"max=255"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) Ask(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, err)
		return
	}

	result, err := h.chatService.Ask(c.Request.Context(), app.AskInput{
		UserID:       userID,
		Question:     req.Question,
		Context:      req.Context,
		DocumentName: req.DocumentName,
		SessionID:    req.SessionID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, struct {
		Success bool `json:"success"`
		*app.AskResult
	}{Success: true, AskResult: result})
}

func (h *ChatHandler) QuickAsk(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req QuickAskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, err)
		return
	}

	result, err := h.chatService.QuickAsk(c.Request.Context(), app.QuickAskInput{
		UserID:       userID,
		Type:         req.Type,
		Context:      req.Context,
		DocumentName: req.DocumentName,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, struct {
		Success bool `json:"success"`
		*app.QuickAskResult
	}{Success: true, QuickAskResult: result})
}

func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	history, err := h.chatService.History(c.Request.Context(), userID, c.Param("sessionId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"history": history})
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	sessions, err := h.chatService.Sessions(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"sessions": sessions})
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	deleted, err := h.chatService.DeleteSession(c.Request.Context(), userID, c.Param("sessionId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{
		"success":      true,
		"message":      "Chat session deleted",
		"deletedCount": deleted,
	})
}

func (h *ChatHandler) writeError(c *gin.Context, err error) {
	var upstream *ai.UpstreamError
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		validationFailed(c, err)
	case errors.Is(err, app.ErrSessionIDRequired):
		response.Error(c, http.StatusBadRequest, "Session ID is required")
	case errors.Is(err, app.ErrUnknownQuickAsk):
		response.ErrorWithMessage(c, http.StatusBadRequest, "Invalid quick ask type", "type must be one of amount, date, company, summary")
	case errors.Is(err, app.ErrEmptyAnswer):
		response.Error(c, http.StatusInternalServerError, "Failed to generate answer")
	case errors.Is(err, app.ErrChatPersist):
		slog.ErrorContext(c.Request.Context(), "save chat message failed", "error", err)
		response.Error(c, http.StatusInternalServerError, "Failed to save chat message")
	case errors.As(err, &upstream):
		slog.WarnContext(c.Request.Context(), "model invocation failed", "code", upstream.Code, "error", upstream.Err)
		response.ErrorWithMessage(c, http.StatusBadGateway, "Failed to process question", upstream.Message)
	default:
		slog.ErrorContext(c.Request.Context(), "chat request failed", "error", err)
		response.Error(c, http.StatusInternalServerError, "Database error")
	}
}
