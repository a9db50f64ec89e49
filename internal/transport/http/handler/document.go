package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ajiri/internal/app"
	"ajiri/internal/platform/awsclient"
	"ajiri/internal/transport/http/response"
)

const (
	documentFormField = "document"
	// room for multipart boundaries and headers around the file itself
	multipartOverhead = 1 << 20
)

type DocumentHandler struct {
	documentService *app.DocumentService
}

func NewDocumentHandler(documentService *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

func (h *DocumentHandler) Process(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	maxBytes := h.documentService.MaxBytes()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartOverhead)

	fileHeader, err := c.FormFile(documentFormField)
	if err != nil {
		if isBodyTooLarge(err) {
			h.tooLarge(c, maxBytes)
			return
		}
		response.Error(c, http.StatusBadRequest, "No file uploaded")
		return
	}
	if fileHeader.Size > maxBytes {
		h.tooLarge(c, maxBytes)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ErrorWithMessage(c, http.StatusInternalServerError, "Document processing failed", "could not read uploaded file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		response.ErrorWithMessage(c, http.StatusInternalServerError, "Document processing failed", "could not read uploaded file")
		return
	}

	result, err := h.documentService.Process(c.Request.Context(), app.UploadInput{
		UserID:      userID,
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Data:        data,
	})
	if err != nil {
		var procErr *app.ProcessingError
		switch {
		case errors.Is(err, app.ErrFileTooLarge):
			h.tooLarge(c, maxBytes)
		case errors.Is(err, app.ErrUnsupportedType):
			response.Error(c, http.StatusBadRequest, "Unsupported file type")
		case errors.As(err, &procErr):
			response.ErrorWithMessage(c, http.StatusInternalServerError, "Document processing failed", awsclient.Describe(procErr.Err))
		default:
			slog.ErrorContext(c.Request.Context(), "process document failed", "error", err)
			response.ErrorWithMessage(c, http.StatusInternalServerError, "Document processing failed", err.Error())
		}
		return
	}

	response.OK(c, struct {
		Success bool `json:"success"`
		*app.ProcessResult
	}{Success: true, ProcessResult: result})
}

func (h *DocumentHandler) History(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	page, err := h.documentService.History(
		c.Request.Context(),
		userID,
		queryInt(c, "limit", app.DefaultHistoryLimit),
		queryInt(c, "offset", 0),
	)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Database error")
		return
	}
	response.OK(c, gin.H{
		"sessions": page.Sessions,
		"pagination": gin.H{
			"limit":   page.Limit,
			"offset":  page.Offset,
			"hasMore": page.HasMore,
		},
	})
}

func (h *DocumentHandler) Stats(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	stats, err := h.documentService.Stats(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Database error")
		return
	}
	response.OK(c, gin.H{"stats": stats})
}

func (h *DocumentHandler) tooLarge(c *gin.Context, maxBytes int64) {
	response.ErrorWithMessage(c, http.StatusRequestEntityTooLarge, "File too large",
		fmt.Sprintf("Maximum file size is %d MB", maxBytes>>20))
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
