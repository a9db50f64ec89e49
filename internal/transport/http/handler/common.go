package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"ajiri/internal/app"
	"ajiri/internal/transport/http/middleware"
	"ajiri/internal/transport/http/response"
)

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	return middleware.UserID(c)
}

func requireUserID(c *gin.Context) (uint, bool) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, 401, "Access token required")
	}
	return userID, ok
}

func validationFailed(c *gin.Context, err error) {
	response.ErrorWithMessage(c, 400, "Validation failed", validationMessage(err))
}

// validationMessage renders the first binding or service validation failure.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			return field + " is required"
		case "min":
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case "max":
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "email":
			return field + " must be a valid email address"
		default:
			return field + " is invalid"
		}
	}
	var verr *app.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	return "invalid request payload"
}

func lowerFirst(s string) string {
	for i, r := range s {
		return string(unicode.ToLower(r)) + s[i+1:]
	}
	return s
}

// queryInt parses a query parameter, returning fallback when absent or not a number.
func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
