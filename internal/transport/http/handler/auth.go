package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ajiri/internal/app"
	"ajiri/internal/model"
	"ajiri/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
}

type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=64"`
	Email     string `json:"email" binding:"required,email,max=128"`
	Password  string `json:"password" binding:"required,min=6,max=128"`
	FirstName string `json:"firstName" binding:"max=64"`
	LastName  string `json:"lastName" binding:"max=64"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userView struct {
	ID        uint    `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

func newUserView(u *model.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func NewAuthHandler(authService *app.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, err)
		return
	}

	result, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			validationFailed(c, err)
		case errors.Is(err, app.ErrUserExists):
			response.Error(c, http.StatusBadRequest, "Username or email already exists")
		default:
			slog.ErrorContext(c.Request.Context(), "register failed", "error", err)
			response.Error(c, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	response.Created(c, gin.H{
		"message": "User created successfully",
		"token":   result.Token,
		"user":    newUserView(result.User),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationFailed(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, "Invalid credentials")
		default:
			slog.ErrorContext(c.Request.Context(), "login failed", "error", err)
			response.Error(c, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	response.OK(c, gin.H{
		"message": "Login successful",
		"token":   result.Token,
		"user":    newUserView(result.User),
	})
}

func (h *AuthHandler) Profile(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.authService.Profile(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, "User not found")
		default:
			response.Error(c, http.StatusInternalServerError, "Database error")
		}
		return
	}
	response.OK(c, gin.H{"user": user})
}
