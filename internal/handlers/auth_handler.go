package handlers

import (
	"errors"
	"net/http"

	"helpdesk-realtime-api/internal/auth"
	"helpdesk-realtime-api/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TokenIssuer signs bearer tokens for a principal.
type TokenIssuer interface {
	GenerateToken(p auth.Principal) (string, error)
}

// LoginRequest represents the login request payload.
// Username also accepts the account email.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string `json:"token"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CompanyID *int64 `json:"company_id,omitempty"`
	RoleID    *int64 `json:"role_id,omitempty"`
	Message   string `json:"message"`
}

type AuthHandler struct {
	db     *gorm.DB
	tokens TokenIssuer
	log    *zap.Logger
}

func NewAuthHandler(db *gorm.DB, tokens TokenIssuer, log *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens, log: log}
}

// Login handles POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request. Username and password are required.",
		})
		return
	}

	var user models.User
	err := h.db.Where("username = ? OR email = ?", req.Username, req.Username).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		h.log.Error("login lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
		return
	}
	if err != nil || !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := h.tokens.GenerateToken(auth.Principal{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		CompanyID: user.CompanyID,
		RoleID:    user.RoleID,
	})
	if err != nil {
		h.log.Error("token generation failed", zap.Int64("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CompanyID: user.CompanyID,
		RoleID:    user.RoleID,
		Message:   "Login successful",
	})
}
