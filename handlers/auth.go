package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gamerfie/game-vault/auth"
	"github.com/gamerfie/game-vault/middleware"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	jwtService *auth.JWTService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{jwtService: jwtService}
}

type devTokenRequest struct {
	UserID string `json:"user_id" binding:"required,max=128"`
	Email  string `json:"email" binding:"omitempty,email"`
}

// DevToken mints a signed token for any user ID. Only routed in development.
// POST /api/v1/auth/dev-token
func (h *AuthHandler) DevToken(c *gin.Context) {
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	token, err := h.jwtService.GenerateToken(req.UserID, req.Email, "authenticated")
	if err != nil {
		log.Printf("Failed to generate token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"token": token}})
}

// Me returns the identity carried by the caller's token
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Not authenticated",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user_id": claims.UserID,
		"email":   claims.Email,
		"role":    claims.Role,
	}})
}
