package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/gamerfie/game-vault/auth"
	"github.com/gamerfie/game-vault/middleware"
	"github.com/gamerfie/game-vault/websocket"
)

// WebSocketHandler upgrades authenticated clients onto the event hub
type WebSocketHandler struct {
	hub      *websocket.Hub
	verifier auth.Verifier
	upgrader gorillaws.Upgrader
}

// NewWebSocketHandler creates a new websocket handler. Browsers cannot set
// headers on websocket requests, so the token travels as a query parameter.
func NewWebSocketHandler(hub *websocket.Hub, verifier auth.Verifier, allowedOrigin string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		verifier: verifier,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "" || origin == allowedOrigin
			},
		},
	}
}

// HandleConnection handles websocket connections
// GET /api/v1/ws?token=<jwt>&challenge_id=<optional>
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Token required",
		})
		return
	}

	claims, err := h.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		message := "Invalid token"
		if errors.Is(err, auth.ErrExpiredToken) {
			message = "Token has expired"
		}
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": message,
		})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response
		log.Printf("WebSocket: Upgrade failed for user %s: %v", claims.UserID, err)
		return
	}

	websocket.NewClient(h.hub, conn, claims.UserID, c.Query("challenge_id")).Serve()
}

// Status reports whether the caller holds an open websocket connection
// GET /api/v1/ws/status
func (h *WebSocketHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"connected":       h.hub.IsUserConnected(middleware.GetUserID(c)),
		"connected_users": h.hub.GetConnectedUserCount(),
	}})
}
