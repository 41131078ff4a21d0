package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// PingFunc checks a dependency of the service
type PingFunc func(ctx context.Context) error

// Health reports liveness, database reachability and, when connectedUsers is
// set, the number of users holding a websocket connection
// GET /health
func Health(ping PingFunc, connectedUsers func() int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := ping(ctx); err != nil {
			log.Printf("Health check failed: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}

		body := gin.H{
			"status":   "healthy",
			"database": "ok",
		}
		if connectedUsers != nil {
			body["connected_users"] = connectedUsers()
		}
		c.JSON(http.StatusOK, body)
	}
}
