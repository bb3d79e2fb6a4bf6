package middlewares

import (
	"net/http"

	"github.com/cafein/cafein-backend/services"
	"github.com/gin-gonic/gin"
)

// WebSocketAuthMiddleware reads the token from ?token= because browsers
// cannot set headers on a websocket handshake.
func WebSocketAuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := auth.Authenticate(token)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}
