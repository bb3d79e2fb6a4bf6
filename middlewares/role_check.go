package middlewares

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		role, exists := c.Get(ctxRole)
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}

		if !allowed[role.(string)] {
			utils.RespondError(c, http.StatusForbidden,
				fmt.Errorf("%s access required", strings.Join(roles, " or ")))
			c.Abort()
			return
		}

		c.Next()
	}
}
