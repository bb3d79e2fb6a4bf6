package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/services"
	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxName   = "name"
	ctxClaims = "claims"
)

// AuthMiddleware accepts "Authorization: Bearer <token>" and rejects tokens
// that were signed out.
func AuthMiddleware(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header missing"))
			c.Abort()
			return
		}
		if !strings.HasPrefix(header, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid token format"))
			c.Abort()
			return
		}

		claims, err := auth.Authenticate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid or expired token"))
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

func setIdentity(c *gin.Context, claims *utils.CustomClaims) {
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxRole, claims.Role)
	c.Set(ctxName, claims.Name)
	c.Set(ctxClaims, claims)
}

// ProfileFrom returns the authenticated caller.
func ProfileFrom(c *gin.Context) models.Profile {
	return models.Profile{
		UserID: c.GetUint(ctxUserID),
		Name:   c.GetString(ctxName),
		Role:   c.GetString(ctxRole),
	}
}

// ClaimsFrom returns the verified token claims, or nil.
func ClaimsFrom(c *gin.Context) *utils.CustomClaims {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*utils.CustomClaims)
	return claims
}
