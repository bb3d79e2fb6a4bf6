package middlewares

import (
	"net/http"
	"time"

	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// PaymentRateLimiter caps the gateway webhook at a global rate.
func PaymentRateLimiter() gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Every(100*time.Millisecond), 20)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status":  false,
				"message": "Too many payment notifications",
			})
			return
		}
		c.Next()
	}
}

// LogPaymentRequest logs every payment call with its outcome.
func LogPaymentRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}
		if c.Writer.Status() >= http.StatusBadRequest {
			utils.ErrorLogger.WithFields(fields).Error("Payment request failed")
			return
		}
		utils.InfoLogger.WithFields(fields).Info("Payment request")
	}
}
