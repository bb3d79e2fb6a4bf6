package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type JSONResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondJSON(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

// RespondError answers with the error text. Internal errors are logged and
// answered with a generic message.
func RespondError(c *gin.Context, code int, err error) {
	RespondFailure(c, code, err, "")
}

// RespondFailure is RespondError with the offending input field attached
// as {"field": ...} when one is known.
func RespondFailure(c *gin.Context, code int, err error, field string) {
	if code == http.StatusInternalServerError {
		ErrorLogger.WithError(err).WithFields(map[string]interface{}{
			"path":   c.Request.URL.Path,
			"status": code,
		}).Error("Request failed")
		c.JSON(code, JSONResponse{Status: false, Message: "internal server error"})
		return
	}

	var data interface{}
	if field != "" {
		data = gin.H{"field": field}
	}
	c.JSON(code, JSONResponse{Status: false, Message: err.Error(), Data: data})
}
