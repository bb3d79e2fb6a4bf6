package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cafein/cafein-backend/services"
	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
)

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNetwork):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondStateError answers with the status of a domain error. Unknown
// errors surface as a logged 500.
func RespondStateError(c *gin.Context, err error) {
	utils.RespondFailure(c, StatusFor(err), err, services.FieldOf(err))
}

// uintParam reads a positive numeric path parameter or answers 400.
func uintParam(c *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid "+name))
		return 0, false
	}
	return uint(n), true
}
