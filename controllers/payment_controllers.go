package controllers

import (
	"net/http"

	"github.com/cafein/cafein-backend/services"
	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	Payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{Payments: payments}
}

// RequestToken -> Snap token for an order in process
func (pc *PaymentController) RequestToken(c *gin.Context) {
	id, ok := uintParam(c, "order_id")
	if !ok {
		return
	}

	token, err := pc.Payments.RequestToken(c.Request.Context(), id)
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment token created", token)
}

// HandleNotification is the Midtrans callback. It is authenticated by the
// notification signature, not by a session.
func (pc *PaymentController) HandleNotification(c *gin.Context) {
	var n services.Notification
	if err := c.ShouldBindJSON(&n); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := pc.Payments.HandleNotification(c.Request.Context(), n); err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Notification processed", nil)
}
