package controllers

import (
	"net/http"

	"github.com/cafein/cafein-backend/middlewares"
	"github.com/cafein/cafein-backend/services"
	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
)

type OrderController struct {
	Lifecycle  *services.OrderLifecycle
	Queries    *services.OrderQueryService
	Items      *services.OrderMenuService
	Dispatcher *services.ReservationDispatcher
}

func NewOrderController(lifecycle *services.OrderLifecycle, queries *services.OrderQueryService, items *services.OrderMenuService, dispatcher *services.ReservationDispatcher) *OrderController {
	return &OrderController{Lifecycle: lifecycle, Queries: queries, Items: items, Dispatcher: dispatcher}
}

// GetOrders -> ?page=&limit=&search=
func (oc *OrderController) GetOrders(c *gin.Context) {
	var q services.OrderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	q.Role = middlewares.ProfileFrom(c).Role

	page, err := oc.Queries.ListOrders(c.Request.Context(), q)
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", page)
}

// GetOrder -> detail by order code
func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.Queries.FindByCode(c.Request.Context(), c.Param("order_id"))
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

func (oc *OrderController) CreateDineInOrder(c *gin.Context) {
	var req struct {
		CustomerName string `json:"customer_name"`
		TableID      uint   `json:"table_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Lifecycle.CreateDineInOrder(c.Request.Context(), req.CustomerName, req.TableID)
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order reserved", order)
}

func (oc *OrderController) CreateTakeawayOrder(c *gin.Context) {
	var req struct {
		CustomerName string `json:"customer_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	order, err := oc.Lifecycle.CreateTakeawayOrder(c.Request.Context(), req.CustomerName)
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Takeaway order created", order)
}

// UpdateReservation takes the form-encoded reservation action and answers
// with the resulting ActionState. Failures keep the state body under the
// status of their error kind.
func (oc *OrderController) UpdateReservation(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	state := oc.Dispatcher.Dispatch(c.Request.Context(), middlewares.ProfileFrom(c), c.Request.PostForm)
	if state.Status != services.ActionSuccess {
		status := StatusFor(state.Err)
		if status == http.StatusInternalServerError {
			utils.ErrorLogger.WithError(state.Err).WithField("path", c.Request.URL.Path).Error("Reservation action failed")
		}
		c.JSON(status, state)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (oc *OrderController) CancelOrder(c *gin.Context) {
	id, ok := uintParam(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Lifecycle.Cancel(c.Request.Context(), id)
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order canceled", order)
}

func (oc *OrderController) AddItems(c *gin.Context) {
	id, ok := uintParam(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		Items []services.OrderItemInput `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	items, err := oc.Items.AddItems(c.Request.Context(), id, req.Items)
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Items added", items)
}
