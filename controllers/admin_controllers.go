package controllers

import (
	"net/http"

	"github.com/cafein/cafein-backend/services"
	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
)

type AdminController struct {
	Dashboard *services.DashboardService
}

func NewAdminController(dashboard *services.DashboardService) *AdminController {
	return &AdminController{Dashboard: dashboard}
}

// GetDashboard -> revenue, daily orders, active orders and table counts
func (ac *AdminController) GetDashboard(c *gin.Context) {
	dashboard, err := ac.Dashboard.Build(c.Request.Context())
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard data", dashboard)
}

// GetRevenue -> this month against last month
func (ac *AdminController) GetRevenue(c *gin.Context) {
	revenue, err := ac.Dashboard.Revenue(c.Request.Context())
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Revenue summary", revenue)
}
