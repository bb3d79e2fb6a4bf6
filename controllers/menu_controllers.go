package controllers

import (
	"net/http"
	"strconv"

	"github.com/cafein/cafein-backend/services"
	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
)

type MenuController struct {
	Menus *services.MenuService
}

func NewMenuController(menus *services.MenuService) *MenuController {
	return &MenuController{Menus: menus}
}

// GetAllMenus -> ?category=&available=true
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	onlyAvailable, _ := strconv.ParseBool(c.Query("available"))
	menus, err := mc.Menus.List(c.Request.Context(), c.Query("category"), onlyAvailable)
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menus", menus)
}

func (mc *MenuController) CreateMenu(c *gin.Context) {
	var req services.MenuInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	menu, err := mc.Menus.Create(c.Request.Context(), req)
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Menu created", menu)
}

func (mc *MenuController) UpdateMenu(c *gin.Context) {
	id, ok := uintParam(c, "menu_id")
	if !ok {
		return
	}
	var req services.MenuInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	menu, err := mc.Menus.Update(c.Request.Context(), id, req)
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu updated", menu)
}

func (mc *MenuController) DeleteMenu(c *gin.Context) {
	id, ok := uintParam(c, "menu_id")
	if !ok {
		return
	}
	if err := mc.Menus.Delete(c.Request.Context(), id); err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu deleted", nil)
}
