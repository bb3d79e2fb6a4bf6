package controllers

import (
	"net/http"

	"github.com/cafein/cafein-backend/services"
	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
)

type TableController struct {
	Registry *services.TableRegistry
	Admin    *services.TableAdmin
}

func NewTableController(registry *services.TableRegistry, admin *services.TableAdmin) *TableController {
	return &TableController{Registry: registry, Admin: admin}
}

// GetAllTables -> every table, oldest first
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Registry.ListTables(c.Request.Context())
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) GetTable(c *gin.Context) {
	id, ok := uintParam(c, "table_id")
	if !ok {
		return
	}
	table, err := tc.Registry.FindByID(c.Request.Context(), id)
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

func (tc *TableController) CreateTable(c *gin.Context) {
	var req services.TableInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Admin.Create(c.Request.Context(), req)
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// UpdateTable edits name, description and capacity. Status is not editable.
func (tc *TableController) UpdateTable(c *gin.Context) {
	id, ok := uintParam(c, "table_id")
	if !ok {
		return
	}
	var req services.TableInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table, err := tc.Admin.Update(c.Request.Context(), id, req)
	if err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table updated", table)
}

func (tc *TableController) DeleteTable(c *gin.Context) {
	id, ok := uintParam(c, "table_id")
	if !ok {
		return
	}
	if err := tc.Admin.Delete(c.Request.Context(), id); err != nil {
		RespondStateError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table deleted", nil)
}
