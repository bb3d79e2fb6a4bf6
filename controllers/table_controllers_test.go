package controllers_test

import (
	"net/http"
	"testing"

	"github.com/cafein/cafein-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAllTables(t *testing.T) {
	env := newTestEnv(t)
	env.seedTable(t, "A1")
	env.seedTable(t, "B1")
	token := env.login(t, models.RoleKitchen)

	w := env.do(t, http.MethodGet, "/api/tables", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tables []models.Table
	res := decode(t, w, &tables)
	assert.Equal(t, "List of tables", res.Message)
	require.Len(t, tables, 2)
	assert.Equal(t, "A1", tables[0].Name)
}

func TestGetTableNotFound(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, models.RoleCashier)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/tables/99", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/tables/abc", token, nil).Code)
}

func TestTablesRequireAuth(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/tables", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/tables", "not-a-token", nil).Code)
}

func TestCreateTable(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, models.RoleAdmin)
	cashier := env.login(t, models.RoleCashier)

	body := map[string]interface{}{"name": "Patio 1", "capacity": 2}
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/tables", cashier, body).Code)

	w := env.do(t, http.MethodPost, "/api/tables", admin, body)
	require.Equal(t, http.StatusCreated, w.Code)
	var table models.Table
	decode(t, w, &table)
	assert.Equal(t, "Patio 1", table.Name)
	assert.Equal(t, models.TableStatusAvailable, table.Status)

	w = env.do(t, http.MethodPost, "/api/tables", admin, map[string]interface{}{"name": "Bad", "capacity": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateTableKeepsStatus(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, models.RoleAdmin)
	table := env.seedTable(t, "C1")

	w := env.do(t, http.MethodPatch, "/api/tables/"+itoa(table.ID), admin,
		map[string]interface{}{"name": "C1-window", "capacity": 6, "status": "process"})
	require.Equal(t, http.StatusOK, w.Code)

	got := env.reloadTable(t, table.ID)
	assert.Equal(t, "C1-window", got.Name)
	assert.Equal(t, 6, got.Capacity)
	assert.Equal(t, models.TableStatusAvailable, got.Status)
}

func TestDeleteTableWithActiveOrder(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, models.RoleAdmin)
	busy := env.seedTable(t, "D1")
	free := env.seedTable(t, "D2")

	w := env.do(t, http.MethodPost, "/api/orders/dine-in", admin,
		map[string]interface{}{"customer_name": "Rina", "table_id": busy.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodDelete, "/api/tables/"+itoa(busy.ID), admin, nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/tables/"+itoa(free.ID), admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/tables/"+itoa(free.ID), admin, nil).Code)
}
