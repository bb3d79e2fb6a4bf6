package controllers_test

import (
	"net/http"
	"testing"

	"github.com/cafein/cafein-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuCRUD(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, models.RoleAdmin)
	cashier := env.login(t, models.RoleCashier)

	body := map[string]interface{}{"name": "Es Teh", "price": 8000, "category": models.MenuCategoryBeverage}
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/menus", cashier, body).Code)

	w := env.do(t, http.MethodPost, "/api/menus", admin, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var menu models.Menu
	decode(t, w, &menu)
	assert.True(t, menu.IsAvailable)

	w = env.do(t, http.MethodPatch, "/api/menus/"+itoa(menu.ID), admin, map[string]interface{}{
		"name": "Es Teh Manis", "price": 9000, "category": models.MenuCategoryBeverage, "is_available": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var menus []models.Menu
	decode(t, env.do(t, http.MethodGet, "/api/menus?available=true", cashier, nil), &menus)
	assert.Empty(t, menus)
	decode(t, env.do(t, http.MethodGet, "/api/menus?category=beverage", cashier, nil), &menus)
	require.Len(t, menus, 1)
	assert.Equal(t, "Es Teh Manis", menus[0].Name)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/menus/"+itoa(menu.ID), admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/menus/"+itoa(menu.ID), admin, nil).Code)
}

func TestDeleteMenuInUse(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, models.RoleAdmin)
	menu := env.seedMenu(t, "Soto", 20000)

	var order models.Order
	decode(t, env.do(t, http.MethodPost, "/api/orders/takeaway", admin, map[string]interface{}{"customer_name": "Andi"}), &order)
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/orders/"+itoa(order.ID)+"/items", admin, map[string]interface{}{
		"items": []map[string]interface{}{{"menu_id": menu.ID, "quantity": 1}},
	}).Code)

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodDelete, "/api/menus/"+itoa(menu.ID), admin, nil).Code)
}
