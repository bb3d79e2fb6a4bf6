package controllers_test

import (
	"net/http"
	"testing"

	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// processOrder returns a confirmed dine-in order with one billable item.
func processOrder(t *testing.T, env *testEnv, token string) (models.Order, models.Table) {
	t.Helper()
	table := env.seedTable(t, "P1")
	menu := env.seedMenu(t, "Mie Ayam", 22000)
	order := createDineIn(t, env, token, table.ID)

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/api/orders/"+itoa(order.ID)+"/items", token, map[string]interface{}{
		"items": []map[string]interface{}{{"menu_id": menu.ID, "quantity": 1}},
	}).Code)
	require.Equal(t, http.StatusOK, env.postForm(t, "/api/orders/reservation", token, map[string][]string{
		"id": {itoa(order.ID)}, "table_id": {itoa(table.ID)}, "status": {models.OrderStatusProcess},
	}).Code)
	return env.reloadOrder(t, order.ID), table
}

func notification(orderID, status string) services.Notification {
	n := services.Notification{
		OrderID:           orderID,
		StatusCode:        "200",
		GrossAmount:       "22000.00",
		TransactionStatus: status,
		PaymentType:       "qris",
	}
	n.SignatureKey = services.Signature(n.OrderID, n.StatusCode, n.GrossAmount, testServerKey)
	return n
}

func TestRequestPaymentToken(t *testing.T) {
	env := newTestEnv(t)
	cashier := env.login(t, models.RoleCashier)
	order, _ := processOrder(t, env, cashier)

	w := env.do(t, http.MethodPost, "/api/orders/"+itoa(order.ID)+"/payment-token", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var token services.PaymentToken
	decode(t, w, &token)
	assert.Equal(t, "tok-"+order.OrderID, token.Token)
	assert.Equal(t, int64(22000), token.GrossAmount)
}

func TestPaymentTokenNeedsProcessOrder(t *testing.T) {
	env := newTestEnv(t)
	cashier := env.login(t, models.RoleCashier)
	order := createDineIn(t, env, cashier, env.seedTable(t, "P2").ID)

	w := env.do(t, http.MethodPost, "/api/orders/"+itoa(order.ID)+"/payment-token", cashier, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestPaymentNotificationSettlesOrder(t *testing.T) {
	env := newTestEnv(t)
	cashier := env.login(t, models.RoleCashier)
	order, table := processOrder(t, env, cashier)

	w := env.do(t, http.MethodPost, "/payments/notification", "", notification(order.OrderID, "settlement"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.OrderStatusSettled, env.reloadOrder(t, order.ID).Status)
	assert.Equal(t, models.TableStatusAvailable, env.reloadTable(t, table.ID).Status)

	// Midtrans retries notifications; a repeat is accepted.
	w = env.do(t, http.MethodPost, "/payments/notification", "", notification(order.OrderID, "settlement"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPaymentNotificationBadSignature(t *testing.T) {
	env := newTestEnv(t)
	cashier := env.login(t, models.RoleCashier)
	order, _ := processOrder(t, env, cashier)

	n := notification(order.OrderID, "settlement")
	n.SignatureKey = "forged"
	w := env.do(t, http.MethodPost, "/payments/notification", "", n)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.OrderStatusProcess, env.reloadOrder(t, order.ID).Status)
}

func TestPaymentNotificationFailureKeepsOrder(t *testing.T) {
	env := newTestEnv(t)
	cashier := env.login(t, models.RoleCashier)
	order, _ := processOrder(t, env, cashier)

	w := env.do(t, http.MethodPost, "/payments/notification", "", notification(order.OrderID, "expire"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.OrderStatusProcess, env.reloadOrder(t, order.ID).Status)
}
