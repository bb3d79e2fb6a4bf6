package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cafein/cafein-backend/config"
	"github.com/cafein/cafein-backend/database"
	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/services"
	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@cafein.test"
	adminPassword = "admin12345"
	serverKey     = "SB-Mid-server-integration"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newTestApp wires the whole service over an in-memory database with the
// outbox change source running.
func newTestApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InfoLogger.SetOutput(io.Discard)
	utils.ErrorLogger.SetOutput(io.Discard)

	cfg := &config.Config{
		GinMode:            gin.TestMode,
		DBDriver:           config.DriverSQLite,
		DatabaseURL:        fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		CORSOrigin:         "*",
		ChangeSource:       config.ChangeSourceOutbox,
		ChangePollInterval: 20 * time.Millisecond,
		RefetchDebounce:    10 * time.Millisecond,
		NATSSubject:        "cafein.changes",
		MidtransServerKey:  serverKey,
	}
	require.NoError(t, cfg.Validate())

	db, err := config.InitDB(cfg)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	a, err := newApp(cfg, db, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.auth.SeedAdmin(ctx, adminEmail, adminPassword))
	require.NoError(t, a.start(ctx))
	t.Cleanup(func() {
		cancel()
		a.stop()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return a
}

type response struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func call(t *testing.T, a *app, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	contentType := "application/json"
	switch b := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", contentType)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	if out != nil {
		var res response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
		require.NoError(t, json.Unmarshal(res.Data, out), w.Body.String())
	}
	return w.Code
}

func login(t *testing.T, a *app, email, password string) string {
	t.Helper()
	var data struct {
		Token string `json:"token"`
	}
	require.Equal(t, http.StatusOK, call(t, a, http.MethodPost, "/login", "", map[string]string{"email": email, "password": password}, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

// TestEndToEndIntegration walks a dine-in order from reservation to
// payment settlement:
// 1. admin logs in, creates a cashier, a table and a menu
// 2. cashier reserves the table and confirms the reservation
// 3. cashier adds items
// 4. the gateway notification settles the order and frees the table
// 5. the dashboard reports the revenue
func TestEndToEndIntegration(t *testing.T) {
	a := newTestApp(t)

	admin := login(t, a, adminEmail, adminPassword)
	require.Equal(t, http.StatusCreated, call(t, a, http.MethodPost, "/api/users", admin, map[string]string{
		"name": "Kasir", "email": "kasir@cafein.test", "password": "kasir12345", "role": models.RoleCashier,
	}, nil))
	cashier := login(t, a, "kasir@cafein.test", "kasir12345")

	var table models.Table
	require.Equal(t, http.StatusCreated, call(t, a, http.MethodPost, "/api/tables", admin, map[string]interface{}{"name": "A1", "capacity": 4}, &table))
	var menu models.Menu
	require.Equal(t, http.StatusCreated, call(t, a, http.MethodPost, "/api/menus", admin, map[string]interface{}{
		"name": "Nasi Goreng", "price": 30000, "discount": 10, "category": models.MenuCategoryMains,
	}, &menu))

	var order models.Order
	require.Equal(t, http.StatusCreated, call(t, a, http.MethodPost, "/api/orders/dine-in", cashier, map[string]interface{}{
		"customer_name": "Rina", "table_id": table.ID,
	}, &order))
	assert.Equal(t, models.OrderStatusReserved, order.Status)

	code := call(t, a, http.MethodPost, "/api/orders/reservation", cashier, url.Values{
		"id": {fmt.Sprint(order.ID)}, "table_id": {fmt.Sprint(table.ID)}, "status": {models.OrderStatusProcess},
	}, nil)
	require.Equal(t, http.StatusOK, code)

	require.Equal(t, http.StatusCreated, call(t, a, http.MethodPost, fmt.Sprintf("/api/orders/%d/items", order.ID), cashier, map[string]interface{}{
		"items": []map[string]interface{}{{"menu_id": menu.ID, "quantity": 2}},
	}, nil))

	n := services.Notification{OrderID: order.OrderID, StatusCode: "200", GrossAmount: "54000.00", TransactionStatus: "settlement"}
	n.SignatureKey = services.Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	require.Equal(t, http.StatusOK, call(t, a, http.MethodPost, "/payments/notification", "", n, nil))

	var settled models.Order
	require.Equal(t, http.StatusOK, call(t, a, http.MethodGet, "/api/orders/"+order.OrderID, cashier, nil, &settled))
	assert.Equal(t, models.OrderStatusSettled, settled.Status)

	var tables []models.Table
	require.Equal(t, http.StatusOK, call(t, a, http.MethodGet, "/api/tables", cashier, nil, &tables))
	require.Len(t, tables, 1)
	assert.Equal(t, models.TableStatusAvailable, tables[0].Status)

	var dash services.Dashboard
	require.Equal(t, http.StatusOK, call(t, a, http.MethodGet, "/api/dashboard", admin, nil, &dash))
	assert.Equal(t, int64(54000), dash.Revenue.ThisMonth)
	assert.Equal(t, "Rp 54.000", dash.Revenue.ThisMonthFormatted)

	// Every write went through the outbox and the monitor drained it.
	assert.Eventually(t, func() bool {
		var pending int64
		a.db.Model(&models.DBChange{}).Where("processed = ?", false).Count(&pending)
		return pending == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestFeedReceivesOrderChanges(t *testing.T) {
	a := newTestApp(t)
	sub := a.feed.Subscribe(services.OrdersFilter)
	defer sub.Close()

	admin := login(t, a, adminEmail, adminPassword)
	require.Equal(t, http.StatusCreated, call(t, a, http.MethodPost, "/api/orders/takeaway", admin, map[string]string{"customer_name": "Joko"}, nil))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "orders", ev.Table)
		assert.Equal(t, models.ChangeInsert, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event for the new order")
	}
}

func TestPingAndSecurityHeaders(t *testing.T) {
	a := newTestApp(t)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}
