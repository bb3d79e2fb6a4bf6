package controllers_test

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

	"github.com/cafein/cafein-backend/controllers"
	"github.com/cafein/cafein-backend/database"
	"github.com/cafein/cafein-backend/kds"
	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/router"
	"github.com/cafein/cafein-backend/services"
	"github.com/cafein/cafein-backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testServerKey = "SB-Mid-server-test"
	testPassword  = "password123"
)

type fakeSnap struct{}

func (fakeSnap) CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error) {
	return &snap.Response{Token: "tok-" + req.TransactionDetails.OrderID}, nil
}

type testEnv struct {
	db     *gorm.DB
	engine *gin.Engine
	auth   *services.AuthService
	hub    *kds.Hub
	feed   *services.ChangeFeed
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newTestEnv serves the full router over a private in-memory database.
// Outbox rows are polled every 20ms so live views see writes quickly.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InfoLogger.SetOutput(io.Discard)
	utils.ErrorLogger.SetOutput(io.Discard)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	log := quietLogger()
	feed := services.NewChangeFeed(log)
	monitor := services.NewChangeMonitor(db, feed, 20*time.Millisecond, log)
	ctx, cancel := context.WithCancel(context.Background())
	monitor.Start(ctx)

	hub := kds.NewHub(log)
	auth := services.NewAuthService(db, services.NewSessionStore(), log)
	recorder := services.OutboxRecorder{}
	tables := services.NewTableRegistry(db)
	lifecycle := services.NewOrderLifecycle(db, recorder, log)
	queries := services.NewOrderQueryService(db)
	items := services.NewOrderMenuService(db, recorder, log)
	dispatcher := services.NewReservationDispatcher(lifecycle, log)
	dispatcher.OnSuccess = func(_ context.Context, by models.Profile, order *models.Order) {
		hub.BroadcastStaffNotification(by.Name + " updated " + order.OrderID)
	}
	reconciler := services.NewReconciler(feed, queries, tables, 10*time.Millisecond, log)

	engine := router.SetupRouter(router.Handlers{
		Auth:     auth,
		Users:    controllers.NewUserController(auth, hub),
		Tables:   controllers.NewTableController(tables, services.NewTableAdmin(db, recorder, log)),
		Orders:   controllers.NewOrderController(lifecycle, queries, items, dispatcher),
		Menus:    controllers.NewMenuController(services.NewMenuService(db)),
		Admin:    controllers.NewAdminController(services.NewDashboardService(db, tables, queries)),
		Payments: controllers.NewPaymentController(services.NewPaymentService(db, fakeSnap{}, testServerKey, lifecycle, items, log)),
		Live:     controllers.NewLiveController(hub, reconciler, dispatcher, "*", log),
	}, router.Options{CORSOrigin: "*"})

	t.Cleanup(func() {
		hub.CloseAll()
		cancel()
		monitor.Stop()
		sqlDB.Close()
	})
	return &testEnv{db: db, engine: engine, auth: auth, hub: hub, feed: feed}
}

// login creates a user with the role and returns a bearer token for it.
func (e *testEnv) login(t *testing.T, role string) string {
	t.Helper()
	email := role + "-" + uuid.NewString()[:8] + "@cafein.test"
	_, err := e.auth.CreateUser(context.Background(), services.NewUser{
		Name: strings.ToUpper(role[:1]) + role[1:], Email: email, Password: testPassword, Role: role,
	})
	require.NoError(t, err)

	res, err := e.auth.Login(context.Background(), email, testPassword)
	require.NoError(t, err)
	return res.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postForm(t *testing.T, path, token string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// decode reads the response envelope and unmarshals its data into out.
func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out), string(env.Data))
	}
	return env
}

func (e *testEnv) seedTable(t *testing.T, name string) models.Table {
	t.Helper()
	table := models.Table{Name: name, Capacity: 4, Status: models.TableStatusAvailable}
	require.NoError(t, e.db.Create(&table).Error)
	return table
}

func (e *testEnv) seedMenu(t *testing.T, name string, price int64) models.Menu {
	t.Helper()
	menu := models.Menu{Name: name, Price: price, Category: models.MenuCategoryMains, IsAvailable: true}
	require.NoError(t, e.db.Create(&menu).Error)
	return menu
}

func (e *testEnv) reloadTable(t *testing.T, id uint) models.Table {
	t.Helper()
	var table models.Table
	require.NoError(t, e.db.First(&table, id).Error)
	return table
}

func (e *testEnv) reloadOrder(t *testing.T, id uint) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, e.db.First(&order, id).Error)
	return order
}

func itoa(id uint) string {
	return fmt.Sprintf("%d", id)
}
