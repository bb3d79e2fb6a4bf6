package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cafein/cafein-backend/config"
	"github.com/cafein/cafein-backend/controllers"
	"github.com/cafein/cafein-backend/events"
	"github.com/cafein/cafein-backend/kds"
	"github.com/cafein/cafein-backend/middlewares"
	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/router"
	"github.com/cafein/cafein-backend/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// app holds the wired services and the background workers that feed them.
type app struct {
	cfg *config.Config
	db  *gorm.DB
	log logrus.FieldLogger

	feed       *services.ChangeFeed
	monitor    *services.ChangeMonitor
	listener   *events.PGListener
	bridge     *events.NATSBridge
	transport  events.Transport
	sessions   *services.SessionStore
	hub        *kds.Hub
	auth       *services.AuthService
	limiter    *middlewares.RateLimiter
	loginLimit *middlewares.RateLimiter

	router *gin.Engine
}

func newApp(cfg *config.Config, db *gorm.DB, log logrus.FieldLogger) (*app, error) {
	a := &app{cfg: cfg, db: db, log: log}

	// Postgres triggers publish changes themselves; the outbox would
	// deliver each change twice.
	var recorder services.ChangeRecorder = services.OutboxRecorder{}
	if cfg.ChangeSource == config.ChangeSourcePGNotify {
		recorder = services.NopRecorder{}
	}

	a.feed = services.NewChangeFeed(log)
	switch cfg.ChangeSource {
	case config.ChangeSourcePGNotify:
		a.listener = events.NewPGListener(cfg.DatabaseURL, cfg.PGNotifyChannel, a.feed, log)
	default:
		a.monitor = services.NewChangeMonitor(db, a.feed, cfg.ChangePollInterval, log)
	}

	a.sessions = services.NewSessionStore()
	a.auth = services.NewAuthService(db, a.sessions, log)
	a.hub = kds.NewHub(log)

	tables := services.NewTableRegistry(db)
	lifecycle := services.NewOrderLifecycle(db, recorder, log)
	queries := services.NewOrderQueryService(db)
	items := services.NewOrderMenuService(db, recorder, log)

	dispatcher := services.NewReservationDispatcher(lifecycle, log)
	dispatcher.OnSuccess = func(_ context.Context, by models.Profile, order *models.Order) {
		a.hub.BroadcastStaffNotification(fmt.Sprintf("%s moved order %s to %s", by.Name, order.OrderID, order.Status))
	}

	var snapClient services.SnapClient
	if cfg.MidtransServerKey != "" {
		client, err := services.NewSnapClient(&services.MidtransConfig{
			ServerKey:    cfg.MidtransServerKey,
			IsProduction: cfg.MidtransEnv == "production",
		})
		if err != nil {
			return nil, err
		}
		snapClient = client
	} else {
		log.Warn("MIDTRANS_SERVER_KEY is not set, payment tokens are disabled")
	}
	payments := services.NewPaymentService(db, snapClient, cfg.MidtransServerKey, lifecycle, items, log)

	reconciler := services.NewReconciler(a.feed, queries, tables, cfg.RefetchDebounce, log)

	a.limiter = middlewares.NewRateLimiter(50, time.Second)
	a.loginLimit = middlewares.NewStrictRateLimiter()

	a.router = router.SetupRouter(router.Handlers{
		Auth:         a.auth,
		Users:        controllers.NewUserController(a.auth, a.hub),
		Tables:       controllers.NewTableController(tables, services.NewTableAdmin(db, recorder, log)),
		Orders:       controllers.NewOrderController(lifecycle, queries, items, dispatcher),
		Menus:        controllers.NewMenuController(services.NewMenuService(db)),
		Admin:        controllers.NewAdminController(services.NewDashboardService(db, tables, queries)),
		Payments:     controllers.NewPaymentController(payments),
		Live:         controllers.NewLiveController(a.hub, reconciler, dispatcher, cfg.CORSOrigin, log),
		Limiter:      a.limiter,
		LoginLimiter: a.loginLimit,
	}, router.Options{
		Release:    cfg.GinMode == gin.ReleaseMode,
		CORSOrigin: cfg.CORSOrigin,
	})

	return a, nil
}

// start launches the change source, the optional relay and the sweepers.
func (a *app) start(ctx context.Context) error {
	if a.monitor != nil {
		a.monitor.Start(ctx)
	}
	if a.listener != nil {
		go a.listener.Run(ctx)
	}

	if a.cfg.NATSURL != "" {
		transport, err := events.ConnectNATS(a.cfg.NATSURL, a.log)
		if err != nil {
			return err
		}
		a.transport = transport
		a.bridge = events.NewNATSBridge(a.feed, transport, a.cfg.NATSSubject, a.log)
		if err := a.bridge.Start(ctx); err != nil {
			return err
		}
	}

	go a.sessions.Run(ctx, time.Minute)
	go a.limiter.Cleanup(ctx, 10*time.Minute)
	go a.loginLimit.Cleanup(ctx, 10*time.Minute)
	return nil
}

func (a *app) stop() {
	a.hub.CloseAll()
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.bridge != nil {
		a.bridge.Close()
	}
	if a.transport != nil {
		a.transport.Close()
	}
}
