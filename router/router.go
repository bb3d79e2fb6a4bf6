package router

import (
	"net/http"

	"github.com/cafein/cafein-backend/controllers"
	"github.com/cafein/cafein-backend/middlewares"
	"github.com/cafein/cafein-backend/models"
	"github.com/cafein/cafein-backend/services"
	"github.com/gin-gonic/gin"
)

// Handlers carries everything the routes are served by.
type Handlers struct {
	Auth *services.AuthService

	Users    *controllers.UserController
	Tables   *controllers.TableController
	Orders   *controllers.OrderController
	Menus    *controllers.MenuController
	Admin    *controllers.AdminController
	Payments *controllers.PaymentController
	Live     *controllers.LiveController

	// Limiter throttles the whole API per client IP. Optional.
	Limiter *middlewares.RateLimiter
	// LoginLimiter throttles login attempts per client IP. Optional.
	LoginLimiter *middlewares.RateLimiter
}

type Options struct {
	Release    bool
	CORSOrigin string
}

func SetupRouter(h Handlers, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Apply security middlewares
	r.Use(middlewares.SecurityHeaders(opts.Release))
	r.Use(middlewares.CORSMiddlewares(opts.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())
	if h.Limiter != nil {
		r.Use(h.Limiter.RateLimit())
	}

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	login := r.Group("/")
	if h.LoginLimiter != nil {
		login.Use(h.LoginLimiter.RateLimit())
	}
	login.POST("/login", h.Users.Login)

	// Midtrans calls back here; the signature authenticates it.
	r.POST("/payments/notification",
		middlewares.PaymentRateLimiter(),
		middlewares.LogPaymentRequest(),
		h.Payments.HandleNotification)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware(h.Auth))

	adminOnly := middlewares.RequireRole(models.RoleAdmin)
	frontDesk := middlewares.RequireRole(models.RoleAdmin, models.RoleCashier)

	api.POST("/signout", h.Users.SignOut)
	api.GET("/profile", h.Users.GetProfile)
	api.POST("/users", adminOnly, h.Users.Register)

	// TABLES
	api.GET("/tables", h.Tables.GetAllTables)
	api.GET("/tables/:table_id", h.Tables.GetTable)
	api.POST("/tables", adminOnly, h.Tables.CreateTable)
	api.PATCH("/tables/:table_id", adminOnly, h.Tables.UpdateTable)
	api.DELETE("/tables/:table_id", adminOnly, h.Tables.DeleteTable)

	// ORDERS
	api.GET("/orders", h.Orders.GetOrders)
	api.GET("/orders/:order_id", h.Orders.GetOrder)
	orders := api.Group("/orders", frontDesk)
	{
		orders.POST("/dine-in", h.Orders.CreateDineInOrder)
		orders.POST("/takeaway", h.Orders.CreateTakeawayOrder)
		orders.POST("/reservation", h.Orders.UpdateReservation)
		orders.POST("/:order_id/cancel", h.Orders.CancelOrder)
		orders.POST("/:order_id/items", h.Orders.AddItems)
		orders.POST("/:order_id/payment-token",
			middlewares.LogPaymentRequest(),
			h.Payments.RequestToken)
	}

	// MENUS
	api.GET("/menus", h.Menus.GetAllMenus)
	api.POST("/menus", adminOnly, h.Menus.CreateMenu)
	api.PATCH("/menus/:menu_id", adminOnly, h.Menus.UpdateMenu)
	api.DELETE("/menus/:menu_id", adminOnly, h.Menus.DeleteMenu)

	// DASHBOARD
	api.GET("/dashboard", adminOnly, h.Admin.GetDashboard)
	api.GET("/dashboard/revenue", adminOnly, h.Admin.GetRevenue)

	// WebSocket endpoint dengan middleware khusus
	ws := r.Group("/ws")
	ws.Use(middlewares.WebSocketAuthMiddleware(h.Auth))
	{
		ws.GET("/orders", h.Live.ServeOrders)
	}

	return r
}
