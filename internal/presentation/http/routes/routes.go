package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/storefront-api/internal/config"
	domainRepo "github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/internal/presentation/http/handler"
	"github.com/sangkips/storefront-api/internal/presentation/http/middleware"
	"github.com/sangkips/storefront-api/pkg/metrics"
	"github.com/sangkips/storefront-api/pkg/utils"
	"go.uber.org/zap"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Product  *handler.ProductHandler
	Order    *handler.OrderHandler
	Receipt  *handler.ReceiptHandler
	Sales    *handler.SalesHandler
	Delivery *handler.DeliveryHandler
	Payment  *handler.PaymentHandler
	Settings *handler.SettingsHandler
	Printer  *handler.PrinterHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	Metrics         *metrics.Registry
	Logger          *zap.Logger
	RateLimiter     *middleware.RateLimiter
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.MetricsMiddleware(deps.Metrics))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
			"version": deps.Cfg.App.Version,
			"time":    time.Now().UTC(),
		})
	})

	if deps.Cfg.Metrics.Enabled {
		router.GET(deps.Cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		registerPublicRoutes(v1, h)

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))
		registerProtectedRoutes(protected, h, deps)

		admin := protected.Group("")
		admin.Use(middleware.RequireAdmin())
		registerAdminRoutes(admin, h)

		superAdmin := protected.Group("/admins")
		superAdmin.Use(middleware.RequireSuperAdmin())
		{
			superAdmin.GET("", h.User.ListAdmins)
			superAdmin.POST("", h.User.CreateAdmin)
			superAdmin.DELETE("/:id", h.User.RemoveAdmin)
		}
	}

	return router
}

func registerPublicRoutes(v1 *gin.RouterGroup, h *Handlers) {
	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.Register)
	}

	v1.GET("/products", h.Product.List)
	v1.GET("/products/:id", h.Product.Get)

	v1.GET("/orders/track/:tracking_id", h.Order.Track)
	v1.GET("/delivery/quote", h.Delivery.Quote)
	v1.GET("/settings/receipt-qr", h.Settings.GetSettings)
}

func registerProtectedRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	protected.GET("/auth/me", h.Auth.Me)

	orders := protected.Group("/orders")
	{
		orders.POST("",
			deps.RateLimiter.Middleware(),
			middleware.Idempotency(middleware.IdempotencyConfig{Repo: deps.IdempotencyRepo}),
			h.Order.Create,
		)
		orders.GET("", h.Order.List)
		orders.GET("/:id", h.Order.Get)
	}

	receipts := protected.Group("/receipts")
	{
		receipts.POST("/order/:order_id", h.Receipt.GenerateForOrder)
		receipts.GET("", h.Receipt.List)
		receipts.GET("/:id", h.Receipt.Get)
	}

	protected.POST("/payments/intent", h.Payment.CreateIntent)
}

func registerAdminRoutes(admin *gin.RouterGroup, h *Handlers) {
	admin.POST("/products", h.Product.Create)
	admin.PUT("/products/:id", h.Product.Update)
	admin.PUT("/products/:id/stock", h.Product.UpdateStock)

	admin.POST("/orders/pos", h.Order.CreatePOS)
	admin.POST("/orders/manual", h.Order.CreateManual)
	admin.PUT("/orders/:id/status", h.Order.UpdateStatus)
	admin.DELETE("/orders/:id", h.Order.Delete)

	admin.POST("/receipts/pos", h.Receipt.GeneratePOS)
	admin.POST("/receipts/manual", h.Receipt.GenerateManual)
	admin.POST("/receipts/:id/print", h.Printer.PrintReceipt)

	admin.GET("/printer/status", h.Printer.GetStatus)
	admin.GET("/sales", h.Sales.GetSales)
	admin.PUT("/settings/receipt-qr", h.Settings.UpdateSettings)
}
