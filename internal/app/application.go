package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sergio-scardigno/ventas-productos/internal/config"
	"github.com/sergio-scardigno/ventas-productos/internal/handlers"
	"github.com/sergio-scardigno/ventas-productos/internal/middleware"
	"github.com/sergio-scardigno/ventas-productos/internal/models"
	"github.com/sergio-scardigno/ventas-productos/internal/payments"
	"github.com/sergio-scardigno/ventas-productos/internal/payments/mercadopago"
	"github.com/sergio-scardigno/ventas-productos/internal/payments/paypal"
	"github.com/sergio-scardigno/ventas-productos/internal/repository"
	"github.com/sergio-scardigno/ventas-productos/internal/service"
	"github.com/sergio-scardigno/ventas-productos/internal/sheets"
	"github.com/sergio-scardigno/ventas-productos/pkg/cache"
	"github.com/sergio-scardigno/ventas-productos/pkg/logger"
)

type Application struct {
	cfg *config.Config

	cache     *cache.Cache
	providers map[string]payments.Provider

	repositories repositoryContainer
	services     serviceContainer
	handlers     handlerContainer

	router *gin.Engine
	server *http.Server
}

type repositoryContainer struct {
	Order   repository.OrderRepository
	Product repository.ProductRepository
}

type serviceContainer struct {
	Product      *service.ProductService
	Checkout     *service.CheckoutService
	Reconcile    *service.ReconcileService
	Notification *service.NotificationService
	Order        *service.OrderService
}

type handlerContainer struct {
	Product  *handlers.ProductHandler
	Checkout *handlers.CheckoutHandler
	Webhook  *handlers.WebhookHandler
	Order    *handlers.OrderHandler
}

func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	app := &Application{cfg: cfg}

	app.initCache()
	if err := app.initProviders(); err != nil {
		return nil, err
	}
	if err := app.initRepositories(); err != nil {
		return nil, err
	}
	app.initServices()
	app.initHandlers()
	app.initRouter()

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	logger.Info("Server starting", map[string]interface{}{
		"port":         a.cfg.Port,
		"environment":  a.cfg.Environment,
		"mercado_pago": a.cfg.MercadoPagoEnabled(),
		"paypal":       a.cfg.PayPalEnabled(),
		"sheets":       a.cfg.SheetsEnabled(),
	})

	return a.server.ListenAndServe()
}

func (a *Application) Shutdown(ctx context.Context) error {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			return err
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	return nil
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initCache() {
	c, err := cache.NewCache(a.cfg.RedisURL, a.cfg.EnableRedis)
	if err != nil {
		logger.Warn("Redis unavailable, continuing without cache", map[string]interface{}{
			"error": err.Error(),
		})
		c, _ = cache.NewCache("", false)
	}
	a.cache = c
}

// initProviders builds an adapter per configured payment vendor. A vendor
// with missing credentials is simply absent from the map; requests naming it
// fail with a configuration error instead of a panic.
func (a *Application) initProviders() error {
	a.providers = make(map[string]payments.Provider)

	if a.cfg.MercadoPagoEnabled() {
		provider, err := mercadopago.NewProvider(a.cfg.MercadoPagoAccessToken)
		if err != nil {
			return fmt.Errorf("failed to initialize Mercado Pago provider: %w", err)
		}
		a.providers[models.ProviderMercadoPago] = provider
	} else {
		logger.Warn("Mercado Pago is not configured", nil)
	}

	if a.cfg.PayPalEnabled() {
		provider, err := paypal.NewProvider(a.cfg.PayPalClientID, a.cfg.PayPalClientSecret, a.cfg.PayPalBaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize PayPal provider: %w", err)
		}
		a.providers[models.ProviderPayPal] = provider
	} else {
		logger.Warn("PayPal is not configured", nil)
	}

	return nil
}

// initRepositories wires the spreadsheet-backed ledger and catalog. Without
// Sheets credentials the ledger stays nil (orders cannot be recorded) and the
// catalog falls back to the static demo set.
func (a *Application) initRepositories() error {
	if !a.cfg.SheetsEnabled() {
		logger.Warn("Google Sheets is not configured, using demo catalog and no order ledger", nil)
		a.repositories = repositoryContainer{
			Product: repository.NewStaticProductRepository(),
		}
		return nil
	}

	client, err := sheets.NewClient(a.cfg.GoogleSheetID, a.cfg.GoogleClientEmail, a.cfg.GooglePrivateKey)
	if err != nil {
		return fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	a.repositories = repositoryContainer{
		Order:   repository.NewOrderRepository(client, a.cfg.OrdersSheetRange),
		Product: repository.NewProductRepository(client, a.cfg.ProductsSheetRange),
	}
	return nil
}

func (a *Application) initServices() {
	mailer := service.NewEmailService(
		a.cfg.EnableEmail,
		a.cfg.SMTPHost,
		a.cfg.SMTPPort,
		a.cfg.SMTPUsername,
		a.cfg.SMTPPassword,
		a.cfg.SMTPFrom,
	)

	notification := service.NewNotificationService(mailer, a.cfg.AdminEmail)

	a.services = serviceContainer{
		Product:      service.NewProductService(a.repositories.Product, a.cache),
		Checkout:     service.NewCheckoutService(a.providers, a.cache, a.cfg.BaseURL, a.cfg.DefaultCurrency),
		Reconcile:    service.NewReconcileService(a.providers, a.repositories.Order, notification, a.cache),
		Notification: notification,
		Order:        service.NewOrderService(a.repositories.Order),
	}
}

func (a *Application) initHandlers() {
	a.handlers = handlerContainer{
		Product:  handlers.NewProductHandler(a.services.Product),
		Checkout: handlers.NewCheckoutHandler(a.services.Checkout, a.services.Reconcile),
		Webhook:  handlers.NewWebhookHandler(a.services.Reconcile),
		Order:    handlers.NewOrderHandler(a.services.Order),
	}
}

func (a *Application) initRouter() {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.GinLogger())
	router.Use(middleware.RequestID())
	if a.cfg.EnableMetrics {
		router.Use(middleware.Metrics())
	}
	router.Use(middleware.RateLimit(a.cfg.RateLimitRequests, a.cfg.RateLimitWindow))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/products", a.handlers.Product.List)
		v1.POST("/checkout", a.handlers.Checkout.Create)
		v1.POST("/paypal/capture", a.handlers.Checkout.CapturePayPal)
		v1.POST("/webhooks/mercadopago", a.handlers.Webhook.MercadoPago)
		v1.GET("/orders", a.handlers.Order.List)
	}

	a.router = router
}
