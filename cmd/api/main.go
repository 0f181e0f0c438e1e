package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/sangkips/storefront-api/internal/config"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	domainRepo "github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/internal/infrastructure/database"
	"github.com/sangkips/storefront-api/internal/infrastructure/memory"
	"github.com/sangkips/storefront-api/internal/infrastructure/messaging"
	"github.com/sangkips/storefront-api/internal/infrastructure/payment"
	"github.com/sangkips/storefront-api/internal/infrastructure/repository"
	"github.com/sangkips/storefront-api/internal/presentation/http/handler"
	"github.com/sangkips/storefront-api/internal/presentation/http/middleware"
	"github.com/sangkips/storefront-api/internal/presentation/http/routes"
	"github.com/sangkips/storefront-api/pkg/email"
	"github.com/sangkips/storefront-api/pkg/logger"
	"github.com/sangkips/storefront-api/pkg/metrics"
	"github.com/sangkips/storefront-api/pkg/printer"
	"github.com/sangkips/storefront-api/pkg/tracing"
	"github.com/sangkips/storefront-api/pkg/utils"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

// repositories is the storage backend selected by DB_DRIVER
type repositories struct {
	users       domainRepo.UserRepository
	products    domainRepo.ProductRepository
	orders      domainRepo.OrderRepository
	receipts    domainRepo.ReceiptRepository
	sequences   domainRepo.SequenceRepository
	settings    domainRepo.SettingsRepository
	analytics   domainRepo.AnalyticsRepository
	idempotency domainRepo.IdempotencyRepository
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	zl, err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.App.LogLevel,
		Environment: cfg.App.Env,
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Endpoint:       cfg.Tracing.Endpoint,
		URLPath:        cfg.Tracing.URLPath,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
	})
	if err != nil {
		zl.Fatal("failed to set up tracing", zap.Error(err))
	}

	repos, err := openRepositories(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to open storage", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}

	reg := metrics.NewRegistry(cfg.App.Name)
	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	// Domain events
	publisher := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, zl)

	// Card payments
	var gateway service.PaymentGateway
	if cfg.Stripe.SecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.Stripe.SecretKey)
	} else {
		zl.Info("stripe secret not configured, card payments are disabled")
	}

	// Receipt e-mails
	var mailer service.ReceiptMailer
	emailCfg := email.EmailConfig{
		SMTPHost:     cfg.Email.SMTPHost,
		SMTPPort:     cfg.Email.SMTPPort,
		SMTPUsername: cfg.Email.SMTPUsername,
		SMTPPassword: cfg.Email.SMTPPassword,
		FromName:     cfg.Email.FromName,
		FromEmail:    cfg.Email.FromEmail,
		FrontendURL:  cfg.Email.FrontendURL,
	}
	if emailCfg.Enabled() {
		mailer = email.NewEmailService(emailCfg)
	}

	// Thermal printer
	thermalPrinter, err := printer.New(cfg.Printer.Type, cfg.Printer.USBPath, cfg.Printer.Address)
	if err != nil {
		zl.Warn("failed to initialize printer", zap.Error(err))
		thermalPrinter = printer.NewNullPrinter()
	}

	// Initialize services
	numberer := service.NewReceiptNumberer(repos.sequences, repos.receipts)
	if err := numberer.Sync(ctx); err != nil {
		zl.Fatal("failed to sync receipt numbers", zap.Error(err))
	}

	authService := service.NewAuthService(repos.users, jwtManager, zl)
	userService := service.NewUserService(repos.users, authService, zl)
	inventoryService := service.NewInventoryService(repos.products, reg, zl)
	productService := service.NewProductService(repos.products, inventoryService)
	deliveryCalculator := service.NewDeliveryCalculator(cfg.Delivery)
	paymentService := service.NewPaymentService(gateway, cfg.Order.Currency, zl)
	orderService := service.NewOrderService(repos.orders, repos.products, inventoryService, deliveryCalculator,
		paymentService, publisher, reg, zl, cfg.Order.TotalTolerance)
	receiptService := service.NewReceiptService(repos.receipts, repos.orders, repos.settings, numberer,
		publisher, mailer, reg, zl, cfg.Order.TotalTolerance)
	salesService := service.NewSalesService(repos.analytics, cfg.App.Location())
	settingsService := service.NewSettingsService(repos.settings)
	printerService := service.NewPrinterService(thermalPrinter, repos.receipts, repos.settings,
		cfg.Printer.Type, cfg.Printer.CharWidth, zl)

	// Initialize handlers
	handlers := &routes.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		User:     handler.NewUserHandler(userService),
		Product:  handler.NewProductHandler(productService),
		Order:    handler.NewOrderHandler(orderService),
		Receipt:  handler.NewReceiptHandler(receiptService),
		Sales:    handler.NewSalesHandler(salesService),
		Delivery: handler.NewDeliveryHandler(deliveryCalculator),
		Payment:  handler.NewPaymentHandler(paymentService),
		Settings: handler.NewSettingsHandler(settingsService),
		Printer:  handler.NewPrinterHandler(printerService),
	}

	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(
		cfg.RateLimit.Requests,
		time.Duration(cfg.RateLimit.Duration)*time.Second,
	))
	defer rateLimiter.Stop()

	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: repos.idempotency,
		Metrics:         reg,
		Logger:          zl,
		RateLimiter:     rateLimiter,
	})

	go purgeIdempotencyKeys(ctx, repos.idempotency, zl)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("starting server",
			zap.String("name", cfg.App.Name),
			zap.String("port", cfg.App.Port),
			zap.String("environment", cfg.App.Env),
			zap.String("driver", cfg.Database.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("http shutdown", zap.Error(err))
	}
	if closer, ok := publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			zl.Error("kafka close", zap.Error(err))
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zl.Error("tracing shutdown", zap.Error(err))
	}
}

func openRepositories(ctx context.Context, cfg *config.Config, zl *zap.Logger) (*repositories, error) {
	if cfg.Database.Driver == "memory" {
		zl.Warn("using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		repos := &repositories{
			users:       memory.NewUserRepository(store),
			products:    memory.NewProductRepository(store),
			orders:      memory.NewOrderRepository(store),
			receipts:    memory.NewReceiptRepository(store),
			sequences:   memory.NewSequenceRepository(store),
			settings:    memory.NewSettingsRepository(store),
			analytics:   memory.NewAnalyticsRepository(store),
			idempotency: memory.NewIdempotencyRepository(store),
		}
		if err := seedAdmin(ctx, repos.users, cfg.Admin, zl); err != nil {
			return nil, err
		}
		return repos, nil
	}

	db, err := database.NewPostgresDB(&cfg.Database, cfg.App.LogLevel, zl)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db, zl); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := database.SeedDefaultData(db, cfg.Admin, zl); err != nil {
		zl.Warn("failed to seed default data", zap.Error(err))
	}

	return &repositories{
		users:       repository.NewUserRepository(db),
		products:    repository.NewProductRepository(db),
		orders:      repository.NewOrderRepository(db),
		receipts:    repository.NewReceiptRepository(db),
		sequences:   repository.NewSequenceRepository(db),
		settings:    repository.NewSettingsRepository(db),
		analytics:   repository.NewAnalyticsRepository(db),
		idempotency: repository.NewIdempotencyRepository(db),
	}, nil
}

// seedAdmin creates the configured super admin in the memory store
func seedAdmin(ctx context.Context, users domainRepo.UserRepository, admin config.AdminConfig, zl *zap.Logger) error {
	if admin.Email == "" || admin.Password == "" {
		return nil
	}
	hashed, err := utils.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	name := admin.Name
	if name == "" {
		name = "Super Admin"
	}
	user := &entity.User{
		Name:         name,
		Email:        strings.ToLower(admin.Email),
		Password:     hashed,
		Role:         enum.RoleAdmin,
		IsSuperAdmin: true,
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("create super admin: %w", err)
	}
	zl.Info("super admin created", zap.String("email", user.Email))
	return nil
}

func purgeIdempotencyKeys(ctx context.Context, repo domainRepo.IdempotencyRepository, zl *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.DeleteExpired(ctx); err != nil {
				zl.Warn("failed to purge idempotency keys", zap.Error(err))
			}
		}
	}
}
