package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "laundry/api/swagger" // swagger docs
	"laundry/internal/apperror"
	"laundry/internal/cache"
	"laundry/internal/config"
	"laundry/internal/database"
	"laundry/internal/handler"
	"laundry/internal/lock"
	"laundry/internal/logger"
	"laundry/internal/middleware"
	"laundry/internal/model"
	"laundry/internal/repository"
	"laundry/internal/service"
	"laundry/internal/storage"
	"laundry/internal/websocket"
	"laundry/pkg/validation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Laundry Back-Office API
// @version         1.0
// @description     Orders, payments, invoice numbering, expenses and dashboards for a laundry business.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load("configs/.env")
	if err != nil {
		logger.Get().WithError(err).Fatal("invalid configuration")
	}
	log := logger.Setup(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(cfg.DSN(), !cfg.IsRelease())
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	log.Info("connected to PostgreSQL")

	if err := validation.Register(); err != nil {
		log.WithError(err).Fatal("failed to register validators")
	}

	// Redis backs the dashboard cache and the invoice locks. Without it
	// both degrade to in-process behavior.
	var rdb *redis.Client
	locker := lock.NewNoopLocker()
	if cfg.RedisEnabled() {
		rdb, err = cache.Connect(ctx, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, running without cache and distributed locks")
			rdb = nil
		} else {
			defer rdb.Close()
			locker = lock.NewRedisLocker(rdb)
			log.WithField("addr", cfg.RedisAddress).Info("connected to Redis")
		}
	}
	dashboardCache := cache.New(rdb, cfg.DashboardCacheTTL)

	var receipts storage.Uploader
	if cfg.ReceiptBucket != "" {
		uploader, err := storage.NewGCSUploader(ctx, cfg.ReceiptBucket, cfg.GCSCredentialsFile)
		if err != nil {
			log.WithError(err).Warn("receipt storage unavailable, uploads disabled")
		} else {
			defer uploader.Close()
			receipts = uploader
		}
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)

	clock := service.Clock(time.Now)

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	serviceTypeRepo := repository.NewServiceTypeRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	settingsRepo := repository.NewInvoiceSettingsRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	userService := service.NewUserService(userRepo, service.TokenConfig{
		Secret:     []byte(cfg.JWTSecret),
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, clock)
	catalogService := service.NewCatalogService(branchRepo, serviceTypeRepo, categoryRepo)
	customerService := service.NewCustomerService(customerRepo, orderRepo, auditRepo, txManager, cfg.DefaultPhoneRegion)
	invoiceService := service.NewInvoiceNumberService(service.InvoiceNumberServiceDeps{
		Settings:  settingsRepo,
		Orders:    orderRepo,
		Audit:     auditRepo,
		TxManager: txManager,
		Locker:    locker,
		Clock:     clock,
	})
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Orders:            orderRepo,
		Payments:          paymentRepo,
		Customers:         customerRepo,
		Branches:          branchRepo,
		ServiceTypes:      serviceTypeRepo,
		Categories:        categoryRepo,
		Audit:             auditRepo,
		TxManager:         txManager,
		InvoiceNumbers:    invoiceService,
		Locker:            locker,
		Events:            wsHub,
		Cache:             dashboardCache,
		Clock:             clock,
		PhoneRegion:       cfg.DefaultPhoneRegion,
		StrictTransitions: cfg.StrictStatusTransitions,
	})
	expenseService := service.NewExpenseService(service.ExpenseServiceDeps{
		Expenses:  expenseRepo,
		Branches:  branchRepo,
		Audit:     auditRepo,
		TxManager: txManager,
		Receipts:  receipts,
		Events:    wsHub,
		Cache:     dashboardCache,
		Clock:     clock,
	})
	dashboardService := service.NewDashboardService(dashboardRepo, dashboardCache, clock)
	auditService := service.NewAuditService(auditRepo)

	seedAdmin(ctx, cfg, userService)

	// Initialize Handlers
	auth := middleware.NewAuth([]byte(cfg.JWTSecret), cfg.IsRelease())
	userHandler := handler.NewUserHandler(userService, auth, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	catalogHandler := handler.NewCatalogHandler(catalogService, auth)
	customerHandler := handler.NewCustomerHandler(customerService, auth)
	orderHandler := handler.NewOrderHandler(orderService, auth)
	invoiceSettingsHandler := handler.NewInvoiceSettingsHandler(invoiceService, auth)
	expenseHandler := handler.NewExpenseHandler(expenseService, auth)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, auth, clock)
	auditHandler := handler.NewAuditHandler(auditService, auth)

	// Set up Gin Router
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, auth.Secret())
	})

	// API Routing
	api := router.Group("")
	userHandler.RegisterRoutes(api)
	catalogHandler.RegisterRoutes(api)
	customerHandler.RegisterRoutes(api)
	orderHandler.RegisterRoutes(api)
	invoiceSettingsHandler.RegisterRoutes(api)
	expenseHandler.RegisterRoutes(api)
	dashboardHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// seedAdmin creates the first admin account from ADMIN_EMAIL and
// ADMIN_PASSWORD. An existing account is left untouched.
func seedAdmin(ctx context.Context, cfg *config.Config, users service.UserService) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	_, err := users.CreateUser(ctx, service.CreateUserRequest{
		Username: "admin",
		Email:    cfg.AdminEmail,
		Phone:    "-",
		Password: cfg.AdminPassword,
		Role:     model.RoleAdmin,
	})
	switch {
	case err == nil:
		logger.Get().WithField("email", cfg.AdminEmail).Info("admin account created")
	case apperror.IsCode(err, apperror.CodeDuplicateUser):
	default:
		logger.Get().WithError(err).Warn("failed to create admin account")
	}
}
