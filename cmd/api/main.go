package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "backend/api/swagger" // swagger docs
	"backend/internal/database"
	"backend/internal/event"
	"backend/internal/gateway"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/queue"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Court Office Inventory API
// @version         1.0
// @description     Asset and office-supply inventory with approval workflows and WhatsApp notifications.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := envOr("DB_HOST", "localhost")
	dbPort := envOr("DB_PORT", "5432")
	dbUser := envOr("DB_USER", "postgres")
	dbPassword := envOr("DB_PASSWORD", "postgres")
	dbName := envOr("DB_NAME", "postgres")
	dbSslMode := envOr("DB_SSLMODE", "disable")

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	if err := database.SeedRoles(db); err != nil {
		log.Fatalf("Role seeding failed: %v", err)
	}

	middleware.InitPermissionMiddleware(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	itemRepo := repository.NewItemRepository(db)
	supplyRepo := repository.NewSupplyRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	itemRequestRepo := repository.NewItemRequestRepository(db)
	supplyRequestRepo := repository.NewSupplyRequestRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	logRepo := repository.NewNotificationLogRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	bus := event.NewBus()

	approvalLevels := envIntOr("APPROVAL_LEVELS", 3)

	userService := service.NewUserService(userRepo, tokenRepo)
	auditService := service.NewAuditService(auditRepo)
	inventoryService := service.NewInventoryService(itemRepo, supplyRepo, movementRepo, auditRepo, txManager, bus)
	itemRequestService := service.NewItemRequestService(
		itemRequestRepo, itemRepo, movementRepo, auditRepo, txManager, bus, approvalLevels)
	supplyRequestService := service.NewSupplyRequestService(
		supplyRequestRepo, supplyRepo, movementRepo, auditRepo, txManager, bus)
	notificationService := service.NewNotificationService(userRepo, prefRepo, logRepo, outboxRepo)

	// Domain events fan out to the notification router and live dashboards
	bus.Subscribe(notificationService.HandleEvent)
	bus.Subscribe(websocket.Broadcaster(wsHub))

	// Delivery pipeline: worker pool draining the outbox plus cron maintenance
	whatsapp := gateway.NewWhatsAppGateway(os.Getenv("WHATSAPP_API_URL"), os.Getenv("WHATSAPP_API_TOKEN"))
	worker := queue.NewWorker(outboxRepo, userRepo, prefRepo, logRepo, whatsapp)
	pool := queue.NewPool(worker, envIntOr("NOTIFICATION_WORKERS", 4))
	pool.Start(ctx)
	defer pool.Stop()

	scheduler := queue.NewScheduler(itemRepo, supplyRepo, outboxRepo, notificationService)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Scheduler failed to start: %v", err)
	}
	defer scheduler.Stop()

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	inventoryHandler := handler.NewInventoryHandler(inventoryService)
	requestHandler := handler.NewRequestHandler(itemRequestService)
	supplyRequestHandler := handler.NewSupplyRequestHandler(supplyRequestService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	inventoryHandler.RegisterRoutes(router.Group(""))
	requestHandler.RegisterRoutes(router.Group(""))
	supplyRequestHandler.RegisterRoutes(router.Group(""))
	notificationHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := envOr("PORT", "8080")

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		cancel()
	}()

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Invalid %s value %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}
