package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"credit-approval/internal/adapters/cache"
	"credit-approval/internal/adapters/http/handlers"
	"credit-approval/internal/adapters/http/middleware"
	"credit-approval/internal/adapters/http/routes"
	"credit-approval/internal/adapters/messaging"
	"credit-approval/internal/adapters/persistence/models"
	"credit-approval/internal/adapters/persistence/repositories"
	"credit-approval/internal/config"
	"credit-approval/internal/core/services"

	"github.com/gofiber/fiber/v2"

	_ "credit-approval/docs" // Swagger docs
)

// @title Credit Approval API
// @version 1.0
// @description Credit scoring, loan eligibility and loan origination.

// @BasePath /api

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-KEY

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	// Auto migrate (creates tables if not exist)
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	// Score cache
	var scoreCache services.ScoreCache = cache.NopScoreCache{}
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisScoreCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ScoreTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("⚠️ Redis unavailable at %s, score cache disabled: %v", cfg.Redis.Addr, err)
			redisCache.Close()
		} else {
			log.Printf("✅ Score cache connected [%s]", cfg.Redis.Addr)
			scoreCache = redisCache
			defer redisCache.Close()
		}
		cancel()
	}

	// Loan event publisher
	var publisher services.EventPublisher = messaging.LogPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Printf("✅ Loan events published to Kafka topic %s", cfg.Kafka.Topic)
	}

	// Initialize repositories
	customerRepo := repositories.NewCustomerRepository(db)
	loanRepo := repositories.NewLoanRepository(db)
	ingestionRepo := repositories.NewIngestionRepository(db)
	uow := repositories.NewUnitOfWork(db, cfg.LockTimeout)

	// Initialize services
	runner := services.NewJobRunner(cfg.Jobs.Workers, cfg.Jobs.QueueSize)
	customerService := services.NewCustomerService(customerRepo)
	loanService := services.NewLoanService(customerRepo, loanRepo, uow, scoreCache, publisher, cfg.RateMode)
	ingestionService := services.NewIngestionService(ingestionRepo, customerRepo, loanRepo, uow, scoreCache, runner, cfg.DataDir)
	runner.Start(ingestionService.Run)
	defer runner.Stop()

	// Bootstrap data on an empty datastore
	if cfg.Jobs.IngestOnEmpty {
		if _, err := config.NewSeeder(customerRepo, ingestionService).Run(context.Background()); err != nil {
			log.Printf("⚠️ Warning: bootstrap ingestion not queued: %v", err)
		}
	}

	// Start Cron Service for matured loans and scheduled ingestion
	cronService := services.NewCronService(loanRepo, uow, scoreCache, ingestionService, cfg.Jobs.CloseSchedule, cfg.Jobs.IngestSchedule)
	if err := cronService.Start(); err != nil {
		log.Fatalf("❌ Failed to start cron: %v", err)
	}
	defer cronService.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Credit Approval API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	// Setup routes
	routes.Setup(app, &routes.Handlers{
		Health:    handlers.NewHealthHandler(db, cfg.AppMode),
		Customer:  handlers.NewCustomerHandler(customerService),
		Loan:      handlers.NewLoanHandler(loanService),
		Ingestion: handlers.NewIngestionHandler(ingestionService),
	}, cfg)

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
