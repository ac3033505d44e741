package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"catalog-service/internal/clients"
	"catalog-service/internal/config"
	"catalog-service/internal/events"
	"catalog-service/internal/handlers"
	"catalog-service/internal/importer"
	"catalog-service/internal/middleware"
	"catalog-service/internal/repository"
	"catalog-service/internal/services"
)

// @title Catalog Service API
// @version 1.0.0
// @description Farm produce catalog service with bulk spreadsheet ingestion
// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8093
// @BasePath /api/v1

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Redis is best-effort; the service keeps working without the caches
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	redisClient := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	stagingRepo := repository.NewStagingRepository(db, redisClient)
	catalogRepo := repository.NewCatalogRepository(db, redisClient)

	// Event publishing is audit-only and optional
	var eventsPublisher *events.Publisher
	if cfg.EventsEnabled {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("Event publishing disabled, skipping NATS initialization")
	}
	defer eventsPublisher.Close()

	imageClient := clients.NewImageClient(cfg.ImageServiceURL)

	validator := importer.NewValidator(catalogRepo, catalogRepo, logger)
	templates := importer.NewTemplateGenerator(catalogRepo)

	ingestionService := services.NewIngestionService(stagingRepo, validator, eventsPublisher, logger)
	stagingService := services.NewStagingService(stagingRepo, validator, imageClient, eventsPublisher, logger)
	commitService := services.NewCommitService(stagingRepo, catalogRepo, eventsPublisher, cfg.CommitPageDelay, logger)

	pages := handlers.PageLimits{Default: cfg.DefaultPageSize, Max: cfg.MaxPageSize}
	importHandler := handlers.NewImportHandler(ingestionService, stagingService, commitService, templates, imageClient, pages, logger)
	catalogHandler := handlers.NewCatalogHandler(catalogRepo, pages, logger)
	healthHandler := handlers.NewHealthHandler(db)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-ID", "X-User-Role", "X-Supplier-ID"},
		ExposeHeaders:    []string{"Content-Disposition"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	// Health check endpoints (no auth required)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	api := router.Group("/api/v1")
	api.Use(middleware.AuthContext())

	// Public category browsing
	api.GET("/categories", catalogHandler.ListCategories)

	suppliers := api.Group("/suppliers/:supplierId")
	suppliers.Use(middleware.SupplierAccess())
	{
		catalog := suppliers.Group("/catalog")
		{
			catalog.GET("/template", importHandler.GetTemplate)
			catalog.POST("/import", importHandler.UploadSpreadsheet)
			catalog.GET("/status", importHandler.GetStatus)
			catalog.POST("/confirm", importHandler.ConfirmImport)

			catalog.GET("/rows", importHandler.ListRows)
			catalog.DELETE("/rows", importHandler.ClearStaging)
			catalog.GET("/rows/:rowId", importHandler.GetRow)
			catalog.PATCH("/rows/:rowId", importHandler.UpdateRow)

			catalog.POST("/rows/:rowId/images", importHandler.AttachRowImages)
			catalog.POST("/rows/:rowId/images/upload", importHandler.UploadRowImage)
			catalog.PUT("/rows/:rowId/images/main", importHandler.SetRowMainImage)
			catalog.DELETE("/rows/:rowId/images/:imageRef", importHandler.RemoveRowImage)
		}

		products := suppliers.Group("/products")
		{
			products.GET("", catalogHandler.ListProducts)
			products.GET("/:productId", catalogHandler.GetProduct)
			products.PUT("/:productId", catalogHandler.UpdateProduct)
			products.DELETE("/:productId", catalogHandler.DeleteProduct)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Catalog service starting on port %s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down catalog-service...")
	log.Println("Catalog service stopped")
}
