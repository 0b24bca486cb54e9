package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/beerhive/fulfillment/pkg/cloudevents"
	"github.com/beerhive/fulfillment/pkg/kafka"
	"github.com/beerhive/fulfillment/pkg/logging"
	"github.com/beerhive/fulfillment/pkg/metrics"
	"github.com/beerhive/fulfillment/pkg/middleware"
	"github.com/beerhive/fulfillment/pkg/mongodb"
	"github.com/beerhive/fulfillment/pkg/outbox"
	"github.com/beerhive/fulfillment/pkg/tracing"

	"github.com/beerhive/fulfillment/internal/api/handlers"
	"github.com/beerhive/fulfillment/internal/application"
	"github.com/beerhive/fulfillment/internal/feed"
	"github.com/beerhive/fulfillment/internal/infrastructure/clients"
	mongoRepo "github.com/beerhive/fulfillment/internal/infrastructure/mongodb"
)

const serviceName = "fulfillment-service"

func main() {
	// Setup enhanced logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting fulfillment-service API")

	// Load configuration
	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing - don't exit
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// Initialize MongoDB
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize Kafka producer with instrumentation
	kafkaProducer := kafka.NewProducer(config.Kafka)
	instrumentedProducer := kafka.NewInstrumentedProducer(kafkaProducer, m, logger)
	defer instrumentedProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize CloudEvents factory
	eventFactory := cloudevents.NewEventFactory("/beerhive/fulfillment-service")

	// Initialize task repository with transactional outbox
	taskRepo := mongoRepo.NewTaskRepository(mongoClient.Database(), eventFactory, m)

	// Initialize and start outbox publisher
	outboxPublisher := outbox.NewPublisher(
		taskRepo.GetOutboxRepository(),
		instrumentedProducer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Initialize downstream service clients
	catalogClient := clients.NewCatalogServiceClient(config.CatalogServiceURL, logger)
	logger.Info("Catalog service client initialized", "url", config.CatalogServiceURL)

	inventoryClient := clients.NewInventoryServiceClient(config.InventoryServiceURL, logger)
	logger.Info("Inventory service client initialized", "url", config.InventoryServiceURL)

	orderClient := clients.NewOrderStoreClient(config.OrderStoreURL, logger)
	logger.Info("Order store client initialized", "url", config.OrderStoreURL)

	// Initialize station feed hub
	hub := feed.NewHub(logger, m)

	// Initialize application services
	routingService := application.NewRoutingService(taskRepo, catalogClient, orderClient, hub, logger, m)
	confirmationService := application.NewConfirmationService(inventoryClient, orderClient, routingService, logger, m)
	lifecycleService := application.NewLifecycleService(taskRepo, hub, logger, m)
	cancellationService := application.NewCancellationService(taskRepo, hub, logger, m)
	feedService := application.NewFeedService(taskRepo, logger)

	// Setup Gin router with middleware
	router := gin.New()

	// Add CORS middleware for station display access
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173", "http://localhost:9080"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", "X-Correlation-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-Correlation-ID"},
		AllowCredentials: true,
	}))

	// Apply standard middleware (includes recovery, request ID, correlation, logging, error handling)
	middlewareConfig := middleware.DefaultConfig(serviceName, logger.Logger)
	middleware.Setup(router, middlewareConfig)

	// Add metrics middleware
	router.Use(middleware.MetricsMiddleware(m))

	// Add tracing middleware
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	// Handle 404 and 405 errors
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API routes
	api := router.Group("/api/v1")

	orderHandlers := handlers.NewOrderHandlers(confirmationService, routingService, cancellationService, logger)
	orderHandlers.RegisterRoutes(api)

	taskHandlers := handlers.NewTaskHandlers(lifecycleService, cancellationService, logger)
	taskHandlers.RegisterRoutes(api)

	stationHandlers := handlers.NewStationHandlers(feedService, cancellationService, hub, logger)
	stationHandlers.RegisterRoutes(api)

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr          string
	MongoDB             *mongodb.Config
	Kafka               *kafka.Config
	CatalogServiceURL   string
	InventoryServiceURL string
	OrderStoreURL       string
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8004"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "fulfillment_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ConsumerGroup: serviceName,
			ClientID:      serviceName,
			BatchSize:     100,
			BatchTimeout:  10 * time.Millisecond,
			RequiredAcks:  -1,
		},
		CatalogServiceURL:   getEnv("CATALOG_SERVICE_URL", "http://localhost:8001"),
		InventoryServiceURL: getEnv("INVENTORY_SERVICE_URL", "http://localhost:8002"),
		OrderStoreURL:       getEnv("ORDER_STORE_URL", "http://localhost:8003"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
