package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/nqhuy/render-be/internal/api/handler"
	"github.com/nqhuy/render-be/internal/api/producer"
	"github.com/nqhuy/render-be/internal/api/router"
	"github.com/nqhuy/render-be/internal/api/storage"
	"github.com/nqhuy/render-be/internal/config"
	"github.com/nqhuy/render-be/shared/logger"
	"github.com/nqhuy/render-be/shared/objectstore"
	"github.com/nqhuy/render-be/shared/postgresql"
	"github.com/nqhuy/render-be/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize RabbitMQ client. The connect loop runs in the
	// background so the API can serve reads and uploads while the
	// broker is down; Publish fails fast until the loop succeeds.
	rabbitClient := rabbitmq.NewClient(&rabbitmq.Config{
		Host:            cfg.RabbitMQ.Host,
		Port:            cfg.RabbitMQ.Port,
		User:            cfg.RabbitMQ.User,
		Password:        cfg.RabbitMQ.Password,
		VHost:           cfg.RabbitMQ.VHost,
		QueueName:       cfg.RabbitMQ.Queue.Name,
		QueueDurable:    cfg.RabbitMQ.Queue.Durable,
		QueueAutoDelete: cfg.RabbitMQ.Queue.AutoDelete,
		QueueExclusive:  cfg.RabbitMQ.Queue.Exclusive,
		RetryInterval:   cfg.RabbitMQ.Connection.RetryInterval,
		Heartbeat:       cfg.RabbitMQ.Connection.Heartbeat,
	}, appLogger.Logger)

	go func() {
		if err := rabbitClient.Connect(ctx); err != nil {
			appLogger.Error("RabbitMQ connect loop stopped",
				slog.Any("error", err),
			)
		}
	}()

	// Initialize object storage client
	objectClient, err := objectstore.NewClient(ctx, &objectstore.Config{
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		Endpoint:  cfg.Storage.Endpoint,
		PathStyle: cfg.Storage.PathStyle,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}

	appLogger.Info("Object storage client ready",
		slog.String("bucket", cfg.Storage.Bucket),
	)

	// Wire storage, producer, and handlers
	store := storage.NewStorage(dbClient)
	renderProducer := producer.NewProducer(store, rabbitClient, appLogger.Logger)

	r := initRouter(cfg, appLogger.Logger, store, objectClient, renderProducer)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	// Cleanup function to close all resources
	cleanup := func() {
		shutdownCancel()
		cancel()
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(
	cfg *config.Config,
	logger *slog.Logger,
	store handler.Storage,
	uploader handler.Uploader,
	renderProducer handler.RenderProducer,
) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize handler dependencies
	handlerDeps := &handler.Dependencies{
		Logger:         logger,
		Storage:        store,
		Uploader:       uploader,
		Producer:       renderProducer,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}

	// Setup router
	return router.SetupRouter(handlerDeps)
}
