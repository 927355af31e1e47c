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

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/nqhuy/render-be/internal/config"
	"github.com/nqhuy/render-be/internal/telemetry"
	"github.com/nqhuy/render-be/internal/worker"
	workerstorage "github.com/nqhuy/render-be/internal/worker/storage"
	"github.com/nqhuy/render-be/internal/worker/transcoder"
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
	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting worker service",
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

	// Initialize RabbitMQ client; the worker drives the connect loop
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

	// Worker identity shows up in the consumer tag and logs
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}
	workerID := fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])

	// Create worker instance
	workerInstance := worker.NewWorker(&worker.Config{
		Logger:  appLogger.Logger,
		Jobs:    workerstorage.NewStorage(dbClient.GetDB(), appLogger.Logger),
		Objects: objectClient,
		Transcoder: transcoder.NewFFmpeg(transcoder.Options{
			FFmpegPath:  cfg.Transcoder.FFmpegPath,
			VideoCodec:  cfg.Transcoder.VideoCodec,
			CRF:         cfg.Transcoder.CRF,
			OverlayText: cfg.Transcoder.OverlayText,
			FontPath:    cfg.Transcoder.FontPath,
			Timeout:     cfg.Transcoder.Timeout,
		}, appLogger.Logger),
		Broker:   rabbitClient,
		TempDir:  cfg.Worker.TempDir,
		WorkerID: workerID,
	})

	// Expose Prometheus metrics when a port is configured
	var metricsSrv *http.Server
	if cfg.Worker.MetricsPort > 0 {
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
			Handler: telemetry.Handler(),
		}

		go func() {
			appLogger.Info("Metrics server listening",
				slog.String("address", metricsSrv.Addr),
			)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLogger.Error("Metrics server failed",
					slog.Any("error", err),
				)
			}
		}()
	}

	// Start worker in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := workerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Worker service started successfully",
		slog.String("worker_id", workerID),
	)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err != nil && err != context.Canceled {
			appLogger.Error("Worker error",
				slog.Any("error", err),
			)
			return err
		}
	}

	// Cancel context to stop the consume loop
	cancel()

	shutdownTimeout := cfg.Worker.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Wait for the in-flight job to finish
	select {
	case <-errChan:
		appLogger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	// Cleanup function to close all resources
	cleanup := func() {
		if metricsSrv != nil {
			metricsSrv.Shutdown(shutdownCtx)
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
		if dbClient != nil {
			dbClient.Close()
		}
	}
	cleanup()

	appLogger.Info("Worker service shutdown complete")
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
