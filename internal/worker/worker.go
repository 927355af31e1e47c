package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nqhuy/render-be/internal/telemetry"
	"github.com/nqhuy/render-be/internal/worker/domain"
	"github.com/nqhuy/render-be/internal/worker/transcoder"
)

// JobStore records job status transitions durably
type JobStore interface {
	MarkProcessing(ctx context.Context, jobID string) error
	MarkDone(ctx context.Context, jobID, outputURL string) error
	MarkFailed(ctx context.Context, jobID, detail string) error
}

// ObjectStore moves asset bytes in and out of object storage
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Broker is the queue connection the worker consumes from. Connect
// blocks until the broker is reachable, retrying at a fixed interval.
type Broker interface {
	Connect(ctx context.Context) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Config holds worker dependencies
type Config struct {
	Logger      *slog.Logger
	Jobs        JobStore
	Objects     ObjectStore
	Transcoder  transcoder.Transcoder
	Broker      Broker
	TempDir     string
	WorkerID    string
}

// Worker consumes render messages one at a time and drives each job
// through its state machine. It holds no job state of its own; a crash
// loses at most the in-flight message, which the broker redelivers.
type Worker struct {
	logger     *slog.Logger
	jobs       JobStore
	objects    ObjectStore
	transcoder transcoder.Transcoder
	broker     Broker
	tempDir    string
	workerID   string
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:     cfg.Logger,
		jobs:       cfg.Jobs,
		objects:    cfg.Objects,
		transcoder: cfg.Transcoder,
		broker:     cfg.Broker,
		tempDir:    cfg.TempDir,
		workerID:   cfg.WorkerID,
	}
}

// Start runs the consume loop until ctx is canceled. A dropped broker
// connection re-enters the connect loop; nothing is consumed while
// disconnected.
func (w *Worker) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.tempDir, 0o755); err != nil {
		return fmt.Errorf("failed to create temp dir %q: %w", w.tempDir, err)
	}

	w.logger.Info("Worker starting",
		slog.String("worker_id", w.workerID),
		slog.String("temp_dir", w.tempDir),
	)

	for {
		if err := w.broker.Connect(ctx); err != nil {
			return err
		}

		deliveries, err := w.broker.Consume(w.workerID)
		if err != nil {
			w.logger.Error("Failed to start consuming, reconnecting",
				slog.Any("error", err),
			)
			continue
		}

		if err := w.consumeLoop(ctx, deliveries); err != nil {
			return err
		}

		w.logger.Warn("Delivery channel closed, reconnecting")
	}
}

// consumeLoop drains one delivery channel. Returns nil when the
// channel closes (reconnect) and ctx.Err when canceled (shutdown).
func (w *Worker) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker stopping, context canceled")
			return ctx.Err()

		case delivery, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery runs the pipeline for one message and acknowledges it
// unconditionally afterwards. Handled job failures are already recorded
// as FAILED rows by the pipeline; only status-write failures surface
// here, and they are logged and counted rather than crashing the loop.
func (w *Worker) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	// Shutdown stops the consume loop, not the delivery already in
	// flight: the job must reach a terminal state before the process
	// exits, so its I/O runs detached from the stop signal. The
	// transcoder timeout still bounds the external call.
	jobCtx := context.WithoutCancel(ctx)

	if err := w.processDelivery(jobCtx, delivery.Body); err != nil {
		var statusErr *domain.StatusWriteError
		switch {
		case errors.As(err, &statusErr):
			telemetry.StatusWriteErrors.Inc()
			w.logger.Error("Job store write failed, job state is unknown",
				slog.String("op", statusErr.Op),
				slog.Any("error", statusErr.Err),
			)
		case errors.Is(err, domain.ErrMalformedMessage):
			w.logger.Error("Discarding malformed message",
				slog.Any("error", err),
				slog.String("body", string(delivery.Body)),
			)
		default:
			w.logger.Error("Delivery processing failed",
				slog.Any("error", err),
			)
		}
	}

	// Ack whether the job ended DONE or FAILED; only a crash before
	// this point causes redelivery.
	if err := delivery.Ack(false); err != nil {
		w.logger.Error("Failed to ack delivery",
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
			slog.Any("error", err),
		)
	}
}
