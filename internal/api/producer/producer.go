package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nqhuy/render-be/internal/api/domain"
	"github.com/nqhuy/render-be/internal/api/model"
	"github.com/nqhuy/render-be/internal/telemetry"
)

// ErrEnqueueFailed means the job row was committed but the queue
// publish failed. The job stays PENDING in storage; recovery (e.g.
// re-publish) is up to the caller or an operator.
var ErrEnqueueFailed = errors.New("failed to enqueue render job")

// Storage is the slice of the job store the producer needs
type Storage interface {
	GetAsset(ctx context.Context, assetID string) (*model.Asset, error)
	CreateJob(ctx context.Context, job *model.Job) error
}

// Publisher pushes a message onto the render queue
type Publisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// renderMessage is the queue payload; it mirrors the worker's contract
type renderMessage struct {
	JobID     string `json:"jobId"`
	AssetPath string `json:"assetPath"`
	ProjectID string `json:"projectId"`
}

// Producer validates render requests, creates PENDING jobs, and
// publishes render messages referencing them.
type Producer struct {
	storage   Storage
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a producer with injected collaborators
func NewProducer(storage Storage, publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		storage:   storage,
		publisher: publisher,
		logger:    logger,
	}
}

// EnqueueRender creates a PENDING job for the asset and publishes the
// render message. The publish happens only after the job row commit so
// any consumer can always resolve the jobId.
func (p *Producer) EnqueueRender(ctx context.Context, projectID, assetID string) (*model.Job, error) {
	asset, err := p.storage.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.ProjectID != projectID {
		return nil, domain.ErrAssetNotFound
	}

	now := time.Now()
	job := &model.Job{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		AssetID:   assetID,
		Status:    domain.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := p.storage.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	body, err := json.Marshal(renderMessage{
		JobID:     job.ID,
		AssetPath: asset.S3Path,
		ProjectID: projectID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal render message: %w", err)
	}

	if err := p.publisher.Publish(ctx, body, "application/json"); err != nil {
		p.logger.Error("Job created but publish failed, job stays PENDING",
			slog.String("job_id", job.ID),
			slog.Any("error", err),
		)
		return job, fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}

	telemetry.JobsEnqueued.Inc()

	p.logger.Info("Render job enqueued",
		slog.String("job_id", job.ID),
		slog.String("project_id", projectID),
		slog.String("asset_path", asset.S3Path),
	)

	return job, nil
}
