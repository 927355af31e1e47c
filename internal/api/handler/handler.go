package handler

import (
	"context"
	"log/slog"

	"github.com/nqhuy/render-be/internal/api/model"
)

// Storage is the persistence surface the handlers need
type Storage interface {
	CreateProject(ctx context.Context, project *model.Project) error
	CreateAsset(ctx context.Context, asset *model.Asset) error
	GetJobByID(ctx context.Context, jobID string) (*model.Job, error)
	CreateAnalyticsEvent(ctx context.Context, event *model.AnalyticsEvent) error
}

// Uploader stores raw bytes in object storage
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// RenderProducer enqueues render jobs
type RenderProducer interface {
	EnqueueRender(ctx context.Context, projectID, assetID string) (*model.Job, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger         *slog.Logger
	Storage        Storage
	Uploader       Uploader
	Producer       RenderProducer
	MaxUploadBytes int64
}

// Handler handles HTTP requests for the render API
type Handler struct {
	logger         *slog.Logger
	storage        Storage
	uploader       Uploader
	producer       RenderProducer
	maxUploadBytes int64
}

// NewHandler creates a new Handler instance
func NewHandler(deps *Dependencies) *Handler {
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 50 << 20
	}

	return &Handler{
		logger:         deps.Logger,
		storage:        deps.Storage,
		uploader:       deps.Uploader,
		producer:       deps.Producer,
		maxUploadBytes: maxUpload,
	}
}
