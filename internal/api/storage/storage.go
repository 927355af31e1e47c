package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nqhuy/render-be/internal/api/domain"
	"github.com/nqhuy/render-be/internal/api/model"
	"github.com/nqhuy/render-be/shared/postgresql"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

func (s *Storage) CreateProject(ctx context.Context, project *model.Project) error {
	query := `
		INSERT INTO projects (id, title, description, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		project.ID,
		project.Title,
		project.Description,
		project.OwnerID,
		project.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

func (s *Storage) CreateAsset(ctx context.Context, asset *model.Asset) error {
	query := `
		INSERT INTO assets (id, project_id, filename, mime, size_bytes, kind, s3_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		asset.ID,
		asset.ProjectID,
		asset.Filename,
		asset.Mime,
		asset.SizeBytes,
		asset.Kind,
		asset.S3Path,
		asset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}

	return nil
}

func (s *Storage) GetAsset(ctx context.Context, assetID string) (*model.Asset, error) {
	var asset model.Asset
	query := `
		SELECT id, project_id, filename, mime, size_bytes, kind, s3_path, created_at
		FROM assets
		WHERE id = $1
	`

	err := s.db.GetContext(ctx, &asset, query, assetID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	return &asset, nil
}

func (s *Storage) CreateJob(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO jobs (id, project_id, asset_id, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.ProjectID,
		job.AssetID,
		job.Status,
		job.Attempts,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	query := `
		SELECT id, project_id, asset_id, status, attempts, output_url, error, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

func (s *Storage) CreateAnalyticsEvent(ctx context.Context, event *model.AnalyticsEvent) error {
	query := `
		INSERT INTO analytics_events (id, project_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		event.ID,
		event.ProjectID,
		event.EventType,
		event.Payload,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create analytics event: %w", err)
	}

	return nil
}
