package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/nqhuy/render-be/internal/worker/domain"
)

// Storage performs job status transitions for the worker. All worker
// progress is externalized here; the pipeline holds no state of its own.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// MarkProcessing transitions the job to PROCESSING and increments its
// attempts counter. Called before any external I/O so a crash
// mid-processing leaves an observable PROCESSING row.
func (s *Storage) MarkProcessing(ctx context.Context, jobID string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    attempts = attempts + 1,
		    updated_at = NOW()
		WHERE id = $2
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusProcessing, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrJobNotFound
	}

	s.logger.Info("Job marked PROCESSING",
		slog.String("job_id", jobID),
	)

	return nil
}

// MarkDone transitions the job to DONE and records the output URL.
// The error column stays empty; output_url and error are mutually
// exclusive on terminal rows.
func (s *Storage) MarkDone(ctx context.Context, jobID, outputURL string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    output_url = $2,
		    error = NULL,
		    updated_at = NOW()
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusDone, outputURL, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job done: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrJobNotFound
	}

	s.logger.Info("Job marked DONE",
		slog.String("job_id", jobID),
		slog.String("output_url", outputURL),
	)

	return nil
}

// MarkFailed transitions the job to FAILED and records the diagnostic
func (s *Storage) MarkFailed(ctx context.Context, jobID, detail string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    error = $2,
		    output_url = NULL,
		    updated_at = NOW()
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, detail, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrJobNotFound
	}

	s.logger.Info("Job marked FAILED",
		slog.String("job_id", jobID),
		slog.String("error", detail),
	)

	return nil
}
