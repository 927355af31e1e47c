package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/nqhuy/render-be/internal/telemetry"
	"github.com/nqhuy/render-be/internal/worker/domain"
)

const outputContentType = "video/mp4"

// outputKey derives the deterministic object-store key for a job's
// rendered output.
func outputKey(jobID string) string {
	return fmt.Sprintf("projects/rendered/%s_compressed_output.mp4", jobID)
}

// processDelivery drives one render message through the job state
// machine. Stage failures become terminal FAILED jobs and return nil;
// only malformed messages and status-write failures return an error.
func (w *Worker) processDelivery(ctx context.Context, body []byte) error {
	var msg domain.RenderMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}
	if msg.JobID == "" || msg.AssetPath == "" {
		return fmt.Errorf("%w: missing jobId or assetPath", domain.ErrMalformedMessage)
	}

	w.logger.Info("Received render job",
		slog.String("job_id", msg.JobID),
		slog.String("asset_path", msg.AssetPath),
		slog.String("project_id", msg.ProjectID),
	)

	// Persist the PROCESSING transition before any external I/O so a
	// crash mid-processing leaves an observable PROCESSING row.
	if err := w.jobs.MarkProcessing(ctx, msg.JobID); err != nil {
		return &domain.StatusWriteError{Op: "mark_processing", Err: err}
	}

	start := time.Now()

	inputPath, outputPath := w.tempPaths(msg.AssetPath)
	defer w.cleanupTemp(msg.JobID, inputPath, outputPath)

	outputURL, stageErr := w.runStages(ctx, msg, inputPath, outputPath)
	if stageErr != nil {
		w.logger.Error("Render job failed",
			slog.String("job_id", msg.JobID),
			slog.String("stage", string(stageErr.Kind)),
			slog.Any("error", stageErr.Err),
		)

		telemetry.JobsFailed.Inc()

		if err := w.jobs.MarkFailed(ctx, msg.JobID, stageErr.Detail()); err != nil {
			return &domain.StatusWriteError{Op: "mark_failed", Err: err}
		}
		return nil
	}

	if err := w.jobs.MarkDone(ctx, msg.JobID, outputURL); err != nil {
		return &domain.StatusWriteError{Op: "mark_done", Err: err}
	}

	telemetry.JobsCompleted.Inc()
	telemetry.RenderDuration.Observe(time.Since(start).Seconds())

	w.logger.Info("Render job finished",
		slog.String("job_id", msg.JobID),
		slog.String("output_url", outputURL),
		slog.Duration("took", time.Since(start)),
	)

	return nil
}

// runStages performs download -> transcode -> upload against the local
// file pair and returns the uploaded output URL.
func (w *Worker) runStages(ctx context.Context, msg domain.RenderMessage, inputPath, outputPath string) (string, *domain.StageError) {
	input, err := w.objects.Download(ctx, msg.AssetPath)
	if err != nil {
		return "", domain.NewStageError(domain.FailureDownload, err)
	}

	if err := os.WriteFile(inputPath, input, 0o644); err != nil {
		return "", domain.NewStageError(domain.FailureDownload, err)
	}

	if err := w.transcoder.Transcode(ctx, inputPath, outputPath); err != nil {
		return "", domain.NewStageError(domain.FailureTranscode, err)
	}

	// The transcoder resolving without err does not guarantee a usable
	// file; reading it back is the validity check.
	output, err := os.ReadFile(outputPath)
	if err != nil {
		return "", domain.NewStageError(domain.FailureTranscode, err)
	}

	url, err := w.objects.Upload(ctx, outputKey(msg.JobID), output, outputContentType)
	if err != nil {
		return "", domain.NewStageError(domain.FailureUpload, err)
	}

	return url, nil
}

// tempPaths derives collision-free local file paths for one delivery.
// The uuid suffix keeps concurrent deliveries apart even across worker
// instances sharing a filesystem.
func (w *Worker) tempPaths(assetPath string) (inputPath, outputPath string) {
	ext := filepath.Ext(assetPath)
	base := filepath.Base(assetPath)
	base = base[:len(base)-len(ext)]

	inputPath = filepath.Join(w.tempDir, fmt.Sprintf("%s_%s_input%s", base, uuid.New().String(), ext))
	outputPath = filepath.Join(w.tempDir, fmt.Sprintf("%s_%s_output.mp4", base, uuid.New().String()))
	return inputPath, outputPath
}

// cleanupTemp removes the delivery's local files. Best-effort: removal
// failures are logged, never allowed to mask the delivery outcome.
func (w *Worker) cleanupTemp(jobID string, paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			w.logger.Warn("Could not delete temp file",
				slog.String("job_id", jobID),
				slog.String("path", path),
				slog.Any("error", err),
			)
		}
	}

	w.logger.Debug("Local temp files cleaned up",
		slog.String("job_id", jobID),
	)
}
