package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nqhuy/render-be/internal/api/domain"
	"github.com/nqhuy/render-be/internal/api/dto"
	"github.com/nqhuy/render-be/internal/api/model"
	"github.com/nqhuy/render-be/internal/api/producer"
)

// CreateProject handles POST /api/v1/projects
func (h *Handler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	project := model.Project{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
		OwnerID:     req.OwnerID,
		CreatedAt:   time.Now(),
	}

	if err := h.storage.CreateProject(c.Request.Context(), &project); err != nil {
		h.logger.Error("Failed to create project", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create project",
		})
		return
	}

	c.JSON(http.StatusCreated, dto.ProjectResponse{
		ID:          project.ID,
		Title:       project.Title,
		Description: project.Description,
		OwnerID:     project.OwnerID,
		CreatedAt:   project.CreatedAt.Format(time.RFC3339),
	})
}

// UploadAsset handles POST /api/v1/projects/:project_id/assets
// Stores the uploaded file in object storage and records the asset.
// Image assets additionally get a JPEG thumbnail.
func (h *Handler) UploadAsset(c *gin.Context) {
	projectID := c.Param("project_id")
	if _, err := uuid.Parse(projectID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "project_id must be a valid UUID",
		})
		return
	}

	fileHeader, err := c.FormFile("asset")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "No file uploaded",
		})
		return
	}

	if fileHeader.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("File exceeds the %d byte limit", h.maxUploadBytes),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open upload", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read uploaded file",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes))
	if err != nil {
		h.logger.Error("Failed to read upload", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to read uploaded file",
		})
		return
	}

	mime := fileHeader.Header.Get("Content-Type")
	kind := domain.AssetKindImage
	if strings.HasPrefix(mime, "video") {
		kind = domain.AssetKindVideo
	}

	ext := filepath.Ext(fileHeader.Filename)
	key := fmt.Sprintf("projects/%s/assets/%s%s", projectID, uuid.New().String(), ext)

	url, err := h.uploader.Upload(c.Request.Context(), key, data, mime)
	if err != nil {
		h.logger.Error("Failed to upload asset",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to upload asset",
		})
		return
	}

	if kind == domain.AssetKindImage {
		h.uploadThumbnail(c, projectID, data)
	}

	asset := model.Asset{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Filename:  fileHeader.Filename,
		Mime:      mime,
		SizeBytes: fileHeader.Size,
		Kind:      kind,
		S3Path:    key,
		CreatedAt: time.Now(),
	}

	if err := h.storage.CreateAsset(c.Request.Context(), &asset); err != nil {
		h.logger.Error("Failed to record asset", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to record asset",
		})
		return
	}

	h.logger.Info("Asset uploaded",
		slog.String("asset_id", asset.ID),
		slog.String("project_id", projectID),
		slog.String("s3_path", key),
		slog.String("url", url),
	)

	c.JSON(http.StatusCreated, dto.UploadAssetResponse{
		ID:     asset.ID,
		S3Path: asset.S3Path,
	})
}

// uploadThumbnail stores a small preview next to the asset. Best
// effort: a preview failure never fails the upload.
func (h *Handler) uploadThumbnail(c *gin.Context, projectID string, data []byte) {
	thumb, err := makeThumbnail(data)
	if err != nil {
		h.logger.Warn("Could not generate thumbnail",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()),
		)
		return
	}

	key := fmt.Sprintf("projects/%s/thumbs/%s.jpg", projectID, uuid.New().String())
	if _, err := h.uploader.Upload(c.Request.Context(), key, thumb, "image/jpeg"); err != nil {
		h.logger.Warn("Could not upload thumbnail",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()),
		)
	}
}

// EnqueueRender handles POST /api/v1/projects/:project_id/render
func (h *Handler) EnqueueRender(c *gin.Context) {
	projectID := c.Param("project_id")
	if _, err := uuid.Parse(projectID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "project_id must be a valid UUID",
		})
		return
	}

	var req dto.EnqueueRenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	job, err := h.producer.EnqueueRender(c.Request.Context(), projectID, req.AssetID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAssetNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Asset not found in this project",
			})
		case errors.Is(err, producer.ErrEnqueueFailed):
			// The job row exists and stays PENDING; report the broker
			// failure to the caller so it can retry.
			h.logger.Error("Render enqueue failed",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":  "Failed to enqueue render job",
				"job_id": job.ID,
			})
		default:
			h.logger.Error("Failed to enqueue render job", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to enqueue render job",
			})
		}
		return
	}

	c.JSON(http.StatusAccepted, dto.EnqueueRenderResponse{
		Message: "Render job enqueued",
		JobID:   job.ID,
	})
}
