package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nqhuy/render-be/internal/api/domain"
	"github.com/nqhuy/render-be/internal/api/dto"
)

// GetJob handles GET /api/v1/jobs/:job_id
// A client polling here observes PENDING -> PROCESSING -> DONE|FAILED.
func (h *Handler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}

		h.logger.Error("Failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	resp := dto.JobStatusResponse{
		ID:       job.ID,
		Status:   job.Status,
		Attempts: job.Attempts,
	}
	if job.OutputURL != nil {
		resp.OutputURL = *job.OutputURL
	}
	if job.Error != nil {
		resp.Error = *job.Error
	}

	c.JSON(http.StatusOK, resp)
}
