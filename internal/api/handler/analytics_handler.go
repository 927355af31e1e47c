package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nqhuy/render-be/internal/api/dto"
	"github.com/nqhuy/render-be/internal/api/model"
)

// LogEvent handles POST /api/v1/analytics
func (h *Handler) LogEvent(c *gin.Context) {
	var req dto.LogEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid payload",
		})
		return
	}

	event := model.AnalyticsEvent{
		ID:        uuid.New().String(),
		ProjectID: req.ProjectID,
		EventType: req.EventType,
		Payload:   raw,
		CreatedAt: time.Now(),
	}

	if err := h.storage.CreateAnalyticsEvent(c.Request.Context(), &event); err != nil {
		h.logger.Error("Failed to log analytics event",
			slog.String("project_id", req.ProjectID),
			slog.String("event_type", req.EventType),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error logging event",
		})
		return
	}

	c.Status(http.StatusAccepted)
}
