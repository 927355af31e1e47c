package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nqhuy/render-be/internal/api/handler"
	"github.com/nqhuy/render-be/internal/telemetry"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "render-api-service",
		})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(telemetry.Handler()))

	h := handler.NewHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		projects := v1.Group("/projects")
		{
			// POST /api/v1/projects - Create a new project
			projects.POST("", h.CreateProject)

			// POST /api/v1/projects/:project_id/assets - Upload an asset
			projects.POST("/:project_id/assets", h.UploadAsset)

			// POST /api/v1/projects/:project_id/render - Enqueue a render job
			projects.POST("/:project_id/render", h.EnqueueRender)
		}

		// GET /api/v1/jobs/:job_id - Poll render job status
		v1.GET("/jobs/:job_id", h.GetJob)

		// POST /api/v1/analytics - Record a client analytics event
		v1.POST("/analytics", h.LogEvent)
	}

	return r
}
