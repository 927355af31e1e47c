package dto

type CreateProjectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id" binding:"required"`
}

type ProjectResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
	CreatedAt   string `json:"created_at"`
}

type UploadAssetResponse struct {
	ID     string `json:"id"`
	S3Path string `json:"s3_path"`
}

type EnqueueRenderRequest struct {
	AssetID string `json:"asset_id" binding:"required"`
}

type EnqueueRenderResponse struct {
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

type JobStatusResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	OutputURL string `json:"output_url,omitempty"`
	Error     string `json:"error,omitempty"`
}

type LogEventRequest struct {
	ProjectID string         `json:"project_id" binding:"required"`
	EventType string         `json:"event_type" binding:"required"`
	Payload   map[string]any `json:"payload"`
}
