package domain

// RenderMessage is the queue payload for a render job. It references
// a Job that already exists in the store and an asset already present
// in object storage at AssetPath. Immutable once published.
type RenderMessage struct {
	JobID     string `json:"jobId"`
	AssetPath string `json:"assetPath"`
	ProjectID string `json:"projectId"`
}
