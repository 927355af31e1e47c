package model

import "time"

type Project struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	OwnerID     string    `db:"owner_id"`
	CreatedAt   time.Time `db:"created_at"`
}

type Asset struct {
	ID        string    `db:"id"`
	ProjectID string    `db:"project_id"`
	Filename  string    `db:"filename"`
	Mime      string    `db:"mime"`
	SizeBytes int64     `db:"size_bytes"`
	Kind      string    `db:"kind"`
	S3Path    string    `db:"s3_path"`
	CreatedAt time.Time `db:"created_at"`
}

type Job struct {
	ID        string    `db:"id"`
	ProjectID string    `db:"project_id"`
	AssetID   string    `db:"asset_id"`
	Status    string    `db:"status"`
	Attempts  int       `db:"attempts"`
	OutputURL *string   `db:"output_url"`
	Error     *string   `db:"error"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type AnalyticsEvent struct {
	ID        string    `db:"id"`
	ProjectID string    `db:"project_id"`
	EventType string    `db:"event_type"`
	Payload   []byte    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}
